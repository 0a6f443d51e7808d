package surface

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
)

// Shape is the primitive kind of a recorded element.
type Shape string

const (
	ShapeGroup  Shape = "g"
	ShapeRect   Shape = "rect"
	ShapeCircle Shape = "circle"
	ShapeLine   Shape = "line"
	ShapeText   Shape = "text"
)

// Element is a recorded draw primitive.
type Element struct {
	ID           ElementID
	Parent       ElementID
	Shape        Shape
	Class        string
	At           graph.Point
	To           graph.Point // line end
	Width        float64
	Height       float64
	Radius       float64
	CornerRadius float64
	Content      string
	Offset       graph.Point // translation
}

// OverlayState is a snapshot of an overlay.
type OverlayState struct {
	Class   string
	Visible bool
	Content string
	At      graph.Point
	Opacity float64
	Fade    time.Duration
}

type handlers struct {
	enter, exit      Handler
	start, move, end Handler
}

// SVG is a Surface that records elements in memory.
type SVG struct {
	mu         sync.Mutex
	width      float64
	height     float64
	generation uint64
	nextID     ElementID
	elements   map[ElementID]*Element
	children   map[ElementID][]ElementID
	handlers   map[ElementID]*handlers
	overlays   []*svgOverlay
}

var _ Surface = (*SVG)(nil)

// NewSVG creates an empty SVG surface of the given size.
func NewSVG(width, height float64) *SVG {
	s := &SVG{width: width, height: height}
	s.reset()
	return s
}

func (s *SVG) reset() {
	s.elements = make(map[ElementID]*Element)
	s.children = make(map[ElementID][]ElementID)
	s.handlers = make(map[ElementID]*handlers)
	s.overlays = nil
}

// Size returns the canvas size.
func (s *SVG) Size() (width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Resize changes the canvas size.
func (s *SVG) Resize(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

// Clear implements Surface.
func (s *SVG) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.reset()
}

// Generation returns the number of times the surface was cleared.
func (s *SVG) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *SVG) add(e Element) ElementID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Parent != Root {
		if _, ok := s.elements[e.Parent]; !ok {
			// stale parent from a cleared pass
			e.Parent = Root
		}
	}
	s.nextID++
	e.ID = s.nextID
	s.elements[e.ID] = &e
	s.children[e.Parent] = append(s.children[e.Parent], e.ID)
	return e.ID
}

// Group implements Surface.
func (s *SVG) Group(parent ElementID, class string) ElementID {
	return s.add(Element{Parent: parent, Shape: ShapeGroup, Class: class})
}

// Rect implements Surface.
func (s *SVG) Rect(parent ElementID, at graph.Point, width, height, cornerRadius float64, class string) ElementID {
	return s.add(Element{Parent: parent, Shape: ShapeRect, Class: class, At: at, Width: width, Height: height, CornerRadius: cornerRadius})
}

// Circle implements Surface.
func (s *SVG) Circle(parent ElementID, at graph.Point, radius float64, class string) ElementID {
	return s.add(Element{Parent: parent, Shape: ShapeCircle, Class: class, At: at, Radius: radius})
}

// Line implements Surface.
func (s *SVG) Line(parent ElementID, from, to graph.Point, class string) ElementID {
	return s.add(Element{Parent: parent, Shape: ShapeLine, Class: class, At: from, To: to})
}

// Text implements Surface.
func (s *SVG) Text(parent ElementID, at graph.Point, content, class string) ElementID {
	return s.add(Element{Parent: parent, Shape: ShapeText, Class: class, At: at, Content: content})
}

// Translate implements Surface.
func (s *SVG) Translate(id ElementID, offset graph.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.elements[id]; ok {
		e.Offset = offset
	}
}

// MoveLine implements Surface.
func (s *SVG) MoveLine(id ElementID, from, to graph.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.elements[id]; ok && e.Shape == ShapeLine {
		e.At, e.To = from, to
	}
}

// OnHover implements Surface.
func (s *SVG) OnHover(id ElementID, enter, exit Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h := s.handlersFor(id); h != nil {
		h.enter, h.exit = enter, exit
	}
}

// OnDrag implements Surface.
func (s *SVG) OnDrag(id ElementID, start, move, end Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h := s.handlersFor(id); h != nil {
		h.start, h.move, h.end = start, move, end
	}
}

func (s *SVG) handlersFor(id ElementID) *handlers {
	if _, ok := s.elements[id]; !ok {
		return nil
	}
	h, ok := s.handlers[id]
	if !ok {
		h = &handlers{}
		s.handlers[id] = h
	}
	return h
}

// Dispatch delivers an event to the handler attached to its element. It
// reports whether a handler ran. Events for elements of a cleared pass are dropped.
func (s *SVG) Dispatch(ev Event) bool {
	s.mu.Lock()
	h, ok := s.handlers[ev.Element]
	var fn Handler
	if ok {
		switch ev.Type {
		case EventHoverEnter:
			fn = h.enter
		case EventHoverExit:
			fn = h.exit
		case EventDragStart:
			fn = h.start
		case EventDragMove:
			fn = h.move
		case EventDragEnd:
			fn = h.end
		}
	}
	s.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(ev)
	return true
}

// Elements returns a copy of every element in document order.
func (s *SVG) Elements() []Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Element, 0, len(s.elements))
	var walk func(ElementID)
	walk = func(parent ElementID) {
		for _, id := range s.children[parent] {
			out = append(out, *s.elements[id])
			walk(id)
		}
	}
	walk(Root)
	return out
}

// Element returns a copy of one element.
func (s *SVG) Element(id ElementID) (Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.elements[id]
	if !ok {
		return Element{}, false
	}
	return *e, true
}

// ByClass returns elements whose class attribute equals class.
func (s *SVG) ByClass(class string) []Element {
	var out []Element
	for _, e := range s.Elements() {
		if e.Class == class {
			out = append(out, e)
		}
	}
	return out
}

// Origin returns the accumulated translation of an element's ancestors and itself.
func (s *SVG) Origin(id ElementID) graph.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p graph.Point
	for id != Root {
		e, ok := s.elements[id]
		if !ok {
			break
		}
		p = p.Add(e.Offset)
		id = e.Parent
	}
	return p
}

// Overlays returns the overlays of the current pass.
func (s *SVG) Overlays() []OverlayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OverlayState, 0, len(s.overlays))
	for _, o := range s.overlays {
		out = append(out, o.state)
	}
	return out
}

// Overlay implements Surface.
func (s *SVG) Overlay(class string) Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := &svgOverlay{surface: s, generation: s.generation, state: OverlayState{Class: class}}
	s.overlays = append(s.overlays, o)
	return o
}

type svgOverlay struct {
	surface    *SVG
	generation uint64
	state      OverlayState
}

func (o *svgOverlay) Show(content string, at graph.Point, opacity float64, fade time.Duration) {
	o.surface.mu.Lock()
	defer o.surface.mu.Unlock()
	if o.generation != o.surface.generation {
		return
	}
	o.state.Visible = true
	o.state.Content = content
	o.state.At = at
	o.state.Opacity = opacity
	o.state.Fade = fade
}

func (o *svgOverlay) Hide(fade time.Duration) {
	o.surface.mu.Lock()
	defer o.surface.mu.Unlock()
	if o.generation != o.surface.generation {
		return
	}
	o.state.Visible = false
	o.state.Opacity = 0
	o.state.Fade = fade
}

// WriteTo serializes the drawing as an <svg> element.
func (s *SVG) WriteTo(w io.Writer) (int64, error) {
	elements := s.Elements()
	width, height := s.Size()

	cw := &countingWriter{w: bufio.NewWriter(w)}
	fmt.Fprintf(cw, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s">`, num(width), num(height))

	byParent := make(map[ElementID][]Element)
	for _, e := range elements {
		byParent[e.Parent] = append(byParent[e.Parent], e)
	}
	var write func(ElementID)
	write = func(parent ElementID) {
		for _, e := range byParent[parent] {
			writeElement(cw, e, func() { write(e.ID) })
		}
	}
	write(Root)

	cw.WriteString("</svg>")
	if err := cw.w.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, cw.err
}

func writeElement(w *countingWriter, e Element, children func()) {
	attrs := ""
	if e.Class != "" {
		attrs += ` class="` + escape(e.Class) + `"`
	}
	if e.Offset != (graph.Point{}) {
		attrs += fmt.Sprintf(` transform="translate(%s,%s)"`, num(e.Offset.X), num(e.Offset.Y))
	}

	switch e.Shape {
	case ShapeGroup:
		fmt.Fprintf(w, "<g%s>", attrs)
		children()
		w.WriteString("</g>")
	case ShapeRect:
		fmt.Fprintf(w, `<rect%s x="%s" y="%s" width="%s" height="%s" rx="%s"/>`,
			attrs, num(e.At.X), num(e.At.Y), num(e.Width), num(e.Height), num(e.CornerRadius))
	case ShapeCircle:
		fmt.Fprintf(w, `<circle%s cx="%s" cy="%s" r="%s"/>`, attrs, num(e.At.X), num(e.At.Y), num(e.Radius))
	case ShapeLine:
		fmt.Fprintf(w, `<line%s x1="%s" y1="%s" x2="%s" y2="%s"/>`,
			attrs, num(e.At.X), num(e.At.Y), num(e.To.X), num(e.To.Y))
	case ShapeText:
		fmt.Fprintf(w, `<text%s x="%s" y="%s">%s</text>`, attrs, num(e.At.X), num(e.At.Y), escape(e.Content))
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escape(s string) string {
	var b stringWriter
	_ = xml.EscapeText(&b, []byte(s))
	return string(b)
}

type stringWriter []byte

func (b *stringWriter) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

func (c *countingWriter) WriteString(s string) {
	_, _ = c.Write([]byte(s))
}
