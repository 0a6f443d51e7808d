package interaction

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/surface"
)

// Relaxation is the part of a force simulation a drag drives.
type Relaxation interface {
	Position(id string) (graph.Point, bool)
	Pin(id string, p graph.Point) error
	Unpin(id string) error
	SetAlphaTarget(target float64)
	Restart()
}

// Controller owns the interaction state of one render pass. A new pass gets a
// new Controller.
type Controller struct {
	surface  surface.Surface
	location *time.Location
	log      zerolog.Logger

	mu      sync.Mutex
	tooltip surface.Overlay
	drags   map[int]string // pointer -> node id
}

// Option configures a Controller.
type Option func(*Controller)

// WithLocation sets the time zone used for tooltip timestamps.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		c.location = loc
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// NewController creates a controller drawing its tooltip on s.
func NewController(s surface.Surface, opts ...Option) *Controller {
	c := &Controller{
		surface:  s,
		location: time.Local,
		log:      zerolog.Nop(),
		drags:    make(map[int]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// overlay returns the single tooltip of this pass, creating it on first use.
func (c *Controller) overlay() surface.Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tooltip == nil {
		c.tooltip = c.surface.Overlay(TooltipClass)
	}
	return c.tooltip
}

// AttachHover shows the node's tooltip while the pointer is over el. Nodes
// without tooltip content get no handlers.
func (c *Controller) AttachHover(el surface.ElementID, n graph.Node) {
	content, ok := TooltipContent(n, c.location)
	if !ok {
		return
	}
	c.surface.OnHover(el,
		func(ev surface.Event) {
			c.overlay().Show(content, ev.Pos.Add(PointerOffset), TooltipOpacity, FadeIn)
		},
		func(surface.Event) {
			c.overlay().Hide(FadeOut)
		},
	)
}

// AttachDrag pins node id to the pointer while el is dragged. The first
// active drag heats the relaxation to alphaTarget; the last one to end cools it.
func (c *Controller) AttachDrag(el surface.ElementID, id string, sim Relaxation, alphaTarget float64) {
	c.surface.OnDrag(el,
		func(ev surface.Event) { c.dragStart(ev, id, sim, alphaTarget) },
		func(ev surface.Event) { c.dragMove(ev, sim) },
		func(ev surface.Event) { c.dragEnd(ev, sim) },
	)
}

func (c *Controller) dragStart(ev surface.Event, id string, sim Relaxation, alphaTarget float64) {
	c.mu.Lock()
	first := len(c.drags) == 0
	c.drags[ev.Pointer] = id
	c.mu.Unlock()

	if first {
		sim.SetAlphaTarget(alphaTarget)
		sim.Restart()
	}
	pos, ok := sim.Position(id)
	if !ok {
		pos = ev.Pos
	}
	if err := sim.Pin(id, pos); err != nil {
		c.log.Warn().Err(err).Str("node", id).Msg("Failed to pin dragged node")
	}
}

func (c *Controller) dragMove(ev surface.Event, sim Relaxation) {
	c.mu.Lock()
	id, ok := c.drags[ev.Pointer]
	c.mu.Unlock()
	if !ok {
		return
	}
	if err := sim.Pin(id, ev.Pos); err != nil {
		c.log.Warn().Err(err).Str("node", id).Msg("Failed to move dragged node")
	}
}

func (c *Controller) dragEnd(ev surface.Event, sim Relaxation) {
	c.mu.Lock()
	id, ok := c.drags[ev.Pointer]
	delete(c.drags, ev.Pointer)
	last := len(c.drags) == 0
	c.mu.Unlock()
	if !ok {
		return
	}

	if last {
		sim.SetAlphaTarget(0)
	}
	if err := sim.Unpin(id); err != nil {
		c.log.Warn().Err(err).Str("node", id).Msg("Failed to release dragged node")
	}
}

// ActiveDrags returns the number of pointers currently dragging.
func (c *Controller) ActiveDrags() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.drags)
}
