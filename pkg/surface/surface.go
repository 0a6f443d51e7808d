// Package surface defines the drawing target used by the layouts and an SVG
// implementation that records elements, dispatches interaction events and
// serializes to SVG markup.
package surface

import (
	"time"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
)

// ElementID identifies a drawn element. IDs are never reused, so an ID from a
// cleared pass never resolves again. Root is the implicit top-level container.
type ElementID uint64

const Root ElementID = 0

// EventType is the type of an interaction event.
type EventType string

const (
	EventHoverEnter EventType = "hover-enter"
	EventHoverExit  EventType = "hover-exit"
	EventDragStart  EventType = "drag-start"
	EventDragMove   EventType = "drag-move"
	EventDragEnd    EventType = "drag-end"
)

// Event is an interaction event targeted at one element.
type Event struct {
	Type    EventType
	Element ElementID
	// Pointer distinguishes concurrent pointers (multi-touch drags).
	Pointer int
	// Pos is the pointer position in canvas coordinates.
	Pos graph.Point
}

// Handler reacts to an interaction event.
type Handler func(Event)

// Surface is a drawing target. It holds no domain knowledge.
type Surface interface {
	// Clear removes every element, handler and overlay from prior passes.
	Clear()

	Group(parent ElementID, class string) ElementID
	Rect(parent ElementID, at graph.Point, width, height, cornerRadius float64, class string) ElementID
	Circle(parent ElementID, at graph.Point, radius float64, class string) ElementID
	Line(parent ElementID, from, to graph.Point, class string) ElementID
	Text(parent ElementID, at graph.Point, content, class string) ElementID

	// Translate moves an element (and its children) by offset.
	Translate(id ElementID, offset graph.Point)
	// MoveLine updates the endpoints of a line.
	MoveLine(id ElementID, from, to graph.Point)

	OnHover(id ElementID, enter, exit Handler)
	OnDrag(id ElementID, start, move, end Handler)

	// Overlay creates a transient overlay (a tooltip) owned by the current pass.
	Overlay(class string) Overlay
}

// Overlay is a floating element shown above the drawing.
type Overlay interface {
	// Show fades the overlay in to opacity over fade and replaces its content.
	Show(content string, at graph.Point, opacity float64, fade time.Duration)
	// Hide fades the overlay out over fade. It stays allocated.
	Hide(fade time.Duration)
}
