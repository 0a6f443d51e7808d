// Package interaction attaches hover tooltips and drag-to-pin behavior to
// drawn elements.
package interaction

import (
	"html"
	"strings"
	"time"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
)

const (
	TooltipClass   = "tooltip"
	TooltipOpacity = 0.9
	FadeIn         = 200 * time.Millisecond
	FadeOut        = 500 * time.Millisecond

	// TimestampLayout renders times as month/day/year, 12-hour clock.
	TimestampLayout = "1/2/2006, 3:04:05 PM"
)

// PointerOffset places the tooltip to the upper right of the pointer.
var PointerOffset = graph.Point{X: 10, Y: -28}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// FormatTimestamp renders an ISO-8601 timestamp in loc. Empty input renders as
// "-"; input that does not parse is returned unchanged.
func FormatTimestamp(ts string, loc *time.Location) string {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "-"
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, ts, loc); err == nil {
			return t.In(loc).Format(TimestampLayout)
		}
	}
	return ts
}

// TooltipContent builds the tooltip markup for a node. It returns false for
// nodes without source data (the synthetic cluster root).
func TooltipContent(n graph.Node, loc *time.Location) (string, bool) {
	switch {
	case n.Source.Pod != nil:
		p := n.Source.Pod
		lines := []string{
			"<strong>" + html.EscapeString(p.Name) + "</strong>",
			"Status: " + html.EscapeString(p.Status),
			"Namespace: " + html.EscapeString(p.Namespace),
			"Created: " + html.EscapeString(FormatTimestamp(p.CreationTimestamp, loc)),
		}
		return strings.Join(lines, "<br/>"), true
	case n.Source.Namespace != nil:
		ns := n.Source.Namespace
		lines := []string{
			"<strong>" + html.EscapeString(ns.Name) + "</strong>",
			"Type: " + n.Kind.String(),
		}
		return strings.Join(lines, "<br/>"), true
	}
	return "", false
}
