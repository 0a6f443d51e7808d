// Package render provides HTML rendering of drawn cluster diagrams.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"time"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/surface"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Page is everything shown on a diagram page.
type Page struct {
	Title       string
	Geometry    *graph.Geometry
	Drawing     io.WriterTo
	Overlays    []surface.OverlayState
	Source      string
	GeneratedAt time.Time
}

type tooltip struct {
	Left, Top float64
	Opacity   float64
	Content   template.HTML
}

// HTMLRenderer renders diagrams to standalone HTML pages.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer creates a new HTML renderer.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/diagram.html.tmpl")
	if err != nil {
		return nil, err
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

// Render converts a drawn diagram to an HTML page.
func (r *HTMLRenderer) Render(p Page) (string, error) {
	geometry := p.Geometry
	if geometry == nil {
		geometry = &graph.Geometry{Nodes: []graph.Node{}, Links: []graph.Link{}}
	}
	graphJSON, err := json.Marshal(geometry)
	if err != nil {
		return "", err
	}

	var svg bytes.Buffer
	if p.Drawing != nil {
		if _, err := p.Drawing.WriteTo(&svg); err != nil {
			return "", err
		}
	}

	namespaces, pods := 0, 0
	for _, n := range geometry.Nodes {
		switch n.Kind {
		case graph.KindNamespace:
			namespaces++
		case graph.KindPod:
			pods++
		}
	}

	var tooltips []tooltip
	for _, o := range p.Overlays {
		if !o.Visible {
			continue
		}
		// content is built from escaped fields by the interaction controller
		tooltips = append(tooltips, tooltip{Left: o.At.X, Top: o.At.Y, Opacity: o.Opacity, Content: template.HTML(o.Content)})
	}

	title := p.Title
	if title == "" {
		title = "Cluster Map"
	}
	generated := p.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, map[string]any{
		"Title":       title,
		"Mode":        geometry.Mode,
		"Namespaces":  namespaces,
		"Pods":        pods,
		"Source":      p.Source,
		"GeneratedAt": generated.UTC().Format(time.RFC3339),
		"SVG":         template.HTML(svg.String()),
		"Tooltips":    tooltips,
		"GraphData":   template.JS(graphJSON),
	}); err != nil {
		return "", err
	}

	return buf.String(), nil
}
