// Package layout places a topology on a surface. Two strategies exist: a
// deterministic grid of namespace bands and a force-directed graph.
package layout

import (
	"sync"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/force"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/interaction"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/surface"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/topology"
)

const (
	// ModeHierarchical selects the grid layout. Any other mode selects the force layout.
	ModeHierarchical = "hierarchical"
	ModeForce        = "force"
)

// Pass carries what one render pass draws onto.
type Pass struct {
	Surface     surface.Surface
	Interaction *interaction.Controller
	Width       float64
	Height      float64
}

// Strategy places a topology and draws it.
type Strategy interface {
	Mode() string
	Render(topo *topology.Topology, pass Pass) (*Result, error)
}

// ForMode returns the strategy for a layout mode.
func ForMode(mode string) Strategy {
	if mode == ModeHierarchical {
		return Grid{}
	}
	return Force{}
}

// Result is the output of a render pass. For the force layout it follows the
// simulation through Sync.
type Result struct {
	mu       sync.Mutex
	geometry *graph.Geometry
	sim      *force.Simulation
	sync     func(positions []graph.Point)
}

// Geometry returns a copy of the placed geometry.
func (r *Result) Geometry() *graph.Geometry {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := *r.geometry
	g.Nodes = make([]graph.Node, len(r.geometry.Nodes))
	for i, n := range r.geometry.Nodes {
		if n.Pinned != nil {
			p := *n.Pinned
			n.Pinned = &p
		}
		g.Nodes[i] = n
	}
	g.Links = append([]graph.Link(nil), r.geometry.Links...)
	return &g
}

// Simulation returns the relaxation driving the result, or nil for static layouts.
func (r *Result) Simulation() *force.Simulation {
	return r.sim
}

// Sync applies simulation positions to the geometry and the surface. It is a
// force.TickFunc.
func (r *Result) Sync(positions []graph.Point) {
	if r.sync == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sync(positions)
}
