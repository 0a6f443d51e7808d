package layout

import (
	"github.com/ddl-r-abdulaziz/clustermap/pkg/force"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/surface"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/topology"
)

const (
	collisionPadding = 5
	forceLabelMax    = 10
	labelBaseline    = 4
)

// Force draws the cluster as a graph placed by a force simulation: one root,
// one node per namespace and one node per pod. Deployments are not drawn.
type Force struct {
	// Configure adjusts the simulation parameters derived from the canvas size.
	Configure func(*force.Config)
}

var _ Strategy = Force{}

// Mode implements Strategy.
func (Force) Mode() string { return ModeForce }

// BuildGraph creates the force graph for a topology. Node positions are left
// at zero; the simulation places them.
func BuildGraph(topo *topology.Topology, width, height float64) (*graph.Geometry, error) {
	b := graph.NewBuilder(ModeForce, width, height)
	if err := b.AddNode(graph.Node{
		ID:    graph.ClusterID,
		Label: "Cluster",
		Kind:  graph.KindCluster,
		Class: graph.NodeClass(graph.KindCluster),
	}); err != nil {
		return nil, err
	}

	for _, ns := range topo.Namespaces {
		nsID := b.UniqueID(graph.NamespaceID(ns.Name))
		if err := b.AddNode(graph.Node{
			ID:     nsID,
			Label:  ns.Name,
			Kind:   graph.KindNamespace,
			Class:  graph.NodeClass(graph.KindNamespace),
			Source: graph.Source{Namespace: ns},
		}); err != nil {
			return nil, err
		}
		if err := b.AddLink(graph.ClusterID, nsID); err != nil {
			return nil, err
		}

		for i := range ns.Pods {
			pod := &ns.Pods[i]
			podID := b.UniqueID(graph.PodID(ns.Name, pod.Name))
			if err := b.AddNode(graph.Node{
				ID:     podID,
				Label:  pod.Name,
				Kind:   graph.KindPod,
				Class:  graph.NodeClass(graph.KindPod),
				Source: graph.Source{Pod: pod},
			}); err != nil {
				return nil, err
			}
			if err := b.AddLink(nsID, podID); err != nil {
				return nil, err
			}
		}
	}
	return b.Build(), nil
}

// Render implements Strategy. The returned Result holds a simulation that has
// not ticked yet; the caller drives it and feeds Result.Sync.
func (f Force) Render(topo *topology.Topology, pass Pass) (*Result, error) {
	geometry, err := BuildGraph(topo, pass.Width, pass.Height)
	if err != nil {
		return nil, err
	}

	cfg := force.DefaultConfig(pass.Width, pass.Height)
	if f.Configure != nil {
		f.Configure(&cfg)
	}

	specs := make([]force.NodeSpec, len(geometry.Nodes))
	index := make(map[string]int, len(geometry.Nodes))
	for i, n := range geometry.Nodes {
		specs[i] = force.NodeSpec{ID: n.ID, Radius: n.Kind.Radius() + collisionPadding}
		index[n.ID] = i
	}
	links := make([]force.LinkSpec, len(geometry.Links))
	for i, l := range geometry.Links {
		links[i] = force.LinkSpec{Source: l.Source, Target: l.Target}
	}

	sim, err := force.New(specs, links, cfg)
	if err != nil {
		return nil, err
	}
	positions := sim.Positions()
	for i := range geometry.Nodes {
		geometry.Nodes[i].Position = positions[i]
	}

	s := pass.Surface
	linkGroup := s.Group(surface.Root, "links")
	lines := make([]surface.ElementID, len(geometry.Links))
	for i, l := range geometry.Links {
		lines[i] = s.Line(linkGroup, positions[index[l.Source]], positions[index[l.Target]], "connection-line")
	}

	nodeGroup := s.Group(surface.Root, "nodes")
	groups := make([]surface.ElementID, len(geometry.Nodes))
	for i, n := range geometry.Nodes {
		g := s.Group(nodeGroup, "node-group")
		s.Translate(g, n.Position)
		circle := s.Circle(g, graph.Point{}, n.Kind.Radius(), n.Class)
		s.Text(g, graph.Point{Y: labelBaseline}, graph.Truncate(n.Label, forceLabelMax), "cluster-text")
		if pass.Interaction != nil {
			pass.Interaction.AttachHover(circle, n)
			pass.Interaction.AttachDrag(g, n.ID, sim, cfg.DragAlphaTarget)
		}
		groups[i] = g
	}

	r := &Result{geometry: geometry, sim: sim}
	r.sync = func(positions []graph.Point) {
		if len(positions) != len(geometry.Nodes) {
			return
		}
		for i, l := range geometry.Links {
			s.MoveLine(lines[i], positions[index[l.Source]], positions[index[l.Target]])
		}
		for i := range geometry.Nodes {
			n := &geometry.Nodes[i]
			n.Position = positions[i]
			n.Pinned = nil
			if p, ok := sim.Pinned(n.ID); ok {
				n.Pinned = &p
			}
			s.Translate(groups[i], positions[i])
		}
	}
	return r, nil
}
