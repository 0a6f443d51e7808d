package graph

import "fmt"

// Builder constructs a Geometry and keeps every link pointing at an existing node.
type Builder struct {
	geometry  *Geometry
	nodeIndex map[string]int // nodeID -> index in geometry.Nodes
}

// NewBuilder creates a new geometry builder.
func NewBuilder(mode string, width, height float64) *Builder {
	return &Builder{
		geometry: &Geometry{
			Mode:   mode,
			Width:  width,
			Height: height,
			Nodes:  make([]Node, 0),
			Links:  make([]Link, 0),
		},
		nodeIndex: make(map[string]int),
	}
}

// UniqueID returns id, or id with a numeric suffix if id is already taken.
func (b *Builder) UniqueID(id string) string {
	if _, taken := b.nodeIndex[id]; !taken {
		return id
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s#%d", id, i)
		if _, taken := b.nodeIndex[candidate]; !taken {
			return candidate
		}
	}
}

// AddNode appends a node. Node IDs must be unique.
func (b *Builder) AddNode(n Node) error {
	if _, exists := b.nodeIndex[n.ID]; exists {
		return fmt.Errorf("duplicate node id %q", n.ID)
	}
	b.nodeIndex[n.ID] = len(b.geometry.Nodes)
	b.geometry.Nodes = append(b.geometry.Nodes, n)
	return nil
}

// AddLink appends a link between two existing nodes.
func (b *Builder) AddLink(source, target string) error {
	if _, ok := b.nodeIndex[source]; !ok {
		return fmt.Errorf("link source %q does not exist", source)
	}
	if _, ok := b.nodeIndex[target]; !ok {
		return fmt.Errorf("link target %q does not exist", target)
	}
	b.geometry.Links = append(b.geometry.Links, Link{Source: source, Target: target})
	return nil
}

// Index returns the position of a node in the geometry.
func (b *Builder) Index(id string) (int, bool) {
	i, ok := b.nodeIndex[id]
	return i, ok
}

// Build returns the built geometry.
func (b *Builder) Build() *Geometry {
	return b.geometry
}
