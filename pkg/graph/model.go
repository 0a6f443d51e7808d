// Package graph provides the placed geometry produced by the layout strategies.
package graph

import (
	"fmt"
	"strings"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/topology"
)

// Kind is the kind of a layout node.
type Kind int

const (
	KindCluster Kind = iota
	KindNamespace
	KindDeployment
	KindPod
)

const defaultRadius = 15

var kindNames = [...]string{
	KindCluster:    "cluster",
	KindNamespace:  "namespace",
	KindDeployment: "deployment",
	KindPod:        "pod",
}

var kindRadius = [...]float64{
	KindCluster:    40,
	KindNamespace:  30,
	KindDeployment: 25,
	KindPod:        20,
}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < len(kindNames)
}

// String returns the lower-case kind name used in CSS classes.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Radius returns the drawn circle radius for the kind.
func (k Kind) Radius() float64 {
	if !k.valid() {
		return defaultRadius
	}
	return kindRadius[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown node kind %q", string(text))
}

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Source is the display data behind a node. It is never mutated by layout.
type Source struct {
	Pod       *cluster.Pod
	Namespace *topology.NamespaceGroup
}

// Node is a placed node.
type Node struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Kind     Kind   `json:"kind"`
	Position Point  `json:"position"`
	// Pinned is set only while a drag holds the node.
	Pinned *Point `json:"pinned,omitempty"`
	// Width and Height are set for rectangular nodes (grid bands and cells).
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Class  string  `json:"class"`

	Source Source `json:"-"`
}

// Link connects two nodes by ID.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Geometry is the output of one layout pass.
type Geometry struct {
	Mode   string `json:"mode"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Nodes  []Node `json:"nodes"`
	Links  []Link `json:"links"`
}

// Node returns the node with the given ID.
func (g *Geometry) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// ClusterID is the ID of the synthetic root node.
const ClusterID = "cluster"

// NamespaceID generates a unique ID for a namespace node.
func NamespaceID(namespace string) string {
	return "ns-" + namespace
}

// PodID generates a unique ID for a pod node.
func PodID(namespace, name string) string {
	return "pod-" + namespace + "/" + name
}

// Truncate shortens s to max runes, appending "..." when it was cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// NodeClass returns the CSS class for a node of the given kind. Extra
// modifiers (for example a pod status) are lower-cased and appended.
func NodeClass(k Kind, modifiers ...string) string {
	parts := []string{"cluster-node", k.String()}
	for _, m := range modifiers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			parts = append(parts, m)
		}
	}
	return strings.Join(parts, " ")
}
