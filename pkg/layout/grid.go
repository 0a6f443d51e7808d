package layout

import (
	"fmt"
	"math"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/surface"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/topology"
)

const (
	gridMargin       = 20
	bandMaxHeight    = 150
	bandGap          = 20
	bandInset        = 40
	bandCornerRadius = 8
	titleOffsetX     = 20
	titleOffsetY     = 20
	summaryOffsetY   = 35
	podStartX        = 30
	podStartY        = 50
	podRowReserve    = 60
	podWidth         = 80
	podHeight        = 40
	podGutter        = 10
	podCornerRadius  = 4
	podLabelMax      = 12
)

// Grid stacks namespaces as bands and packs pods into rows inside each band.
type Grid struct{}

var _ Strategy = Grid{}

// Mode implements Strategy.
func (Grid) Mode() string { return ModeHierarchical }

// PodsPerRow returns how many pod cells fit in a band, never less than one.
func PodsPerRow(bandWidth float64) int {
	n := int(math.Floor((bandWidth - podRowReserve) / (podWidth + podGutter)))
	return max(n, 1)
}

// BandHeight returns the height of one namespace band.
func BandHeight(innerHeight float64, namespaces int) float64 {
	return max(0, min(bandMaxHeight, innerHeight/float64(max(namespaces, 1))))
}

// Render implements Strategy.
func (Grid) Render(topo *topology.Topology, pass Pass) (*Result, error) {
	innerWidth := pass.Width - 2*gridMargin
	innerHeight := pass.Height - 2*gridMargin
	bandHeight := BandHeight(innerHeight, len(topo.Namespaces))
	bandWidth := max(0, innerWidth-bandInset)
	perRow := PodsPerRow(bandWidth)
	origin := graph.Point{X: gridMargin, Y: gridMargin}

	b := graph.NewBuilder(ModeHierarchical, pass.Width, pass.Height)
	s := pass.Surface

	root := s.Group(surface.Root, "grid-layout")
	s.Translate(root, origin)

	for nsIndex, ns := range topo.Namespaces {
		bandY := float64(nsIndex) * (bandHeight + bandGap)

		nsNode := graph.Node{
			ID:       b.UniqueID(graph.NamespaceID(ns.Name)),
			Label:    ns.Name,
			Kind:     graph.KindNamespace,
			Position: origin.Add(graph.Point{Y: bandY}),
			Width:    bandWidth,
			Height:   bandHeight,
			Class:    graph.NodeClass(graph.KindNamespace),
			Source:   graph.Source{Namespace: ns},
		}
		if err := b.AddNode(nsNode); err != nil {
			return nil, err
		}

		group := s.Group(root, "namespace-group")
		s.Rect(group, graph.Point{Y: bandY}, bandWidth, bandHeight, bandCornerRadius, nsNode.Class)
		s.Text(group, graph.Point{X: titleOffsetX, Y: bandY + titleOffsetY}, "Namespace: "+ns.Name, "cluster-text title")
		s.Text(group, graph.Point{X: titleOffsetX, Y: bandY + summaryOffsetY},
			fmt.Sprintf("Deployments: %d, Pods: %d", len(ns.Deployments), len(ns.Pods)), "cluster-text subtitle")

		for podIndex := range ns.Pods {
			pod := &ns.Pods[podIndex]
			row, col := podIndex/perRow, podIndex%perRow
			at := graph.Point{
				X: podStartX + float64(col)*(podWidth+podGutter),
				Y: bandY + podStartY + float64(row)*(podHeight+podGutter),
			}

			podNode := graph.Node{
				ID:       b.UniqueID(graph.PodID(ns.Name, pod.Name)),
				Label:    pod.Name,
				Kind:     graph.KindPod,
				Position: origin.Add(at),
				Width:    podWidth,
				Height:   podHeight,
				Class:    graph.NodeClass(graph.KindPod, pod.Status),
				Source:   graph.Source{Pod: pod},
			}
			if err := b.AddNode(podNode); err != nil {
				return nil, err
			}

			podGroup := s.Group(group, "pod-group")
			cell := s.Rect(podGroup, at, podWidth, podHeight, podCornerRadius, podNode.Class)
			if pass.Interaction != nil {
				pass.Interaction.AttachHover(cell, podNode)
			}
			center := graph.Point{X: at.X + podWidth/2, Y: at.Y + podHeight/2}
			s.Text(podGroup, graph.Point{X: center.X, Y: center.Y - 5}, graph.Truncate(pod.Name, podLabelMax), "cluster-text")
			s.Text(podGroup, graph.Point{X: center.X, Y: center.Y + 8}, pod.Status, "cluster-text subtitle")
		}
	}

	return &Result{geometry: b.Build()}, nil
}
