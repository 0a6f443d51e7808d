package layout

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/interaction"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/surface"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/topology"
)

func snapshotWith(namespaces map[string]int) *cluster.Snapshot {
	snap := &cluster.Snapshot{}
	for ns := 0; ns < len(namespaces); ns++ {
		name := fmt.Sprintf("ns%d", ns)
		for i := 0; i < namespaces[name]; i++ {
			snap.Pods = append(snap.Pods, cluster.Pod{
				Name:      fmt.Sprintf("%s-pod-%d", name, i),
				Namespace: name,
				Status:    "Running",
			})
		}
		snap.Deployments = append(snap.Deployments, cluster.Deployment{Name: name + "-deploy", Namespace: name})
	}
	return snap
}

func render(t *testing.T, strategy Strategy, snap *cluster.Snapshot, width, height float64) (*Result, *surface.SVG) {
	t.Helper()
	s := surface.NewSVG(width, height)
	res, err := strategy.Render(topology.Normalize(snap), Pass{
		Surface:     s,
		Interaction: interaction.NewController(s),
		Width:       width,
		Height:      height,
	})
	require.NoError(t, err)
	return res, s
}

func TestPodsPerRow(t *testing.T) {
	tests := map[string]struct {
		bandWidth float64
		expected  int
	}{
		"default canvas": {bandWidth: 720, expected: 7},
		"exact fit":      {bandWidth: 240, expected: 2},
		"one cell":       {bandWidth: 150, expected: 1},
		"narrower":       {bandWidth: 100, expected: 1},
		"zero":           {bandWidth: 0, expected: 1},
		"negative":       {bandWidth: -40, expected: 1},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PodsPerRow(tt.bandWidth))
		})
	}
}

func TestBandHeight(t *testing.T) {
	assert.Equal(t, 150.0, BandHeight(560, 0))
	assert.Equal(t, 150.0, BandHeight(560, 2))
	assert.Equal(t, 112.0, BandHeight(560, 5))
	assert.Equal(t, 0.0, BandHeight(-10, 1))
}

func TestGridSinglePodScenario(t *testing.T) {
	snap := &cluster.Snapshot{
		Pods:     []cluster.Pod{{Name: "a", Namespace: "ns1", Status: "Running"}},
		PodCount: 1,
	}
	res, s := render(t, Grid{}, snap, 800, 600)

	bands := s.ByClass("cluster-node namespace")
	require.Len(t, bands, 1)
	titles := s.ByClass("cluster-text title")
	require.Len(t, titles, 1)
	assert.Equal(t, "Namespace: ns1", titles[0].Content)
	summaries := s.ByClass("cluster-text subtitle")
	require.Len(t, summaries, 2)
	assert.Equal(t, "Deployments: 0, Pods: 1", summaries[0].Content)
	assert.Equal(t, "Running", summaries[1].Content)

	cells := s.ByClass("cluster-node pod running")
	require.Len(t, cells, 1)
	labels := s.ByClass("cluster-text")
	require.Len(t, labels, 1)
	assert.Equal(t, "a", labels[0].Content)

	g := res.Geometry()
	assert.Equal(t, ModeHierarchical, g.Mode)
	node, ok := g.Node(graph.PodID("ns1", "a"))
	require.True(t, ok)
	assert.Equal(t, graph.Point{X: 50, Y: 70}, node.Position)
	assert.Nil(t, res.Simulation())
}

func TestGridCellsDoNotOverlap(t *testing.T) {
	tests := map[string]struct {
		namespaces map[string]int
		width      float64
		height     float64
	}{
		"default canvas": {namespaces: map[string]int{"ns0": 25, "ns1": 3, "ns2": 0}, width: 800, height: 600},
		"narrow band":    {namespaces: map[string]int{"ns0": 4}, width: 100, height: 600},
		"many bands":     {namespaces: map[string]int{"ns0": 10, "ns1": 10, "ns2": 10, "ns3": 10, "ns4": 10, "ns5": 10}, width: 1024, height: 400},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			res, _ := render(t, Grid{}, snapshotWith(tt.namespaces), tt.width, tt.height)
			g := res.Geometry()

			var bands []graph.Node
			cells := map[string][]graph.Node{}
			for _, n := range g.Nodes {
				switch n.Kind {
				case graph.KindNamespace:
					bands = append(bands, n)
				case graph.KindPod:
					cells[n.Source.Pod.Namespace] = append(cells[n.Source.Pod.Namespace], n)
				}
			}

			for i := 1; i < len(bands); i++ {
				prev := bands[i-1]
				assert.LessOrEqual(t, prev.Position.Y+prev.Height, bands[i].Position.Y, "bands %d and %d overlap", i-1, i)
			}

			for i, band := range bands {
				pods := cells[band.Label]
				for a := range pods {
					for b := a + 1; b < len(pods); b++ {
						assert.False(t, overlaps(pods[a], pods[b]), "%s overlaps %s", pods[a].ID, pods[b].ID)
					}
					if PodsPerRow(band.Width) > 1 {
						assert.LessOrEqual(t, pods[a].Position.X+pods[a].Width, band.Position.X+band.Width, "band %d overflows", i)
					}
				}
			}
		})
	}
}

func overlaps(a, b graph.Node) bool {
	return a.Position.X < b.Position.X+b.Width && b.Position.X < a.Position.X+a.Width &&
		a.Position.Y < b.Position.Y+b.Height && b.Position.Y < a.Position.Y+a.Height
}

func TestGridIsDeterministic(t *testing.T) {
	snap := snapshotWith(map[string]int{"ns0": 9, "ns1": 2})

	svg := func() string {
		_, s := render(t, Grid{}, snap, 800, 600)
		var b strings.Builder
		_, err := s.WriteTo(&b)
		require.NoError(t, err)
		return b.String()
	}
	geometry := func() *graph.Geometry {
		res, _ := render(t, Grid{}, snap, 800, 600)
		return res.Geometry()
	}

	assert.Equal(t, svg(), svg())
	assert.Equal(t, geometry(), geometry())
}

func TestGridEmpty(t *testing.T) {
	res, s := render(t, Grid{}, &cluster.Snapshot{}, 800, 600)
	assert.Empty(t, res.Geometry().Nodes)
	elements := s.Elements()
	require.Len(t, elements, 1, "only the layout root group")
}

func TestGridStatusClassAndTruncation(t *testing.T) {
	snap := &cluster.Snapshot{Pods: []cluster.Pod{
		{Name: "a-very-long-pod-name", Namespace: "ns", Status: "CrashLoopBackOff"},
		{Name: "b", Namespace: "ns", Status: ""},
	}}
	_, s := render(t, Grid{}, snap, 800, 600)

	assert.Len(t, s.ByClass("cluster-node pod crashloopbackoff"), 1)
	assert.Len(t, s.ByClass("cluster-node pod"), 1)
	labels := s.ByClass("cluster-text")
	require.Len(t, labels, 2)
	assert.Equal(t, "a-very-long-...", labels[0].Content)
}

func TestGridPodHoverShowsTooltip(t *testing.T) {
	snap := &cluster.Snapshot{Pods: []cluster.Pod{{Name: "a", Namespace: "ns", Status: "Pending"}}}
	_, s := render(t, Grid{}, snap, 800, 600)

	cells := s.ByClass("cluster-node pod pending")
	require.Len(t, cells, 1)
	require.True(t, s.Dispatch(surface.Event{Type: surface.EventHoverEnter, Element: cells[0].ID}))

	overlays := s.Overlays()
	require.Len(t, overlays, 1)
	assert.Contains(t, overlays[0].Content, "Status: Pending")
	assert.Contains(t, overlays[0].Content, "Created: -")
}
