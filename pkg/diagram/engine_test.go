package diagram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/force"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/surface"
)

func sampleSnapshot() *cluster.Snapshot {
	return &cluster.Snapshot{
		Pods: []cluster.Pod{
			{Name: "web-1", Namespace: "shop", Status: "Running", CreationTimestamp: "2024-01-01T00:00:00Z"},
			{Name: "web-2", Namespace: "shop", Status: "Pending"},
			{Name: "db-0", Namespace: "data", Status: "Running"},
		},
		Deployments: []cluster.Deployment{{Name: "web", Namespace: "shop"}},
		PodCount:    3,
	}
}

func TestRenderSelectsLayoutByMode(t *testing.T) {
	tests := map[string]struct {
		mode     string
		expected string
		sim      bool
	}{
		"hierarchical":  {mode: "hierarchical", expected: "hierarchical"},
		"force":         {mode: "force", expected: "force", sim: true},
		"anything else": {mode: "radial", expected: "force", sim: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := New(surface.NewSVG(0, 0), zerolog.Nop())
			r, err := e.RenderClusterDiagram(context.Background(), sampleSnapshot(), Options{Mode: tt.mode})
			require.NoError(t, err)

			assert.Equal(t, tt.expected, r.Mode)
			assert.Equal(t, tt.expected, r.Geometry().Mode)
			assert.Equal(t, tt.sim, r.Result.Simulation() != nil)
			assert.NotEqual(t, r.ID.String(), "")
			if tt.sim {
				assert.True(t, r.Result.Simulation().Settled())
			}
		})
	}
}

func TestRenderTwiceDoesNotDuplicate(t *testing.T) {
	for _, mode := range []string{"hierarchical", "force"} {
		t.Run(mode, func(t *testing.T) {
			s := surface.NewSVG(800, 600)
			e := New(s, zerolog.Nop(), WithLocation(time.UTC))
			opts := Options{Mode: mode, Width: 800, Height: 600}

			first, err := e.RenderClusterDiagram(context.Background(), sampleSnapshot(), opts)
			require.NoError(t, err)
			count := len(s.Elements())
			stale := s.ByClass("cluster-node pod running")

			// leave a tooltip on screen from the first pass
			hoverFirstPod(t, s, mode)
			require.Len(t, s.Overlays(), 1)

			second, err := e.RenderClusterDiagram(context.Background(), sampleSnapshot(), opts)
			require.NoError(t, err)

			assert.Len(t, s.Elements(), count)
			assert.Empty(t, s.Overlays())
			assert.Len(t, second.Geometry().Nodes, len(first.Geometry().Nodes))
			assert.Same(t, second, e.Current())

			// handlers from the discarded pass never fire
			for _, el := range stale {
				assert.False(t, s.Dispatch(surface.Event{Type: surface.EventHoverEnter, Element: el.ID}))
			}
			hoverFirstPod(t, s, mode)
			assert.LessOrEqual(t, len(s.Overlays()), 1)
		})
	}
}

func hoverFirstPod(t *testing.T, s *surface.SVG, mode string) {
	t.Helper()
	class := "cluster-node pod"
	if mode == "hierarchical" {
		class = "cluster-node pod running"
	}
	pods := s.ByClass(class)
	require.NotEmpty(t, pods)
	require.True(t, s.Dispatch(surface.Event{Type: surface.EventHoverEnter, Element: pods[0].ID}))
}

func TestRenderEmptySnapshot(t *testing.T) {
	for _, mode := range []string{"hierarchical", "force"} {
		t.Run(mode, func(t *testing.T) {
			e := New(surface.NewSVG(800, 600), zerolog.Nop())
			r, err := e.RenderClusterDiagram(context.Background(), &cluster.Snapshot{}, Options{Mode: mode})
			require.NoError(t, err)
			assert.Empty(t, r.Topology.Namespaces)
		})
	}
}

func TestRenderRejectsNilSnapshot(t *testing.T) {
	e := New(surface.NewSVG(800, 600), zerolog.Nop())
	_, err := e.RenderClusterDiagram(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Nil(t, e.Current())
}

func TestRenderHonoursContext(t *testing.T) {
	e := New(surface.NewSVG(800, 600), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.RenderClusterDiagram(ctx, sampleSnapshot(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderUsesDefaultCanvas(t *testing.T) {
	s := surface.NewSVG(0, 0)
	e := New(s, zerolog.Nop())
	r, err := e.RenderClusterDiagram(context.Background(), sampleSnapshot(), Options{Mode: "hierarchical"})
	require.NoError(t, err)

	w, h := s.Size()
	assert.Equal(t, float64(DefaultWidth), w)
	assert.Equal(t, float64(DefaultHeight), h)
	assert.Equal(t, float64(DefaultWidth), r.Geometry().Width)
}

func TestAnimatedRenderIsStoppedByNextRender(t *testing.T) {
	s := surface.NewSVG(800, 600)
	e := New(s, zerolog.Nop(), WithForceConfig(func(c *force.Config) {
		c.FrameInterval = time.Millisecond
	}))

	first, err := e.RenderClusterDiagram(context.Background(), sampleSnapshot(), Options{Mode: "force", Animate: true})
	require.NoError(t, err)
	sim := first.Result.Simulation()
	require.NotNil(t, sim)

	start := first.Geometry().Nodes[0].Position
	require.Eventually(t, func() bool {
		return first.Geometry().Nodes[0].Position != start
	}, 5*time.Second, 5*time.Millisecond, "animation updates geometry")

	_, err = e.RenderClusterDiagram(context.Background(), sampleSnapshot(), Options{Mode: "hierarchical"})
	require.NoError(t, err)
	assert.True(t, sim.Stopped())

	frozen := first.Geometry()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, first.Geometry(), "superseded simulation no longer mutates state")
}

type fetcherFunc func(ctx context.Context) (*cluster.Snapshot, error)

func (f fetcherFunc) FetchClusterData(ctx context.Context) (*cluster.Snapshot, error) {
	return f(ctx)
}

func TestFetchAndRender(t *testing.T) {
	s := surface.NewSVG(800, 600)
	e := New(s, zerolog.Nop())
	opts := Options{Mode: "hierarchical"}

	ok := fetcherFunc(func(context.Context) (*cluster.Snapshot, error) { return sampleSnapshot(), nil })
	r, err := e.FetchAndRender(context.Background(), ok, opts)
	require.NoError(t, err)
	_, found := r.Geometry().Node(graph.PodID("shop", "web-1"))
	assert.True(t, found)
	drawn := s.Elements()

	boom := errors.New("503 Service Unavailable")
	failing := fetcherFunc(func(context.Context) (*cluster.Snapshot, error) { return nil, boom })
	_, err = e.FetchAndRender(context.Background(), failing, opts)
	assert.ErrorIs(t, err, boom)
	assert.Same(t, r, e.Current())
	assert.Equal(t, drawn, s.Elements(), "a failed fetch leaves the previous diagram untouched")
}

// nodeGroup returns the drawn group of node id in a force render.
func nodeGroup(t *testing.T, s *surface.SVG, r *Render, id string) surface.ElementID {
	t.Helper()
	groups := s.ByClass("node-group")
	for i, n := range r.Geometry().Nodes {
		if n.ID == id {
			require.Less(t, i, len(groups))
			return groups[i].ID
		}
	}
	t.Fatalf("node %q not drawn", id)
	return 0
}

func TestDragAfterSettle(t *testing.T) {
	tests := map[string]struct {
		animate bool
	}{
		"settled up front": {animate: false},
		"animated":         {animate: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := surface.NewSVG(800, 600)
			e := New(s, zerolog.Nop(), WithForceConfig(func(c *force.Config) {
				c.FrameInterval = time.Millisecond
			}))
			t.Cleanup(e.Stop)

			r, err := e.RenderClusterDiagram(context.Background(), sampleSnapshot(), Options{Mode: "force", Animate: tt.animate})
			require.NoError(t, err)
			sim := r.Result.Simulation()
			require.Eventually(t, sim.Settled, 10*time.Second, 5*time.Millisecond)

			id := graph.NamespaceID("shop")
			group := nodeGroup(t, s, r, id)
			target := graph.Point{X: 50, Y: 50}

			require.True(t, s.Dispatch(surface.Event{Type: surface.EventDragStart, Element: group, Pointer: 1}))
			require.True(t, s.Dispatch(surface.Event{Type: surface.EventDragMove, Element: group, Pointer: 1, Pos: target}))

			require.Eventually(t, func() bool {
				n, ok := r.Geometry().Node(id)
				el, drawn := s.Element(group)
				return ok && drawn && n.Position == target && n.Pinned != nil && el.Offset == target
			}, 10*time.Second, 5*time.Millisecond, "dragged node follows the pointer")

			require.True(t, s.Dispatch(surface.Event{Type: surface.EventDragEnd, Element: group, Pointer: 1}))
			require.Eventually(t, func() bool {
				n, _ := r.Geometry().Node(id)
				return n.Pinned == nil && sim.Settled()
			}, 10*time.Second, 5*time.Millisecond, "released node settles again")
		})
	}
}

func TestDragOnSupersededRenderDoesNotResume(t *testing.T) {
	s := surface.NewSVG(800, 600)
	e := New(s, zerolog.Nop())
	t.Cleanup(e.Stop)

	first, err := e.RenderClusterDiagram(context.Background(), sampleSnapshot(), Options{Mode: "force"})
	require.NoError(t, err)
	_, err = e.RenderClusterDiagram(context.Background(), sampleSnapshot(), Options{Mode: "force"})
	require.NoError(t, err)

	sim := first.Result.Simulation()
	assert.True(t, sim.Stopped())
	frozen := first.Geometry()
	sim.Restart()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, first.Geometry())
}
