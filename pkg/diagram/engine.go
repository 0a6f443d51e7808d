// Package diagram is the entry point that turns a cluster snapshot into a
// drawn, interactive diagram.
package diagram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/force"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/graph"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/interaction"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/layout"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/surface"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/topology"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600

	// settleLimit bounds synchronous relaxation when not animating.
	settleLimit = 10000
)

// ErrNoSnapshot is returned when there is nothing to render.
var ErrNoSnapshot = errors.New("no cluster snapshot to render")

// Options are read at render time. Mode "hierarchical" selects the grid
// layout, any other value the force layout.
type Options struct {
	Mode    string
	Width   float64
	Height  float64
	Animate bool
}

// Fetcher retrieves a snapshot from the network collaborator.
type Fetcher interface {
	FetchClusterData(ctx context.Context) (*cluster.Snapshot, error)
}

// Render describes one completed render pass.
type Render struct {
	ID       uuid.UUID
	Mode     string
	Topology *topology.Topology
	Result   *layout.Result
}

// Geometry returns the placed geometry of the pass.
func (r *Render) Geometry() *graph.Geometry {
	return r.Result.Geometry()
}

type resizer interface {
	Resize(width, height float64)
}

// Engine owns one drawing surface. Each render discards everything the
// previous render drew, including its simulation.
type Engine struct {
	surface  surface.Surface
	log      zerolog.Logger
	location *time.Location
	force    func(*force.Config)

	mu      sync.Mutex
	current *Render
	stop    func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the time zone used in tooltips.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.location = loc
	}
}

// WithForceConfig adjusts the force simulation parameters.
func WithForceConfig(fn func(*force.Config)) Option {
	return func(e *Engine) {
		e.force = fn
	}
}

// New creates an engine drawing onto s.
func New(s surface.Surface, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		surface:  s,
		log:      log,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RenderClusterDiagram clears the surface and draws snap with the layout
// selected by opts.Mode. With opts.Animate the force simulation keeps running
// in the background until the next render or Stop; otherwise it is settled
// before returning and starts running again when a drag reheats it.
func (e *Engine) RenderClusterDiagram(ctx context.Context, snap *cluster.Snapshot, opts Options) (*Render, error) {
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	e.stopLocked()
	e.surface.Clear()
	if r, ok := e.surface.(resizer); ok {
		r.Resize(opts.Width, opts.Height)
	}

	id := uuid.New()
	log := e.log.With().Str("render_id", id.String()).Str("mode", opts.Mode).Logger()

	topo := topology.Normalize(snap)
	strategy := layout.ForMode(opts.Mode)
	if f, ok := strategy.(layout.Force); ok {
		f.Configure = e.force
		strategy = f
	}

	pass := layout.Pass{
		Surface: e.surface,
		Interaction: interaction.NewController(e.surface,
			interaction.WithLocation(e.location),
			interaction.WithLogger(log),
		),
		Width:  opts.Width,
		Height: opts.Height,
	}
	result, err := strategy.Render(topo, pass)
	if err != nil {
		log.Error().Err(err).Msg("Failed to lay out cluster diagram")
		return nil, fmt.Errorf("failed to lay out %s diagram: %w", strategy.Mode(), err)
	}

	if sim := result.Simulation(); sim != nil {
		if opts.Animate {
			e.stop = e.animate(sim, result, log)
		} else {
			ticks := sim.Settle(settleLimit)
			result.Sync(sim.Positions())
			log.Debug().Int("ticks", ticks).Msg("Force layout settled")
		}
	}

	render := &Render{ID: id, Mode: strategy.Mode(), Topology: topo, Result: result}
	e.current = render
	if sim := result.Simulation(); sim != nil && !opts.Animate {
		sim.OnRestart(func() { e.resume(render, log) })
	}

	duration := time.Since(start)
	renderDuration.WithLabelValues(render.Mode).Observe(duration.Seconds())
	renderTotal.WithLabelValues(render.Mode).Inc()
	log.Info().
		Int("namespaces", len(topo.Namespaces)).
		Int("pods", topo.PodCount()).
		Dur("duration", duration).
		Msg("Rendered cluster diagram")

	return render, nil
}

// animate runs the simulation until the returned stop function is called.
func (e *Engine) animate(sim *force.Simulation, result *layout.Result, log zerolog.Logger) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sim.Run(ctx, result.Sync); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Force simulation stopped")
		}
	}()
	return func() {
		sim.Stop()
		cancel()
		<-done
	}
}

// resume starts the simulation loop of a settled render once a drag reheats
// it. Superseded or stopped renders are left alone.
func (e *Engine) resume(r *Render, log zerolog.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sim := r.Result.Simulation()
	if e.current != r || e.stop != nil || sim.Stopped() {
		return
	}
	e.stop = e.animate(sim, r.Result, log)
	log.Debug().Msg("Force simulation resumed")
}

// FetchAndRender fetches a snapshot and renders it. Nothing is drawn when the
// fetch fails; the previous diagram stays in place.
func (e *Engine) FetchAndRender(ctx context.Context, f Fetcher, opts Options) (*Render, error) {
	snap, err := f.FetchClusterData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cluster data: %w", err)
	}
	return e.RenderClusterDiagram(ctx, snap, opts)
}

// Current returns the most recent render, or nil.
func (e *Engine) Current() *Render {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Stop halts the simulation of the current render, running or settled. The
// drawing stays in place and later drags no longer move it.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	if e.current != nil {
		if sim := e.current.Result.Simulation(); sim != nil {
			sim.Stop()
		}
	}
}
