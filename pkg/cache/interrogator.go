package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
)

// Source fetches a fresh snapshot.
type Source interface {
	GetSnapshot(ctx context.Context, namespaces []string) (*cluster.Snapshot, error)
}

// Mirror persists the latest snapshot outside the process.
type Mirror interface {
	Save(ctx context.Context, s *cluster.Snapshot) error
	Load(ctx context.Context) (*cluster.Snapshot, error)
}

// Interrogator periodically collects snapshots into a Cache.
type Interrogator struct {
	source     Source
	cache      *Cache
	mirror     Mirror
	namespaces []string
	interval   time.Duration
	timeout    time.Duration
	log        zerolog.Logger

	collectMu sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}
}

// InterrogatorOption configures an Interrogator.
type InterrogatorOption func(*Interrogator)

// WithMirror sets the external mirror.
func WithMirror(m Mirror) InterrogatorOption {
	return func(i *Interrogator) {
		i.mirror = m
	}
}

// WithNamespaces limits collection to the given namespaces.
func WithNamespaces(namespaces []string) InterrogatorOption {
	return func(i *Interrogator) {
		i.namespaces = namespaces
	}
}

// WithTimeout bounds each collection.
func WithTimeout(d time.Duration) InterrogatorOption {
	return func(i *Interrogator) {
		i.timeout = d
	}
}

// NewInterrogator creates an interrogator collecting every interval.
func NewInterrogator(source Source, c *Cache, interval time.Duration, log zerolog.Logger, opts ...InterrogatorOption) *Interrogator {
	i := &Interrogator{
		source:   source,
		cache:    c,
		interval: interval,
		timeout:  30 * time.Second,
		log:      log,
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Collect fetches a snapshot and stores it in the cache and the mirror.
func (i *Interrogator) Collect(ctx context.Context) (*cluster.Snapshot, error) {
	i.collectMu.Lock()
	defer i.collectMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := time.Now()
	snap, err := i.source.GetSnapshot(ctx, i.namespaces)
	if err != nil {
		cacheRefreshTotal.WithLabelValues("error").Inc()
		i.log.Error().Err(err).Msg("Failed to collect cluster data")
		return nil, fmt.Errorf("failed to collect cluster data: %w", err)
	}
	cacheRefreshTotal.WithLabelValues("success").Inc()
	i.cache.Update(snap)

	if i.mirror != nil {
		if err := i.mirror.Save(ctx, snap); err != nil {
			i.log.Warn().Err(err).Msg("Failed to mirror cluster data")
		}
	}

	i.log.Info().
		Int("pods", snap.PodCount).
		Int("deployments", snap.DeploymentCount).
		Dur("duration", time.Since(start)).
		Msg("Cluster data collection completed")
	return snap, nil
}

// Warm loads the mirrored snapshot into an empty cache.
func (i *Interrogator) Warm(ctx context.Context) error {
	if i.mirror == nil || i.cache.Valid() {
		return nil
	}
	snap, err := i.mirror.Load(ctx)
	if errors.Is(err, ErrMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load mirrored cluster data: %w", err)
	}
	i.cache.Update(snap)
	i.log.Info().Msg("Cache warmed from mirror")
	return nil
}

// Start begins background collection. It collects once immediately.
func (i *Interrogator) Start(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.running {
		i.log.Warn().Msg("Interrogator already running")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	i.running = true
	i.cancel = cancel
	i.done = make(chan struct{})
	go i.run(ctx, i.done)

	i.log.Info().Dur("interval", i.interval).Msg("Interrogator started")
}

func (i *Interrogator) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if err := i.Warm(ctx); err != nil {
		i.log.Warn().Err(err).Msg("Failed to warm cache")
	}
	_, _ = i.Collect(ctx)

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-i.trigger:
		}
		_, _ = i.Collect(ctx)
	}
}

// Stop ends background collection and waits for it to finish.
func (i *Interrogator) Stop() {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return
	}
	i.running = false
	cancel, done := i.cancel, i.done
	i.mu.Unlock()

	cancel()
	<-done
	i.log.Info().Msg("Interrogator stopped")
}

// ForceUpdate requests an immediate collection without waiting for it.
func (i *Interrogator) ForceUpdate() {
	if i.Running() {
		select {
		case i.trigger <- struct{}{}:
		default:
		}
		return
	}
	go func() {
		_, _ = i.Collect(context.Background())
	}()
}

// Running reports whether background collection is active.
func (i *Interrogator) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running
}

// Interval returns the collection interval.
func (i *Interrogator) Interval() time.Duration {
	return i.interval
}

// Stats returns the cache statistics including the interrogator state.
func (i *Interrogator) Stats() Stats {
	s := i.cache.Stats()
	s.InterrogatorRunning = i.Running()
	s.IntervalSeconds = i.interval.Seconds()
	return s
}
