// Package server exposes the cluster data endpoints, the rendered diagram
// page and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/api"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/cache"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/diagram"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/render"
)

// Routes not shared with the api client.
const (
	PathInvalidateCache = "/api/cache/invalidate"
	PathPods            = "/api/cluster/pods"
	PathDeployments     = "/api/cluster/deployments"
	PathLayout          = "/api/layout"
	PathDiagram         = "/cluster"
	PathMetrics         = "/metrics"
)

const shutdownTimeout = 10 * time.Second

// Config holds the server settings.
type Config struct {
	// CacheMaxAge is how old cached data may be before a request refetches it.
	CacheMaxAge time.Duration
	// Diagram holds the default layout options; requests may override the
	// mode and canvas size.
	Diagram      diagram.Options
	Location     *time.Location
	RefreshLimit rate.Limit
	RefreshBurst int
}

// Server serves cluster data from a cache kept fresh by an interrogator.
type Server struct {
	cfg          Config
	cache        *cache.Cache
	interrogator *cache.Interrogator
	limiter      *rate.Limiter
	renderer     *render.HTMLRenderer
	router       *gin.Engine
	log          zerolog.Logger
	now          func() time.Time
}

// New creates a server and registers its routes.
func New(c *cache.Cache, i *cache.Interrogator, cfg Config, log zerolog.Logger) (*Server, error) {
	renderer, err := render.NewHTMLRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create HTML renderer: %w", err)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RefreshBurst < 1 {
		cfg.RefreshBurst = 1
	}

	s := &Server{
		cfg:          cfg,
		cache:        c,
		interrogator: i,
		limiter:      rate.NewLimiter(cfg.RefreshLimit, cfg.RefreshBurst),
		renderer:     renderer,
		log:          log,
		now:          time.Now,
	}
	s.router = s.setupRouter()
	return s, nil
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.log))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, PathDiagram)
	})
	router.GET(PathDiagram, s.handleDiagram)
	router.GET(PathMetrics, gin.WrapH(promhttp.Handler()))

	router.GET(api.PathClusterData, s.handleClusterData)
	router.GET(api.PathCacheStats, s.handleCacheStats)
	router.POST(api.PathRefreshCache, s.handleRefreshCache)
	router.GET(api.PathHealth, s.handleHealth)

	router.POST(PathInvalidateCache, s.handleInvalidateCache)
	router.GET(PathPods, s.handlePods)
	router.GET(PathDeployments, s.handleDeployments)
	router.GET(PathLayout, s.handleLayout)

	return router
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	s.log.Info().Msg("Server stopped")
	return nil
}

// requestLogger logs each request with its request id.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	}
}
