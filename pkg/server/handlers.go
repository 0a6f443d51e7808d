package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/api"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/diagram"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/render"
	"github.com/ddl-r-abdulaziz/clustermap/pkg/surface"
)

// Snapshot sources reported to clients.
const (
	SourceCache = "cache"
	SourceFresh = "fresh"
)

// snapshot returns cached data while it is younger than the max age, and
// collects fresh data otherwise or when force is set.
func (s *Server) snapshot(ctx context.Context, force bool) (*cluster.Snapshot, error) {
	if !force && s.cache.Valid() && !s.cache.Stale(s.cfg.CacheMaxAge) {
		if cached := s.cache.Get(); cached != nil {
			out := *cached
			out.Source = SourceCache
			if age, ok := s.cache.Age(); ok {
				out.CacheAge = age.Seconds()
			}
			return &out, nil
		}
	}

	fresh, err := s.interrogator.Collect(ctx)
	if err != nil {
		return nil, err
	}
	out := *fresh
	out.Source = SourceFresh
	out.CacheAge = 0
	return &out, nil
}

func (s *Server) handleClusterData(c *gin.Context) {
	snap, err := s.snapshot(c.Request.Context(), c.Query("force") == "true")
	if err != nil {
		s.fail(c, "getClusterData", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handlePods(c *gin.Context) {
	snap, err := s.snapshot(c.Request.Context(), false)
	if err != nil {
		s.fail(c, "getPods", err)
		return
	}
	pods := snap.Pods
	if pods == nil {
		pods = []cluster.Pod{}
	}
	c.JSON(http.StatusOK, gin.H{"pods": pods, "count": len(pods), "source": snap.Source})
}

func (s *Server) handleDeployments(c *gin.Context) {
	snap, err := s.snapshot(c.Request.Context(), false)
	if err != nil {
		s.fail(c, "getDeployments", err)
		return
	}
	deployments := snap.Deployments
	if deployments == nil {
		deployments = []cluster.Deployment{}
	}
	c.JSON(http.StatusOK, gin.H{"deployments": deployments, "count": len(deployments), "source": snap.Source})
}

func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.interrogator.Stats())
}

func (s *Server) handleRefreshCache(c *gin.Context) {
	if !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, api.StatusResponse{Error: "refresh rate limit exceeded"})
		return
	}
	s.interrogator.ForceUpdate()
	c.JSON(http.StatusOK, api.StatusResponse{Status: "cache refresh triggered"})
}

func (s *Server) handleInvalidateCache(c *gin.Context) {
	s.cache.Invalidate()
	c.JSON(http.StatusOK, api.StatusResponse{Status: "cache invalidated"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.Health{
		Status:              "healthy",
		Timestamp:           s.now().UTC().Format(time.RFC3339),
		CacheValid:          s.cache.Valid(),
		InterrogatorRunning: s.interrogator.Running(),
	})
}

func (s *Server) handleLayout(c *gin.Context) {
	opts, err := s.diagramOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.StatusResponse{Error: err.Error()})
		return
	}
	result, _, err := s.draw(c.Request.Context(), opts)
	if err != nil {
		s.fail(c, "getLayout", err)
		return
	}
	c.Header("X-Render-ID", result.ID.String())
	c.JSON(http.StatusOK, result.Geometry())
}

func (s *Server) handleDiagram(c *gin.Context) {
	opts, err := s.diagramOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.StatusResponse{Error: err.Error()})
		return
	}
	result, page, err := s.draw(c.Request.Context(), opts)
	if err != nil {
		s.fail(c, "getDiagram", err)
		return
	}
	html, err := s.renderer.Render(*page)
	if err != nil {
		s.fail(c, "getDiagram", err)
		return
	}
	c.Header("X-Render-ID", result.ID.String())
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// draw renders the current snapshot onto a fresh surface.
func (s *Server) draw(ctx context.Context, opts diagram.Options) (*diagram.Render, *render.Page, error) {
	snap, err := s.snapshot(ctx, false)
	if err != nil {
		return nil, nil, err
	}

	svg := surface.NewSVG(opts.Width, opts.Height)
	engine := diagram.New(svg, s.log, diagram.WithLocation(s.cfg.Location))
	result, err := engine.RenderClusterDiagram(ctx, snap, opts)
	if err != nil {
		return nil, nil, err
	}

	page := &render.Page{
		Geometry:    result.Geometry(),
		Drawing:     svg,
		Overlays:    svg.Overlays(),
		Source:      snap.Source,
		GeneratedAt: s.now(),
	}
	return result, page, nil
}

// diagramOptions applies the mode, width and height query parameters to the
// configured defaults. Requests are always settled, never animated.
func (s *Server) diagramOptions(c *gin.Context) (diagram.Options, error) {
	opts := s.cfg.Diagram
	opts.Animate = false
	if mode, ok := c.GetQuery("mode"); ok {
		opts.Mode = mode
	}
	for name, dst := range map[string]*float64{"width": &opts.Width, "height": &opts.Height} {
		raw, ok := c.GetQuery(name)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return opts, fmt.Errorf("invalid %s %q", name, raw)
		}
		*dst = v
	}
	return opts, nil
}

func (s *Server) fail(c *gin.Context, operation string, err error) {
	s.log.Error().
		Err(err).
		Str("operation", operation).
		Str("method", c.Request.Method).
		Str("endpoint", c.FullPath()).
		Msg("Request failed")
	c.JSON(http.StatusInternalServerError, api.StatusResponse{Error: err.Error()})
}
