// Package api is the client for the cluster data endpoints consumed by the
// diagram, along with the response bodies shared with the server.
package api

import (
	"github.com/ddl-r-abdulaziz/clustermap/pkg/cache"
)

// Endpoint paths.
const (
	PathClusterData  = "/api/cluster-data"
	PathCacheStats   = "/api/cache-stats"
	PathRefreshCache = "/api/refresh-cache"
	PathHealth       = "/api/health"
)

// CacheStats is the body of the cache statistics endpoint.
type CacheStats = cache.Stats

// StatusResponse is the body of action endpoints.
type StatusResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Health is the body of the health endpoint.
type Health struct {
	Status              string `json:"status"`
	Timestamp           string `json:"timestamp"`
	CacheValid          bool   `json:"cacheValid"`
	InterrogatorRunning bool   `json:"interrogatorRunning"`
}
