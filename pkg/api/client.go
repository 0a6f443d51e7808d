package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clustermap_api_requests_total",
		Help: "Total number of cluster data API calls by operation and outcome",
	},
	[]string{"operation", "status"},
)

// HTTPError is returned for non-success responses.
type HTTPError struct {
	Operation  string
	Endpoint   string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Operation, e.Endpoint, e.StatusCode, e.Status)
}

// Client calls the cluster data endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchClusterData fetches the cluster snapshot.
func (c *Client) FetchClusterData(ctx context.Context) (*cluster.Snapshot, error) {
	var s cluster.Snapshot
	if err := c.do(ctx, "getClusterData", http.MethodGet, PathClusterData, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FetchCacheStats fetches the cache statistics.
func (c *Client) FetchCacheStats(ctx context.Context) (*CacheStats, error) {
	var s CacheStats
	if err := c.do(ctx, "getCacheStats", http.MethodGet, PathCacheStats, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// RefreshCache triggers a cache refresh. A nil body sends {}.
func (c *Client) RefreshCache(ctx context.Context, body any) (*StatusResponse, error) {
	if body == nil {
		body = struct{}{}
	}
	var s StatusResponse
	if err := c.do(ctx, "refreshCache", http.MethodPost, PathRefreshCache, body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Health probes the server.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, "healthCheck", http.MethodGet, PathHealth, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) do(ctx context.Context, operation, method, endpoint string, body, out any) error {
	log := c.log.With().
		Str("operation", operation).
		Str("method", method).
		Str("endpoint", endpoint).
		Logger()

	err := c.roundTrip(ctx, operation, method, endpoint, body, out)
	if err != nil {
		requestsTotal.WithLabelValues(operation, "error").Inc()
		log.Error().Err(err).Msg("API request failed")
		return err
	}
	requestsTotal.WithLabelValues(operation, "success").Inc()
	return nil
}

func (c *Client) roundTrip(ctx context.Context, operation, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: failed to encode request: %w", operation, endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", operation, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", operation, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &HTTPError{
			Operation:  operation,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", operation, endpoint, err)
	}
	return nil
}

// statusText returns the reason phrase of a response.
func statusText(resp *http.Response) string {
	if text, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
