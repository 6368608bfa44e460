// Package gee provides a client for the geospatial compute backend that
// performs pixel-level reduction of indicator layers over plot geometries.
package gee

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/herrtunante/whisp/internal/model"
	"github.com/herrtunante/whisp/internal/resilience"
)

// Client defines the compute backend operations the engine depends on.
type Client interface {
	// ReduceRegions aggregates every requested layer over every plot
	// geometry and returns one scalar (or null) per (plot, layer) pair.
	// Failures surface as a single error, never partial results.
	ReduceRegions(ctx context.Context, req ReduceRequest) (*ReduceResponse, error)
	// DescribeLayer fetches metadata for a layer asset. Used by the
	// combiner's optional structural check; slow and network-bound.
	DescribeLayer(ctx context.Context, asset string) (*LayerInfo, error)
	// Health reports whether the backend is initialized and reachable.
	Health(ctx context.Context) error
}

// LayerSpec identifies one layer and the reduction to apply.
type LayerSpec struct {
	ID          string `json:"id"`
	Asset       string `json:"asset"`
	Band        string `json:"band,omitempty"`
	Aggregation string `json:"aggregation"`
}

// PlotGeometry carries one plot geometry to the backend.
type PlotGeometry struct {
	ID       string          `json:"id"`
	Geometry json.RawMessage `json:"geometry"`
}

// ReduceRequest asks the backend to reduce layers over plots.
type ReduceRequest struct {
	Plots  []PlotGeometry `json:"plots"`
	Layers []LayerSpec    `json:"layers"`
}

// PlotResult holds the reduced values for one plot, keyed by layer id.
// A missing layer key or a null value both mean "no data"; the backend
// never substitutes sentinel numbers.
type PlotResult struct {
	PlotID string                 `json:"plot_id"`
	Values map[string]model.Value `json:"values"`
}

// ReduceResponse is the backend's complete raw-value matrix.
type ReduceResponse struct {
	Results []PlotResult `json:"results"`
}

// LayerInfo describes a backend asset.
type LayerInfo struct {
	Asset string   `json:"asset"`
	Type  string   `json:"type"`
	Bands []string `json:"bands"`
}

// HasBand reports whether the asset exposes the named band. An empty
// band name matches any asset with at least one band.
func (li *LayerInfo) HasBand(band string) bool {
	if band == "" {
		return len(li.Bands) > 0
	}
	for _, b := range li.Bands {
		if b == band {
			return true
		}
	}
	return false
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithRetryConfig overrides the retry policy for transient failures.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) { c.retry = cfg }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a compute backend client.
func NewClient(apiKey, baseURL string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type httpResult struct {
	body   []byte
	status int
}

// doJSON executes a JSON request with rate limiting and exponential backoff
// retries on transient failures. Returns the response body and status code;
// non-transient HTTP errors are left to the caller to interpret.
func (c *httpClient) doJSON(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, 0, eris.Wrap(err, "gee: marshal request")
		}
	}

	retry := c.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("gee", method+" "+path)
	}

	res, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (httpResult, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return httpResult{}, eris.Wrap(err, "gee: rate limit wait")
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return httpResult{}, eris.Wrap(err, "gee: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return httpResult{}, err
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return httpResult{}, eris.Wrap(readErr, "gee: read response body")
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return httpResult{}, resilience.NewTransientError(
				eris.Errorf("gee: status %d: %s", resp.StatusCode, string(respBody)),
				resp.StatusCode,
			)
		}

		return httpResult{body: respBody, status: resp.StatusCode}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return res.body, res.status, nil
}

func (c *httpClient) ReduceRegions(ctx context.Context, req ReduceRequest) (*ReduceResponse, error) {
	body, status, err := c.doJSON(ctx, http.MethodPost, "/v1/reduce", req)
	if err != nil {
		return nil, eris.Wrap(err, "gee: reduce regions")
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("gee: reduce regions: unexpected status %d: %s", status, string(body))
	}

	var out ReduceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "gee: decode reduce response")
	}
	return &out, nil
}

func (c *httpClient) DescribeLayer(ctx context.Context, asset string) (*LayerInfo, error) {
	body, status, err := c.doJSON(ctx, http.MethodGet, "/v1/assets/"+asset, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gee: describe layer")
	}
	if status == http.StatusNotFound {
		return nil, eris.Errorf("gee: asset not found: %s", asset)
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("gee: describe layer: unexpected status %d: %s", status, string(body))
	}

	var info LayerInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, eris.Wrap(err, "gee: decode layer info")
	}
	return &info, nil
}

func (c *httpClient) Health(ctx context.Context) error {
	body, status, err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil)
	if err != nil {
		return eris.Wrap(err, "gee: health")
	}
	if status != http.StatusOK {
		return eris.Errorf("gee: health: status %d: %s", status, string(body))
	}
	return nil
}
