package ors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
	"github.com/couchcryptid/trip-planner-service/internal/observability"
	"golang.org/x/time/rate"
)

const providerName = "ors"

// Client implements domain.Provider using the OpenRouteService (Pelias)
// structured search endpoint. It honours the country filter and focus-point
// bias and returns up to size ranked candidates.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	size       int
	limiter    *rate.Limiter // nil means unlimited
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string
	Size    int
	Timeout time.Duration
	RPS     float64 // <= 0 disables client-side rate limiting
}

// NewClient creates an OpenRouteService geocoding client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		apiKey: opts.APIKey,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		baseURL: opts.BaseURL,
		size:    opts.Size,
		metrics: metrics,
		logger:  logger,
	}
	if c.size <= 0 {
		c.size = 5
	}
	if opts.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return c
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Search runs a structured query. Candidates keep the provider's order.
func (c *Client) Search(ctx context.Context, q domain.ProviderQuery) ([]domain.Candidate, error) {
	params := url.Values{
		"api_key": {c.apiKey},
		"text":    {q.Text},
		"size":    {strconv.Itoa(c.size)},
	}
	if q.Country != "" {
		params.Set("boundary.country", q.Country)
	}
	if q.Focus.Found {
		params.Set("focus.point.lat", strconv.FormatFloat(q.Focus.Coordinate.Lat, 'f', -1, 64))
		params.Set("focus.point.lon", strconv.FormatFloat(q.Focus.Coordinate.Lng, 'f', -1, 64))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.metrics.GeocodeRequests.WithLabelValues(providerName, "error").Inc()
			return nil, fmt.Errorf("%w: ors rate limit wait: %v", domain.ErrProviderUnavailable, err)
		}
	}

	start := time.Now()
	candidates, err := c.doRequest(ctx, c.baseURL+"/geocode/search?"+params.Encode())
	c.metrics.GeocodeAPIDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(providerName, "error").Inc()
		return nil, err
	case len(candidates) == 0:
		c.metrics.GeocodeRequests.WithLabelValues(providerName, "empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues(providerName, "success").Inc()
	}
	return candidates, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ors request: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: ors API error: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, body)
	}

	var orsResp response
	if err := json.NewDecoder(resp.Body).Decode(&orsResp); err != nil {
		return nil, fmt.Errorf("%w: decode ors response: %v", domain.ErrProviderUnavailable, err)
	}

	candidates := make([]domain.Candidate, 0, len(orsResp.Features))
	for _, f := range orsResp.Features {
		// GeoJSON order is [lon, lat].
		if len(f.Geometry.Coordinates) < 2 {
			c.logger.Debug("ors feature without coordinates", "label", f.Properties.Label)
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Coordinate: domain.Coordinate{
				Lat: f.Geometry.Coordinates[1],
				Lng: f.Geometry.Coordinates[0],
			},
			Rank:  len(candidates),
			Label: f.Properties.Label,
		})
	}
	return candidates, nil
}

// OpenRouteService API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
	Properties struct {
		Label string `json:"label"`
	} `json:"properties"`
}
