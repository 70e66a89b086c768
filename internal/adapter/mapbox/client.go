package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
	"github.com/couchcryptid/trip-planner-service/internal/observability"
)

const providerName = "mapbox"

// Client implements domain.Provider as a free-text forward lookup against
// the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics: metrics,
		logger:  logger,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Search forward-geocodes q.Text. Country and focus are ignored; at most one
// candidate is returned.
func (c *Client) Search(ctx context.Context, q domain.ProviderQuery) ([]domain.Candidate, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(q.Text))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
	}

	start := time.Now()
	candidates, err := c.doRequest(ctx, u+"?"+params.Encode())
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

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: mapbox request: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: mapbox API error: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, fmt.Errorf("%w: decode mapbox response: %v", domain.ErrProviderUnavailable, err)
	}

	if len(mapboxResp.Features) == 0 {
		return nil, nil
	}

	f := mapboxResp.Features[0]
	if len(f.Center) != 2 {
		c.logger.Debug("mapbox feature without center", "place_name", f.PlaceName)
		return nil, nil
	}
	return []domain.Candidate{{
		Coordinate: domain.Coordinate{Lat: f.Center[1], Lng: f.Center[0]},
		Label:      f.PlaceName,
	}}, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
}
