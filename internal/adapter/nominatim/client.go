package nominatim

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

const providerName = "nominatim"

// Client implements domain.Provider as a free-text lookup against an OSM
// Nominatim instance. The public instance allows one request per second and
// requires an identifying User-Agent, so every call waits on the limiter.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client limited to rps requests per second.
func NewClient(baseURL, userAgent string, rps float64, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return providerName }

// Search looks up q.Text only; country and focus are ignored. At most one
// candidate is returned.
func (c *Client) Search(ctx context.Context, q domain.ProviderQuery) ([]domain.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(providerName, "error").Inc()
		return nil, fmt.Errorf("%w: nominatim rate limit wait: %v", domain.ErrProviderUnavailable, err)
	}

	params := url.Values{
		"q":      {q.Text},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}

	start := time.Now()
	candidates, err := c.doRequest(ctx, c.baseURL+"/search?"+params.Encode())
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
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: nominatim request: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: nominatim API error: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("%w: decode nominatim response: %v", domain.ErrProviderUnavailable, err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	p := places[0]
	lat, errLat := strconv.ParseFloat(p.Lat, 64)
	lng, errLng := strconv.ParseFloat(p.Lon, 64)
	coord := domain.Coordinate{Lat: lat, Lng: lng}
	// ParseFloat accepts "NaN" and "Inf", which must never reach the cache.
	if errLat != nil || errLng != nil || !coord.Valid() {
		c.logger.Debug("nominatim result with unusable coordinates", "lat", p.Lat, "lon", p.Lon)
		return nil, nil
	}

	return []domain.Candidate{{
		Coordinate: coord,
		Label:      p.DisplayName,
	}}, nil
}

// Nominatim API response types. Coordinates arrive as strings.

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
