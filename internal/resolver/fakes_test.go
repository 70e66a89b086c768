package resolver

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
	"github.com/couchcryptid/trip-planner-service/internal/observability"
)

var (
	paris      = domain.Coordinate{Lat: 48.8566, Lng: 2.3522}
	louvre     = domain.Coordinate{Lat: 48.8606, Lng: 2.3376}
	orsay      = domain.Coordinate{Lat: 48.8600, Lng: 2.3266}
	arc        = domain.Coordinate{Lat: 48.8738, Lng: 2.2950}
	parisTexas = domain.Coordinate{Lat: 33.6609, Lng: -95.5555}
	london     = domain.Coordinate{Lat: 51.5074, Lng: -0.1278}
)

// fakeProvider answers from a fixed table keyed by query text.
type fakeProvider struct {
	name    string
	answers map[string][]domain.Candidate
	err     error
	panicOn string
	block   bool // wait for ctx to expire before returning

	calls atomic.Int64

	mu      sync.Mutex
	queries []domain.ProviderQuery
}

func newFakeProvider(name string, answers map[string][]domain.Candidate) *fakeProvider {
	return &fakeProvider{name: name, answers: answers}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Search(ctx context.Context, q domain.ProviderQuery) ([]domain.Candidate, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.queries = append(p.queries, q)
	p.mu.Unlock()

	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.panicOn != "" && q.Text == p.panicOn {
		panic("provider exploded")
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.answers[q.Text], nil
}

func (p *fakeProvider) recorded() []domain.ProviderQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ProviderQuery(nil), p.queries...)
}

func at(c domain.Coordinate) []domain.Candidate {
	return []domain.Candidate{{Coordinate: c}}
}

func placeQuery(name, location, country string) domain.PlaceQuery {
	return domain.PlaceQuery{Name: name, HintLocation: location, CountryCode: country}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}
