// Package itinerary turns a destination and preferences into a day plan with
// coordinates and estimated travel between stops.
package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
	"github.com/couchcryptid/trip-planner-service/internal/observability"
)

// ErrMissingDestination is returned when a request has no destination.
var ErrMissingDestination = errors.New("destination is required")

// Resolver geocodes a batch of place names near a location.
type Resolver interface {
	ResolveAll(ctx context.Context, places []string, location, country string) map[string]domain.Resolution
}

// Planner orchestrates generate, geocode, optimize and segment estimation.
type Planner struct {
	generator Generator
	resolver  Resolver
	optimizer Optimizer
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewPlanner creates a Planner. A nil optimizer keeps the generated order.
func NewPlanner(g Generator, r Resolver, o Optimizer, metrics *observability.Metrics, logger *slog.Logger) *Planner {
	if o == nil {
		o = NoopOptimizer{}
	}
	return &Planner{
		generator: g,
		resolver:  r,
		optimizer: o,
		metrics:   metrics,
		logger:    logger,
	}
}

// Plan builds an itinerary. Geocoding failures never fail the plan; affected
// stops carry null coordinates and no segments.
func (p *Planner) Plan(ctx context.Context, req Request) (domain.Itinerary, error) {
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Destination == "" {
		return domain.Itinerary{}, ErrMissingDestination
	}

	items, err := p.generator.Generate(ctx, req)
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("generate itinerary: %w", err)
	}

	places := make([]string, len(items))
	for i := range items {
		places[i] = items[i].Place
	}
	coords := p.resolver.ResolveAll(ctx, places, req.Destination, req.Country)
	for i := range items {
		items[i].Coordinates = coords[items[i].Place]
	}

	items = p.optimizer.Optimize(ctx, items)
	segments := BuildSegments(items)

	p.metrics.ItinerariesGenerated.Inc()
	p.logger.Info("itinerary generated",
		"destination", req.Destination,
		"stops", len(items),
		"segments", len(segments),
	)

	return domain.Itinerary{
		Destination: req.Destination,
		Month:       req.Month,
		Country:     req.Country,
		Items:       items,
		Segments:    segments,
		GeneratedAt: domain.Now(),
	}, nil
}
