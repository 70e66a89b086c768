package itinerary

import (
	"context"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
)

// Optimizer may reorder an itinerary once its stops have coordinates.
type Optimizer interface {
	Optimize(ctx context.Context, items []domain.ItineraryItem) []domain.ItineraryItem
}

// NoopOptimizer keeps the generator's order.
type NoopOptimizer struct{}

func (NoopOptimizer) Optimize(_ context.Context, items []domain.ItineraryItem) []domain.ItineraryItem {
	return items
}
