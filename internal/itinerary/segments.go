package itinerary

import (
	"math"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
)

const (
	walkMaxKm       = 2.0
	walkSpeedKmh    = 5.0
	transitSpeedKmh = 25.0
)

// BuildSegments estimates travel between each pair of consecutive stops.
// Pairs where either stop is unresolved are skipped.
func BuildSegments(items []domain.ItineraryItem) []domain.Segment {
	segments := make([]domain.Segment, 0, max(len(items)-1, 0))
	for i := 1; i < len(items); i++ {
		from, to := items[i-1], items[i]
		if !from.Coordinates.Found || !to.Coordinates.Found {
			continue
		}
		segments = append(segments, estimate(from, to))
	}
	return segments
}

func estimate(from, to domain.ItineraryItem) domain.Segment {
	km := domain.HaversineKm(from.Coordinates.Coordinate, to.Coordinates.Coordinate)

	mode, speed := domain.ModeWalk, walkSpeedKmh
	if km > walkMaxKm {
		mode, speed = domain.ModeTransit, transitSpeedKmh
	}

	return domain.Segment{
		From:            from.Place,
		To:              to.Place,
		DistanceKm:      math.Round(km*100) / 100,
		Mode:            mode,
		DurationMinutes: int(math.Ceil(km / speed * 60)),
	}
}
