package itinerary

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
)

// Request is the traveler's input to the planner.
type Request struct {
	Destination string
	Month       string
	Country     string
	Preferences []string
}

// Generator produces the itinerary stops for a request. Place names are
// opaque strings; the planner geocodes them afterwards.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]domain.ItineraryItem, error)
}

// SampleGenerator returns a fixed day plan for any destination, extended with
// one extra stop per recognized preference.
type SampleGenerator struct{}

// stopTemplate is a stop whose place name is prefixed with the destination.
type stopTemplate struct {
	suffix     string
	category   string
	start, end string
	priceLevel int
	notes      string
}

var baseStops = []stopTemplate{
	{"Old Town", "sightseeing", "09:00", "11:00", 0, "Walk historic center"},
	{"Art Museum", "museum", "11:30", "13:00", 2, "Local art exhibits"},
	{"Central Park", "park", "14:00", "16:00", 0, "Relax and picnic"},
}

// preferenceStops are appended after the base plan, keyed by lowercase preference.
var preferenceStops = map[string]stopTemplate{
	"food":      {"Food Market", "food", "16:30", "18:00", 2, "Try local street food"},
	"culture":   {"History Museum", "museum", "16:30", "18:00", 2, "Regional history collection"},
	"outdoor":   {"Botanical Garden", "park", "16:30", "18:00", 1, "Gardens and greenhouses"},
	"hiking":    {"Hills Trail", "outdoor", "07:00", "08:30", 0, "Early trail before the crowds"},
	"shopping":  {"Main Street", "shopping", "18:00", "19:30", 3, "Boutiques and local crafts"},
	"nightlife": {"Jazz Club", "nightlife", "21:00", "23:00", 3, "Live music"},
}

// Generate ignores Month; it is carried through to the itinerary only.
func (SampleGenerator) Generate(_ context.Context, req Request) ([]domain.ItineraryItem, error) {
	dest := strings.TrimSpace(req.Destination)
	if dest == "" {
		return nil, ErrMissingDestination
	}

	items := make([]domain.ItineraryItem, 0, len(baseStops)+len(req.Preferences))
	for _, s := range baseStops {
		items = append(items, s.item(dest))
	}

	seen := make(map[string]bool, len(req.Preferences))
	for _, pref := range req.Preferences {
		key := strings.ToLower(strings.TrimSpace(pref))
		s, ok := preferenceStops[key]
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, s.item(dest))
	}
	return items, nil
}

func (s stopTemplate) item(destination string) domain.ItineraryItem {
	return domain.ItineraryItem{
		Place:      fmt.Sprintf("%s %s", destination, s.suffix),
		Category:   s.category,
		StartTime:  s.start,
		EndTime:    s.end,
		PriceLevel: s.priceLevel,
		Notes:      s.notes,
	}
}
