package domain

import "time"

// ItineraryItem is one stop produced by the itinerary generator.
type ItineraryItem struct {
	Place       string     `json:"place"`
	Category    string     `json:"category,omitempty"`
	StartTime   string     `json:"start_time"` // HH:MM local time
	EndTime     string     `json:"end_time"`
	PriceLevel  int        `json:"price_level"` // 0 free .. 4 expensive
	Notes       string     `json:"notes,omitempty"`
	Coordinates Resolution `json:"coordinates"`
}

// Travel modes used for inter-stop segments.
const (
	ModeWalk    = "walk"
	ModeTransit = "transit"
)

// Segment describes travel between two consecutive resolved stops.
type Segment struct {
	From            string  `json:"from"`
	To              string  `json:"to"`
	DistanceKm      float64 `json:"distance_km"`
	Mode            string  `json:"mode"`
	DurationMinutes int     `json:"duration_minutes"`
}

// Itinerary is the planner's response for a destination.
type Itinerary struct {
	Destination string          `json:"destination"`
	Month       string          `json:"month,omitempty"`
	Country     string          `json:"country,omitempty"`
	Items       []ItineraryItem `json:"itinerary"`
	Segments    []Segment       `json:"segments"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// PlaceResolution records a freshly resolved place for downstream consumers.
type PlaceResolution struct {
	Place      string     `json:"place"`
	Location   string     `json:"location,omitempty"`
	Country    string     `json:"country,omitempty"`
	Resolution Resolution `json:"coordinates"`
	Provider   string     `json:"provider,omitempty"`
	ResolvedAt time.Time  `json:"resolved_at"`
}
