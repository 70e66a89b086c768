package domain

import (
	"context"
	"errors"
)

var (
	// ErrProviderUnavailable wraps transport, HTTP status and decode failures
	// from a single provider call.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")

	// ErrNoPlausibleCandidate marks a stage whose results all failed the
	// plausibility filter.
	ErrNoPlausibleCandidate = errors.New("no plausible candidate")
)

// Candidate is one coordinate returned by a provider, before filtering.
type Candidate struct {
	Coordinate Coordinate
	Rank       int // provider's own order, 0 = first
	Label      string
}

// ProviderQuery is the uniform request passed to every provider. Free-text
// providers ignore Country and Focus.
type ProviderQuery struct {
	Text    string
	Country string
	Focus   Resolution
}

// Provider is a geocoding backend.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Search returns candidates in the provider's relevance order. An empty
	// slice with a nil error means the provider found nothing.
	Search(ctx context.Context, q ProviderQuery) ([]Candidate, error)
}
