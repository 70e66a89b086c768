package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
	"github.com/couchcryptid/trip-planner-service/internal/observability"
)

// Stage is a position in the provider chain.
type Stage int

const (
	// StagePrimary is the structured query with country filter and focus bias.
	StagePrimary Stage = iota
	// StageFallback is the free-text query with the destination appended.
	StageFallback
)

func (s Stage) String() string {
	switch s {
	case StagePrimary:
		return "primary"
	case StageFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// query builds the provider request for this stage.
func (s Stage) query(q domain.PlaceQuery, focus domain.Resolution) domain.ProviderQuery {
	if s == StageFallback {
		return domain.ProviderQuery{Text: withLocation(q.Name, q.HintLocation)}
	}
	return domain.ProviderQuery{Text: q.Name, Country: q.CountryCode, Focus: focus}
}

// withLocation appends the destination as context unless the place already
// mentions it.
func withLocation(place, location string) string {
	location = strings.TrimSpace(location)
	if location == "" || strings.Contains(strings.ToLower(place), strings.ToLower(location)) {
		return place
	}
	return place + ", " + location
}

type stage struct {
	kind     Stage
	provider domain.Provider
}

// Outcome is the chain's verdict for one place.
type Outcome struct {
	Resolution domain.Resolution
	Stage      Stage
	Provider   string

	// Transient is true when an absence involved at least one failed provider
	// call. Such an absence is not a real answer and should not be cached.
	Transient bool
}

// Chain resolves a single place by walking provider stages in order.
type Chain struct {
	stages      []stage
	filter      domain.PlausibilityFilter
	callTimeout time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewChain builds a chain from a primary and an optional fallback provider.
// Nil providers are skipped; a chain with no providers resolves everything
// to Absent.
func NewChain(primary, fallback domain.Provider, filter domain.PlausibilityFilter, callTimeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Chain {
	c := &Chain{
		filter:      filter,
		callTimeout: callTimeout,
		metrics:     metrics,
		logger:      logger,
	}
	if primary != nil {
		c.stages = append(c.stages, stage{kind: StagePrimary, provider: primary})
	}
	if fallback != nil {
		c.stages = append(c.stages, stage{kind: StageFallback, provider: fallback})
	}
	return c
}

// Resolve geocodes q.Name near the focus point. q.HintLocation gives the
// fallback stage context.
func (c *Chain) Resolve(ctx context.Context, q domain.PlaceQuery, focus domain.Resolution) Outcome {
	failed := 0

	for _, s := range c.stages {
		candidate, err := c.try(ctx, s, q, focus)
		switch {
		case errors.Is(err, domain.ErrNoPlausibleCandidate):
			c.metrics.PlausibilityRejection.WithLabelValues(s.kind.String()).Inc()
			c.logger.Debug("candidate rejected by plausibility filter",
				"place", q.Name,
				"stage", s.kind.String(),
				"provider", s.provider.Name(),
				"distance_km", domain.HaversineKm(candidate.Coordinate, focus.Coordinate),
			)
			continue
		case err != nil:
			failed++
			c.logger.Warn("geocoding provider failed",
				"place", q.Name,
				"stage", s.kind.String(),
				"provider", s.provider.Name(),
				"error", err,
			)
			continue
		case candidate == nil:
			continue
		}

		return Outcome{
			Resolution: domain.Resolved(candidate.Coordinate),
			Stage:      s.kind,
			Provider:   s.provider.Name(),
		}
	}

	return Outcome{Resolution: domain.Absent, Transient: failed > 0}
}

// try runs one stage. It returns (nil, nil) when the provider found nothing,
// and the rejected candidate with ErrNoPlausibleCandidate when the best
// candidate lies outside the radius.
func (c *Chain) try(ctx context.Context, s stage, q domain.PlaceQuery, focus domain.Resolution) (*domain.Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	candidates, err := s.provider.Search(callCtx, s.kind.query(q, focus))
	if err != nil {
		return nil, err
	}

	best, ok := selectCandidate(validCandidates(candidates), focus)
	if !ok {
		return nil, nil
	}
	if !c.filter.Accept(best.Coordinate, focus) {
		return &best, domain.ErrNoPlausibleCandidate
	}
	return &best, nil
}

// validCandidates drops non-finite or out-of-range coordinates without
// touching the provider's slice.
func validCandidates(candidates []domain.Candidate) []domain.Candidate {
	valid := make([]domain.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Coordinate.Valid() {
			valid = append(valid, cand)
		}
	}
	return valid
}

// selectCandidate prefers the candidate closest to the focus point over the
// provider's own ranking. Without a focus point the first-ranked one wins.
func selectCandidate(candidates []domain.Candidate, focus domain.Resolution) (domain.Candidate, bool) {
	if len(candidates) == 0 {
		return domain.Candidate{}, false
	}
	if !focus.Found {
		return candidates[0], true
	}

	best := candidates[0]
	bestDist := domain.HaversineKm(best.Coordinate, focus.Coordinate)
	for _, cand := range candidates[1:] {
		if d := domain.HaversineKm(cand.Coordinate, focus.Coordinate); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best, true
}
