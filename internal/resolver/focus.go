package resolver

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
)

// FocusResolver geocodes the trip destination. Results are never cached.
type FocusResolver struct {
	provider    domain.Provider
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewFocusResolver uses provider for a single structured lookup per call.
// A nil provider always yields Absent.
func NewFocusResolver(provider domain.Provider, callTimeout time.Duration, logger *slog.Logger) *FocusResolver {
	return &FocusResolver{provider: provider, callTimeout: callTimeout, logger: logger}
}

// Resolve returns the provider's top-ranked candidate for location, or Absent
// when the location is empty, the provider fails, or nothing matches.
func (f *FocusResolver) Resolve(ctx context.Context, location, country string) domain.Resolution {
	if f.provider == nil || strings.TrimSpace(location) == "" {
		return domain.Absent
	}

	callCtx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()

	candidates, err := f.provider.Search(callCtx, domain.ProviderQuery{Text: location, Country: country})
	if err != nil {
		f.logger.Warn("focus point lookup failed, continuing without bias",
			"location", location,
			"provider", f.provider.Name(),
			"error", err,
		)
		return domain.Absent
	}
	candidates = validCandidates(candidates)
	if len(candidates) == 0 {
		f.logger.Info("focus point not found, continuing without bias", "location", location)
		return domain.Absent
	}
	return domain.Resolved(candidates[0].Coordinate)
}
