package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
	"github.com/couchcryptid/trip-planner-service/internal/geocache"
	"github.com/couchcryptid/trip-planner-service/internal/observability"
)

// DefaultMaxWorkers caps concurrent resolutions to stay inside third-party
// rate limits.
const DefaultMaxWorkers = 8

// minWorkers keeps a little parallelism even for tiny batches.
const minWorkers = 2

// DefaultPublishTimeout bounds one background publish.
const DefaultPublishTimeout = 10 * time.Second

// Publisher receives the places resolved by a batch.
type Publisher interface {
	Publish(ctx context.Context, resolutions []domain.PlaceResolution) error
}

// Coordinator resolves batches of place names against the cache and the
// provider chain.
type Coordinator struct {
	cache      *geocache.Cache
	focus      *FocusResolver
	chain      *Chain
	maxWorkers int
	metrics    *observability.Metrics
	logger     *slog.Logger

	publisher      Publisher
	publishTimeout time.Duration
	publishing     sync.WaitGroup
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithMaxWorkers overrides DefaultMaxWorkers. Values below minWorkers are raised.
func WithMaxWorkers(n int) Option {
	return func(c *Coordinator) {
		c.maxWorkers = max(n, minWorkers)
	}
}

// WithPublisher forwards newly resolved places to p after each batch.
// Publishing runs in the background and never delays ResolveAll.
func WithPublisher(p Publisher) Option {
	return func(c *Coordinator) {
		c.publisher = p
	}
}

// WithPublishTimeout overrides DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.publishTimeout = d
		}
	}
}

// NewCoordinator wires a coordinator around an explicit cache instance.
func NewCoordinator(cache *geocache.Cache, focus *FocusResolver, chain *Chain, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		cache:          cache,
		focus:          focus,
		chain:          chain,
		maxWorkers:     DefaultMaxWorkers,
		metrics:        metrics,
		logger:         logger,
		publishTimeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// poolSize returns min(maxWorkers, max(minWorkers, misses)).
func (c *Coordinator) poolSize(misses int) int {
	return min(c.maxWorkers, max(minWorkers, misses))
}

// result is what a worker hands back to the merging goroutine.
type result struct {
	name    string
	outcome Outcome
}

// ResolveAll returns one entry per distinct name in places, keyed verbatim.
// Empty names map to Absent without a lookup. It never fails: provider
// errors surface as Absent for the affected name only.
func (c *Coordinator) ResolveAll(ctx context.Context, places []string, location, country string) map[string]domain.Resolution {
	start := time.Now()
	out := make(map[string]domain.Resolution, len(places))

	var misses []string
	for _, name := range places {
		if _, seen := out[name]; seen {
			continue
		}
		if strings.TrimSpace(name) == "" {
			out[name] = domain.Absent
			continue
		}
		if r, ok := c.cache.Get(name); ok {
			c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
			out[name] = r
			continue
		}
		c.metrics.GeocodeCache.WithLabelValues("miss").Inc()
		// Placeholder so duplicates are skipped; overwritten after resolution.
		out[name] = domain.Absent
		misses = append(misses, name)
	}

	if len(misses) == 0 {
		return out
	}

	c.metrics.BatchSize.Observe(float64(len(misses)))
	focus := c.focus.Resolve(ctx, location, country)

	var fresh []domain.PlaceResolution
	for res := range c.dispatch(ctx, misses, location, country, focus) {
		r := res.outcome.Resolution
		if r.Found {
			c.metrics.Resolutions.WithLabelValues("found").Inc()
		} else {
			c.metrics.Resolutions.WithLabelValues("absent").Inc()
		}

		// Absences caused by outages or a cancelled request are not answers.
		if res.outcome.Transient || ctx.Err() != nil {
			out[res.name] = r
			continue
		}
		if !c.cache.Put(res.name, r) {
			// Another batch already cached a success for this name.
			r, _ = c.cache.Get(res.name)
		}
		out[res.name] = r
		fresh = append(fresh, domain.PlaceResolution{
			Place:      res.name,
			Location:   location,
			Country:    country,
			Resolution: r,
			Provider:   res.outcome.Provider,
			ResolvedAt: domain.Now(),
		})
	}

	// Flush and publish outlive a cancelled request: results are already paid for.
	bg := context.WithoutCancel(ctx)
	if err := c.cache.Flush(bg); err != nil {
		c.metrics.CacheFlushErrors.Inc()
	}
	c.publishAsync(bg, fresh)

	c.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("geocode batch resolved",
		"requested", len(places),
		"resolved", len(misses),
		"focus_found", focus.Found,
		"duration", time.Since(start),
	)
	return out
}

// dispatch fans names out over the worker pool. The returned channel yields
// exactly len(names) results and is closed afterwards.
func (c *Coordinator) dispatch(ctx context.Context, names []string, location, country string, focus domain.Resolution) <-chan result {
	jobs := make(chan string)
	results := make(chan result, len(names))

	workers := min(c.poolSize(len(names)), len(names))
	done := make(chan struct{})
	for range workers {
		go func() {
			defer func() { done <- struct{}{} }()
			for name := range jobs {
				q := domain.PlaceQuery{Name: name, HintLocation: location, CountryCode: country}
				results <- result{name: name, outcome: c.resolveOne(ctx, q, focus)}
			}
		}()
	}

	go func() {
		for _, name := range names {
			jobs <- name
		}
		close(jobs)
		for range workers {
			<-done
		}
		close(results)
	}()

	return results
}

// resolveOne runs the chain for one name, turning a panic into a transient
// absence so siblings are unaffected.
func (c *Coordinator) resolveOne(ctx context.Context, q domain.PlaceQuery, focus domain.Resolution) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("place resolution panicked", "place", q.Name, "error", fmt.Sprint(r))
			out = Outcome{Resolution: domain.Absent, Transient: true}
		}
	}()
	return c.chain.Resolve(ctx, q, focus)
}

// publishAsync hands fresh resolutions to the publisher without blocking
// the caller. Each publish is bounded by publishTimeout.
func (c *Coordinator) publishAsync(ctx context.Context, fresh []domain.PlaceResolution) {
	if c.publisher == nil || len(fresh) == 0 {
		return
	}
	c.publishing.Go(func() {
		pubCtx, cancel := context.WithTimeout(ctx, c.publishTimeout)
		defer cancel()
		if err := c.publisher.Publish(pubCtx, fresh); err != nil {
			c.logger.Warn("publish resolutions failed", "count", len(fresh), "error", err)
		}
	})
}

// Wait blocks until in-flight publishes have finished.
func (c *Coordinator) Wait() {
	c.publishing.Wait()
}
