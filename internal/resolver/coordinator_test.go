package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/trip-planner-service/internal/domain"
	"github.com/couchcryptid/trip-planner-service/internal/geocache"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRig struct {
	primary     *fakeProvider
	fallback    *fakeProvider
	cache       *geocache.Cache
	coordinator *Coordinator
}

func newRig(primary, fallback *fakeProvider, opts ...Option) *testRig {
	return newRigWithCache(primary, fallback, geocache.NewMemory(discardLogger()), opts...)
}

func newRigWithCache(primary, fallback *fakeProvider, cache *geocache.Cache, opts ...Option) *testRig {
	var p, f domain.Provider
	if primary != nil {
		p = primary
	}
	if fallback != nil {
		f = fallback
	}
	metrics := newTestMetrics()
	logger := discardLogger()
	chain := NewChain(p, f, domain.NewPlausibilityFilter(200), 200*time.Millisecond, metrics, logger)
	focus := NewFocusResolver(p, 200*time.Millisecond, logger)
	return &testRig{
		primary:     primary,
		fallback:    fallback,
		cache:       cache,
		coordinator: NewCoordinator(cache, focus, chain, metrics, logger, opts...),
	}
}

func parisProvider() *fakeProvider {
	return newFakeProvider("ors", map[string][]domain.Candidate{
		"Paris":           at(paris),
		"The Louvre":      at(louvre),
		"Musée d'Orsay":   at(orsay),
		"Arc de Triomphe": {{Coordinate: parisTexas}, {Coordinate: arc}},
	})
}

// memoryStore counts saves so flush behavior is observable.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]domain.Resolution
	saves   int
	saveErr error
}

func (s *memoryStore) Load(context.Context) (map[string]domain.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries, nil
}

func (s *memoryStore) Save(_ context.Context, entries map[string]domain.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.entries = entries
	return nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	batch []domain.PlaceResolution
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, resolutions []domain.PlaceResolution) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batch = append(p.batch, resolutions...)
	return p.err
}

func TestResolveAll_ParisLandmarks(t *testing.T) {
	rig := newRig(parisProvider(), nil)
	places := []string{"The Louvre", "Musée d'Orsay", "Arc de Triomphe"}

	got := rig.coordinator.ResolveAll(context.Background(), places, "Paris", "FR")

	require.Len(t, got, 3)
	for _, name := range places {
		r := got[name]
		require.True(t, r.Found, name)
		assert.Less(t, domain.HaversineKm(r.Coordinate, paris), 10.0, name)
	}
	assert.Equal(t, arc, got["Arc de Triomphe"].Coordinate, "candidate nearest the focus wins")

	for _, q := range rig.primary.recorded() {
		assert.Equal(t, "FR", q.Country)
		if q.Text != "Paris" {
			assert.Equal(t, domain.Resolved(paris), q.Focus, "place queries carry the focus point")
		}
	}
}

func TestResolveAll_Completeness(t *testing.T) {
	rig := newRig(parisProvider(), nil)
	places := []string{"The Louvre", "", "The Louvre", "  ", "Atlantis", "the louvre"}

	got := rig.coordinator.ResolveAll(context.Background(), places, "Paris", "FR")

	want := map[string]domain.Resolution{
		"The Louvre": domain.Resolved(louvre),
		"":           domain.Absent,
		"  ":         domain.Absent,
		"Atlantis":   domain.Absent,
		"the louvre": domain.Absent,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveAll mismatch (-want +got):\n%s", diff)
	}

	// Focus plus one call per distinct non-blank name.
	assert.Equal(t, int64(4), rig.primary.calls.Load())
	_, cached := rig.cache.Get("")
	assert.False(t, cached, "blank names are never cached")
}

func TestResolveAll_EmptyInput(t *testing.T) {
	rig := newRig(parisProvider(), nil)

	got := rig.coordinator.ResolveAll(context.Background(), nil, "Paris", "FR")

	assert.Empty(t, got)
	assert.Zero(t, rig.primary.calls.Load())
}

func TestResolveAll_WarmCacheMakesNoCalls(t *testing.T) {
	rig := newRig(parisProvider(), nil)
	places := []string{"The Louvre", "Atlantis"}

	first := rig.coordinator.ResolveAll(context.Background(), places, "Paris", "FR")
	callsAfterFirst := rig.primary.calls.Load()
	second := rig.coordinator.ResolveAll(context.Background(), places, "Paris", "FR")

	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, rig.primary.calls.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(rig.coordinator.metrics.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(rig.coordinator.metrics.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestResolveAll_SuccessNeverDowngraded(t *testing.T) {
	cache := geocache.NewMemory(discardLogger())
	cache.Put("The Louvre", domain.Resolved(louvre))

	empty := newFakeProvider("ors", map[string][]domain.Candidate{"Paris": at(paris)})
	rig := newRigWithCache(empty, nil, cache)

	got := rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre"}, "Paris", "FR")

	assert.Equal(t, domain.Resolved(louvre), got["The Louvre"])
	assert.Zero(t, empty.calls.Load())
}

func TestResolveAll_ImplausibleCandidateBecomesAbsent(t *testing.T) {
	primary := newFakeProvider("ors", map[string][]domain.Candidate{
		"Paris":        at(paris),
		"Eiffel Tower": at(parisTexas),
	})
	rig := newRig(primary, nil)

	got := rig.coordinator.ResolveAll(context.Background(), []string{"Eiffel Tower"}, "Paris", "FR")

	assert.Equal(t, domain.Absent, got["Eiffel Tower"])
	r, ok := rig.cache.Get("Eiffel Tower")
	require.True(t, ok, "a rejection is a definitive answer and is cached")
	assert.Equal(t, domain.Absent, r)
}

func TestResolveAll_FallbackTriedBeforeAbsent(t *testing.T) {
	primary := newFakeProvider("ors", map[string][]domain.Candidate{"Paris": at(paris)})
	fallback := newFakeProvider("nominatim", map[string][]domain.Candidate{"Arc de Triomphe, Paris": at(arc)})
	rig := newRig(primary, fallback)

	got := rig.coordinator.ResolveAll(context.Background(), []string{"Arc de Triomphe", "Atlantis"}, "Paris", "FR")

	assert.Equal(t, domain.Resolved(arc), got["Arc de Triomphe"])
	assert.Equal(t, domain.Absent, got["Atlantis"])
	assert.Equal(t, int64(2), fallback.calls.Load())
}

func TestResolveAll_OutageDegradesWithinTimeout(t *testing.T) {
	primary := newFakeProvider("ors", nil)
	primary.block = true
	fallback := newFakeProvider("nominatim", nil)
	fallback.block = true
	rig := newRig(primary, fallback)

	places := make([]string, 20)
	for i := range places {
		places[i] = fmt.Sprintf("place-%d", i)
	}

	start := time.Now()
	got := rig.coordinator.ResolveAll(context.Background(), places, "Paris", "FR")
	elapsed := time.Since(start)

	// 20 names over 8 workers is 3 rounds of two 200ms calls, plus the focus lookup.
	assert.Less(t, elapsed, 3*time.Second)
	require.Len(t, got, len(places))
	for _, name := range places {
		assert.Equal(t, domain.Absent, got[name], name)
	}
	assert.Zero(t, rig.cache.Len(), "outage absences are not cached")
}

func TestResolveAll_TransientFailureRetriedNextBatch(t *testing.T) {
	primary := parisProvider()
	primary.err = errors.New("connection reset")
	rig := newRig(primary, nil)

	got := rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre"}, "Paris", "FR")
	assert.Equal(t, domain.Absent, got["The Louvre"])

	primary.err = nil
	got = rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre"}, "Paris", "FR")
	assert.Equal(t, domain.Resolved(louvre), got["The Louvre"])
}

func TestResolveAll_PanicIsolatedToOneName(t *testing.T) {
	primary := parisProvider()
	primary.panicOn = "Musée d'Orsay"
	rig := newRig(primary, nil)

	got := rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre", "Musée d'Orsay"}, "Paris", "FR")

	assert.Equal(t, domain.Resolved(louvre), got["The Louvre"])
	assert.Equal(t, domain.Absent, got["Musée d'Orsay"])
}

func TestResolveAll_NoProviders(t *testing.T) {
	rig := newRig(nil, nil)

	got := rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre"}, "Paris", "FR")

	assert.Equal(t, map[string]domain.Resolution{"The Louvre": domain.Absent}, got)
}

func TestResolveAll_ConcurrentMatchesSequential(t *testing.T) {
	answers := map[string][]domain.Candidate{"Paris": at(paris)}
	places := make([]string, 50)
	for i := range places {
		name := fmt.Sprintf("stop-%02d", i)
		places[i] = name
		if i%5 != 0 {
			answers[name] = at(domain.Coordinate{Lat: paris.Lat + float64(i)/1000, Lng: paris.Lng})
		}
	}

	parallel := newRig(newFakeProvider("ors", answers), nil, WithMaxWorkers(8))
	sequential := newRig(newFakeProvider("ors", answers), nil, WithMaxWorkers(1))
	require.Equal(t, 2, sequential.coordinator.maxWorkers, "worker floor")

	var serial map[string]domain.Resolution
	for _, name := range places {
		one := sequential.coordinator.ResolveAll(context.Background(), []string{name}, "Paris", "FR")
		if serial == nil {
			serial = make(map[string]domain.Resolution)
		}
		serial[name] = one[name]
	}

	got := parallel.coordinator.ResolveAll(context.Background(), places, "Paris", "FR")

	if diff := cmp.Diff(serial, got); diff != "" {
		t.Errorf("parallel result differs from sequential (-seq +par):\n%s", diff)
	}
	if diff := cmp.Diff(serial, parallel.cache.Snapshot()); diff != "" {
		t.Errorf("cache contents differ (-want +got):\n%s", diff)
	}
}

func TestResolveAll_FlushesOncePerBatch(t *testing.T) {
	store := &memoryStore{}
	cache := geocache.New(store, discardLogger())
	cache.Load(context.Background())
	rig := newRigWithCache(parisProvider(), nil, cache)

	rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre", "Musée d'Orsay", "Atlantis"}, "Paris", "FR")

	assert.Equal(t, 1, store.saves)
	want := map[string]domain.Resolution{
		"The Louvre":    domain.Resolved(louvre),
		"Musée d'Orsay": domain.Resolved(orsay),
		"Atlantis":      domain.Absent,
	}
	if diff := cmp.Diff(want, store.entries); diff != "" {
		t.Errorf("persisted cache mismatch (-want +got):\n%s", diff)
	}

	// A fully cached batch has nothing to write.
	rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre"}, "Paris", "FR")
	assert.Equal(t, 1, store.saves)
}

func TestResolveAll_FlushFailureDoesNotFailBatch(t *testing.T) {
	store := &memoryStore{saveErr: errors.New("disk full")}
	cache := geocache.New(store, discardLogger())
	cache.Load(context.Background())
	rig := newRigWithCache(parisProvider(), nil, cache)

	got := rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre"}, "Paris", "FR")

	assert.Equal(t, domain.Resolved(louvre), got["The Louvre"])
	assert.InDelta(t, 1, testutil.ToFloat64(rig.coordinator.metrics.CacheFlushErrors), 0)
}

func TestResolveAll_PublishesFreshResolutions(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })

	pub := &recordingPublisher{}
	rig := newRig(parisProvider(), nil, WithPublisher(pub))
	rig.cache.Put("Arc de Triomphe", domain.Resolved(arc))

	rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre", "Arc de Triomphe", ""}, "Paris", "FR")
	rig.coordinator.Wait()

	want := []domain.PlaceResolution{{
		Place:      "The Louvre",
		Location:   "Paris",
		Country:    "FR",
		Resolution: domain.Resolved(louvre),
		Provider:   "ors",
		ResolvedAt: fakeClock.Now(),
	}}
	if diff := cmp.Diff(want, pub.batch); diff != "" {
		t.Errorf("published resolutions mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveAll_PublishFailureIgnored(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	rig := newRig(parisProvider(), nil, WithPublisher(pub))

	got := rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre"}, "Paris", "FR")
	rig.coordinator.Wait()

	assert.Equal(t, domain.Resolved(louvre), got["The Louvre"])
	assert.Len(t, pub.batch, 1)
}

// stalledPublisher blocks until its context expires, like a writer retrying
// against a dead broker.
type stalledPublisher struct {
	deadlineSet bool
}

func (p *stalledPublisher) Publish(ctx context.Context, _ []domain.PlaceResolution) error {
	_, p.deadlineSet = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func TestResolveAll_SlowPublisherDoesNotDelayBatch(t *testing.T) {
	pub := &stalledPublisher{}
	rig := newRig(parisProvider(), nil, WithPublisher(pub), WithPublishTimeout(300*time.Millisecond))

	start := time.Now()
	got := rig.coordinator.ResolveAll(context.Background(), []string{"The Louvre"}, "Paris", "FR")
	returned := time.Since(start)

	assert.Equal(t, domain.Resolved(louvre), got["The Louvre"])
	assert.Less(t, returned, 250*time.Millisecond, "publishing runs after the batch returns")

	rig.coordinator.Wait()
	assert.True(t, pub.deadlineSet, "background publishes are bounded")
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestResolveAll_CanceledRequestSkipsCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rig := newRig(parisProvider(), nil)

	got := rig.coordinator.ResolveAll(ctx, []string{"The Louvre"}, "Paris", "FR")

	require.Contains(t, got, "The Louvre")
	assert.Zero(t, rig.cache.Len())
}

func TestPoolSize(t *testing.T) {
	c := &Coordinator{maxWorkers: DefaultMaxWorkers}
	assert.Equal(t, 2, c.poolSize(1))
	assert.Equal(t, 2, c.poolSize(2))
	assert.Equal(t, 5, c.poolSize(5))
	assert.Equal(t, 8, c.poolSize(50))
}
