package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chamodk/air-quality-fusion/internal/airquality"
	"github.com/chamodk/air-quality-fusion/internal/alert"
	"github.com/chamodk/air-quality-fusion/internal/geo"
	"github.com/chamodk/air-quality-fusion/internal/location"
	"github.com/chamodk/air-quality-fusion/internal/store"
)

var testCoord = geo.Coordinate{Latitude: 6.9271, Longitude: 79.8612}

type fakeResolver struct {
	fix   location.Fix
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context) (location.Fix, error) {
	f.calls++
	return f.fix, f.err
}

type fakeIQAir struct {
	result *airquality.IQAirResult
	err    error
	calls  int

	// When set, Fetch closes entered on arrival and then waits for release,
	// letting a test hold a cycle open at a known point.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeIQAir) Name() string { return "iqair" }

func (f *fakeIQAir) Fetch(ctx context.Context, loc geo.Coordinate) (*airquality.IQAirResult, error) {
	f.calls++
	if f.entered != nil {
		close(f.entered)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type fakeOpenWeather struct {
	result *airquality.OpenWeatherResult
	err    error
	calls  int
}

func (f *fakeOpenWeather) Name() string { return "openweather" }

func (f *fakeOpenWeather) Fetch(ctx context.Context, loc geo.Coordinate) (*airquality.OpenWeatherResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeWeatherAPI struct {
	result *airquality.WeatherAPIResult
	err    error
	calls  int
}

func (f *fakeWeatherAPI) Name() string { return "weatherapi" }

func (f *fakeWeatherAPI) Fetch(ctx context.Context, loc geo.Coordinate) (*airquality.WeatherAPIResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeSink struct {
	sent []string
}

func (f *fakeSink) Send(title, body string) error {
	f.sent = append(f.sent, title)
	return nil
}

type fixture struct {
	sched       *Scheduler
	kv          *store.MemoryStore
	cache       *store.Cache
	state       *store.StateStore
	resolver    *fakeResolver
	iqAir       *fakeIQAir
	openWeather *fakeOpenWeather
	weatherAPI  *fakeWeatherAPI
	sink        *fakeSink
}

func healthyIQAirResult(aqi int) *airquality.IQAirResult {
	near := geo.Coordinate{Latitude: testCoord.Latitude + 0.005, Longitude: testCoord.Longitude}
	return &airquality.IQAirResult{
		City:        "Colombo",
		Coordinates: &near,
		AQIUS:       aqi,
		PollutionTS: time.Now().UTC(),
	}
}

func healthyOpenWeatherResult(class int, uv float64) *airquality.OpenWeatherResult {
	return &airquality.OpenWeatherResult{
		Coordinates: &testCoord,
		AQIClass:    class,
		UVValue:     &uv,
		SampleTS:    time.Now().UTC(),
	}
}

func healthyWeatherAPIResult(uv float64) *airquality.WeatherAPIResult {
	return &airquality.WeatherAPIResult{
		Coordinates: &testCoord,
		UVValue:     uv,
		LastUpdated: time.Now().UTC(),
	}
}

func newFixture() *fixture {
	kv := store.NewMemoryStore()
	cache := store.NewCache(kv, 2*time.Hour, 7*24*time.Hour)
	state := store.NewStateStore(kv, time.Hour)

	f := &fixture{
		kv:          kv,
		cache:       cache,
		state:       state,
		resolver:    &fakeResolver{fix: location.Fix{Coordinate: testCoord}},
		iqAir:       &fakeIQAir{result: healthyIQAirResult(80)},
		openWeather: &fakeOpenWeather{result: healthyOpenWeatherResult(2, 4)},
		weatherAPI:  &fakeWeatherAPI{result: healthyWeatherAPIResult(5)},
		sink:        &fakeSink{},
	}

	f.sched = New(Deps{
		Resolver:    f.resolver,
		IQAir:       f.iqAir,
		OpenWeather: f.openWeather,
		WeatherAPI:  f.weatherAPI,
		Engine:      airquality.NewEngine(),
		Cache:       cache,
		State:       state,
		Alerts:      alert.NewStore(kv),
		Sink:        f.sink,
	})
	return f
}

func TestTickIntervalGating(t *testing.T) {
	f := newFixture()
	// State storage keeps millisecond precision; align so equality holds.
	now := time.Now().Truncate(time.Millisecond)

	first := f.sched.Tick(context.Background(), now)
	if first.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s (err: %v)", first.Outcome, first.Err)
	}

	state, err := f.state.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.LastFetch.Equal(now) {
		t.Fatalf("expected last fetch %v, got %v", now, state.LastFetch)
	}

	// 10 minutes later with a 60-minute interval: skipped, no side effects.
	second := f.sched.Tick(context.Background(), now.Add(10*time.Minute))
	if second.Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", second.Outcome)
	}
	if f.iqAir.calls != 1 {
		t.Fatalf("expected no additional provider call, got %d", f.iqAir.calls)
	}

	after, err := f.state.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !after.LastFetch.Equal(state.LastFetch) {
		t.Fatal("skipped tick must not change last fetch time")
	}
}

func TestTickRunsAgainAfterInterval(t *testing.T) {
	f := newFixture()
	now := time.Now()

	f.sched.Tick(context.Background(), now)

	result := f.sched.Tick(context.Background(), now.Add(61*time.Minute))
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success after interval elapsed, got %s", result.Outcome)
	}
	if f.iqAir.calls != 2 {
		t.Fatalf("expected 2 provider calls, got %d", f.iqAir.calls)
	}
}

func TestManualFetchBypassesInterval(t *testing.T) {
	f := newFixture()

	f.sched.Tick(context.Background(), time.Now())

	result := f.sched.ManualFetch(context.Background())
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected manual fetch to run, got %s", result.Outcome)
	}
	if f.iqAir.calls != 2 {
		t.Fatalf("expected 2 provider calls, got %d", f.iqAir.calls)
	}

	state, err := f.state.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.LastFetch.IsZero() {
		t.Fatal("manual fetch must update last fetch time")
	}
}

func TestLocationFailureIsTotalFailure(t *testing.T) {
	f := newFixture()
	f.resolver.err = errors.New("gps unavailable")

	result := f.sched.Tick(context.Background(), time.Now())
	if result.Outcome != OutcomeTotalFailure {
		t.Fatalf("expected total failure, got %s", result.Outcome)
	}
	if result.Snapshot != nil {
		t.Fatal("total failure must not produce a snapshot")
	}
	if f.iqAir.calls != 0 {
		t.Fatal("providers must not be queried without a location")
	}

	state, err := f.state.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.LastFetch.IsZero() {
		t.Fatal("total failure must not advance last fetch time")
	}

	if _, err := f.cache.Latest(); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected empty cache, got %v", err)
	}
}

func TestPartialFailureStillPersists(t *testing.T) {
	f := newFixture()
	f.iqAir.result = nil
	f.iqAir.err = errors.New("timeout")

	result := f.sched.Tick(context.Background(), time.Now())
	if result.Outcome != OutcomePartialFailure {
		t.Fatalf("expected partial failure, got %s", result.Outcome)
	}
	if result.Snapshot == nil {
		t.Fatal("partial failure must still produce a snapshot")
	}

	for _, src := range result.Snapshot.Sources {
		if src == airquality.ProviderIQAir {
			t.Fatal("failed provider must not appear in sources")
		}
	}

	if _, err := f.cache.Latest(); err != nil {
		t.Fatalf("expected persisted snapshot, got %v", err)
	}
}

func TestAllProvidersFailedDegradesToDefaults(t *testing.T) {
	f := newFixture()
	f.iqAir.result, f.iqAir.err = nil, errors.New("down")
	f.openWeather.result, f.openWeather.err = nil, errors.New("down")
	f.weatherAPI.result, f.weatherAPI.err = nil, errors.New("down")

	result := f.sched.Tick(context.Background(), time.Now())
	if result.Outcome != OutcomePartialFailure {
		t.Fatalf("expected degraded success, got %s", result.Outcome)
	}
	if result.Snapshot == nil {
		t.Fatal("expected default snapshot")
	}
	if result.Snapshot.AQI.Value != 50 || result.Snapshot.UV.Value != 3 {
		t.Fatalf("expected default values 50/3, got %d/%d",
			result.Snapshot.AQI.Value, result.Snapshot.UV.Value)
	}
	if len(result.Snapshot.Sources) != 0 {
		t.Fatalf("expected no contributing sources, got %v", result.Snapshot.Sources)
	}
}

func TestBreachForwardsAlertToSink(t *testing.T) {
	f := newFixture()
	f.iqAir.result = healthyIQAirResult(190)

	result := f.sched.Tick(context.Background(), time.Now())
	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s", result.Outcome)
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(result.Alerts))
	}
	if len(f.sink.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(f.sink.sent))
	}
	if f.sink.sent[0] != "Air Quality Alert" {
		t.Fatalf("unexpected notification title: %s", f.sink.sent[0])
	}
}

func TestConcurrentFetchSkipsInsteadOfDoubleFetching(t *testing.T) {
	f := newFixture()
	f.iqAir.entered = make(chan struct{})
	f.iqAir.release = make(chan struct{})

	done := make(chan Result, 1)
	go func() {
		done <- f.sched.Tick(context.Background(), time.Now())
	}()

	// Wait until the first cycle is inside a provider fetch, then race a
	// manual refresh against it.
	<-f.iqAir.entered
	racing := f.sched.ManualFetch(context.Background())
	if racing.Outcome != OutcomeSkipped {
		t.Fatalf("expected racing fetch to skip, got %s", racing.Outcome)
	}

	close(f.iqAir.release)
	first := <-done
	if first.Outcome != OutcomeSuccess {
		t.Fatalf("expected first cycle to succeed, got %s", first.Outcome)
	}
	if f.iqAir.calls != 1 {
		t.Fatalf("expected providers to be fetched once, got %d calls", f.iqAir.calls)
	}
}

func TestSetIntervalDuringInFlightCycleIsKept(t *testing.T) {
	f := newFixture()
	f.iqAir.entered = make(chan struct{})
	f.iqAir.release = make(chan struct{})

	done := make(chan Result, 1)
	go func() {
		done <- f.sched.Tick(context.Background(), time.Now())
	}()

	// Change the interval while the cycle is held open inside a fetch.
	<-f.iqAir.entered
	if err := f.sched.SetInterval(30 * time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	close(f.iqAir.release)
	first := <-done
	if first.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s", first.Outcome)
	}

	state, err := f.state.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Interval != 30*time.Minute {
		t.Fatalf("interval update lost during in-flight cycle: got %v, want 30m", state.Interval)
	}
	if state.LastFetch.IsZero() {
		t.Fatal("expected last fetch time to be committed")
	}
}

func TestSetIntervalRejectsNonPositive(t *testing.T) {
	f := newFixture()

	if err := f.sched.SetInterval(0); err == nil {
		t.Fatal("expected error for zero interval")
	}
	if err := f.sched.SetInterval(-time.Minute); err == nil {
		t.Fatal("expected error for negative interval")
	}
}

func TestSetIntervalPersists(t *testing.T) {
	f := newFixture()

	if err := f.sched.SetInterval(30 * time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := f.state.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Interval != 30*time.Minute {
		t.Fatalf("expected 30m interval, got %v", state.Interval)
	}
}
