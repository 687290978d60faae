package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/chamodk/air-quality-fusion/internal/airquality"
	"github.com/chamodk/air-quality-fusion/internal/alert"
	"github.com/chamodk/air-quality-fusion/internal/location"
	"github.com/chamodk/air-quality-fusion/internal/notify"
	"github.com/chamodk/air-quality-fusion/internal/store"
)

// Outcome classifies the result of one fetch cycle.
type Outcome string

const (
	// OutcomeSkipped means the interval guard (or an in-flight cycle)
	// suppressed the tick without side effects.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeSuccess means every provider contributed and the snapshot
	// was persisted.
	OutcomeSuccess Outcome = "success"
	// OutcomePartialFailure means at least one provider failed but a
	// snapshot was still fused and persisted.
	OutcomePartialFailure Outcome = "partial_failure"
	// OutcomeTotalFailure means location resolution failed; no snapshot
	// was produced and the last fetch time was not advanced.
	OutcomeTotalFailure Outcome = "total_failure"
	// OutcomePersistFailed means fusion succeeded but the cache write
	// failed; callers may retry persistence without re-fetching.
	OutcomePersistFailed Outcome = "persist_failed"
)

// Result carries the outcome of a tick along with whatever the cycle
// produced.
type Result struct {
	Outcome  Outcome                   `json:"outcome"`
	Snapshot *airquality.FusedSnapshot `json:"snapshot,omitempty"`
	Alerts   []alert.Event             `json:"alerts,omitempty"`
	Err      error                     `json:"-"`
}

// Scheduler drives the periodic fetch pipeline: resolve location, query all
// providers concurrently, normalize, fuse, persist, evaluate alerts. The
// minimum re-fetch interval and the last fetch time are persisted so gating
// survives process restarts.
type Scheduler struct {
	cron *gocron.Scheduler

	resolver    location.Resolver
	iqAir       airquality.IQAirClient
	openWeather airquality.OpenWeatherClient
	weatherAPI  airquality.WeatherAPIClient
	engine      *airquality.Engine
	cache       *store.Cache
	state       *store.StateStore
	alerts      *alert.Store
	sink        notify.Sink

	// mu guards the read-state/decide/write-state section; inFlight makes a
	// tick that races a running cycle skip instead of double-fetching.
	mu       sync.Mutex
	inFlight bool
}

// Deps bundles the collaborators a Scheduler needs.
type Deps struct {
	Resolver    location.Resolver
	IQAir       airquality.IQAirClient
	OpenWeather airquality.OpenWeatherClient
	WeatherAPI  airquality.WeatherAPIClient
	Engine      *airquality.Engine
	Cache       *store.Cache
	State       *store.StateStore
	Alerts      *alert.Store
	Sink        notify.Sink
}

// New creates a Scheduler.
func New(deps Deps) *Scheduler {
	return &Scheduler{
		cron:        gocron.NewScheduler(time.UTC),
		resolver:    deps.Resolver,
		iqAir:       deps.IQAir,
		openWeather: deps.OpenWeather,
		weatherAPI:  deps.WeatherAPI,
		engine:      deps.Engine,
		cache:       deps.Cache,
		state:       deps.State,
		alerts:      deps.Alerts,
		sink:        deps.Sink,
	}
}

// Tick runs one scheduled fetch cycle at the given time. It returns
// OutcomeSkipped without side effects when the minimum interval since the
// last successful fetch has not elapsed or another cycle is in flight.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) Result {
	return s.run(ctx, now, false)
}

// ManualFetch bypasses the interval guard for a user-initiated refresh. It
// runs the same pipeline and still advances the last fetch time on success.
func (s *Scheduler) ManualFetch(ctx context.Context) Result {
	return s.run(ctx, time.Now(), true)
}

func (s *Scheduler) run(ctx context.Context, now time.Time, force bool) Result {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		log.Println("scheduler: fetch already in flight; skipping")
		return Result{Outcome: OutcomeSkipped}
	}

	state, err := s.state.Load()
	if err != nil {
		s.mu.Unlock()
		log.Printf("scheduler: failed to load fetch state: %v", err)
		return Result{Outcome: OutcomeTotalFailure, Err: err}
	}

	if !force && !state.LastFetch.IsZero() && now.Sub(state.LastFetch) < state.Interval {
		s.mu.Unlock()
		return Result{Outcome: OutcomeSkipped}
	}

	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	result := s.runPipeline(ctx)

	// The last fetch time is committed only after the cycle fused and
	// persisted; a total failure or persist failure leaves it untouched.
	// The state is re-read under the lock so an interval change made while
	// the pipeline was running is not overwritten.
	if result.Outcome == OutcomeSuccess || result.Outcome == OutcomePartialFailure {
		s.mu.Lock()
		current, err := s.state.Load()
		if err != nil {
			log.Printf("scheduler: failed to reload fetch state: %v", err)
			current = state
		}
		current.LastFetch = now
		if err := s.state.Save(current); err != nil {
			log.Printf("scheduler: failed to persist fetch state: %v", err)
		}
		s.mu.Unlock()
	}

	return result
}

// runPipeline executes location -> fan-out fetch -> normalize -> fuse ->
// persist -> alerts for a single cycle.
func (s *Scheduler) runPipeline(ctx context.Context) Result {
	fix, err := s.resolver.Resolve(ctx)
	if err != nil {
		log.Printf("scheduler: location resolution failed: %v", err)
		return Result{Outcome: OutcomeTotalFailure, Err: err}
	}

	raw := s.fetchAll(ctx, fix)

	readings := airquality.Readings{
		IQAir:          airquality.NormalizeIQAir(raw.iqAir),
		OpenWeatherAQI: airquality.NormalizeOpenWeatherAQI(raw.openWeather),
		OpenWeatherUV:  airquality.NormalizeOpenWeatherUV(raw.openWeather),
		WeatherAPIUV:   airquality.NormalizeWeatherAPIUV(raw.weatherAPI),
	}

	snapshot := s.engine.Fuse(readings, fix.Coordinate)

	outcome := OutcomeSuccess
	if raw.failures > 0 {
		outcome = OutcomePartialFailure
	}

	if err := s.persist(snapshot); err != nil {
		log.Printf("scheduler: failed to persist snapshot: %v", err)
		return Result{Outcome: OutcomePersistFailed, Snapshot: &snapshot, Err: err}
	}

	events := s.evaluateAlerts(snapshot)

	return Result{Outcome: outcome, Snapshot: &snapshot, Alerts: events}
}

// rawResults holds the settled fan-out results of one cycle. failures counts
// providers that yielded no data.
type rawResults struct {
	iqAir       *airquality.IQAirResult
	openWeather *airquality.OpenWeatherResult
	weatherAPI  *airquality.WeatherAPIResult
	failures    int
}

// fetchAll queries the three providers concurrently and waits for all of
// them to settle. A provider failure yields nil for that source and never
// cancels the others.
func (s *Scheduler) fetchAll(ctx context.Context, fix location.Fix) rawResults {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		raw rawResults
	)

	fail := func(name string, err error) {
		mu.Lock()
		raw.failures++
		mu.Unlock()
		log.Printf("provider %s fetch failed: %v", name, err)
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		r, err := s.iqAir.Fetch(ctx, fix.Coordinate)
		if err != nil {
			fail(s.iqAir.Name(), err)
			return
		}
		mu.Lock()
		raw.iqAir = r
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		r, err := s.openWeather.Fetch(ctx, fix.Coordinate)
		if err != nil {
			fail(s.openWeather.Name(), err)
			return
		}
		mu.Lock()
		raw.openWeather = r
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		r, err := s.weatherAPI.Fetch(ctx, fix.Coordinate)
		if err != nil {
			fail(s.weatherAPI.Name(), err)
			return
		}
		mu.Lock()
		raw.weatherAPI = r
		mu.Unlock()
	}()

	wg.Wait()
	return raw
}

func (s *Scheduler) persist(snapshot airquality.FusedSnapshot) error {
	if err := s.cache.SetLatest(snapshot); err != nil {
		return err
	}
	return s.cache.AppendHistory(airquality.HistoryEntryFromSnapshot(snapshot))
}

// evaluateAlerts checks thresholds, records events and forwards them to the
// notification sink. Alert failures never fail the cycle.
func (s *Scheduler) evaluateAlerts(snapshot airquality.FusedSnapshot) []alert.Event {
	thresholds, err := s.alerts.Thresholds()
	if err != nil {
		log.Printf("scheduler: failed to load thresholds: %v", err)
		thresholds = alert.DefaultThresholds()
	}

	events := alert.Evaluate(snapshot, thresholds)
	if len(events) == 0 {
		return nil
	}

	if err := s.alerts.AppendHistory(events...); err != nil {
		log.Printf("scheduler: failed to record alert history: %v", err)
	}

	for _, e := range events {
		title, body := notify.Message(e)
		if err := s.sink.Send(title, body); err != nil {
			log.Printf("scheduler: notification send failed: %v", err)
		}
	}

	return events
}

// Interval returns the currently persisted minimum re-fetch interval.
func (s *Scheduler) Interval() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state.Load()
	if err != nil {
		return 0, err
	}
	return state.Interval, nil
}

// SetInterval persists a new minimum re-fetch interval.
func (s *Scheduler) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.state.Load()
	if err != nil {
		return err
	}
	state.Interval = interval
	return s.state.Save(state)
}

// Start registers the periodic job with the underlying cron scheduler. The
// persisted interval guard in Tick decides whether a cycle actually runs,
// so gating survives restarts even if the job fires early after one.
func (s *Scheduler) Start() error {
	state, err := s.state.Load()
	if err != nil {
		return err
	}

	minutes := int(state.Interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err = s.cron.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		result := s.Tick(ctx, time.Now())
		log.Printf("scheduler: fetch cycle finished with outcome %s", result.Outcome)
	})
	if err != nil {
		return err
	}

	s.cron.StartAsync()
	return nil
}

// Stop stops the underlying cron scheduler.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
