package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const keyFetchState = "fetch:state"

// FetchState is the process-wide scheduler state persisted across restarts.
// A zero LastFetch means no fetch has succeeded yet.
type FetchState struct {
	LastFetch time.Time     `json:"lastFetch"`
	Interval  time.Duration `json:"intervalMs"`
}

// fetchStateDoc is the stored wire form, with the interval in milliseconds.
type fetchStateDoc struct {
	LastFetchMs int64 `json:"lastFetchMs"`
	IntervalMs  int64 `json:"intervalMs"`
}

// StateStore persists FetchState on a KeyValueStore.
type StateStore struct {
	kv              KeyValueStore
	defaultInterval time.Duration
}

// NewStateStore creates a StateStore. defaultInterval is used when no state
// has been persisted yet or the stored interval is invalid.
func NewStateStore(kv KeyValueStore, defaultInterval time.Duration) *StateStore {
	return &StateStore{
		kv:              kv,
		defaultInterval: defaultInterval,
	}
}

// Load returns the persisted state, falling back to defaults when nothing
// has been stored.
func (s *StateStore) Load() (FetchState, error) {
	raw, err := s.kv.Get(keyFetchState)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return FetchState{Interval: s.defaultInterval}, nil
		}
		return FetchState{}, err
	}

	var doc fetchStateDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return FetchState{}, fmt.Errorf("failed to decode fetch state: %w", err)
	}

	state := FetchState{
		Interval: time.Duration(doc.IntervalMs) * time.Millisecond,
	}
	if doc.LastFetchMs > 0 {
		state.LastFetch = time.UnixMilli(doc.LastFetchMs).UTC()
	}
	if state.Interval <= 0 {
		state.Interval = s.defaultInterval
	}
	return state, nil
}

// Save persists the state.
func (s *StateStore) Save(state FetchState) error {
	doc := fetchStateDoc{
		IntervalMs: state.Interval.Milliseconds(),
	}
	if !state.LastFetch.IsZero() {
		doc.LastFetchMs = state.LastFetch.UnixMilli()
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode fetch state: %w", err)
	}
	return s.kv.Set(keyFetchState, string(data))
}
