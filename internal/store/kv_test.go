package store

import (
	"errors"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Get("air:latest"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}

	if err := s.Set("air:latest", `{"aqi":50}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := s.Get("air:latest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != `{"aqi":50}` {
		t.Fatalf("unexpected value: %s", v)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set("fetch:state", "persisted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A new store over the same directory sees the data, simulating a
	// process restart.
	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := reopened.Get("fetch:state")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "persisted" {
		t.Fatalf("unexpected value: %s", v)
	}
}

func TestStateStoreDefaults(t *testing.T) {
	s := NewStateStore(NewMemoryStore(), time.Hour)

	state, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.LastFetch.IsZero() {
		t.Fatal("expected zero last fetch time")
	}
	if state.Interval != time.Hour {
		t.Fatalf("expected default interval 1h, got %v", state.Interval)
	}
}

func TestStateStoreRoundTrip(t *testing.T) {
	s := NewStateStore(NewMemoryStore(), time.Hour)

	last := time.Now().UTC().Truncate(time.Millisecond)
	if err := s.Save(FetchState{LastFetch: last, Interval: 30 * time.Minute}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.LastFetch.Equal(last) {
		t.Fatalf("expected last fetch %v, got %v", last, state.LastFetch)
	}
	if state.Interval != 30*time.Minute {
		t.Fatalf("expected interval 30m, got %v", state.Interval)
	}
}
