package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chamodk/air-quality-fusion/internal/airquality"
)

const (
	keyLatest  = "air:latest"
	keyHistory = "air:history"
)

// Cache persists the latest fused snapshot and the rolling time-series
// history on top of a KeyValueStore.
type Cache struct {
	kv KeyValueStore

	// staleAfter is the staleness ceiling for Latest, distinct from the
	// fetch interval.
	staleAfter time.Duration

	// retention bounds the history window relative to append time.
	retention time.Duration

	now func() time.Time
}

// cachedSnapshot wraps a snapshot with the time it was written, which drives
// the staleness check independently of the snapshot's own timestamp.
type cachedSnapshot struct {
	Snapshot airquality.FusedSnapshot `json:"snapshot"`
	CachedAt time.Time                `json:"cachedAt"`
}

// NewCache creates a Cache. staleAfter and retention must be positive.
func NewCache(kv KeyValueStore, staleAfter, retention time.Duration) *Cache {
	return &Cache{
		kv:         kv,
		staleAfter: staleAfter,
		retention:  retention,
		now:        time.Now,
	}
}

// Latest returns the most recent snapshot, or ErrNotFound when nothing is
// stored or the stored snapshot is older than the staleness ceiling.
func (c *Cache) Latest() (airquality.FusedSnapshot, error) {
	raw, err := c.kv.Get(keyLatest)
	if err != nil {
		return airquality.FusedSnapshot{}, err
	}

	var cached cachedSnapshot
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return airquality.FusedSnapshot{}, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}

	if c.now().Sub(cached.CachedAt) > c.staleAfter {
		return airquality.FusedSnapshot{}, ErrNotFound
	}

	return cached.Snapshot, nil
}

// SetLatest overwrites the stored snapshot.
func (c *Cache) SetLatest(snapshot airquality.FusedSnapshot) error {
	data, err := json.Marshal(cachedSnapshot{
		Snapshot: snapshot,
		CachedAt: c.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return c.kv.Set(keyLatest, string(data))
}

// AppendHistory appends an entry and prunes entries older than the retention
// window relative to append time, preserving insertion order of survivors.
func (c *Cache) AppendHistory(entry airquality.HistoryEntry) error {
	entries, err := c.loadHistory()
	if err != nil {
		return err
	}

	entries = append(entries, entry)
	entries = c.prune(entries)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return c.kv.Set(keyHistory, string(data))
}

// History returns the pruned, chronologically ordered history. When since is
// non-zero, only entries at or after it are returned. An empty history is
// not an error.
func (c *Cache) History(since time.Time) ([]airquality.HistoryEntry, error) {
	entries, err := c.loadHistory()
	if err != nil {
		return nil, err
	}

	entries = c.prune(entries)

	if since.IsZero() {
		return entries, nil
	}

	var result []airquality.HistoryEntry
	for _, e := range entries {
		if !e.Timestamp.Before(since) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (c *Cache) loadHistory() ([]airquality.HistoryEntry, error) {
	raw, err := c.kv.Get(keyHistory)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entries []airquality.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return entries, nil
}

func (c *Cache) prune(entries []airquality.HistoryEntry) []airquality.HistoryEntry {
	cutoff := c.now().Add(-c.retention)

	var kept []airquality.HistoryEntry
	for _, e := range entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}
