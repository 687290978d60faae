package alert

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/chamodk/air-quality-fusion/internal/store"
)

const (
	keyThresholds = "alert:thresholds"
	keyHistory    = "alert:history"

	// historyCap bounds the persisted alert history, newest first.
	historyCap = 50
)

var validate = validator.New()

// Store persists alert thresholds and the recent alert history on a
// KeyValueStore.
type Store struct {
	kv store.KeyValueStore
}

func NewStore(kv store.KeyValueStore) *Store {
	return &Store{kv: kv}
}

// Thresholds returns the persisted thresholds, or the defaults when none
// have been stored yet.
func (s *Store) Thresholds() (ThresholdConfig, error) {
	raw, err := s.kv.Get(keyThresholds)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DefaultThresholds(), nil
		}
		return ThresholdConfig{}, err
	}

	var cfg ThresholdConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return ThresholdConfig{}, fmt.Errorf("failed to decode thresholds: %w", err)
	}
	return cfg, nil
}

// SetThresholds validates and persists new thresholds.
func (s *Store) SetThresholds(cfg ThresholdConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode thresholds: %w", err)
	}
	return s.kv.Set(keyThresholds, string(data))
}

// History returns recent alert events, newest first.
func (s *Store) History() ([]Event, error) {
	raw, err := s.kv.Get(keyHistory)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var events []Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, fmt.Errorf("failed to decode alert history: %w", err)
	}
	return events, nil
}

// AppendHistory prepends events and trims the history to its cap.
func (s *Store) AppendHistory(events ...Event) error {
	if len(events) == 0 {
		return nil
	}

	history, err := s.History()
	if err != nil {
		return err
	}

	history = append(append([]Event{}, events...), history...)
	if len(history) > historyCap {
		history = history[:historyCap]
	}

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode alert history: %w", err)
	}
	return s.kv.Set(keyHistory, string(data))
}
