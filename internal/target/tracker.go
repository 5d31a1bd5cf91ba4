// Package target tracks how far today's profit has moved towards the daily
// target and guards the reset that unlocks the capital again.
package target

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"osenaabo-go/internal/filestore"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultThreshold is the daily target in percent when none is configured.
	DefaultThreshold = 5.0

	percentKey = "DAILY_TARGET_REACHED"
	dateKey    = "DAILY_TARGET_DATE"
	dayLayout  = "2006-01-02"
)

// Tracker owns the daily target keys of bot_state.json. Other keys in the file
// are kept as they are when the tracker rewrites it.
//
// The tracker does not own the capital lock. Callers release it after a
// successful Reset.
type Tracker struct {
	path      string
	mu        sync.Mutex
	threshold decimal.Decimal
	now       func() time.Time
	logger    *zap.Logger
}

// NewTracker returns a tracker for the state file at path. A non-positive
// threshold means DefaultThreshold.
func NewTracker(path string, threshold float64, logger *zap.Logger) *Tracker {
	t := &Tracker{path: path, now: time.Now, logger: logger}
	t.SetThreshold(threshold)
	return t
}

// SetThreshold changes the target percentage.
func (t *Tracker) SetThreshold(threshold float64) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	t.mu.Lock()
	t.threshold = decimal.NewFromFloat(threshold)
	t.mu.Unlock()
}

// Threshold returns the target percentage.
func (t *Tracker) Threshold() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.threshold.InexactFloat64()
}

// Percent returns today's recorded percentage. A value recorded on an earlier
// day reads as 0.
func (t *Tracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, _ := t.load()
	return t.percent(state).InexactFloat64()
}

// Record stores percent as today's value.
func (t *Tracker) Record(percent float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, readErr := t.load()
	return t.write(state, readErr, decimal.NewFromFloat(percent))
}

// CanUnlock reports whether today's percentage has reached the threshold.
func (t *Tracker) CanUnlock() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, _ := t.load()
	return t.percent(state).GreaterThanOrEqual(t.threshold)
}

// Reset sets today's percentage back to 0. It does nothing and returns false
// unless the threshold has been reached and the caller passes confirmed.
func (t *Tracker) Reset(confirmed bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, readErr := t.load()
	current := t.percent(state)
	if !current.GreaterThanOrEqual(t.threshold) {
		t.logger.Warn("daily target reset refused, threshold not reached",
			zap.String("percent", current.String()), zap.String("threshold", t.threshold.String()))
		return false, nil
	}
	if !confirmed {
		t.logger.Info("daily target reset not confirmed")
		return false, nil
	}
	if err := t.write(state, readErr, decimal.Zero); err != nil {
		return false, err
	}
	t.logger.Info("daily target reset", zap.String("previous", current.String()))
	return true, nil
}

// load reads the whole state file. A missing or corrupt file is an empty
// state; the read error is returned so that writers can keep a corrupt file.
func (t *Tracker) load() (map[string]json.RawMessage, error) {
	state := map[string]json.RawMessage{}
	err := filestore.ReadJSON(t.path, &state)
	switch {
	case err == nil:
		if state == nil {
			state = map[string]json.RawMessage{}
		}
		return state, nil
	case errors.Is(err, os.ErrNotExist):
	default:
		t.logger.Warn("bot state unreadable, daily target starts at 0", zap.String("path", t.path), zap.Error(err))
	}
	return map[string]json.RawMessage{}, err
}

func (t *Tracker) percent(state map[string]json.RawMessage) decimal.Decimal {
	raw, ok := state[percentKey]
	if !ok {
		return decimal.Zero
	}
	if rawDate, ok := state[dateKey]; ok {
		var day string
		if err := json.Unmarshal(rawDate, &day); err != nil || day != t.now().Local().Format(dayLayout) {
			return decimal.Zero
		}
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		t.logger.Warn("daily target value unreadable", zap.ByteString("value", raw), zap.Error(err))
		return decimal.Zero
	}
	return decimal.NewFromFloat(value)
}

func (t *Tracker) write(state map[string]json.RawMessage, readErr error, percent decimal.Decimal) error {
	value, err := json.Marshal(percent.InexactFloat64())
	if err != nil {
		return err
	}
	day, err := json.Marshal(t.now().Local().Format(dayLayout))
	if err != nil {
		return err
	}
	if errors.Is(readErr, filestore.ErrCorrupt) {
		aside, err := filestore.Quarantine(t.path, t.now())
		if err != nil {
			return fmt.Errorf("saving daily target: %w", err)
		}
		t.logger.Warn("corrupt bot state kept for inspection", zap.String("kept_as", aside))
	}
	state[percentKey] = value
	state[dateKey] = day
	if err := filestore.WriteJSON(t.path, state); err != nil {
		return fmt.Errorf("saving daily target: %w", err)
	}
	return nil
}
