// Package session keeps the per-day session ledger and cached session
// artifacts, and decides how a new run relates to the day's earlier runs.
package session

import (
	"errors"
	"fmt"
	"os"
	"osenaabo-go/internal/filestore"
	"osenaabo-go/internal/models"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DayLayout formats the local calendar date that keys every per-day file.
const DayLayout = "2006-01-02"

// DayKey returns the ledger key for t in local time.
func DayKey(t time.Time) string {
	return t.Local().Format(DayLayout)
}

// Ledger owns sessions/session_<date>.json. Previous days are read-only history.
type Ledger struct {
	dir    string
	mu     sync.Mutex
	now    func() time.Time
	logger *zap.Logger
}

// NewLedger returns a ledger storing its files in dir.
func NewLedger(dir string, logger *zap.Logger) *Ledger {
	return &Ledger{dir: dir, now: time.Now, logger: logger}
}

// SetClock replaces the clock that decides which day Append writes to.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Today returns the key of the current local day.
func (l *Ledger) Today() string {
	return DayKey(l.now())
}

// Path returns the file holding day's ledger.
func (l *Ledger) Path(day string) string {
	return filepath.Join(l.dir, fmt.Sprintf("session_%s.json", day))
}

// Load returns day's ledger. A missing or corrupt file yields the empty ledger.
func (l *Ledger) Load(day string) models.SessionLedger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(day)
}

// Append adds one session to today's ledger and rewrites the whole file.
// target_reached on the ledger only ever goes from false to true here.
func (l *Ledger) Append(profit, capitalAfter float64, targetReached bool) (models.SessionLedger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	day := DayKey(now)
	ledger, err := l.read(day)
	switch {
	case err == nil, errors.Is(err, os.ErrNotExist):
	case errors.Is(err, filestore.ErrCorrupt):
		aside, qerr := filestore.Quarantine(l.Path(day), now)
		if qerr != nil {
			return models.SessionLedger{}, fmt.Errorf("recording session: %w", qerr)
		}
		l.logger.Error("session ledger corrupt, moved aside before recording",
			zap.String("day", day), zap.String("kept_as", aside), zap.Error(err))
	default:
		l.logger.Warn("session ledger unreadable, starting the day's file over", zap.String("day", day), zap.Error(err))
	}
	ledger.Sessions = append(ledger.Sessions, models.SessionRecord{
		Timestamp:     now,
		Profit:        profit,
		CapitalAfter:  capitalAfter,
		TargetReached: targetReached,
	})
	ledger.TargetReached = ledger.TargetReached || targetReached

	if err := filestore.WriteJSON(l.Path(day), ledger); err != nil {
		return models.SessionLedger{}, fmt.Errorf("recording session: %w", err)
	}
	return ledger, nil
}

// Reset empties day's ledger. Use ResetDay to clear the artifacts with it.
func (l *Ledger) Reset(day string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return filestore.WriteJSON(l.Path(day), models.EmptyLedger())
}

func (l *Ledger) load(day string) models.SessionLedger {
	ledger, err := l.read(day)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("session ledger unreadable, treating day as empty", zap.String("day", day), zap.Error(err))
	}
	return ledger
}

// read returns day's ledger together with the read error. The ledger is the
// empty one whenever the error is non-nil.
func (l *Ledger) read(day string) (models.SessionLedger, error) {
	var ledger models.SessionLedger
	if err := filestore.ReadJSON(l.Path(day), &ledger); err != nil {
		return models.EmptyLedger(), err
	}
	if ledger.Sessions == nil {
		ledger.Sessions = []models.SessionRecord{}
	}
	return ledger, nil
}

// OpeningCapital returns the capital the day opened with, for a run that
// starts with startCapital. Capital changed between runs (a run started with
// more or less than the previous session ended on) shifts the opening by the
// same amount, so that the day's percentage counts realised profit only. An
// empty ledger, or an adjusted opening that is not positive, yields startCapital.
func OpeningCapital(ledger models.SessionLedger, startCapital float64) float64 {
	if len(ledger.Sessions) == 0 {
		return startCapital
	}
	first := ledger.Sessions[0]
	opening := decimal.NewFromFloat(first.CapitalAfter).Sub(decimal.NewFromFloat(first.Profit))
	previous := decimal.NewFromFloat(first.CapitalAfter)
	for _, rec := range ledger.Sessions[1:] {
		start := decimal.NewFromFloat(rec.CapitalAfter).Sub(decimal.NewFromFloat(rec.Profit))
		opening = opening.Add(start.Sub(previous))
		previous = decimal.NewFromFloat(rec.CapitalAfter)
	}
	opening = opening.Add(decimal.NewFromFloat(startCapital).Sub(previous))
	if !opening.IsPositive() {
		return startCapital
	}
	return opening.InexactFloat64()
}
