// Package bot drives one trading run at a time: license gate, session
// continuity, capital lock, periodic persistence and a cooperative stop.
package bot

import (
	"context"
	"errors"
	"fmt"
	"osenaabo-go/internal/audit"
	"osenaabo-go/internal/models"
	"osenaabo-go/internal/schedule"
	"osenaabo-go/internal/session"
	"osenaabo-go/internal/target"
	"osenaabo-go/internal/validation"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jxskiss/base62"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ActivityRefreshSteps is how often, in steps, the run refreshes last_activity
// in the session artifacts.
const ActivityRefreshSteps = 3

var (
	ErrAlreadyRunning = errors.New("a trading run is already active")
	ErrCapitalLocked  = errors.New("capital is locked")
	ErrNotLicensed    = errors.New("no valid license for this computer")
	ErrDeferred       = errors.New("daily target already reached, start again tomorrow")
	ErrOutsideHours   = errors.New("outside configured betting hours")
	ErrInvalidCapital = errors.New("capital must be greater than zero")
)

// LicenseGate reports whether this device may trade.
type LicenseGate interface {
	Check() models.LicenseOutcome
}

// Deps are the stores and collaborators a Bot works with.
type Deps struct {
	License    LicenseGate
	Ledger     *session.Ledger
	Artifacts  *session.Artifacts
	Tracker    *target.Tracker
	Validation *validation.Store
	Trader     Trader
	Audit      audit.Sink
	Logger     *zap.Logger
}

// StartOptions configures one run.
type StartOptions struct {
	// Capital used when the run does not continue an earlier session. Zero
	// falls back to the capital set with SetCapital.
	Capital float64
	// Confirm answers the continuity and betting-hours prompts.
	Confirm session.Confirmer
}

// Run is the state of one trading run. The trader may read it and may update
// Artifacts and Validation from inside Step.
type Run struct {
	ID             string
	Day            string
	Decision       models.Decision
	StartedAt      time.Time
	StartCapital   float64
	Capital        float64
	OpeningCapital float64
	BaseBet        float64
	Steps          int
	Artifacts      models.SessionArtifacts
	Validation     models.ValidationState

	pendingProfit float64
	stopReason    string
}

// Snapshot is a copy of a run's scalar fields, safe to read from any goroutine.
type Snapshot struct {
	ID             string
	Day            string
	Decision       models.Decision
	StartedAt      time.Time
	StartCapital   float64
	Capital        float64
	OpeningCapital float64
	BaseBet        float64
	Steps          int
	StopReason     string
}

// Bot is the run controller.
type Bot struct {
	deps Deps

	mutex         sync.RWMutex
	config        *models.Config
	schedule      schedule.Schedule
	isRunning     bool
	capital       float64
	targetLocked  bool
	run           *Run
	last          Snapshot
	stopChannel   chan struct{}
	doneChannel   chan struct{}
	cancelTrading context.CancelFunc

	now func() time.Time
}

// NewBot creates a controller. The capital stays locked if today's target was
// already reached.
func NewBot(cfg *models.Config, deps Deps) (*Bot, error) {
	sched, err := schedule.Parse(cfg.BettingHours)
	if err != nil {
		return nil, err
	}
	if deps.Audit == nil {
		deps.Audit = audit.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Tracker.SetThreshold(cfg.DailyTargetPercent)

	closed := make(chan struct{})
	close(closed)
	return &Bot{
		deps:         deps,
		config:       cfg,
		schedule:     sched,
		targetLocked: deps.Tracker.CanUnlock(),
		doneChannel:  closed,
		now:          time.Now,
	}, nil
}

// SetConfig applies a reloaded configuration. A running run picks up the new
// threshold at its next session and the new base bet rate at its next run.
func (b *Bot) SetConfig(cfg *models.Config) error {
	sched, err := schedule.Parse(cfg.BettingHours)
	if err != nil {
		return err
	}
	b.mutex.Lock()
	b.config = cfg
	b.schedule = sched
	b.mutex.Unlock()
	b.deps.Tracker.SetThreshold(cfg.DailyTargetPercent)
	return nil
}

// SetCapital changes the capital for the next fresh run.
func (b *Bot) SetCapital(capital float64) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.isRunning || b.targetLocked {
		return ErrCapitalLocked
	}
	if capital <= 0 {
		return ErrInvalidCapital
	}
	b.capital = capital
	return nil
}

// CapitalLocked reports whether capital edits are refused.
func (b *Bot) CapitalLocked() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.isRunning || b.targetLocked
}

// IsRunning reports whether a run is active.
func (b *Bot) IsRunning() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.isRunning
}

// Snapshot returns the active run, or the last finished one.
func (b *Bot) Snapshot() Snapshot {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if b.run != nil {
		return b.run.snapshot()
	}
	return b.last
}

// BaseBet returns capital multiplied by the configured base bet rate.
func (b *Bot) BaseBet(capital float64) float64 {
	b.mutex.RLock()
	rate := b.config.BaseBetRate
	b.mutex.RUnlock()
	return decimal.NewFromFloat(capital).Mul(decimal.NewFromFloat(rate)).Round(2).InexactFloat64()
}

func (r *Run) snapshot() Snapshot {
	return Snapshot{
		ID:             r.ID,
		Day:            r.Day,
		Decision:       r.Decision,
		StartedAt:      r.StartedAt,
		StartCapital:   r.StartCapital,
		Capital:        r.Capital,
		OpeningCapital: r.OpeningCapital,
		BaseBet:        r.BaseBet,
		Steps:          r.Steps,
		StopReason:     r.stopReason,
	}
}

// Start runs the pre-flight checks and launches the background run.
func (b *Bot) Start(opts StartOptions) (Snapshot, error) {
	if outcome := b.deps.License.Check(); !outcome.Valid {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotLicensed, outcome.Message)
	}
	confirm := opts.Confirm
	if confirm == nil {
		confirm = session.ConfirmFunc(func(string) bool { return false })
	}

	// Reserve the run slot so that a second Start fails fast while this one is prompting.
	b.mutex.Lock()
	if b.isRunning {
		b.mutex.Unlock()
		return Snapshot{}, ErrAlreadyRunning
	}
	b.isRunning = true
	sched := b.schedule
	capital := opts.Capital
	if capital <= 0 {
		capital = b.capital
	}
	b.mutex.Unlock()

	run, err := b.prepare(sched, capital, confirm)
	if err != nil {
		b.mutex.Lock()
		b.isRunning = false
		b.mutex.Unlock()
		return Snapshot{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.mutex.Lock()
	b.run = run
	b.capital = run.Capital
	b.stopChannel = make(chan struct{})
	b.doneChannel = make(chan struct{})
	b.cancelTrading = cancel
	snap := run.snapshot()
	stop, done := b.stopChannel, b.doneChannel
	b.mutex.Unlock()

	b.deps.Logger.Info("trading run started",
		zap.String("run_id", run.ID),
		zap.String("decision", string(run.Decision)),
		zap.Float64("capital", run.Capital),
		zap.Float64("base_bet", run.BaseBet))
	b.deps.Audit.Record(models.AuditEvent{
		Time:    b.now(),
		Kind:    models.AuditRunStart,
		OK:      true,
		Message: "run started",
		Fields: map[string]string{
			"run_id":   run.ID,
			"decision": string(run.Decision),
			"capital":  decimal.NewFromFloat(run.Capital).String(),
		},
	})

	go b.loop(ctx, run, stop, done)
	return snap, nil
}

// prepare resolves the continuity decision and builds the run.
func (b *Bot) prepare(sched schedule.Schedule, capital float64, confirm session.Confirmer) (*Run, error) {
	now := b.now()
	if !sched.Within(now) && !confirm.Confirm(schedule.OutsidePrompt) {
		return nil, ErrOutsideHours
	}

	day := session.DayKey(now)
	today := b.deps.Ledger.Load(day)
	decision := session.Decide(today, confirm)
	b.deps.Audit.Record(models.AuditEvent{
		Time:    now,
		Kind:    models.AuditDecision,
		OK:      decision != models.Tomorrow,
		Message: string(decision),
		Fields:  map[string]string{"day": day, "sessions": fmt.Sprint(len(today.Sessions))},
	})

	artifacts := models.SessionArtifacts{}
	switch decision {
	case models.Tomorrow:
		return nil, ErrDeferred
	case models.Reset:
		if err := session.ResetDay(b.deps.Ledger, b.deps.Artifacts, day); err != nil {
			return nil, err
		}
		if _, err := b.resetTarget(true); err != nil {
			return nil, err
		}
	case models.Continue:
		last, _ := today.Last()
		capital = last.CapitalAfter
		artifacts = b.deps.Artifacts.Load(day)
	}

	if capital <= 0 {
		return nil, ErrInvalidCapital
	}

	opening := capital
	if decision != models.Reset {
		opening = session.OpeningCapital(today, capital)
	}

	return &Run{
		ID:             newRunID(),
		Day:            day,
		Decision:       decision,
		StartedAt:      now,
		StartCapital:   capital,
		Capital:        capital,
		OpeningCapital: opening,
		BaseBet:        b.BaseBet(capital),
		Artifacts:      artifacts,
		Validation:     b.deps.Validation.Load(),
	}, nil
}

func newRunID() string {
	id := uuid.New()
	return base62.EncodeToString(id[:])
}

// Stop signals the active run and waits until it has flushed its state.
func (b *Bot) Stop() {
	b.mutex.Lock()
	if b.run == nil || b.stopChannel == nil {
		b.mutex.Unlock()
		return
	}
	select {
	case <-b.stopChannel:
	default:
		close(b.stopChannel)
	}
	if b.cancelTrading != nil {
		b.cancelTrading()
	}
	done := b.doneChannel
	b.mutex.Unlock()
	<-done
}

// Wait blocks until the active run, if any, has finished.
func (b *Bot) Wait() {
	b.mutex.RLock()
	done := b.doneChannel
	b.mutex.RUnlock()
	<-done
}

// Done is closed when the active run has finished.
func (b *Bot) Done() <-chan struct{} {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.doneChannel
}

// ResetDailyTarget zeroes today's target percentage and releases the capital
// lock. It refuses while a run is active, below the threshold and without confirmation.
func (b *Bot) ResetDailyTarget(confirmed bool) (bool, error) {
	if b.IsRunning() {
		return false, ErrAlreadyRunning
	}
	return b.resetTarget(confirmed)
}

func (b *Bot) resetTarget(confirmed bool) (bool, error) {
	previous := b.deps.Tracker.Percent()
	ok, err := b.deps.Tracker.Reset(confirmed)
	if err != nil {
		return false, err
	}
	if ok {
		b.mutex.Lock()
		b.targetLocked = false
		b.mutex.Unlock()
	}
	b.deps.Audit.Record(models.AuditEvent{
		Time:    b.now(),
		Kind:    models.AuditTargetReset,
		OK:      ok,
		Message: fmt.Sprintf("daily target reset from %.2f%%", previous),
		Fields:  map[string]string{"confirmed": fmt.Sprint(confirmed)},
	})
	return ok, nil
}

// recordSession closes a session with the given profit. Profit percent is
// measured against the day's opening capital; reaching the threshold marks
// the ledger and locks the capital. It reports whether the target was reached.
// A run that has crossed midnight is measured against the new day.
func (b *Bot) recordSession(run *Run, profit float64) (bool, error) {
	if day := b.deps.Ledger.Today(); day != run.Day {
		opening := session.OpeningCapital(b.deps.Ledger.Load(day), run.Capital)
		b.deps.Logger.Info("run crossed into a new day",
			zap.String("run_id", run.ID),
			zap.String("previous_day", run.Day),
			zap.String("day", day),
			zap.Float64("opening_capital", opening))
		b.mutex.Lock()
		run.Day = day
		run.OpeningCapital = opening
		b.mutex.Unlock()
	}

	capitalAfter := decimal.NewFromFloat(run.Capital).Add(decimal.NewFromFloat(profit))
	opening := decimal.NewFromFloat(run.OpeningCapital)
	percent := decimal.Zero
	if opening.IsPositive() {
		percent = capitalAfter.Sub(opening).Div(opening).Mul(decimal.NewFromInt(100)).Round(4)
	}
	threshold := decimal.NewFromFloat(b.deps.Tracker.Threshold())
	reached := percent.GreaterThanOrEqual(threshold)

	after := capitalAfter.InexactFloat64()
	if _, err := b.deps.Ledger.Append(profit, after, reached); err != nil {
		return false, err
	}
	if err := b.deps.Tracker.Record(percent.InexactFloat64()); err != nil {
		b.deps.Logger.Error("failed to record daily target", zap.Error(err))
	}

	b.mutex.Lock()
	run.Capital = after
	b.capital = after
	if reached {
		b.targetLocked = true
	}
	b.mutex.Unlock()

	b.deps.Logger.Info("session recorded",
		zap.String("run_id", run.ID),
		zap.Float64("profit", profit),
		zap.Float64("capital_after", after),
		zap.String("percent", percent.String()),
		zap.Bool("target_reached", reached))
	b.deps.Audit.Record(models.AuditEvent{
		Time:    b.now(),
		Kind:    models.AuditSession,
		OK:      true,
		Message: fmt.Sprintf("profit %s (%s%%)", decimal.NewFromFloat(profit).String(), percent.String()),
		Fields: map[string]string{
			"run_id":         run.ID,
			"capital_after":  capitalAfter.String(),
			"target_reached": fmt.Sprint(reached),
		},
	})
	return reached, nil
}
