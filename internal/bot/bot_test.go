package bot

import (
	"context"
	"errors"
	"os"
	"osenaabo-go/internal/models"
	"osenaabo-go/internal/schedule"
	"osenaabo-go/internal/session"
	"osenaabo-go/internal/target"
	"osenaabo-go/internal/validation"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type licenseGate bool

func (g licenseGate) Check() models.LicenseOutcome {
	if g {
		return models.LicenseOutcome{Valid: true, Message: "License active"}
	}
	return models.LicenseOutcome{Valid: false, Message: "No valid license"}
}

// answers replies per prompt; unknown prompts are declined.
type answers map[string]bool

func (a answers) Confirm(prompt string) bool { return a[prompt] }

func allowAnyHour(extra answers) answers {
	out := answers{schedule.OutsidePrompt: true}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

type fixture struct {
	dir        string
	bot        *Bot
	ledger     *session.Ledger
	artifacts  *session.Artifacts
	tracker    *target.Tracker
	validation *validation.Store
	trader     *switchTrader
}

// switchTrader forwards to whichever trader the test installed last.
type switchTrader struct {
	mu   sync.Mutex
	next Trader
}

func (s *switchTrader) set(t Trader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = t
}

func (s *switchTrader) Step(ctx context.Context, run *Run) (StepResult, error) {
	s.mu.Lock()
	t := s.next
	s.mu.Unlock()
	return t.Step(ctx, run)
}

func oneSession(profit float64) Trader {
	return TraderFunc(func(context.Context, *Run) (StepResult, error) {
		return StepResult{Profit: profit, SessionClosed: true, Done: true}, nil
	})
}

func untilCancelled() Trader {
	return TraderFunc(func(ctx context.Context, _ *Run) (StepResult, error) {
		<-ctx.Done()
		return StepResult{}, ctx.Err()
	})
}

func newFixture(t *testing.T, licensed bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()
	f := &fixture{
		dir:        dir,
		ledger:     session.NewLedger(filepath.Join(dir, "sessions"), logger),
		artifacts:  session.NewArtifacts(filepath.Join(dir, "sessions"), logger),
		tracker:    target.NewTracker(filepath.Join(dir, "bot_state.json"), 5, logger),
		validation: validation.NewStore(filepath.Join(dir, "validation_state.json"), logger),
		trader:     &switchTrader{next: oneSession(0)},
	}
	cfg := &models.Config{DailyTargetPercent: 5, BaseBetRate: 0.001, BettingHours: schedule.DefaultHours}
	b, err := NewBot(cfg, Deps{
		License:    licenseGate(licensed),
		Ledger:     f.ledger,
		Artifacts:  f.artifacts,
		Tracker:    f.tracker,
		Validation: f.validation,
		Trader:     f.trader,
		Logger:     logger,
	})
	require.NoError(t, err)
	f.bot = b
	return f
}

func (f *fixture) today() string {
	return f.ledger.Today()
}

func TestStartRequiresLicense(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.bot.Start(StartOptions{Capital: 1000, Confirm: allowAnyHour(nil)})
	assert.True(t, errors.Is(err, ErrNotLicensed))
	assert.False(t, f.bot.IsRunning())
}

func TestDailyTargetScenario(t *testing.T) {
	f := newFixture(t, true)

	// First run: +30,000 on 1,000,000 is 3%, below the 5% target.
	f.trader.set(oneSession(30000))
	snap, err := f.bot.Start(StartOptions{Capital: 1_000_000, Confirm: allowAnyHour(nil)})
	require.NoError(t, err)
	assert.Equal(t, models.Fresh, snap.Decision)
	assert.Equal(t, 1000.0, snap.BaseBet)
	f.bot.Wait()

	ledger := f.ledger.Load(f.today())
	require.Len(t, ledger.Sessions, 1)
	assert.Equal(t, 1_030_000.0, ledger.Sessions[0].CapitalAfter)
	assert.False(t, ledger.Sessions[0].TargetReached)
	assert.False(t, ledger.TargetReached)
	assert.Equal(t, 3.0, f.tracker.Percent())
	assert.False(t, f.bot.CapitalLocked())

	// Second run continues from 1,030,000: +25,000 makes 5.5% of the day's opening capital.
	f.trader.set(oneSession(25000))
	snap, err = f.bot.Start(StartOptions{Capital: 1, Confirm: allowAnyHour(answers{session.PromptContinue: true})})
	require.NoError(t, err)
	assert.Equal(t, models.Continue, snap.Decision)
	assert.Equal(t, 1_030_000.0, snap.StartCapital)
	assert.Equal(t, 1_000_000.0, snap.OpeningCapital)
	f.bot.Wait()

	ledger = f.ledger.Load(f.today())
	require.Len(t, ledger.Sessions, 2)
	assert.Equal(t, 1_055_000.0, ledger.Sessions[1].CapitalAfter)
	assert.True(t, ledger.Sessions[1].TargetReached)
	assert.True(t, ledger.TargetReached)
	assert.Equal(t, 5.5, f.tracker.Percent())
	assert.Equal(t, stopTargetReached, f.bot.Snapshot().StopReason)

	// The day is locked.
	assert.True(t, f.bot.CapitalLocked())
	assert.ErrorIs(t, f.bot.SetCapital(2_000_000), ErrCapitalLocked)

	// Third run, reset declined: come back tomorrow.
	_, err = f.bot.Start(StartOptions{Capital: 1_000_000, Confirm: allowAnyHour(answers{session.PromptResetAfterTarget: false})})
	assert.ErrorIs(t, err, ErrDeferred)
	assert.False(t, f.bot.IsRunning())
	assert.Len(t, f.ledger.Load(f.today()).Sessions, 2)

	// Unlocking needs confirmation.
	ok, err := f.bot.ResetDailyTarget(false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, f.bot.CapitalLocked())

	ok, err = f.bot.ResetDailyTarget(true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, f.bot.CapitalLocked())
	assert.NoError(t, f.bot.SetCapital(2_000_000))
}

func TestFreshRunWithMoreCapitalCountsOnlyProfit(t *testing.T) {
	f := newFixture(t, true)

	f.trader.set(oneSession(10000))
	_, err := f.bot.Start(StartOptions{Capital: 1_000_000, Confirm: allowAnyHour(nil)})
	require.NoError(t, err)
	f.bot.Wait()

	// Continue declined: a fresh run with twice the capital that loses 1.
	f.trader.set(oneSession(-1))
	snap, err := f.bot.Start(StartOptions{Capital: 2_000_000, Confirm: allowAnyHour(answers{session.PromptContinue: false})})
	require.NoError(t, err)
	assert.Equal(t, models.Fresh, snap.Decision)
	assert.Equal(t, 1_990_000.0, snap.OpeningCapital)
	f.bot.Wait()

	ledger := f.ledger.Load(f.today())
	require.Len(t, ledger.Sessions, 2)
	assert.Equal(t, 1_999_999.0, ledger.Sessions[1].CapitalAfter)
	assert.False(t, ledger.Sessions[1].TargetReached)
	assert.False(t, ledger.TargetReached)
	assert.InDelta(t, 0.5025, f.tracker.Percent(), 1e-9)
	assert.False(t, f.bot.CapitalLocked())
}

func TestRunAcrossMidnightMeasuresNewDay(t *testing.T) {
	f := newFixture(t, true)
	day1 := time.Date(2026, 3, 10, 21, 30, 0, 0, time.Local)
	day2 := time.Date(2026, 3, 11, 0, 5, 0, 0, time.Local)
	f.ledger.SetClock(func() time.Time { return day1 })
	f.bot.now = func() time.Time { return day1 }

	_, err := f.ledger.Append(40000, 1_040_000, false)
	require.NoError(t, err)

	f.trader.set(TraderFunc(func(context.Context, *Run) (StepResult, error) {
		f.ledger.SetClock(func() time.Time { return day2 })
		return StepResult{Profit: 20000, SessionClosed: true, Done: true}, nil
	}))
	snap, err := f.bot.Start(StartOptions{Confirm: allowAnyHour(answers{session.PromptContinue: true})})
	require.NoError(t, err)
	assert.Equal(t, models.Continue, snap.Decision)
	assert.Equal(t, 1_000_000.0, snap.OpeningCapital)
	f.bot.Wait()

	assert.Len(t, f.ledger.Load(session.DayKey(day1)).Sessions, 1)
	next := f.ledger.Load(session.DayKey(day2))
	require.Len(t, next.Sessions, 1)
	assert.Equal(t, 1_060_000.0, next.Sessions[0].CapitalAfter)
	assert.False(t, next.TargetReached, "20,000 on the new day's 1,040,000 is below 5%")
	assert.Equal(t, session.DayKey(day2), f.bot.Snapshot().Day)
	assert.Equal(t, 1_040_000.0, f.bot.Snapshot().OpeningCapital)
}

func TestResetBelowThresholdKeepsPercent(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.tracker.Record(3))

	ok, err := f.bot.ResetDailyTarget(true)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3.0, f.tracker.Percent())
}

func TestSecondStartIsRejected(t *testing.T) {
	f := newFixture(t, true)
	f.trader.set(untilCancelled())

	_, err := f.bot.Start(StartOptions{Capital: 1000, Confirm: allowAnyHour(nil)})
	require.NoError(t, err)
	assert.True(t, f.bot.IsRunning())
	assert.True(t, f.bot.CapitalLocked())
	assert.ErrorIs(t, f.bot.SetCapital(5), ErrCapitalLocked)

	_, err = f.bot.Start(StartOptions{Capital: 1000, Confirm: allowAnyHour(nil)})
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	_, err = f.bot.ResetDailyTarget(true)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	f.bot.Stop()
	assert.False(t, f.bot.IsRunning())
	assert.False(t, f.bot.CapitalLocked())
	assert.Equal(t, stopRequested, f.bot.Snapshot().StopReason)
}

func TestStopFlushesPendingState(t *testing.T) {
	f := newFixture(t, true)
	var steps int
	stepped := make(chan struct{}, 100)
	f.trader.set(TraderFunc(func(ctx context.Context, run *Run) (StepResult, error) {
		steps++
		run.Validation.ValidationCounter = steps
		select {
		case stepped <- struct{}{}:
		default:
		}
		select {
		case <-ctx.Done():
			return StepResult{}, ctx.Err()
		case <-time.After(time.Millisecond):
		}
		return StepResult{Profit: 10}, nil
	}))

	_, err := f.bot.Start(StartOptions{Capital: 1000, Confirm: allowAnyHour(nil)})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		<-stepped
	}
	f.bot.Stop()

	snap := f.bot.Snapshot()
	ledger := f.ledger.Load(f.today())
	require.Len(t, ledger.Sessions, 1, "pending profit is recorded on stop")
	assert.Equal(t, float64(snap.Steps)*10, ledger.Sessions[0].Profit)
	assert.Equal(t, 1000+ledger.Sessions[0].Profit, snap.Capital)

	artifacts := f.artifacts.Load(f.today())
	assert.NotEmpty(t, artifacts[session.LastActivityKey])
	assert.Positive(t, f.validation.Load().ValidationCounter)
}

func TestResetDecisionClearsDay(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.ledger.Append(60000, 1_060_000, true)
	require.NoError(t, err)
	require.NoError(t, f.artifacts.Save(f.today(), models.SessionArtifacts{"token": "stale"}))
	require.NoError(t, f.tracker.Record(6))

	bot, err := NewBot(f.bot.config, f.bot.deps)
	require.NoError(t, err)
	assert.True(t, bot.CapitalLocked(), "a reached target locks capital across restarts")

	f.trader.set(oneSession(100))
	snap, err := bot.Start(StartOptions{Capital: 500_000, Confirm: allowAnyHour(answers{session.PromptResetAfterTarget: true})})
	require.NoError(t, err)
	assert.Equal(t, models.Reset, snap.Decision)
	bot.Wait()

	ledger := f.ledger.Load(f.today())
	require.Len(t, ledger.Sessions, 1)
	assert.Equal(t, 500_100.0, ledger.Sessions[0].CapitalAfter)
	assert.False(t, ledger.TargetReached)
	assert.Nil(t, f.artifacts.Load(f.today())["token"])
	assert.InDelta(t, 0.02, f.tracker.Percent(), 1e-9)
}

func TestOutsideHoursNeedsConfirmation(t *testing.T) {
	f := newFixture(t, true)
	f.bot.now = func() time.Time { return time.Date(2026, 1, 1, 3, 0, 0, 0, time.Local) }

	_, err := f.bot.Start(StartOptions{Capital: 1000, Confirm: answers{}})
	assert.ErrorIs(t, err, ErrOutsideHours)
	assert.False(t, f.bot.IsRunning())
}

func TestStartWithoutCapital(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.bot.Start(StartOptions{Confirm: allowAnyHour(nil)})
	assert.ErrorIs(t, err, ErrInvalidCapital)

	require.NoError(t, f.bot.SetCapital(750))
	snap, err := f.bot.Start(StartOptions{Confirm: allowAnyHour(nil)})
	require.NoError(t, err)
	assert.Equal(t, 750.0, snap.Capital)
	f.bot.Wait()
}

func TestTraderErrorStopsRun(t *testing.T) {
	f := newFixture(t, true)
	f.trader.set(TraderFunc(func(context.Context, *Run) (StepResult, error) {
		return StepResult{}, errors.New("platform unreachable")
	}))

	_, err := f.bot.Start(StartOptions{Capital: 1000, Confirm: allowAnyHour(nil)})
	require.NoError(t, err)
	f.bot.Wait()

	assert.False(t, f.bot.IsRunning())
	assert.Equal(t, stopTraderError, f.bot.Snapshot().StopReason)
	assert.Empty(t, f.ledger.Load(f.today()).Sessions)
}

func TestSimTraderCompletesSequence(t *testing.T) {
	f := newFixture(t, true)
	f.trader.set(&SimTrader{Steps: 3, SessionProfit: 50})

	_, err := f.bot.Start(StartOptions{Capital: 10_000, Confirm: allowAnyHour(nil)})
	require.NoError(t, err)
	f.bot.Wait()

	snap := f.bot.Snapshot()
	assert.Equal(t, 3, snap.Steps)
	assert.Equal(t, stopTraderDone, snap.StopReason)

	ledger := f.ledger.Load(f.today())
	require.Len(t, ledger.Sessions, 1)
	assert.Equal(t, 50.0, ledger.Sessions[0].Profit)

	// A completed sequence removes its state file.
	_, err = os.Stat(filepath.Join(f.dir, "validation_state.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, models.DefaultValidationState(), f.validation.Load())
}

func TestSimTraderHonoursCancel(t *testing.T) {
	sim := &SimTrader{Interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Step(ctx, &Run{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetConfigUpdatesThreshold(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.bot.SetConfig(&models.Config{DailyTargetPercent: 2, BaseBetRate: 0.01, BettingHours: schedule.DefaultHours}))
	assert.Equal(t, 2.0, f.tracker.Threshold())
	assert.Equal(t, 10.0, f.bot.BaseBet(1000))

	assert.Error(t, f.bot.SetConfig(&models.Config{BettingHours: []string{"bogus"}}))
}

func TestRunIDsAreUnique(t *testing.T) {
	a, b := newRunID(), newRunID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
