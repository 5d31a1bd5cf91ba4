package bot

import (
	"context"
	"time"
)

// StepResult is what a trader reports after one discrete step.
type StepResult struct {
	Profit        float64 // realised since the previous step
	SessionClosed bool    // the accumulated profit forms a finished session
	Done          bool    // the trader has nothing more to do this run
}

// Trader performs the platform-specific work of a run, one step at a time.
// Step should return promptly once ctx is cancelled.
type Trader interface {
	Step(ctx context.Context, run *Run) (StepResult, error)
}

// TraderFunc adapts a function to Trader.
type TraderFunc func(ctx context.Context, run *Run) (StepResult, error)

// Step calls f.
func (f TraderFunc) Step(ctx context.Context, run *Run) (StepResult, error) {
	return f(ctx, run)
}

// SimTrader is the simulation mode: it idles for Steps steps of Interval each
// and closes one session worth SessionProfit on the last step. Steps <= 0
// runs until stopped.
type SimTrader struct {
	Steps         int
	Interval      time.Duration
	SessionProfit float64
}

// Step waits one interval and advances the validation sequence.
func (s *SimTrader) Step(ctx context.Context, run *Run) (StepResult, error) {
	if s.Interval > 0 {
		timer := time.NewTimer(s.Interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return StepResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	run.Validation.ValidationCounter++
	run.Validation.BlocksSetup = true

	if s.Steps <= 0 || run.Steps+1 < s.Steps {
		return StepResult{}, nil
	}

	now := time.Now()
	payout := s.SessionProfit
	run.Validation.LastPayout = &payout
	run.Validation.LastPayoutTimestamp = &now
	run.Validation.SequenceCompleted = true
	return StepResult{Profit: s.SessionProfit, SessionClosed: true, Done: true}, nil
}
