package bot

import (
	"context"
	"osenaabo-go/internal/models"
	"osenaabo-go/internal/session"
	"time"

	"go.uber.org/zap"
)

const (
	stopRequested     = "stopped"
	stopTargetReached = "target_reached"
	stopTraderDone    = "trader_done"
	stopTraderError   = "trader_error"
	stopRecordFailed  = "record_failed"
)

// loop executes trader steps until stopped, finished or the target is reached.
// The stop signal is checked between steps only.
func (b *Bot) loop(ctx context.Context, run *Run, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	reason := b.execute(ctx, run, stop)
	b.finish(run, reason)
}

func (b *Bot) execute(ctx context.Context, run *Run, stop <-chan struct{}) string {
	for {
		select {
		case <-stop:
			return stopRequested
		default:
		}

		result, err := b.deps.Trader.Step(ctx, run)
		if err != nil {
			if ctx.Err() != nil {
				return stopRequested
			}
			b.deps.Logger.Error("trader step failed", zap.String("run_id", run.ID), zap.Error(err))
			return stopTraderError
		}

		b.mutex.Lock()
		run.Steps++
		steps := run.Steps
		b.mutex.Unlock()
		run.pendingProfit += result.Profit

		if steps%ActivityRefreshSteps == 0 {
			b.touchArtifacts(run)
		}

		if result.SessionClosed {
			profit := run.pendingProfit
			run.pendingProfit = 0
			reached, err := b.recordSession(run, profit)
			if err != nil {
				b.deps.Logger.Error("failed to record session", zap.String("run_id", run.ID), zap.Error(err))
				run.pendingProfit = profit
				return stopRecordFailed
			}
			b.saveValidation(run)
			if reached {
				b.deps.Logger.Info("daily target reached, stopping run", zap.String("run_id", run.ID))
				return stopTargetReached
			}
		}

		if result.Done {
			return stopTraderDone
		}
	}
}

// finish is the best-effort final flush. The run slot and the capital are
// released whatever the flush outcome.
func (b *Bot) finish(run *Run, reason string) {
	defer func() {
		b.mutex.Lock()
		run.stopReason = reason
		b.isRunning = false
		b.last = run.snapshot()
		b.run = nil
		if b.cancelTrading != nil {
			b.cancelTrading()
			b.cancelTrading = nil
		}
		b.mutex.Unlock()

		b.deps.Logger.Info("trading run stopped",
			zap.String("run_id", run.ID),
			zap.String("reason", reason),
			zap.Int("steps", run.Steps),
			zap.Float64("capital", run.Capital))
		b.deps.Audit.Record(models.AuditEvent{
			Time:    b.now(),
			Kind:    models.AuditRunStop,
			OK:      reason != stopTraderError && reason != stopRecordFailed,
			Message: reason,
			Fields:  map[string]string{"run_id": run.ID},
		})
	}()

	if run.pendingProfit != 0 {
		profit := run.pendingProfit
		run.pendingProfit = 0
		if _, err := b.recordSession(run, profit); err != nil {
			b.deps.Logger.Error("failed to record final session", zap.String("run_id", run.ID), zap.Error(err))
		}
	}
	b.touchArtifacts(run)
	b.saveValidation(run)
}

func (b *Bot) touchArtifacts(run *Run) {
	if run.Artifacts == nil {
		run.Artifacts = models.SessionArtifacts{}
	}
	run.Artifacts[session.LastActivityKey] = b.now().Format(time.RFC3339)
	if err := b.deps.Artifacts.Save(run.Day, run.Artifacts); err != nil {
		b.deps.Logger.Warn("failed to save session artifacts", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// saveValidation persists the sequence counters, or removes them once the
// sequence has completed.
func (b *Bot) saveValidation(run *Run) {
	var err error
	if run.Validation.SequenceCompleted {
		err = b.deps.Validation.Clear()
		run.Validation = models.DefaultValidationState()
	} else {
		err = b.deps.Validation.Save(run.Validation)
	}
	if err != nil {
		b.deps.Logger.Warn("failed to persist validation state", zap.String("run_id", run.ID), zap.Error(err))
	}
}
