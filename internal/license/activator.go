// Package license binds externally validated licenses to this device.
//
// Activation is a one-shot state machine per device and license:
//
//	Unbound --(valid remote outcome, not pre-bound elsewhere)--> BoundThisDevice
//
// BoundOtherDevice and InvalidRemote are terminal rejections that never touch
// license.json. The only write is the Unbound -> BoundThisDevice transition.
package license

import (
	"context"
	"fmt"
	"osenaabo-go/internal/audit"
	"osenaabo-go/internal/models"
	"time"

	"go.uber.org/zap"
)

// ActivationDateLayout is the format of LicenseRecord.ActivationDate.
const ActivationDateLayout = "2006-01-02 15:04:05"

// Fingerprint supplies the current device id.
type Fingerprint interface {
	Compute() models.HardwareID
}

// Activator turns validator outcomes into a durable, hardware-locked decision.
type Activator struct {
	validator   ExternalValidator
	store       *Store
	fingerprint Fingerprint
	audit       audit.Sink
	logger      *zap.Logger
	now         func() time.Time
}

// NewActivator wires an Activator. A nil sink discards audit events.
func NewActivator(validator ExternalValidator, store *Store, fingerprint Fingerprint, sink audit.Sink, logger *zap.Logger) *Activator {
	if sink == nil {
		sink = audit.Discard{}
	}
	return &Activator{
		validator:   validator,
		store:       store,
		fingerprint: fingerprint,
		audit:       sink,
		logger:      logger,
		now:         time.Now,
	}
}

// Activate validates credential externally and binds the license to this device
// on first success.
func (a *Activator) Activate(ctx context.Context, credential string) models.LicenseOutcome {
	outcome := a.activate(ctx, credential)
	a.audit.Record(models.AuditEvent{
		Time:    a.now(),
		Kind:    models.AuditActivation,
		OK:      outcome.Valid,
		Message: outcome.Message,
		Fields: map[string]string{
			"state":       string(outcome.State),
			"newly_bound": fmt.Sprint(outcome.NewlyBound),
		},
	})
	return outcome
}

func (a *Activator) activate(ctx context.Context, credential string) models.LicenseOutcome {
	remote, err := a.validate(ctx, credential)
	if err != nil {
		a.logger.Warn("external license validation failed", zap.Error(err))
		return models.LicenseOutcome{
			Valid:   false,
			Message: "License validation error",
			Details: err.Error(),
			State:   models.InvalidRemote,
		}
	}
	if !remote.Valid {
		if remote.Message == "" {
			remote.Message = "License invalid"
		}
		remote.State = models.InvalidRemote
		return remote
	}

	current := a.fingerprint.Compute()
	result := remote

	saveErr := a.store.update(func(rec *models.LicenseRecord) bool {
		if rec.Bound() {
			if rec.HardwareID == current {
				result.State = models.BoundThisDevice
				return false
			}
			result = models.LicenseOutcome{
				Valid:   false,
				Message: "License bound to " + rec.HardwareID.Display(),
				Details: "This license is permanently bound to another computer.",
				State:   models.BoundOtherDevice,
			}
			return false
		}

		if remote.HardwareID != "" && remote.HardwareID != current {
			result = models.LicenseOutcome{
				Valid:   false,
				Message: "License not authorized for this computer",
				Details: fmt.Sprintf("License pre-bound to: %s\nYour computer: %s", remote.HardwareID.Display(), current.Display()),
				State:   models.BoundOtherDevice,
			}
			return false
		}

		rec.HardwareID = current
		rec.ActivationDate = a.now().Format(ActivationDateLayout)
		rec.HardwareLocked = true
		rec.Valid = true
		rec.TelegramID = remote.TelegramID
		rec.Plan = remote.Plan
		rec.Issued = remote.Issued
		rec.Expires = remote.Expires

		result.HardwareID = current
		result.State = models.BoundThisDevice
		result.NewlyBound = true
		return true
	})

	if saveErr != nil {
		a.logger.Error("failed to persist license binding", zap.String("path", a.store.Path()), zap.Error(saveErr))
		return models.LicenseOutcome{
			Valid:   false,
			Message: "Failed to save license binding",
			Details: saveErr.Error(),
			State:   models.Unbound,
		}
	}

	switch {
	case result.NewlyBound:
		a.logger.Info("license bound to this computer", zap.String("hardware_id", current.Display()))
	case result.State == models.BoundOtherDevice:
		a.logger.Warn("license activation rejected", zap.String("reason", result.Message))
	}
	return result
}

// validate shields the caller from validator panics and nil validators.
func (a *Activator) validate(ctx context.Context, credential string) (outcome models.LicenseOutcome, err error) {
	if a.validator == nil {
		return Unavailable{}.Validate(ctx, credential)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator panic: %v", r)
		}
	}()
	return a.validator.Validate(ctx, credential)
}

// Check reports whether this device holds a valid license bound to it. It is
// the gate every protected operation goes through.
func (a *Activator) Check() models.LicenseOutcome {
	rec := a.store.Load()
	current := a.fingerprint.Compute()
	switch {
	case !rec.Bound() || !rec.Valid:
		return models.LicenseOutcome{Valid: false, Message: "No valid license", State: models.Unbound}
	case rec.HardwareID != current:
		return models.LicenseOutcome{
			Valid:   false,
			Message: "License bound to " + rec.HardwareID.Display(),
			Details: "This license is permanently bound to another computer.",
			State:   models.BoundOtherDevice,
		}
	}
	return models.LicenseOutcome{
		Valid:      true,
		Message:    "License active",
		TelegramID: rec.TelegramID,
		Plan:       rec.Plan,
		Issued:     rec.Issued,
		Expires:    rec.Expires,
		HardwareID: rec.HardwareID,
		State:      models.BoundThisDevice,
	}
}

// Record returns the stored license record for display.
func (a *Activator) Record() models.LicenseRecord {
	return a.store.Load()
}

// HardwareID returns the current device id.
func (a *Activator) HardwareID() models.HardwareID {
	return a.fingerprint.Compute()
}
