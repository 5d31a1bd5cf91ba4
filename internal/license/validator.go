package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"osenaabo-go/internal/models"
	"strings"
	"time"
)

// ExternalValidator checks a credential against the license authority. Its
// trust model is opaque to this package. Errors and "unavailable" are both
// treated as an invalid outcome.
type ExternalValidator interface {
	Validate(ctx context.Context, credential string) (models.LicenseOutcome, error)
}

// ValidatorFunc adapts a function to ExternalValidator.
type ValidatorFunc func(ctx context.Context, credential string) (models.LicenseOutcome, error)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, credential string) (models.LicenseOutcome, error) {
	return f(ctx, credential)
}

// Unavailable is used when no validator is configured.
type Unavailable struct{}

// Validate always reports the validator as unavailable.
func (Unavailable) Validate(context.Context, string) (models.LicenseOutcome, error) {
	return models.LicenseOutcome{Valid: false, Message: "License validation not available"}, nil
}

// Credential builds the validator input from its two user-supplied parts.
func Credential(telegramID, key string) string {
	return strings.TrimSpace(telegramID) + ":" + strings.TrimSpace(key)
}

// CommandValidator runs a helper program per validation. The credential is
// written to its stdin and the JSON outcome is read from its stdout.
type CommandValidator struct {
	Command []string
	Timeout time.Duration
}

// NewValidator returns the validator described by cfg.
func NewValidator(cfg models.ValidatorConfig) ExternalValidator {
	if len(cfg.Command) == 0 {
		return Unavailable{}
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CommandValidator{Command: cfg.Command, Timeout: timeout}
}

// Validate runs the helper and decodes its answer.
func (v *CommandValidator) Validate(ctx context.Context, credential string) (models.LicenseOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, v.Command[0], v.Command[1:]...)
	cmd.Stdin = strings.NewReader(credential + "\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return models.LicenseOutcome{}, fmt.Errorf("validator timed out after %s: %w", v.Timeout, ctx.Err())
		}
		return models.LicenseOutcome{}, fmt.Errorf("validator failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	var outcome models.LicenseOutcome
	if err := json.Unmarshal(stdout.Bytes(), &outcome); err != nil {
		return models.LicenseOutcome{}, fmt.Errorf("validator returned malformed outcome: %w", err)
	}
	return outcome, nil
}
