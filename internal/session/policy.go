package session

import "osenaabo-go/internal/models"

// Prompts shown by Decide.
const (
	PromptResetAfterTarget = "You've already reached your target profit today!\n\nWould you like to reset and start a fresh session?"
	PromptContinue         = "You have previous sessions today.\n\nWould you like to continue from the last session?"
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Decide picks how a new run relates to today's ledger. It does not modify
// anything; the caller carries out Reset and Continue.
func Decide(today models.SessionLedger, user Confirmer) models.Decision {
	if len(today.Sessions) == 0 {
		return models.Fresh
	}
	if today.TargetReached {
		if user.Confirm(PromptResetAfterTarget) {
			return models.Reset
		}
		return models.Tomorrow
	}
	if user.Confirm(PromptContinue) {
		return models.Continue
	}
	return models.Fresh
}
