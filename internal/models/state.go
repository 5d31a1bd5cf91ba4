package models

import "time"

// ValidationState holds the counters of the validator's multi-step sequence (validation_state.json).
type ValidationState struct {
	ValidationCounter   int        `json:"validation_counter"`
	LastPayout          *float64   `json:"last_payout"`
	SequenceCompleted   bool       `json:"sequence_completed"`
	BlocksSetup         bool       `json:"blocks_setup"`
	PendingBlock2Bet    bool       `json:"pending_block2_bet"`
	LastPayoutTimestamp *time.Time `json:"last_payout_timestamp"`
}

// DefaultValidationState is returned whenever validation_state.json is absent or unreadable.
func DefaultValidationState() ValidationState {
	return ValidationState{}
}

// SessionRecord is one finished trading session.
type SessionRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	Profit        float64   `json:"profit"`
	CapitalAfter  float64   `json:"capital_after"`
	TargetReached bool      `json:"target_reached"`
}

// SessionLedger is the append-only log of one calendar day (sessions/session_<date>.json).
type SessionLedger struct {
	Sessions      []SessionRecord `json:"sessions"`
	TargetReached bool            `json:"target_reached"`
}

// EmptyLedger returns the ledger used for days with no (readable) file.
func EmptyLedger() SessionLedger {
	return SessionLedger{Sessions: []SessionRecord{}}
}

// Last returns the most recent session, if any.
func (l SessionLedger) Last() (SessionRecord, bool) {
	if len(l.Sessions) == 0 {
		return SessionRecord{}, false
	}
	return l.Sessions[len(l.Sessions)-1], true
}

// Decision is the outcome of the continuity policy.
type Decision string

const (
	Fresh    Decision = "fresh"
	Continue Decision = "continue"
	Reset    Decision = "reset"
	Tomorrow Decision = "tomorrow"
)

// SessionArtifacts is the cached remote-session data carried between runs of one day.
type SessionArtifacts map[string]any

// AuditKind classifies audit events.
type AuditKind string

const (
	AuditActivation  AuditKind = "activation"
	AuditDecision    AuditKind = "decision"
	AuditTargetReset AuditKind = "target_reset"
	AuditRunStart    AuditKind = "run_start"
	AuditRunStop     AuditKind = "run_stop"
	AuditSession     AuditKind = "session"
)

// AuditEvent is a single entry of the audit trail.
type AuditEvent struct {
	Time    time.Time         `json:"time"`
	Kind    AuditKind         `json:"kind"`
	OK      bool              `json:"ok"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
