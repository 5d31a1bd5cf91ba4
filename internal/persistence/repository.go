package persistence

import (
	"osenaabo-go/internal/models"
	"time"
)

// AuditRepository defines the interface for audit trail persistence.
// It abstracts the underlying storage mechanism (e.g., BadgerDB, in-memory)
// from the rest of the application.
type AuditRepository interface {
	// Append stores one event. Events are never updated or removed.
	Append(event models.AuditEvent) error

	// List returns the events with since <= Time < until, oldest first.
	// An empty trail returns (nil, nil).
	List(since, until time.Time) ([]models.AuditEvent, error)

	// Close gracefully closes the connection to the database.
	Close() error
}
