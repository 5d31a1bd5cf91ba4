package session

import (
	"errors"
	"fmt"
	"os"
	"osenaabo-go/internal/filestore"
	"osenaabo-go/internal/models"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// LastActivityKey is refreshed in the artifacts while a run is active.
const LastActivityKey = "last_activity"

// Artifacts owns sessions/session_<date>_cookies.json, the remote-session data
// cached between runs of the same day.
type Artifacts struct {
	dir    string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewArtifacts returns an artifact store sharing the ledger's directory.
func NewArtifacts(dir string, logger *zap.Logger) *Artifacts {
	return &Artifacts{dir: dir, logger: logger}
}

// Path returns the artifact file of day.
func (a *Artifacts) Path(day string) string {
	return filepath.Join(a.dir, fmt.Sprintf("session_%s_cookies.json", day))
}

// Load returns day's artifacts, or an empty set when there are none.
func (a *Artifacts) Load(day string) models.SessionArtifacts {
	a.mu.Lock()
	defer a.mu.Unlock()

	artifacts := models.SessionArtifacts{}
	err := filestore.ReadJSON(a.Path(day), &artifacts)
	switch {
	case err == nil:
		if artifacts == nil {
			artifacts = models.SessionArtifacts{}
		}
		return artifacts
	case errors.Is(err, os.ErrNotExist):
	default:
		a.logger.Warn("session artifacts unreadable, starting without them", zap.String("day", day), zap.Error(err))
	}
	return models.SessionArtifacts{}
}

// Save replaces day's artifacts.
func (a *Artifacts) Save(day string, artifacts models.SessionArtifacts) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if artifacts == nil {
		artifacts = models.SessionArtifacts{}
	}
	return filestore.WriteJSON(a.Path(day), artifacts)
}

// ResetDay clears day's ledger and artifacts as one unit: either both files are
// replaced by their empty forms or neither is.
func ResetDay(ledger *Ledger, artifacts *Artifacts, day string) error {
	ledger.mu.Lock()
	defer ledger.mu.Unlock()
	artifacts.mu.Lock()
	defer artifacts.mu.Unlock()

	err := filestore.Commit(
		filestore.Pending{Path: ledger.Path(day), Value: models.EmptyLedger()},
		filestore.Pending{Path: artifacts.Path(day), Value: models.SessionArtifacts{}},
	)
	if err != nil {
		return fmt.Errorf("resetting sessions of %s: %w", day, err)
	}
	return nil
}
