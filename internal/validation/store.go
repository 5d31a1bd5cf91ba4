// Package validation persists the validator's multi-step sequence counters
// (validation_state.json) across runs.
package validation

import (
	"errors"
	"os"
	"osenaabo-go/internal/filestore"
	"osenaabo-go/internal/models"
	"sync"

	"go.uber.org/zap"
)

// Store owns validation_state.json.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore returns a store for the file at path.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load returns the saved state, or the defaults when the file is missing or unreadable.
func (s *Store) Load() models.ValidationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the file with state.
func (s *Store) Save(state models.ValidationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filestore.WriteJSON(s.path, state)
}

// Update applies fn to the current state and saves the result.
func (s *Store) Update(fn func(*models.ValidationState)) (models.ValidationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.load()
	fn(&state)
	return state, filestore.WriteJSON(s.path, state)
}

// Clear removes the file. Clearing an absent file succeeds.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filestore.Remove(s.path)
}

func (s *Store) load() models.ValidationState {
	var state models.ValidationState
	err := filestore.ReadJSON(s.path, &state)
	switch {
	case err == nil:
		return state
	case errors.Is(err, os.ErrNotExist):
	default:
		s.logger.Warn("validation state unreadable, using defaults", zap.String("path", s.path), zap.Error(err))
	}
	return models.DefaultValidationState()
}
