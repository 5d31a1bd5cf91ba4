package license

import (
	"errors"
	"os"
	"osenaabo-go/internal/filestore"
	"osenaabo-go/internal/models"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store owns license.json.
type Store struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore returns a store for the license file at path.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the license file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the current record. A missing, unreadable or corrupt file yields
// the empty (unlicensed) record.
func (s *Store) Load() models.LicenseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces license.json with rec.
func (s *Store) Save(rec models.LicenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(rec)
}

// update runs fn on the freshly loaded record under the store lock and saves the
// result if fn returns true. A corrupt file is moved aside before it is replaced.
func (s *Store) update(fn func(rec *models.LicenseRecord) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.read()
	s.report(err)
	if !fn(&rec) {
		return nil
	}
	if errors.Is(err, filestore.ErrCorrupt) {
		aside, err := filestore.Quarantine(s.path, time.Now())
		if err != nil {
			return err
		}
		s.logger.Warn("corrupt license file kept for inspection", zap.String("kept_as", aside))
	}
	return s.save(rec)
}

func (s *Store) load() models.LicenseRecord {
	rec, err := s.read()
	s.report(err)
	return rec
}

func (s *Store) read() (models.LicenseRecord, error) {
	var rec models.LicenseRecord
	if err := filestore.ReadJSON(s.path, &rec); err != nil {
		return models.LicenseRecord{}, err
	}
	return rec, nil
}

func (s *Store) report(err error) {
	switch {
	case err == nil, errors.Is(err, os.ErrNotExist):
	case errors.Is(err, filestore.ErrCorrupt):
		s.logger.Warn("license file is corrupt, treating as unlicensed", zap.String("path", s.path), zap.Error(err))
	default:
		s.logger.Warn("license file unreadable, treating as unlicensed", zap.String("path", s.path), zap.Error(err))
	}
}

func (s *Store) save(rec models.LicenseRecord) error {
	rec.Version = models.LicenseRecordVersion
	return filestore.WriteJSON(s.path, rec)
}
