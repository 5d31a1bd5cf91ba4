package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"osenaabo-go/internal/models"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
)

const keyPrefix = "audit/"

// badgerRepository is the BadgerDB implementation of the AuditRepository.
type badgerRepository struct {
	db  *badger.DB
	seq atomic.Uint64
}

// NewBadgerRepository creates and returns a new repository instance connected to a BadgerDB database.
func NewBadgerRepository(dbPath string) (AuditRepository, error) {
	return open(badger.DefaultOptions(dbPath))
}

// NewInMemoryRepository returns a repository that lives only as long as the process.
func NewInMemoryRepository() (AuditRepository, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*badgerRepository, error) {
	// Badger's own logging would interleave with ours; errors are still returned from DB operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerRepository{db: db}, nil
}

// eventKey orders events by time. Zero padding keeps the byte order equal to the numeric order,
// and the sequence number separates events recorded within the same nanosecond.
func eventKey(t time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d/%08d", keyPrefix, t.UnixNano(), seq))
}

func boundKey(t time.Time) []byte {
	return []byte(fmt.Sprintf("%s%020d/", keyPrefix, t.UnixNano()))
}

// Append marshals the event into JSON and saves it under a time-ordered key.
func (r *badgerRepository) Append(event models.AuditEvent) error {
	if event.Time.IsZero() {
		return errors.New("audit event has no timestamp")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	key := eventKey(event.Time, r.seq.Add(1))

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// List walks the key range [since, until).
func (r *badgerRepository) List(since, until time.Time) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	start := boundKey(since)
	end := boundKey(until)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(start); it.Valid(); it.Next() {
			item := it.Item()
			if string(item.Key()) >= string(end) {
				break
			}
			err := item.Value(func(val []byte) error {
				if len(val) == 0 {
					return fmt.Errorf("audit value for key %s is empty", item.Key())
				}
				var event models.AuditEvent
				if err := json.Unmarshal(val, &event); err != nil {
					return err
				}
				events = append(events, event)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Close gracefully closes the connection to the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
