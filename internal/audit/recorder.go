// Package audit keeps a best-effort trail of license and session decisions.
package audit

import (
	"osenaabo-go/internal/models"
	"osenaabo-go/internal/persistence"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sink accepts audit events. Record must not block the caller.
type Sink interface {
	Record(event models.AuditEvent)
}

// Discard drops every event.
type Discard struct{}

// Record does nothing.
func (Discard) Record(models.AuditEvent) {}

// Recorder persists events on its own goroutine so that a slow or broken
// audit store never delays activation or a trading run.
type Recorder struct {
	repo       persistence.AuditRepository
	eventsChan chan models.AuditEvent
	stopChan   chan struct{}
	doneChan   chan struct{}
	stopOnce   sync.Once
	logger     *zap.Logger
}

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo persistence.AuditRepository, logger *zap.Logger) *Recorder {
	return &Recorder{
		repo:       repo,
		eventsChan: make(chan models.AuditEvent, 256),
		stopChan:   make(chan struct{}),
		doneChan:   make(chan struct{}),
		logger:     logger,
	}
}

// Start begins the persistence loop.
func (r *Recorder) Start() {
	go r.persistenceLoop()
	r.logger.Sugar().Debug("Audit recorder started.")
}

// Stop flushes queued events and waits for the loop to exit.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		<-r.doneChan
		r.logger.Sugar().Debug("Audit recorder stopped.")
	})
}

// Record queues an event. When the queue is full the event is dropped.
func (r *Recorder) Record(event models.AuditEvent) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	select {
	case r.eventsChan <- event:
	default:
		r.logger.Sugar().Warnf("Audit queue full, dropping %s event.", event.Kind)
	}
}

// List returns the stored events in [since, until).
func (r *Recorder) List(since, until time.Time) ([]models.AuditEvent, error) {
	return r.repo.List(since, until)
}

func (r *Recorder) persistenceLoop() {
	defer close(r.doneChan)
	for {
		select {
		case event := <-r.eventsChan:
			r.save(event)
		case <-r.stopChan:
			for {
				select {
				case event := <-r.eventsChan:
					r.save(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) save(event models.AuditEvent) {
	if r.repo == nil {
		return
	}
	if err := r.repo.Append(event); err != nil {
		r.logger.Sugar().Errorf("Failed to save audit event %s: %v", event.Kind, err)
	}
}
