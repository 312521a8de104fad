// -----------------------------------------------------------------------
// Bulk Action Service - scheduling, query and cancellation surface
// -----------------------------------------------------------------------

package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

// Config controls scheduling limits
type Config struct {
	MaxConcurrentJobs int
	QueueSize         int
	DefaultListLimit  int
}

// DefaultConfig returns the standard scheduling limits
func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs: 5,
		QueueSize:         100,
		DefaultListLimit:  DefaultListLimit,
	}
}

// Service accepts bulk action requests and runs them on a bounded pool
type Service struct {
	config   Config
	registry *Registry
	handlers *HandlerRegistry
	audit    interfaces.AuditSink
	notify   interfaces.NotificationSink
	events   interfaces.EventService
	logger   arbor.ILogger

	slots      chan struct{} // running slots shared by sync and async jobs
	queueSlots chan struct{} // queue capacity reservations
	queue      chan string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup // running jobs
	loopWG sync.WaitGroup // dispatcher

	mu      sync.Mutex
	started bool
	stopped bool
}

// Option configures optional collaborators
type Option func(*Service)

// WithAuditSink sets the audit hook
func WithAuditSink(sink interfaces.AuditSink) Option {
	return func(s *Service) { s.audit = sink }
}

// WithNotificationSink sets the terminal-state hook
func WithNotificationSink(sink interfaces.NotificationSink) Option {
	return func(s *Service) { s.notify = sink }
}

// WithEventService publishes job lifecycle events on the bus
func WithEventService(events interfaces.EventService) Option {
	return func(s *Service) { s.events = events }
}

// NewService creates a bulk action service. Call Start before submitting async jobs.
func NewService(config Config, handlers *HandlerRegistry, logger arbor.ILogger, opts ...Option) *Service {
	defaults := DefaultConfig()
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = defaults.MaxConcurrentJobs
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.DefaultListLimit <= 0 {
		config.DefaultListLimit = defaults.DefaultListLimit
	}
	if handlers == nil {
		handlers = NewHandlerRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Service{
		config:     config,
		registry:   NewRegistry(config.DefaultListLimit),
		handlers:   handlers,
		logger:     logger,
		slots:      make(chan struct{}, config.MaxConcurrentJobs),
		queueSlots: make(chan struct{}, config.QueueSize),
		queue:      make(chan string, config.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the job registry
func (s *Service) Registry() *Registry {
	return s.registry
}

// Start launches the dispatcher that drains the background queue
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	s.loopWG.Add(1)
	go s.dispatch()

	s.logger.Info().
		Int("max_concurrent_jobs", s.config.MaxConcurrentJobs).
		Int("queue_size", s.config.QueueSize).
		Msg("Bulk action service started")
}

// Stop stops accepting work, fails queued jobs and waits for running jobs.
// Running jobs are cancelled if ctx expires first.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.done)
	s.mu.Unlock()

	s.loopWG.Wait()
	s.drainQueue()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	var err error
	select {
	case <-finished:
	case <-ctx.Done():
		s.logger.Warn().Msg("Shutdown timeout reached - cancelling running bulk jobs")
		s.cancel()
		<-finished
		err = ctx.Err()
	}
	s.cancel()

	s.logger.Info().Msg("Bulk action service stopped")
	return err
}

// ActionTypes returns the action types with a registered handler
func (s *Service) ActionTypes() []models.ActionType {
	return s.handlers.ActionTypes()
}

// ExecuteBulkAction creates a job and runs it inline (async=false) or queues it.
// Sync calls return once the job is terminal.
func (s *Service) ExecuteBulkAction(ctx context.Context, actionType models.ActionType, requesterID int64, itemIDs []string, parameters map[string]interface{}, async bool) (string, error) {
	if s.isStopped() {
		return "", ErrServiceStopped
	}
	if !actionType.IsValid() {
		return "", fmt.Errorf("%w: unsupported action type %q", ErrInvalidRequest, actionType)
	}
	if len(itemIDs) == 0 {
		return "", fmt.Errorf("%w: item_ids must not be empty", ErrInvalidRequest)
	}

	if async {
		select {
		case s.queueSlots <- struct{}{}:
		default:
			s.logger.Warn().
				Str("action_type", string(actionType)).
				Int64("requester_id", requesterID).
				Msg("Bulk job queue full - rejecting request")
			return "", ErrQueueFull
		}
	}

	snapshot, err := s.registry.Create(actionType, requesterID, itemIDs, parameters)
	if err != nil {
		if async {
			<-s.queueSlots
		}
		return "", err
	}

	s.logger.Debug().
		Str("job_id", snapshot.ID).
		Str("action_type", snapshot.ActionType).
		Int("total_items", snapshot.TotalItems).
		Bool("async", async).
		Msg("Bulk job created")

	s.recordAudit(models.AuditActionStarted, snapshot)

	if async {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			<-s.queueSlots
			s.failJob(snapshot.ID, ErrServiceStopped)
			return "", ErrServiceStopped
		}
		s.queue <- snapshot.ID
		s.mu.Unlock()
		return snapshot.ID, nil
	}

	return snapshot.ID, s.runInline(ctx, snapshot.ID)
}

// runInline waits for a running slot and executes the job on the caller's goroutine
func (s *Service) runInline(ctx context.Context, jobID string) error {
	if err := s.acquireSlot(ctx); err != nil {
		s.failJob(jobID, err)
		return err
	}
	defer s.releaseSlot()

	// the slot may be granted after Stop closed done
	if !s.track() {
		s.failJob(jobID, ErrServiceStopped)
		return ErrServiceStopped
	}
	defer s.wg.Done()

	if jobCtx, cancel, job, ok := s.begin(jobID); ok {
		defer cancel()
		s.execute(jobCtx, job)
	}
	return nil
}

// GetJobStatus returns the job's snapshot
func (s *Service) GetJobStatus(jobID string) (models.JobSnapshot, bool) {
	return s.registry.Get(jobID)
}

// GetUserJobs returns the requester's jobs, newest first
func (s *Service) GetUserJobs(requesterID int64, limit int) []models.JobSnapshot {
	return s.registry.ListByRequester(requesterID, limit)
}

// CancelJob cancels a PENDING or RUNNING job owned by requesterID
func (s *Service) CancelJob(jobID string, requesterID int64) bool {
	snapshot, ok := s.registry.cancel(jobID, requesterID)
	if !ok {
		return false
	}

	s.logger.Info().
		Str("job_id", jobID).
		Int64("requester_id", requesterID).
		Msg("Bulk job cancelled")

	s.finalize(models.AuditActionCancelled, snapshot)
	return true
}

// CleanupOldJobs removes terminal jobs that completed more than age ago
func (s *Service) CleanupOldJobs(age time.Duration) int {
	cutoff := s.registry.now().Add(-age)
	removed := s.registry.removeTerminalBefore(cutoff)
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Dur("age", age).Msg("Cleaned up old bulk jobs")
	}
	return removed
}

// RunningJobs returns the number of jobs currently RUNNING
func (s *Service) RunningJobs() int {
	return s.registry.countRunning()
}

// QueuedJobs returns the number of jobs waiting in the background queue
func (s *Service) QueuedJobs() int {
	return len(s.queueSlots)
}

func (s *Service) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// track registers a running job with the shutdown wait group.
// It returns false once Stop has begun; Stop flips stopped under the same lock before waiting.
func (s *Service) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Service) failJob(jobID string, err error) {
	if failed, ok := s.registry.fail(jobID, err); ok {
		s.finalize(models.AuditActionFailed, failed)
	}
}

func (s *Service) acquireSlot(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrServiceStopped
	}
}

func (s *Service) releaseSlot() {
	<-s.slots
}

// dispatch starts queued jobs in FIFO order as running slots free up
func (s *Service) dispatch() {
	defer s.loopWG.Done()

	for {
		var jobID string
		select {
		case <-s.done:
			return
		case jobID = <-s.queue:
		}

		// the queue reservation is held until the job owns a running slot
		if err := s.acquireSlot(s.ctx); err != nil {
			<-s.queueSlots
			s.failJob(jobID, ErrServiceStopped)
			return
		}
		<-s.queueSlots

		if !s.track() {
			s.releaseSlot()
			s.failJob(jobID, ErrServiceStopped)
			return
		}

		jobCtx, cancel, job, ok := s.begin(jobID)
		if !ok {
			// cancelled while queued
			s.wg.Done()
			s.releaseSlot()
			continue
		}

		go func() {
			defer s.wg.Done()
			defer s.releaseSlot()
			defer cancel()
			s.execute(jobCtx, job)
		}()
	}
}

// drainQueue fails every job still waiting once the dispatcher has exited
func (s *Service) drainQueue() {
	for {
		select {
		case jobID := <-s.queue:
			<-s.queueSlots
			s.failJob(jobID, ErrServiceStopped)
		default:
			return
		}
	}
}

func (s *Service) recordAudit(action string, snapshot models.JobSnapshot) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(s.ctx, action, snapshot); err != nil {
		s.logger.Warn().
			Err(err).
			Str("job_id", snapshot.ID).
			Str("action", action).
			Msg("Failed to record bulk action audit event")
	}
}

// finalize runs the terminal-state hooks for a job
func (s *Service) finalize(auditAction string, snapshot models.JobSnapshot) {
	s.recordAudit(auditAction, snapshot)

	if s.notify != nil {
		if err := s.notify.JobFinished(s.ctx, snapshot); err != nil {
			s.logger.Warn().Err(err).Str("job_id", snapshot.ID).Msg("Failed to notify job completion")
		}
	}

	s.publish(interfaces.EventBulkJobFinished, snapshot)
}

func (s *Service) publish(eventType interfaces.EventType, snapshot models.JobSnapshot) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(s.ctx, interfaces.Event{Type: eventType, Payload: snapshot}); err != nil {
		s.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to publish bulk job event")
	}
}

var _ interfaces.BulkActionService = (*Service)(nil)
