package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/bulkops/internal/models"
)

// Tracker receives item outcomes while a handler is running
type Tracker interface {
	RecordItem(outcome models.ItemOutcome)
}

// Handler executes one action type against a job's items.
// Item-level failures belong in the returned ActionResult; a returned error fails the whole job.
type Handler interface {
	Execute(ctx context.Context, job models.BulkJob, tracker Tracker) (*models.ActionResult, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, job models.BulkJob, tracker Tracker) (*models.ActionResult, error)

// Execute calls f
func (f HandlerFunc) Execute(ctx context.Context, job models.BulkJob, tracker Tracker) (*models.ActionResult, error) {
	return f(ctx, job, tracker)
}

// HandlerRegistry maps action types to handlers
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[models.ActionType]Handler
}

// NewHandlerRegistry creates an empty handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[models.ActionType]Handler)}
}

// Register binds a handler to an action type
func (r *HandlerRegistry) Register(actionType models.ActionType, handler Handler) error {
	if !actionType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownActionType, actionType)
	}
	if handler == nil {
		return fmt.Errorf("nil handler for action type %s", actionType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[actionType]; exists {
		return fmt.Errorf("handler already registered for action type %s", actionType)
	}
	r.handlers[actionType] = handler
	return nil
}

// Lookup returns the handler for an action type
func (r *HandlerRegistry) Lookup(actionType models.ActionType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[actionType]
	return h, ok
}

// ActionTypes returns the registered action types in declaration order
func (r *HandlerRegistry) ActionTypes() []models.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ActionType, 0, len(r.handlers))
	for _, t := range models.AllActionTypes() {
		if _, ok := r.handlers[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// abortError marks a failure that stops the item loop and fails the job
type abortError struct {
	err error
}

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

// Abort wraps err so ProcessItems stops and returns it as a job-level failure
func Abort(err error) error {
	if err == nil {
		return nil
	}
	return &abortError{err: err}
}

// IsAbort reports whether err was produced by Abort
func IsAbort(err error) bool {
	var ae *abortError
	return errors.As(err, &ae)
}

// ItemFunc applies an action to a single item.
// A nil return is a success, any other error is an item failure unless wrapped with Abort.
type ItemFunc func(ctx context.Context, itemID string) error

// ProcessItems runs fn over every item of the job in order, continuing past item failures.
// The context is checked between items; cancellation and aborts stop the loop and are returned.
func ProcessItems(ctx context.Context, job models.BulkJob, tracker Tracker, fn ItemFunc) ([]models.ItemOutcome, error) {
	outcomes := make([]models.ItemOutcome, 0, len(job.ItemIDs))

	for _, itemID := range job.ItemIDs {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		err := fn(ctx, itemID)
		if err != nil {
			var ae *abortError
			if errors.As(err, &ae) {
				return outcomes, ae.err
			}
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return outcomes, ctxErr
			}
		}

		outcome := models.ItemOutcome{ItemID: itemID, OK: err == nil}
		if err != nil {
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)

		if tracker != nil {
			tracker.RecordItem(outcome)
		}
	}

	return outcomes, nil
}
