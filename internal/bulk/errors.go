package bulk

import "errors"

var (
	// ErrInvalidRequest is returned for requests that can never produce a job
	ErrInvalidRequest = errors.New("invalid bulk action request")

	// ErrUnknownActionType is recorded on jobs whose action type has no registered handler
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrJobNotFound is returned when a job id is not tracked
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotTerminal is returned when removing a job that can still change
	ErrJobNotTerminal = errors.New("job is not in a terminal state")

	// ErrQueueFull is returned when no more background jobs can be accepted
	ErrQueueFull = errors.New("bulk job queue is full")

	// ErrServiceStopped is returned once the service has been shut down
	ErrServiceStopped = errors.New("bulk action service stopped")
)
