package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/common"
	"github.com/ternarybob/bulkops/internal/interfaces"
)

// DefaultBufferSize is the number of events queued per subscriber before Publish blocks
const DefaultBufferSize = 256

// ErrClosed is returned when publishing or subscribing after Close
var ErrClosed = errors.New("event service closed")

type envelope struct {
	ctx   context.Context
	event interfaces.Event
}

// subscriber delivers events to one handler in publish order
type subscriber struct {
	handler interfaces.EventHandler
	inbox   chan envelope
}

// Service implements EventService interface with pub/sub pattern.
// Publish delivers asynchronously but preserves order per subscriber.
type Service struct {
	subscribers map[interfaces.EventType][]*subscriber
	all         []*subscriber
	mu          sync.RWMutex
	wg          sync.WaitGroup
	closed      bool
	bufferSize  int
	logger      arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) *Service {
	return NewServiceWithBuffer(logger, DefaultBufferSize)
}

// NewServiceWithBuffer creates an event service with a custom per-subscriber buffer
func NewServiceWithBuffer(logger arbor.ILogger, bufferSize int) *Service {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Service{
		subscribers: make(map[interfaces.EventType][]*subscriber),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe registers a handler for an event type
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return s.SubscribeAll(handler, eventType)
}

// SubscribeAll registers one handler for several event types.
// Events of all the given types reach the handler in publish order.
func (s *Service) SubscribeAll(handler interfaces.EventHandler, eventTypes ...interfaces.EventType) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if len(eventTypes) == 0 {
		return fmt.Errorf("at least one event type is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	sub := &subscriber{
		handler: handler,
		inbox:   make(chan envelope, s.bufferSize),
	}
	s.all = append(s.all, sub)
	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], sub)

		s.logger.Debug().
			Str("event_type", string(eventType)).
			Int("subscriber_count", len(s.subscribers[eventType])).
			Msg("Event handler subscribed")
	}

	s.wg.Add(1)
	go s.deliver(sub)

	return nil
}

func (s *Service) deliver(sub *subscriber) {
	defer s.wg.Done()
	for env := range sub.inbox {
		s.invoke(sub.handler, env.ctx, env.event)
	}
}

func (s *Service) invoke(handler interfaces.EventHandler, ctx context.Context, event interfaces.Event) (err error) {
	defer common.Recover(s.logger, "event:"+string(event.Type))
	if err = handler(ctx, event); err != nil {
		s.logger.Error().
			Err(err).
			Str("event_type", string(event.Type)).
			Msg("Event handler failed")
	}
	return err
}

// Publish queues an event for every subscriber of its type.
// Blocks only while a subscriber's buffer is full, or until ctx is done.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	subs := s.subscribers[event.Type]
	if len(subs) == 0 {
		return nil
	}

	s.logger.Trace().
		Str("event_type", string(event.Type)).
		Int("subscriber_count", len(subs)).
		Msg("Publishing event")

	env := envelope{ctx: context.WithoutCancel(ctx), event: event}
	for _, sub := range subs {
		select {
		case sub.inbox <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// PublishSync sends an event to all subscribers and waits for them to complete
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	subs := append([]*subscriber(nil), s.subscribers[event.Type]...)
	s.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(subs))

	for _, sub := range subs {
		wg.Add(1)
		go func(h interfaces.EventHandler) {
			defer wg.Done()
			if err := s.invoke(h, ctx, event); err != nil {
				errChan <- err
			}
		}(sub.handler)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("event handlers failed: %d errors: %w", len(errs), errors.Join(errs...))
	}

	return nil
}

// Close stops accepting events and waits for queued events to be delivered
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, sub := range s.all {
		close(sub.inbox)
	}
	s.all = nil
	s.subscribers = make(map[interfaces.EventType][]*subscriber)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("Event service closed")

	return nil
}

var _ interfaces.EventService = (*Service)(nil)
