package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
	"golang.org/x/time/rate"
)

// Notification categories
const (
	CategoryBulkJob = "bulk_job"
	CategoryMessage = "message"
)

// Config controls delivery throughput
type Config struct {
	RatePerSecond float64
	Burst         int
}

// Service stores in-app notifications for staff users and guests.
// Deliveries share one token bucket so a large bulk send cannot flood the store.
type Service struct {
	storage interfaces.NotificationStorage
	limiter *rate.Limiter
	logger  arbor.ILogger
	now     func() time.Time
}

// NewService creates a new notification service
func NewService(storage interfaces.NotificationStorage, config Config, logger arbor.ILogger) *Service {
	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	return &Service{
		storage: storage,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
		now:     time.Now,
	}
}

// Notify delivers a message to a single recipient
func (s *Service) Notify(ctx context.Context, recipient models.Recipient, title, message string) error {
	return s.deliver(ctx, recipient, title, message, CategoryMessage, "")
}

// JobFinished tells the requester how their bulk job ended
func (s *Service) JobFinished(ctx context.Context, job models.JobSnapshot) error {
	recipient := models.Recipient{Type: models.RecipientUser, ID: strconv.FormatInt(job.RequesterID, 10)}
	title, message := jobMessage(job)
	return s.deliver(ctx, recipient, title, message, CategoryBulkJob, job.ID)
}

func (s *Service) deliver(ctx context.Context, recipient models.Recipient, title, message, category, jobID string) error {
	if recipient.ID == "" {
		return errors.New("recipient id is required")
	}
	if recipient.Type != models.RecipientUser && recipient.Type != models.RecipientGuest {
		return fmt.Errorf("unknown recipient type %q", recipient.Type)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limit: %w", err)
	}

	n := &models.Notification{
		ID:            uuid.New().String(),
		RecipientType: recipient.Type,
		RecipientID:   recipient.ID,
		Title:         title,
		Message:       message,
		Category:      category,
		JobID:         jobID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.storage.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	s.logger.Debug().
		Str("recipient_type", string(recipient.Type)).
		Str("recipient_id", recipient.ID).
		Str("category", category).
		Msg("Notification delivered")

	return nil
}

// List returns a recipient's notifications, newest first
func (s *Service) List(ctx context.Context, recipient models.Recipient, unreadOnly bool, limit int) ([]*models.Notification, error) {
	return s.storage.ListNotifications(ctx, recipient, unreadOnly, limit)
}

// UnreadCount returns how many unread notifications the recipient has
func (s *Service) UnreadCount(ctx context.Context, recipient models.Recipient) (int, error) {
	unread, err := s.storage.ListNotifications(ctx, recipient, true, 0)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

// MarkRead marks a notification as read. Marking an already read notification is a no-op.
func (s *Service) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	var updated models.Notification
	err := s.storage.UpdateNotification(ctx, id, func(n *models.Notification) error {
		if !n.Read {
			now := s.now().UTC()
			n.Read = true
			n.ReadAt = &now
		}
		updated = *n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func jobMessage(job models.JobSnapshot) (string, string) {
	action := strings.ReplaceAll(job.ActionType, "_", " ")
	switch models.JobStatus(job.Status) {
	case models.JobStatusCompleted:
		if job.FailedItems > 0 {
			return "Bulk action completed with errors",
				fmt.Sprintf("Your %s job finished: %d of %d items succeeded, %d failed.", action, job.ProcessedItems, job.TotalItems, job.FailedItems)
		}
		return "Bulk action completed",
			fmt.Sprintf("Your %s job finished: all %d items succeeded.", action, job.TotalItems)
	case models.JobStatusFailed:
		msg := fmt.Sprintf("Your %s job failed.", action)
		if job.ErrorMessage != "" {
			msg = fmt.Sprintf("Your %s job failed: %s", action, job.ErrorMessage)
		}
		return "Bulk action failed", msg
	case models.JobStatusCancelled:
		return "Bulk action cancelled",
			fmt.Sprintf("Your %s job was cancelled after %d of %d items.", action, job.ProcessedItems+job.FailedItems, job.TotalItems)
	default:
		return "Bulk action update", fmt.Sprintf("Your %s job is %s.", action, job.Status)
	}
}

var (
	_ interfaces.Notifier         = (*Service)(nil)
	_ interfaces.NotificationSink = (*Service)(nil)
)
