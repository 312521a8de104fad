package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/bulk"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

const defaultNotificationTitle = "Notice from management"

// NotificationSendHandler delivers a message to each guest in the job
type NotificationSendHandler struct {
	guests   interfaces.GuestStorage
	notifier interfaces.Notifier
	logger   arbor.ILogger
}

// NewNotificationSendHandler creates a notification handler
func NewNotificationSendHandler(guests interfaces.GuestStorage, notifier interfaces.Notifier, logger arbor.ILogger) *NotificationSendHandler {
	return &NotificationSendHandler{guests: guests, notifier: notifier, logger: logger}
}

// Execute sends the message parameter to every guest
func (h *NotificationSendHandler) Execute(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
	message := stringParam(job.Parameters, "message", "")
	if message == "" {
		return nil, errors.New("notification_send requires a message parameter")
	}
	title := stringParam(job.Parameters, "title", defaultNotificationTitle)

	sent := 0
	outcomes, err := bulk.ProcessItems(ctx, job, tracker, func(ctx context.Context, guestID string) error {
		if _, err := h.guests.GetGuest(ctx, guestID); err != nil {
			return itemStorageError(err,
				fmt.Sprintf("Guest %s not found", guestID),
				func(err error) error { return fmt.Errorf("Error loading guest %s: %v", guestID, err) })
		}

		recipient := models.Recipient{Type: models.RecipientGuest, ID: guestID}
		if err := h.notifier.Notify(ctx, recipient, title, message); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("Failed to notify guest %s: %v", guestID, err)
		}
		sent++
		return nil
	})

	result, err := resultOf(outcomes, err)
	if err != nil {
		return nil, err
	}
	result.Data = map[string]interface{}{"sent": sent}
	return result, nil
}
