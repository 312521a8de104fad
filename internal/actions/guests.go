// -----------------------------------------------------------------------
// Guest Actions - checkout, mark-paid and delete handlers
// -----------------------------------------------------------------------

package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/bulk"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

var errAlreadyCheckedOut = errors.New("guest already checked out")

// itemStorageError maps a storage failure to an item failure or a job abort
func itemStorageError(err error, notFound string, other func(error) error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, interfaces.ErrStorageUnavailable):
		return bulk.Abort(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, interfaces.ErrNotFound):
		return errors.New(notFound)
	default:
		return other(err)
	}
}

func resultOf(outcomes []models.ItemOutcome, err error) (*models.ActionResult, error) {
	if err != nil {
		return nil, err
	}
	return models.NewActionResult(outcomes), nil
}

// GuestCheckoutHandler marks active guests as checked out
type GuestCheckoutHandler struct {
	guests interfaces.GuestStorage
	logger arbor.ILogger
	now    func() time.Time
}

// NewGuestCheckoutHandler creates a guest checkout handler
func NewGuestCheckoutHandler(guests interfaces.GuestStorage, logger arbor.ILogger) *GuestCheckoutHandler {
	return &GuestCheckoutHandler{guests: guests, logger: logger, now: time.Now}
}

// Execute checks out every guest in the job
func (h *GuestCheckoutHandler) Execute(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
	return resultOf(bulk.ProcessItems(ctx, job, tracker, func(ctx context.Context, guestID string) error {
		err := h.guests.UpdateGuest(ctx, guestID, func(g *models.Guest) error {
			if !g.IsActive {
				return errAlreadyCheckedOut
			}
			now := h.now()
			g.IsActive = false
			g.CheckoutDate = &now
			g.UpdatedAt = now
			return nil
		})
		if errors.Is(err, errAlreadyCheckedOut) {
			err = interfaces.ErrNotFound
		}
		if err == nil {
			h.logger.Debug().Str("guest_id", guestID).Msg("Guest checked out")
		}
		return itemStorageError(err,
			fmt.Sprintf("Guest %s not found or already checked out", guestID),
			func(err error) error { return fmt.Errorf("Error checking out guest %s: %v", guestID, err) })
	}))
}

// GuestMarkPaidHandler sets the payment status of guests to paid
type GuestMarkPaidHandler struct {
	guests interfaces.GuestStorage
	logger arbor.ILogger
	now    func() time.Time
}

// NewGuestMarkPaidHandler creates a mark-paid handler
func NewGuestMarkPaidHandler(guests interfaces.GuestStorage, logger arbor.ILogger) *GuestMarkPaidHandler {
	return &GuestMarkPaidHandler{guests: guests, logger: logger, now: time.Now}
}

// Execute marks every guest in the job as paid
func (h *GuestMarkPaidHandler) Execute(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
	return resultOf(bulk.ProcessItems(ctx, job, tracker, func(ctx context.Context, guestID string) error {
		err := h.guests.UpdateGuest(ctx, guestID, func(g *models.Guest) error {
			g.PaymentStatus = models.GuestPaymentPaid
			g.UpdatedAt = h.now()
			return nil
		})
		return itemStorageError(err,
			fmt.Sprintf("Guest %s not found", guestID),
			func(err error) error { return fmt.Errorf("Error marking guest %s as paid: %v", guestID, err) })
	}))
}

// GuestDeleteHandler removes guest records
type GuestDeleteHandler struct {
	guests interfaces.GuestStorage
	logger arbor.ILogger
}

// NewGuestDeleteHandler creates a guest delete handler
func NewGuestDeleteHandler(guests interfaces.GuestStorage, logger arbor.ILogger) *GuestDeleteHandler {
	return &GuestDeleteHandler{guests: guests, logger: logger}
}

// Execute deletes every guest in the job
func (h *GuestDeleteHandler) Execute(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
	return resultOf(bulk.ProcessItems(ctx, job, tracker, func(ctx context.Context, guestID string) error {
		err := h.guests.DeleteGuest(ctx, guestID)
		if err == nil {
			h.logger.Debug().Str("guest_id", guestID).Msg("Guest deleted")
		}
		return itemStorageError(err,
			fmt.Sprintf("Guest %s not found", guestID),
			func(err error) error { return fmt.Errorf("Error deleting guest %s: %v", guestID, err) })
	}))
}
