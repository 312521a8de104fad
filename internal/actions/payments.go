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

var errPaymentProcessed = errors.New("payment already processed")

// PaymentProcessHandler settles pending payments
type PaymentProcessHandler struct {
	payments interfaces.PaymentStorage
	logger   arbor.ILogger
	now      func() time.Time
}

// NewPaymentProcessHandler creates a payment processing handler
func NewPaymentProcessHandler(payments interfaces.PaymentStorage, logger arbor.ILogger) *PaymentProcessHandler {
	return &PaymentProcessHandler{payments: payments, logger: logger, now: time.Now}
}

// Execute moves every pending payment in the job to completed
func (h *PaymentProcessHandler) Execute(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
	method := stringParam(job.Parameters, "method", "")
	total := 0.0

	outcomes, err := bulk.ProcessItems(ctx, job, tracker, func(ctx context.Context, paymentID string) error {
		var amount float64
		err := h.payments.UpdatePayment(ctx, paymentID, func(p *models.Payment) error {
			if p.Status != models.PaymentStatusPending {
				return errPaymentProcessed
			}
			now := h.now()
			p.Status = models.PaymentStatusCompleted
			p.ProcessedAt = &now
			if method != "" {
				p.Method = method
			}
			amount = p.Amount
			return nil
		})
		if errors.Is(err, errPaymentProcessed) {
			return fmt.Errorf("Payment %s already processed", paymentID)
		}
		if err == nil {
			total += amount
		}
		return itemStorageError(err,
			fmt.Sprintf("Payment %s not found", paymentID),
			func(err error) error { return fmt.Errorf("Error processing payment %s: %v", paymentID, err) })
	})

	result, err := resultOf(outcomes, err)
	if err != nil {
		return nil, err
	}
	result.Data = map[string]interface{}{"total_amount": total}
	return result, nil
}
