package actions

import (
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/bulk"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

// Dependencies are the collaborators used by the built-in handlers.
// Handlers whose collaborators are nil are not registered.
type Dependencies struct {
	Guests    interfaces.GuestStorage
	Payments  interfaces.PaymentStorage
	Inventory interfaces.InventoryStorage
	Notifier  interfaces.Notifier
	Reports   interfaces.ReportRenderer
	Logger    arbor.ILogger
}

// RegisterDefaults registers every built-in handler whose dependencies are available
func RegisterDefaults(registry *bulk.HandlerRegistry, deps Dependencies) error {
	if deps.Logger == nil {
		return errors.New("actions: logger is required")
	}

	handlers := make(map[models.ActionType]bulk.Handler)
	if deps.Guests != nil {
		handlers[models.ActionGuestCheckout] = NewGuestCheckoutHandler(deps.Guests, deps.Logger)
		handlers[models.ActionGuestMarkPaid] = NewGuestMarkPaidHandler(deps.Guests, deps.Logger)
		handlers[models.ActionGuestDelete] = NewGuestDeleteHandler(deps.Guests, deps.Logger)
		handlers[models.ActionGuestExport] = NewGuestExportHandler(deps.Guests, deps.Logger)
		if deps.Notifier != nil {
			handlers[models.ActionNotificationSend] = NewNotificationSendHandler(deps.Guests, deps.Notifier, deps.Logger)
		}
		if deps.Reports != nil {
			handlers[models.ActionReportGenerate] = NewReportGenerateHandler(deps.Guests, deps.Payments, deps.Reports, deps.Logger)
		}
	}
	if deps.Inventory != nil {
		handlers[models.ActionInventoryUpdate] = NewInventoryUpdateHandler(deps.Inventory, deps.Logger)
	}
	if deps.Payments != nil {
		handlers[models.ActionPaymentProcess] = NewPaymentProcessHandler(deps.Payments, deps.Logger)
	}

	for _, actionType := range models.AllActionTypes() {
		h, ok := handlers[actionType]
		if !ok {
			deps.Logger.Warn().Str("action_type", string(actionType)).Msg("No handler registered - missing dependency")
			continue
		}
		if err := registry.Register(actionType, h); err != nil {
			return fmt.Errorf("register %s handler: %w", actionType, err)
		}
	}

	return nil
}
