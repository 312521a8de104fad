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

var errNegativeStock = errors.New("quantity would drop below zero")

// InventoryUpdateHandler adjusts or sets stock levels
type InventoryUpdateHandler struct {
	inventory interfaces.InventoryStorage
	logger    arbor.ILogger
	now       func() time.Time
}

// NewInventoryUpdateHandler creates an inventory update handler
func NewInventoryUpdateHandler(inventory interfaces.InventoryStorage, logger arbor.ILogger) *InventoryUpdateHandler {
	return &InventoryUpdateHandler{inventory: inventory, logger: logger, now: time.Now}
}

// Execute applies quantity_delta (relative) or quantity (absolute) to every item.
// Items left at or below their reorder threshold are reported as low_stock.
func (h *InventoryUpdateHandler) Execute(ctx context.Context, job models.BulkJob, tracker bulk.Tracker) (*models.ActionResult, error) {
	delta, hasDelta, err := intParam(job.Parameters, "quantity_delta")
	if err != nil {
		return nil, err
	}
	quantity, hasQuantity, err := intParam(job.Parameters, "quantity")
	if err != nil {
		return nil, err
	}
	if hasDelta == hasQuantity {
		return nil, errors.New("inventory_update requires exactly one of quantity_delta or quantity")
	}
	if hasQuantity && quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative, got %d", quantity)
	}

	lowStock := make([]string, 0)
	outcomes, err := bulk.ProcessItems(ctx, job, tracker, func(ctx context.Context, itemID string) error {
		var low bool
		err := h.inventory.UpdateItem(ctx, itemID, func(item *models.InventoryItem) error {
			next := quantity
			if hasDelta {
				next = item.Quantity + delta
			}
			if next < 0 {
				return errNegativeStock
			}
			item.Quantity = next
			item.UpdatedAt = h.now()
			low = item.IsLowStock()
			return nil
		})
		if errors.Is(err, errNegativeStock) {
			return fmt.Errorf("Inventory item %s would drop below zero", itemID)
		}
		if err == nil && low {
			lowStock = append(lowStock, itemID)
		}
		return itemStorageError(err,
			fmt.Sprintf("Inventory item %s not found", itemID),
			func(err error) error { return fmt.Errorf("Error updating inventory item %s: %v", itemID, err) })
	})

	result, err := resultOf(outcomes, err)
	if err != nil {
		return nil, err
	}
	result.Data = map[string]interface{}{"low_stock": lowStock}
	return result, nil
}
