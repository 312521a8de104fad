package models

import "time"

// InventoryItem is a stock-tracked supply item
type InventoryItem struct {
	ID          string    `json:"id" badgerhold:"key"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Quantity    int       `json:"quantity"`
	MinQuantity int       `json:"min_quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsLowStock reports whether the quantity is at or below the reorder threshold
func (i *InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.MinQuantity
}
