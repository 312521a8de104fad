package models

import "time"

// PaymentStatus represents the processing state of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is a charge recorded against a guest
type Payment struct {
	ID          string        `json:"id" badgerhold:"key"`
	GuestID     string        `json:"guest_id"`
	Amount      float64       `json:"amount"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	Method      string        `json:"method,omitempty"`
	Reference   string        `json:"reference,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
}
