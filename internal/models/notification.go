package models

import "time"

// RecipientType distinguishes staff users from guests
type RecipientType string

const (
	RecipientUser  RecipientType = "user"
	RecipientGuest RecipientType = "guest"
)

// Recipient identifies who a notification is addressed to
type Recipient struct {
	Type RecipientType `json:"type"`
	ID   string        `json:"id"`
}

// Notification is an in-app notification record
type Notification struct {
	ID            string        `json:"id" badgerhold:"key"`
	RecipientType RecipientType `json:"recipient_type"`
	RecipientID   string        `json:"recipient_id"`
	Title         string        `json:"title"`
	Message       string        `json:"message"`
	Category      string        `json:"category,omitempty"`
	JobID         string        `json:"job_id,omitempty"`
	Read          bool          `json:"read"`
	CreatedAt     time.Time     `json:"created_at"`
	ReadAt        *time.Time    `json:"read_at,omitempty"`
}
