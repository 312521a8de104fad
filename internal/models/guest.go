package models

import "time"

// Payment status values tracked on a guest
const (
	GuestPaymentPending = "pending"
	GuestPaymentPaid    = "paid"
)

// Guest is a resident (tenant) of the property
type Guest struct {
	ID            string     `json:"id" badgerhold:"key"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	RoomNumber    string     `json:"room_number,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	CheckoutDate  *time.Time `json:"checkout_date,omitempty"`
	IsActive      bool       `json:"is_active"`
	PaymentStatus string     `json:"payment_status"`
	MonthlyRate   float64    `json:"monthly_rate"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// StatusLabel returns the display status used by exports and reports
func (g *Guest) StatusLabel() string {
	if g.IsActive {
		return "Active"
	}
	return "Inactive"
}
