package badger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/bulkops/internal/models"
)

// SeedFile represents the structure of a seed data TOML file
// Format:
// [[guests]]
// id = "10"
// name = "Ana Silva"
// is_active = true
//
// [[payments]]
// id = "p1"
// guest_id = "10"
// amount = 900.0
//
// [[inventory]]
// id = "towels"
// quantity = 40
type SeedFile struct {
	Guests    []SeedGuest     `toml:"guests"`
	Payments  []SeedPayment   `toml:"payments"`
	Inventory []SeedInventory `toml:"inventory"`
}

// SeedGuest is a guest entry in a seed file
type SeedGuest struct {
	ID            string  `toml:"id"`
	Name          string  `toml:"name"`
	Email         string  `toml:"email"`
	Phone         string  `toml:"phone"`
	Room          string  `toml:"room"`
	StartDate     string  `toml:"start_date"`
	EndDate       string  `toml:"end_date"`
	IsActive      bool    `toml:"is_active"`
	PaymentStatus string  `toml:"payment_status"`
	MonthlyRate   float64 `toml:"monthly_rate"`
}

// SeedPayment is a payment entry in a seed file
type SeedPayment struct {
	ID       string  `toml:"id"`
	GuestID  string  `toml:"guest_id"`
	Amount   float64 `toml:"amount"`
	Currency string  `toml:"currency"`
	Status   string  `toml:"status"`
}

// SeedInventory is an inventory entry in a seed file
type SeedInventory struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Category    string `toml:"category"`
	Unit        string `toml:"unit"`
	Quantity    int    `toml:"quantity"`
	MinQuantity int    `toml:"min_quantity"`
}

// SeedStats counts records written by a seed load
type SeedStats struct {
	Guests    int
	Payments  int
	Inventory int
	Skipped   int
}

// LoadSeedFromFile loads guests, payments and inventory from a TOML file.
// Entries without an id are skipped; existing records are replaced.
func (m *Manager) LoadSeedFromFile(ctx context.Context, filePath string) (SeedStats, error) {
	m.logger.Debug().Str("file", filePath).Msg("Loading seed data from file")

	content, err := os.ReadFile(filePath)
	if err != nil {
		return SeedStats{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := toml.Unmarshal(content, &seed); err != nil {
		return SeedStats{}, fmt.Errorf("failed to parse seed file: %w", err)
	}

	stats, err := m.Seed(ctx, seed)
	if err != nil {
		return stats, err
	}

	m.logger.Info().
		Str("file", filePath).
		Int("guests", stats.Guests).
		Int("payments", stats.Payments).
		Int("inventory", stats.Inventory).
		Int("skipped", stats.Skipped).
		Msg("Finished loading seed data")

	return stats, nil
}

// Seed writes the seed records to storage
func (m *Manager) Seed(ctx context.Context, seed SeedFile) (SeedStats, error) {
	var stats SeedStats
	now := time.Now()

	for _, g := range seed.Guests {
		if g.ID == "" {
			m.logger.Warn().Str("name", g.Name).Msg("Skipping seed guest without id")
			stats.Skipped++
			continue
		}
		guest := &models.Guest{
			ID:            g.ID,
			Name:          g.Name,
			Email:         g.Email,
			Phone:         g.Phone,
			RoomNumber:    g.Room,
			StartDate:     parseSeedDate(g.StartDate),
			EndDate:       parseSeedDate(g.EndDate),
			IsActive:      g.IsActive,
			PaymentStatus: g.PaymentStatus,
			MonthlyRate:   g.MonthlyRate,
			UpdatedAt:     now,
		}
		if guest.PaymentStatus == "" {
			guest.PaymentStatus = models.GuestPaymentPending
		}
		if err := m.guest.SaveGuest(ctx, guest); err != nil {
			return stats, err
		}
		stats.Guests++
	}

	for _, p := range seed.Payments {
		if p.ID == "" {
			stats.Skipped++
			continue
		}
		payment := &models.Payment{
			ID:        p.ID,
			GuestID:   p.GuestID,
			Amount:    p.Amount,
			Currency:  p.Currency,
			Status:    models.PaymentStatus(p.Status),
			CreatedAt: now,
		}
		if payment.Status == "" {
			payment.Status = models.PaymentStatusPending
		}
		if payment.Currency == "" {
			payment.Currency = "USD"
		}
		if err := m.payment.SavePayment(ctx, payment); err != nil {
			return stats, err
		}
		stats.Payments++
	}

	for _, i := range seed.Inventory {
		if i.ID == "" {
			stats.Skipped++
			continue
		}
		item := &models.InventoryItem{
			ID:          i.ID,
			Name:        i.Name,
			Category:    i.Category,
			Unit:        i.Unit,
			Quantity:    i.Quantity,
			MinQuantity: i.MinQuantity,
			UpdatedAt:   now,
		}
		if err := m.inventory.SaveItem(ctx, item); err != nil {
			return stats, err
		}
		stats.Inventory++
	}

	return stats, nil
}

func parseSeedDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
