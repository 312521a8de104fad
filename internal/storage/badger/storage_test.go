package badger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/bulkops/internal/common"
	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestGuestStorageRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	guests := m.GuestStorage()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, guests.SaveGuest(ctx, &models.Guest{ID: "2", Name: "Ben", IsActive: true, StartDate: &start}))
	require.NoError(t, guests.SaveGuest(ctx, &models.Guest{ID: "1", Name: "Ana", IsActive: true}))

	g, err := guests.GetGuest(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Ben", g.Name)
	require.NotNil(t, g.StartDate)
	assert.True(t, start.Equal(*g.StartDate))

	_, err = guests.GetGuest(ctx, "404")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))

	found, err := guests.GetGuests(ctx, []string{"1", "404", "2"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	all, err := guests.ListGuests(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, "2", all[1].ID)
}

func TestGuestStorageUpdateRollsBackOnError(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	guests := m.GuestStorage()
	require.NoError(t, guests.SaveGuest(ctx, &models.Guest{ID: "1", Name: "Ana", IsActive: true}))

	sentinel := errors.New("reject")
	err := guests.UpdateGuest(ctx, "1", func(g *models.Guest) error {
		g.IsActive = false
		return sentinel
	})
	assert.True(t, errors.Is(err, sentinel))

	g, err := guests.GetGuest(ctx, "1")
	require.NoError(t, err)
	assert.True(t, g.IsActive)

	require.NoError(t, guests.UpdateGuest(ctx, "1", func(g *models.Guest) error {
		g.IsActive = false
		return nil
	}))
	g, err = guests.GetGuest(ctx, "1")
	require.NoError(t, err)
	assert.False(t, g.IsActive)

	err = guests.UpdateGuest(ctx, "404", func(g *models.Guest) error { return nil })
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestGuestStorageDelete(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	guests := m.GuestStorage()
	require.NoError(t, guests.SaveGuest(ctx, &models.Guest{ID: "1", Name: "Ana"}))

	require.NoError(t, guests.DeleteGuest(ctx, "1"))
	assert.True(t, errors.Is(guests.DeleteGuest(ctx, "1"), interfaces.ErrNotFound))
}

func TestPaymentStorageByGuest(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	payments := m.PaymentStorage()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, payments.SavePayment(ctx, &models.Payment{ID: "p2", GuestID: "1", Amount: 20, Status: models.PaymentStatusPending, CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, payments.SavePayment(ctx, &models.Payment{ID: "p1", GuestID: "1", Amount: 10, Status: models.PaymentStatusPending, CreatedAt: base}))
	require.NoError(t, payments.SavePayment(ctx, &models.Payment{ID: "p3", GuestID: "2", Amount: 30, Status: models.PaymentStatusPending, CreatedAt: base}))

	list, err := payments.ListPaymentsByGuest(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	assert.Equal(t, "p2", list[1].ID)

	require.NoError(t, payments.UpdatePayment(ctx, "p1", func(p *models.Payment) error {
		p.Status = models.PaymentStatusCompleted
		return nil
	}))
	p, err := payments.GetPayment(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, p.Status)
}

func TestInventoryStorage(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	inventory := m.InventoryStorage()

	require.NoError(t, inventory.SaveItem(ctx, &models.InventoryItem{ID: "b", Name: "Towels", Quantity: 5}))
	require.NoError(t, inventory.SaveItem(ctx, &models.InventoryItem{ID: "a", Name: "Soap", Quantity: 3}))

	items, err := inventory.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Soap", items[0].Name)

	require.NoError(t, inventory.UpdateItem(ctx, "b", func(i *models.InventoryItem) error {
		i.Quantity += 10
		return nil
	}))
	item, err := inventory.GetItem(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 15, item.Quantity)

	require.NoError(t, inventory.DeleteItem(ctx, "a"))
	_, err = inventory.GetItem(ctx, "a")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestAuditStorage(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	audit := m.AuditStorage()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, action := range []string{models.AuditActionStarted, models.AuditActionCompleted} {
		require.NoError(t, audit.SaveEvent(ctx, &models.AuditEvent{
			ID:         action,
			EventType:  models.AuditEventBulkAction,
			EntityType: "bulk_job",
			EntityID:   "job-1",
			Action:     action,
			Metadata:   map[string]interface{}{"total_items": 3},
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, audit.SaveEvent(ctx, &models.AuditEvent{ID: "other", EntityType: "bulk_job", EntityID: "job-2", CreatedAt: base.Add(time.Hour)}))

	recent, err := audit.ListEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "other", recent[0].ID)
	assert.Equal(t, models.AuditActionCompleted, recent[1].ID)

	trail, err := audit.ListEventsByEntity(ctx, "bulk_job", "job-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, models.AuditActionStarted, trail[0].Action)
	assert.EqualValues(t, 3, trail[0].Metadata["total_items"])
}

func TestNotificationStorage(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	store := m.NotificationStorage()

	user := models.Recipient{Type: models.RecipientUser, ID: "1"}
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveNotification(ctx, &models.Notification{ID: "n1", RecipientType: user.Type, RecipientID: user.ID, Title: "first", CreatedAt: base}))
	require.NoError(t, store.SaveNotification(ctx, &models.Notification{ID: "n2", RecipientType: user.Type, RecipientID: user.ID, Title: "second", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, store.SaveNotification(ctx, &models.Notification{ID: "n3", RecipientType: models.RecipientGuest, RecipientID: "1", Title: "guest", CreatedAt: base}))

	list, err := store.ListNotifications(ctx, user, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].ID)

	require.NoError(t, store.UpdateNotification(ctx, "n2", func(n *models.Notification) error {
		n.Read = true
		return nil
	}))

	unread, err := store.ListNotifications(ctx, user, true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "n1", unread[0].ID)

	_, err = store.GetNotification(ctx, "missing")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	m, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	err = m.GuestStorage().UpdateGuest(context.Background(), "1", func(g *models.Guest) error { return nil })
	assert.True(t, errors.Is(err, interfaces.ErrStorageUnavailable))
}

func TestLoadSeedFromFile(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	seed := `
[[guests]]
id = "10"
name = "Ana Silva"
room = "101"
start_date = "2024-01-01"
is_active = true
monthly_rate = 900.0

[[guests]]
name = "No Id"

[[payments]]
id = "p1"
guest_id = "10"
amount = 900.0

[[inventory]]
id = "towels"
name = "Towels"
quantity = 40
min_quantity = 10
`
	path := filepath.Join(t.TempDir(), "seed.toml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0644))

	stats, err := m.LoadSeedFromFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, SeedStats{Guests: 1, Payments: 1, Inventory: 1, Skipped: 1}, stats)

	g, err := m.GuestStorage().GetGuest(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "101", g.RoomNumber)
	assert.Equal(t, models.GuestPaymentPending, g.PaymentStatus)
	require.NotNil(t, g.StartDate)

	p, err := m.PaymentStorage().GetPayment(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	assert.Equal(t, "USD", p.Currency)
}
