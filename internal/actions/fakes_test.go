package actions

import (
	"context"
	"errors"
	"sync"

	"github.com/ternarybob/bulkops/internal/interfaces"
	"github.com/ternarybob/bulkops/internal/models"
)

type memGuests struct {
	mu          sync.Mutex
	guests      map[string]*models.Guest
	unavailable bool
}

func newMemGuests(guests ...*models.Guest) *memGuests {
	m := &memGuests{guests: make(map[string]*models.Guest)}
	for _, g := range guests {
		m.guests[g.ID] = g
	}
	return m
}

func (m *memGuests) check() error {
	if m.unavailable {
		return interfaces.ErrStorageUnavailable
	}
	return nil
}

func (m *memGuests) GetGuest(ctx context.Context, id string) (*models.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	g, ok := m.guests[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	c := *g
	return &c, nil
}

func (m *memGuests) GetGuests(ctx context.Context, ids []string) (map[string]*models.Guest, error) {
	out := make(map[string]*models.Guest)
	for _, id := range ids {
		g, err := m.GetGuest(ctx, id)
		if errors.Is(err, interfaces.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = g
	}
	return out, nil
}

func (m *memGuests) ListGuests(ctx context.Context) ([]*models.Guest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Guest, 0, len(m.guests))
	for _, g := range m.guests {
		c := *g
		out = append(out, &c)
	}
	return out, nil
}

func (m *memGuests) SaveGuest(ctx context.Context, guest *models.Guest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *guest
	m.guests[guest.ID] = &c
	return nil
}

func (m *memGuests) UpdateGuest(ctx context.Context, id string, mutate func(*models.Guest) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	g, ok := m.guests[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	c := *g
	if err := mutate(&c); err != nil {
		return err
	}
	m.guests[id] = &c
	return nil
}

func (m *memGuests) DeleteGuest(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if _, ok := m.guests[id]; !ok {
		return interfaces.ErrNotFound
	}
	delete(m.guests, id)
	return nil
}

func (m *memGuests) get(id string) *models.Guest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guests[id]
}

type memPayments struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func newMemPayments(payments ...*models.Payment) *memPayments {
	m := &memPayments{payments: make(map[string]*models.Payment)}
	for _, p := range payments {
		m.payments[p.ID] = p
	}
	return m
}

func (m *memPayments) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (m *memPayments) ListPaymentsByGuest(ctx context.Context, guestID string) ([]*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Payment, 0)
	for _, p := range m.payments {
		if p.GuestID == guestID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memPayments) SavePayment(ctx context.Context, payment *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *payment
	m.payments[payment.ID] = &c
	return nil
}

func (m *memPayments) UpdatePayment(ctx context.Context, id string, mutate func(*models.Payment) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	c := *p
	if err := mutate(&c); err != nil {
		return err
	}
	m.payments[id] = &c
	return nil
}

func (m *memPayments) DeletePayment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.payments, id)
	return nil
}

type memInventory struct {
	mu    sync.Mutex
	items map[string]*models.InventoryItem
}

func newMemInventory(items ...*models.InventoryItem) *memInventory {
	m := &memInventory{items: make(map[string]*models.InventoryItem)}
	for _, i := range items {
		m.items[i.ID] = i
	}
	return m
}

func (m *memInventory) GetItem(ctx context.Context, id string) (*models.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.items[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	c := *i
	return &c, nil
}

func (m *memInventory) ListItems(ctx context.Context) ([]*models.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.InventoryItem, 0, len(m.items))
	for _, i := range m.items {
		c := *i
		out = append(out, &c)
	}
	return out, nil
}

func (m *memInventory) SaveItem(ctx context.Context, item *models.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *item
	m.items[item.ID] = &c
	return nil
}

func (m *memInventory) UpdateItem(ctx context.Context, id string, mutate func(*models.InventoryItem) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.items[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	c := *i
	if err := mutate(&c); err != nil {
		return err
	}
	m.items[id] = &c
	return nil
}

func (m *memInventory) DeleteItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

type sentNotification struct {
	recipient models.Recipient
	title     string
	message   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail map[string]bool
}

func (n *recordingNotifier) Notify(ctx context.Context, recipient models.Recipient, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[recipient.ID] {
		return errors.New("mailbox full")
	}
	n.sent = append(n.sent, sentNotification{recipient: recipient, title: title, message: message})
	return nil
}

type stubRenderer struct{}

func (stubRenderer) MarkdownToPDF(markdown, title string) ([]byte, error) {
	return []byte("%PDF-1.3 " + title), nil
}

func (stubRenderer) MarkdownToHTML(markdown string) ([]byte, error) {
	return []byte("<p>" + markdown + "</p>"), nil
}
