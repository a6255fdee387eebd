package sweep

import (
	"context"
	"errors"
	"time"

	"SessionRecon/internal/models"
)

// fakeStore is an in-memory stand-in for the SQL store. Its methods mirror
// the real predicates, including the status guards, so races can be
// simulated by mutating state between calls.
type fakeStore struct {
	orders    map[string]*models.Order
	payments  map[string][]*models.Payment // keyed by order id
	sessions  map[string]*models.SessionFile
	inventory map[string]models.InventoryRow
	audits    []models.AuditLogEntry

	releaseByOrdersCalls int
	syncedTypes          []string

	failReleaseForOrder string
	failCancelOrder     string
	failAuditInsert     bool
	afterList           func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:    make(map[string]*models.Order),
		payments:  make(map[string][]*models.Payment),
		sessions:  make(map[string]*models.SessionFile),
		inventory: make(map[string]models.InventoryRow),
	}
}

func (f *fakeStore) addOrder(id string, status models.OrderStatus, createdAt time.Time) *models.Order {
	o := &models.Order{
		ID:          id,
		UserID:      "user-1",
		ProductType: "sessions",
		Quantity:    1,
		Amount:      "49.90",
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	f.orders[id] = o
	return o
}

func (f *fakeStore) addPayment(orderID string, status models.PaymentStatus) {
	f.payments[orderID] = append(f.payments[orderID], &models.Payment{
		ID:      "pay-" + orderID,
		OrderID: orderID,
		Status:  status,
	})
}

func (f *fakeStore) addSession(id, sessionType string, status models.SessionStatus, orderID *string, reservedAt *time.Time) *models.SessionFile {
	sf := &models.SessionFile{
		ID:               id,
		FileName:         id + ".session",
		Type:             sessionType,
		Status:           status,
		ReservedForOrder: orderID,
		ReservedAt:       reservedAt,
	}
	f.sessions[id] = sf
	return sf
}

func (f *fakeStore) availableCount(sessionType string) int {
	n := 0
	for _, sf := range f.sessions {
		if sf.Type == sessionType && sf.Status == models.SessionAvailable {
			n++
		}
	}
	return n
}

// --- InventoryStore ---

func (f *fakeStore) CountAvailableSessions(_ context.Context, sessionType string) (int, error) {
	return f.availableCount(sessionType), nil
}

func (f *fakeStore) UpsertInventory(_ context.Context, sessionType string, quantity int, now time.Time) error {
	f.inventory[sessionType] = models.InventoryRow{Type: sessionType, Quantity: quantity, UpdatedAt: now}
	f.syncedTypes = append(f.syncedTypes, sessionType)
	return nil
}

// --- OrderSweepStore ---

func (f *fakeStore) ListExpiredPendingOrders(_ context.Context, cutoff time.Time) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.Status == models.OrderPending && o.CreatedAt.Before(cutoff) {
			out = append(out, o)
		}
	}
	if f.afterList != nil {
		f.afterList()
	}
	return out, nil
}

func (f *fakeStore) ReleaseSessionsByOrders(_ context.Context, orderIDs []string) ([]models.ReleasedSession, error) {
	f.releaseByOrdersCalls++
	for _, id := range orderIDs {
		if id == f.failReleaseForOrder {
			return nil, errors.New("release failed")
		}
	}
	ids := make(map[string]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		ids[id] = struct{}{}
	}
	var released []models.ReleasedSession
	for _, sf := range f.sessions {
		if sf.Status != models.SessionReserved || sf.ReservedForOrder == nil {
			continue
		}
		if _, ok := ids[*sf.ReservedForOrder]; !ok {
			continue
		}
		sf.Status = models.SessionAvailable
		sf.ReservedForOrder = nil
		sf.ReservedAt = nil
		released = append(released, models.ReleasedSession{ID: sf.ID, Type: sf.Type})
	}
	return released, nil
}

func (f *fakeStore) CancelPendingOrder(_ context.Context, orderID string) (int64, error) {
	if orderID == f.failCancelOrder {
		return 0, errors.New("cancel failed")
	}
	o, ok := f.orders[orderID]
	if !ok || o.Status != models.OrderPending {
		return 0, nil
	}
	o.Status = models.OrderCancelled
	return 1, nil
}

func (f *fakeStore) CancelPendingPayments(_ context.Context, orderID string) (int64, error) {
	var n int64
	for _, p := range f.payments[orderID] {
		if p.Status == models.PaymentPending {
			p.Status = models.PaymentCancelled
			n++
		}
	}
	return n, nil
}

// --- ReservationSweepStore ---

func (f *fakeStore) ListStaleOrderIDs(_ context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	for _, o := range f.orders {
		switch o.Status {
		case models.OrderPending, models.OrderCancelled, models.OrderExpired:
			if o.CreatedAt.Before(cutoff) {
				ids = append(ids, o.ID)
			}
		}
	}
	return ids, nil
}

func (f *fakeStore) ExpirePendingOrders(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if o, ok := f.orders[id]; ok && o.Status == models.OrderPending {
			o.Status = models.OrderExpired
			n++
		}
	}
	return n, nil
}

// --- ReconcileStore ---

func (f *fakeStore) ListReservedSessions(_ context.Context) ([]models.SessionFile, error) {
	var out []models.SessionFile
	for _, sf := range f.sessions {
		if sf.Status == models.SessionReserved {
			out = append(out, *sf)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrderStatuses(_ context.Context, ids []string) (map[string]models.OrderStatus, error) {
	statuses := make(map[string]models.OrderStatus, len(ids))
	for _, id := range ids {
		if o, ok := f.orders[id]; ok {
			statuses[id] = o.Status
		}
	}
	return statuses, nil
}

func (f *fakeStore) ReleaseSessionsByIDs(_ context.Context, sessionIDs []string) ([]models.ReleasedSession, error) {
	var released []models.ReleasedSession
	for _, id := range sessionIDs {
		sf, ok := f.sessions[id]
		if !ok || sf.Status != models.SessionReserved {
			continue
		}
		sf.Status = models.SessionAvailable
		sf.ReservedForOrder = nil
		sf.ReservedAt = nil
		released = append(released, models.ReleasedSession{ID: sf.ID, Type: sf.Type})
	}
	return released, nil
}

func (f *fakeStore) InsertAuditLogs(_ context.Context, entries []models.AuditLogEntry) error {
	if f.failAuditInsert {
		return errors.New("audit insert failed")
	}
	f.audits = append(f.audits, entries...)
	return nil
}
