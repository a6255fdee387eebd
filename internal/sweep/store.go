package sweep

import (
	"context"
	"time"

	"SessionRecon/internal/models"
)

// InventoryStore recomputes the cached per-type availability counter.
type InventoryStore interface {
	CountAvailableSessions(ctx context.Context, sessionType string) (int, error)
	UpsertInventory(ctx context.Context, sessionType string, quantity int, now time.Time) error
}

// OrderSweepStore is what the expired-order sweep needs from the store.
type OrderSweepStore interface {
	InventoryStore
	ListExpiredPendingOrders(ctx context.Context, cutoff time.Time) ([]*models.Order, error)
	ReleaseSessionsByOrders(ctx context.Context, orderIDs []string) ([]models.ReleasedSession, error)
	CancelPendingOrder(ctx context.Context, orderID string) (int64, error)
	CancelPendingPayments(ctx context.Context, orderID string) (int64, error)
}

// ReservationSweepStore is what the expired-reservation sweep needs.
type ReservationSweepStore interface {
	InventoryStore
	ListStaleOrderIDs(ctx context.Context, cutoff time.Time) ([]string, error)
	ReleaseSessionsByOrders(ctx context.Context, orderIDs []string) ([]models.ReleasedSession, error)
	ExpirePendingOrders(ctx context.Context, ids []string) (int64, error)
}

// ReconcileStore is what the orphan reconciler needs.
type ReconcileStore interface {
	InventoryStore
	ListReservedSessions(ctx context.Context) ([]models.SessionFile, error)
	GetOrderStatuses(ctx context.Context, ids []string) (map[string]models.OrderStatus, error)
	ReleaseSessionsByIDs(ctx context.Context, sessionIDs []string) ([]models.ReleasedSession, error)
	InsertAuditLogs(ctx context.Context, entries []models.AuditLogEntry) error
}
