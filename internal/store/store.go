package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SessionRecon/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps all SQL this subsystem issues. Every status-changing statement
// carries the expected prior status in its predicate, so a losing concurrent
// writer observes zero rows affected instead of clobbering state.
type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// --- orders ---

func (s *Store) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, user_id, product_type, quantity, amount, status, created_at, updated_at
		FROM orders WHERE id=$1
	`, orderID)

	var o models.Order
	err := row.Scan(&o.ID, &o.UserID, &o.ProductType, &o.Quantity, &o.Amount, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// ListExpiredPendingOrders returns pending orders created before cutoff.
func (s *Store) ListExpiredPendingOrders(ctx context.Context, cutoff time.Time) ([]*models.Order, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, user_id, product_type, quantity, amount, status, created_at, updated_at
		FROM orders
		WHERE status='pending' AND created_at < $1
		ORDER BY created_at
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list expired pending orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.ProductType, &o.Quantity, &o.Amount, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

// ListStaleOrderIDs returns ids of orders in any terminal-or-stale state
// (pending past the timeout, cancelled, expired) created before cutoff.
func (s *Store) ListStaleOrderIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id FROM orders
		WHERE status IN ('pending','cancelled','expired') AND created_at < $1
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetOrderStatuses resolves the current status of every id that exists.
// Missing ids are simply absent from the map.
func (s *Store) GetOrderStatuses(ctx context.Context, ids []string) (map[string]models.OrderStatus, error) {
	statuses := make(map[string]models.OrderStatus, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, status FROM orders WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get order statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var status models.OrderStatus
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		statuses[id] = status
	}
	return statuses, rows.Err()
}

// CancelPendingOrder transitions pending->cancelled. Zero rows affected means
// someone else already moved the order; that is a normal outcome.
func (s *Store) CancelPendingOrder(ctx context.Context, orderID string) (int64, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE orders SET status='cancelled', updated_at=now()
		WHERE id=$1 AND status='pending'
	`, orderID)
	if err != nil {
		return 0, fmt.Errorf("cancel order: %w", err)
	}
	return res.RowsAffected(), nil
}

// ExpirePendingOrders transitions pending->expired for the given ids.
func (s *Store) ExpirePendingOrders(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.Pool.Exec(ctx, `
		UPDATE orders SET status='expired', updated_at=now()
		WHERE id = ANY($1) AND status='pending'
	`, ids)
	if err != nil {
		return 0, fmt.Errorf("expire orders: %w", err)
	}
	return res.RowsAffected(), nil
}

// --- payments ---

func (s *Store) CancelPendingPayments(ctx context.Context, orderID string) (int64, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE payments SET status='cancelled'
		WHERE order_id=$1 AND status='pending'
	`, orderID)
	if err != nil {
		return 0, fmt.Errorf("cancel payments: %w", err)
	}
	return res.RowsAffected(), nil
}

func (s *Store) MarkPaymentsPaid(ctx context.Context, orderID string, paidAt time.Time) (int64, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE payments SET status='paid', paid_at=$2
		WHERE order_id=$1 AND status='pending'
	`, orderID, paidAt)
	if err != nil {
		return 0, fmt.Errorf("mark payments paid: %w", err)
	}
	return res.RowsAffected(), nil
}

// --- session files ---

// ListReservedSessions snapshots every session currently marked reserved.
func (s *Store) ListReservedSessions(ctx context.Context) ([]models.SessionFile, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, file_name, type, status, reserved_for_order, reserved_at
		FROM session_files WHERE status='reserved'
	`)
	if err != nil {
		return nil, fmt.Errorf("list reserved sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.SessionFile
	for rows.Next() {
		var sf models.SessionFile
		if err := rows.Scan(&sf.ID, &sf.FileName, &sf.Type, &sf.Status, &sf.ReservedForOrder, &sf.ReservedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sf)
	}
	return sessions, rows.Err()
}

// ReleaseSessionsByOrders flips every session still reserved for one of the
// given orders back to available, in a single statement. Re-running on
// already-released rows is a no-op.
func (s *Store) ReleaseSessionsByOrders(ctx context.Context, orderIDs []string) ([]models.ReleasedSession, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, `
		UPDATE session_files
		SET status='available', reserved_for_order=NULL, reserved_at=NULL
		WHERE status='reserved' AND reserved_for_order = ANY($1)
		RETURNING id, type
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("release sessions by orders: %w", err)
	}
	defer rows.Close()
	return scanReleased(rows)
}

// ReleaseSessionsByIDs releases the given session rows directly.
func (s *Store) ReleaseSessionsByIDs(ctx context.Context, sessionIDs []string) ([]models.ReleasedSession, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	rows, err := s.Pool.Query(ctx, `
		UPDATE session_files
		SET status='available', reserved_for_order=NULL, reserved_at=NULL
		WHERE status='reserved' AND id = ANY($1)
		RETURNING id, type
	`, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("release sessions by ids: %w", err)
	}
	defer rows.Close()
	return scanReleased(rows)
}

func scanReleased(rows pgx.Rows) ([]models.ReleasedSession, error) {
	var released []models.ReleasedSession
	for rows.Next() {
		var r models.ReleasedSession
		if err := rows.Scan(&r.ID, &r.Type); err != nil {
			return nil, err
		}
		released = append(released, r)
	}
	return released, rows.Err()
}

// --- inventory ---

func (s *Store) CountAvailableSessions(ctx context.Context, sessionType string) (int, error) {
	var count int
	err := s.Pool.QueryRow(ctx, `
		SELECT count(*) FROM session_files WHERE type=$1 AND status='available'
	`, sessionType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count available sessions: %w", err)
	}
	return count, nil
}

// UpsertInventory overwrites the cached counter for a type. The counter is
// derived state; a recount is always authoritative over whatever is stored.
func (s *Store) UpsertInventory(ctx context.Context, sessionType string, quantity int, now time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sessions_inventory (type, quantity, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (type) DO UPDATE SET quantity=EXCLUDED.quantity, updated_at=EXCLUDED.updated_at
	`, sessionType, quantity, now)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

// --- webhook dedupe ledger ---

func (s *Store) FindProcessedWebhook(ctx context.Context, transactionID, gateway string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM processed_webhooks WHERE transaction_id=$1 AND gateway=$2)
	`, transactionID, gateway).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("find processed webhook: %w", err)
	}
	return exists, nil
}

func (s *Store) InsertProcessedWebhook(ctx context.Context, pw *models.ProcessedWebhook) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO processed_webhooks (transaction_id, gateway, order_id, webhook_payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id, gateway) DO NOTHING
	`, pw.TransactionID, pw.Gateway, pw.OrderID, pw.Payload)
	if err != nil {
		return fmt.Errorf("insert processed webhook: %w", err)
	}
	return nil
}

// --- order completion ---

// CompleteOrder consumes up to the order's quantity of its reserved sessions
// into sold and transitions the order pending->completed, in one transaction.
// The order transition is guarded, so a sweep that already cancelled the
// order makes this a zero-row no-op and nothing is consumed.
func (s *Store) CompleteOrder(ctx context.Context, orderID string, quantity int) (int64, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin complete order: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `
		UPDATE orders SET status='completed', updated_at=now()
		WHERE id=$1 AND status='pending'
	`, orderID)
	if err != nil {
		return 0, fmt.Errorf("complete order: %w", err)
	}
	if res.RowsAffected() == 0 {
		// already moved by a concurrent writer; leave sessions alone
		return 0, tx.Commit(ctx)
	}

	sold, err := tx.Exec(ctx, `
		UPDATE session_files SET status='sold', reserved_at=NULL
		WHERE id IN (
			SELECT id FROM session_files
			WHERE status='reserved' AND reserved_for_order=$1
			ORDER BY reserved_at
			LIMIT $2
		)
	`, orderID, quantity)
	if err != nil {
		return 0, fmt.Errorf("consume sessions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit complete order: %w", err)
	}
	return sold.RowsAffected(), nil
}

// --- audit / gateway logs ---

func (s *Store) InsertAuditLogs(ctx context.Context, entries []models.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO audit_logs (id, user_id, action, resource, details)
			VALUES ($1, $2, $3, $4, $5)
		`, e.ID, e.UserID, e.Action, e.Resource, e.Details)
	}
	br := s.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert audit logs: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertGatewayLog(ctx context.Context, entry models.GatewayLog) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO gateway_logs (gateway, status, order_id, error, attempt)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
	`, entry.Gateway, entry.Status, entry.OrderID, entry.Error, entry.Attempt)
	if err != nil {
		return fmt.Errorf("insert gateway log: %w", err)
	}
	return nil
}
