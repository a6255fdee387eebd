package sweep

import (
	"context"
	"fmt"
	"time"

	"SessionRecon/internal/clock"
	"SessionRecon/internal/log"
	"SessionRecon/internal/metrics"

	"github.com/rs/zerolog"
)

// OrderSweeper cancels pending orders older than the grace period and
// releases their reserved sessions back to the pool.
type OrderSweeper struct {
	Store       OrderSweepStore
	Clock       clock.Clock
	GracePeriod time.Duration

	logger zerolog.Logger
}

func NewOrderSweeper(st OrderSweepStore, clk clock.Clock, grace time.Duration) *OrderSweeper {
	return &OrderSweeper{
		Store:       st,
		Clock:       clk,
		GracePeriod: grace,
		logger:      log.WithComponent("sweep.orders"),
	}
}

// OrderSweepResult is the JSON body of a cleanup-expired-orders run.
type OrderSweepResult struct {
	Success   bool     `json:"success"`
	Cancelled int      `json:"cancelled"`
	Total     int      `json:"total"`
	Errors    []string `json:"errors,omitempty"`
}

// Run performs one sweep. A failure on a single order is recorded and the
// sweep moves on; only a failed snapshot read aborts the run.
func (s *OrderSweeper) Run(ctx context.Context) (OrderSweepResult, error) {
	now := s.Clock.Now()
	cutoff := now.Add(-s.GracePeriod)
	s.logger.Info().Time("cutoff", cutoff).Msg("sweeping pending orders")

	orders, err := s.Store.ListExpiredPendingOrders(ctx, cutoff)
	if err != nil {
		metrics.RecordSweepRun("orders", err)
		return OrderSweepResult{}, err
	}

	result := OrderSweepResult{Success: true, Total: len(orders)}
	if len(orders) == 0 {
		s.logger.Info().Msg("no expired orders found")
		metrics.RecordSweepRun("orders", nil)
		return result, nil
	}

	releasedTotal := 0
	for _, order := range orders {
		released, err := s.Store.ReleaseSessionsByOrders(ctx, []string{order.ID})
		if err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID).Msg("release failed")
			result.Errors = append(result.Errors, fmt.Sprintf("order %s: %v", order.ID, err))
			continue
		}
		if len(released) > 0 {
			SyncInventory(ctx, s.Store, now, s.logger, releasedTypes(released))
		}

		n, err := s.Store.CancelPendingOrder(ctx, order.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID).Msg("cancel failed")
			result.Errors = append(result.Errors, fmt.Sprintf("order %s: %v", order.ID, err))
			continue
		}
		if n == 0 {
			// completed (or otherwise moved) since the snapshot; nothing to undo
			s.logger.Info().Str("order_id", order.ID).Msg("order no longer pending, skipped")
			continue
		}

		if _, err := s.Store.CancelPendingPayments(ctx, order.ID); err != nil {
			// the order is already cancelled; record and keep going
			s.logger.Error().Err(err).Str("order_id", order.ID).Msg("payment cancel failed")
			result.Errors = append(result.Errors, fmt.Sprintf("payments for order %s: %v", order.ID, err))
		}

		result.Cancelled++
		releasedTotal += len(released)
		s.logger.Info().
			Str("order_id", order.ID).
			Time("created_at", order.CreatedAt).
			Int("sessions_released", len(released)).
			Msg("order cancelled")
	}

	metrics.RecordSweepRun("orders", nil)
	metrics.RecordOrdersCancelled(result.Cancelled)
	metrics.RecordSessionsReleased("orders", releasedTotal)
	s.logger.Info().
		Int("cancelled", result.Cancelled).
		Int("total", result.Total).
		Int("errors", len(result.Errors)).
		Msg("order sweep complete")
	return result, nil
}
