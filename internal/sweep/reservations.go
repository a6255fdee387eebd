package sweep

import (
	"context"
	"time"

	"SessionRecon/internal/clock"
	"SessionRecon/internal/log"
	"SessionRecon/internal/metrics"

	"github.com/rs/zerolog"
)

// ReservationSweeper releases sessions still tied to stale orders: pending
// past the reservation timeout, cancelled, or expired. It overlaps with the
// order sweeper and the reconciler on purpose; any one of the three failing
// to run must not leak reservations.
type ReservationSweeper struct {
	Store   ReservationSweepStore
	Clock   clock.Clock
	Timeout time.Duration

	logger zerolog.Logger
}

func NewReservationSweeper(st ReservationSweepStore, clk clock.Clock, timeout time.Duration) *ReservationSweeper {
	return &ReservationSweeper{
		Store:   st,
		Clock:   clk,
		Timeout: timeout,
		logger:  log.WithComponent("sweep.reservations"),
	}
}

// ReservationSweepResult is the JSON body of a cleanup-expired-reservations run.
type ReservationSweepResult struct {
	Success          bool `json:"success"`
	ExpiredOrders    int  `json:"expiredOrders"`
	ReleasedSessions int  `json:"releasedSessions"`
}

func (s *ReservationSweeper) Run(ctx context.Context) (ReservationSweepResult, error) {
	now := s.Clock.Now()
	cutoff := now.Add(-s.Timeout)

	ids, err := s.Store.ListStaleOrderIDs(ctx, cutoff)
	if err != nil {
		metrics.RecordSweepRun("reservations", err)
		return ReservationSweepResult{}, err
	}

	result := ReservationSweepResult{Success: true, ExpiredOrders: len(ids)}
	if len(ids) == 0 {
		s.logger.Info().Msg("no stale orders found")
		metrics.RecordSweepRun("reservations", nil)
		return result, nil
	}
	s.logger.Info().Int("stale_orders", len(ids)).Time("cutoff", cutoff).Msg("releasing stale reservations")

	// One batched release across every stale order, not a per-order loop.
	released, err := s.Store.ReleaseSessionsByOrders(ctx, ids)
	if err != nil {
		metrics.RecordSweepRun("reservations", err)
		return ReservationSweepResult{}, err
	}
	result.ReleasedSessions = len(released)

	expired, err := s.Store.ExpirePendingOrders(ctx, ids)
	if err != nil {
		// the release already happened, which is the side effect that matters
		s.logger.Error().Err(err).Msg("expiring pending orders failed")
	} else if expired > 0 {
		metrics.RecordOrdersExpired(int(expired))
	}

	if len(released) > 0 {
		SyncInventory(ctx, s.Store, now, s.logger, releasedTypes(released))
	}

	metrics.RecordSweepRun("reservations", nil)
	metrics.RecordSessionsReleased("reservations", len(released))
	s.logger.Info().
		Int("stale_orders", len(ids)).
		Int("released", len(released)).
		Msg("reservation sweep complete")
	return result, nil
}
