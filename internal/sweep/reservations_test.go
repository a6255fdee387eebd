package sweep

import (
	"context"
	"testing"
	"time"

	"SessionRecon/internal/clock"
	"SessionRecon/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationSweeper_NothingStaleIsSuccess(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	st := newFakeStore()
	st.addOrder("order-1", models.OrderPending, now.Add(-5*time.Minute))

	sweeper := NewReservationSweeper(st, clock.NewFixed(now), 30*time.Minute)
	result, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExpiredOrders)
	assert.Equal(t, 0, result.ReleasedSessions)
}

func TestReservationSweeper_ReleasesInOneBatchAndExpiresPending(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-45 * time.Minute)

	st := newFakeStore()
	pending := st.addOrder("order-pending", models.OrderPending, old)
	cancelled := st.addOrder("order-cancelled", models.OrderCancelled, old)
	st.addOrder("order-fresh", models.OrderPending, now.Add(-5*time.Minute))

	st.addSession("sess-1", models.TypeBrasileiras, models.SessionReserved, &pending.ID, &old)
	st.addSession("sess-2", models.TypeEstrangeiras, models.SessionReserved, &cancelled.ID, &old)

	sweeper := NewReservationSweeper(st, clock.NewFixed(now), 30*time.Minute)
	result, err := sweeper.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ExpiredOrders)
	assert.Equal(t, 2, result.ReleasedSessions)

	// batched across all stale orders, not one update per order
	assert.Equal(t, 1, st.releaseByOrdersCalls)

	assert.Equal(t, models.OrderExpired, st.orders["order-pending"].Status)
	assert.Equal(t, models.OrderCancelled, st.orders["order-cancelled"].Status)
	assert.Equal(t, models.OrderPending, st.orders["order-fresh"].Status)

	assert.Equal(t, models.SessionAvailable, st.sessions["sess-1"].Status)
	assert.Equal(t, models.SessionAvailable, st.sessions["sess-2"].Status)
	assert.Equal(t, 1, st.inventory[models.TypeBrasileiras].Quantity)
	assert.Equal(t, 1, st.inventory[models.TypeEstrangeiras].Quantity)
}

func TestReservationSweeper_ReleaseIsIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-45 * time.Minute)

	st := newFakeStore()
	order := st.addOrder("order-1", models.OrderPending, old)
	st.addSession("sess-1", models.TypeBrasileiras, models.SessionReserved, &order.ID, &old)

	sweeper := NewReservationSweeper(st, clock.NewFixed(now), 30*time.Minute)

	first, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.ReleasedSessions)

	second, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.ReleasedSessions)

	assert.Equal(t, models.SessionAvailable, st.sessions["sess-1"].Status)
	assert.Equal(t, models.OrderExpired, st.orders["order-1"].Status)
}
