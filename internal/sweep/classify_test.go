package sweep

import (
	"testing"
	"time"

	"SessionRecon/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReservation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	timeout := 30 * time.Minute

	orderID := "order-1"
	recent := now.Add(-10 * time.Minute)
	stale := now.Add(-45 * time.Minute)

	tests := []struct {
		name       string
		session    models.SessionFile
		orders     map[string]models.OrderStatus
		wantOrphan bool
		wantReason string
	}{
		{
			name:       "no order associated",
			session:    models.SessionFile{ID: "s1", Type: models.TypeBrasileiras, Status: models.SessionReserved},
			orders:     map[string]models.OrderStatus{},
			wantOrphan: true,
			wantReason: "no_order_associated",
		},
		{
			name:       "referenced order missing",
			session:    models.SessionFile{ID: "s2", Status: models.SessionReserved, ReservedForOrder: &orderID, ReservedAt: &recent},
			orders:     map[string]models.OrderStatus{},
			wantOrphan: true,
			wantReason: "order_not_found",
		},
		{
			name:       "order completed",
			session:    models.SessionFile{ID: "s3", Status: models.SessionReserved, ReservedForOrder: &orderID, ReservedAt: &recent},
			orders:     map[string]models.OrderStatus{orderID: models.OrderCompleted},
			wantOrphan: true,
			wantReason: "order_status_completed",
		},
		{
			name:       "order cancelled",
			session:    models.SessionFile{ID: "s4", Status: models.SessionReserved, ReservedForOrder: &orderID, ReservedAt: &recent},
			orders:     map[string]models.OrderStatus{orderID: models.OrderCancelled},
			wantOrphan: true,
			wantReason: "order_status_cancelled",
		},
		{
			name:       "pending order but stale reservation",
			session:    models.SessionFile{ID: "s5", Status: models.SessionReserved, ReservedForOrder: &orderID, ReservedAt: &stale},
			orders:     map[string]models.OrderStatus{orderID: models.OrderPending},
			wantOrphan: true,
			wantReason: "reservation_expired_45min",
		},
		{
			name:       "pending order with fresh reservation is legitimate",
			session:    models.SessionFile{ID: "s6", Status: models.SessionReserved, ReservedForOrder: &orderID, ReservedAt: &recent},
			orders:     map[string]models.OrderStatus{orderID: models.OrderPending},
			wantOrphan: false,
		},
		{
			name:       "pending order without reserved_at is legitimate",
			session:    models.SessionFile{ID: "s7", Status: models.SessionReserved, ReservedForOrder: &orderID},
			orders:     map[string]models.OrderStatus{orderID: models.OrderPending},
			wantOrphan: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, orphan := classifyReservation(tt.session, tt.orders, now, timeout)
			assert.Equal(t, tt.wantOrphan, orphan)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestClassifyReservation_TruncatesElapsedMinutes(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	orderID := "order-1"
	reservedAt := now.Add(-31*time.Minute - 59*time.Second)

	reason, orphan := classifyReservation(models.SessionFile{
		ID:               "s1",
		Status:           models.SessionReserved,
		ReservedForOrder: &orderID,
		ReservedAt:       &reservedAt,
	}, map[string]models.OrderStatus{orderID: models.OrderPending}, now, 30*time.Minute)

	assert.True(t, orphan)
	assert.Equal(t, "reservation_expired_31min", reason)
}

func TestReasonClass(t *testing.T) {
	assert.Equal(t, "no_order_associated", reasonClass("no_order_associated"))
	assert.Equal(t, "order_not_found", reasonClass("order_not_found"))
	assert.Equal(t, "order_status", reasonClass("order_status_completed"))
	assert.Equal(t, "reservation_expired", reasonClass("reservation_expired_45min"))
}
