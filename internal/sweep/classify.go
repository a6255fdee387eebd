package sweep

import (
	"fmt"
	"strings"
	"time"

	"SessionRecon/internal/models"
)

// Orphan reason codes. These strings are parsed by monitoring; treat them as
// a stable contract.
const (
	ReasonNoOrderAssociated = "no_order_associated"
	ReasonOrderNotFound     = "order_not_found"

	reasonOrderStatusPrefix        = "order_status_"
	reasonReservationExpiredPrefix = "reservation_expired_"
)

// classifyReservation decides whether a reserved session is still justified
// by a live pending order. It returns the orphan reason when it is not.
func classifyReservation(sf models.SessionFile, orders map[string]models.OrderStatus, now time.Time, timeout time.Duration) (string, bool) {
	if sf.ReservedForOrder == nil || *sf.ReservedForOrder == "" {
		return ReasonNoOrderAssociated, true
	}

	status, ok := orders[*sf.ReservedForOrder]
	if !ok {
		return ReasonOrderNotFound, true
	}
	if status != models.OrderPending {
		return reasonOrderStatusPrefix + string(status), true
	}

	if sf.ReservedAt != nil {
		elapsed := now.Sub(*sf.ReservedAt)
		if elapsed > timeout {
			return fmt.Sprintf("%s%dmin", reasonReservationExpiredPrefix, int(elapsed.Minutes())), true
		}
	}
	return "", false
}

// reasonClass collapses a reason code onto its family, for metric labels.
func reasonClass(reason string) string {
	switch {
	case strings.HasPrefix(reason, reasonOrderStatusPrefix):
		return "order_status"
	case strings.HasPrefix(reason, reasonReservationExpiredPrefix):
		return "reservation_expired"
	default:
		return reason
	}
}
