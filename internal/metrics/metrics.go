package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionrecon_sweep_runs_total",
		Help: "Sweep executions by job and outcome",
	}, []string{"job", "outcome"}) // outcome=success|error

	ordersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionrecon_orders_cancelled_total",
		Help: "Pending orders cancelled by the expired-order sweep",
	})

	ordersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionrecon_orders_expired_total",
		Help: "Pending orders expired by the reservation sweep",
	})

	sessionsReleased = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionrecon_sessions_released_total",
		Help: "Reserved sessions released back to the pool, by job",
	}, []string{"job"})

	orphans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionrecon_orphans_total",
		Help: "Orphaned reservations detected, by reason class",
	}, []string{"reason"}) // reason=no_order_associated|order_not_found|order_status|reservation_expired

	webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionrecon_webhook_events_total",
		Help: "Gateway webhook deliveries by outcome",
	}, []string{"outcome"}) // outcome=completed|duplicate|ignored|failed_payment|rejected

	inventory = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sessionrecon_inventory_available",
		Help: "Available sessions per type (last recount)",
	}, []string{"type"})
)

func RecordSweepRun(job string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	sweepRuns.WithLabelValues(job, outcome).Inc()
}

func RecordOrdersCancelled(n int) {
	ordersCancelled.Add(float64(n))
}

func RecordOrdersExpired(n int) {
	ordersExpired.Add(float64(n))
}

func RecordSessionsReleased(job string, n int) {
	sessionsReleased.WithLabelValues(job).Add(float64(n))
}

func RecordOrphan(reasonClass string) {
	orphans.WithLabelValues(reasonClass).Inc()
}

func RecordWebhookEvent(outcome string) {
	webhookEvents.WithLabelValues(outcome).Inc()
}

func SetInventory(sessionType string, quantity int) {
	inventory.WithLabelValues(sessionType).Set(float64(quantity))
}
