package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SessionRecon/internal/clock"
	"SessionRecon/internal/config"
	"SessionRecon/internal/db"
	"SessionRecon/internal/log"
	"SessionRecon/internal/models"
	"SessionRecon/internal/store"
	"SessionRecon/internal/sweep"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		base := log.Base()
		base.Fatal().Err(err).Msg("config load failed")
	}
	log.Configure(log.Config{Level: cfg.Log.Level, Service: "sessionrecon-sweeper"})
	logger := log.WithComponent("main")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	st := store.New(pool)
	clk := clock.NewSystem()

	// Self-heal the cached counters on boot before any sweep runs.
	sweep.SyncInventory(ctx, st, clk.Now(), logger, models.KnownSessionTypes())

	orders := sweep.NewOrderSweeper(st, clk, cfg.OrderGracePeriod())
	reservations := sweep.NewReservationSweeper(st, clk, cfg.ReservationTimeout())
	reconciler := sweep.NewReconciler(st, clk, cfg.ReservationTimeout())

	// Three independently scheduled jobs with different windows. The overlap
	// is deliberate; no single job failing to run may leak a reservation.
	go runEvery(ctx, logger, "orders", cfg.OrderSweepInterval(), func(ctx context.Context) error {
		_, err := orders.Run(ctx)
		return err
	})
	go runEvery(ctx, logger, "reservations", cfg.ReservationSweepInterval(), func(ctx context.Context) error {
		_, err := reservations.Run(ctx)
		return err
	})
	go runEvery(ctx, logger, "reconcile", cfg.ReconcileInterval(), func(ctx context.Context) error {
		_, err := reconciler.Run(ctx)
		return err
	})

	logger.Info().
		Dur("orders_interval", cfg.OrderSweepInterval()).
		Dur("reservations_interval", cfg.ReservationSweepInterval()).
		Dur("reconcile_interval", cfg.ReconcileInterval()).
		Msg("sweeper started")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()
}

func runEvery(ctx context.Context, logger zerolog.Logger, name string, interval time.Duration, run func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := run(ctx); err != nil {
			logger.Error().Err(err).Str("job", name).Msg("sweep failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
