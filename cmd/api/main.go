package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SessionRecon/internal/clock"
	"SessionRecon/internal/config"
	"SessionRecon/internal/db"
	internalhttp "SessionRecon/internal/http"
	"SessionRecon/internal/log"
	"SessionRecon/internal/store"
	"SessionRecon/internal/sweep"
	"SessionRecon/internal/webhook"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		base := log.Base()
		base.Fatal().Err(err).Msg("config load failed")
	}
	log.Configure(log.Config{Level: cfg.Log.Level, Service: "sessionrecon-api"})
	logger := log.WithComponent("main")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	st := store.New(pool)
	clk := clock.NewSystem()

	h := &internalhttp.Handler{
		Orders:       sweep.NewOrderSweeper(st, clk, cfg.OrderGracePeriod()),
		Reservations: sweep.NewReservationSweeper(st, clk, cfg.ReservationTimeout()),
		Reconciler:   sweep.NewReconciler(st, clk, cfg.ReservationTimeout()),
		Webhook:      webhook.NewService(st, clk),
		WebhookToken: cfg.Webhook.AsaasToken,
		DB:           st,
	}
	srv := internalhttp.NewServer(h)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("api listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
