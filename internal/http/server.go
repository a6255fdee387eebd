package http

import (
	"net/http"
	"time"

	"SessionRecon/internal/log"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/cleanup-expired-orders", handler.CleanupExpiredOrders)
	r.Post("/cleanup-expired-reservations", handler.CleanupExpiredReservations)
	r.Post("/reconcile-sessions", handler.ReconcileSessions)

	// The webhook is the only endpoint the public internet reaches.
	r.With(httprate.LimitByIP(60, time.Minute)).
		Post("/asaas-webhook", handler.AsaasWebhook)

	return &Server{Router: r}
}

func requestLogger(next http.Handler) http.Handler {
	logger := log.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
