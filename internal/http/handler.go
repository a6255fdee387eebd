package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"SessionRecon/internal/log"
	"SessionRecon/internal/models"
	"SessionRecon/internal/sweep"
	"SessionRecon/internal/webhook"
)

// Pinger is what the health endpoint needs from the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Orders       *sweep.OrderSweeper
	Reservations *sweep.ReservationSweeper
	Reconciler   *sweep.Reconciler
	Webhook      *webhook.Service
	WebhookToken string
	DB           Pinger
}

// CleanupExpiredOrders triggers one expired-order sweep.
func (h *Handler) CleanupExpiredOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.Orders.Run(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CleanupExpiredReservations triggers one expired-reservation sweep.
func (h *Handler) CleanupExpiredReservations(w http.ResponseWriter, r *http.Request) {
	result, err := h.Reservations.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ReconcileSessions triggers one orphan reconciliation pass.
func (h *Handler) ReconcileSessions(w http.ResponseWriter, r *http.Request) {
	result, err := h.Reconciler.Run(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AsaasWebhook receives payment gateway deliveries.
func (h *Handler) AsaasWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponent("http.webhook")

	// Soft validation: the gateway does not send the token on every delivery,
	// so a mismatch is recorded but the event is still processed.
	if h.WebhookToken != "" {
		if got := r.Header.Get("asaas-access-token"); got != h.WebhookToken {
			logger.Warn().Msg("webhook access token mismatch")
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	var ev webhook.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	result, err := h.Webhook.Process(r.Context(), ev, body)
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrInvalidPayload):
			writeError(w, http.StatusBadRequest, "Invalid payload")
		case errors.Is(err, webhook.ErrNoOrderReference):
			writeError(w, http.StatusBadRequest, "No order reference")
		case errors.Is(err, models.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "Order not found")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": result.Message,
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
