package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"SessionRecon/internal/clock"
	"SessionRecon/internal/log"
	"SessionRecon/internal/metrics"
	"SessionRecon/internal/models"

	"github.com/rs/zerolog"
)

// Gateway is the payment gateway this handler serves.
const Gateway = "asaas"

var (
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrNoOrderReference = errors.New("no order reference")
)

// Event is the gateway's webhook payload, reduced to the fields we act on.
type Event struct {
	Event   string        `json:"event"`
	Payment *EventPayment `json:"payment"`
}

type EventPayment struct {
	ID                string `json:"id"`
	ExternalReference string `json:"externalReference"`
	Status            string `json:"status"`
}

// Payment statuses / event names the gateway reports for a settled charge.
var confirmedStatuses = map[string]bool{
	"RECEIVED":         true,
	"CONFIRMED":        true,
	"RECEIVED_IN_CASH": true,
}

var confirmedEvents = map[string]bool{
	"PAYMENT_RECEIVED":  true,
	"PAYMENT_CONFIRMED": true,
}

var failedStatuses = map[string]bool{
	"REFUNDED":                     true,
	"REFUND_REQUESTED":             true,
	"CHARGEBACK_REQUESTED":         true,
	"CHARGEBACK_DISPUTE":           true,
	"AWAITING_CHARGEBACK_REVERSAL": true,
	"DUNNING_REQUESTED":            true,
	"DUNNING_RECEIVED":             true,
	"AWAITING_RISK_ANALYSIS":       true,
}

type Outcome string

const (
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeCompleted     Outcome = "completed"
	OutcomeFailedPayment Outcome = "failed_payment"
	OutcomeIgnored       Outcome = "ignored"
)

// Result is returned to the transport layer; Message goes into the response.
type Result struct {
	Outcome Outcome
	Message string
}

// Store is what webhook processing needs from the relational store.
type Store interface {
	FindProcessedWebhook(ctx context.Context, transactionID, gateway string) (bool, error)
	InsertProcessedWebhook(ctx context.Context, pw *models.ProcessedWebhook) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	MarkPaymentsPaid(ctx context.Context, orderID string, paidAt time.Time) (int64, error)
	CompleteOrder(ctx context.Context, orderID string, quantity int) (int64, error)
	InsertGatewayLog(ctx context.Context, entry models.GatewayLog) error
}

// Service turns gateway deliveries into order completions. Gateways retry
// undelivered webhooks, so every path through Process must be safe to replay.
type Service struct {
	Store Store
	Clock clock.Clock

	logger zerolog.Logger
}

func NewService(st Store, clk clock.Clock) *Service {
	return &Service{
		Store:  st,
		Clock:  clk,
		logger: log.WithComponent("webhook.asaas"),
	}
}

// Process handles one delivery. raw is the verbatim request body, kept on the
// dedupe ledger for forensics.
func (s *Service) Process(ctx context.Context, ev Event, raw json.RawMessage) (Result, error) {
	if ev.Event == "" || ev.Payment == nil {
		metrics.RecordWebhookEvent("rejected")
		return Result{}, ErrInvalidPayload
	}

	logger := s.logger.With().
		Str("event", ev.Event).
		Str("payment_id", ev.Payment.ID).
		Str("status", ev.Payment.Status).
		Logger()

	processed, err := s.Store.FindProcessedWebhook(ctx, ev.Payment.ID, Gateway)
	if err != nil {
		return Result{}, err
	}
	if processed {
		logger.Info().Msg("duplicate delivery, skipping")
		metrics.RecordWebhookEvent("duplicate")
		return Result{Outcome: OutcomeDuplicate, Message: "Already processed"}, nil
	}

	if ev.Payment.ExternalReference == "" {
		logger.Warn().Msg("no external reference, cannot match order")
		metrics.RecordWebhookEvent("rejected")
		return Result{}, ErrNoOrderReference
	}

	order, err := s.Store.GetOrder(ctx, ev.Payment.ExternalReference)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			logger.Warn().Str("order_id", ev.Payment.ExternalReference).Msg("order not found")
			metrics.RecordWebhookEvent("rejected")
		}
		return Result{}, err
	}

	confirmed := confirmedStatuses[ev.Payment.Status] || confirmedEvents[ev.Event]
	if confirmed && order.Status == models.OrderPending {
		return s.complete(ctx, logger, ev, raw, order)
	}

	if failedStatuses[ev.Payment.Status] {
		logger.Info().Str("order_id", order.ID).Msg("payment failed or refunded")
		s.gatewayLog(ctx, logger, models.GatewayLog{
			Gateway: Gateway,
			Status:  "webhook_failed",
			OrderID: order.ID,
			Error:   "Status: " + ev.Payment.Status,
			Attempt: 1,
		})
		metrics.RecordWebhookEvent("failed_payment")
		return Result{Outcome: OutcomeFailedPayment, Message: "Webhook processed"}, nil
	}

	// unknown or irrelevant event types are not errors
	metrics.RecordWebhookEvent("ignored")
	return Result{Outcome: OutcomeIgnored, Message: "Webhook processed"}, nil
}

func (s *Service) complete(ctx context.Context, logger zerolog.Logger, ev Event, raw json.RawMessage, order *models.Order) (Result, error) {
	now := s.Clock.Now()
	logger.Info().Str("order_id", order.ID).Msg("payment confirmed, completing order")

	// Record the delivery before mutating anything so a crash mid-completion
	// still suppresses the gateway's retry from double-completing.
	err := s.Store.InsertProcessedWebhook(ctx, &models.ProcessedWebhook{
		TransactionID: ev.Payment.ID,
		Gateway:       Gateway,
		OrderID:       order.ID,
		Payload:       raw,
	})
	if err != nil {
		return Result{}, err
	}

	if _, err := s.Store.MarkPaymentsPaid(ctx, order.ID, now); err != nil {
		logger.Error().Err(err).Str("order_id", order.ID).Msg("marking payments paid failed")
	}

	sold, err := s.Store.CompleteOrder(ctx, order.ID, order.Quantity)
	if err != nil {
		logger.Error().Err(err).Str("order_id", order.ID).Msg("order completion failed")
	} else {
		logger.Info().Str("order_id", order.ID).Int64("sessions_sold", sold).Msg("order completed")
	}

	s.gatewayLog(ctx, logger, models.GatewayLog{
		Gateway: Gateway,
		Status:  "webhook_success",
		OrderID: order.ID,
		Attempt: 1,
	})

	metrics.RecordWebhookEvent("completed")
	return Result{Outcome: OutcomeCompleted, Message: "Payment confirmed and order completed"}, nil
}

func (s *Service) gatewayLog(ctx context.Context, logger zerolog.Logger, entry models.GatewayLog) {
	if err := s.Store.InsertGatewayLog(ctx, entry); err != nil {
		logger.Error().Err(err).Msg("gateway log insert failed")
	}
}
