package models

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrOrderNotFound is returned when an order reference does not resolve.
var ErrOrderNotFound = errors.New("order not found")

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
)

// Terminal reports whether an order can never reserve sessions again.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled || s == OrderExpired
}

type SessionStatus string

const (
	SessionAvailable SessionStatus = "available"
	SessionReserved  SessionStatus = "reserved"
	SessionSold      SessionStatus = "sold"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Known session categories. The inventory table carries one row per type;
// recounts work for any type string found on session rows.
const (
	TypeBrasileiras  = "brasileiras"
	TypeEstrangeiras = "estrangeiras"
)

func KnownSessionTypes() []string {
	return []string{TypeBrasileiras, TypeEstrangeiras}
}

type Order struct {
	ID          string
	UserID      string
	ProductType string
	Quantity    int
	Amount      string
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Payment struct {
	ID        string
	OrderID   string
	Status    PaymentStatus
	PaidAt    *time.Time
	CreatedAt time.Time
}

// SessionFile is one row of the reservable resource pool.
// Invariant: Status == reserved iff ReservedForOrder is non-nil.
type SessionFile struct {
	ID               string
	FileName         string
	Type             string
	Status           SessionStatus
	ReservedForOrder *string
	ReservedAt       *time.Time
}

// ReleasedSession is the slice of a session row a bulk release returns,
// enough for callers to resync only the affected inventory types.
type ReleasedSession struct {
	ID   string
	Type string
}

type InventoryRow struct {
	Type      string
	Quantity  int
	UpdatedAt time.Time
}

// ProcessedWebhook is the dedupe ledger for gateway deliveries, keyed by
// (TransactionID, Gateway). Existence of a row means the event was handled.
type ProcessedWebhook struct {
	TransactionID string
	Gateway       string
	OrderID       string
	Payload       json.RawMessage
	CreatedAt     time.Time
}

// AuditLogEntry records one orphan-release correction for forensic review.
type AuditLogEntry struct {
	ID       string
	UserID   string
	Action   string
	Resource string
	Details  json.RawMessage
}

type GatewayLog struct {
	Gateway string
	Status  string
	OrderID string
	Error   string
	Attempt int
}

// SystemUserID is the actor recorded on corrections made by the sweeps.
const SystemUserID = "00000000-0000-0000-0000-000000000000"
