package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionStatus is our normalized view of a gateway attempt.
// SUCCEEDED and FAILED are terminal: the reconciler treats a replayed
// callback against a terminal transaction as a no-op.
type TransactionStatus string

const (
	TransactionStatusInitiated TransactionStatus = "INITIATED"
	TransactionStatusSucceeded TransactionStatus = "SUCCEEDED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusAbandoned TransactionStatus = "ABANDONED"
)

// IsTerminal reports whether a gateway result has already been applied
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSucceeded || s == TransactionStatusFailed
}

// PaymentTransaction records one redirect attempt against a gateway.
// A booking may accumulate several (retries), each with its own gateway
// order id; at most one is non-terminal at a time.
type PaymentTransaction struct {
	ID                   uuid.UUID         `db:"id" json:"id"`
	BookingID            uuid.UUID         `db:"booking_id" json:"booking_id"`
	Gateway              string            `db:"gateway" json:"gateway"`
	OrderID              string            `db:"order_id" json:"order_id"`
	Amount               int64             `db:"amount" json:"amount"`
	Currency             string            `db:"currency" json:"currency"`
	Status               TransactionStatus `db:"status" json:"status"`
	GatewayResponseCode  *string           `db:"gateway_response_code" json:"gateway_response_code,omitempty"`
	GatewayTransactionID *string           `db:"gateway_transaction_id" json:"gateway_transaction_id,omitempty"`
	CreatedAt            time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time         `db:"updated_at" json:"updated_at"`
}

// PaymentAuditLog captures forensic context for every gateway interaction
type PaymentAuditLog struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	BookingID  *uuid.UUID `db:"booking_id" json:"booking_id,omitempty"`
	OrderID    string     `db:"order_id" json:"order_id"`
	Gateway    string     `db:"gateway" json:"gateway"`
	Action     string     `db:"action" json:"action"` // initiated, return, callback
	Outcome    string     `db:"outcome" json:"outcome"`
	IPAddress  string     `db:"ip_address" json:"ip_address"`
	UserAgent  string     `db:"user_agent" json:"user_agent"`
	DeviceType string     `db:"device_type" json:"device_type"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
