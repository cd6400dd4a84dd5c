package models

import (
	"time"

	"github.com/google/uuid"
)

// CancellationStatus is the decision state of a cancellation request
type CancellationStatus string

const (
	CancellationStatusPending  CancellationStatus = "PENDING"
	CancellationStatusApproved CancellationStatus = "APPROVED"
	CancellationStatusRejected CancellationStatus = "REJECTED"
)

// CancellationRequest is a user's post-payment request to cancel a booking.
// A booking can carry at most one pending request at a time.
type CancellationRequest struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	BookingID    uuid.UUID          `db:"booking_id" json:"booking_id"`
	UserID       uuid.UUID          `db:"user_id" json:"user_id"`
	Reason       string             `db:"reason" json:"reason"`
	Status       CancellationStatus `db:"status" json:"status"`
	RefundAmount int64              `db:"refund_amount" json:"refund_amount"`
	DecidedAt    *time.Time         `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
}
