package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services and mapped to HTTP statuses by the
// handlers.
var (
	ErrTourNotFound          = errors.New("tour not found")
	ErrScheduleNotFound      = errors.New("schedule not found")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrForbidden             = errors.New("booking belongs to another user")
	ErrUnknownTransaction    = errors.New("no payment transaction matches the gateway order id")
	ErrGatewayTimeout        = errors.New("payment gateway did not respond in time")
	ErrInvalidSignature      = errors.New("gateway signature verification failed")
	ErrUnsupportedGateway    = errors.New("unsupported payment gateway")
	ErrHoldNotActive         = errors.New("seat hold is not active")
	ErrTransactionNotPending = errors.New("payment transaction is not pending")
	ErrRequestNotFound       = errors.New("cancellation request not found")
	ErrRequestAlreadyDecided = errors.New("cancellation request already decided")
)

// ValidationError is user-fixable bad input (400)
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-scoped validation failure
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientSeatsError means the hold lost the race for remaining seats (409)
type InsufficientSeatsError struct {
	ScheduleID string
	Requested  int
	Available  int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("insufficient seats on schedule %s: requested %d, available %d",
		e.ScheduleID, e.Requested, e.Available)
}

// PromotionIssue enumerates why a promotion code was refused. The booking
// still proceeds at full price; the issue is reported, not fatal.
type PromotionIssue string

const (
	PromotionIssueNotFound      PromotionIssue = "NOT_FOUND"
	PromotionIssueNotYetValid   PromotionIssue = "NOT_YET_VALID"
	PromotionIssueExpired       PromotionIssue = "EXPIRED"
	PromotionIssueBelowMinimum  PromotionIssue = "BELOW_MINIMUM"
	PromotionIssueUsageExceeded PromotionIssue = "USAGE_EXCEEDED"
)

// PromotionError carries the refusal reason for a promotion code
type PromotionError struct {
	Code  string
	Issue PromotionIssue
}

func (e *PromotionError) Error() string {
	return fmt.Sprintf("promotion %s rejected: %s", e.Code, e.Issue)
}

// NotCancellableError is a business-rule rejection of a cancellation request (409)
type NotCancellableError struct {
	Reason string
}

func (e *NotCancellableError) Error() string {
	return fmt.Sprintf("booking cannot be cancelled: %s", e.Reason)
}
