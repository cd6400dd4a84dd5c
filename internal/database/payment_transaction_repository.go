package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/viettravel/booking-backend/internal/models"
)

// PaymentTransactionRepository persists gateway attempts and applies the
// reconciliation outcome. The success path mutates three tables in one
// transaction: a booking must never end up confirmed with its seats still
// only held.
type PaymentTransactionRepository struct {
	db *sqlx.DB
}

// NewPaymentTransactionRepository creates a new payment transaction repository
func NewPaymentTransactionRepository(db *sqlx.DB) *PaymentTransactionRepository {
	return &PaymentTransactionRepository{db: db}
}

// Create records a new INITIATED attempt before the client is redirected
func (r *PaymentTransactionRepository) Create(txn *models.PaymentTransaction) error {
	_, err := r.db.Exec(`
		INSERT INTO payment_transactions (
			id, booking_id, gateway, order_id, amount, currency, status,
			gateway_response_code, gateway_transaction_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		txn.ID, txn.BookingID, txn.Gateway, txn.OrderID, txn.Amount, txn.Currency,
		txn.Status, txn.GatewayResponseCode, txn.GatewayTransactionID)
	if err != nil {
		return fmt.Errorf("failed to insert payment transaction: %w", err)
	}
	return nil
}

// GetByOrderID fetches an attempt by gateway order id, (nil, nil) when absent
func (r *PaymentTransactionRepository) GetByOrderID(orderID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	query := `
		SELECT id, booking_id, gateway, order_id, amount, currency, status,
		       gateway_response_code, gateway_transaction_id, created_at, updated_at
		FROM payment_transactions
		WHERE order_id = $1`

	err := r.db.Get(&txn, query, orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment transaction: %w", err)
	}

	return &txn, nil
}

// AbandonInitiated supersedes earlier INITIATED attempts for a booking so at
// most one attempt is ever non-terminal.
func (r *PaymentTransactionRepository) AbandonInitiated(bookingID uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE payment_transactions
		SET status = 'ABANDONED', updated_at = NOW()
		WHERE booking_id = $1 AND status = 'INITIATED'`,
		bookingID)
	if err != nil {
		return fmt.Errorf("failed to abandon initiated transactions: %w", err)
	}
	return nil
}

// MarkFailed records a failed gateway result. The booking is left untouched:
// seats stay held until expiry so the user can retry payment. The status
// guard keeps a replayed failure callback from clobbering a later result.
func (r *PaymentTransactionRepository) MarkFailed(orderID, responseCode string, providerTxnID *string) error {
	result, err := r.db.Exec(`
		UPDATE payment_transactions
		SET status = 'FAILED',
		    gateway_response_code = $2,
		    gateway_transaction_id = COALESCE($3, gateway_transaction_id),
		    updated_at = NOW()
		WHERE order_id = $1 AND status = 'INITIATED'`,
		orderID, responseCode, providerTxnID)
	if err != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check failure transition: %w", err)
	}
	if rows == 0 {
		return models.ErrTransactionNotPending
	}

	return nil
}

// ApplySuccess applies a verified successful gateway result: transaction to
// SUCCEEDED, the booking's hold to CONFIRMED with the schedule counters
// moved, and the booking to CONFIRMED/PAID. All three writes commit together
// or not at all. Under a duplicate-callback race only one caller passes the
// INITIATED guard; the loser gets ErrTransactionNotPending and re-reads.
func (r *PaymentTransactionRepository) ApplySuccess(orderID, responseCode string, providerTxnID *string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var bookingID uuid.UUID
	err = tx.Get(&bookingID, `
		UPDATE payment_transactions
		SET status = 'SUCCEEDED',
		    gateway_response_code = $2,
		    gateway_transaction_id = $3,
		    updated_at = NOW()
		WHERE order_id = $1 AND status = 'INITIATED'
		RETURNING booking_id`,
		orderID, responseCode, providerTxnID)
	if err == sql.ErrNoRows {
		return models.ErrTransactionNotPending
	}
	if err != nil {
		return fmt.Errorf("failed to mark transaction succeeded: %w", err)
	}

	if err := confirmHoldTx(tx, bookingID); err != nil {
		return err
	}

	result, err := tx.Exec(`
		UPDATE bookings
		SET confirmation_status = 'CONFIRMED',
		    payment_status = 'PAID',
		    updated_at = NOW()
		WHERE id = $1 AND confirmation_status = 'PENDING_PAYMENT'`,
		bookingID)
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check booking confirmation: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %s is not awaiting payment", bookingID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment reconciliation: %w", err)
	}

	return nil
}

// AbandonStale marks INITIATED attempts older than the cutoff as ABANDONED.
// Run by the background sweep alongside hold expiry.
func (r *PaymentTransactionRepository) AbandonStale(cutoff time.Time) (int, error) {
	result, err := r.db.Exec(`
		UPDATE payment_transactions
		SET status = 'ABANDONED', updated_at = NOW()
		WHERE status = 'INITIATED' AND created_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to abandon stale transactions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count abandoned transactions: %w", err)
	}

	return int(rows), nil
}
