package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/viettravel/booking-backend/internal/models"
)

// CancellationRepository persists cancellation requests and applies
// decisions. Approval mutates the request, the booking and the seat
// counters in one transaction.
type CancellationRepository struct {
	db *sqlx.DB
}

// NewCancellationRepository creates a new cancellation repository
func NewCancellationRepository(db *sqlx.DB) *CancellationRepository {
	return &CancellationRepository{db: db}
}

// Create inserts a pending request
func (r *CancellationRepository) Create(req *models.CancellationRequest) error {
	_, err := r.db.Exec(`
		INSERT INTO cancellation_requests (
			id, booking_id, user_id, reason, status, refund_amount, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		req.ID, req.BookingID, req.UserID, req.Reason, req.Status, req.RefundAmount)
	if err != nil {
		return fmt.Errorf("failed to insert cancellation request: %w", err)
	}
	return nil
}

// GetByID fetches a request, (nil, nil) when absent
func (r *CancellationRepository) GetByID(id uuid.UUID) (*models.CancellationRequest, error) {
	var req models.CancellationRequest
	query := `
		SELECT id, booking_id, user_id, reason, status, refund_amount, decided_at, created_at
		FROM cancellation_requests
		WHERE id = $1`

	err := r.db.Get(&req, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cancellation request: %w", err)
	}

	return &req, nil
}

// HasPending reports whether a booking already has an undecided request
func (r *CancellationRepository) HasPending(bookingID uuid.UUID) (bool, error) {
	var count int
	err := r.db.Get(&count, `
		SELECT COUNT(*)
		FROM cancellation_requests
		WHERE booking_id = $1 AND status = 'PENDING'`,
		bookingID)
	if err != nil {
		return false, fmt.Errorf("failed to check pending cancellation: %w", err)
	}
	return count > 0, nil
}

// Approve finalizes a pending request: request to APPROVED, the booking to
// CANCELLED/REFUNDED, and the confirmed seats back to the schedule pool.
// The PENDING guard makes a second decision attempt fail cleanly.
func (r *CancellationRepository) Approve(id uuid.UUID, refundAmount int64) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var bookingID uuid.UUID
	err = tx.Get(&bookingID, `
		UPDATE cancellation_requests
		SET status = 'APPROVED', refund_amount = $2, decided_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING booking_id`,
		id, refundAmount)
	if err == sql.ErrNoRows {
		return models.ErrRequestAlreadyDecided
	}
	if err != nil {
		return fmt.Errorf("failed to approve cancellation request: %w", err)
	}

	result, err := tx.Exec(`
		UPDATE bookings
		SET confirmation_status = 'CANCELLED',
		    payment_status = 'REFUNDED',
		    updated_at = NOW()
		WHERE id = $1 AND confirmation_status = 'CANCELLATION_REQUESTED'`,
		bookingID)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cancellation transition: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %s is not awaiting a cancellation decision", bookingID)
	}

	var hold struct {
		ScheduleID uuid.UUID `db:"schedule_id"`
		Seats      int       `db:"seats"`
	}
	err = tx.Get(&hold, `
		UPDATE seat_holds
		SET status = 'RELEASED', updated_at = NOW()
		WHERE booking_id = $1 AND status = 'CONFIRMED'
		RETURNING schedule_id, seats`,
		bookingID)
	if err == sql.ErrNoRows {
		return models.ErrHoldNotActive
	}
	if err != nil {
		return fmt.Errorf("failed to release confirmed seats: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE tour_schedules
		SET confirmed_seats = confirmed_seats - $1,
		    status = CASE WHEN status = 'FULL' THEN 'AVAILABLE' ELSE status END
		WHERE id = $2`,
		hold.Seats, hold.ScheduleID)
	if err != nil {
		return fmt.Errorf("failed to return cancelled seats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation approval: %w", err)
	}

	return nil
}

// Reject closes a pending request and puts the booking back to CONFIRMED
func (r *CancellationRepository) Reject(id uuid.UUID) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var bookingID uuid.UUID
	err = tx.Get(&bookingID, `
		UPDATE cancellation_requests
		SET status = 'REJECTED', decided_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING booking_id`,
		id)
	if err == sql.ErrNoRows {
		return models.ErrRequestAlreadyDecided
	}
	if err != nil {
		return fmt.Errorf("failed to reject cancellation request: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE bookings
		SET confirmation_status = 'CONFIRMED', updated_at = NOW()
		WHERE id = $1 AND confirmation_status = 'CANCELLATION_REQUESTED'`,
		bookingID)
	if err != nil {
		return fmt.Errorf("failed to restore booking status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation rejection: %w", err)
	}

	return nil
}
