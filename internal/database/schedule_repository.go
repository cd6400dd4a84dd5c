package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/viettravel/booking-backend/internal/models"
)

// ScheduleRepository owns the seat counters on tour_schedules and the
// seat_holds rows beneath them. All counter movement goes through guarded
// updates so the invariant held + confirmed <= total can never be violated
// by concurrent requests.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// HoldSeats atomically claims seats on a schedule for a booking. The capacity
// check and the increment are a single conditional UPDATE, so two concurrent
// holds for the last seat cannot both succeed. Returns
// *models.InsufficientSeatsError when the schedule cannot cover the request.
func (r *ScheduleRepository) HoldSeats(scheduleID, bookingID uuid.UUID, seats int, expiresAt time.Time) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE tour_schedules
		SET held_seats = held_seats + $1
		WHERE id = $2
		  AND status = 'AVAILABLE'
		  AND held_seats + confirmed_seats + $1 <= total_seats`,
		seats, scheduleID)
	if err != nil {
		return fmt.Errorf("failed to hold seats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check hold result: %w", err)
	}

	if rows == 0 {
		available, availErr := r.availableSeats(scheduleID)
		if availErr != nil {
			available = 0
		}
		return &models.InsufficientSeatsError{
			ScheduleID: scheduleID.String(),
			Requested:  seats,
			Available:  available,
		}
	}

	_, err = tx.Exec(`
		INSERT INTO seat_holds (id, schedule_id, booking_id, seats, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'HELD', $5, NOW(), NOW())`,
		uuid.New(), scheduleID, bookingID, seats, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to record seat hold: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seat hold: %w", err)
	}

	return nil
}

// GetHoldByBookingID fetches the hold for a booking, (nil, nil) when absent
func (r *ScheduleRepository) GetHoldByBookingID(bookingID uuid.UUID) (*models.SeatHold, error) {
	var hold models.SeatHold
	query := `
		SELECT id, schedule_id, booking_id, seats, status, expires_at, created_at, updated_at
		FROM seat_holds
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.Get(&hold, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seat hold: %w", err)
	}

	return &hold, nil
}

// ConfirmHold converts a booking's active hold into confirmed seats. Each
// hold can be confirmed at most once: the status guard on seat_holds makes a
// second confirm report ErrHoldNotActive instead of double-counting.
func (r *ScheduleRepository) ConfirmHold(bookingID uuid.UUID) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := confirmHoldTx(tx, bookingID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit hold confirmation: %w", err)
	}

	return nil
}

// ReleaseHold returns a booking's held seats to the pool. A no-op when the
// hold is no longer active, so rollback paths can call it unconditionally.
func (r *ScheduleRepository) ReleaseHold(bookingID uuid.UUID) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var hold struct {
		ScheduleID uuid.UUID `db:"schedule_id"`
		Seats      int       `db:"seats"`
	}
	err = tx.Get(&hold, `
		UPDATE seat_holds
		SET status = 'RELEASED', updated_at = NOW()
		WHERE booking_id = $1 AND status = 'HELD'
		RETURNING schedule_id, seats`,
		bookingID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to release seat hold: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE tour_schedules
		SET held_seats = held_seats - $1
		WHERE id = $2`,
		hold.Seats, hold.ScheduleID)
	if err != nil {
		return fmt.Errorf("failed to return held seats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit hold release: %w", err)
	}

	return nil
}

// ReleaseConfirmedSeats returns a booking's confirmed seats to the pool
// (approved cancellation).
func (r *ScheduleRepository) ReleaseConfirmedSeats(bookingID uuid.UUID) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

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
		return fmt.Errorf("failed to return confirmed seats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seat return: %w", err)
	}

	return nil
}

// ReleaseExpiredHolds sweeps holds whose expiry has passed and returns their
// seats to the pool. Returns the number of holds released.
func (r *ScheduleRepository) ReleaseExpiredHolds(now time.Time) (int, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var expired []struct {
		ScheduleID uuid.UUID `db:"schedule_id"`
		Seats      int       `db:"seats"`
	}
	err = tx.Select(&expired, `
		UPDATE seat_holds
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'HELD' AND expires_at < $1
		RETURNING schedule_id, seats`,
		now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire seat holds: %w", err)
	}

	for _, hold := range expired {
		_, err = tx.Exec(`
			UPDATE tour_schedules
			SET held_seats = held_seats - $1
			WHERE id = $2`,
			hold.Seats, hold.ScheduleID)
		if err != nil {
			return 0, fmt.Errorf("failed to return expired seats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit expiry sweep: %w", err)
	}

	return len(expired), nil
}

// availableSeats reads the current free seat count for error reporting
func (r *ScheduleRepository) availableSeats(scheduleID uuid.UUID) (int, error) {
	var available int
	err := r.db.Get(&available, `
		SELECT total_seats - held_seats - confirmed_seats
		FROM tour_schedules
		WHERE id = $1`,
		scheduleID)
	if err != nil {
		return 0, err
	}
	return available, nil
}

// confirmHoldTx flips a HELD hold to CONFIRMED and moves the schedule
// counters inside the caller's transaction. Shared with the payment
// reconciliation path so the confirm commits atomically with the booking
// status change.
func confirmHoldTx(tx *sqlx.Tx, bookingID uuid.UUID) error {
	var hold struct {
		ScheduleID uuid.UUID `db:"schedule_id"`
		Seats      int       `db:"seats"`
	}
	err := tx.Get(&hold, `
		UPDATE seat_holds
		SET status = 'CONFIRMED', updated_at = NOW()
		WHERE booking_id = $1 AND status = 'HELD'
		RETURNING schedule_id, seats`,
		bookingID)
	if err == sql.ErrNoRows {
		return models.ErrHoldNotActive
	}
	if err != nil {
		return fmt.Errorf("failed to confirm seat hold: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE tour_schedules
		SET held_seats = held_seats - $1,
		    confirmed_seats = confirmed_seats + $1,
		    status = CASE WHEN held_seats + confirmed_seats >= total_seats THEN 'FULL' ELSE status END
		WHERE id = $2`,
		hold.Seats, hold.ScheduleID)
	if err != nil {
		return fmt.Errorf("failed to move held seats to confirmed: %w", err)
	}

	return nil
}
