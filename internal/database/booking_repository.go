package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/viettravel/booking-backend/internal/models"
)

// BookingRepository persists bookings and their participants
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create persists a booking and its participants in one transaction
func (r *BookingRepository) Create(booking *models.Booking) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO bookings (
			id, code, user_id, tour_id, schedule_id,
			num_adults, num_children, num_infants,
			subtotal, discount, final_amount, promotion_code,
			contact_phone, contact_email,
			confirmation_status, payment_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())`,
		booking.ID, booking.Code, booking.UserID, booking.TourID, booking.ScheduleID,
		booking.NumAdults, booking.NumChildren, booking.NumInfants,
		booking.Subtotal, booking.Discount, booking.FinalAmount, booking.PromotionCode,
		booking.ContactPhone, booking.ContactEmail,
		booking.ConfirmationStatus, booking.PaymentStatus)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	for i := range booking.Participants {
		p := &booking.Participants[i]
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.BookingID = booking.ID

		_, err = tx.Exec(`
			INSERT INTO booking_participants (
				id, booking_id, full_name, date_of_birth, gender, type,
				passport_number, nationality
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.BookingID, p.FullName, p.DateOfBirth, p.Gender, p.Type,
			p.PassportNumber, p.Nationality)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	return nil
}

// GetByID fetches a booking with its participants, (nil, nil) when absent
func (r *BookingRepository) GetByID(id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.Get(&booking, bookingSelect+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := r.loadParticipants(&booking); err != nil {
		return nil, err
	}

	return &booking, nil
}

// GetByOrderID resolves the booking behind the most recent payment
// transaction carrying the given gateway order id. Used by the client to
// render confirmation after the gateway redirect.
func (r *BookingRepository) GetByOrderID(orderID string) (*models.Booking, error) {
	var booking models.Booking
	query := `
		SELECT b.id, b.code, b.user_id, b.tour_id, b.schedule_id,
		       b.num_adults, b.num_children, b.num_infants,
		       b.subtotal, b.discount, b.final_amount, b.promotion_code,
		       b.contact_phone, b.contact_email,
		       b.confirmation_status, b.payment_status, b.created_at, b.updated_at
		FROM bookings b
		JOIN payment_transactions t ON t.booking_id = b.id
		WHERE t.order_id = $1
		ORDER BY t.created_at DESC
		LIMIT 1`

	err := r.db.Get(&booking, query, orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by order id: %w", err)
	}

	if err := r.loadParticipants(&booking); err != nil {
		return nil, err
	}

	return &booking, nil
}

// ListByUser returns a user's bookings, newest first
func (r *BookingRepository) ListByUser(userID uuid.UUID) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := r.db.Select(&bookings, bookingSelect+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// MarkCancellationRequested moves a paid, confirmed booking into
// CANCELLATION_REQUESTED. The status guard rejects the transition from any
// other state.
func (r *BookingRepository) MarkCancellationRequested(id uuid.UUID) error {
	result, err := r.db.Exec(`
		UPDATE bookings
		SET confirmation_status = 'CANCELLATION_REQUESTED', updated_at = NOW()
		WHERE id = $1
		  AND confirmation_status = 'CONFIRMED'
		  AND payment_status = 'PAID'`,
		id)
	if err != nil {
		return fmt.Errorf("failed to mark cancellation requested: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check cancellation transition: %w", err)
	}
	if rows == 0 {
		return &models.NotCancellableError{Reason: "booking is not in a cancellable state"}
	}

	return nil
}

// RevertCancellationRequested puts a booking back to CONFIRMED after a
// rejected cancellation request.
func (r *BookingRepository) RevertCancellationRequested(id uuid.UUID) error {
	result, err := r.db.Exec(`
		UPDATE bookings
		SET confirmation_status = 'CONFIRMED', updated_at = NOW()
		WHERE id = $1 AND confirmation_status = 'CANCELLATION_REQUESTED'`,
		id)
	if err != nil {
		return fmt.Errorf("failed to revert cancellation request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check revert transition: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("booking %s is not awaiting a cancellation decision", id)
	}

	return nil
}

const bookingSelect = `
	SELECT id, code, user_id, tour_id, schedule_id,
	       num_adults, num_children, num_infants,
	       subtotal, discount, final_amount, promotion_code,
	       contact_phone, contact_email,
	       confirmation_status, payment_status, created_at, updated_at
	FROM bookings`

func (r *BookingRepository) loadParticipants(booking *models.Booking) error {
	participants := []models.Participant{}
	err := r.db.Select(&participants, `
		SELECT id, booking_id, full_name, date_of_birth, gender, type,
		       passport_number, nationality
		FROM booking_participants
		WHERE booking_id = $1
		ORDER BY type, full_name`,
		booking.ID)
	if err != nil {
		return fmt.Errorf("failed to load participants: %w", err)
	}
	booking.Participants = participants
	return nil
}
