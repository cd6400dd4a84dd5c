package models

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// ConfirmationStatus is the booking lifecycle state.
// PENDING_PAYMENT -> CONFIRMED -> CANCELLATION_REQUESTED -> CANCELLED,
// with rejection reverting to CONFIRMED. Bookings are never deleted.
type ConfirmationStatus string

const (
	ConfirmationStatusPendingPayment        ConfirmationStatus = "PENDING_PAYMENT"
	ConfirmationStatusConfirmed             ConfirmationStatus = "CONFIRMED"
	ConfirmationStatusCancellationRequested ConfirmationStatus = "CANCELLATION_REQUESTED"
	ConfirmationStatusCancelled             ConfirmationStatus = "CANCELLED"
)

// PaymentStatus tracks money state independently of the confirmation state
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// ParticipantType is the fare tier of a traveller
type ParticipantType string

const (
	ParticipantTypeAdult  ParticipantType = "ADULT"
	ParticipantTypeChild  ParticipantType = "CHILD"
	ParticipantTypeInfant ParticipantType = "INFANT"
)

// Booking is the aggregate root of the checkout workflow. Amounts are VND.
type Booking struct {
	ID                 uuid.UUID          `db:"id" json:"id"`
	Code               string             `db:"code" json:"code"`
	UserID             uuid.UUID          `db:"user_id" json:"user_id"`
	TourID             uuid.UUID          `db:"tour_id" json:"tour_id"`
	ScheduleID         uuid.UUID          `db:"schedule_id" json:"schedule_id"`
	NumAdults          int                `db:"num_adults" json:"num_adults"`
	NumChildren        int                `db:"num_children" json:"num_children"`
	NumInfants         int                `db:"num_infants" json:"num_infants"`
	Subtotal           int64              `db:"subtotal" json:"subtotal"`
	Discount           int64              `db:"discount" json:"discount"`
	FinalAmount        int64              `db:"final_amount" json:"final_amount"`
	PromotionCode      *string            `db:"promotion_code" json:"promotion_code,omitempty"`
	ContactPhone       string             `db:"contact_phone" json:"contact_phone"`
	ContactEmail       string             `db:"contact_email" json:"contact_email"`
	ConfirmationStatus ConfirmationStatus `db:"confirmation_status" json:"confirmation_status"`
	PaymentStatus      PaymentStatus      `db:"payment_status" json:"payment_status"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`

	Participants []Participant `db:"-" json:"participants,omitempty"`
}

// TotalTravellers returns the declared party size
func (b *Booking) TotalTravellers() int {
	return b.NumAdults + b.NumChildren + b.NumInfants
}

// Participant belongs to exactly one booking. Passport and nationality are
// set only for international tours.
type Participant struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	BookingID      uuid.UUID       `db:"booking_id" json:"booking_id"`
	FullName       string          `db:"full_name" json:"full_name"`
	DateOfBirth    time.Time       `db:"date_of_birth" json:"date_of_birth"`
	Gender         string          `db:"gender" json:"gender"`
	Type           ParticipantType `db:"type" json:"type"`
	PassportNumber *string         `db:"passport_number" json:"passport_number,omitempty"`
	Nationality    *string         `db:"nationality" json:"nationality,omitempty"`
}

// GenerateBookingCode builds the human-shareable code customers quote on the
// phone: "BK" + last 8 digits of unix millis + 2 random digits.
func GenerateBookingCode() string {
	millis := fmt.Sprintf("%d", time.Now().UnixMilli())
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}
	return fmt.Sprintf("BK%s%02d", millis, rand.Intn(100))
}
