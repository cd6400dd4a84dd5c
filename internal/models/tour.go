package models

import (
	"time"

	"github.com/google/uuid"
)

// TourType determines which participant fields are mandatory
type TourType string

const (
	TourTypeDomestic      TourType = "DOMESTIC"
	TourTypeInternational TourType = "INTERNATIONAL" // requires passport + nationality per participant
)

// ScheduleStatus represents the sale state of a departure
type ScheduleStatus string

const (
	ScheduleStatusAvailable ScheduleStatus = "AVAILABLE"
	ScheduleStatusFull      ScheduleStatus = "FULL"
	ScheduleStatusClosed    ScheduleStatus = "CLOSED"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

// Tour is catalog data, read-only to the booking core. Prices are VND.
type Tour struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Type        TourType  `db:"type" json:"type"`
	AdultPrice  int64     `db:"adult_price" json:"adult_price"`
	ChildPrice  int64     `db:"child_price" json:"child_price"`
	InfantPrice int64     `db:"infant_price" json:"infant_price"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TourSchedule is a departure with finite seat inventory.
// Invariant: held_seats + confirmed_seats <= total_seats. The counters are
// only moved by the inventory repository's guarded updates.
type TourSchedule struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	TourID         uuid.UUID      `db:"tour_id" json:"tour_id"`
	DepartureDate  time.Time      `db:"departure_date" json:"departure_date"`
	TotalSeats     int            `db:"total_seats" json:"total_seats"`
	HeldSeats      int            `db:"held_seats" json:"held_seats"`
	ConfirmedSeats int            `db:"confirmed_seats" json:"confirmed_seats"`
	AdultPrice     *int64         `db:"adult_price" json:"adult_price,omitempty"`
	ChildPrice     *int64         `db:"child_price" json:"child_price,omitempty"`
	InfantPrice    *int64         `db:"infant_price" json:"infant_price,omitempty"`
	Status         ScheduleStatus `db:"status" json:"status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// AvailableSeats returns the seats not currently held or confirmed
func (s *TourSchedule) AvailableSeats() int {
	return s.TotalSeats - s.HeldSeats - s.ConfirmedSeats
}

// UnitPrices resolves per-tier prices, schedule override first, tour base otherwise
func (s *TourSchedule) UnitPrices(t *Tour) (adult, child, infant int64) {
	adult, child, infant = t.AdultPrice, t.ChildPrice, t.InfantPrice
	if s.AdultPrice != nil {
		adult = *s.AdultPrice
	}
	if s.ChildPrice != nil {
		child = *s.ChildPrice
	}
	if s.InfantPrice != nil {
		infant = *s.InfantPrice
	}
	return adult, child, infant
}

// SeatHoldStatus tracks the lifecycle of a temporary seat claim
type SeatHoldStatus string

const (
	SeatHoldStatusHeld      SeatHoldStatus = "HELD"
	SeatHoldStatusConfirmed SeatHoldStatus = "CONFIRMED"
	SeatHoldStatusReleased  SeatHoldStatus = "RELEASED"
	SeatHoldStatusExpired   SeatHoldStatus = "EXPIRED"
)

// SeatHold is a time-boxed claim on schedule inventory, keyed by booking id
// so reconciliation can always find the hold to confirm or release.
type SeatHold struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	ScheduleID uuid.UUID      `db:"schedule_id" json:"schedule_id"`
	BookingID  uuid.UUID      `db:"booking_id" json:"booking_id"`
	Seats      int            `db:"seats" json:"seats"`
	Status     SeatHoldStatus `db:"status" json:"status"`
	ExpiresAt  time.Time      `db:"expires_at" json:"expires_at"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}
