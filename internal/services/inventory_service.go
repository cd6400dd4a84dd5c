package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/viettravel/booking-backend/internal/database"
)

// InventoryService grants, converts and releases time-boxed seat holds.
// Holds are keyed by booking id so payment reconciliation can always find
// the hold it needs to confirm or release.
type InventoryService struct {
	schedules *database.ScheduleRepository
	holdTTL   time.Duration
}

// NewInventoryService creates an inventory service with the hold TTL policy
func NewInventoryService(schedules *database.ScheduleRepository, holdTTL time.Duration) *InventoryService {
	return &InventoryService{schedules: schedules, holdTTL: holdTTL}
}

// Hold atomically claims seats on a schedule for a booking. The hold expires
// after the configured TTL unless converted by a successful payment.
func (s *InventoryService) Hold(scheduleID, bookingID uuid.UUID, seats int) (time.Time, error) {
	expiresAt := time.Now().Add(s.holdTTL)

	if err := s.schedules.HoldSeats(scheduleID, bookingID, seats, expiresAt); err != nil {
		return time.Time{}, err
	}

	logrus.WithFields(logrus.Fields{
		"schedule_id": scheduleID,
		"booking_id":  bookingID,
		"seats":       seats,
		"expires_at":  expiresAt,
	}).Info("Seat hold granted")

	return expiresAt, nil
}

// Confirm converts a booking's hold into confirmed seats after payment
func (s *InventoryService) Confirm(bookingID uuid.UUID) error {
	return s.schedules.ConfirmHold(bookingID)
}

// Release returns a booking's held seats to the pool. Safe to call on a
// hold that is already gone; rollback paths use it unconditionally.
func (s *InventoryService) Release(bookingID uuid.UUID) {
	if err := s.schedules.ReleaseHold(bookingID); err != nil {
		logrus.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"error":      err.Error(),
		}).Error("Failed to release seat hold")
		return
	}

	logrus.WithField("booking_id", bookingID).Info("Seat hold released")
}

// ReleaseConfirmed returns a booking's confirmed seats (approved cancellation)
func (s *InventoryService) ReleaseConfirmed(bookingID uuid.UUID) error {
	return s.schedules.ReleaseConfirmedSeats(bookingID)
}

// SweepExpired releases every hold whose expiry has passed
func (s *InventoryService) SweepExpired() (int, error) {
	return s.schedules.ReleaseExpiredHolds(time.Now())
}
