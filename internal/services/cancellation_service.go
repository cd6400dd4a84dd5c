package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/viettravel/booking-backend/internal/config"
	"github.com/viettravel/booking-backend/internal/database"
	"github.com/viettravel/booking-backend/internal/events"
	"github.com/viettravel/booking-backend/internal/models"
)

// CancellationService runs the post-payment cancellation state machine:
// a paid booking moves to CANCELLATION_REQUESTED, then a decision either
// cancels it (seats released, refund recorded) or puts it back to CONFIRMED.
type CancellationService struct {
	bookings      *database.BookingRepository
	cancellations *database.CancellationRepository
	tours         *database.TourRepository
	policy        config.BookingConfig
	publisher     events.Publisher
}

// NewCancellationService creates a cancellation service
func NewCancellationService(
	bookings *database.BookingRepository,
	cancellations *database.CancellationRepository,
	tours *database.TourRepository,
	policy config.BookingConfig,
	publisher events.Publisher,
) *CancellationService {
	return &CancellationService{
		bookings:      bookings,
		cancellations: cancellations,
		tours:         tours,
		policy:        policy,
		publisher:     publisher,
	}
}

// Request opens a cancellation request for a paid booking. Seats are not
// released here; that waits for the decision. The suggested refund follows
// the policy tiers and is recorded on the request for the reviewer.
func (s *CancellationService) Request(userID, bookingID uuid.UUID, reason string) (*models.CancellationRequest, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, &models.NotCancellableError{Reason: "booking belongs to another user"}
	}
	if booking.ConfirmationStatus == models.ConfirmationStatusCancelled {
		return nil, &models.NotCancellableError{Reason: "booking is already cancelled"}
	}
	if booking.PaymentStatus != models.PaymentStatusPaid {
		return nil, &models.NotCancellableError{Reason: "only paid bookings can be cancelled"}
	}

	pending, err := s.cancellations.HasPending(bookingID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, &models.NotCancellableError{Reason: "a cancellation request is already pending"}
	}

	schedule, err := s.tours.GetSchedule(booking.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, models.ErrScheduleNotFound
	}

	now := time.Now()
	if !schedule.DepartureDate.After(now) {
		return nil, &models.NotCancellableError{Reason: "the tour has already departed"}
	}

	hoursLeft := schedule.DepartureDate.Sub(now).Hours()
	if hoursLeft < float64(s.policy.PartialRefundHours) {
		return nil, &models.NotCancellableError{Reason: "too close to departure to cancel"}
	}

	// The status guard on the booking row is the real gate; a concurrent
	// request loses here even after the checks above passed
	if err := s.bookings.MarkCancellationRequested(bookingID); err != nil {
		return nil, err
	}

	request := &models.CancellationRequest{
		ID:           uuid.New(),
		BookingID:    bookingID,
		UserID:       userID,
		Reason:       strings.TrimSpace(reason),
		Status:       models.CancellationStatusPending,
		RefundAmount: s.suggestedRefund(booking.FinalAmount, hoursLeft),
	}
	if err := s.cancellations.Create(request); err != nil {
		// Put the booking back so it is not stuck awaiting a request that
		// was never recorded
		if revertErr := s.bookings.RevertCancellationRequested(bookingID); revertErr != nil {
			logrus.WithFields(logrus.Fields{
				"booking_id": bookingID,
				"error":      revertErr.Error(),
			}).Error("Failed to revert booking after cancellation request insert failure")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":    bookingID,
		"request_id":    request.ID,
		"refund_amount": request.RefundAmount,
		"hours_left":    int(hoursLeft),
	}).Info("Cancellation requested")

	return request, nil
}

// Decide finalizes a pending request. Approval releases the confirmed seats
// and moves the booking to CANCELLED/REFUNDED; rejection restores
// CONFIRMED. The refund may be overridden by the reviewer.
func (s *CancellationService) Decide(ctx context.Context, requestID uuid.UUID, approve bool, refundOverride *int64) (*models.Booking, error) {
	request, err := s.cancellations.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, models.ErrRequestNotFound
	}
	if request.Status != models.CancellationStatusPending {
		return nil, models.ErrRequestAlreadyDecided
	}

	if approve {
		refund := request.RefundAmount
		if refundOverride != nil {
			refund = *refundOverride
		}
		if err := s.cancellations.Approve(requestID, refund); err != nil {
			return nil, err
		}

		booking, err := s.bookings.GetByID(request.BookingID)
		if err != nil {
			return nil, err
		}

		logrus.WithFields(logrus.Fields{
			"booking_id":    request.BookingID,
			"request_id":    requestID,
			"refund_amount": refund,
		}).Info("Cancellation approved")

		if err := s.publisher.Publish(ctx, events.BookingEvent{
			Type:        events.TypeBookingCancelled,
			BookingID:   booking.ID,
			BookingCode: booking.Code,
			UserID:      booking.UserID,
			Amount:      refund,
			OccurredAt:  time.Now(),
		}); err != nil {
			logrus.WithField("error", err.Error()).Warn("Failed to publish booking.cancelled event")
		}

		return booking, nil
	}

	if err := s.cancellations.Reject(requestID); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": request.BookingID,
		"request_id": requestID,
	}).Info("Cancellation rejected")

	return s.bookings.GetByID(request.BookingID)
}

// suggestedRefund applies the policy tiers: a full refund minus the
// processing fee far from departure, a percentage minus a smaller fee in
// the partial window. Never negative.
func (s *CancellationService) suggestedRefund(finalAmount int64, hoursLeft float64) int64 {
	var refund int64
	switch {
	case hoursLeft >= float64(s.policy.FullRefundHours):
		refund = finalAmount - s.policy.FullRefundFee
	case hoursLeft >= float64(s.policy.PartialRefundHours):
		refund = finalAmount*int64(s.policy.PartialRefundRate)/100 - s.policy.PartialRefundFee
	default:
		refund = 0
	}
	if refund < 0 {
		refund = 0
	}
	return refund
}
