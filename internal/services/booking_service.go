package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/viettravel/booking-backend/internal/database"
	"github.com/viettravel/booking-backend/internal/events"
	"github.com/viettravel/booking-backend/internal/models"
	"github.com/viettravel/booking-backend/pkg/validator"
)

// dobLayout is the wire format for participant dates of birth
const dobLayout = "2006-01-02"

// ParticipantInput is one traveller in a booking request
type ParticipantInput struct {
	FullName       string                 `json:"full_name" binding:"required"`
	DateOfBirth    string                 `json:"date_of_birth" binding:"required"`
	Gender         string                 `json:"gender" binding:"required"`
	Type           models.ParticipantType `json:"type" binding:"required"`
	PassportNumber string                 `json:"passport_number"`
	Nationality    string                 `json:"nationality"`
}

// CreateBookingRequest is the checkout payload
type CreateBookingRequest struct {
	TourID        uuid.UUID          `json:"tour_id" binding:"required"`
	ScheduleID    uuid.UUID          `json:"schedule_id" binding:"required"`
	NumAdults     int                `json:"num_adults" binding:"required,min=1"`
	NumChildren   int                `json:"num_children" binding:"min=0"`
	NumInfants    int                `json:"num_infants" binding:"min=0"`
	Participants  []ParticipantInput `json:"participants" binding:"required,min=1"`
	PromotionCode string             `json:"promotion_code"`
	ContactPhone  string             `json:"contact_phone" binding:"required"`
	ContactEmail  string             `json:"contact_email" binding:"required"`
}

// CreateBookingResult carries the persisted booking plus the reason a
// promotion code was refused, when one was supplied but not applied.
type CreateBookingResult struct {
	Booking        *models.Booking       `json:"booking"`
	PromotionIssue models.PromotionIssue `json:"promotion_issue,omitempty"`
}

// BookingService is the orchestration state machine: it validates the
// party, claims inventory, prices the booking and persists it. Everything
// after a successful seat hold either completes or rolls the hold back.
type BookingService struct {
	tours      *database.TourRepository
	bookings   *database.BookingRepository
	inventory  *InventoryService
	pricing    *PricingService
	promotions *PromotionService
	publisher  events.Publisher
	phones     *validator.PhoneValidator
}

// NewBookingService creates a booking orchestrator
func NewBookingService(
	tours *database.TourRepository,
	bookings *database.BookingRepository,
	inventory *InventoryService,
	pricing *PricingService,
	promotions *PromotionService,
	publisher events.Publisher,
) *BookingService {
	return &BookingService{
		tours:      tours,
		bookings:   bookings,
		inventory:  inventory,
		pricing:    pricing,
		promotions: promotions,
		publisher:  publisher,
		phones:     validator.NewPhoneValidator(),
	}
}

// Create runs the checkout workflow. On success exactly one hold is
// consumed and one booking row written, in PENDING_PAYMENT/UNPAID, with no
// payment transaction yet. Any failure after the hold releases it before
// returning; a failed create leaves no partial state behind.
func (s *BookingService) Create(ctx context.Context, userID uuid.UUID, req *CreateBookingRequest) (*CreateBookingResult, error) {
	now := time.Now()

	tour, err := s.tours.GetByID(req.TourID)
	if err != nil {
		return nil, err
	}
	if tour == nil {
		return nil, models.ErrTourNotFound
	}

	schedule, err := s.tours.GetSchedule(req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil || schedule.TourID != tour.ID {
		return nil, models.ErrScheduleNotFound
	}

	// Server clock decides; a client-supplied date is never trusted
	if !schedule.DepartureDate.After(now) {
		return nil, models.NewValidationError("schedule_id", "departure date has already passed")
	}

	contactPhone, participants, err := s.validateParty(tour, req)
	if err != nil {
		return nil, err
	}

	bookingID := uuid.New()
	totalSeats := req.NumAdults + req.NumChildren + req.NumInfants

	if _, err := s.inventory.Hold(schedule.ID, bookingID, totalSeats); err != nil {
		return nil, err
	}

	// From here on every failure must give the seats back
	var promotion *models.Promotion
	var promotionIssue models.PromotionIssue

	if req.PromotionCode != "" {
		promotion, err = s.promotions.Lookup(req.PromotionCode, userID)
		if err != nil {
			if promoErr, ok := err.(*models.PromotionError); ok {
				promotionIssue = promoErr.Issue
				promotion = nil
			} else {
				s.inventory.Release(bookingID)
				return nil, err
			}
		}
	}

	quote := s.pricing.ComputePrice(tour, schedule, req.NumAdults, req.NumChildren, req.NumInfants, promotion, now)
	if quote.PromotionIssue != "" {
		promotionIssue = quote.PromotionIssue
	}

	redeemed := false
	if quote.PromotionApplied {
		if err := s.promotions.Redeem(promotion); err != nil {
			if promoErr, ok := err.(*models.PromotionError); ok {
				// Lost the race for the last redemption; proceed at full price
				quote = quote.WithoutPromotion(promoErr.Issue)
				promotionIssue = promoErr.Issue
			} else {
				s.inventory.Release(bookingID)
				return nil, err
			}
		} else {
			redeemed = true
		}
	}

	booking := &models.Booking{
		ID:                 bookingID,
		Code:               models.GenerateBookingCode(),
		UserID:             userID,
		TourID:             tour.ID,
		ScheduleID:         schedule.ID,
		NumAdults:          req.NumAdults,
		NumChildren:        req.NumChildren,
		NumInfants:         req.NumInfants,
		Subtotal:           quote.Subtotal,
		Discount:           quote.Discount,
		FinalAmount:        quote.FinalAmount,
		ContactPhone:       contactPhone,
		ContactEmail:       strings.TrimSpace(req.ContactEmail),
		ConfirmationStatus: models.ConfirmationStatusPendingPayment,
		PaymentStatus:      models.PaymentStatusUnpaid,
		Participants:       participants,
	}
	if quote.PromotionApplied {
		code := promotion.Code
		booking.PromotionCode = &code
	}

	if err := s.bookings.Create(booking); err != nil {
		s.inventory.Release(bookingID)
		if redeemed {
			s.promotions.Restore(promotion)
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"booking_code": booking.Code,
		"user_id":      userID,
		"schedule_id":  schedule.ID,
		"seats":        totalSeats,
		"final_amount": booking.FinalAmount,
	}).Info("Booking created")

	if err := s.publisher.Publish(ctx, events.BookingEvent{
		Type:        events.TypeBookingCreated,
		BookingID:   booking.ID,
		BookingCode: booking.Code,
		UserID:      userID,
		Amount:      booking.FinalAmount,
		OccurredAt:  now,
	}); err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to publish booking.created event")
	}

	return &CreateBookingResult{Booking: booking, PromotionIssue: promotionIssue}, nil
}

// GetByID returns a booking to its owner only
func (s *BookingService) GetByID(userID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, models.ErrForbidden
	}
	return booking, nil
}

// GetByOrderID resolves the booking behind a gateway order id, owner only.
// The client calls this to render confirmation after the gateway redirect.
func (s *BookingService) GetByOrderID(userID uuid.UUID, orderID string) (*models.Booking, error) {
	booking, err := s.bookings.GetByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, models.ErrBookingNotFound
	}
	if booking.UserID != userID {
		return nil, models.ErrForbidden
	}
	return booking, nil
}

// ListByUser returns the user's bookings, newest first
func (s *BookingService) ListByUser(userID uuid.UUID) ([]models.Booking, error) {
	return s.bookings.ListByUser(userID)
}

// validateParty checks the declared counts against the participant list and
// the tour type's required fields, and normalizes the contact phone.
func (s *BookingService) validateParty(tour *models.Tour, req *CreateBookingRequest) (string, []models.Participant, error) {
	if req.NumAdults < 1 {
		return "", nil, models.NewValidationError("num_adults", "at least one adult is required")
	}

	total := req.NumAdults + req.NumChildren + req.NumInfants
	if len(req.Participants) != total {
		return "", nil, models.NewValidationError("participants",
			"participant list must match the declared party size")
	}

	contactPhone, err := s.phones.Validate(req.ContactPhone)
	if err != nil {
		return "", nil, models.NewValidationError("contact_phone", err.Error())
	}

	email := strings.TrimSpace(req.ContactEmail)
	if email == "" || !strings.Contains(email, "@") {
		return "", nil, models.NewValidationError("contact_email", "a valid contact email is required")
	}

	counts := map[models.ParticipantType]int{}
	participants := make([]models.Participant, 0, total)

	for _, input := range req.Participants {
		if strings.TrimSpace(input.FullName) == "" {
			return "", nil, models.NewValidationError("participants", "participant full name is required")
		}

		dob, err := time.Parse(dobLayout, input.DateOfBirth)
		if err != nil {
			return "", nil, models.NewValidationError("participants",
				"date of birth must be in YYYY-MM-DD format")
		}

		switch input.Type {
		case models.ParticipantTypeAdult, models.ParticipantTypeChild, models.ParticipantTypeInfant:
		default:
			return "", nil, models.NewValidationError("participants", "unknown participant type")
		}
		counts[input.Type]++

		participant := models.Participant{
			FullName:    strings.TrimSpace(input.FullName),
			DateOfBirth: dob,
			Gender:      input.Gender,
			Type:        input.Type,
		}

		if tour.Type == models.TourTypeInternational {
			passport := strings.TrimSpace(input.PassportNumber)
			nationality := strings.TrimSpace(input.Nationality)
			if passport == "" || nationality == "" {
				return "", nil, models.NewValidationError("participants",
					"passport number and nationality are required for international tours")
			}
			participant.PassportNumber = &passport
			participant.Nationality = &nationality
		}

		participants = append(participants, participant)
	}

	if counts[models.ParticipantTypeAdult] != req.NumAdults ||
		counts[models.ParticipantTypeChild] != req.NumChildren ||
		counts[models.ParticipantTypeInfant] != req.NumInfants {
		return "", nil, models.NewValidationError("participants",
			"participant types must match the declared adult/child/infant counts")
	}

	return contactPhone, participants, nil
}
