package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viettravel/booking-backend/internal/database"
	"github.com/viettravel/booking-backend/internal/events"
	"github.com/viettravel/booking-backend/internal/models"
)

var tourColumns = []string{
	"id", "name", "type", "adult_price", "child_price", "infant_price", "created_at",
}

var scheduleColumns = []string{
	"id", "tour_id", "departure_date", "total_seats", "held_seats", "confirmed_seats",
	"adult_price", "child_price", "infant_price", "status", "created_at",
}

func newBookingService(t *testing.T) (*BookingService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	tours := database.NewTourRepository(sqlxDB)
	bookings := database.NewBookingRepository(sqlxDB)
	schedules := database.NewScheduleRepository(sqlxDB)
	promotions := database.NewPromotionRepository(sqlxDB)

	service := NewBookingService(
		tours,
		bookings,
		NewInventoryService(schedules, 30*time.Minute),
		NewPricingService(),
		NewPromotionService(promotions),
		events.NoopPublisher{},
	)
	return service, mock
}

func validRequest(tourID, scheduleID uuid.UUID) *CreateBookingRequest {
	return &CreateBookingRequest{
		TourID:      tourID,
		ScheduleID:  scheduleID,
		NumAdults:   2,
		NumChildren: 1,
		Participants: []ParticipantInput{
			{FullName: "Nguyen Van An", DateOfBirth: "1988-03-12", Gender: "male", Type: models.ParticipantTypeAdult},
			{FullName: "Tran Thi Binh", DateOfBirth: "1990-07-25", Gender: "female", Type: models.ParticipantTypeAdult},
			{FullName: "Nguyen Minh Chau", DateOfBirth: "2016-11-02", Gender: "female", Type: models.ParticipantTypeChild},
		},
		ContactPhone: "0912345678",
		ContactEmail: "an.nguyen@example.com",
	}
}

func expectTourAndSchedule(mock sqlmock.Sqlmock, tourID, scheduleID uuid.UUID, tourType models.TourType) {
	mock.ExpectQuery(`SELECT (.+) FROM tours`).
		WithArgs(tourID).
		WillReturnRows(sqlmock.NewRows(tourColumns).
			AddRow(tourID, "Da Nang - Hoi An 3N2D", string(tourType), 2000000, 1400000, 0, time.Now()))

	mock.ExpectQuery(`SELECT (.+) FROM tour_schedules`).
		WithArgs(scheduleID).
		WillReturnRows(sqlmock.NewRows(scheduleColumns).
			AddRow(scheduleID, tourID, time.Now().Add(30*24*time.Hour), 20, 0, 0,
				nil, nil, nil, "AVAILABLE", time.Now()))
}

func TestCreateBooking_Success(t *testing.T) {
	service, mock := newBookingService(t)
	userID := uuid.New()
	tourID := uuid.New()
	scheduleID := uuid.New()

	expectTourAndSchedule(mock, tourID, scheduleID, models.TourTypeDomestic)

	// Seat hold
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tour_schedules`).
		WithArgs(3, scheduleID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO seat_holds`).
		WithArgs(sqlmock.AnyArg(), scheduleID, sqlmock.AnyArg(), 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	// Booking persist
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i := 0; i < 3; i++ {
		mock.ExpectExec(`INSERT INTO booking_participants`).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	result, err := service.Create(context.Background(), userID, validRequest(tourID, scheduleID))
	require.NoError(t, err)
	require.NotNil(t, result.Booking)

	assert.Equal(t, int64(5400000), result.Booking.Subtotal)
	assert.Equal(t, int64(5400000), result.Booking.FinalAmount)
	assert.Equal(t, models.ConfirmationStatusPendingPayment, result.Booking.ConfirmationStatus)
	assert.Equal(t, models.PaymentStatusUnpaid, result.Booking.PaymentStatus)
	assert.NotEmpty(t, result.Booking.Code)
	assert.Empty(t, result.PromotionIssue)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_WithPromotion(t *testing.T) {
	service, mock := newBookingService(t)
	userID := uuid.New()
	tourID := uuid.New()
	scheduleID := uuid.New()
	promoID := uuid.New()

	expectTourAndSchedule(mock, tourID, scheduleID, models.TourTypeDomestic)

	// Seat hold
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tour_schedules`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO seat_holds`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	// Promotion lookup and redemption
	mock.ExpectQuery(`SELECT (.+) FROM promotions`).
		WithArgs("SAVE10").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "discount_type", "value", "max_discount",
			"min_order_amount", "usage_limit", "used_count",
			"start_date", "end_date", "active",
		}).AddRow(promoID, "SAVE10", "PERCENTAGE", 10, nil, 1000000, nil, 42,
			time.Now().Add(-time.Hour), time.Now().Add(time.Hour), true))
	mock.ExpectExec(`UPDATE promotions`).
		WithArgs(promoID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Booking persist
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i := 0; i < 3; i++ {
		mock.ExpectExec(`INSERT INTO booking_participants`).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	req := validRequest(tourID, scheduleID)
	req.PromotionCode = "SAVE10"

	result, err := service.Create(context.Background(), userID, req)
	require.NoError(t, err)

	assert.Equal(t, int64(5400000), result.Booking.Subtotal)
	assert.Equal(t, int64(540000), result.Booking.Discount)
	assert.Equal(t, int64(4860000), result.Booking.FinalAmount)
	require.NotNil(t, result.Booking.PromotionCode)
	assert.Equal(t, "SAVE10", *result.Booking.PromotionCode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_UnknownPromotionProceedsAtFullPrice(t *testing.T) {
	service, mock := newBookingService(t)
	userID := uuid.New()
	tourID := uuid.New()
	scheduleID := uuid.New()

	expectTourAndSchedule(mock, tourID, scheduleID, models.TourTypeDomestic)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tour_schedules`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO seat_holds`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT (.+) FROM promotions`).
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "discount_type", "value", "max_discount",
			"min_order_amount", "usage_limit", "used_count",
			"start_date", "end_date", "active",
		}))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i := 0; i < 3; i++ {
		mock.ExpectExec(`INSERT INTO booking_participants`).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	req := validRequest(tourID, scheduleID)
	req.PromotionCode = "NOPE"

	result, err := service.Create(context.Background(), userID, req)
	require.NoError(t, err)

	assert.Equal(t, int64(5400000), result.Booking.FinalAmount)
	assert.Nil(t, result.Booking.PromotionCode)
	assert.Equal(t, models.PromotionIssueNotFound, result.PromotionIssue)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_InsufficientSeats(t *testing.T) {
	service, mock := newBookingService(t)
	userID := uuid.New()
	tourID := uuid.New()
	scheduleID := uuid.New()

	expectTourAndSchedule(mock, tourID, scheduleID, models.TourTypeDomestic)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tour_schedules`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT total_seats - held_seats - confirmed_seats`).
		WithArgs(scheduleID).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err := service.Create(context.Background(), userID, validRequest(tourID, scheduleID))
	require.Error(t, err)

	var seatsErr *models.InsufficientSeatsError
	require.ErrorAs(t, err, &seatsErr)
	assert.Equal(t, 3, seatsErr.Requested)
	assert.Equal(t, 1, seatsErr.Available)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_PersistFailureReleasesHold(t *testing.T) {
	service, mock := newBookingService(t)
	userID := uuid.New()
	tourID := uuid.New()
	scheduleID := uuid.New()

	expectTourAndSchedule(mock, tourID, scheduleID, models.TourTypeDomestic)

	// Hold granted
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE tour_schedules`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO seat_holds`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	// Booking insert fails
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(fmt.Errorf("database error"))
	mock.ExpectRollback()

	// Hold must come back
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE seat_holds`).
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "seats"}).
			AddRow(scheduleID, 3))
	mock.ExpectExec(`UPDATE tour_schedules`).
		WithArgs(3, scheduleID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := service.Create(context.Background(), userID, validRequest(tourID, scheduleID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert booking")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_ValidationFailures(t *testing.T) {
	service, mock := newBookingService(t)
	userID := uuid.New()
	tourID := uuid.New()
	scheduleID := uuid.New()

	t.Run("Participant Count Mismatch", func(t *testing.T) {
		expectTourAndSchedule(mock, tourID, scheduleID, models.TourTypeDomestic)

		req := validRequest(tourID, scheduleID)
		req.Participants = req.Participants[:2]

		_, err := service.Create(context.Background(), userID, req)
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "participants", validationErr.Field)
	})

	t.Run("Type Tally Mismatch", func(t *testing.T) {
		expectTourAndSchedule(mock, tourID, scheduleID, models.TourTypeDomestic)

		req := validRequest(tourID, scheduleID)
		req.Participants[2].Type = models.ParticipantTypeAdult

		_, err := service.Create(context.Background(), userID, req)
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("Invalid Phone", func(t *testing.T) {
		expectTourAndSchedule(mock, tourID, scheduleID, models.TourTypeDomestic)

		req := validRequest(tourID, scheduleID)
		req.ContactPhone = "12ab"

		_, err := service.Create(context.Background(), userID, req)
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "contact_phone", validationErr.Field)
	})

	t.Run("International Tour Requires Passport", func(t *testing.T) {
		expectTourAndSchedule(mock, tourID, scheduleID, models.TourTypeInternational)

		_, err := service.Create(context.Background(), userID, validRequest(tourID, scheduleID))
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("Departure Already Passed", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM tours`).
			WithArgs(tourID).
			WillReturnRows(sqlmock.NewRows(tourColumns).
				AddRow(tourID, "Da Nang - Hoi An 3N2D", "DOMESTIC", 2000000, 1400000, 0, time.Now()))
		mock.ExpectQuery(`SELECT (.+) FROM tour_schedules`).
			WithArgs(scheduleID).
			WillReturnRows(sqlmock.NewRows(scheduleColumns).
				AddRow(scheduleID, tourID, time.Now().Add(-time.Hour), 20, 0, 0,
					nil, nil, nil, "AVAILABLE", time.Now()))

		_, err := service.Create(context.Background(), userID, validRequest(tourID, scheduleID))
		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "schedule_id", validationErr.Field)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_TourNotFound(t *testing.T) {
	service, mock := newBookingService(t)
	userID := uuid.New()
	tourID := uuid.New()
	scheduleID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM tours`).
		WithArgs(tourID).
		WillReturnRows(sqlmock.NewRows(tourColumns))

	_, err := service.Create(context.Background(), userID, validRequest(tourID, scheduleID))
	assert.ErrorIs(t, err, models.ErrTourNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
