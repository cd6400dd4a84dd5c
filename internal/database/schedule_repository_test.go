package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viettravel/booking-backend/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestHoldSeats(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewScheduleRepository(sqlxDB)

	t.Run("Success", func(t *testing.T) {
		scheduleID := uuid.New()
		bookingID := uuid.New()
		expiresAt := time.Now().Add(30 * time.Minute)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs(3, scheduleID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO seat_holds`).
			WithArgs(sqlmock.AnyArg(), scheduleID, bookingID, 3, expiresAt).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err := repo.HoldSeats(scheduleID, bookingID, 3, expiresAt)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insufficient Seats", func(t *testing.T) {
		scheduleID := uuid.New()
		bookingID := uuid.New()
		expiresAt := time.Now().Add(30 * time.Minute)

		mock.ExpectBegin()
		// Guarded update matches no row: capacity would be exceeded
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs(2, scheduleID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT total_seats - held_seats - confirmed_seats`).
			WithArgs(scheduleID).
			WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
		mock.ExpectRollback()

		err := repo.HoldSeats(scheduleID, bookingID, 2, expiresAt)
		require.Error(t, err)

		var seatsErr *models.InsufficientSeatsError
		require.ErrorAs(t, err, &seatsErr)
		assert.Equal(t, 2, seatsErr.Requested)
		assert.Equal(t, 1, seatsErr.Available)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		scheduleID := uuid.New()
		bookingID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs(1, scheduleID).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		err := repo.HoldSeats(scheduleID, bookingID, 1, time.Now())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to hold seats")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConfirmHold(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewScheduleRepository(sqlxDB)

	t.Run("Success", func(t *testing.T) {
		scheduleID := uuid.New()
		bookingID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE seat_holds`).
			WithArgs(bookingID).
			WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "seats"}).
				AddRow(scheduleID, 3))
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs(3, scheduleID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.ConfirmHold(bookingID)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Hold Already Confirmed", func(t *testing.T) {
		bookingID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE seat_holds`).
			WithArgs(bookingID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.ConfirmHold(bookingID)
		assert.ErrorIs(t, err, models.ErrHoldNotActive)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReleaseHold(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewScheduleRepository(sqlxDB)

	t.Run("Success", func(t *testing.T) {
		scheduleID := uuid.New()
		bookingID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE seat_holds`).
			WithArgs(bookingID).
			WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "seats"}).
				AddRow(scheduleID, 2))
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs(2, scheduleID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.ReleaseHold(bookingID)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No Active Hold Is Not An Error", func(t *testing.T) {
		bookingID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE seat_holds`).
			WithArgs(bookingID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.ReleaseHold(bookingID)
		assert.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReleaseExpiredHolds(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewScheduleRepository(sqlxDB)

	t.Run("Releases All Expired", func(t *testing.T) {
		now := time.Now()
		scheduleA := uuid.New()
		scheduleB := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE seat_holds`).
			WithArgs(now).
			WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "seats"}).
				AddRow(scheduleA, 2).
				AddRow(scheduleB, 4))
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs(2, scheduleA).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE tour_schedules`).
			WithArgs(4, scheduleB).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		released, err := repo.ReleaseExpiredHolds(now)
		require.NoError(t, err)
		assert.Equal(t, 2, released)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nothing Expired", func(t *testing.T) {
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE seat_holds`).
			WithArgs(now).
			WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "seats"}))
		mock.ExpectCommit()

		released, err := repo.ReleaseExpiredHolds(now)
		require.NoError(t, err)
		assert.Equal(t, 0, released)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
