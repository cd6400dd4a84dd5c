package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viettravel/booking-backend/internal/models"
)

func TestGetPromotionByCode(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPromotionRepository(sqlxDB)

	promotionColumns := []string{
		"id", "code", "discount_type", "value", "max_discount",
		"min_order_amount", "usage_limit", "used_count",
		"start_date", "end_date", "active",
	}

	t.Run("Found", func(t *testing.T) {
		id := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`SELECT (.+) FROM promotions`).
			WithArgs("save10").
			WillReturnRows(sqlmock.NewRows(promotionColumns).
				AddRow(id, "SAVE10", "PERCENTAGE", 10, nil,
					1000000, 100, 7, now.Add(-time.Hour), now.Add(time.Hour), true))

		promotion, err := repo.GetByCode("save10")
		require.NoError(t, err)
		require.NotNil(t, promotion)
		assert.Equal(t, "SAVE10", promotion.Code)
		assert.Equal(t, models.DiscountTypePercentage, promotion.DiscountType)
		assert.Equal(t, int64(10), promotion.Value)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM promotions`).
			WithArgs("NOPE").
			WillReturnRows(sqlmock.NewRows(promotionColumns))

		promotion, err := repo.GetByCode("NOPE")
		require.NoError(t, err)
		assert.Nil(t, promotion)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIncrementUsage(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPromotionRepository(sqlxDB)

	t.Run("Success", func(t *testing.T) {
		id := uuid.New()

		mock.ExpectExec(`UPDATE promotions`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.IncrementUsage(id)
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Usage Cap Reached", func(t *testing.T) {
		id := uuid.New()

		// Guard matched no row: used_count already at the limit
		mock.ExpectExec(`UPDATE promotions`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.IncrementUsage(id)
		require.Error(t, err)

		var promoErr *models.PromotionError
		require.ErrorAs(t, err, &promoErr)
		assert.Equal(t, models.PromotionIssueUsageExceeded, promoErr.Issue)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDecrementUsage(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := NewPromotionRepository(sqlxDB)

	id := uuid.New()

	mock.ExpectExec(`UPDATE promotions`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.DecrementUsage(id)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
