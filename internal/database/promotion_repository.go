package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/viettravel/booking-backend/internal/models"
)

// PromotionRepository reads promotion codes and owns the usage counter.
// The counter moves through a capacity-guarded update, same discipline as
// the seat counters: check and increment in one statement.
type PromotionRepository struct {
	db *sqlx.DB
}

// NewPromotionRepository creates a new promotion repository
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// GetByCode looks a promotion up case-insensitively, (nil, nil) when absent
func (r *PromotionRepository) GetByCode(code string) (*models.Promotion, error) {
	var promotion models.Promotion
	query := `
		SELECT id, code, discount_type, value, max_discount, min_order_amount,
		       usage_limit, used_count, start_date, end_date, active
		FROM promotions
		WHERE LOWER(code) = LOWER($1)`

	err := r.db.Get(&promotion, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get promotion: %w", err)
	}

	return &promotion, nil
}

// IncrementUsage burns one redemption. When the cap is already reached the
// guard makes this a no-op and the caller gets USAGE_EXCEEDED, so two users
// racing for the last redemption cannot both win.
func (r *PromotionRepository) IncrementUsage(id uuid.UUID) error {
	result, err := r.db.Exec(`
		UPDATE promotions
		SET used_count = used_count + 1
		WHERE id = $1
		  AND (usage_limit IS NULL OR used_count < usage_limit)`,
		id)
	if err != nil {
		return fmt.Errorf("failed to increment promotion usage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check usage increment: %w", err)
	}
	if rows == 0 {
		return &models.PromotionError{Issue: models.PromotionIssueUsageExceeded}
	}

	return nil
}

// DecrementUsage gives a redemption back when booking creation fails after
// the code was burned.
func (r *PromotionRepository) DecrementUsage(id uuid.UUID) error {
	_, err := r.db.Exec(`
		UPDATE promotions
		SET used_count = used_count - 1
		WHERE id = $1 AND used_count > 0`,
		id)
	if err != nil {
		return fmt.Errorf("failed to decrement promotion usage: %w", err)
	}
	return nil
}
