package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/viettravel/booking-backend/internal/models"
)

// TourRepository reads catalog data. The booking core never writes tours.
type TourRepository struct {
	db *sqlx.DB
}

// NewTourRepository creates a new tour repository
func NewTourRepository(db *sqlx.DB) *TourRepository {
	return &TourRepository{db: db}
}

// GetByID fetches a tour, returning (nil, nil) when it does not exist
func (r *TourRepository) GetByID(id uuid.UUID) (*models.Tour, error) {
	var tour models.Tour
	query := `
		SELECT id, name, type, adult_price, child_price, infant_price, created_at
		FROM tours
		WHERE id = $1`

	err := r.db.Get(&tour, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}

	return &tour, nil
}

// GetSchedule fetches a schedule, returning (nil, nil) when it does not exist
func (r *TourRepository) GetSchedule(id uuid.UUID) (*models.TourSchedule, error) {
	var schedule models.TourSchedule
	query := `
		SELECT id, tour_id, departure_date, total_seats, held_seats, confirmed_seats,
		       adult_price, child_price, infant_price, status, created_at
		FROM tour_schedules
		WHERE id = $1`

	err := r.db.Get(&schedule, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	return &schedule, nil
}
