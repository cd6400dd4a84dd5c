package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/viettravel/booking-backend/internal/database"
	"github.com/viettravel/booking-backend/internal/models"
)

// PromotionService validates promotion codes and manages their usage
// counter. Validation rules are pure; the counter moves through the
// repository's capacity-guarded update.
type PromotionService struct {
	promotions *database.PromotionRepository
}

// NewPromotionService creates a promotion service
func NewPromotionService(promotions *database.PromotionRepository) *PromotionService {
	return &PromotionService{promotions: promotions}
}

// Lookup finds a promotion by code, case-insensitively. A missing or
// inactive code comes back as a PromotionError, not a hard failure.
func (s *PromotionService) Lookup(code string, userID uuid.UUID) (*models.Promotion, error) {
	promotion, err := s.promotions.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if promotion == nil || !promotion.Active {
		logrus.WithFields(logrus.Fields{
			"promotion_code": code,
			"user_id":        userID,
		}).Info("Promotion code not found or inactive")
		return nil, &models.PromotionError{Code: code, Issue: models.PromotionIssueNotFound}
	}
	return promotion, nil
}

// Redeem burns one redemption of the promotion. The repository guard makes
// the cap check and the increment a single atomic step.
func (s *PromotionService) Redeem(promotion *models.Promotion) error {
	if err := s.promotions.IncrementUsage(promotion.ID); err != nil {
		if promoErr, ok := err.(*models.PromotionError); ok {
			promoErr.Code = promotion.Code
		}
		return err
	}
	return nil
}

// Restore returns a redemption when the booking it was burned for could not
// be created.
func (s *PromotionService) Restore(promotion *models.Promotion) {
	if err := s.promotions.DecrementUsage(promotion.ID); err != nil {
		logrus.WithFields(logrus.Fields{
			"promotion_id":   promotion.ID,
			"promotion_code": promotion.Code,
			"error":          err.Error(),
		}).Error("Failed to restore promotion usage after rollback")
	}
}

// EvaluateDiscount applies the promotion's rules to a subtotal. Pure: no
// I/O, clock passed in. The discount is computed against the pre-discount
// subtotal and capped so it never exceeds it.
func EvaluateDiscount(p *models.Promotion, subtotal int64, now time.Time) (int64, *models.PromotionError) {
	if now.Before(p.StartDate) {
		return 0, &models.PromotionError{Code: p.Code, Issue: models.PromotionIssueNotYetValid}
	}
	if now.After(p.EndDate) {
		return 0, &models.PromotionError{Code: p.Code, Issue: models.PromotionIssueExpired}
	}
	if subtotal < p.MinOrderAmount {
		return 0, &models.PromotionError{Code: p.Code, Issue: models.PromotionIssueBelowMinimum}
	}
	if p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit {
		return 0, &models.PromotionError{Code: p.Code, Issue: models.PromotionIssueUsageExceeded}
	}

	var discount int64
	switch p.DiscountType {
	case models.DiscountTypePercentage:
		discount = subtotal * p.Value / 100
		if p.MaxDiscount != nil && discount > *p.MaxDiscount {
			discount = *p.MaxDiscount
		}
	case models.DiscountTypeFixedAmount:
		discount = p.Value
	}

	if discount > subtotal {
		discount = subtotal
	}

	return discount, nil
}
