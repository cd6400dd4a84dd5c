package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viettravel/booking-backend/internal/models"
)

func testTour() *models.Tour {
	return &models.Tour{
		ID:          uuid.New(),
		Name:        "Da Nang - Hoi An 3N2D",
		Type:        models.TourTypeDomestic,
		AdultPrice:  2000000,
		ChildPrice:  1400000,
		InfantPrice: 0,
	}
}

func testSchedule(tourID uuid.UUID) *models.TourSchedule {
	return &models.TourSchedule{
		ID:            uuid.New(),
		TourID:        tourID,
		DepartureDate: time.Now().Add(30 * 24 * time.Hour),
		TotalSeats:    20,
		Status:        models.ScheduleStatusAvailable,
	}
}

func TestComputePrice_NoPromotion(t *testing.T) {
	service := NewPricingService()
	tour := testTour()
	schedule := testSchedule(tour.ID)

	quote := service.ComputePrice(tour, schedule, 2, 1, 0, nil, time.Now())

	// 2 x 2,000,000 + 1 x 1,400,000
	assert.Equal(t, int64(5400000), quote.Subtotal)
	assert.Equal(t, int64(0), quote.Discount)
	assert.Equal(t, int64(5400000), quote.FinalAmount)
	assert.False(t, quote.PromotionApplied)
	assert.Empty(t, quote.PromotionIssue)
}

func TestComputePrice_PercentagePromotion(t *testing.T) {
	service := NewPricingService()
	tour := testTour()
	schedule := testSchedule(tour.ID)
	now := time.Now()

	promo := &models.Promotion{
		ID:             uuid.New(),
		Code:           "SAVE10",
		DiscountType:   models.DiscountTypePercentage,
		Value:          10,
		MinOrderAmount: 1000000,
		StartDate:      now.Add(-24 * time.Hour),
		EndDate:        now.Add(24 * time.Hour),
		Active:         true,
	}

	quote := service.ComputePrice(tour, schedule, 2, 1, 0, promo, now)

	assert.Equal(t, int64(5400000), quote.Subtotal)
	assert.Equal(t, int64(540000), quote.Discount)
	assert.Equal(t, int64(4860000), quote.FinalAmount)
	assert.True(t, quote.PromotionApplied)
}

func TestComputePrice_ScheduleOverridesTourPrices(t *testing.T) {
	service := NewPricingService()
	tour := testTour()
	schedule := testSchedule(tour.ID)

	adultOverride := int64(2500000)
	childOverride := int64(1800000)
	schedule.AdultPrice = &adultOverride
	schedule.ChildPrice = &childOverride

	quote := service.ComputePrice(tour, schedule, 1, 1, 1, nil, time.Now())

	// Overrides win; infant stays on the tour base price
	assert.Equal(t, int64(4300000), quote.Subtotal)
	assert.Equal(t, int64(4300000), quote.FinalAmount)
}

func TestComputePrice_Deterministic(t *testing.T) {
	service := NewPricingService()
	tour := testTour()
	schedule := testSchedule(tour.ID)
	now := time.Now()

	promo := &models.Promotion{
		Code:         "SAVE10",
		DiscountType: models.DiscountTypePercentage,
		Value:        10,
		StartDate:    now.Add(-time.Hour),
		EndDate:      now.Add(time.Hour),
		Active:       true,
	}

	first := service.ComputePrice(tour, schedule, 2, 1, 0, promo, now)
	for i := 0; i < 10; i++ {
		again := service.ComputePrice(tour, schedule, 2, 1, 0, promo, now)
		require.Equal(t, first, again)
	}
}

func TestComputePrice_RefusedPromotionKeepsFullPrice(t *testing.T) {
	service := NewPricingService()
	tour := testTour()
	schedule := testSchedule(tour.ID)
	now := time.Now()

	promo := &models.Promotion{
		Code:           "BIGSPENDER",
		DiscountType:   models.DiscountTypePercentage,
		Value:          10,
		MinOrderAmount: 10000000,
		StartDate:      now.Add(-time.Hour),
		EndDate:        now.Add(time.Hour),
		Active:         true,
	}

	quote := service.ComputePrice(tour, schedule, 2, 1, 0, promo, now)

	assert.Equal(t, int64(5400000), quote.FinalAmount)
	assert.False(t, quote.PromotionApplied)
	assert.Equal(t, models.PromotionIssueBelowMinimum, quote.PromotionIssue)
}

func TestEvaluateDiscount_TimeWindow(t *testing.T) {
	now := time.Now()
	promo := &models.Promotion{
		Code:         "EARLYBIRD",
		DiscountType: models.DiscountTypeFixedAmount,
		Value:        200000,
		StartDate:    now.Add(time.Hour),
		EndDate:      now.Add(48 * time.Hour),
		Active:       true,
	}

	_, promoErr := EvaluateDiscount(promo, 5000000, now)
	require.NotNil(t, promoErr)
	assert.Equal(t, models.PromotionIssueNotYetValid, promoErr.Issue)

	promo.StartDate = now.Add(-48 * time.Hour)
	promo.EndDate = now.Add(-time.Hour)
	_, promoErr = EvaluateDiscount(promo, 5000000, now)
	require.NotNil(t, promoErr)
	assert.Equal(t, models.PromotionIssueExpired, promoErr.Issue)
}

func TestEvaluateDiscount_UsageExhausted(t *testing.T) {
	now := time.Now()
	limit := 100
	promo := &models.Promotion{
		Code:         "LIMITED",
		DiscountType: models.DiscountTypePercentage,
		Value:        10,
		UsageLimit:   &limit,
		UsedCount:    100,
		StartDate:    now.Add(-time.Hour),
		EndDate:      now.Add(time.Hour),
		Active:       true,
	}

	_, promoErr := EvaluateDiscount(promo, 5000000, now)
	require.NotNil(t, promoErr)
	assert.Equal(t, models.PromotionIssueUsageExceeded, promoErr.Issue)
}

func TestEvaluateDiscount_MaxDiscountCap(t *testing.T) {
	now := time.Now()
	maxDiscount := int64(300000)
	promo := &models.Promotion{
		Code:         "SAVE10",
		DiscountType: models.DiscountTypePercentage,
		Value:        10,
		MaxDiscount:  &maxDiscount,
		StartDate:    now.Add(-time.Hour),
		EndDate:      now.Add(time.Hour),
		Active:       true,
	}

	discount, promoErr := EvaluateDiscount(promo, 5400000, now)
	require.Nil(t, promoErr)
	assert.Equal(t, int64(300000), discount)
}

func TestEvaluateDiscount_NeverExceedsSubtotal(t *testing.T) {
	now := time.Now()
	promo := &models.Promotion{
		Code:         "MEGA",
		DiscountType: models.DiscountTypeFixedAmount,
		Value:        1000000,
		StartDate:    now.Add(-time.Hour),
		EndDate:      now.Add(time.Hour),
		Active:       true,
	}

	discount, promoErr := EvaluateDiscount(promo, 600000, now)
	require.Nil(t, promoErr)
	assert.Equal(t, int64(600000), discount)
}
