package services

import (
	"time"

	"github.com/viettravel/booking-backend/internal/models"
)

// PriceQuote is the authoritative price of a booking. A refused promotion
// never fails the quote; the refusal reason travels alongside a zero
// discount so the caller can decide whether to proceed.
type PriceQuote struct {
	Subtotal         int64                 `json:"subtotal"`
	Discount         int64                 `json:"discount"`
	FinalAmount      int64                 `json:"final_amount"`
	PromotionApplied bool                  `json:"promotion_applied"`
	PromotionIssue   models.PromotionIssue `json:"promotion_issue,omitempty"`
}

// PricingService computes booking prices. It performs no I/O: the tour,
// schedule and promotion snapshots are loaded by the caller, and the clock
// is an argument, so equal inputs always produce identical output.
type PricingService struct{}

// NewPricingService creates a pricing service
func NewPricingService() *PricingService {
	return &PricingService{}
}

// ComputePrice prices a party against a schedule. Unit prices come from the
// schedule when it overrides the tour's base fares. A nil promotion means no
// code was supplied; a non-nil one is evaluated and either applied or
// refused with a reason.
func (s *PricingService) ComputePrice(tour *models.Tour, schedule *models.TourSchedule,
	numAdults, numChildren, numInfants int, promotion *models.Promotion, now time.Time) *PriceQuote {

	adultPrice, childPrice, infantPrice := schedule.UnitPrices(tour)

	subtotal := adultPrice*int64(numAdults) +
		childPrice*int64(numChildren) +
		infantPrice*int64(numInfants)

	quote := &PriceQuote{
		Subtotal:    subtotal,
		FinalAmount: subtotal,
	}

	if promotion == nil {
		return quote
	}

	discount, promoErr := EvaluateDiscount(promotion, subtotal, now)
	if promoErr != nil {
		quote.PromotionIssue = promoErr.Issue
		return quote
	}

	quote.Discount = discount
	quote.PromotionApplied = true
	quote.FinalAmount = subtotal - discount
	if quote.FinalAmount < 0 {
		quote.FinalAmount = 0
	}

	return quote
}

// WithoutPromotion re-prices a quote at full fare, keeping the subtotal but
// recording why the promotion was dropped.
func (q *PriceQuote) WithoutPromotion(issue models.PromotionIssue) *PriceQuote {
	return &PriceQuote{
		Subtotal:       q.Subtotal,
		FinalAmount:    q.Subtotal,
		PromotionIssue: issue,
	}
}
