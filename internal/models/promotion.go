package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountType is how a promotion's value is interpreted
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "PERCENTAGE"
	DiscountTypeFixedAmount DiscountType = "FIXED_AMOUNT"
)

// Promotion is read-only to the core except for its usage counter, which is
// incremented with a capacity-guarded update (same discipline as seat holds).
type Promotion struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	Code           string       `db:"code" json:"code"`
	DiscountType   DiscountType `db:"discount_type" json:"discount_type"`
	Value          int64        `db:"value" json:"value"` // percent for PERCENTAGE, VND for FIXED_AMOUNT
	MaxDiscount    *int64       `db:"max_discount" json:"max_discount,omitempty"`
	MinOrderAmount int64        `db:"min_order_amount" json:"min_order_amount"`
	UsageLimit     *int         `db:"usage_limit" json:"usage_limit,omitempty"`
	UsedCount      int          `db:"used_count" json:"used_count"`
	StartDate      time.Time    `db:"start_date" json:"start_date"`
	EndDate        time.Time    `db:"end_date" json:"end_date"`
	Active         bool         `db:"active" json:"active"`
}
