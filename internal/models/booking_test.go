package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateBookingCode(t *testing.T) {
	code := GenerateBookingCode()

	assert.Len(t, code, 12)
	assert.Regexp(t, `^BK[0-9]{10}$`, code)
}

func TestTransactionStatusIsTerminal(t *testing.T) {
	assert.False(t, TransactionStatusInitiated.IsTerminal())
	assert.False(t, TransactionStatusAbandoned.IsTerminal())
	assert.True(t, TransactionStatusSucceeded.IsTerminal())
	assert.True(t, TransactionStatusFailed.IsTerminal())
}

func TestScheduleAvailableSeats(t *testing.T) {
	schedule := &TourSchedule{TotalSeats: 20, HeldSeats: 3, ConfirmedSeats: 5}
	assert.Equal(t, 12, schedule.AvailableSeats())
}

func TestScheduleUnitPrices(t *testing.T) {
	tour := &Tour{AdultPrice: 2000000, ChildPrice: 1400000, InfantPrice: 0}

	schedule := &TourSchedule{}
	adult, child, infant := schedule.UnitPrices(tour)
	assert.Equal(t, int64(2000000), adult)
	assert.Equal(t, int64(1400000), child)
	assert.Equal(t, int64(0), infant)

	adultOverride := int64(2500000)
	schedule.AdultPrice = &adultOverride
	adult, child, _ = schedule.UnitPrices(tour)
	assert.Equal(t, int64(2500000), adult)
	assert.Equal(t, int64(1400000), child)
}
