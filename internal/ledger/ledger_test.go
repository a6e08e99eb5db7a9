package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

func TestRecordSell_ComputesProfitNetOfTax(t *testing.T) {
	l := New(decimal.NewFromFloat(0.0125), fixedClock{now: time.Unix(0, 0)})
	l.RecordBuy("COAL", decimal.NewFromInt(5), decimal.NewFromInt(64))

	trade := l.RecordSell("COAL", decimal.NewFromInt(6), decimal.NewFromInt(64))

	// P4 / S3: 64*6 - 64*5 - 64*6*0.0125 = 384 - 320 - 4.8 = 59.2
	require.True(t, trade.Profit.Equal(decimal.NewFromFloat(59.2)), "got %s", trade.Profit)
}

func TestRemoveCancelled_EmptiesFIFO(t *testing.T) {
	l := New(decimal.Zero, fixedClock{now: time.Unix(0, 0)})
	l.RecordBuy("COAL", decimal.NewFromInt(5), decimal.NewFromInt(64))

	l.RemoveCancelled("COAL", decimal.NewFromInt(5), decimal.NewFromInt(64))

	assert.True(t, l.OpenAmount("COAL").IsZero())
}

func TestRemoveCancelled_LeavesRemainder(t *testing.T) {
	l := New(decimal.Zero, fixedClock{now: time.Unix(0, 0)})
	l.RecordBuy("COAL", decimal.NewFromInt(5), decimal.NewFromInt(64))
	l.RecordBuy("COAL", decimal.NewFromInt(5), decimal.NewFromInt(32))

	l.RemoveCancelled("COAL", decimal.NewFromInt(5), decimal.NewFromInt(64))

	assert.True(t, l.OpenAmount("COAL").Equal(decimal.NewFromInt(32)))
}

func TestRemoveCancelled_PriceTolerance(t *testing.T) {
	l := New(decimal.Zero, fixedClock{now: time.Unix(0, 0)})
	l.RecordBuy("COAL", decimal.NewFromFloat(5.005), decimal.NewFromInt(10))

	l.RemoveCancelled("COAL", decimal.NewFromInt(5), decimal.NewFromInt(10))

	assert.True(t, l.OpenAmount("COAL").IsZero())
}

func TestRecordSell_PartialFIFOMatch(t *testing.T) {
	l := New(decimal.Zero, fixedClock{now: time.Unix(0, 0)})
	l.RecordBuy("COAL", decimal.NewFromInt(5), decimal.NewFromInt(10))
	l.RecordBuy("COAL", decimal.NewFromInt(6), decimal.NewFromInt(10))

	trade := l.RecordSell("COAL", decimal.NewFromInt(7), decimal.NewFromInt(15))

	// buy cost: 10@5 + 5@6 = 50 + 30 = 80; revenue: 15@7 = 105; a zero
	// tax rate falls back to the 0.0125 default, so tax = 1.3125
	require.True(t, trade.BuyCost.Equal(decimal.NewFromInt(80)))
	require.True(t, trade.Profit.Equal(decimal.RequireFromString("23.6875")), "got %s", trade.Profit)
	assert.True(t, l.OpenAmount("COAL").Equal(decimal.NewFromInt(5)))
}
