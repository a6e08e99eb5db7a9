package eventrouter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/polybot/internal/ledger"
	"github.com/web3guy0/polybot/internal/session"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

type fakeSink struct {
	mu               sync.Mutex
	refreshCount     int
	claimFilledCount int
	claimSoldCount   int
	invFullCount     int
	abortReasons     []string
	fills            []string
	purchases        []string
}

func (f *fakeSink) ReportEscrow()                                  {}
func (f *fakeSink) ReportPurchaseSuccess(item string, p decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchases = append(f.purchases, item)
}
func (f *fakeSink) AbortSnipe(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abortReasons = append(f.abortReasons, reason)
}
func (f *fakeSink) EnqueueClaimSold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimSoldCount++
}
func (f *fakeSink) EnqueueClaimFilled() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimFilledCount++
}
func (f *fakeSink) EnqueueInventoryFullRecovery() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invFullCount++
}
func (f *fakeSink) EnqueueRefreshCounts() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCount++
}
func (f *fakeSink) MarkOrderFilled(item, side string, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fills = append(f.fills, item+":"+side)
}

// TestOrderLimitOrdering verifies P8: a buy-orders limit line updates only
// MaxBuyOrders and leaves MaxTotalOrders at its default.
func TestOrderLimitOrdering(t *testing.T) {
	sink := &fakeSink{}
	store := session.New()
	r := New(sink, store, ledger.New(decimal.Zero, fixedClock{}), fixedClock{})

	r.Handle(context.Background(), "You may only have 7 buy orders open at once!")

	facts := store.Get()
	assert.Equal(t, 7, facts.MaxBuyOrders)
	assert.Equal(t, 14, facts.MaxTotalOrders) // unchanged from default
}

// TestOrderLimitDebounce verifies S5: repeated observations within the 2s
// window enqueue exactly one refresh.
func TestOrderLimitDebounce(t *testing.T) {
	sink := &fakeSink{}
	store := session.New()
	r := New(sink, store, ledger.New(decimal.Zero, fixedClock{}), fixedClock{})

	r.Handle(context.Background(), "You may only have 7 buy orders open at once!")
	time.Sleep(500 * time.Millisecond)
	r.Handle(context.Background(), "You may only have 7 buy orders open at once!")

	time.Sleep(2500 * time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 1, sink.refreshCount)
}

func TestBazaarFillDispatchesClaim(t *testing.T) {
	sink := &fakeSink{}
	store := session.New()
	r := New(sink, store, ledger.New(decimal.Zero, fixedClock{}), fixedClock{})

	r.Handle(context.Background(), "[Bazaar] Your Buy Order for 64x Coal was filled!")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.fills, 1)
	assert.Equal(t, "Coal:buy", sink.fills[0])
	assert.Equal(t, 1, sink.claimFilledCount)
}

func TestBazaarSellClaimRecordsLedgerTrade(t *testing.T) {
	sink := &fakeSink{}
	store := session.New()
	led := ledger.New(decimal.Zero, fixedClock{})
	r := New(sink, store, led, fixedClock{})

	led.RecordBuy("COAL", decimal.NewFromInt(5), decimal.NewFromInt(64))
	r.Handle(context.Background(), "[Bazaar] Claimed 64x COAL you sold for 384")

	assert.True(t, led.OpenAmount("COAL").IsZero())
}
