// Package ledger implements the Profit Ledger: a per-item FIFO of open buy
// lots, matched against sells (or removed on cancel) to produce realised
// Trade records net of a configured tax rate (spec.md §4.8, I5).
package ledger

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/web3guy0/polybot/internal/clock"
	"github.com/web3guy0/polybot/internal/domain"
)

// priceTolerance is the ±0.01 matching band remove_cancelled uses to find
// the buy lot a cancellation refers to (spec.md I5, §4.4).
var priceTolerance = decimal.NewFromFloat(0.01)

type lot struct {
	price    decimal.Decimal
	amount   decimal.Decimal
	placedAt time.Time
}

// Ledger owns one FIFO of open buy lots per item name.
type Ledger struct {
	mu      sync.Mutex
	fifos   map[string][]lot
	trades  []domain.Trade
	taxRate decimal.Decimal
	clock   clock.Clock
	startedAt time.Time
}

// New constructs an empty Ledger. taxRate defaults to 0.0125 if zero
// (spec.md §6 "Observable constants").
func New(taxRate decimal.Decimal, c clock.Clock) *Ledger {
	if taxRate.IsZero() {
		taxRate = decimal.NewFromFloat(0.0125)
	}
	if c == nil {
		c = clock.Real{}
	}
	return &Ledger{
		fifos:     make(map[string][]lot),
		taxRate:   taxRate,
		clock:     c,
		startedAt: c.Now(),
	}
}

// RecordBuy appends a new open lot for item (spec.md §4.8 record_buy, I5
// "only grows on placed-buy").
func (l *Ledger) RecordBuy(item string, price, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fifos[item] = append(l.fifos[item], lot{price: price, amount: amount, placedAt: l.clock.Now()})
}

// RecordSell FIFO-matches amount against item's open buy lots, computing
// profit net of tax, and appends a Trade record (spec.md §4.8 record_sell,
// P4).
func (l *Ledger) RecordSell(item string, sellPrice, amount decimal.Decimal) domain.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := amount
	buyCost := decimal.Zero
	lots := l.fifos[item]
	consumed := 0
	for i := 0; i < len(lots) && remaining.IsPositive(); i++ {
		lt := &lots[i]
		take := lt.amount
		if take.GreaterThan(remaining) {
			take = remaining
		}
		buyCost = buyCost.Add(take.Mul(lt.price))
		lt.amount = lt.amount.Sub(take)
		remaining = remaining.Sub(take)
		if lt.amount.IsZero() {
			consumed = i + 1
		}
	}
	l.fifos[item] = lots[consumed:]

	sellRevenue := amount.Mul(sellPrice)
	tax := sellRevenue.Mul(l.taxRate)
	profit := sellRevenue.Sub(buyCost).Sub(tax)

	trade := domain.Trade{
		ItemName:    item,
		Amount:      amount,
		BuyCost:     buyCost,
		SellRevenue: sellRevenue,
		Profit:      profit,
		ClosedAt:    l.clock.Now(),
	}
	l.trades = append(l.trades, trade)
	return trade
}

// RemoveCancelled removes amount from item's FIFO by matching price within
// ±0.01, oldest-first (spec.md §4.4, I5, P5, P6). Only meaningful for
// cancelled buys — sell cancellations carry no ledger state to unwind.
func (l *Ledger) RemoveCancelled(item string, price, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lots := l.fifos[item]
	remaining := amount
	out := lots[:0:0]
	for _, lt := range lots {
		if remaining.IsPositive() && lt.price.Sub(price).Abs().LessThanOrEqual(priceTolerance) {
			take := lt.amount
			if take.GreaterThan(remaining) {
				take = remaining
			}
			lt.amount = lt.amount.Sub(take)
			remaining = remaining.Sub(take)
		}
		if lt.amount.IsPositive() {
			out = append(out, lt)
		}
	}
	l.fifos[item] = out
}

// Stats returns aggregate realised-profit figures (spec.md §4.8 stats()).
func (l *Ledger) Stats() domain.LedgerStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero
	for _, t := range l.trades {
		total = total.Add(t.Profit)
	}
	count := len(l.trades)
	avg := decimal.Zero
	if count > 0 {
		avg = total.Div(decimal.NewFromInt(int64(count)))
	}

	elapsedHours := decimal.NewFromFloat(l.clock.Now().Sub(l.startedAt).Hours())
	perHour := decimal.Zero
	if elapsedHours.IsPositive() {
		perHour = total.Div(elapsedHours)
	}

	return domain.LedgerStats{
		TotalProfit: total,
		Count:       count,
		Average:     avg,
		PerHour:     perHour,
	}
}

// OpenAmount reports the total un-matched buy amount still open for item,
// used by diagnostics/tests.
func (l *Ledger) OpenAmount(item string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, lt := range l.fifos[item] {
		total = total.Add(lt.amount)
	}
	return total
}
