package orchestrator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
)

const stepWatchdog = 20 * time.Second

// EnqueuePlaceOrder submits a BazaarRecommendation as a Normal-priority
// queue item (spec.md §4.1 "Normal — bazaar place-order"), subject to the
// preconditions in §4.3: not during Startup, cooldown/daily-limit not in
// effect, and the observed order-count ceilings respected.
func (o *Orchestrator) EnqueuePlaceOrder(rec domain.BazaarRecommendation) {
	if !o.cfg.EnableBazaarFlips {
		return
	}
	if s := o.State(); s == domain.StateStartup || s == domain.StateGracePeriod {
		return
	}
	facts := o.sess.Get()
	now := o.clk.Now()
	if now.Before(facts.OrderCooldownUntil) {
		return
	}
	if !rec.IsBuyOrder && now.Before(facts.DailySellLimitUntil) {
		return
	}
	total, buy := o.openOrderCounts()
	if total >= facts.MaxTotalOrders {
		return
	}
	if rec.IsBuyOrder && buy >= facts.MaxBuyOrders {
		return
	}

	o.enqueue("bazaar-place:"+rec.ItemName, domain.PriorityNormal, true, func(ctx context.Context) error {
		return o.runExclusive(ctx, domain.StateTrading, func(ctx context.Context) error {
			return o.placeOrder(ctx, rec.ItemName, rec.IsBuyOrder, rec.Amount, rec.PricePerUnit)
		})
	})
}

// placeOrder drives the Bazaar Place-Order Protocol (spec.md §4.3). When
// skipAmount is set (the Sell-Inventory variant, §4.6 step 4) step 4 is
// skipped entirely, since a sell offer always uses the whole stack.
func (o *Orchestrator) placeOrder(ctx context.Context, itemName string, isBuy bool, amount int64, price decimal.Decimal) error {
	return o.placeOrderVariant(ctx, itemName, isBuy, amount, price, false)
}

func (o *Orchestrator) placeOrderVariant(ctx context.Context, itemName string, isBuy bool, amount int64, price decimal.Decimal, skipAmount bool) error {
	opens, unsub := o.io.SubscribeContainerOpen()
	defer unsub()
	signs, unsignsub := o.io.SubscribeSignOpen()
	defer unsignsub()

	step := func(fn func(ctx context.Context) error) error {
		stepCtx, cancel := context.WithTimeout(ctx, stepWatchdog)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			_ = o.io.CloseContainer(ctx)
			return err
		}
		return nil
	}
	await := func(want string) (domain.ContainerSnapshot, bool) {
		stepCtx, cancel := context.WithTimeout(ctx, stepWatchdog)
		defer cancel()
		return o.awaitContainer(stepCtx, opens, want)
	}

	if err := o.io.SendChat(ctx, "/bz "+itemName); err != nil {
		return nil
	}

	searchSnap, ok := await("Bazaar")
	if !ok {
		return nil
	}
	target := findItemSlot(searchSnap, itemName)
	if err := step(func(ctx context.Context) error {
		return o.io.ClickSlot(ctx, target, gameio.MouseLeft, gameio.ClickModeNormal)
	}); err != nil {
		return nil
	}

	if _, ok := await(""); !ok {
		return nil
	}
	detailSlot := 20
	if isBuy {
		detailSlot = 19
	}
	if err := step(func(ctx context.Context) error {
		return o.io.ClickSlot(ctx, detailSlot, gameio.MouseLeft, gameio.ClickModeNormal)
	}); err != nil {
		return nil
	}

	if isBuy && !skipAmount {
		if _, ok := await("How many"); !ok {
			return nil
		}
		if err := step(func(ctx context.Context) error {
			return o.io.ClickSlot(ctx, 13, gameio.MouseLeft, gameio.ClickModeNormal)
		}); err != nil {
			return nil
		}
		if err := step(func(ctx context.Context) error {
			return o.awaitSignAndWrite(ctx, signs, strconv.FormatInt(amount, 10))
		}); err != nil {
			return nil
		}
	}

	if _, ok := await("How much"); !ok {
		return nil
	}
	if err := step(func(ctx context.Context) error {
		return o.io.ClickSlot(ctx, 13, gameio.MouseLeft, gameio.ClickModeNormal)
	}); err != nil {
		return nil
	}
	if err := step(func(ctx context.Context) error {
		return o.awaitSignAndWrite(ctx, signs, price.StringFixed(1))
	}); err != nil {
		return nil
	}

	if _, ok := await("Confirm"); !ok {
		return nil
	}
	if err := step(func(ctx context.Context) error {
		return o.io.ClickSlot(ctx, 11, gameio.MouseLeft, gameio.ClickModeNormal)
	}); err != nil {
		return nil
	}

	side := domain.SideSell
	if isBuy {
		side = domain.SideBuy
	}
	ord := &domain.Order{
		ID:           itemName + ":" + side.String() + ":" + strconv.FormatInt(o.clk.Now().UnixNano(), 10),
		ItemName:     itemName,
		Side:         side,
		PricePerUnit: price,
		AmountTotal:  decimal.NewFromInt(amount),
		State:        domain.OrderOpen,
		PlacedAt:     o.clk.Now(),
	}
	o.putOrder(ord)
	if isBuy {
		o.led.RecordBuy(itemName, price, decimal.NewFromInt(amount))
	}

	return nil
}

func (o *Orchestrator) awaitSignAndWrite(ctx context.Context, signs <-chan gameio.SignOpenEvent, line string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-signs:
		if !ok {
			return ctx.Err()
		}
		return o.io.WriteSignLine(ctx, line)
	}
}

// findItemSlot locates the search-result slot whose display name contains
// itemName case-insensitively, falling back to slot 11 (spec.md §4.3 step
// 2).
func findItemSlot(snap domain.ContainerSnapshot, itemName string) int {
	want := strings.ToLower(itemName)
	for _, s := range snap.Slots {
		if strings.Contains(strings.ToLower(s.DisplayName), want) {
			return s.Index
		}
	}
	return 11
}
