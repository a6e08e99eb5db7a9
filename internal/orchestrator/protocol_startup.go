package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/polybot/internal/clock"
	"github.com/web3guy0/polybot/internal/controllink"
	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
	"github.com/web3guy0/polybot/internal/session"
)

const (
	bazaarCookieProductID = "BOOSTER_COOKIE"
	orderPriceDrift       = 0.02
)

// RunStartupReconcile runs the Startup Reconcile workflow (spec.md §4.9)
// as soon as it is called; it does not check or wait for the session
// having joined the realm. It holds
// BotState = Startup for its entire duration; all recommendations arriving
// during this window are dropped by the enqueue-time precondition checks in
// EnqueueSnipe/EnqueuePlaceOrder, not by anything in this function.
func (o *Orchestrator) RunStartupReconcile(parent context.Context) {
	o.mu.Lock()
	if o.state != domain.StateGracePeriod && o.state != domain.StateIdle {
		o.mu.Unlock()
		return
	}
	o.state = domain.StateStartup
	o.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, 120*time.Second)
	defer cancel()

	o.runStep(ctx, 15*time.Second, o.cookieTopUp)
	o.runStep(ctx, 90*time.Second, o.reconcileExistingOrders)
	o.runStep(ctx, 30*time.Second, func(ctx context.Context) { _ = o.runClaimSoldInline(ctx) })

	o.mu.Lock()
	o.state = domain.StateIdle
	o.mu.Unlock()

	o.report(parent, "startup_reconcile_complete", nil)
	o.sess.Update(func(f session.Facts) session.Facts {
		f.LastReconcileOK = true
		return f
	})

	if o.cfg.EnableBazaarFlips {
		go o.periodicBazaarFlipPull(parent)
	}
	go o.periodicProfitReport(parent)
}

// runStep bounds one reconcile step to its own watchdog; on timeout it logs
// and continues to the next step (spec.md §4.9 "On any step timeout the
// workflow continues to the next step").
func (o *Orchestrator) runStep(ctx context.Context, budget time.Duration, fn func(ctx context.Context)) {
	stepCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	fn(stepCtx)
}

// cookieTopUp implements step 1: if AUTO_COOKIE is configured and the
// player's cookie-remaining time is under that threshold, buy one from the
// bazaar and consume it.
func (o *Orchestrator) cookieTopUp(ctx context.Context) {
	if o.cfg.AutoCookieHours <= 0 {
		return
	}
	if !cookieBelowThreshold(o.io.Scoreboard(), o.cfg.AutoCookieHours) {
		return
	}

	quote, ok := o.price.Quote(bazaarCookieProductID)
	if !ok || quote.BuyPrice.IsZero() || quote.BuyPrice.GreaterThan(o.cfg.CookiePriceCap) {
		return
	}

	_ = o.placeOrderVariant(ctx, "Booster Cookie", true, 1, quote.BuyPrice, false)
	_ = o.io.SendChat(ctx, "/eat booster_cookie")
}

// cookieBelowThreshold scans the scoreboard for a "Cookie:" line and
// compares its remaining hours against thresholdHours. Absence of the line
// means no active cookie, which always falls below any positive threshold.
func cookieBelowThreshold(lines []string, thresholdHours float64) bool {
	for _, l := range lines {
		if strings.Contains(l, "Cookie:") {
			return parseRemainingHours(l) < thresholdHours
		}
	}
	return true
}

func parseRemainingHours(line string) float64 {
	idx := strings.Index(line, "Cookie:")
	if idx < 0 {
		return 0
	}
	rest := strings.TrimSpace(line[idx+len("Cookie:"):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0
	}
	d, err := decimal.NewFromString(strings.TrimRight(fields[0], "hd"))
	if err != nil {
		return 0
	}
	hrs, _ := d.Float64()
	if strings.HasSuffix(fields[0], "d") {
		hrs *= 24
	}
	return hrs
}

// reconcileExistingOrders implements step 2: cancel stale buy orders whose
// recorded price has drifted from the current bazaar price, then re-place
// them at the current price.
func (o *Orchestrator) reconcileExistingOrders(ctx context.Context) {
	opens, unsub := o.io.SubscribeContainerOpen()
	defer unsub()

	if err := o.io.SendChat(ctx, "/bz"); err != nil {
		return
	}
	snap, ok := o.awaitContainer(ctx, opens, "Bazaar")
	if !ok {
		return
	}
	if err := o.io.ClickSlot(ctx, manageOrdersSlot(snap), gameio.MouseLeft, gameio.ClickModeNormal); err != nil {
		return
	}
	snap, ok = o.awaitContainer(ctx, opens, manageOrdersTitle)
	if !ok {
		return
	}

	cancelled, relisted := 0, 0
	for _, slot := range snap.Slots {
		if !strings.HasPrefix(slot.DisplayName, "BUY ") {
			continue
		}
		item := strings.TrimPrefix(slot.DisplayName, "BUY ")
		recordedPrice := priceFromOrderLore(slot.Lore)
		quote, ok := o.price.Quote(item)
		if !ok || recordedPrice.IsZero() {
			continue
		}
		drift := recordedPrice.Sub(quote.BuyPrice).Abs().Div(quote.BuyPrice)
		if drift.LessThanOrEqual(decimal.NewFromFloat(orderPriceDrift)) {
			continue
		}

		o.cancelOrder(ctx, item, domain.SideBuy)
		cancelled++
		if err := clock.Sleep(ctx, claimSpacing); err != nil {
			break
		}
		_ = o.placeOrderVariant(ctx, item, true, 64, quote.BuyPrice, false)
		relisted++
	}

	o.report(ctx, "reconcile_orders", map[string]any{"cancelled": cancelled, "relisted": relisted})
}

func priceFromOrderLore(lore []string) decimal.Decimal {
	for _, l := range lore {
		if idx := strings.Index(l, "Price per unit:"); idx >= 0 {
			return parseTrailingNumber(l[idx+len("Price per unit:"):])
		}
	}
	return decimal.Zero
}

// runClaimSoldInline mirrors runClaimSold's body without taking the
// exclusive token a second time, since Startup Reconcile already holds
// BotState = Startup for its full duration (spec.md §4.9 step 3).
func (o *Orchestrator) runClaimSoldInline(ctx context.Context) error {
	opens, unsub := o.io.SubscribeContainerOpen()
	defer unsub()

	if err := o.io.SendChat(ctx, "/ah"); err != nil {
		return nil
	}
	if _, ok := o.awaitContainer(ctx, opens, "Auction House"); !ok {
		return nil
	}
	if err := o.io.ClickSlot(ctx, manageAuctionsSlot(), gameio.MouseLeft, gameio.ClickModeNormal); err != nil {
		return nil
	}
	snap, ok := o.awaitContainer(ctx, opens, manageAuctionsTitle)
	if !ok {
		return nil
	}

	processed := make(map[string]bool)
	for iter := 0; iter < claimSoldMaxIter; iter++ {
		if cauldron := findCauldron(snap); cauldron != nil {
			_ = o.io.ClickSlot(ctx, cauldron.Index, gameio.MouseLeft, gameio.ClickModeNormal)
			break
		}
		claimable := firstClaimable(snap, processed)
		if claimable == nil {
			break
		}
		processed[claimable.DisplayName] = true
		_ = o.io.ClickSlot(ctx, claimable.Index, gameio.MouseLeft, gameio.ClickModeNormal)
		if err := clock.Sleep(ctx, claimSpacing); err != nil {
			break
		}
		cur, ok := o.io.CurrentContainer()
		if !ok || cur.Title != manageAuctionsTitle {
			break
		}
		snap = cur
	}

	_ = o.io.CloseContainer(ctx)
	return nil
}

// periodicBazaarFlipPull sends the "getbazaarflips" request on the
// configured interval (spec.md §6 "explicit requests... every 5 min").
func (o *Orchestrator) periodicBazaarFlipPull(ctx context.Context) {
	req := controllink.Envelope{Type: controllink.EventGetBazaarFlips, Data: json.RawMessage(`""`)}
	o.link.Send(req)
	ticker := time.NewTicker(o.cfg.BazaarRefreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.link.Send(req)
		}
	}
}

// periodicProfitReport pushes a Profit Ledger stats snapshot over the
// webhook collaborator every ProfitReportPeriod (spec.md §4.8).
func (o *Orchestrator) periodicProfitReport(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.ProfitReportPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := o.led.Stats()
			if o.rep != nil {
				o.rep.Post(ctx, stats)
			}
			if o.notif != nil {
				o.notif.NotifyProfitSummary(stats)
			}
		}
	}
}
