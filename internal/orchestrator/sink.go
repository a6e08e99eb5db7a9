package orchestrator

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/polybot/internal/domain"
)

// The methods below implement eventrouter.Sink, dispatching the Event
// Router's classified chat effects back into the orchestrator (spec.md
// §4.7).

// ReportEscrow handles the "Putting coins in escrow..." line: it marks the
// running AH snipe successful and reports elapsed purchase latency, computed
// from the Purchasing-start timestamp runAHSnipe stamps into purchaseStart
// when the first BIN Auction View window opens (spec.md §4.2 step 6, §4.7
// "Compute buy-latency from the Purchasing start").
func (o *Orchestrator) ReportEscrow() {
	o.purchaseMu.Lock()
	start := o.purchaseStart
	snipe := o.currentSnipe
	o.purchaseStart = time.Time{}
	o.currentSnipe = nil
	o.purchaseMu.Unlock()

	elapsed := time.Duration(0)
	if !start.IsZero() {
		elapsed = o.clk.Now().Sub(start)
	}
	var auctionID string
	if snipe != nil {
		auctionID = snipe.AuctionID
	}
	o.report(context.Background(), "snipe_escrow", map[string]any{
		"auction_id": auctionID,
		"elapsed_ms": elapsed.Milliseconds(),
	})
}

// ReportPurchaseSuccess handles "You purchased <item> for <price> coins",
// forwarding a webhook report and scheduling a Claim-Sold soon after
// (spec.md §4.7).
func (o *Orchestrator) ReportPurchaseSuccess(itemName string, price decimal.Decimal) {
	o.report(context.Background(), "purchase_success", map[string]any{
		"item_name": itemName,
		"price":     price.String(),
	})
	o.EnqueueClaimSold()
}

// AbortSnipe clears the in-flight snipe bookkeeping and reports the abort
// (spec.md §4.2 step 7, §7 "Protocol Desync"). It does not stop a running
// AH Snipe protocol: runAHSnipe does not watch chat, and ends only on its
// own container events or its 10s timeout.
func (o *Orchestrator) AbortSnipe(reason string) {
	o.purchaseMu.Lock()
	o.purchaseStart = time.Time{}
	o.currentSnipe = nil
	o.purchaseMu.Unlock()
	o.report(context.Background(), "snipe_aborted", map[string]any{"reason": reason})
}

// EnqueueClaimSold enqueues the Claim-Sold protocol at High priority
// (spec.md §4.1 "High — claim-sold, claim-filled").
func (o *Orchestrator) EnqueueClaimSold() {
	o.enqueue("claim-sold", domain.PriorityHigh, true, o.runClaimSold)
}

// EnqueueClaimFilled enqueues the Claim-Filled protocol at High priority.
func (o *Orchestrator) EnqueueClaimFilled() {
	o.enqueue("claim-filled", domain.PriorityHigh, true, o.runClaimFilled)
}

// EnqueueInventoryFullRecovery enqueues recovery at Critical priority
// (spec.md §4.1 "Critical — startup reconciliation, inventory-full
// recovery").
func (o *Orchestrator) EnqueueInventoryFullRecovery() {
	o.enqueue("inventory-full-recovery", domain.PriorityCritical, false, o.runInventoryFullRecovery)
}

// EnqueueRefreshCounts enqueues a Low-priority refresh of the open-order
// counts, following the debounced order-limit observation (spec.md §4.7,
// S5).
func (o *Orchestrator) EnqueueRefreshCounts() {
	o.enqueue("refresh-counts", domain.PriorityLow, true, o.runRefreshCounts)
}

// MarkOrderFilled transitions an open order to filled_unclaimed on the
// matching bazaar fill chat line (spec.md §4.7 "mark buy order claimed").
func (o *Orchestrator) MarkOrderFilled(itemName string, side string, amount int64) {
	orderSide := domain.SideBuy
	if side == "sell" {
		orderSide = domain.SideSell
	}
	if ord, ok := o.getOrder(itemName, orderSide); ok {
		ord.State = domain.OrderFilledUnclaimed
	}
}
