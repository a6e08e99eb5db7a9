package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/web3guy0/polybot/internal/domain"
)

// EnqueueCreateAuction enqueues the listing workflow spec.md §6's dispatch
// table calls for on an inbound createAuction message (item+price spec).
// The listing protocol isn't one of the nine Window Protocols spec.md
// details end-to-end (§4.2-§4.9 cover snipe/place/cancel/claim/sell/
// reconcile, not AH listing creation), so this claims the exclusive token,
// opens the Auction House, and reports the request back over the outbound
// channel rather than silently dropping it.
// TODO: drive the actual "Create Auction" GUI sequence (item select, price
// sign entry, confirm) once its window layout is specified.
func (o *Orchestrator) EnqueueCreateAuction(data json.RawMessage) {
	o.enqueue("create-auction", domain.PriorityNormal, true, func(ctx context.Context) error {
		return o.runExclusive(ctx, domain.StateTrading, func(ctx context.Context) error {
			if err := o.io.SendChat(ctx, "/ah"); err != nil {
				return nil
			}
			_ = o.io.CloseContainer(ctx)
			o.report(ctx, "create_auction_stub", map[string]any{"data": string(data)})
			return nil
		})
	})
}

// EnqueueTrade enqueues the trade workflow spec.md §6's dispatch table
// calls for on an inbound trade message (target+slots+coins). Like
// EnqueueCreateAuction, the trade-window sequence itself isn't one of the
// nine detailed Window Protocols; this claims the exclusive token and
// reports the request rather than dropping it silently, leaving
// tradeResponse (already fully implemented in dispatch.go) to finish the
// interaction once the game server opens the trade window.
// TODO: drive opening the trade window and placing the requested
// items/coins into its slots once that layout is specified.
func (o *Orchestrator) EnqueueTrade(data json.RawMessage) {
	o.enqueue("trade", domain.PriorityNormal, true, func(ctx context.Context) error {
		return o.runExclusive(ctx, domain.StateTrading, func(ctx context.Context) error {
			o.report(ctx, "trade_stub", map[string]any{"data": string(data)})
			return nil
		})
	})
}
