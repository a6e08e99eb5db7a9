package orchestrator

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/polybot/internal/clock"
	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
)

const sellInventorySpacing = 500 * time.Millisecond

// sellInventory drives the Sell-Inventory Protocol (spec.md §4.6): group
// the player's tradable-commodity stacks by item id, price each group from
// the price client's cached bazaar quotes, claim outstanding filled orders first,
// then place a sell-offer variant of the Place-Order protocol per group at
// 500ms spacing.
func (o *Orchestrator) sellInventory(ctx context.Context) error {
	return o.runExclusive(ctx, domain.StateSellBz, func(ctx context.Context) error {
		groups := groupSellableInventory(o.io.PlayerInventory())
		if len(groups) == 0 {
			return nil
		}

		if err := o.runClaimFilledInline(ctx); err != nil {
			return nil
		}

		for id, count := range groups {
			quote, ok := o.price.Quote(id)
			if !ok {
				continue
			}
			price := quote.SellPrice.Sub(decimal.NewFromFloat(0.1))
			if quote.SellPrice.IsZero() || !quote.SellPrice.IsPositive() {
				price = quote.BuyPrice
			}
			if price.IsZero() || !price.IsPositive() {
				continue
			}
			if err := o.placeOrderVariant(ctx, id, false, int64(count), price, true); err != nil {
				continue
			}
			if err := clock.Sleep(ctx, sellInventorySpacing); err != nil {
				return nil
			}
		}
		return nil
	})
}

// runClaimFilledInline repeats the Claim-Filled navigation without taking
// BotState itself, since sellInventory already holds the exclusive token
// (spec.md §4.6 step 3 runs as part of the same window sequence, not as a
// separately-queued item).
func (o *Orchestrator) runClaimFilledInline(ctx context.Context) error {
	opens, unsub := o.io.SubscribeContainerOpen()
	defer unsub()

	if err := o.io.SendChat(ctx, "/bz"); err != nil {
		return nil
	}
	snap, ok := o.awaitContainer(ctx, opens, "Bazaar")
	if !ok {
		return nil
	}
	if err := o.io.ClickSlot(ctx, manageOrdersSlot(snap), gameio.MouseLeft, gameio.ClickModeNormal); err != nil {
		return nil
	}
	snap, ok = o.awaitContainer(ctx, opens, manageOrdersTitle)
	if !ok {
		return nil
	}
	for _, slot := range snap.Slots {
		if !containsFilled(slot.Lore) {
			continue
		}
		for i := 0; i < maxClaimsPerEntry; i++ {
			if err := o.io.ClickSlot(ctx, slot.Index, gameio.MouseLeft, gameio.ClickModeNormal); err != nil {
				break
			}
			if err := clock.Sleep(ctx, claimSpacing); err != nil {
				break
			}
		}
		o.markSlotClaimed(slot)
	}
	_ = o.io.CloseContainer(ctx)
	return nil
}

// groupSellableInventory groups slots carrying an ExtraAttributes item-db
// id (spec.md §4.6 step 1), adding one per slot: domain.Slot carries no
// stack size, so each count is the number of slots for that id, not the
// number of items. Slot.ItemDBID is this adapter's decoded form of that
// NBT tag.
func groupSellableInventory(slots []domain.Slot) map[string]int {
	groups := make(map[string]int)
	for _, s := range slots {
		if s.ItemDBID == "" {
			continue
		}
		groups[s.ItemDBID]++
	}
	return groups
}

