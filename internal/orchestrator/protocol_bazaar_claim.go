package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/web3guy0/polybot/internal/clock"
	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
	"github.com/web3guy0/polybot/internal/session"
)

const (
	manageOrdersTitle   = "Your Bazaar Orders"
	claimSpacing        = 300 * time.Millisecond
	maxClaimsPerEntry   = 3
)

// runClaimFilled drives the Bazaar Claim-Filled Protocol (spec.md §4.4): it
// opens Manage Orders, clicks every slot whose lore contains "Filled" up to
// three times at ≥300ms spacing, and marks the corresponding open order
// claimed.
func (o *Orchestrator) runClaimFilled(ctx context.Context) error {
	return o.runExclusive(ctx, domain.StateClaiming, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()

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
				if cur, ok := o.io.CurrentContainer(); !ok || cur.Title != manageOrdersTitle {
					break
				}
			}
			o.markSlotClaimed(slot)
		}

		_ = o.io.CloseContainer(ctx)
		return nil
	})
}

// runRefreshCounts re-opens Manage Orders and then stores the open-order
// table's count of open and filled-unclaimed orders in the session's
// OpenOrderCount (spec.md §4.7, S5) — a lightweight, Low-priority
// reconciliation, not a claim or cancel action. The window's slots are not
// read.
func (o *Orchestrator) runRefreshCounts(ctx context.Context) error {
	return o.runExclusive(ctx, domain.StateClaiming, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

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
		if _, ok := o.awaitContainer(ctx, opens, manageOrdersTitle); !ok {
			return nil
		}

		total, buy := o.openOrderCounts()
		o.sess.Update(func(f session.Facts) session.Facts {
			f.OpenOrderCount = total
			return f
		})
		_ = buy

		_ = o.io.CloseContainer(ctx)
		return nil
	})
}

// runInventoryFullRecovery handles "You don't have the space required to
// claim that!" by running the Sell-Inventory protocol to free space before
// anything else resumes (spec.md §4.1 "Critical — inventory-full
// recovery").
func (o *Orchestrator) runInventoryFullRecovery(ctx context.Context) error {
	return o.sellInventory(ctx)
}

func containsFilled(lore []string) bool {
	for _, l := range lore {
		if strings.Contains(l, "Filled") {
			return true
		}
	}
	return false
}

// manageOrdersSlot finds the "Manage Orders" entry point in the top-level
// /bz menu. The teacher corpus has no bazaar-menu layout to ground a slot
// constant on, so this scans by display name rather than hard-coding an
// index, which is more robust to menu-layout drift anyway.
func manageOrdersSlot(snap domain.ContainerSnapshot) int {
	for _, s := range snap.Slots {
		if strings.Contains(s.DisplayName, "Manage Orders") {
			return s.Index
		}
	}
	return 10
}

func (o *Orchestrator) markSlotClaimed(slot domain.Slot) {
	item := orderItemName(slot.DisplayName)
	side := domain.SideBuy
	if containsAny(slot.Lore, "Sell Offer") {
		side = domain.SideSell
	}
	if ord, ok := o.getOrder(item, side); ok {
		ord.State = domain.OrderClaimed
	}
}

// orderItemName strips the "BUY "/"SELL " prefix a Manage Orders entry's
// display name carries (spec.md §4.4) so the result matches the plain
// item name the open-order table is keyed by (domain.Order.ItemName),
// the same prefix-stripping reconcileExistingOrders does before its lookup.
func orderItemName(displayName string) string {
	name := strings.TrimSpace(displayName)
	name = strings.TrimPrefix(name, "BUY ")
	name = strings.TrimPrefix(name, "SELL ")
	return name
}

func itemNameFromLore(slot domain.Slot) string {
	return strings.TrimSpace(slot.DisplayName)
}

func containsAny(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}
