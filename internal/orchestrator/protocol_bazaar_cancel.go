package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
)

// EnqueueCancel submits a cancellation for the open order on (item, side)
// at High priority, matching the urgency of the other order-table-mutating
// protocols (spec.md §4.4 "Cancel").
func (o *Orchestrator) EnqueueCancel(itemName string, side domain.OrderSide) {
	o.enqueue("bazaar-cancel:"+itemName, domain.PriorityHigh, true, func(ctx context.Context) error {
		return o.runExclusive(ctx, domain.StateClaiming, func(ctx context.Context) error {
			return o.cancelOrder(ctx, itemName, side)
		})
	})
}

// cancelOrder drives the cancel half of §4.4: navigate to Manage Orders,
// open the matching entry's detail, click Cancel Order, then remove the
// cancelled amount from the Profit Ledger FIFO (buys only, I5).
func (o *Orchestrator) cancelOrder(ctx context.Context, itemName string, side domain.OrderSide) error {
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

	prefix := "SELL "
	if side == domain.SideBuy {
		prefix = "BUY "
	}
	var entry *domain.Slot
	for i := range snap.Slots {
		s := &snap.Slots[i]
		if strings.HasPrefix(s.DisplayName, prefix) && strings.Contains(s.DisplayName, itemName) {
			entry = s
			break
		}
	}
	if entry == nil {
		_ = o.io.CloseContainer(ctx)
		return nil
	}

	if err := o.io.ClickSlot(ctx, entry.Index, gameio.MouseLeft, gameio.ClickModeNormal); err != nil {
		return nil
	}
	detail, ok := o.awaitContainer(ctx, opens, "")
	if !ok {
		return nil
	}
	cancelSlot := findCancelSlot(detail)
	if err := o.io.ClickSlot(ctx, cancelSlot, gameio.MouseLeft, gameio.ClickModeNormal); err != nil {
		return nil
	}

	ord, found := o.getOrder(itemName, side)
	if found && side == domain.SideBuy {
		o.led.RemoveCancelled(itemName, ord.PricePerUnit, ord.AmountTotal.Sub(ord.AmountFilled))
	}
	if found {
		ord.State = domain.OrderCancelled
	}

	_ = o.io.CloseContainer(ctx)
	return nil
}

func findCancelSlot(snap domain.ContainerSnapshot) int {
	for _, s := range snap.Slots {
		if strings.Contains(s.DisplayName, "Cancel Order") {
			return s.Index
		}
	}
	return 11
}
