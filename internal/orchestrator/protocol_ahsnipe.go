package orchestrator

import (
	"context"
	"time"

	"github.com/web3guy0/polybot/internal/clock"
	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
)

const (
	binAuctionViewTitle  = "BIN Auction View"
	confirmPurchaseTitle = "Confirm Purchase"
	auctionViewTitle     = "Auction View"
)

// EnqueueSnipe submits an AuctionSnipe as a Normal-priority, preemptible
// queue item (spec.md §4.1 "Normal — AH snipes", §6 inbound "flip").
// Recommendations are dropped, not queued, while BotState is Startup or
// GracePeriod (spec.md I4).
func (o *Orchestrator) EnqueueSnipe(snipe domain.AuctionSnipe) {
	if s := o.State(); s == domain.StateStartup || s == domain.StateGracePeriod {
		return
	}
	if !o.cfg.EnableAHFlips {
		return
	}
	o.enqueue("ah-snipe:"+snipe.ItemName, domain.PriorityNormal, true, func(ctx context.Context) error {
		return o.runExclusive(ctx, domain.StatePurchasing, func(ctx context.Context) error {
			return o.runAHSnipe(ctx, snipe)
		})
	})
}

// skipPolicyMatches implements spec.md §4.2's skip policy disjunction.
func (o *Orchestrator) skipPolicyMatches(snipe domain.AuctionSnipe) bool {
	p := o.cfg.Skip
	if p.Always {
		return true
	}
	if p.MinProfitEnabled && snipe.Profit().GreaterThanOrEqual(p.MinProfit) {
		return true
	}
	if p.UserFinder && snipe.FinderTag == "USER" {
		return true
	}
	if p.Skins && isSkinName(snipe.ItemName) {
		return true
	}
	if p.ProfitPercentage && snipe.ProfitPercentage.GreaterThanOrEqual(p.ProfitPctThresh) {
		return true
	}
	if p.MinPriceEnabled && snipe.StartingBid.GreaterThanOrEqual(p.MinPrice) {
		return true
	}
	return false
}

func isSkinName(itemName string) bool {
	return len(itemName) > 0 && itemName[len(itemName)-1] == ')'
}

// runAHSnipe drives the AH Snipe Window Protocol (spec.md §4.2). It owns
// exactly one container-open listener, installed at entry and removed on
// every exit path (spec.md I3).
func (o *Orchestrator) runAHSnipe(ctx context.Context, snipe domain.AuctionSnipe) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	useSkip := o.skipPolicyMatches(snipe)

	opens, unsub := o.io.SubscribeContainerOpen()
	defer unsub()

	o.purchaseMu.Lock()
	o.currentSnipe = &snipe
	o.purchaseMu.Unlock()

	if err := o.io.SendChat(ctx, "/viewauction "+snipe.AuctionID); err != nil {
		return nil //nolint: protocol failures are neutral outcomes, spec.md §7
	}

	sawBinWindow := false

	for {
		select {
		case <-ctx.Done():
			o.closeAndReport(ctx, "ah_snipe_timeout")
			return nil
		case ev, ok := <-opens:
			if !ok {
				return nil
			}
			switch {
			case !sawBinWindow && ev.Title == binAuctionViewTitle:
				sawBinWindow = true
				o.purchaseMu.Lock()
				o.purchaseStart = o.clk.Now()
				o.purchaseMu.Unlock()
				_ = o.io.WriteTransaction(ctx, ev.WindowID, 0, true)
				if done := o.handleBinWindow(ctx, ev, useSkip); done {
					return nil
				}

			case ev.Title == confirmPurchaseTitle:
				if o.handleConfirmWindow(ctx, ev, useSkip) {
					return nil
				}

			case ev.Title == auctionViewTitle:
				// non-BIN auction: only BIN is supported (spec.md §4.2 step 7)
				_ = o.io.CloseContainer(ctx)
				return nil
			}
		}
	}
}

// handleBinWindow dispatches on slot 31's kind_tag (spec.md §4.2 step 4).
// Returns true if the protocol is done (should return from runAHSnipe).
func (o *Orchestrator) handleBinWindow(ctx context.Context, ev gameio.ContainerOpenEvent, useSkip bool) bool {
	kind := pollSlot31(ctx, o.io, ev.WindowID, 100*time.Millisecond)

	switch kind {
	case domain.KindGoldNugget:
		_ = o.io.WriteWindowClick(ctx, ev.WindowID, 31, gameio.MouseMiddle, gameio.ClickModeMiddle)
		_ = o.io.ClickSlot(ctx, 31, gameio.MouseLeft, gameio.ClickModeNormal)
		if useSkip {
			nextWindow := ev.WindowID + 1
			if ev.WindowID == 100 {
				nextWindow = 1
			}
			_ = o.io.WriteWindowClick(ctx, nextWindow, 11, gameio.MouseLeft, gameio.ClickModeNormal)
		}
		return false

	case domain.KindBed:
		o.bedSpam(ctx, ev.WindowID)
		return false

	case domain.KindPotato:
		_ = o.io.CloseContainer(ctx)
		o.report(ctx, "snipe_potatoed", map[string]any{"auction_id": o.currentSnipeID()})
		return true

	case domain.KindFeather:
		kind2 := pollSlot31(ctx, o.io, ev.WindowID, 50*time.Millisecond)
		if kind2 != domain.KindGoldBlock && kind2 != domain.KindGoldNugget {
			_ = o.io.CloseContainer(ctx)
			return true
		}
		kind = kind2
		if kind == domain.KindGoldBlock {
			_ = o.io.ClickSlot(ctx, 31, gameio.MouseLeft, gameio.ClickModeNormal)
			return true
		}
		return false

	case domain.KindGoldBlock:
		_ = o.io.ClickSlot(ctx, 31, gameio.MouseLeft, gameio.ClickModeNormal)
		return true

	case domain.KindPoisonousPotato:
		_ = o.io.CloseContainer(ctx)
		return true

	default:
		_ = o.io.CloseContainer(ctx)
		return true
	}
}

// handleConfirmWindow drives the confirm-click retry loop (spec.md §4.2
// step 5), bounded to 5s. Returns true if the protocol is done.
func (o *Orchestrator) handleConfirmWindow(ctx context.Context, ev gameio.ContainerOpenEvent, useSkip bool) bool {
	deadline := o.clk.Now().Add(5 * time.Second)
	if !useSkip {
		_ = o.io.ClickSlot(ctx, 11, gameio.MouseLeft, gameio.ClickModeNormal)
	}
	for {
		cur, ok := o.io.CurrentContainer()
		if !ok || cur.Title != confirmPurchaseTitle {
			return false
		}
		if o.clk.Now().After(deadline) {
			return false
		}
		_ = o.io.ClickSlot(ctx, 11, gameio.MouseLeft, gameio.ClickModeNormal)
		if err := clock.Sleep(ctx, 10*time.Millisecond); err != nil {
			return true
		}
	}
}

// bedSpam handles the timed-auction bed-spam branch of step 4.
func (o *Orchestrator) bedSpam(ctx context.Context, windowID int) {
	if !o.cfg.BedSpam {
		return
	}
	misses := 0
	for misses < 5 {
		cur, ok := o.io.CurrentContainer()
		if !ok || cur.WindowID != windowID {
			return
		}
		kind := slotKind(cur, 31)
		if kind == domain.KindGoldNugget {
			_ = o.io.ClickSlot(ctx, 31, gameio.MouseLeft, gameio.ClickModeNormal)
			misses = 0
		} else {
			misses++
		}
		if err := clock.Sleep(ctx, o.cfg.BedSpamDelay); err != nil {
			return
		}
	}
}

func pollSlot31(ctx context.Context, io gameio.GameIO, windowID int, budget time.Duration) domain.KindTag {
	deadline := time.Now().Add(budget)
	for {
		if cur, ok := io.CurrentContainer(); ok && cur.WindowID == windowID {
			if k := slotKind(cur, 31); k != "" && k != domain.KindUnknown {
				return k
			}
		}
		if time.Now().After(deadline) {
			if cur, ok := io.CurrentContainer(); ok && cur.WindowID == windowID {
				return slotKind(cur, 31)
			}
			return domain.KindUnknown
		}
		if err := clock.Sleep(ctx, time.Millisecond); err != nil {
			return domain.KindUnknown
		}
	}
}

func slotKind(snap domain.ContainerSnapshot, index int) domain.KindTag {
	for _, s := range snap.Slots {
		if s.Index == index {
			return s.Kind
		}
	}
	return domain.KindUnknown
}

func (o *Orchestrator) closeAndReport(ctx context.Context, kind string) {
	_ = o.io.CloseContainer(ctx)
	o.report(ctx, kind, nil)
}

func (o *Orchestrator) currentSnipeID() string {
	o.purchaseMu.Lock()
	defer o.purchaseMu.Unlock()
	if o.currentSnipe == nil {
		return ""
	}
	return o.currentSnipe.AuctionID
}
