package orchestrator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/polybot/internal/clock"
	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
)

const (
	manageAuctionsTitle = "Manage Auctions"
	claimSoldMaxIter    = 50
)

// runClaimSold drives the Claim-Sold (AH) Protocol (spec.md §4.5): it opens
// Manage Auctions, prefers a "Claim All" cauldron slot when present, and
// otherwise clicks each claimable entry individually, guarding against a
// relisted/reopened menu with a processed-set and a hard iteration cap.
func (o *Orchestrator) runClaimSold(ctx context.Context) error {
	return o.runExclusive(ctx, domain.StateClaiming, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

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
				o.report(ctx, "claim_sold_all", nil)
				_ = clock.Sleep(ctx, claimSpacing)
				_ = o.io.CloseContainer(ctx)
				return nil
			}

			claimable := firstClaimable(snap, processed)
			if claimable == nil {
				break
			}
			key := claimable.DisplayName
			processed[key] = true
			item := itemNameFromLore(*claimable)
			price, amount := priceAndAmountFromLore(claimable.Lore)
			if !price.IsZero() {
				o.led.RecordSell(item, price, amount)
			}
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
	})
}

// manageAuctionsSlot is a placeholder with no corpus-grounded index: it
// always returns slot 13. Unlike manageOrdersSlot it does not scan the
// auction-house root menu's display names.
func manageAuctionsSlot() int { return 13 }

// findCauldron reports the "Claim All" affordance, modeled on the server's
// cauldron kind_tag sentinel (spec.md §3 ContainerSnapshot, Glossary).
func findCauldron(snap domain.ContainerSnapshot) *domain.Slot {
	for i := range snap.Slots {
		if snap.Slots[i].Kind == domain.KindCauldron {
			return &snap.Slots[i]
		}
	}
	return nil
}

// claimableKeywords and activeKeywords are spec.md §4.5's full lore
// inclusion/exclusion keyword sets for distinguishing a claimable entry from
// a still-running auction.
var (
	claimableKeywords = []string{"sold", "ended", "expired", "click to claim", "claim your"}
	activeKeywords    = []string{"ends in", "buy it now", "starting bid"}
)

// firstClaimable returns the first not-yet-processed slot whose lore marks
// it claimable, as opposed to an active auction (spec.md §4.5).
func firstClaimable(snap domain.ContainerSnapshot, processed map[string]bool) *domain.Slot {
	for i := range snap.Slots {
		s := &snap.Slots[i]
		if processed[s.DisplayName] {
			continue
		}
		if containsAnyFold(s.Lore, activeKeywords) {
			continue // still active, not claimable
		}
		if containsAnyFold(s.Lore, claimableKeywords) {
			return s
		}
	}
	return nil
}

// containsAnyFold reports whether any line contains any of substrs,
// case-insensitively — the server's lore capitalization ("Sold!" vs. a
// generic "sold") isn't spec-guaranteed, so the keyword match folds case.
func containsAnyFold(lines []string, substrs []string) bool {
	for _, l := range lines {
		lower := strings.ToLower(l)
		for _, sub := range substrs {
			if strings.Contains(lower, sub) {
				return true
			}
		}
	}
	return false
}

// priceAndAmountFromLore extracts the realised sale price from a "Sold
// for: <n> coins" lore line. The stack amount defaults to 1: unlike
// bazaar claims, an AH listing's lore does not carry a separate item
// count distinct from its display name stack size, which this slot
// representation does not expose.
func priceAndAmountFromLore(lore []string) (decimal.Decimal, decimal.Decimal) {
	for _, line := range lore {
		if idx := strings.Index(line, "Sold for:"); idx >= 0 {
			return parseTrailingNumber(line[idx+len("Sold for:"):]), decimal.NewFromInt(1)
		}
	}
	return decimal.Zero, decimal.NewFromInt(1)
}

func parseTrailingNumber(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, " coins")
	s = strings.ReplaceAll(s, ",", "")
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(fields[0]); err == nil {
		return d
	}
	if n, err := strconv.Atoi(fields[0]); err == nil {
		return decimal.NewFromInt(int64(n))
	}
	return decimal.Zero
}
