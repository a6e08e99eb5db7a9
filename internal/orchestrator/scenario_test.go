package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
)

func sentChatContains(io *gameio.Fake, line string) bool {
	for _, l := range io.SentChat {
		if l == line {
			return true
		}
	}
	return false
}

func clickedSlot(io *gameio.Fake, slot int) bool {
	for _, c := range io.Clicks {
		if c.Slot == slot {
			return true
		}
	}
	return false
}

// TestScenario_AHSnipeHappyPath covers S1: a queued AuctionSnipe opens the
// BIN Auction View, writes the fast-path confirm transaction, and — when
// slot 31 already carries the gold-block "already purchased" tag — clicks
// through to completion and releases BotState back to Idle (spec.md §4.2
// steps 3-4).
func TestScenario_AHSnipeHappyPath(t *testing.T) {
	o, io, q := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		q.RunLoop(ctx)
		close(done)
	}()

	snipe := domain.AuctionSnipe{
		AuctionID:       "abc-123",
		ItemName:        "Hyperion",
		StartingBid:     decimal.NewFromInt(100_000_000),
		TargetSellPrice: decimal.NewFromInt(200_000_000),
	}
	o.EnqueueSnipe(snipe)

	require.Eventually(t, func() bool {
		return sentChatContains(io, "/viewauction abc-123")
	}, time.Second, time.Millisecond)

	io.OpenContainer(domain.ContainerSnapshot{
		WindowID: 7,
		Title:    binAuctionViewTitle,
		Slots:    []domain.Slot{{Index: 31, Kind: domain.KindGoldBlock}},
	})

	require.Eventually(t, func() bool {
		return o.State() == domain.StateIdle
	}, time.Second, time.Millisecond)

	require.Len(t, io.Transactions, 1)
	assert.Equal(t, gameio.FakeTransaction{WindowID: 7, ActionCounter: 0, Accepted: true}, io.Transactions[0])
	assert.True(t, clickedSlot(io, 31), "expected the gold-block purchase click on slot 31")

	cancel()
	<-done
}

// TestScenario_ClaimSoldLoop covers S2: the Claim-Sold protocol opens
// Manage Auctions, claims the one entry whose lore marks it sold, skips the
// entry whose lore marks it still running, and stops once nothing more is
// claimable (spec.md §4.5).
func TestScenario_ClaimSoldLoop(t *testing.T) {
	o, io, q := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		q.RunLoop(ctx)
		close(done)
	}()

	o.EnqueueClaimSold()

	require.Eventually(t, func() bool {
		return sentChatContains(io, "/ah")
	}, time.Second, time.Millisecond)

	io.OpenContainer(domain.ContainerSnapshot{
		WindowID: 3,
		Title:    "Auction House",
		Slots:    []domain.Slot{{Index: manageAuctionsSlot(), DisplayName: "Manage Auctions"}},
	})

	require.Eventually(t, func() bool {
		return clickedSlot(io, manageAuctionsSlot())
	}, time.Second, time.Millisecond)

	io.OpenContainer(domain.ContainerSnapshot{
		WindowID: 3,
		Title:    manageAuctionsTitle,
		Slots: []domain.Slot{
			{Index: 1, DisplayName: "Hyperion", Lore: []string{"Sold for: 500,000 coins", "Sold!"}},
			{Index: 2, DisplayName: "Aspect of the End", Lore: []string{"Ends in: 3h", "Current Bid: 10,000 coins"}},
		},
	})

	require.Eventually(t, func() bool {
		return o.State() == domain.StateIdle
	}, time.Second, time.Millisecond)

	assert.True(t, clickedSlot(io, 1), "expected the sold Hyperion entry to be claimed")
	assert.False(t, clickedSlot(io, 2), "the still-running auction must not be clicked")

	stats := o.led.Stats()
	assert.Equal(t, 1, stats.Count)
	assert.True(t, stats.TotalProfit.IsPositive(), "expected a positive realised profit from the sold-for amount")

	cancel()
	<-done
}
