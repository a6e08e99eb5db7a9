// Package domain holds the data types shared across the orchestrator, event
// router, ledger, and control-link packages (spec.md §3).
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BotState is the mutual-exclusion token for GUI-window operations
// (spec.md §3 BotState). Only one non-idle state is active at a time.
type BotState int

const (
	StateGracePeriod BotState = iota
	StateStartup
	StatePurchasing
	StateClaiming
	StateSellBz
	StateTrading
	StateIdle
)

func (s BotState) String() string {
	switch s {
	case StateGracePeriod:
		return "GracePeriod"
	case StateStartup:
		return "Startup"
	case StatePurchasing:
		return "Purchasing"
	case StateClaiming:
		return "Claiming"
	case StateSellBz:
		return "SellBz"
	case StateTrading:
		return "Trading"
	case StateIdle:
		return "Idle"
	default:
		return "Unknown"
	}
}

// Priority orders QueueItems; Critical preempts everything interruptible.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "Critical"
	case PriorityHigh:
		return "High"
	case PriorityNormal:
		return "Normal"
	case PriorityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// AuctionSnipe is an inbound recommendation to buy a specific BIN auction
// listing (spec.md §3 AuctionSnipe).
type AuctionSnipe struct {
	AuctionID         string
	ItemName          string
	StartingBid       decimal.Decimal
	TargetSellPrice   decimal.Decimal
	FinderTag         string
	ProfitPercentage  decimal.Decimal
	PurchaseAt        time.Time
}

// Profit returns target - starting bid (spec.md §3).
func (a AuctionSnipe) Profit() decimal.Decimal {
	return a.TargetSellPrice.Sub(a.StartingBid)
}

// OrderSide distinguishes bazaar buy and sell orders.
type OrderSide int

const (
	SideBuy OrderSide = iota
	SideSell
)

func (s OrderSide) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// BazaarRecommendation is an inbound recommendation to place a bazaar order
// (spec.md §3 BazaarRecommendation). Decoding happens in
// internal/controllink, which accepts the field-name pairs listed on its
// bazaarWire type, and always produces this type.
type BazaarRecommendation struct {
	ItemName    string
	Amount      int64
	PricePerUnit decimal.Decimal
	IsBuyOrder  bool
}

// OrderState is the lifecycle of a placed bazaar Order (spec.md §3).
type OrderState int

const (
	OrderOpen OrderState = iota
	OrderFilledUnclaimed
	OrderClaimed
	OrderCancelled
)

func (s OrderState) String() string {
	switch s {
	case OrderOpen:
		return "open"
	case OrderFilledUnclaimed:
		return "filled_unclaimed"
	case OrderClaimed:
		return "claimed"
	case OrderCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Order is a placed bazaar buy or sell order, owned by the Orchestrator
// (spec.md §3 Order).
type Order struct {
	ID            string
	ItemName      string
	Side          OrderSide
	PricePerUnit  decimal.Decimal
	AmountTotal   decimal.Decimal
	AmountFilled  decimal.Decimal
	State         OrderState
	PlacedAt      time.Time
}

// KindTag is the server's sentinel tag carried by an AH item slot
// (spec.md §3 ContainerSnapshot, Glossary "Potato").
type KindTag string

const (
	KindGoldNugget         KindTag = "gold_nugget"
	KindBed                KindTag = "bed"
	KindPotato             KindTag = "potato"
	KindFeather            KindTag = "feather"
	KindGoldBlock          KindTag = "gold_block"
	KindPoisonousPotato    KindTag = "poisonous_potato"
	KindStainedGlassPane   KindTag = "stained_glass_pane"
	KindCookie             KindTag = "cookie"
	KindCauldron           KindTag = "cauldron"
	KindAir                KindTag = "air"
	KindUnknown            KindTag = "unknown"
)

// Slot is one entry of a ContainerSnapshot (spec.md §3).
type Slot struct {
	Index       int
	Kind        KindTag
	DisplayName string
	Lore        []string
	ItemDBID    string
}

// ContainerSnapshot is a point-in-time view of an open GUI window
// (spec.md §3).
type ContainerSnapshot struct {
	WindowID int
	Title    string
	Slots    []Slot
}

// Trade is a realised-profit record produced by the Profit Ledger
// (spec.md §4.8).
type Trade struct {
	ItemName    string
	Amount      decimal.Decimal
	BuyCost     decimal.Decimal
	SellRevenue decimal.Decimal
	Profit      decimal.Decimal
	ClosedAt    time.Time
}

// LedgerStats summarises realised trades (spec.md §4.8 stats()).
type LedgerStats struct {
	TotalProfit decimal.Decimal
	Count       int
	Average     decimal.Decimal
	PerHour     decimal.Decimal
}
