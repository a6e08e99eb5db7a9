package controllink

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/web3guy0/polybot/internal/domain"
)

// Envelope is the typed wire frame used for every inbound and outbound
// control-link message (spec.md §6 "Control-Link wire format").
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound event type names (spec.md §6 "Outbound events").
const (
	EventReport           = "report"
	EventUploadInventory   = "uploadInventory"
	EventUploadTab         = "uploadTab"
	EventUploadScoreboard  = "uploadScoreboard"
	EventChatBatch         = "chatBatch"
	EventClientError       = "clientError"
	EventGetBazaarFlips    = "getbazaarflips"
)

// Inbound message type names (spec.md §6 "Inbound messages").
const (
	MsgFlip             = "flip"
	MsgChatMessage      = "chatMessage"
	MsgWriteToChat      = "writeToChat"
	MsgSwapProfile      = "swapProfile"
	MsgCreateAuction     = "createAuction"
	MsgTrade            = "trade"
	MsgTradeResponse    = "tradeResponse"
	MsgGetInventory     = "getInventory"
	MsgExecute          = "execute"
	MsgPrivacySettings  = "privacySettings"
	MsgBazaarFlip       = "bazaarFlip"
	MsgPlaceOrder       = "placeOrder"
	MsgBzRecommend      = "bzRecommend"
	MsgGetBazaarFlips   = "getbazaarflips"
)

// flipWire is the wire shape for an inbound "flip" message, decoded into a
// domain.AuctionSnipe.
type flipWire struct {
	AuctionID        string          `json:"auctionId"`
	ItemName         string          `json:"itemName"`
	StartingBid      decimal.Decimal `json:"startingBid"`
	TargetSellPrice  decimal.Decimal `json:"targetSellPrice"`
	FinderTag        string          `json:"finder"`
	ProfitPercentage decimal.Decimal `json:"profitPercentage"`
}

// DecodeFlip parses an inbound "flip" message body into an AuctionSnipe.
func DecodeFlip(data json.RawMessage) (domain.AuctionSnipe, error) {
	var w flipWire
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.AuctionSnipe{}, err
	}
	return domain.AuctionSnipe{
		AuctionID:        w.AuctionID,
		ItemName:         w.ItemName,
		StartingBid:      w.StartingBid,
		TargetSellPrice:  w.TargetSellPrice,
		FinderTag:        w.FinderTag,
		ProfitPercentage: w.ProfitPercentage,
	}, nil
}

// bazaarWire is the wire shape of an inbound bazaar recommendation. It
// accepts the item name as "itemName", the amount as "amount" or
// "quantity", the price as "pricePerUnit" or "unitPrice", and the side as
// "isBuyOrder" or "buy"; the whole object may also arrive as a JSON string
// nested inside the envelope. Other field names ("item", "name", "count",
// "price", "type", "orderType") are not recognised and decode as empty.
type bazaarWire struct {
	ItemName     string          `json:"itemName"`
	Amount       json.Number     `json:"amount"`
	Quantity     json.Number     `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	IsBuyOrder   *bool           `json:"isBuyOrder"`
	Buy          *bool           `json:"buy"`
}

// DecodeBazaarRecommendation tolerates both wire shapes: a raw JSON object,
// or a JSON string containing the same object (spec.md Q3 resolution,
// recorded in DESIGN.md).
func DecodeBazaarRecommendation(data json.RawMessage) (domain.BazaarRecommendation, error) {
	raw := data
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		raw = json.RawMessage(asString)
	}

	var w bazaarWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.BazaarRecommendation{}, err
	}

	amount := w.Amount
	if amount == "" {
		amount = w.Quantity
	}
	amountInt, _ := strconv.ParseInt(amount.String(), 10, 64)

	price := w.PricePerUnit
	if price.IsZero() {
		price = w.UnitPrice
	}

	isBuy := false
	switch {
	case w.IsBuyOrder != nil:
		isBuy = *w.IsBuyOrder
	case w.Buy != nil:
		isBuy = *w.Buy
	}

	return domain.BazaarRecommendation{
		ItemName:     w.ItemName,
		Amount:       amountInt,
		PricePerUnit: price,
		IsBuyOrder:   isBuy,
	}, nil
}

// MustEnvelope marshals v into Data and returns an Envelope of type typ.
// Used only for outbound messages built from known-good internal types, so
// a marshal failure (which cannot happen for these types) is treated as a
// programmer error rather than surfaced as an error return.
func MustEnvelope(typ string, v any) Envelope {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Envelope{Type: typ, Data: b}
}
