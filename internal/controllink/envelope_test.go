package controllink

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBazaarRecommendation_RawObjectVariantA(t *testing.T) {
	raw := json.RawMessage(`{"itemName":"ENCHANTED_COOKIE","amount":64,"pricePerUnit":7.5,"isBuyOrder":true}`)
	rec, err := DecodeBazaarRecommendation(raw)
	require.NoError(t, err)
	assert.Equal(t, "ENCHANTED_COOKIE", rec.ItemName)
	assert.Equal(t, int64(64), rec.Amount)
	assert.True(t, rec.PricePerUnit.Equal(decimal.NewFromFloat(7.5)))
	assert.True(t, rec.IsBuyOrder)
}

func TestDecodeBazaarRecommendation_AltFieldNames(t *testing.T) {
	raw := json.RawMessage(`{"itemName":"ENCHANTED_COOKIE","quantity":"128","unitPrice":"8.25","buy":false}`)
	rec, err := DecodeBazaarRecommendation(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(128), rec.Amount)
	assert.True(t, rec.PricePerUnit.Equal(decimal.RequireFromString("8.25")))
	assert.False(t, rec.IsBuyOrder)
}

func TestDecodeBazaarRecommendation_StringWrapped(t *testing.T) {
	inner := `{"itemName":"ENCHANTED_COOKIE","amount":32,"pricePerUnit":9,"isBuyOrder":true}`
	b, err := json.Marshal(inner)
	require.NoError(t, err)
	rec, err := DecodeBazaarRecommendation(json.RawMessage(b))
	require.NoError(t, err)
	assert.Equal(t, int64(32), rec.Amount)
	assert.True(t, rec.IsBuyOrder)
}

func TestDecodeFlip(t *testing.T) {
	raw := json.RawMessage(`{"auctionId":"abc-123","itemName":"HYPERION","startingBid":"100000000","targetSellPrice":"150000000","finder":"USER","profitPercentage":"0.5"}`)
	snipe, err := DecodeFlip(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", snipe.AuctionID)
	assert.True(t, snipe.Profit().Equal(decimal.RequireFromString("50000000")))
}
