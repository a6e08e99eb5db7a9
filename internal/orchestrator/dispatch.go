package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/polybot/internal/clock"
	"github.com/web3guy0/polybot/internal/controllink"
	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
)

// Dispatch implements controllink.Dispatcher, routing every inbound
// envelope type to its handler (spec.md §6 "Control-Link wire protocol").
func (o *Orchestrator) Dispatch(ctx context.Context, env controllink.Envelope) {
	switch env.Type {
	case controllink.MsgFlip:
		snipe, err := controllink.DecodeFlip(env.Data)
		if err != nil {
			o.reportSchemaRejection(ctx, env)
			return
		}
		o.EnqueueSnipe(snipe)

	case controllink.MsgBazaarFlip, controllink.MsgPlaceOrder, controllink.MsgBzRecommend:
		rec, err := controllink.DecodeBazaarRecommendation(env.Data)
		if err != nil || rec.ItemName == "" || rec.Amount <= 0 || !rec.PricePerUnit.IsPositive() {
			o.reportSchemaRejection(ctx, env)
			return
		}
		o.EnqueuePlaceOrder(rec)

	case controllink.MsgGetBazaarFlips:
		var list []json.RawMessage
		if err := json.Unmarshal(env.Data, &list); err == nil {
			for _, item := range list {
				if rec, err := controllink.DecodeBazaarRecommendation(item); err == nil && rec.ItemName != "" {
					o.EnqueuePlaceOrder(rec)
				}
			}
			return
		}
		if rec, err := controllink.DecodeBazaarRecommendation(env.Data); err == nil && rec.ItemName != "" {
			o.EnqueuePlaceOrder(rec)
		}

	case controllink.MsgChatMessage, controllink.MsgWriteToChat:
		o.forwardChatPayload(ctx, env.Data)

	case controllink.MsgSwapProfile:
		log.Info().Msg("swapProfile message received, no profile switcher wired")

	case controllink.MsgCreateAuction:
		o.EnqueueCreateAuction(env.Data)

	case controllink.MsgTrade:
		o.EnqueueTrade(env.Data)

	case controllink.MsgTradeResponse:
		o.handleTradeResponse(ctx)

	case controllink.MsgGetInventory:
		o.report(ctx, "inventory_snapshot", o.io.PlayerInventory())

	case controllink.MsgExecute:
		var cmd string
		if err := json.Unmarshal(env.Data, &cmd); err == nil && cmd != "" {
			_ = o.io.SendChat(ctx, cmd)
		}

	case controllink.MsgPrivacySettings:
		log.Info().Msg("privacySettings message received, chat-forward filter not yet wired")

	default:
		log.Warn().Str("type", env.Type).Msg("control-link: unknown inbound message type")
	}
}

// reportSchemaRejection implements spec.md §7 "Schema rejection": log,
// drop, report the offending payload outbound.
func (o *Orchestrator) reportSchemaRejection(ctx context.Context, env controllink.Envelope) {
	log.Warn().Str("type", env.Type).Msg("control-link: rejected malformed payload")
	o.report(ctx, "schema_rejection", map[string]any{"type": env.Type, "data": string(env.Data)})
}

type chatPayloadLine struct {
	Text    string `json:"text"`
	OnClick string `json:"onClick,omitempty"`
	Hover   string `json:"hover,omitempty"`
}

// forwardChatPayload handles both the single-line writeToChat shape and the
// array shape chatMessage carries (spec.md §6).
func (o *Orchestrator) forwardChatPayload(ctx context.Context, data json.RawMessage) {
	var lines []chatPayloadLine
	if err := json.Unmarshal(data, &lines); err != nil {
		var single chatPayloadLine
		if err := json.Unmarshal(data, &single); err != nil {
			return
		}
		lines = []chatPayloadLine{single}
	}
	for _, l := range lines {
		if l.Text == "" {
			continue
		}
		_ = o.io.SendChat(ctx, l.Text)
	}
}

// handleTradeResponse clicks slot 39 of the current trade window, delaying
// 3.4s first if its display name signals a deal/warning confirmation
// (spec.md §6 "tradeResponse").
func (o *Orchestrator) handleTradeResponse(ctx context.Context) {
	cur, ok := o.io.CurrentContainer()
	if !ok {
		return
	}
	if slotDisplayNameContains(cur, 39, "Deal!") || slotDisplayNameContains(cur, 39, "Warning!") {
		_ = clock.Sleep(ctx, 3400*time.Millisecond)
	}
	_ = o.io.ClickSlot(ctx, 39, gameio.MouseLeft, gameio.ClickModeNormal)
}

func slotDisplayNameContains(snap domain.ContainerSnapshot, index int, substr string) bool {
	for _, s := range snap.Slots {
		if s.Index == index {
			return strings.Contains(s.DisplayName, substr)
		}
	}
	return false
}
