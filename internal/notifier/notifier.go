// Package notifier sends best-effort operator alerts over Telegram: startup,
// periodic profit summaries, and warnings. It is an ambient convenience
// layered over the in-scope outbound report stream (internal/controllink),
// not the operator's primary console — grounded on the teacher's
// bot/telegram.go Notify* methods, with the interactive /status /pause
// command loop dropped since an interactive console is out of scope here.
package notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/polybot/internal/domain"
)

// Notifier sends markdown-formatted alerts to a single configured chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New constructs a Notifier. Both token and chatID being empty is a valid,
// inert configuration (Telegram notifications are optional, spec.md §6);
// New returns (nil, nil) in that case so callers can skip wiring it up.
func New(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notifier: create bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("notifier initialized")
	return &Notifier{api: api, chatID: chatID}, nil
}

func (n *Notifier) send(text string) {
	if n == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("notifier send failed")
	}
}

// NotifyStartup announces the bot coming online for a given in-game name.
func (n *Notifier) NotifyStartup(inGameName string) {
	n.send(fmt.Sprintf("🚀 *Bot started*\n\nPlayer: *%s*", inGameName))
}

// NotifyProfitSummary reports periodic Profit Ledger stats (spec.md §4.8
// "periodic stats push").
func (n *Notifier) NotifyProfitSummary(stats domain.LedgerStats) {
	sign := "+"
	if stats.TotalProfit.IsNegative() {
		sign = ""
	}
	n.send(fmt.Sprintf(`📊 *Profit summary*

Trades: *%d*
Total: *%s%s*
Average: *%s*
Per hour: *%s*`,
		stats.Count,
		sign, stats.TotalProfit.StringFixed(0),
		stats.Average.StringFixed(0),
		stats.PerHour.StringFixed(0),
	))
}

// NotifyWarning reports a non-fatal condition worth the operator's
// attention (e.g. insufficient purse, inventory full, max orders reached).
func (n *Notifier) NotifyWarning(msg string) {
	n.send(fmt.Sprintf("⚠️ %s", msg))
}

// NotifyError reports an unrecoverable error (spec.md §7 "Unrecoverable
// logic error in an executor").
func (n *Notifier) NotifyError(err error) {
	n.send(fmt.Sprintf("🛑 *Error*\n\n`%s`", err.Error()))
}
