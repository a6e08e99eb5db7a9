// Package orchestrator is the Action Orchestrator: it owns BotState, drives
// the nine Window Protocols against the Game I/O Adapter, and is the
// dispatch target for both the Event Router and the Control-Link Client
// (spec.md §2.6, §4).
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/polybot/internal/clock"
	"github.com/web3guy0/polybot/internal/config"
	"github.com/web3guy0/polybot/internal/controllink"
	"github.com/web3guy0/polybot/internal/domain"
	"github.com/web3guy0/polybot/internal/gameio"
	"github.com/web3guy0/polybot/internal/ledger"
	"github.com/web3guy0/polybot/internal/priceclient"
	"github.com/web3guy0/polybot/internal/queue"
	"github.com/web3guy0/polybot/internal/session"
)

// Notifier is the subset of internal/notifier used here, kept as an
// interface so a nil (disabled) notifier and the real one are both valid
// without the orchestrator importing the Telegram SDK directly.
type Notifier interface {
	NotifyWarning(msg string)
	NotifyError(err error)
	NotifyProfitSummary(stats domain.LedgerStats)
}

// Reporter is the subset of internal/webhook used here.
type Reporter interface {
	Post(ctx context.Context, v any)
}

// Sender is the subset of internal/controllink.Client used to push outbound
// envelopes, kept as an interface for testability.
type Sender interface {
	Send(env controllink.Envelope)
}

// Orchestrator is the single owner of BotState and the open-order table
// (spec.md §3 BotState, §5 "Shared-resource policy").
type Orchestrator struct {
	cfg   *config.Config
	io    gameio.GameIO
	queue *queue.Queue
	sess  *session.Store
	led   *ledger.Ledger
	link  Sender
	rep   Reporter
	notif Notifier
	price *priceclient.Client
	clk   clock.Clock

	mu    sync.Mutex
	state domain.BotState

	ordersMu sync.Mutex
	orders   map[string]*domain.Order // keyed by item_name+side, the open-order table (§5)

	purchaseMu    sync.Mutex
	purchaseStart time.Time
	currentSnipe  *domain.AuctionSnipe

	startedAt time.Time
}

// Deps bundles the Orchestrator's collaborators for construction.
type Deps struct {
	Config      *config.Config
	GameIO      gameio.GameIO
	Queue       *queue.Queue
	Session     *session.Store
	Ledger      *ledger.Ledger
	Link        Sender
	Reporter    Reporter
	Notifier    Notifier
	PriceClient *priceclient.Client
	Clock       clock.Clock
}

// New constructs an Orchestrator in GracePeriod (spec.md §3 "GracePeriod
// (initial; no actions may run)").
func New(d Deps) *Orchestrator {
	c := d.Clock
	if c == nil {
		c = clock.Real{}
	}
	return &Orchestrator{
		cfg:       d.Config,
		io:        d.GameIO,
		queue:     d.Queue,
		sess:      d.Session,
		led:       d.Ledger,
		link:      d.Link,
		rep:       d.Reporter,
		notif:     d.Notifier,
		price:     d.PriceClient,
		clk:       c,
		state:     domain.StateGracePeriod,
		orders:    make(map[string]*domain.Order),
		startedAt: c.Now(),
	}
}

// State returns the current BotState.
func (o *Orchestrator) State() domain.BotState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// EndGracePeriod transitions out of GracePeriod into Idle, allowing the
// queue to start dispatching (spec.md Glossary "Grace period").
func (o *Orchestrator) EndGracePeriod() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == domain.StateGracePeriod {
		o.state = domain.StateIdle
	}
}

// runExclusive transitions BotState from Idle to target, runs fn, and
// restores Idle on every exit path — success, error, panic, or context
// cancellation (spec.md I1, I2, P1). A panic inside fn is recovered at this
// boundary and treated as a neutral outcome (spec.md §7 "Unrecoverable
// logic error in an executor").
func (o *Orchestrator) runExclusive(ctx context.Context, target domain.BotState, fn func(ctx context.Context) error) (err error) {
	o.mu.Lock()
	if o.state != domain.StateIdle {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: cannot enter %s from %s", target, o.state)
	}
	o.state = target
	o.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("state", target.String()).Msg("executor panicked, recovering to Idle")
			if o.notif != nil {
				o.notif.NotifyError(fmt.Errorf("executor panic in %s: %v", target, r))
			}
			err = nil
		}
		o.mu.Lock()
		o.state = domain.StateIdle
		o.mu.Unlock()
	}()

	return fn(ctx)
}

// enqueue submits a named, prioritised unit of work to the Command Queue
// (spec.md §4.1).
func (o *Orchestrator) enqueue(name string, priority domain.Priority, preemptible bool, fn func(ctx context.Context) error) {
	o.queue.Submit(queue.Item{
		Priority:    priority,
		Preemptible: preemptible,
		Run:         fn,
	})
	log.Debug().Str("name", name).Str("priority", priority.String()).Msg("enqueued")
}

// orderKey is the open-order table's key (spec.md §5 "open-order table").
func orderKey(item string, side domain.OrderSide) string {
	return item + ":" + side.String()
}

func (o *Orchestrator) putOrder(ord *domain.Order) {
	o.ordersMu.Lock()
	defer o.ordersMu.Unlock()
	o.orders[orderKey(ord.ItemName, ord.Side)] = ord
}

func (o *Orchestrator) getOrder(item string, side domain.OrderSide) (*domain.Order, bool) {
	o.ordersMu.Lock()
	defer o.ordersMu.Unlock()
	ord, ok := o.orders[orderKey(item, side)]
	return ord, ok
}

func (o *Orchestrator) openOrderCounts() (total, buy int) {
	o.ordersMu.Lock()
	defer o.ordersMu.Unlock()
	for _, ord := range o.orders {
		if ord.State == domain.OrderOpen || ord.State == domain.OrderFilledUnclaimed {
			total++
			if ord.Side == domain.SideBuy {
				buy++
			}
		}
	}
	return total, buy
}

// report posts a named event over both the webhook and the control-link
// report channel (spec.md §6 "outbound events").
func (o *Orchestrator) report(ctx context.Context, kind string, payload any) {
	if o.rep != nil {
		o.rep.Post(ctx, map[string]any{"kind": kind, "payload": payload})
	}
	if o.link != nil {
		o.link.Send(controllink.MustEnvelope(controllink.EventReport, map[string]any{"kind": kind, "payload": payload}))
	}
}
