package gameio

import (
	"context"
	"sync"

	"github.com/web3guy0/polybot/internal/domain"
)

// Fake is a deterministic, in-memory GameIO used by orchestrator and
// event-router tests. Every subscription channel is buffered so tests can
// push events without a reader already blocked on receive.
type Fake struct {
	mu sync.Mutex

	container *domain.ContainerSnapshot
	inventory []domain.Slot
	scoreboard []string

	chat chan ChatLine

	openSubs  []chan ContainerOpenEvent
	closeSubs []chan struct{}
	signSubs  []chan SignOpenEvent

	SentChat     []string
	Clicks       []FakeClick
	Transactions []FakeTransaction
	SignLines    []string
}

// FakeClick records a ClickSlot or WriteWindowClick invocation.
type FakeClick struct {
	WindowID int
	Slot     int
	Button   MouseButton
	Mode     ClickMode
}

// FakeTransaction records a WriteTransaction invocation.
type FakeTransaction struct {
	WindowID      int
	ActionCounter int16
	Accepted      bool
}

// NewFake constructs an empty Fake ready for test setup.
func NewFake() *Fake {
	return &Fake{chat: make(chan ChatLine, 256)}
}

func (f *Fake) SendChat(ctx context.Context, line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SentChat = append(f.SentChat, line)
	return nil
}

func (f *Fake) SubscribeContainerOpen() (<-chan ContainerOpenEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan ContainerOpenEvent, 16)
	f.openSubs = append(f.openSubs, ch)
	return ch, func() { f.unsubscribeOpen(ch) }
}

func (f *Fake) unsubscribeOpen(ch chan ContainerOpenEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.openSubs {
		if c == ch {
			f.openSubs = append(f.openSubs[:i], f.openSubs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (f *Fake) SubscribeContainerClose() (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{}, 16)
	f.closeSubs = append(f.closeSubs, ch)
	return ch, func() { f.unsubscribeClose(ch) }
}

func (f *Fake) unsubscribeClose(ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.closeSubs {
		if c == ch {
			f.closeSubs = append(f.closeSubs[:i], f.closeSubs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (f *Fake) SubscribeSignOpen() (<-chan SignOpenEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan SignOpenEvent, 16)
	f.signSubs = append(f.signSubs, ch)
	return ch, func() { f.unsubscribeSign(ch) }
}

func (f *Fake) unsubscribeSign(ch chan SignOpenEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.signSubs {
		if c == ch {
			f.signSubs = append(f.signSubs[:i], f.signSubs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (f *Fake) ChatMessages() <-chan ChatLine { return f.chat }

func (f *Fake) CurrentContainer() (domain.ContainerSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.container == nil {
		return domain.ContainerSnapshot{}, false
	}
	return *f.container, true
}

func (f *Fake) CloseContainer(ctx context.Context) error {
	f.mu.Lock()
	f.container = nil
	subs := append([]chan struct{}{}, f.closeSubs...)
	f.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *Fake) ClickSlot(ctx context.Context, slot int, button MouseButton, mode ClickMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	wid := 0
	if f.container != nil {
		wid = f.container.WindowID
	}
	f.Clicks = append(f.Clicks, FakeClick{WindowID: wid, Slot: slot, Button: button, Mode: mode})
	return nil
}

func (f *Fake) WriteTransaction(ctx context.Context, windowID int, actionCounter int16, accepted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Transactions = append(f.Transactions, FakeTransaction{WindowID: windowID, ActionCounter: actionCounter, Accepted: accepted})
	return nil
}

func (f *Fake) WriteWindowClick(ctx context.Context, windowID, slot int, button MouseButton, mode ClickMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clicks = append(f.Clicks, FakeClick{WindowID: windowID, Slot: slot, Button: button, Mode: mode})
	return nil
}

func (f *Fake) WriteSignLine(ctx context.Context, line1 string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SignLines = append(f.SignLines, line1)
	return nil
}

func (f *Fake) Scoreboard() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.scoreboard...)
}

func (f *Fake) PlayerInventory() []domain.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Slot{}, f.inventory...)
}

// --- test-setup helpers (not part of the GameIO interface) ---

// PushChat injects a chat line as if received from the server.
func (f *Fake) PushChat(raw, stripped string) {
	f.chat <- ChatLine{Raw: raw, Stripped: stripped}
}

// OpenContainer sets the current container and fans it out to subscribers.
func (f *Fake) OpenContainer(snap domain.ContainerSnapshot) {
	f.mu.Lock()
	f.container = &snap
	subs := append([]chan ContainerOpenEvent{}, f.openSubs...)
	f.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ContainerOpenEvent{snap}:
		default:
		}
	}
}

// OpenSign fans out a sign-open event to subscribers.
func (f *Fake) OpenSign(windowID int) {
	f.mu.Lock()
	subs := append([]chan SignOpenEvent{}, f.signSubs...)
	f.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- SignOpenEvent{WindowID: windowID}:
		default:
		}
	}
}

// SetScoreboard overwrites the fake scoreboard lines.
func (f *Fake) SetScoreboard(lines []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreboard = lines
}

// SetInventory overwrites the fake player inventory.
func (f *Fake) SetInventory(slots []domain.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventory = slots
}

var _ GameIO = (*Fake)(nil)
