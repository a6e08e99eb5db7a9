// Package gameio defines the contract the Action Orchestrator needs from the
// underlying game-protocol library (spec.md §1 "out of scope... the raw
// game-protocol library", §6 "Game-I/O adapter contract"). The real
// implementation — packet framing, encryption, chunk loading — is an
// external collaborator and lives outside this module; this package only
// specifies the interface plus a deterministic Fake used by tests.
package gameio

import (
	"context"

	"github.com/web3guy0/polybot/internal/domain"
)

// ContainerOpenEvent is delivered whenever the server opens a GUI window.
type ContainerOpenEvent struct {
	domain.ContainerSnapshot
}

// SignOpenEvent is delivered when the server opens a sign-entity text input
// (used by Bazaar amount/price entry, spec.md §4.3 step 4-5).
type SignOpenEvent struct {
	WindowID int
}

// ChatLine is one line of game chat, offering both the raw and
// color-stripped text (spec.md §6 "color-stripped text accessor").
type ChatLine struct {
	Raw      string
	Stripped string
}

// ClickMode mirrors the game's window-click packet "mode" field.
type ClickMode int

const (
	ClickModeNormal ClickMode = 0
	ClickModeShift  ClickMode = 1
	ClickModeMiddle ClickMode = 3
)

// MouseButton mirrors the game's window-click packet "button" field.
type MouseButton int

const (
	MouseLeft   MouseButton = 0
	MouseRight  MouseButton = 1
	MouseMiddle MouseButton = 2
)

// GameIO is the thin wrapper over the game-protocol library that window
// protocols and the event router are built on (spec.md §6).
type GameIO interface {
	// SendChat transmits a line of chat/commands, e.g. "/viewauction <id>".
	SendChat(ctx context.Context, line string) error

	// SubscribeContainerOpen installs a listener for container-open events.
	// The returned cancel func MUST be called on every exit path of the
	// caller (spec.md I3); it is the only way to uninstall the listener.
	SubscribeContainerOpen() (ch <-chan ContainerOpenEvent, cancel func())

	// SubscribeContainerClose installs a listener for container-close events.
	SubscribeContainerClose() (ch <-chan struct{}, cancel func())

	// SubscribeSignOpen installs a listener for sign-entity-open events.
	SubscribeSignOpen() (ch <-chan SignOpenEvent, cancel func())

	// ChatMessages is the single chat stream consumed by the Event Router
	// (spec.md §5 "one chat-line consumer").
	ChatMessages() <-chan ChatLine

	// CurrentContainer returns the presently-open container, if any.
	CurrentContainer() (domain.ContainerSnapshot, bool)

	// CloseContainer closes whatever window is currently open.
	CloseContainer(ctx context.Context) error

	// ClickSlot is the high-level slot-click primitive.
	ClickSlot(ctx context.Context, slot int, button MouseButton, mode ClickMode) error

	// WriteTransaction writes a raw low-level transaction (confirm) packet —
	// the speed optimisation in spec.md §4.2 step 3.
	WriteTransaction(ctx context.Context, windowID int, actionCounter int16, accepted bool) error

	// WriteWindowClick writes a raw low-level window-click packet, bypassing
	// the higher-level click queueing the game library otherwise applies.
	WriteWindowClick(ctx context.Context, windowID, slot int, button MouseButton, mode ClickMode) error

	// WriteSignLine writes the first line of an open sign-entity edit.
	WriteSignLine(ctx context.Context, line1 string) error

	// Scoreboard returns the current color-stripped scoreboard lines.
	Scoreboard() []string

	// PlayerInventory returns the player's own inventory slots.
	PlayerInventory() []domain.Slot
}
