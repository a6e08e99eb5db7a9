// Package session holds the Session Store: the in-memory SessionFacts of
// one bot process (spec.md §2.4 "Session Store", §3 SessionFacts). Reset
// drops the per-connection facts and keeps the last-known purse, order
// limits and connection id; nothing here outlives a process restart.
package session

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Facts mirrors spec.md's SessionFacts record.
type Facts struct {
	InRealm             bool
	Purse               decimal.Decimal
	MaxTotalOrders      int
	MaxBuyOrders        int
	OpenOrderCount      int
	OrderCooldownUntil  time.Time
	DailySellLimitUntil time.Time
	StashWarning        bool
	PremiumTier         string
	PremiumExpires      time.Time
	ConnectionID        string
	LastReconcileOK     bool
}

// Store guards Facts behind a mutex; every read/write goes through it so the
// Orchestrator, Event Router, and Control-Link client never race on the same
// struct (spec.md I4 "SessionFacts is read/written only through the Session
// Store").
type Store struct {
	mu    sync.RWMutex
	facts Facts
}

// New returns a Store seeded with the documented default order limits
// (spec.md §3, §6 "Observable constants").
func New() *Store {
	return &Store{facts: Facts{MaxTotalOrders: 14, MaxBuyOrders: 7}}
}

// Get returns a copy of the current facts.
func (s *Store) Get() Facts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.facts
}

// Set replaces the facts wholesale.
func (s *Store) Set(f Facts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = f
}

// Update applies fn to a copy of the current facts and stores the result,
// for read-modify-write callers (e.g. bumping OpenOrderCount on a fill).
func (s *Store) Update(fn func(Facts) Facts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = fn(s.facts)
}

// Reset clears the facts that do not outlive a reconnect while preserving
// the ones that do: the last-known purse, the observed order limits and
// the connection id, kept until the next reconcile overwrites them. The
// active profile tag and bot state are owned elsewhere.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = Facts{
		Purse:          s.facts.Purse,
		MaxBuyOrders:   s.facts.MaxBuyOrders,
		MaxTotalOrders: s.facts.MaxTotalOrders,
		ConnectionID:   s.facts.ConnectionID,
	}
}

// ApplyReconcile sets the purse, open-order count and reconcile flag in one
// update; kept as a named method so callers don't rebuild a Facts literal
// by hand. RunStartupReconcile does not call it; it sets only
// LastReconcileOK.
func (s *Store) ApplyReconcile(purse decimal.Decimal, openOrders int, ok bool) {
	s.Update(func(f Facts) Facts {
		f.Purse = purse
		f.OpenOrderCount = openOrders
		f.LastReconcileOK = ok
		return f
	})
}
