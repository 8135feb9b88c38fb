package audit

import (
	"fmt"

	"github.com/xtding233/gacha-forge/internal/gacha"
)

// Accumulator counts drawn tiers. Draws always equals the sum of Counts.
type Accumulator struct {
	Draws  int                 `json:"draws"`
	Counts [gacha.NumTiers]int `json:"counts"`
}

func (a *Accumulator) Add(t gacha.Tier) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", gacha.ErrInvalidTier, uint8(t))
	}
	a.Counts[t]++
	a.Draws++
	return nil
}

func (a *Accumulator) Reset() { *a = Accumulator{} }

// Valid reports whether the sum invariant holds and no count is negative.
func (a *Accumulator) Valid() bool {
	sum := 0
	for _, c := range a.Counts {
		if c < 0 {
			return false
		}
		sum += c
	}
	return sum == a.Draws
}

// Scope picks one of the two accumulators in a History.
type Scope uint8

const (
	ScopeSession Scope = iota
	ScopeGlobal
)

func (s Scope) String() string {
	switch s {
	case ScopeSession:
		return "session"
	case ScopeGlobal:
		return "global"
	}
	return fmt.Sprintf("Scope(%d)", uint8(s))
}

func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "session":
		return ScopeSession, nil
	case "global":
		return ScopeGlobal, nil
	}
	return 0, fmt.Errorf("unknown stats scope %q", s)
}

// History holds the session accumulator, which the player may reset, and the
// global one, which only an administrator resets.
type History struct {
	Session Accumulator `json:"session"`
	Global  Accumulator `json:"global"`
}

// Record adds every tier to both scopes. On an invalid tier nothing is recorded.
func (h *History) Record(tiers ...gacha.Tier) error {
	for _, t := range tiers {
		if !t.Valid() {
			return fmt.Errorf("%w: %d", gacha.ErrInvalidTier, uint8(t))
		}
	}
	for _, t := range tiers {
		_ = h.Session.Add(t)
		_ = h.Global.Add(t)
	}
	return nil
}

func (h *History) Scope(s Scope) *Accumulator {
	if s == ScopeGlobal {
		return &h.Global
	}
	return &h.Session
}

func (h *History) ResetSession() { h.Session.Reset() }

func (h *History) ResetGlobal() { h.Global.Reset() }
