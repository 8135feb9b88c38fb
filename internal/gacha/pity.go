package gacha

import (
	"errors"
	"fmt"
)

var ErrInvalidSpan = errors.New("invalid pity span; must be >= 1")

// PityConfig handles a "hard pity": after Span-1 draws below Floor, the next
// draw is forced into the tiers at or above Floor.
type PityConfig struct {
	Enabled bool `json:"enabled"`
	Floor   Tier `json:"floor"`
	Span    int  `json:"span"` // forced draw happens at the latest on draw #Span
}

func (c PityConfig) validate() error {
	if !c.Floor.Valid() {
		return fmt.Errorf("pity floor: %w", ErrInvalidTier)
	}
	if c.Enabled && c.Span < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSpan, c.Span)
	}
	return nil
}

// due reports whether the next draw must be forced.
func (c PityConfig) due(st *PityState) bool {
	return c.Enabled && st.Counter >= c.Span-1
}

// PityState is the caller-owned counter of draws since the last result at or above the floor.
type PityState struct {
	Counter int `json:"counter"`
}

// settle resets the counter on a floor-or-better result; otherwise it increments.
func (st *PityState) settle(c PityConfig, t Tier) {
	if t.IsAtLeast(c.Floor) {
		st.Counter = 0
		return
	}
	st.Counter++
}

// Remaining reports how many more draws may pass before pity forces a result.
// It returns -1 when pity is disabled.
func (c PityConfig) Remaining(st PityState) int {
	if !c.Enabled {
		return -1
	}
	r := c.Span - 1 - st.Counter
	if r < 0 {
		r = 0
	}
	return r
}
