package token

import (
	"errors"
	"fmt"
)

var ErrInsufficientTokens = errors.New("insufficient tokens")

// Token defines how many units are required per draw and per protected forge.
type Token struct {
	Name            string `json:"name"`             // e.g. "Stellar Jade", "Star Stone"
	PerDraw         int    `json:"per_draw"`         // tokens per single draw, e.g. 160
	PerTenDraw      int    `json:"per_ten_draw"`     // optional; 0 means 10 * PerDraw
	PerProtect      int    `json:"per_protect"`      // price of one protection charm
	StartingBalance int    `json:"starting_balance"` // credited to new players
}

// TokensForDraws returns how many tokens are required for n draws.
// Full tens are charged at PerTenDraw when it is set.
func (t Token) TokensForDraws(n int) int {
	if n <= 0 {
		return 0
	}
	if t.PerTenDraw > 0 && n >= 10 {
		tens := n / 10
		rem := n % 10
		return tens*t.PerTenDraw + rem*t.PerDraw
	}
	return n * t.PerDraw
}

// Bundled reports whether n draws are priced as whole ten-packs, which are paid up front.
func (t Token) Bundled(n int) bool {
	return t.PerTenDraw > 0 && n >= 10 && n%10 == 0
}

// DrawCost is what a single n-draw request charges: the bundle price for
// whole ten-packs, PerDraw per draw otherwise.
func (t Token) DrawCost(n int) int {
	if t.Bundled(n) {
		return t.TokensForDraws(n)
	}
	return max(n, 0) * t.PerDraw
}

// Wallet is a player's token balance.
type Wallet struct {
	Balance int `json:"balance"`
}

func (w Wallet) CanAfford(cost int) bool { return cost <= w.Balance }

func (w *Wallet) Spend(cost int) error {
	if cost < 0 {
		return fmt.Errorf("negative cost %d", cost)
	}
	if !w.CanAfford(cost) {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientTokens, cost, w.Balance)
	}
	w.Balance -= cost
	return nil
}

func (w *Wallet) Credit(n int) {
	if n > 0 {
		w.Balance += n
	}
}
