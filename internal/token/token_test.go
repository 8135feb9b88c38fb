package token_test

import (
	"errors"
	"testing"

	"github.com/xtding233/gacha-forge/internal/token"
)

func TestTokensForDraws(t *testing.T) {
	tk := token.Token{PerDraw: 160, PerTenDraw: 1500}
	cases := map[int]int{0: 0, -3: 0, 1: 160, 9: 1440, 10: 1500, 13: 1980, 100: 15000}
	for n, want := range cases {
		if got := tk.TokensForDraws(n); got != want {
			t.Errorf("TokensForDraws(%d)=%d want %d", n, got, want)
		}
	}
	plain := token.Token{PerDraw: 5}
	if got := plain.TokensForDraws(10); got != 50 {
		t.Fatalf("no ten price: got %d", got)
	}
}

func TestBundled(t *testing.T) {
	tk := token.Token{PerDraw: 160, PerTenDraw: 1500}
	if !tk.Bundled(10) || !tk.Bundled(100) || tk.Bundled(13) || tk.Bundled(1) {
		t.Fatalf("unexpected bundling")
	}
	if (token.Token{PerDraw: 1}).Bundled(10) {
		t.Fatalf("no ten price means no bundle")
	}
}

func TestWallet(t *testing.T) {
	w := token.Wallet{Balance: 300}
	if err := w.Spend(160); err != nil {
		t.Fatal(err)
	}
	if w.Balance != 140 {
		t.Fatalf("balance=%d", w.Balance)
	}
	if err := w.Spend(160); !errors.Is(err, token.ErrInsufficientTokens) {
		t.Fatalf("expected ErrInsufficientTokens, got %v", err)
	}
	if w.Balance != 140 {
		t.Fatalf("failed spend changed balance to %d", w.Balance)
	}
	w.Credit(20)
	w.Credit(-5)
	if w.Balance != 160 || !w.CanAfford(160) || w.CanAfford(161) {
		t.Fatalf("balance=%d", w.Balance)
	}
}

func TestDrawCost(t *testing.T) {
	tok := token.Token{PerDraw: 160, PerTenDraw: 1500}
	for n, want := range map[int]int{0: 0, 1: 160, 10: 1500, 15: 2400, 20: 3000} {
		if got := tok.DrawCost(n); got != want {
			t.Errorf("DrawCost(%d)=%d want %d", n, got, want)
		}
	}
}
