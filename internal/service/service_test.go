package service_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/xtding233/gacha-forge/internal/audit"
	"github.com/xtding233/gacha-forge/internal/forge"
	"github.com/xtding233/gacha-forge/internal/gacha"
	"github.com/xtding233/gacha-forge/internal/game"
	"github.com/xtding233/gacha-forge/internal/pricing"
	"github.com/xtding233/gacha-forge/internal/service"
	"github.com/xtding233/gacha-forge/internal/store"
	"github.com/xtding233/gacha-forge/internal/token"
)

type constRNG float64

func (c constRNG) Float64() float64 { return float64(c) }

func testParams() game.EngineParams {
	return game.EngineParams{
		Weights:   gacha.Table{1, 2, 5, 10, 20, 25, 25, 12},
		Pity:      gacha.PityConfig{Enabled: true, Floor: gacha.TierS, Span: 10},
		Guarantee: gacha.GuaranteeConfig{Enabled: true, Tier: gacha.TierA},
		Stats:     gacha.DefaultStatTable(),
		Ladder:    forge.DefaultLadder(),
		Seed:      "svc",
		Token:     token.Token{Name: "gem", PerDraw: 10, PerTenDraw: 90, PerProtect: 5, StartingBalance: 1000},
		Shop: pricing.Catalog{Currency: "CAD", Packs: []pricing.Pack{
			{ID: "small", Tokens: 100, FirstTimeX2: true, PriceCents: 199},
			{ID: "big", Tokens: 600, BonusTokens: 60, PriceCents: 999},
		}},
	}
}

func newService(t *testing.T, st store.Store, rng gacha.RandomSource) *service.Service {
	t.Helper()
	if st == nil {
		var err error
		st, err = store.NewFileStore(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
	}
	return service.New(testParams(), st, nil, rng)
}

func TestDrawTen(t *testing.T) {
	ctx := context.Background()
	s := newService(t, nil, nil)
	p, err := s.CreatePlayer(ctx)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Draw(ctx, p.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pulls) != 10 || res.Stop != gacha.StopCompleted || res.Spent != 90 || res.Balance != 910 {
		t.Fatalf("unexpected result %+v", res)
	}
	hit := false
	for _, pl := range res.Pulls {
		hit = hit || pl.Tier.IsAtLeast(gacha.TierA)
		if pl.Item.Tier != pl.Tier || pl.Item.ID == "" {
			t.Fatalf("item does not match pull: %+v", pl)
		}
	}
	if !hit {
		t.Fatalf("ten-draw without a tier >= A")
	}

	stored, err := s.Player(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Items) != 10 || stored.History.Session.Draws != 10 || stored.Wallet.Balance != 910 || stored.Pity != res.Pity {
		t.Fatalf("stored player %+v", stored)
	}
}

func TestDrawStopsWhenUnaffordable(t *testing.T) {
	ctx := context.Background()
	s := newService(t, nil, nil)
	p, _ := s.CreatePlayer(ctx)
	// 1000 at 10 per draw: 7 now leaves room for exactly 93 more
	res, err := s.Draw(ctx, p.ID, 7)
	if err != nil || res.Spent != 70 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	res, err = s.Draw(ctx, p.ID, 95)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pulls) != 93 || res.Stop != gacha.StopUnaffordable || res.Balance != 0 {
		t.Fatalf("pulls=%d stop=%s balance=%d", len(res.Pulls), res.Stop, res.Balance)
	}
	if _, err := s.Draw(ctx, p.ID, 1); !errors.Is(err, token.ErrInsufficientTokens) {
		t.Fatalf("expected ErrInsufficientTokens, got %v", err)
	}
	if _, err := s.Draw(ctx, p.ID, 10); !errors.Is(err, token.ErrInsufficientTokens) {
		t.Fatalf("bundled: expected ErrInsufficientTokens, got %v", err)
	}
}

func TestDrawInvalidCount(t *testing.T) {
	s := newService(t, nil, nil)
	p, _ := s.CreatePlayer(context.Background())
	for _, n := range []int{0, -1, service.DefaultMaxDraws + 1} {
		if _, err := s.Draw(context.Background(), p.ID, n); !errors.Is(err, service.ErrInvalidCount) {
			t.Fatalf("n=%d: %v", n, err)
		}
	}
}

func TestDrawCancelledRefunds(t *testing.T) {
	s := newService(t, nil, nil)
	p, _ := s.CreatePlayer(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Draw(ctx, p.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stop != gacha.StopCancelled || len(res.Pulls) != 0 || res.Spent != 0 {
		t.Fatalf("res=%+v", res)
	}
	stored, _ := s.Player(context.Background(), p.ID)
	if stored.Wallet.Balance != 1000 {
		t.Fatalf("balance=%d after cancelled bundle", stored.Wallet.Balance)
	}
}

func TestUnknownPlayer(t *testing.T) {
	s := newService(t, nil, nil)
	if _, err := s.Draw(context.Background(), "nobody", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func drawOne(t *testing.T, s *service.Service) (string, string) {
	t.Helper()
	p, err := s.CreatePlayer(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Draw(context.Background(), p.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	return p.ID, res.Pulls[0].Item.ID
}

func TestForgeAutoToMax(t *testing.T) {
	s := newService(t, nil, constRNG(0))
	id, item := drawOne(t, s)
	res, err := s.Forge(context.Background(), id, item, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Outcomes) != forge.MaxLevel+1 || res.Item.Level != forge.MaxLevel || res.Destroyed {
		t.Fatalf("res=%+v", res)
	}
	// u=0 rolls a weapon at the bottom of the SSS+ atk range
	if res.Item.Part != gacha.PartWeapon || res.Item.BaseStat != 900 {
		t.Fatalf("item=%+v", res.Item)
	}
	if want := int(math.Floor(900 * 4.25)); res.EffectiveStat != want {
		t.Fatalf("effective=%d want %d", res.EffectiveStat, want)
	}
}

func TestForgeDestroysItem(t *testing.T) {
	st, _ := store.NewFileStore(t.TempDir())
	id, item := drawOne(t, newService(t, st, constRNG(0)))

	unlucky := newService(t, st, constRNG(0.999))
	res, err := unlucky.Forge(context.Background(), id, item, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Destroyed || res.Outcomes[0].Kind != forge.DestructiveFailure {
		t.Fatalf("res=%+v", res)
	}
	p, _ := unlucky.Player(context.Background(), id)
	if _, ok := p.Item(item); ok {
		t.Fatalf("destroyed item still owned")
	}
	if _, err := unlucky.Forge(context.Background(), id, item, false, false); !errors.Is(err, service.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestForgeProtectionPaysPerAttempt(t *testing.T) {
	st, _ := store.NewFileStore(t.TempDir())
	id, item := drawOne(t, newService(t, st, constRNG(0)))
	unlucky := newService(t, st, constRNG(0.999))

	if _, err := unlucky.Grant(context.Background(), id, 0, 2); err != nil {
		t.Fatal(err)
	}
	// 990 tokens left after the draw: 2 charms, then 198 bought at 5 each
	res, err := unlucky.Forge(context.Background(), id, item, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Outcomes) != 200 || res.Destroyed || res.Balance != 0 || res.Protections != 0 {
		t.Fatalf("attempts=%d destroyed=%v balance=%d charms=%d", len(res.Outcomes), res.Destroyed, res.Balance, res.Protections)
	}
	for _, o := range res.Outcomes {
		if o.Kind != forge.ProtectedFailure {
			t.Fatalf("unexpected outcome %+v", o)
		}
	}
	if _, err := unlucky.Forge(context.Background(), id, item, true, false); !errors.Is(err, service.ErrNoProtection) {
		t.Fatalf("expected ErrNoProtection, got %v", err)
	}
}

func TestStatsAndReset(t *testing.T) {
	ctx := context.Background()
	s := newService(t, nil, nil)
	p, _ := s.CreatePlayer(ctx)
	if _, err := s.Draw(ctx, p.ID, 50); err != nil {
		t.Fatal(err)
	}
	r, err := s.Stats(ctx, p.ID, audit.ScopeSession)
	if err != nil || r.Draws != 50 || len(r.Rows) != gacha.NumTiers {
		t.Fatalf("report=%+v err=%v", r, err)
	}
	if err := s.ResetStats(ctx, p.ID, audit.ScopeSession); err != nil {
		t.Fatal(err)
	}
	session, _ := s.Stats(ctx, p.ID, audit.ScopeSession)
	global, _ := s.Stats(ctx, p.ID, audit.ScopeGlobal)
	if session.Draws != 0 || global.Draws != 50 {
		t.Fatalf("session=%d global=%d", session.Draws, global.Draws)
	}
}

func TestReloadAndOdds(t *testing.T) {
	ctx := context.Background()
	s := newService(t, nil, nil)
	if got := s.Odds().Probs["SSS+"]; math.Abs(got-0.01) > 1e-12 {
		t.Fatalf("SSS+ prob=%v", got)
	}
	p := testParams()
	p.Weights = gacha.Table{gacha.TierD: 1}
	p.Pity.Enabled = false
	p.Guarantee.Enabled = false
	p.Version = "d-only"
	s.Reload(p)
	if s.Odds().Version != "d-only" {
		t.Fatalf("reload not visible")
	}
	pl, _ := s.CreatePlayer(ctx)
	res, err := s.Draw(ctx, pl.ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range res.Pulls {
		if d.Tier != gacha.TierD {
			t.Fatalf("drew %s after reload", d.Tier)
		}
	}
}

func TestQuote(t *testing.T) {
	ctx := context.Background()
	s := newService(t, nil, nil)
	p, _ := s.CreatePlayer(ctx)

	// 100 draws go as ten-packs: 900 of the 1000 balance
	q, err := s.Quote(ctx, p.ID, 100, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if q.Cost != 900 || q.Shortfall != 0 || len(q.Plan.Purchases) != 0 {
		t.Fatalf("quote %+v", q)
	}

	// 15 draws are charged singly: 150 + 200 charms * 5 = 1150, short 150
	q, err = s.Quote(ctx, p.ID, 15, 200, false)
	if err != nil {
		t.Fatal(err)
	}
	if q.Cost != 1150 || q.Shortfall != 150 || q.Plan.TotalCents != 398 {
		t.Fatalf("quote %+v", q)
	}
	q, _ = s.Quote(ctx, p.ID, 15, 200, true)
	if q.Plan.TotalCents != 199 || q.Plan.TotalTokens != 200 {
		t.Fatalf("first-time quote %+v", q.Plan)
	}

	if _, err := s.Quote(ctx, p.ID, -1, 0, false); !errors.Is(err, service.ErrInvalidCount) {
		t.Fatalf("expected ErrInvalidCount, got %v", err)
	}
}
