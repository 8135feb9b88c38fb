package gacha_test

import (
	"context"
	"slices"
	"testing"

	"github.com/xtding233/gacha-forge/internal/gacha"
)

func TestTenBatchGuarantee(t *testing.T) {
	w := gacha.Table{gacha.TierA: 1, gacha.TierD: 99}
	g := gacha.GuaranteeConfig{Enabled: true, Tier: gacha.TierA}
	m := newMachine(t, w, gacha.PityConfig{Floor: gacha.TierS}, g, fixed(0.999))

	b, err := m.DrawBatch(context.Background(), 10, &gacha.PityState{}, gacha.BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Pulls) != 10 || b.Stop != gacha.StopCompleted {
		t.Fatalf("got %d pulls stop=%s", len(b.Pulls), b.Stop)
	}
	for i, p := range b.Pulls[:9] {
		if p.Tier != gacha.TierD {
			t.Fatalf("pull %d: got %s", i, p.Tier)
		}
	}
	if last := b.Pulls[9]; last.Tier != gacha.TierA || last.Kind != gacha.PullGuarantee {
		t.Fatalf("10th pull should be guaranteed A, got %+v", last)
	}
}

func TestGuaranteeSkippedWhenMet(t *testing.T) {
	w := gacha.Table{gacha.TierA: 1, gacha.TierD: 99}
	g := gacha.GuaranteeConfig{Enabled: true, Tier: gacha.TierA}
	vals := []float64{0.0, 0.999, 0.999, 0.999, 0.999, 0.999, 0.999, 0.999, 0.999, 0.999}
	m := newMachine(t, w, gacha.PityConfig{Floor: gacha.TierS}, g, fixed(vals...))

	b, err := m.DrawBatch(context.Background(), 10, &gacha.PityState{}, gacha.BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if b.Pulls[0].Tier != gacha.TierA {
		t.Fatalf("first pull should be A, got %s", b.Pulls[0].Tier)
	}
	if last := b.Pulls[9]; last.Tier != gacha.TierD || last.Kind != gacha.PullNormal {
		t.Fatalf("10th pull should be ordinary, got %+v", last)
	}
}

func TestGuaranteeOnlyForTen(t *testing.T) {
	w := gacha.Table{gacha.TierA: 1, gacha.TierD: 99}
	g := gacha.GuaranteeConfig{Enabled: true, Tier: gacha.TierA}
	for _, n := range []int{1, 9, 11, 100} {
		m := newMachine(t, w, gacha.PityConfig{Floor: gacha.TierS}, g, fixed(0.999))
		b, err := m.DrawBatch(context.Background(), n, &gacha.PityState{}, gacha.BatchOptions{})
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range b.Pulls {
			if p.Kind == gacha.PullGuarantee {
				t.Fatalf("n=%d: guarantee applied outside a 10-batch", n)
			}
		}
	}
}

func TestGuaranteeProperty(t *testing.T) {
	g := gacha.GuaranteeConfig{Enabled: true, Tier: gacha.TierS}
	m := newMachine(t, referenceWeights, gacha.PityConfig{Floor: gacha.TierSSPlus}, g, gacha.NewRNG("ten-pulls"))
	st := &gacha.PityState{}
	for i := 0; i < 500; i++ {
		b, err := m.DrawBatch(context.Background(), 10, st, gacha.BatchOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if !slices.ContainsFunc(b.Pulls, func(p gacha.Pull) bool { return p.Tier.IsAtLeast(gacha.TierS) }) {
			t.Fatalf("batch %d has no S-or-better: %v", i, b.Tiers())
		}
	}
}

func TestPityAndGuaranteeTogether(t *testing.T) {
	w := gacha.Table{gacha.TierSSPlus: 1, gacha.TierS: 1, gacha.TierD: 98}
	pity := gacha.PityConfig{Enabled: true, Floor: gacha.TierS, Span: 10}
	g := gacha.GuaranteeConfig{Enabled: true, Tier: gacha.TierSSPlus}
	m := newMachine(t, w, pity, g, fixed(0.999))
	st := &gacha.PityState{}

	b, err := m.DrawBatch(context.Background(), 10, st, gacha.BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	last := b.Pulls[9]
	if last.Tier != gacha.TierSSPlus || last.Kind != gacha.PullGuarantee {
		t.Fatalf("10th pull should satisfy both floors, got %+v", last)
	}
	if st.Counter != 0 {
		t.Fatalf("counter=%d want 0", st.Counter)
	}
}

func TestBatchDeterminism(t *testing.T) {
	pity := gacha.PityConfig{Enabled: true, Floor: gacha.TierS, Span: 20}
	g := gacha.GuaranteeConfig{Enabled: true, Tier: gacha.TierA}
	run := func() []gacha.Tier {
		m := newMachine(t, referenceWeights, pity, g, gacha.NewRNG("test"))
		st := &gacha.PityState{}
		var out []gacha.Tier
		for _, n := range []int{10, 1, 100, 10} {
			b, err := m.DrawBatch(context.Background(), n, st, gacha.BatchOptions{})
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, b.Tiers()...)
		}
		return out
	}
	a, b := run(), run()
	if !slices.Equal(a, b) {
		t.Fatalf("same seed produced different sequences")
	}
	if len(a) != 121 {
		t.Fatalf("len=%d want 121", len(a))
	}
}

func TestBatchCancellation(t *testing.T) {
	m := newMachine(t, referenceWeights, gacha.PityConfig{}, gacha.GuaranteeConfig{}, gacha.NewRNG("cancel"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := 0
	b, err := m.DrawBatch(ctx, 100, &gacha.PityState{}, gacha.BatchOptions{
		OnProgress: func(i int, _ gacha.Pull) {
			seen++
			if i == 2 {
				cancel()
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Pulls) != 3 || b.Stop != gacha.StopCancelled || seen != 3 {
		t.Fatalf("got %d pulls (seen %d) stop=%s", len(b.Pulls), seen, b.Stop)
	}
}

func TestBatchCostCheck(t *testing.T) {
	m := newMachine(t, referenceWeights, gacha.PityConfig{}, gacha.GuaranteeConfig{}, gacha.NewRNG("cost"))
	budget := 4
	b, err := m.DrawBatch(context.Background(), 10, &gacha.PityState{}, gacha.BatchOptions{
		CanAfford:  func() bool { return budget > 0 },
		OnProgress: func(int, gacha.Pull) { budget-- },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(b.Pulls) != 4 || b.Stop != gacha.StopUnaffordable {
		t.Fatalf("got %d pulls stop=%s", len(b.Pulls), b.Stop)
	}
}

func TestPullsIterator(t *testing.T) {
	pity := gacha.PityConfig{Enabled: true, Floor: gacha.TierS, Span: 10}
	a := newMachine(t, referenceWeights, pity, gacha.GuaranteeConfig{}, gacha.NewRNG("iter"))
	b := newMachine(t, referenceWeights, pity, gacha.GuaranteeConfig{}, gacha.NewRNG("iter"))

	var lazy []gacha.Tier
	stA := &gacha.PityState{}
	for p, err := range a.Pulls(context.Background(), 50, stA, gacha.BatchOptions{}) {
		if err != nil {
			t.Fatal(err)
		}
		lazy = append(lazy, p.Tier)
	}
	stB := &gacha.PityState{}
	batch, err := b.DrawBatch(context.Background(), 50, stB, gacha.BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(lazy, batch.Tiers()) || stA.Counter != stB.Counter {
		t.Fatalf("iterator and DrawBatch diverged")
	}

	// breaking out early stops drawing
	taken := 0
	for range a.Pulls(context.Background(), 50, stA, gacha.BatchOptions{}) {
		taken++
		if taken == 5 {
			break
		}
	}
	if taken != 5 {
		t.Fatalf("taken=%d", taken)
	}
}
