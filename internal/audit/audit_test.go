package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/xtding233/gacha-forge/internal/audit"
	"github.com/xtding233/gacha-forge/internal/gacha"
)

var referenceWeights = gacha.Table{1, 2, 5, 10, 20, 25, 25, 12}

func TestHistoryRecord(t *testing.T) {
	var h audit.History
	if err := h.Record(gacha.TierS, gacha.TierD, gacha.TierD); err != nil {
		t.Fatal(err)
	}
	if h.Session.Draws != 3 || h.Global.Draws != 3 || h.Global.Counts[gacha.TierD] != 2 {
		t.Fatalf("unexpected history %+v", h)
	}
	h.ResetSession()
	if h.Session.Draws != 0 || h.Global.Draws != 3 {
		t.Fatalf("session reset touched global: %+v", h)
	}
	if !h.Session.Valid() || !h.Global.Valid() {
		t.Fatalf("sum invariant broken")
	}
	if err := h.Record(gacha.TierA, gacha.Tier(42)); !errors.Is(err, gacha.ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
	if h.Global.Draws != 3 {
		t.Fatalf("partial record on invalid tier")
	}
	h.ResetGlobal()
	if h.Global.Draws != 0 {
		t.Fatalf("global not reset")
	}
}

func TestAccumulatorValid(t *testing.T) {
	a := audit.Accumulator{Draws: 2}
	a.Counts[gacha.TierA] = 1
	if a.Valid() {
		t.Fatalf("draws=2 with one count must be invalid")
	}
}

func TestChiSquareExactFit(t *testing.T) {
	probs := gacha.Normalize(referenceWeights)
	exp := audit.ExpectedCounts(1000, probs)
	var obs [gacha.NumTiers]int
	for i, e := range exp {
		obs[i] = int(math.Round(e))
	}
	chi2, dof := audit.ChiSquare(obs, exp)
	if math.Abs(chi2) > 1e-9 {
		t.Fatalf("chi2=%v want 0", chi2)
	}
	if dof != gacha.NumTiers-1 {
		t.Fatalf("dof=%d", dof)
	}
	if p := audit.PValue(chi2, dof); math.Abs(p-1) > 1e-9 {
		t.Fatalf("p=%v want 1", p)
	}
}

func TestChiSquareSkewed(t *testing.T) {
	var uniform gacha.Table
	for i := range uniform {
		uniform[i] = 1.0 / float64(gacha.NumTiers)
	}
	var obs [gacha.NumTiers]int
	obs[gacha.TierSSSPlus] = 1000
	chi2, dof := audit.ChiSquare(obs, audit.ExpectedCounts(1000, uniform))
	if p := audit.PValue(chi2, dof); p > 1e-12 {
		t.Fatalf("p=%v for all mass on the rarest tier", p)
	}
}

func TestPValueKnownQuantiles(t *testing.T) {
	cases := []struct {
		chi2 float64
		dof  int
		want float64
	}{
		{3.841458820694124, 1, 0.05},
		{11.070497693516351, 5, 0.05},
		{6.634896601021214, 1, 0.01},
		{2, 2, math.Exp(-1)},
	}
	for _, c := range cases {
		if got := audit.PValue(c.chi2, c.dof); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("PValue(%v,%d)=%v want %v", c.chi2, c.dof, got, c.want)
		}
	}
}

func TestPValueMatchesGonum(t *testing.T) {
	for dof := 1; dof <= 30; dof++ {
		for _, x := range []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80} {
			want := distuv.ChiSquared{K: float64(dof)}.Survival(x)
			got := audit.PValue(x, dof)
			if math.Abs(got-want) > 1e-10 {
				t.Fatalf("dof=%d x=%v: got %v gonum %v", dof, x, got, want)
			}
		}
	}
}

func TestPValueNoTest(t *testing.T) {
	for _, dof := range []int{0, -1} {
		if p := audit.PValue(3, dof); !math.IsNaN(p) {
			t.Fatalf("dof=%d p=%v want NaN", dof, p)
		}
	}
}

func TestComputeStatsSmallSample(t *testing.T) {
	acc := audit.Accumulator{Draws: 100, Counts: [gacha.NumTiers]int{1, 2, 5, 10, 20, 25, 25, 12}}
	r := audit.ComputeStats(acc, gacha.Normalize(referenceWeights))
	if r.DOF != 5 {
		t.Fatalf("dof=%d want 5", r.DOF)
	}
	for _, row := range r.Rows {
		want := audit.Included
		if row.Tier == gacha.TierSSSPlus || row.Tier == gacha.TierSSPlus {
			want = audit.InsufficientSample
		}
		if row.Status != want {
			t.Fatalf("%s status=%s want %s", row.Tier, row.Status, want)
		}
	}
	if math.Abs(r.Critical-11.070497693516351) > 1e-6 {
		t.Fatalf("critical=%v", r.Critical)
	}
	if !r.Consistent(audit.DefaultAlpha) {
		t.Fatalf("exact counts must be consistent: %+v", r)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	r := audit.ComputeStats(audit.Accumulator{}, gacha.Normalize(referenceWeights))
	if !math.IsNaN(r.PValue) || r.Consistent(0.05) {
		t.Fatalf("empty accumulator must not produce a test: %+v", r)
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(b, []byte(`"p_value":null`)) || !bytes.Contains(b, []byte(`"tier":"SSS+"`)) {
		t.Fatalf("unexpected json %s", b)
	}
}

func TestSeededDrawsAreConsistent(t *testing.T) {
	m, err := gacha.NewMachine(referenceWeights, gacha.PityConfig{Floor: gacha.TierSSSPlus, Span: 1}, gacha.GuaranteeConfig{}, gacha.NewRNG("audit"))
	if err != nil {
		t.Fatal(err)
	}
	var st gacha.PityState
	b, err := m.DrawBatch(context.Background(), 20000, &st, gacha.BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	var h audit.History
	if err := h.Record(b.Tiers()...); err != nil {
		t.Fatal(err)
	}
	r := audit.ComputeStats(h.Global, m.Probs())
	if !r.Consistent(1e-4) {
		t.Fatalf("seeded open draws rejected: chi2=%v p=%v", r.Chi2, r.PValue)
	}
}

func TestRender(t *testing.T) {
	acc := audit.Accumulator{Draws: 1000, Counts: [gacha.NumTiers]int{10, 20, 50, 100, 200, 250, 250, 120}}
	var buf bytes.Buffer
	if err := audit.Render(&buf, "Fairness", audit.ComputeStats(acc, gacha.Normalize(referenceWeights))); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Fairness", "SSS+", "draws: 1,000", "consistent"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}
