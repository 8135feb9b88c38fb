package audit

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/xtding233/gacha-forge/internal/gacha"
)

// DefaultAlpha is the significance level used for the reported critical value.
const DefaultAlpha = 0.05

// Status says whether a tier took part in the chi-square statistic.
type Status uint8

const (
	Included Status = iota
	InsufficientSample
)

func (s Status) String() string {
	switch s {
	case Included:
		return "included"
	case InsufficientSample:
		return "insufficient_sample"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Row struct {
	Tier     gacha.Tier `json:"tier"`
	Prob     float64    `json:"prob"`
	Observed int        `json:"observed"`
	Expected float64    `json:"expected"`
	// Term is (O-E)^2/E, zero for excluded tiers.
	Term   float64 `json:"term"`
	Status Status  `json:"status"`
}

// Report is a goodness-of-fit check of observed tier counts against a probability table.
// PValue and Critical are NaN when fewer than two tiers have enough expected mass.
type Report struct {
	Draws    int     `json:"draws"`
	Rows     []Row   `json:"rows"`
	Chi2     float64 `json:"chi2"`
	DOF      int     `json:"dof"`
	PValue   float64 `json:"p_value"`
	Alpha    float64 `json:"alpha"`
	Critical float64 `json:"critical"`
}

// ComputeStats builds a Report from an accumulator. It never modifies acc.
func ComputeStats(acc Accumulator, probs gacha.Table) Report {
	expected := ExpectedCounts(acc.Draws, probs)
	chi2, dof := ChiSquare(acc.Counts, expected)
	r := Report{
		Draws:    acc.Draws,
		Rows:     make([]Row, 0, gacha.NumTiers),
		Chi2:     chi2,
		DOF:      dof,
		PValue:   PValue(chi2, dof),
		Alpha:    DefaultAlpha,
		Critical: CriticalValue(dof, DefaultAlpha),
	}
	for _, t := range gacha.Tiers() {
		row := Row{Tier: t, Prob: probs[t], Observed: acc.Counts[t], Expected: expected[t], Status: Included}
		if expected[t] < MinExpected {
			row.Status = InsufficientSample
		} else {
			d := float64(row.Observed) - row.Expected
			row.Term = d * d / row.Expected
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

// CriticalValue is the chi-square quantile at 1-alpha, NaN when dof <= 0.
func CriticalValue(dof int, alpha float64) float64 {
	if dof <= 0 || alpha <= 0 || alpha >= 1 {
		return math.NaN()
	}
	return distuv.ChiSquared{K: float64(dof)}.Quantile(1 - alpha)
}

// Consistent reports whether the observed counts pass the test at alpha.
// A report without a valid test is never consistent.
func (r Report) Consistent(alpha float64) bool {
	if math.IsNaN(r.PValue) {
		return false
	}
	return r.PValue >= alpha
}

// MarshalJSON writes NaN statistics as null; encoding/json rejects NaN.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		plain
		PValue   *float64 `json:"p_value"`
		Critical *float64 `json:"critical"`
	}{plain(r), finite(r.PValue), finite(r.Critical)})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
