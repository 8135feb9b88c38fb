package gacha

import (
	"context"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// TrialGoal selects what the simulation measures per trial.
type TrialGoal string

const (
	// Draws until the first result at or above SimParams.Target.
	GoalFirstFloor TrialGoal = "first_floor"
	// Given a fixed budget N, count results at or above SimParams.Target.
	GoalFixedBudget TrialGoal = "fixed_budget"
)

// SimParams describes the mechanics for one simulation run.
type SimParams struct {
	Weights   Table
	Pity      PityConfig
	Guarantee GuaranteeConfig
	Target    Tier

	// BatchSize groups draws into batches (1 = singles, 10 = ten-pulls with guarantee).
	BatchSize int
	// NumDraws is the budget per trial for GoalFixedBudget.
	NumDraws int
	// Cushion is the pity counter carried into each trial.
	Cushion int
	// Seed makes the run reproducible; trial i uses "<Seed>#<i>". Empty means secure RNG.
	Seed string
}

// Stats summarizes simulation results.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	// Optional: raw samples if caller needs histograms/exports
	Samples []int `json:"-"`
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	fs := make([]float64, n)
	for i, v := range xs {
		fs[i] = float64(v)
	}
	mean, variance := stat.PopMeanVariance(fs, nil)
	slices.Sort(fs)
	return Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  math.Sqrt(variance),
		P50:     stat.Quantile(0.50, stat.LinInterp, fs, nil),
		P90:     stat.Quantile(0.90, stat.LinInterp, fs, nil),
		P99:     stat.Quantile(0.99, stat.LinInterp, fs, nil),
		Samples: xs,
	}
}

func (p SimParams) trialRNG(i int) RandomSource {
	if p.Seed == "" {
		return NewRNG("")
	}
	return NewRNG(fmt.Sprintf("%s#%d", p.Seed, i))
}

// simulateOne returns the primary metric for one trial depending on the goal.
func simulateOne(ctx context.Context, p SimParams, goal TrialGoal, trial int) (int, error) {
	m, err := NewMachine(p.Weights, p.Pity, p.Guarantee, p.trialRNG(trial))
	if err != nil {
		return 0, err
	}
	st := &PityState{Counter: max(p.Cushion, 0)}
	if p.Pity.Enabled && st.Counter >= p.Pity.Span {
		st.Counter = p.Pity.Span - 1
	}
	size := max(p.BatchSize, 1)

	switch goal {
	case GoalFirstFloor:
		draws := 0
		for {
			b, err := m.DrawBatch(ctx, size, st, BatchOptions{})
			if err != nil {
				return 0, err
			}
			for _, pull := range b.Pulls {
				draws++
				if pull.Tier.IsAtLeast(p.Target) {
					return draws, nil
				}
			}
			if b.Stop != StopCompleted {
				return draws, ctx.Err()
			}
		}

	case GoalFixedBudget:
		count := 0
		for left := p.NumDraws; left > 0; left -= size {
			b, err := m.DrawBatch(ctx, min(size, left), st, BatchOptions{})
			if err != nil {
				return 0, err
			}
			for _, pull := range b.Pulls {
				if pull.Tier.IsAtLeast(p.Target) {
					count++
				}
			}
			if b.Stop != StopCompleted {
				return count, ctx.Err()
			}
		}
		return count, nil
	}

	return 0, fmt.Errorf("unknown trial goal %q", goal)
}

func reachable(p SimParams) bool {
	probs := Normalize(p.Weights)
	for _, t := range TiersAtLeast(p.Target) {
		if probs[t] > 0 {
			return true
		}
	}
	return false
}

// RunMonteCarlo repeats trials and returns summary stats.
// goal determines what metric is recorded per trial.
func RunMonteCarlo(ctx context.Context, p SimParams, goal TrialGoal, trials int) (Stats, error) {
	if trials <= 0 {
		return Stats{}, nil
	}
	if !p.Target.Valid() {
		return Stats{}, fmt.Errorf("target: %w", ErrInvalidTier)
	}
	if goal == GoalFirstFloor && !reachable(p) {
		return Stats{}, fmt.Errorf("target %s can never be drawn: %w", p.Target, ErrDegenerateDistribution)
	}
	samples := make([]int, trials)
	for i := 0; i < trials; i++ {
		v, err := simulateOne(ctx, p, goal, i)
		if err != nil {
			return Stats{}, err
		}
		samples[i] = v
	}
	return calcStats(samples), nil
}
