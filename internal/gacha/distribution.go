package gacha

import "errors"

var ErrDegenerateDistribution = errors.New("degenerate distribution: no tier has positive weight")

// Normalize turns raw weights into probabilities. A non-positive total yields the
// all-zero table, which ChooseTier reports as ErrDegenerateDistribution.
func Normalize(weights Table) Table {
	var probs Table
	total := weights.Sum()
	if !(total > 0) {
		return probs
	}
	for i, w := range weights {
		probs[i] = w / total
	}
	return probs
}

// ChooseTier walks the tiers rarest first, accumulating probability mass, and
// returns the first tier whose cumulative mass exceeds u. Rounding that leaves
// u past the last boundary falls back to the commonest tier.
func ChooseTier(probs Table, rng RandomSource) (Tier, error) {
	if !(probs.Sum() > 0) {
		return 0, ErrDegenerateDistribution
	}
	if rng == nil {
		rng = NewRNG("")
	}
	u := rng.Float64()
	var cum float64
	for i, p := range probs {
		cum += p
		if u < cum {
			return Tier(i), nil
		}
	}
	return TierD, nil
}

// RescaledPick is ChooseTier restricted to allowed, renormalized over the
// allowed tiers only. It never fails:
//   - empty allowed: the commonest tier carrying probability (TierD if none)
//   - allowed with zero mass: the least rare allowed tier, without consuming rng
func RescaledPick(allowed []Tier, probs Table, rng RandomSource) Tier {
	var mask [NumTiers]bool
	least, found := TierSSSPlus, false
	for _, t := range allowed {
		if !t.Valid() {
			continue
		}
		mask[t] = true
		if !found || t > least {
			least = t
		}
		found = true
	}
	if !found {
		for i := NumTiers - 1; i >= 0; i-- {
			if probs[i] > 0 {
				return Tier(i)
			}
		}
		return TierD
	}

	var total float64
	for i, p := range probs {
		if mask[i] {
			total += p
		}
	}
	if !(total > 0) {
		return least
	}
	if rng == nil {
		rng = NewRNG("")
	}
	u := rng.Float64() * total
	var cum float64
	for i, p := range probs {
		if !mask[i] {
			continue
		}
		cum += p
		if u < cum {
			return Tier(i)
		}
	}
	return least
}
