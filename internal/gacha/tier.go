package gacha

import (
	"errors"
	"fmt"
)

var ErrInvalidTier = errors.New("invalid tier")

// Tier is a rarity rank. Lower values are rarer: TierSSSPlus is the rarest, TierD the commonest.
type Tier uint8

const (
	TierSSSPlus Tier = iota
	TierSSPlus
	TierSPlus
	TierS
	TierA
	TierB
	TierC
	TierD
	tierCount
)

// NumTiers is the size of the tier enumeration.
const NumTiers = int(tierCount)

var tierNames = [NumTiers]string{"SSS+", "SS+", "S+", "S", "A", "B", "C", "D"}

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tier(%d)", uint8(t))
	}
	return tierNames[t]
}

func (t Tier) Valid() bool { return t < tierCount }

// IsAtLeast reports whether t is as rare as floor or rarer.
func (t Tier) IsAtLeast(floor Tier) bool { return t <= floor }

// Rarest returns the rarer of a and b.
func Rarest(a, b Tier) Tier {
	if a < b {
		return a
	}
	return b
}

// ParseTier maps a display name ("SSS+", "A", ...) back to its Tier.
func ParseTier(s string) (Tier, error) {
	for i, name := range tierNames {
		if name == s {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTier, s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTier, uint8(t))
	}
	return []byte(tierNames[t]), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Tiers returns every tier, rarest first.
func Tiers() []Tier {
	out := make([]Tier, NumTiers)
	for i := range out {
		out[i] = Tier(i)
	}
	return out
}

// TiersAtLeast returns the tiers that satisfy IsAtLeast(floor), rarest first.
func TiersAtLeast(floor Tier) []Tier {
	if !floor.Valid() {
		return nil
	}
	out := make([]Tier, 0, int(floor)+1)
	for t := TierSSSPlus; t <= floor; t++ {
		out = append(out, t)
	}
	return out
}

// Table holds one number per tier, indexed by Tier. It carries raw weights or probabilities.
type Table [NumTiers]float64

func (tb Table) Sum() float64 {
	var s float64
	for _, v := range tb {
		s += v
	}
	return s
}

// Map converts the table to a name-keyed map for presentation.
func (tb Table) Map() map[string]float64 {
	out := make(map[string]float64, NumTiers)
	for i, v := range tb {
		out[tierNames[i]] = v
	}
	return out
}
