package gacha

import (
	"errors"
	"fmt"
	"math"
)

var ErrNegativeWeight = errors.New("invalid weight; must be finite and >= 0")

// PullKind tells presentation whether a result was rolled freely or forced.
type PullKind uint8

const (
	PullNormal PullKind = iota
	PullPity
	PullGuarantee
)

func (k PullKind) String() string {
	switch k {
	case PullPity:
		return "pity"
	case PullGuarantee:
		return "guarantee"
	default:
		return "normal"
	}
}

func (k PullKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PullKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "normal":
		*k = PullNormal
	case "pity":
		*k = PullPity
	case "guarantee":
		*k = PullGuarantee
	default:
		return fmt.Errorf("unknown pull kind %q", b)
	}
	return nil
}

// Pull is one draw's result.
type Pull struct {
	Tier Tier     `json:"tier"`
	Kind PullKind `json:"kind"`
}

// GuaranteeConfig forces the 10th draw of a 10-batch into tiers >= Tier when
// none of the first nine qualified.
type GuaranteeConfig struct {
	Enabled bool `json:"enabled"`
	Tier    Tier `json:"tier"`
}

// Machine bundles the draw configuration with a random source. It holds no
// per-player state: pity counters are passed in by the caller.
type Machine struct {
	Weights   Table
	Pity      PityConfig
	Guarantee GuaranteeConfig
	RNG       RandomSource
}

// NewMachine validates the configuration once so the draw path stays error free.
// If rng is nil the crypto source is used.
func NewMachine(weights Table, pity PityConfig, guarantee GuaranteeConfig, rng RandomSource) (*Machine, error) {
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, fmt.Errorf("%w: %s=%v", ErrNegativeWeight, Tier(i), w)
		}
	}
	if !(weights.Sum() > 0) {
		return nil, ErrDegenerateDistribution
	}
	if err := pity.validate(); err != nil {
		return nil, err
	}
	if !guarantee.Tier.Valid() {
		return nil, fmt.Errorf("guarantee tier: %w", ErrInvalidTier)
	}
	if rng == nil {
		rng = NewRNG("")
	}
	return &Machine{Weights: weights, Pity: pity, Guarantee: guarantee, RNG: rng}, nil
}

// Probs derives probabilities from the weights on every read.
func (m *Machine) Probs() Table { return Normalize(m.Weights) }

// DrawOne performs one draw under the pity rules:
//   - pity due (Counter >= Span-1): forced pick over tiers >= Floor, Counter = 0
//   - otherwise: open pick; Counter resets on >= Floor, else Counter++
func (m *Machine) DrawOne(st *PityState) (Pull, error) {
	return m.draw(st, nil)
}

// draw runs one draw; a non-nil guarantee floor bounds the result from below
// while pity bookkeeping still treats it as a normal draw.
func (m *Machine) draw(st *PityState, guarantee *Tier) (Pull, error) {
	probs := m.Probs()
	if !(probs.Sum() > 0) {
		return Pull{}, ErrDegenerateDistribution
	}

	if m.Pity.due(st) {
		floor := m.Pity.Floor
		kind := PullPity
		if guarantee != nil && *guarantee < floor {
			floor = *guarantee
			kind = PullGuarantee
		}
		t := RescaledPick(TiersAtLeast(floor), probs, m.RNG)
		st.Counter = 0
		return Pull{Tier: t, Kind: kind}, nil
	}

	if guarantee != nil {
		t := RescaledPick(TiersAtLeast(*guarantee), probs, m.RNG)
		st.settle(m.Pity, t)
		return Pull{Tier: t, Kind: PullGuarantee}, nil
	}

	t, err := ChooseTier(probs, m.RNG)
	if err != nil {
		return Pull{}, err
	}
	st.settle(m.Pity, t)
	return Pull{Tier: t, Kind: PullNormal}, nil
}
