package forge

import (
	"errors"
	"fmt"
	"math"

	"github.com/xtding233/gacha-forge/internal/gacha"
)

// MaxLevel is the terminal enhancement level.
const MaxLevel = 20

var ErrLadderLength = fmt.Errorf("ladder must have exactly %d entries", MaxLevel+1)

var ErrInvalidMultiplier = errors.New("invalid multiplier; must be > 0")

// Ladder is indexed by target level. SuccessProb[l] is the chance of going from
// l-1 to l; SuccessProb[0] is unused and kept at 0. Multipliers[0] is 1.
type Ladder struct {
	Multipliers [MaxLevel + 1]float64 `json:"multipliers"`
	SuccessProb [MaxLevel + 1]float64 `json:"success"`
}

// DefaultLadder is the built-in enhancement table.
func DefaultLadder() Ladder {
	return Ladder{
		Multipliers: [MaxLevel + 1]float64{
			1, 1.05, 1.1, 1.15, 1.2, 1.3, 1.4, 1.5, 1.6, 1.75, 1.9,
			2.05, 2.2, 2.4, 2.6, 2.8, 3.05, 3.3, 3.6, 3.9, 4.25,
		},
		SuccessProb: [MaxLevel + 1]float64{
			0, 0.99, 0.97, 0.95, 0.92, 0.9, 0.85, 0.8, 0.75, 0.7, 0.65,
			0.6, 0.55, 0.5, 0.45, 0.4, 0.35, 0.3, 0.25, 0.2, 0.15,
		},
	}
}

// NewLadder builds a ladder from config slices, which must each hold MaxLevel+1 entries.
// The result is not sanitized.
func NewLadder(multipliers, success []float64) (Ladder, error) {
	var l Ladder
	if len(multipliers) != MaxLevel+1 || len(success) != MaxLevel+1 {
		return l, fmt.Errorf("%w: got %d multipliers, %d probabilities", ErrLadderLength, len(multipliers), len(success))
	}
	copy(l.Multipliers[:], multipliers)
	copy(l.SuccessProb[:], success)
	return l, nil
}

// Correction records one ladder entry replaced by Sanitize.
type Correction struct {
	Level int     `json:"level"`
	Field string  `json:"field"` // "multiplier" or "success"
	Got   float64 `json:"got"`
	Want  float64 `json:"want"`
}

func (c Correction) String() string {
	return fmt.Sprintf("%s[%d]: %v -> %v", c.Field, c.Level, c.Got, c.Want)
}

// Sanitize replaces entries that would poison stat math. A multiplier that is
// not a positive finite number takes the rung below it (at least 1), so the
// ladder stays monotonic; probabilities outside [0,1] become 0. It returns
// what it changed.
func (l *Ladder) Sanitize() []Correction {
	var out []Correction
	for lvl := 0; lvl <= MaxLevel; lvl++ {
		m := l.Multipliers[lvl]
		if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
			want := 1.0
			if lvl > 0 {
				want = max(want, l.Multipliers[lvl-1])
			}
			out = append(out, Correction{Level: lvl, Field: "multiplier", Got: m, Want: want})
			l.Multipliers[lvl] = want
		}
		p := l.SuccessProb[lvl]
		if gacha.ValidateProb(p) != nil {
			out = append(out, Correction{Level: lvl, Field: "success", Got: p, Want: 0})
			l.SuccessProb[lvl] = 0
		}
	}
	return out
}

// Validate reports entries Sanitize would correct, plus non-monotonic multipliers.
func (l *Ladder) Validate() error {
	var errs []error
	for lvl := 0; lvl <= MaxLevel; lvl++ {
		if m := l.Multipliers[lvl]; math.IsNaN(m) || m <= 0 {
			errs = append(errs, fmt.Errorf("multipliers[%d]=%v: %w", lvl, m, ErrInvalidMultiplier))
		}
		if err := gacha.ValidateProb(l.SuccessProb[lvl]); err != nil {
			errs = append(errs, fmt.Errorf("success[%d]=%v: %w", lvl, l.SuccessProb[lvl], err))
		}
		if lvl > 0 && l.Multipliers[lvl] < l.Multipliers[lvl-1] {
			errs = append(errs, fmt.Errorf("multipliers[%d]=%v is below multipliers[%d]=%v", lvl, l.Multipliers[lvl], lvl-1, l.Multipliers[lvl-1]))
		}
	}
	return errors.Join(errs...)
}

// EffectiveStat is floor(base * multipliers[level]), with level clamped to [0, MaxLevel].
func (l *Ladder) EffectiveStat(base, level int) int {
	level = min(max(level, 0), MaxLevel)
	return int(math.Floor(float64(base) * l.Multipliers[level]))
}
