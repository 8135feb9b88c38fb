package forge

import (
	"context"
	"fmt"
	"iter"

	"github.com/xtding233/gacha-forge/internal/gacha"
)

// OutcomeKind enumerates what a forge attempt can do to an item.
type OutcomeKind uint8

const (
	Success OutcomeKind = iota
	ProtectedFailure
	DestructiveFailure
	AlreadyMax
)

var outcomeNames = [...]string{"success", "protected_failure", "destructive_failure", "already_max"}

func (k OutcomeKind) String() string {
	if int(k) < len(outcomeNames) {
		return outcomeNames[k]
	}
	return fmt.Sprintf("OutcomeKind(%d)", uint8(k))
}

func (k OutcomeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *OutcomeKind) UnmarshalText(b []byte) error {
	for i, name := range outcomeNames {
		if name == string(b) {
			*k = OutcomeKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown forge outcome %q", b)
}

// Outcome is the result of one attempt. Level is the item's level afterwards
// (the new level on Success).
type Outcome struct {
	Kind  OutcomeKind `json:"kind"`
	Level int         `json:"level"`
}

// Terminal reports whether no further attempt on the item makes sense.
func (o Outcome) Terminal() bool {
	return o.Kind == AlreadyMax || o.Kind == DestructiveFailure
}

// Attempt tries to raise item one level:
//   - level >= MaxLevel: AlreadyMax, nothing drawn
//   - u < SuccessProb[level+1]: Success, item.Level++
//   - otherwise ProtectedFailure when protect is set, else DestructiveFailure
//
// The caller pays for protection before calling and removes a destroyed item
// from its owner; Attempt never touches inventories.
func Attempt(item *gacha.Item, l *Ladder, protect bool, rng gacha.RandomSource) Outcome {
	if item.Level >= MaxLevel {
		return Outcome{Kind: AlreadyMax, Level: item.Level}
	}
	if rng == nil {
		rng = gacha.NewRNG("")
	}
	target := max(item.Level, 0) + 1
	if rng.Float64() < l.SuccessProb[target] {
		item.Level = target
		return Outcome{Kind: Success, Level: target}
	}
	if protect {
		return Outcome{Kind: ProtectedFailure, Level: item.Level}
	}
	return Outcome{Kind: DestructiveFailure, Level: item.Level}
}

// Auto yields one Outcome per attempt until the item is maxed or destroyed,
// shouldContinue returns false, or ctx is done. Both checks run before each
// attempt; a maxed item yields AlreadyMax without consulting shouldContinue.
func Auto(ctx context.Context, item *gacha.Item, l *Ladder, protect bool, rng gacha.RandomSource, shouldContinue func(level int) bool) iter.Seq[Outcome] {
	return func(yield func(Outcome) bool) {
		for {
			if ctx.Err() != nil {
				return
			}
			if item.Level < MaxLevel && shouldContinue != nil && !shouldContinue(item.Level) {
				return
			}
			o := Attempt(item, l, protect, rng)
			if !yield(o) || o.Terminal() {
				return
			}
		}
	}
}

// RunAuto drains Auto.
func RunAuto(ctx context.Context, item *gacha.Item, l *Ladder, protect bool, rng gacha.RandomSource, shouldContinue func(level int) bool) []Outcome {
	var out []Outcome
	for o := range Auto(ctx, item, l, protect, rng, shouldContinue) {
		out = append(out, o)
	}
	return out
}
