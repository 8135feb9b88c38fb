// resolve.go
package game

import (
	"fmt"

	"github.com/xtding233/gacha-forge/internal/forge"
	"github.com/xtding233/gacha-forge/internal/gacha"
	"github.com/xtding233/gacha-forge/internal/pricing"
	"github.com/xtding233/gacha-forge/internal/token"
)

// Tiers used when a config enables nothing but still needs a floor to count against.
const (
	defaultPityFloor     = gacha.TierS
	defaultGuaranteeTier = gacha.TierA
	defaultTokenName     = "token"
)

// Overrides are applied after default → game → pool, e.g. from CLI flags.
type Overrides struct {
	Seed        *string
	PityEnabled *bool
	PitySpan    *int
	Guarantee   *bool
}

type Resolver interface {
	// Returns merged RawConfig and normalized EngineParams
	Resolve(game, pool string, o Overrides) (RawConfig, EngineParams, error)
}

var _ Resolver = (*Loader)(nil)

// Resolve loads, merges, validates and normalizes a game/pool config. Ladder
// entries outside their valid range are replaced and logged at warn level.
func (l *Loader) Resolve(game, pool string, o Overrides) (RawConfig, EngineParams, error) {
	raw, err := l.LoadMerged(game, pool)
	if err != nil {
		return RawConfig{}, EngineParams{}, err
	}
	raw = applyOverrides(raw, o)
	if err := ValidateRaw(raw); err != nil {
		return raw, EngineParams{}, err
	}
	p, err := Normalize(raw)
	if err != nil {
		return raw, EngineParams{}, err
	}
	for _, c := range p.Corrections {
		l.log.Warn("ladder correction", "game", game, "pool", pool,
			"level", c.Level, "field", c.Field, "got", c.Got, "want", c.Want)
	}
	return raw, p, nil
}

func applyOverrides(raw RawConfig, o Overrides) RawConfig {
	var layer RawConfig
	if o.Seed != nil {
		layer.RNG = &RNGConfig{Seed: o.Seed}
	}
	if o.PityEnabled != nil || o.PitySpan != nil {
		layer.Draw.Pity = &PityCfg{Enabled: o.PityEnabled, Span: o.PitySpan}
	}
	if o.Guarantee != nil {
		layer.Draw.Guarantee = &GuaranteeCfg{Enabled: o.Guarantee}
	}
	return mergeRaw(raw, layer)
}

// Normalize turns a validated RawConfig into EngineParams. Unset sections fall
// back to the built-in stat table and ladder.
func Normalize(raw RawConfig) (EngineParams, error) {
	p := EngineParams{
		Pity:      gacha.PityConfig{Floor: defaultPityFloor},
		Guarantee: gacha.GuaranteeConfig{Tier: defaultGuaranteeTier},
		Stats:     gacha.DefaultStatTable(),
		Ladder:    forge.DefaultLadder(),
		Token:     token.Token{Name: defaultTokenName},
		Version:   raw.Version,
	}
	if raw.RNG != nil && raw.RNG.Seed != nil {
		p.Seed = *raw.RNG.Seed
	}

	for name, w := range raw.Draw.Weights {
		t, err := gacha.ParseTier(name)
		if err != nil {
			return EngineParams{}, err
		}
		p.Weights[t] = w
	}

	if pc := raw.Draw.Pity; pc != nil {
		if pc.Enabled != nil {
			p.Pity.Enabled = *pc.Enabled
		}
		if pc.Span != nil {
			p.Pity.Span = *pc.Span
		}
		if pc.Floor != "" {
			t, err := gacha.ParseTier(pc.Floor)
			if err != nil {
				return EngineParams{}, err
			}
			p.Pity.Floor = t
		}
	}
	if gc := raw.Draw.Guarantee; gc != nil {
		if gc.Enabled != nil {
			p.Guarantee.Enabled = *gc.Enabled
		}
		if gc.Tier != "" {
			t, err := gacha.ParseTier(gc.Tier)
			if err != nil {
				return EngineParams{}, err
			}
			p.Guarantee.Tier = t
		}
	}

	if raw.Items != nil {
		for name, r := range raw.Items.Ranges {
			t, err := gacha.ParseTier(name)
			if err != nil {
				return EngineParams{}, err
			}
			if len(r.Atk) == 2 {
				p.Stats.Set(t, gacha.KindAtk, gacha.StatRange{Lo: r.Atk[0], Hi: r.Atk[1]})
			}
			if len(r.Def) == 2 {
				p.Stats.Set(t, gacha.KindDef, gacha.StatRange{Lo: r.Def[0], Hi: r.Def[1]})
			}
		}
	}

	if f := raw.Forge; f != nil {
		mult, succ := p.Ladder.Multipliers[:], p.Ladder.SuccessProb[:]
		if len(f.Multipliers) > 0 {
			mult = f.Multipliers
		}
		if len(f.Success) > 0 {
			succ = f.Success
		}
		l, err := forge.NewLadder(mult, succ)
		if err != nil {
			return EngineParams{}, err
		}
		p.Ladder = l
	}
	p.Corrections = p.Ladder.Sanitize()
	if err := p.Ladder.Validate(); err != nil {
		return EngineParams{}, fmt.Errorf("forge ladder: %w", err)
	}

	if tc := raw.Tokens; tc != nil {
		if tc.Name != "" {
			p.Token.Name = tc.Name
		}
		p.Token.PerDraw = deref(tc.PerDraw)
		p.Token.PerTenDraw = deref(tc.PerTenDraw)
		p.Token.PerProtect = deref(tc.PerProtect)
		p.Token.StartingBalance = deref(tc.StartingBalance)
	}

	if sh := raw.Shop; sh != nil {
		p.Shop.Currency = sh.Currency
		if sh.TaxRate != nil {
			p.Shop.TaxRate = *sh.TaxRate
		}
		for _, pk := range sh.Packs {
			p.Shop.Packs = append(p.Shop.Packs, pricing.Pack(pk))
		}
	}

	// fail at load time on anything NewMachine would reject
	if _, err := p.NewMachine(gacha.NewRNG("validate")); err != nil {
		return EngineParams{}, err
	}
	return p, nil
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
