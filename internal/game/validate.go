package game

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/xtding233/gacha-forge/internal/forge"
	"github.com/xtding233/gacha-forge/internal/gacha"
)

var ErrInvalidConfig = errors.New("config validation failed")

// ValidateRaw checks semantic constraints of a merged RawConfig and reports
// every problem at once. Ladder entries that are merely out of range are not
// errors here; Resolve sanitizes them.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	// draw.weights
	if len(cfg.Draw.Weights) == 0 {
		errs = append(errs, "draw.weights is required")
	}
	total := 0.0
	for _, name := range slices.Sorted(maps.Keys(cfg.Draw.Weights)) {
		w := cfg.Draw.Weights[name]
		if _, err := gacha.ParseTier(name); err != nil {
			errs = append(errs, fmt.Sprintf("draw.weights: unknown tier %q", name))
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			errs = append(errs, fmt.Sprintf("draw.weights[%s] must be a finite number >= 0", name))
			continue
		}
		total += w
	}
	if len(cfg.Draw.Weights) > 0 && !(total > 0) {
		errs = append(errs, "draw.weights must have a positive total")
	}

	// draw.pity
	if p := cfg.Draw.Pity; p != nil {
		if p.Floor != "" {
			if _, err := gacha.ParseTier(p.Floor); err != nil {
				errs = append(errs, fmt.Sprintf("draw.pity.floor: unknown tier %q", p.Floor))
			}
		}
		if p.Enabled != nil && *p.Enabled {
			if p.Span == nil || *p.Span < 1 {
				errs = append(errs, "draw.pity.span must be >= 1 when pity is enabled")
			}
			if p.Floor == "" {
				errs = append(errs, "draw.pity.floor is required when pity is enabled")
			}
		}
	}

	// draw.guarantee
	if g := cfg.Draw.Guarantee; g != nil {
		if g.Tier != "" {
			if _, err := gacha.ParseTier(g.Tier); err != nil {
				errs = append(errs, fmt.Sprintf("draw.guarantee.tier: unknown tier %q", g.Tier))
			}
		} else if g.Enabled != nil && *g.Enabled {
			errs = append(errs, "draw.guarantee.tier is required when the guarantee is enabled")
		}
	}

	// items.ranges
	if cfg.Items != nil {
		for _, name := range slices.Sorted(maps.Keys(cfg.Items.Ranges)) {
			if _, err := gacha.ParseTier(name); err != nil {
				errs = append(errs, fmt.Sprintf("items.ranges: unknown tier %q", name))
				continue
			}
			r := cfg.Items.Ranges[name]
			errs = appendRangeErr(errs, "items.ranges."+name+".atk", r.Atk)
			errs = appendRangeErr(errs, "items.ranges."+name+".def", r.Def)
		}
	}

	// forge
	if f := cfg.Forge; f != nil {
		if n := len(f.Multipliers); n > 0 && n != forge.MaxLevel+1 {
			errs = append(errs, fmt.Sprintf("forge.multipliers must have %d entries, got %d", forge.MaxLevel+1, n))
		}
		if n := len(f.Success); n > 0 && n != forge.MaxLevel+1 {
			errs = append(errs, fmt.Sprintf("forge.success must have %d entries, got %d", forge.MaxLevel+1, n))
		}
	}

	// tokens (optional)
	if t := cfg.Tokens; t != nil {
		for _, f := range []struct {
			name string
			v    *int
		}{
			{"per_draw", t.PerDraw},
			{"per_ten_draw", t.PerTenDraw},
			{"per_protect", t.PerProtect},
			{"starting_balance", t.StartingBalance},
		} {
			if f.v != nil && *f.v < 0 {
				errs = append(errs, "tokens."+f.name+" must be >= 0")
			}
		}
	}

	// shop (optional)
	if sh := cfg.Shop; sh != nil {
		if sh.TaxRate != nil && (math.IsNaN(*sh.TaxRate) || *sh.TaxRate < 0 || *sh.TaxRate >= 1) {
			errs = append(errs, "shop.tax_rate must be in [0, 1)")
		}
		seen := make(map[string]bool, len(sh.Packs))
		for i, pk := range sh.Packs {
			switch {
			case pk.ID == "":
				errs = append(errs, fmt.Sprintf("shop.packs[%d].id is required", i))
			case seen[pk.ID]:
				errs = append(errs, fmt.Sprintf("shop.packs: duplicate id %q", pk.ID))
			}
			seen[pk.ID] = true
			if pk.PriceCents <= 0 {
				errs = append(errs, fmt.Sprintf("shop.packs[%d].price_cents must be > 0", i))
			}
			if pk.Tokens < 0 || pk.BonusTokens < 0 || pk.Tokens+pk.BonusTokens == 0 {
				errs = append(errs, fmt.Sprintf("shop.packs[%d] must grant a positive number of tokens", i))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

func appendRangeErr(errs []string, field string, r []int) []string {
	switch {
	case r == nil:
		return errs
	case len(r) != 2:
		return append(errs, field+" must be [lo, hi]")
	case r[0] < 0 || r[0] > r[1]:
		return append(errs, fmt.Sprintf("%s must satisfy 0 <= lo <= hi, got [%d, %d]", field, r[0], r[1]))
	}
	return errs
}
