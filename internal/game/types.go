// types.go
package game

import (
	"github.com/xtding233/gacha-forge/internal/forge"
	"github.com/xtding233/gacha-forge/internal/gacha"
	"github.com/xtding233/gacha-forge/internal/pricing"
	"github.com/xtding233/gacha-forge/internal/token"
)

// Raw config loaded from YAML. Pointer and map fields stay nil when a layer
// does not set them, so later layers only override what they mention.
type RawConfig struct {
	Version string       `yaml:"version"`
	RNG     *RNGConfig   `yaml:"rng,omitempty"`
	Draw    DrawConfig   `yaml:"draw"`
	Items   *ItemsConfig `yaml:"items,omitempty"`
	Forge   *ForgeConfig `yaml:"forge,omitempty"`
	Tokens  *TokenConfig `yaml:"tokens,omitempty"`
	Shop    *ShopConfig  `yaml:"shop,omitempty"`
	Notes   string       `yaml:"notes,omitempty"`
}

type RNGConfig struct {
	Seed *string `yaml:"seed"` // empty selects the secure source
}

type DrawConfig struct {
	Weights   map[string]float64 `yaml:"weights"` // tier name -> raw weight
	Pity      *PityCfg           `yaml:"pity,omitempty"`
	Guarantee *GuaranteeCfg      `yaml:"guarantee,omitempty"`
}

type PityCfg struct {
	Enabled *bool  `yaml:"enabled"`
	Floor   string `yaml:"floor"`
	Span    *int   `yaml:"span"`
}

type GuaranteeCfg struct {
	Enabled *bool  `yaml:"enabled"`
	Tier    string `yaml:"tier"`
}

type ItemsConfig struct {
	Ranges map[string]RangeCfg `yaml:"ranges"` // tier name -> ranges
}

type RangeCfg struct {
	Atk []int `yaml:"atk,flow"` // [lo, hi]
	Def []int `yaml:"def,flow"`
}

type ForgeConfig struct {
	Multipliers []float64 `yaml:"multipliers,flow"`
	Success     []float64 `yaml:"success,flow"`
}

type TokenConfig struct {
	Name            string `yaml:"name"`
	PerDraw         *int   `yaml:"per_draw"`
	PerTenDraw      *int   `yaml:"per_ten_draw"`
	PerProtect      *int   `yaml:"per_protect"`
	StartingBalance *int   `yaml:"starting_balance"`
}

// ShopConfig is the pack catalog used for top-up quotes. Packs in a later
// layer replace the whole list.
type ShopConfig struct {
	Currency string    `yaml:"currency"`
	TaxRate  *float64  `yaml:"tax_rate"`
	Packs    []PackCfg `yaml:"packs"`
}

type PackCfg struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Tokens      int    `yaml:"tokens"`
	BonusTokens int    `yaml:"bonus_tokens"`
	FirstTimeX2 bool   `yaml:"first_time_x2"`
	PriceCents  int    `yaml:"price_cents"`
}

// Normalized engine params used by internal/gacha and internal/forge.
type EngineParams struct {
	Weights     gacha.Table
	Pity        gacha.PityConfig
	Guarantee   gacha.GuaranteeConfig
	Stats       gacha.StatTable
	Ladder      forge.Ladder
	Corrections []forge.Correction // ladder entries replaced while resolving
	Seed        string
	Token       token.Token
	Shop        pricing.Catalog
	Version     string // effective config version for tracing
}

// NewMachine builds a draw machine over these params. A nil rng selects
// NewRNG(Seed).
func (p EngineParams) NewMachine(rng gacha.RandomSource) (*gacha.Machine, error) {
	if rng == nil {
		rng = gacha.NewRNG(p.Seed)
	}
	return gacha.NewMachine(p.Weights, p.Pity, p.Guarantee, rng)
}
