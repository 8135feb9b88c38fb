package game

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Paths helper for default/game/pool files.
type Paths struct {
	BaseDir string // base directory, e.g., /opt/app/config
}

func (p Paths) DefaultPath() string {
	return filepath.Join(p.BaseDir, "games", "default.yaml")
}
func (p Paths) GamePath(game string) string {
	return filepath.Join(p.BaseDir, "games", game+".yaml")
}
func (p Paths) PoolPath(game, pool string) string {
	return filepath.Join(p.BaseDir, "games", game, "pools", pool+".yaml")
}

// Files lists every file that contributes to game/pool, in merge order.
func (p Paths) Files(game, pool string) []string {
	out := []string{p.DefaultPath()}
	if game != "" {
		out = append(out, p.GamePath(game))
		if pool != "" {
			out = append(out, p.PoolPath(game, pool))
		}
	}
	return out
}

// Loader reads YAML configs and merges default → game → pool.
type Loader struct {
	paths Paths
	log   *slog.Logger

	mu    sync.RWMutex
	cache map[string]RawConfig // key: "game" or "game/pool"
}

// NewLoader creates a config loader with the given base directory. A nil
// logger discards ladder-correction warnings.
func NewLoader(baseDir string, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		log:   log,
		cache: make(map[string]RawConfig),
	}
}

func (l *Loader) Paths() Paths { return l.paths }

// LoadMerged loads and merges default → game → pool (game and pool optional).
// It returns the merged RawConfig (without normalization).
func (l *Loader) LoadMerged(game, pool string) (RawConfig, error) {
	key := game
	if pool != "" {
		key = game + "/" + pool
	}
	l.mu.RLock()
	if cfg, ok := l.cache[key]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	merged, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	if game != "" {
		gameCfg, err := readYAML(l.paths.GamePath(game)) // game file may not exist
		if err != nil {
			return RawConfig{}, fmt.Errorf("read game %s: %w", game, err)
		}
		merged = mergeRaw(merged, gameCfg)
		if pool != "" {
			poolCfg, err := readYAML(l.paths.PoolPath(game, pool)) // pool file optional
			if err != nil {
				return RawConfig{}, fmt.Errorf("read pool %s/%s: %w", game, pool, err)
			}
			merged = mergeRaw(merged, poolCfg)
		}
	}

	l.mu.Lock()
	l.cache[key] = merged
	l.mu.Unlock()
	return merged, nil
}

// Invalidate clears loader's cache. Call after hot-reload detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
}

// readYAML loads a YAML file into RawConfig. Missing files return zero cfg, no error.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, nil
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// mergeRaw performs a deep merge: 'b' overrides 'a' wherever b sets a field.
// Maps merge per key; slices in 'b' replace those in 'a'. Neither input is mutated.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	// top-level scalars
	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}
	if b.RNG != nil && b.RNG.Seed != nil {
		out.RNG = &RNGConfig{Seed: b.RNG.Seed}
	}

	// draw
	out.Draw.Weights = mergeMap(a.Draw.Weights, b.Draw.Weights)
	switch {
	case b.Draw.Pity == nil:
	case out.Draw.Pity == nil:
		c := *b.Draw.Pity
		out.Draw.Pity = &c
	default:
		c := *out.Draw.Pity
		if b.Draw.Pity.Enabled != nil {
			c.Enabled = b.Draw.Pity.Enabled
		}
		if b.Draw.Pity.Floor != "" {
			c.Floor = b.Draw.Pity.Floor
		}
		if b.Draw.Pity.Span != nil {
			c.Span = b.Draw.Pity.Span
		}
		out.Draw.Pity = &c
	}
	switch {
	case b.Draw.Guarantee == nil:
	case out.Draw.Guarantee == nil:
		c := *b.Draw.Guarantee
		out.Draw.Guarantee = &c
	default:
		c := *out.Draw.Guarantee
		if b.Draw.Guarantee.Enabled != nil {
			c.Enabled = b.Draw.Guarantee.Enabled
		}
		if b.Draw.Guarantee.Tier != "" {
			c.Tier = b.Draw.Guarantee.Tier
		}
		out.Draw.Guarantee = &c
	}

	// items
	if b.Items != nil {
		var base map[string]RangeCfg
		if a.Items != nil {
			base = a.Items.Ranges
		}
		out.Items = &ItemsConfig{Ranges: mergeMap(base, b.Items.Ranges)}
	}

	// forge
	if b.Forge != nil {
		c := ForgeConfig{}
		if a.Forge != nil {
			c = *a.Forge
		}
		if len(b.Forge.Multipliers) > 0 {
			c.Multipliers = append([]float64(nil), b.Forge.Multipliers...)
		}
		if len(b.Forge.Success) > 0 {
			c.Success = append([]float64(nil), b.Forge.Success...)
		}
		out.Forge = &c
	}

	// tokens
	switch {
	case b.Tokens == nil:
	case out.Tokens == nil:
		c := *b.Tokens
		out.Tokens = &c
	default:
		c := *out.Tokens
		if b.Tokens.Name != "" {
			c.Name = b.Tokens.Name
		}
		if b.Tokens.PerDraw != nil {
			c.PerDraw = b.Tokens.PerDraw
		}
		if b.Tokens.PerTenDraw != nil {
			c.PerTenDraw = b.Tokens.PerTenDraw
		}
		if b.Tokens.PerProtect != nil {
			c.PerProtect = b.Tokens.PerProtect
		}
		if b.Tokens.StartingBalance != nil {
			c.StartingBalance = b.Tokens.StartingBalance
		}
		out.Tokens = &c
	}

	// shop
	if b.Shop != nil {
		c := ShopConfig{}
		if a.Shop != nil {
			c = *a.Shop
		}
		if b.Shop.Currency != "" {
			c.Currency = b.Shop.Currency
		}
		if b.Shop.TaxRate != nil {
			c.TaxRate = b.Shop.TaxRate
		}
		if len(b.Shop.Packs) > 0 {
			c.Packs = append([]PackCfg(nil), b.Shop.Packs...)
		}
		out.Shop = &c
	}

	return out
}

func mergeMap[V any](a, b map[string]V) map[string]V {
	if len(b) == 0 {
		return a
	}
	out := make(map[string]V, len(a)+len(b))
	maps.Copy(out, a)
	maps.Copy(out, b)
	return out
}
