package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xtding233/gacha-forge/internal/audit"
	"github.com/xtding233/gacha-forge/internal/forge"
	"github.com/xtding233/gacha-forge/internal/gacha"
	"github.com/xtding233/gacha-forge/internal/game"
	"github.com/xtding233/gacha-forge/internal/pricing"
	"github.com/xtding233/gacha-forge/internal/store"
	"github.com/xtding233/gacha-forge/internal/token"
)

var (
	ErrBusy         = errors.New("player has a request in flight")
	ErrItemNotFound = errors.New("item not found")
	ErrNoProtection = errors.New("no protection charm and not enough tokens to buy one")
	ErrInvalidCount = errors.New("invalid draw count")
)

// DefaultMaxDraws caps a single Draw call.
const DefaultMaxDraws = 1000

// Service runs engine operations against stored players. Each player has at
// most one Draw or Forge in flight; a second concurrent call gets ErrBusy.
type Service struct {
	store store.Store
	log   *slog.Logger

	mu        sync.RWMutex
	params    game.EngineParams
	rng       gacha.RandomSource
	ownRNG    bool
	MaxDraws  int
	playerMus sync.Map // id -> *sync.Mutex
}

// New builds a service. A nil rng derives one from params.Seed and rebuilds
// it when Reload changes the seed.
func New(params game.EngineParams, st store.Store, log *slog.Logger, rng gacha.RandomSource) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Service{store: st, log: log, params: params, MaxDraws: DefaultMaxDraws}
	if rng == nil {
		rng, s.ownRNG = gacha.NewRNG(params.Seed), true
	}
	s.rng = gacha.Synchronized(rng)
	return s
}

// Reload swaps the engine params used by later calls. Calls in flight finish
// with the params they started with.
func (s *Service) Reload(p game.EngineParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownRNG && p.Seed != s.params.Seed {
		s.rng = gacha.Synchronized(gacha.NewRNG(p.Seed))
	}
	s.params = p
	s.log.Info("engine params reloaded", "version", p.Version, "corrections", len(p.Corrections))
}

func (s *Service) snapshot() (game.EngineParams, gacha.RandomSource) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params, s.rng
}

// acquire takes the player's lock without waiting.
func (s *Service) acquire(id string) (func(), error) {
	v, _ := s.playerMus.LoadOrStore(id, new(sync.Mutex))
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrBusy, id)
	}
	return mu.Unlock, nil
}

// persist saves p even when the request context is already cancelled, so a
// partial batch is never lost.
func (s *Service) persist(ctx context.Context, p *store.Player) error {
	return s.store.Put(context.WithoutCancel(ctx), p)
}

func (s *Service) CreatePlayer(ctx context.Context) (*store.Player, error) {
	params, _ := s.snapshot()
	now := time.Now().UTC()
	p := &store.Player{
		ID:        uuid.NewString(),
		Wallet:    token.Wallet{Balance: params.Token.StartingBalance},
		Items:     []store.OwnedItem{},
		CreatedAt: now,
	}
	if err := s.store.Put(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("player created", "player", p.ID, "balance", p.Wallet.Balance)
	return p, nil
}

func (s *Service) Player(ctx context.Context, id string) (*store.Player, error) {
	return s.store.Get(ctx, id)
}

// Grant credits tokens and protection charms. Negative amounts are ignored.
func (s *Service) Grant(ctx context.Context, id string, tokens, protections int) (*store.Player, error) {
	unlock, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer unlock()
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Wallet.Credit(tokens)
	p.Protections += max(protections, 0)
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DrawnPull pairs a pull with the item it produced.
type DrawnPull struct {
	gacha.Pull
	Item store.OwnedItem `json:"item"`
}

type DrawResult struct {
	Pulls         []DrawnPull      `json:"pulls"`
	Stop          gacha.StopReason `json:"stop"`
	Spent         int              `json:"spent"`
	Balance       int              `json:"balance"`
	Pity          gacha.PityState  `json:"pity"`
	PityRemaining int              `json:"pity_remaining"`
}

// Draw runs an n-draw batch for the player. Whole ten-packs with a bundle price
// are paid up front and the unused part refunded if the batch stops early;
// otherwise each draw is paid as it happens and the batch stops when the
// wallet runs dry. Pulls, pity, history and items are persisted even when ctx
// is cancelled mid-batch.
func (s *Service) Draw(ctx context.Context, id string, n int) (DrawResult, error) {
	if n < 1 || n > s.MaxDraws {
		return DrawResult{}, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidCount, n, s.MaxDraws)
	}
	unlock, err := s.acquire(id)
	if err != nil {
		return DrawResult{}, err
	}
	defer unlock()

	p, err := s.store.Get(ctx, id)
	if err != nil {
		return DrawResult{}, err
	}
	params, rng := s.snapshot()
	m, err := params.NewMachine(rng)
	if err != nil {
		return DrawResult{}, err
	}
	tok := params.Token

	var res DrawResult
	bundled := tok.Bundled(n)
	if bundled {
		cost := tok.TokensForDraws(n)
		if err := p.Wallet.Spend(cost); err != nil {
			return DrawResult{}, err
		}
		res.Spent = cost
	}

	opts := gacha.BatchOptions{
		OnProgress: func(_ int, pull gacha.Pull) {
			if !bundled {
				_ = p.Wallet.Spend(tok.PerDraw)
				res.Spent += tok.PerDraw
			}
			_ = p.History.Record(pull.Tier)
			it, _ := gacha.Materialize(pull.Tier, &params.Stats, rng)
			owned := store.OwnedItem{ID: uuid.NewString(), Item: it}
			p.Items = append(p.Items, owned)
			res.Pulls = append(res.Pulls, DrawnPull{Pull: pull, Item: owned})
		},
	}
	if !bundled {
		opts.CanAfford = func() bool { return p.Wallet.CanAfford(tok.PerDraw) }
	}

	batch, drawErr := m.DrawBatch(ctx, n, &p.Pity, opts)
	res.Stop = batch.Stop
	if bundled && len(batch.Pulls) < n {
		refund := max(res.Spent-tok.TokensForDraws(len(batch.Pulls)), 0)
		p.Wallet.Credit(refund)
		res.Spent -= refund
	}
	if len(batch.Pulls) == 0 && drawErr == nil && batch.Stop == gacha.StopUnaffordable {
		return res, fmt.Errorf("%w: a draw costs %d, balance %d", token.ErrInsufficientTokens, tok.PerDraw, p.Wallet.Balance)
	}
	if len(batch.Pulls) > 0 || res.Spent > 0 {
		if err := s.persist(ctx, p); err != nil {
			return res, err
		}
	}
	if drawErr != nil {
		return res, drawErr
	}

	res.Balance = p.Wallet.Balance
	res.Pity = p.Pity
	res.PityRemaining = params.Pity.Remaining(p.Pity)
	s.log.Info("draw", "player", id, "n", n, "pulls", len(res.Pulls), "stop", res.Stop, "spent", res.Spent)
	return res, nil
}

type ForgeResult struct {
	Item          store.OwnedItem `json:"item"`
	Outcomes      []forge.Outcome `json:"outcomes"`
	Destroyed     bool            `json:"destroyed"`
	EffectiveStat int             `json:"effective_stat"`
	Balance       int             `json:"balance"`
	Protections   int             `json:"protections"`
}

// Forge attempts to enhance one of the player's items, once or (auto) until it
// is maxed, destroyed, or protection can no longer be paid for. With protect
// set each attempt first consumes a charm, buying one with tokens when the
// player has none. A destroyed item is removed from the inventory.
func (s *Service) Forge(ctx context.Context, id, itemID string, protect, auto bool) (ForgeResult, error) {
	unlock, err := s.acquire(id)
	if err != nil {
		return ForgeResult{}, err
	}
	defer unlock()

	p, err := s.store.Get(ctx, id)
	if err != nil {
		return ForgeResult{}, err
	}
	owned, ok := p.Item(itemID)
	if !ok {
		return ForgeResult{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	params, rng := s.snapshot()

	pay := func(int) bool {
		if !protect {
			return true
		}
		if p.Protections > 0 {
			p.Protections--
			return true
		}
		return p.Wallet.Spend(params.Token.PerProtect) == nil
	}

	var res ForgeResult
	if auto {
		res.Outcomes = forge.RunAuto(ctx, &owned.Item, &params.Ladder, protect, rng, pay)
	} else {
		if owned.Level < forge.MaxLevel && !pay(owned.Level) {
			return ForgeResult{}, ErrNoProtection
		}
		res.Outcomes = []forge.Outcome{forge.Attempt(&owned.Item, &params.Ladder, protect, rng)}
	}
	if len(res.Outcomes) == 0 && protect {
		return ForgeResult{}, ErrNoProtection
	}

	res.Item = *owned
	if n := len(res.Outcomes); n > 0 && res.Outcomes[n-1].Kind == forge.DestructiveFailure {
		res.Destroyed = true
		p.RemoveItem(itemID)
	}
	res.EffectiveStat = params.Ladder.EffectiveStat(res.Item.BaseStat, res.Item.Level)
	if err := s.persist(ctx, p); err != nil {
		return res, err
	}
	res.Balance = p.Wallet.Balance
	res.Protections = p.Protections
	s.log.Info("forge", "player", id, "item", itemID, "attempts", len(res.Outcomes),
		"level", res.Item.Level, "destroyed", res.Destroyed)
	return res, nil
}

// Stats runs the goodness-of-fit report over one of the player's accumulators
// against the current odds.
func (s *Service) Stats(ctx context.Context, id string, scope audit.Scope) (audit.Report, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return audit.Report{}, err
	}
	params, _ := s.snapshot()
	return audit.ComputeStats(*p.History.Scope(scope), gacha.Normalize(params.Weights)), nil
}

// ResetStats clears the session (player) or global (admin) accumulator.
func (s *Service) ResetStats(ctx context.Context, id string, scope audit.Scope) error {
	unlock, err := s.acquire(id)
	if err != nil {
		return err
	}
	defer unlock()
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if scope == audit.ScopeGlobal {
		p.History.ResetGlobal()
	} else {
		p.History.ResetSession()
	}
	return s.persist(ctx, p)
}

type Odds struct {
	Version   string                `json:"version"`
	Weights   map[string]float64    `json:"weights"`
	Probs     map[string]float64    `json:"probs"`
	Pity      gacha.PityConfig      `json:"pity"`
	Guarantee gacha.GuaranteeConfig `json:"guarantee"`
	Ladder    forge.Ladder          `json:"ladder"`
	Token     token.Token           `json:"token"`
	Shop      pricing.Catalog       `json:"shop"`
}

// Odds publishes the current configuration.
func (s *Service) Odds() Odds {
	params, _ := s.snapshot()
	return Odds{
		Version:   params.Version,
		Weights:   params.Weights.Map(),
		Probs:     gacha.Normalize(params.Weights).Map(),
		Pity:      params.Pity,
		Guarantee: params.Guarantee,
		Ladder:    params.Ladder,
		Token:     params.Token,
		Shop:      params.Shop,
	}
}

type Quote struct {
	Draws       int          `json:"draws"`
	Protections int          `json:"protections"`
	Cost        int          `json:"cost"`
	Balance     int          `json:"balance"`
	Shortfall   int          `json:"shortfall"`
	Plan        pricing.Plan `json:"plan"`
}

// Quote prices the cheapest top-up that lets the player afford draws (one
// request of that size) plus buying the given number of protection charms.
// firstTime assumes every first-purchase doubling is still available.
func (s *Service) Quote(ctx context.Context, id string, draws, protections int, firstTime bool) (Quote, error) {
	if draws < 0 || draws > s.MaxDraws || protections < 0 {
		return Quote{}, fmt.Errorf("%w: draws=%d protections=%d", ErrInvalidCount, draws, protections)
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	params, _ := s.snapshot()
	q := Quote{
		Draws:       draws,
		Protections: protections,
		Cost:        params.Token.DrawCost(draws) + protections*params.Token.PerProtect,
		Balance:     p.Wallet.Balance,
	}
	q.Shortfall = max(q.Cost-q.Balance, 0)

	var first pricing.FirstTime
	if firstTime {
		first = pricing.FirstTime{}
		for _, pk := range params.Shop.Packs {
			first[pk.ID] = pk.FirstTimeX2
		}
	}
	q.Plan, err = pricing.MinCost(params.Shop, q.Shortfall, first)
	if err != nil {
		return Quote{}, err
	}
	return q, nil
}
