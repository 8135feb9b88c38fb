package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/xtding233/gacha-forge/internal/audit"
	"github.com/xtding233/gacha-forge/internal/gacha"
	"github.com/xtding233/gacha-forge/internal/token"
)

var ErrNotFound = errors.New("player not found")

// OwnedItem is an item in a player's inventory.
type OwnedItem struct {
	ID string `json:"id"`
	gacha.Item
}

// Player is everything the engine mutates for one player.
type Player struct {
	ID          string          `json:"id"`
	Pity        gacha.PityState `json:"pity"`
	History     audit.History   `json:"history"`
	Items       []OwnedItem     `json:"items"`
	Wallet      token.Wallet    `json:"wallet"`
	Protections int             `json:"protections"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Item returns the inventory entry with the given id.
func (p *Player) Item(id string) (*OwnedItem, bool) {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i], true
		}
	}
	return nil, false
}

// RemoveItem drops a destroyed item. It reports whether the id was present.
func (p *Player) RemoveItem(id string) bool {
	n := len(p.Items)
	p.Items = slices.DeleteFunc(p.Items, func(it OwnedItem) bool { return it.ID == id })
	return len(p.Items) != n
}

// Clone returns a deep copy, so callers can mutate without touching stored state.
func (p *Player) Clone() *Player {
	c := *p
	c.Items = slices.Clone(p.Items)
	return &c
}

// Store persists player records. Get returns a copy the caller owns.
type Store interface {
	Get(ctx context.Context, id string) (*Player, error)
	Put(ctx context.Context, p *Player) error
	Delete(ctx context.Context, id string) error
	Close() error
}
