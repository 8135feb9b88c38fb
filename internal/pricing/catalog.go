// Package pricing plans token top-ups against a pack catalog. It only quotes;
// nothing here moves tokens or money.
package pricing

import (
	"errors"
	"math"
)

var ErrEmptyCatalog = errors.New("catalog has no usable packs")

// Pack is a purchasable token bundle.
type Pack struct {
	ID          string `json:"id"`            // SKU id, e.g. "6480"
	Name        string `json:"name"`          // display name
	Tokens      int    `json:"tokens"`        // base tokens granted
	BonusTokens int    `json:"bonus_tokens"`  // extra tokens on every purchase
	FirstTimeX2 bool   `json:"first_time_x2"` // first purchase doubles Tokens (not BonusTokens)
	PriceCents  int    `json:"price_cents"`
}

// Catalog is a regional pack list. With pre-tax prices TaxRate is applied to
// the subtotal; tax-inclusive catalogs set it to 0.
type Catalog struct {
	Currency string  `json:"currency"`
	TaxRate  float64 `json:"tax_rate"`
	Packs    []Pack  `json:"packs"`
}

// FirstTime maps pack id to whether its first-time doubling is still available.
type FirstTime map[string]bool

type Plan struct {
	Purchases   []Purchase `json:"purchases"`
	SubCents    int        `json:"sub_cents"`
	TaxCents    int        `json:"tax_cents"`
	TotalCents  int        `json:"total_cents"`
	TotalTokens int        `json:"total_tokens"`
	Currency    string     `json:"currency"`
}

type Purchase struct {
	PackID     string `json:"pack_id"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	UnitPrice  int    `json:"unit_price"`
	UnitTokens int    `json:"unit_tokens"` // doubling and bonus applied
	Subtotal   int    `json:"subtotal"`
}

func applyTax(sub int, taxRate float64) (tax int, total int) {
	if taxRate <= 0 {
		return 0, sub
	}
	t := int(math.Round(float64(sub) * taxRate))
	return t, sub + t
}

// variant is one way to buy a pack: its first-time doubled form or the
// regular one.
type variant struct {
	id, name    string
	tokens      int
	price       int
	firstTimeOf string // set on doubled variants; each may be bought once
}

func (c Catalog) variants(first FirstTime) []variant {
	var out []variant
	for _, p := range c.Packs {
		if p.PriceCents <= 0 || p.Tokens+p.BonusTokens <= 0 {
			continue
		}
		if p.FirstTimeX2 && first[p.ID] {
			out = append(out, variant{p.ID + "#x2", p.Name + " (x2)", p.Tokens*2 + p.BonusTokens, p.PriceCents, p.ID})
		}
		out = append(out, variant{p.ID, p.Name, p.Tokens + p.BonusTokens, p.PriceCents, ""})
	}
	return out
}

// plan builds a Plan from per-variant quantities, keeping catalog order.
func (c Catalog) plan(vs []variant, qty []int) Plan {
	p := Plan{Currency: c.Currency, Purchases: []Purchase{}}
	for i, v := range vs {
		if qty[i] == 0 {
			continue
		}
		sub := v.price * qty[i]
		p.Purchases = append(p.Purchases, Purchase{
			PackID:     v.id,
			Name:       v.name,
			Qty:        qty[i],
			UnitPrice:  v.price,
			UnitTokens: v.tokens,
			Subtotal:   sub,
		})
		p.SubCents += sub
		p.TotalTokens += v.tokens * qty[i]
	}
	p.TaxCents, p.TotalCents = applyTax(p.SubCents, c.TaxRate)
	return p
}
