package pricing_test

import (
	"errors"
	"testing"

	"github.com/xtding233/gacha-forge/internal/pricing"
)

func catalog() pricing.Catalog {
	return pricing.Catalog{
		Currency: "CAD",
		Packs: []pricing.Pack{
			{ID: "60", Name: "60 Pack", Tokens: 60, FirstTimeX2: true, PriceCents: 99},
			{ID: "300", Name: "300 Pack", Tokens: 300, BonusTokens: 30, FirstTimeX2: true, PriceCents: 499},
			{ID: "980", Name: "980 Pack", Tokens: 980, BonusTokens: 110, FirstTimeX2: true, PriceCents: 1499},
		},
	}
}

func qty(p pricing.Plan) map[string]int {
	out := map[string]int{}
	for _, pu := range p.Purchases {
		out[pu.PackID] = pu.Qty
	}
	return out
}

func TestMinCost(t *testing.T) {
	tests := []struct {
		name   string
		target int
		first  pricing.FirstTime
		cost   int
		want   map[string]int
	}{
		{"single pack", 330, nil, 499, map[string]int{"300": 1}},
		{"first-time doubling", 330, pricing.FirstTime{"60": true}, 495, map[string]int{"60#x2": 1, "60": 4}},
		{"nothing needed", 0, nil, 0, map[string]int{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := pricing.MinCost(catalog(), tc.target, tc.first)
			if err != nil {
				t.Fatal(err)
			}
			if p.TotalCents != tc.cost || p.TotalTokens < tc.target {
				t.Fatalf("cost=%d tokens=%d", p.TotalCents, p.TotalTokens)
			}
			got := qty(p)
			if len(got) != len(tc.want) {
				t.Fatalf("plan %+v", p.Purchases)
			}
			for id, n := range tc.want {
				if got[id] != n {
					t.Fatalf("plan %+v", p.Purchases)
				}
			}
		})
	}
}

func TestMinCostTaxAndEmpty(t *testing.T) {
	cat := catalog()
	cat.TaxRate = 0.13
	p, err := pricing.MinCost(cat, 330, nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.SubCents != 499 || p.TaxCents != 65 || p.TotalCents != 564 {
		t.Fatalf("sub=%d tax=%d total=%d", p.SubCents, p.TaxCents, p.TotalCents)
	}
	if _, err := pricing.MinCost(pricing.Catalog{}, 10, nil); !errors.Is(err, pricing.ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestMaxTokens(t *testing.T) {
	if p := pricing.MaxTokens(catalog(), 600, nil); p.TotalTokens != 390 || p.TotalCents != 598 {
		t.Fatalf("no first-time: %+v", p)
	}
	if p := pricing.MaxTokens(catalog(), 600, pricing.FirstTime{"300": true}); p.TotalTokens != 690 {
		t.Fatalf("first-time: %+v", p)
	}
	cat := catalog()
	cat.TaxRate = 0.13
	if p := pricing.MaxTokens(cat, 564, nil); p.TotalTokens != 330 || p.TotalCents != 564 {
		t.Fatalf("taxed: %+v", p)
	}
	if p := pricing.MaxTokens(catalog(), 50, nil); p.TotalTokens != 0 || len(p.Purchases) != 0 {
		t.Fatalf("below cheapest pack: %+v", p)
	}
}
