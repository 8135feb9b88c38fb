package pricing

import "math"

// MinCost finds the cheapest set of purchases granting at least target
// tokens. Doubled first-time variants are used at most once each. A target
// of zero or less returns an empty plan.
func MinCost(cat Catalog, target int, first FirstTime) (Plan, error) {
	vs := cat.variants(first)
	if target <= 0 {
		return cat.plan(vs, make([]int, len(vs))), nil
	}
	if len(vs) == 0 {
		return Plan{}, ErrEmptyCatalog
	}

	// Regular variants are unbounded; doubled ones are 0/1 and are tried
	// exhaustively below since catalogs carry a handful of packs.
	var regular, once []int
	maxTok := 0
	for i, v := range vs {
		maxTok = max(maxTok, v.tokens)
		if v.firstTimeOf != "" {
			once = append(once, i)
		} else {
			regular = append(regular, i)
		}
	}

	// dp[t] = min cost to reach at least t tokens with regular variants,
	// t capped at target.
	const inf = math.MaxInt
	dp := make([]int, target+1)
	pick := make([]int, target+1)
	for t := 1; t <= target; t++ {
		dp[t], pick[t] = inf, -1
		for _, i := range regular {
			prev := max(t-vs[i].tokens, 0)
			if dp[prev] == inf {
				continue
			}
			if c := dp[prev] + vs[i].price; c < dp[t] {
				dp[t], pick[t] = c, i
			}
		}
	}

	bestCost, bestMask := inf, -1
	for mask := 0; mask < 1<<len(once); mask++ {
		cost, tok := 0, 0
		for b, i := range once {
			if mask&(1<<b) != 0 {
				cost += vs[i].price
				tok += vs[i].tokens
			}
		}
		rest := max(target-tok, 0)
		if dp[rest] == inf {
			continue
		}
		if cost+dp[rest] < bestCost {
			bestCost, bestMask = cost+dp[rest], mask
		}
	}
	if bestMask < 0 {
		return Plan{}, ErrEmptyCatalog
	}

	qty := make([]int, len(vs))
	tok := 0
	for b, i := range once {
		if bestMask&(1<<b) != 0 {
			qty[i]++
			tok += vs[i].tokens
		}
	}
	for t := max(target-tok, 0); t > 0; {
		i := pick[t]
		qty[i]++
		t = max(t-vs[i].tokens, 0)
	}
	return cat.plan(vs, qty), nil
}

// MaxTokens finds the purchases granting the most tokens within budgetCents,
// tax included.
func MaxTokens(cat Catalog, budgetCents int, first FirstTime) Plan {
	vs := cat.variants(first)
	qty := make([]int, len(vs))
	if budgetCents <= 0 || len(vs) == 0 {
		return cat.plan(vs, qty)
	}
	// pre-tax spend that keeps the taxed total inside the budget
	spend := budgetCents
	if cat.TaxRate > 0 {
		spend = int(math.Floor(float64(budgetCents) / (1 + cat.TaxRate)))
	}
	for spend > 0 {
		if _, total := applyTax(spend, cat.TaxRate); total <= budgetCents {
			break
		}
		spend--
	}

	var regular, once []int
	for i, v := range vs {
		if v.firstTimeOf != "" {
			once = append(once, i)
		} else {
			regular = append(regular, i)
		}
	}

	// best[c] = most tokens for a pre-tax spend of at most c using regular variants
	best := make([]int, spend+1)
	pick := make([]int, spend+1)
	for c := range pick {
		pick[c] = -1
		if c > 0 {
			best[c] = best[c-1]
		}
		for _, i := range regular {
			if vs[i].price > c {
				continue
			}
			if val := best[c-vs[i].price] + vs[i].tokens; val > best[c] {
				best[c], pick[c] = val, i
			}
		}
	}

	bestTok, bestMask := -1, 0
	for mask := 0; mask < 1<<len(once); mask++ {
		cost, tok := 0, 0
		for b, i := range once {
			if mask&(1<<b) != 0 {
				cost += vs[i].price
				tok += vs[i].tokens
			}
		}
		if cost > spend {
			continue
		}
		if t := tok + best[spend-cost]; t > bestTok {
			bestTok, bestMask = t, mask
		}
	}

	rest := spend
	for b, i := range once {
		if bestMask&(1<<b) != 0 {
			qty[i]++
			rest -= vs[i].price
		}
	}
	for rest > 0 {
		if pick[rest] < 0 {
			rest--
			continue
		}
		i := pick[rest]
		qty[i]++
		rest -= vs[i].price
	}
	return cat.plan(vs, qty)
}
