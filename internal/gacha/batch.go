package gacha

import (
	"context"
	"iter"
)

// GuaranteeBatchSize is the only batch size the minimum guarantee applies to.
const GuaranteeBatchSize = 10

// StopReason tells why a batch ended.
type StopReason uint8

const (
	StopCompleted StopReason = iota
	StopCancelled
	StopUnaffordable
)

func (r StopReason) String() string {
	switch r {
	case StopCancelled:
		return "cancelled"
	case StopUnaffordable:
		return "unaffordable"
	default:
		return "completed"
	}
}

func (r StopReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// BatchOptions carries the caller hooks around each draw.
type BatchOptions struct {
	// CanAfford is checked before every draw; false ends the batch early.
	// It must not spend: spending belongs in OnProgress.
	CanAfford func() bool
	// OnProgress runs after every completed draw with its 0-based index.
	OnProgress func(i int, p Pull)
}

// Batch is the drained result of a batch.
type Batch struct {
	Pulls []Pull     `json:"pulls"`
	Stop  StopReason `json:"stop"`
}

func (b Batch) Tiers() []Tier {
	out := make([]Tier, len(b.Pulls))
	for i, p := range b.Pulls {
		out[i] = p.Tier
	}
	return out
}

// batchCursor steps through one batch; it owns st for the batch's lifetime.
type batchCursor struct {
	m     *Machine
	st    *PityState
	n     int
	done  int
	met   bool // a result in this batch already satisfied the guarantee
	stop  StopReason
	ended bool
}

// step performs the next draw. ok is false once the batch has ended.
func (c *batchCursor) step(ctx context.Context, opt BatchOptions) (Pull, bool, error) {
	if c.ended {
		return Pull{}, false, nil
	}
	if c.done >= c.n {
		c.ended = true
		return Pull{}, false, nil
	}
	if ctx.Err() != nil {
		c.stop, c.ended = StopCancelled, true
		return Pull{}, false, nil
	}
	if opt.CanAfford != nil && !opt.CanAfford() {
		c.stop, c.ended = StopUnaffordable, true
		return Pull{}, false, nil
	}

	var floor *Tier
	g := c.m.Guarantee
	if g.Enabled && c.n == GuaranteeBatchSize && c.done == GuaranteeBatchSize-1 && !c.met {
		floor = &g.Tier
	}
	p, err := c.m.draw(c.st, floor)
	if err != nil {
		c.ended = true
		return Pull{}, false, err
	}
	if p.Tier.IsAtLeast(g.Tier) {
		c.met = true
	}
	if opt.OnProgress != nil {
		opt.OnProgress(c.done, p)
	}
	c.done++
	return p, true, nil
}

// Pulls lazily yields up to n draws. Each iteration is a cancellation point:
// ctx and CanAfford are checked before the draw, and breaking out of the loop
// stops the batch. An error is yielded once and ends the sequence.
func (m *Machine) Pulls(ctx context.Context, n int, st *PityState, opt BatchOptions) iter.Seq2[Pull, error] {
	return func(yield func(Pull, error) bool) {
		c := &batchCursor{m: m, st: st, n: n}
		for {
			p, ok, err := c.step(ctx, opt)
			if err != nil {
				yield(Pull{}, err)
				return
			}
			if !ok || !yield(p, nil) {
				return
			}
		}
	}
}

// DrawBatch drains a batch of n draws. On cancellation or an unaffordable draw
// it returns every completed draw with the matching StopReason and no error.
func (m *Machine) DrawBatch(ctx context.Context, n int, st *PityState, opt BatchOptions) (Batch, error) {
	c := &batchCursor{m: m, st: st, n: n}
	out := Batch{Pulls: make([]Pull, 0, max(n, 0))}
	for {
		p, ok, err := c.step(ctx, opt)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out.Pulls = append(out.Pulls, p)
	}
	out.Stop = c.stop
	return out, nil
}
