package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/selector"
)

// SelectCandidates evaluates every candidate with sel, spreading contiguous
// chunks over workers. Statuses are returned in input order.
func SelectCandidates(ctx context.Context, sel *selector.Selector, cands []event.BplusCandidate, workers int) ([]uint8, error) {
	out := make([]uint8, len(cands))
	if workers < 1 {
		workers = 1
	}
	chunk := (len(cands) + workers - 1) / workers
	if chunk == 0 {
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(cands); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(cands))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				out[i] = uint8(sel.Select(&cands[i]))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
