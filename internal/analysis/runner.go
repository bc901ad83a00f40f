// Package analysis drives the selector, the reconstructor and the event
// mixer over batches of collisions. Collisions are sharded across workers,
// each filling its own histogram registry; registries are merged when a
// batch completes.
package analysis

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/resonance.report/internal/config"
	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/histo"
	"github.com/banshee-data/resonance.report/internal/mixing"
	"github.com/banshee-data/resonance.report/internal/monitoring"
	"github.com/banshee-data/resonance.report/internal/reco"
)

// DefaultBatchSize is the number of collisions read before a batch is
// dispatched to the workers.
const DefaultBatchSize = 512

// Options select which passes the Runner performs.
type Options struct {
	// MC enables truth matching.
	MC bool
	// Mixing enables the mixed-event pass.
	Mixing bool
	// Workers overrides the configured worker count when > 0.
	Workers int
}

// Result summarizes everything a Runner has processed so far.
type Result struct {
	Events      int
	MixedPairs  int
	MixSkipped  int
	Same        reco.Stats
	Mixed       reco.Stats
	TrueK1      int
	Registry    *histo.Registry
	WorkerCount int
}

// Runner owns the merged histogram registry and the mixing state of one
// analysis run. It is not safe for concurrent use; feed it from a single
// goroutine.
type Runner struct {
	recoCfg reco.Config
	opts    Options
	workers int

	reg   *histo.Registry
	mixer *mixing.Mixer

	// reco bound to the merged registry, used for generator-level counting.
	truth *reco.Reconstructor

	events     int
	mixedPairs int
	same       reco.Stats
	mixed      reco.Stats
	trueK1     int
}

// NewRunner builds a Runner from a validated analysis configuration.
func NewRunner(c *config.AnalysisConfig, opts Options) (*Runner, error) {
	rc, err := reco.ConfigFromAnalysis(c, opts.MC)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = c.GetWorkers()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	r := &Runner{
		recoCfg: rc,
		opts:    opts,
		workers: workers,
		reg:     histo.NewRegistry(),
	}
	// Defines every histogram up front so empty runs still report them.
	r.truth, err = reco.New(rc, r.reg)
	if err != nil {
		return nil, err
	}
	if opts.Mixing {
		b, err := mixing.BinningFromAnalysis(c)
		if err != nil {
			return nil, fmt.Errorf("mixing binning: %w", err)
		}
		r.mixer = mixing.NewMixer(b, c.GetMixingDepth())
	}
	return r, nil
}

// Workers returns the number of workers used per batch.
func (r *Runner) Workers() int { return r.workers }

type shard struct {
	reg   *histo.Registry
	same  reco.Stats
	mixed reco.Stats
}

// ProcessBatch reconstructs one batch of collisions, and the mixing pairs
// they form with earlier collisions, then merges the per-worker histograms
// into the run registry.
func (r *Runner) ProcessBatch(ctx context.Context, batch []*event.Collision) error {
	if len(batch) == 0 {
		return nil
	}
	var pairs []mixing.Pair
	if r.mixer != nil {
		for _, c := range batch {
			pairs = append(pairs, r.mixer.Add(c)...)
		}
	}

	shards := make([]*shard, r.workers)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for w := 0; w < r.workers; w++ {
		g.Go(func() error {
			s := &shard{reg: histo.NewRegistry()}
			rec, err := reco.New(r.recoCfg, s.reg)
			if err != nil {
				return err
			}
			for i := w; i < len(batch); i += r.workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				s.same.Add(rec.Process(batch[i]))
			}
			for i := w; i < len(pairs); i += r.workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				s.mixed.Add(rec.ProcessMixed(pairs[i].First, pairs[i].Second))
			}
			shards[w] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Merge in worker order so the result does not depend on scheduling.
	for _, s := range shards {
		if err := r.reg.Merge(s.reg); err != nil {
			return fmt.Errorf("merge worker histograms: %w", err)
		}
		r.same.Add(s.same)
		r.mixed.Add(s.mixed)
	}
	r.events += len(batch)
	r.mixedPairs += len(pairs)
	monitoring.Debugf("batch of %d collisions, %d mixing pairs: %d K1 so far", len(batch), len(pairs), r.same.K1)
	return nil
}

// Run feeds every collision of rd to the Runner in batches of batchSize.
func (r *Runner) Run(ctx context.Context, rd io.Reader, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batch := make([]*event.Collision, 0, batchSize)
	err := event.ReadCollisions(rd, func(c *event.Collision) error {
		batch = append(batch, c)
		if len(batch) < batchSize {
			return nil
		}
		err := r.ProcessBatch(ctx, batch)
		batch = make([]*event.Collision, 0, batchSize)
		return err
	})
	if err != nil {
		return err
	}
	return r.ProcessBatch(ctx, batch)
}

// CountTrueK1 fills the generator-level K1 spectrum. It is a no-op unless
// the Runner was built with MC enabled.
func (r *Runner) CountTrueK1(particles []event.MCParticle) int {
	n := r.truth.CountTrueK1(particles)
	r.trueK1 += n
	return n
}

// Result returns the run summary. The registry is shared with the Runner.
func (r *Runner) Result() *Result {
	res := &Result{
		Events:      r.events,
		MixedPairs:  r.mixedPairs,
		Same:        r.same,
		Mixed:       r.mixed,
		TrueK1:      r.trueK1,
		Registry:    r.reg,
		WorkerCount: r.workers,
	}
	if r.mixer != nil {
		res.MixSkipped = r.mixer.Skipped()
	}
	return res
}
