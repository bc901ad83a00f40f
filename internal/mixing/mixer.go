// Package mixing pairs collisions with similar vertex position and
// multiplicity so their track lists can be combined into mixed events for
// combinatorial background estimation.
package mixing

import (
	"fmt"

	"github.com/banshee-data/resonance.report/internal/config"
	"github.com/banshee-data/resonance.report/internal/cuts"
	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/monitoring"
)

// Binning holds the vertex-z and multiplicity edges. Bins are half-open; a
// value on the last edge is out of range.
type Binning struct {
	Vtx  []float64
	Mult []float64
}

// Bin identifies one mixing class.
type Bin struct {
	Vtx  int
	Mult int
}

func (b Bin) String() string { return fmt.Sprintf("vtx%d/mult%d", b.Vtx, b.Mult) }

// DefaultBinning returns the standard vertex-z and multiplicity classes.
func DefaultBinning() Binning {
	return Binning{
		Vtx:  []float64{-10, -8, -6, -4, -2, 0, 2, 4, 6, 8, 10},
		Mult: []float64{0, 20, 40, 60, 80, 100, 200, 99999},
	}
}

// NewBinning validates the edges.
func NewBinning(vtx, mult []float64) (Binning, error) {
	for name, edges := range map[string][]float64{"vertex": vtx, "multiplicity": mult} {
		if len(edges) < 2 {
			return Binning{}, fmt.Errorf("%s edges: %w", name, cuts.ErrEmptyTable)
		}
		for i := 1; i < len(edges); i++ {
			if !(edges[i] > edges[i-1]) {
				return Binning{}, fmt.Errorf("%s edges: %w", name, cuts.ErrNonIncreasingEdges)
			}
		}
	}
	return Binning{Vtx: vtx, Mult: mult}, nil
}

// BinningFromAnalysis builds the binning from the analysis configuration.
func BinningFromAnalysis(c *config.AnalysisConfig) (Binning, error) {
	return NewBinning(c.GetMixingVtxBins(), c.GetMixingMultBins())
}

// Find returns the bin of (posZ, mult); ok is false when either value is
// out of range.
func (b Binning) Find(posZ, mult float64) (bin Bin, ok bool) {
	v := cuts.FindBin(b.Vtx, posZ)
	m := cuts.FindBin(b.Mult, mult)
	if v < 0 || m < 0 {
		return Bin{}, false
	}
	return Bin{Vtx: v, Mult: m}, true
}

// BinOf classifies a collision by its vertex z and TPC multiplicity.
func (b Binning) BinOf(c *event.Collision) (Bin, bool) {
	return b.Find(c.PosZ, c.MultTPC)
}

// Pair is one mixing partnership. First arrived before Second.
type Pair struct {
	First  *event.Collision
	Second *event.Collision
}

// Mixer keeps, per bin, the most recent collisions up to the mixing depth.
// Each new collision is paired with every collision still held in its bin,
// oldest first, so every collision meets at most depth later partners and
// at most depth earlier ones. It is not safe for concurrent use; one
// coordinator owns it.
type Mixer struct {
	binning Binning
	depth   int
	queues  map[Bin][]*event.Collision
	skipped int
	added   int
}

// NewMixer returns a mixer pairing each collision with up to depth others.
func NewMixer(b Binning, depth int) *Mixer {
	return &Mixer{binning: b, depth: depth, queues: make(map[Bin][]*event.Collision)}
}

// Add assigns c to its bin and returns its pairs with earlier collisions of
// the same bin. Out-of-range collisions are skipped and yield no pairs.
func (m *Mixer) Add(c *event.Collision) []Pair {
	bin, ok := m.binning.BinOf(c)
	if !ok {
		m.skipped++
		monitoring.Debugf("collision %d outside mixing bins (z=%.2f, mult=%.0f)", c.ID, c.PosZ, c.MultTPC)
		return nil
	}
	if m.depth <= 0 {
		return nil
	}
	m.added++
	q := m.queues[bin]
	pairs := make([]Pair, 0, len(q))
	for _, prev := range q {
		if prev == c {
			continue
		}
		pairs = append(pairs, Pair{First: prev, Second: c})
	}
	q = append(q, c)
	if len(q) > m.depth {
		q = q[len(q)-m.depth:]
	}
	m.queues[bin] = q
	return pairs
}

// Skipped returns the number of collisions that fell outside every bin.
func (m *Mixer) Skipped() int { return m.skipped }

// Added returns the number of collisions assigned to a bin.
func (m *Mixer) Added() int { return m.added }

// Bins returns the number of bins holding at least one collision.
func (m *Mixer) Bins() int { return len(m.queues) }

// PairsOf runs a fresh mixer over colls in order and returns every pair.
func PairsOf(b Binning, depth int, colls []*event.Collision) []Pair {
	m := NewMixer(b, depth)
	var out []Pair
	for _, c := range colls {
		out = append(out, m.Add(c)...)
	}
	return out
}
