package mixing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/resonance.report/internal/config"
	"github.com/banshee-data/resonance.report/internal/cuts"
	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/testutil"
)

func TestBinningFind(t *testing.T) {
	b := DefaultBinning()
	tests := []struct {
		name       string
		posZ, mult float64
		want       Bin
		ok         bool
	}{
		{"first vertex edge", -10.0, 5, Bin{0, 0}, true},
		{"last vertex edge", 10.0, 5, Bin{}, false},
		{"below vertex range", -10.5, 5, Bin{}, false},
		{"vertex edge belongs to upper bin", -8.0, 5, Bin{1, 0}, true},
		{"centre", 0.5, 150, Bin{5, 6}, true},
		{"mult edge", 1, 20, Bin{5, 1}, true},
		{"mult overflow", 1, 99999, Bin{}, false},
	}
	for _, tt := range tests {
		got, ok := b.Find(tt.posZ, tt.mult)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestNewBinning(t *testing.T) {
	_, err := NewBinning([]float64{0}, []float64{0, 1})
	assert.True(t, errors.Is(err, cuts.ErrEmptyTable))
	_, err = NewBinning([]float64{0, 1}, []float64{0, 2, 1})
	assert.True(t, errors.Is(err, cuts.ErrNonIncreasingEdges))

	b, err := BinningFromAnalysis(config.EmptyAnalysisConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultBinning(), b)
}

func coll(id int64, posZ, mult float64) *event.Collision {
	return testutil.Collision(id, posZ, mult)
}

func ids(pairs []Pair) [][2]int64 {
	out := make([][2]int64, len(pairs))
	for i, p := range pairs {
		out[i] = [2]int64{p.First.ID, p.Second.ID}
	}
	return out
}

func TestMixerWindow(t *testing.T) {
	m := NewMixer(DefaultBinning(), 2)

	assert.Empty(t, m.Add(coll(1, 0.5, 10)))
	assert.Equal(t, [][2]int64{{1, 2}}, ids(m.Add(coll(2, 0.7, 12))))
	// Different bin: no partners.
	assert.Empty(t, m.Add(coll(3, -5, 10)))
	assert.Equal(t, [][2]int64{{1, 4}, {2, 4}}, ids(m.Add(coll(4, 1.9, 19))))
	// Collision 1 has left the window.
	assert.Equal(t, [][2]int64{{2, 5}, {4, 5}}, ids(m.Add(coll(5, 0.1, 0))))
	// Out of range is skipped, not an error.
	assert.Empty(t, m.Add(coll(6, 10, 10)))

	assert.Equal(t, 1, m.Skipped())
	assert.Equal(t, 5, m.Added())
	assert.Equal(t, 2, m.Bins())
}

func TestMixerNeverPairsWithItself(t *testing.T) {
	m := NewMixer(DefaultBinning(), 5)
	c := coll(1, 0, 10)
	assert.Empty(t, m.Add(c))
	assert.Empty(t, m.Add(c))

	for _, p := range PairsOf(DefaultBinning(), 5, []*event.Collision{c, c, coll(2, 0, 10)}) {
		assert.NotSame(t, p.First, p.Second)
	}
}

func TestMixerPairsCollisionsWithoutIDs(t *testing.T) {
	a := &event.Collision{PosZ: 1, MultTPC: 30}
	b := &event.Collision{PosZ: 1.2, MultTPC: 31}
	pairs := PairsOf(DefaultBinning(), 5, []*event.Collision{a, b})
	require.Len(t, pairs, 1)
	assert.Same(t, a, pairs[0].First)
	assert.Same(t, b, pairs[0].Second)
}

func TestPairsOfPartnerBound(t *testing.T) {
	const depth = 5
	var colls []*event.Collision
	for i := 0; i < 20; i++ {
		colls = append(colls, coll(int64(i), float64(i%3)*0.3, 50))
	}
	pairs := PairsOf(DefaultBinning(), depth, colls)

	later := map[int64]int{}
	earlier := map[int64]int{}
	seen := map[[2]int64]bool{}
	for _, p := range pairs {
		require.Less(t, p.First.ID, p.Second.ID, "partners are earlier collisions")
		key := [2]int64{p.First.ID, p.Second.ID}
		require.False(t, seen[key], "pair %v revisited", key)
		seen[key] = true
		later[p.First.ID]++
		earlier[p.Second.ID]++
	}
	for id := int64(0); id < 20; id++ {
		assert.LessOrEqual(t, later[id], depth)
		assert.LessOrEqual(t, earlier[id], depth)
	}
	// 20 collisions, all in one bin: the first five see 0..4 partners.
	assert.Len(t, pairs, 0+1+2+3+4+15*depth)
}

func TestZeroDepth(t *testing.T) {
	assert.Empty(t, PairsOf(DefaultBinning(), 0, []*event.Collision{coll(1, 0, 1), coll(2, 0, 1)}))
}
