package histo

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go-hep.org/x/hep/hbook"
)

// MaxDims is the largest dimensionality a Sparse histogram supports.
const MaxDims = 6

// ErrIncompatible is returned when merging histograms with different axes.
var ErrIncompatible = errors.New("histograms have incompatible axes")

type cellKey [MaxDims]int32

// Sparse is a weighted N-dimensional histogram that stores only filled cells.
// It is safe for concurrent use.
type Sparse struct {
	name string
	axes []Axis

	mu       sync.Mutex
	cells    map[cellKey]float64
	entries  int64
	overflow int64
}

// Cell is one filled bin of a Sparse histogram.
type Cell struct {
	Index []int
	Value float64
}

// NewSparse creates an empty histogram over the given axes.
func NewSparse(name string, axes ...Axis) (*Sparse, error) {
	if len(axes) == 0 || len(axes) > MaxDims {
		return nil, fmt.Errorf("histogram %q: %d axes, want 1..%d", name, len(axes), MaxDims)
	}
	for _, a := range axes {
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("histogram %q: %w", name, err)
		}
	}
	return &Sparse{
		name:  name,
		axes:  append([]Axis(nil), axes...),
		cells: make(map[cellKey]float64),
	}, nil
}

// Name returns the histogram name.
func (s *Sparse) Name() string { return s.name }

// Axes returns the histogram axes.
func (s *Sparse) Axes() []Axis { return append([]Axis(nil), s.axes...) }

// Dims returns the number of axes.
func (s *Sparse) Dims() int { return len(s.axes) }

func (s *Sparse) key(x []float64) (cellKey, bool) {
	if len(x) != len(s.axes) {
		panic(fmt.Sprintf("histo: %s filled with %d coordinates, have %d axes", s.name, len(x), len(s.axes)))
	}
	var k cellKey
	for i, a := range s.axes {
		idx := a.Index(x[i])
		if idx < 0 {
			return k, false
		}
		k[i] = int32(idx)
	}
	return k, true
}

// Fill adds weight w at the point x, one coordinate per axis. Points outside
// any axis are counted as overflow and dropped. It reports whether the point
// landed in range.
func (s *Sparse) Fill(w float64, x ...float64) bool {
	k, ok := s.key(x)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries++
	if !ok {
		s.overflow++
		return false
	}
	s.cells[k] += w
	return true
}

// Value returns the content of the cell containing x, or 0.
func (s *Sparse) Value(x ...float64) float64 {
	k, ok := s.key(x)
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cells[k]
}

// Entries returns the number of Fill calls, including overflow.
func (s *Sparse) Entries() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries
}

// Overflow returns the number of fills that fell outside the axes.
func (s *Sparse) Overflow() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overflow
}

// SumW returns the sum of in-range weights.
func (s *Sparse) SumW() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum float64
	for _, v := range s.cells {
		sum += v
	}
	return sum
}

// Len returns the number of filled cells.
func (s *Sparse) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cells)
}

// Compatible reports whether o has the same axes as s.
func (s *Sparse) Compatible(o *Sparse) bool {
	if len(s.axes) != len(o.axes) {
		return false
	}
	for i := range s.axes {
		if !s.axes[i].equal(o.axes[i]) {
			return false
		}
	}
	return true
}

// Merge adds every cell of o into s. o is snapshotted before s is locked,
// so the two locks are never held together.
func (s *Sparse) Merge(o *Sparse) error {
	if s == o {
		return fmt.Errorf("histogram %q: cannot merge into itself", s.name)
	}
	if !s.Compatible(o) {
		return fmt.Errorf("%w: %q and %q", ErrIncompatible, s.name, o.name)
	}
	o.mu.Lock()
	cells := make(map[cellKey]float64, len(o.cells))
	for k, v := range o.cells {
		cells[k] = v
	}
	entries, overflow := o.entries, o.overflow
	o.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range cells {
		s.cells[k] += v
	}
	s.entries += entries
	s.overflow += overflow
	return nil
}

// SetCell overwrites the content of the cell at idx. It is used to restore
// a histogram from storage.
func (s *Sparse) SetCell(idx []int, v float64) error {
	if len(idx) != len(s.axes) {
		return fmt.Errorf("histogram %q: cell has %d indices, want %d", s.name, len(idx), len(s.axes))
	}
	var k cellKey
	for i, n := range idx {
		if n < 0 || n >= s.axes[i].NBins() {
			return fmt.Errorf("histogram %q: index %d out of range on axis %q", s.name, n, s.axes[i].Name)
		}
		k[i] = int32(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells[k] = v
	return nil
}

// SetCounters restores the entry and overflow counters.
func (s *Sparse) SetCounters(entries, overflow int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.overflow = overflow
}

// Cells returns the filled cells sorted by index.
func (s *Sparse) Cells() []Cell {
	type kv struct {
		k cellKey
		v float64
	}
	s.mu.Lock()
	all := make([]kv, 0, len(s.cells))
	for k, v := range s.cells {
		all = append(all, kv{k, v})
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].k, all[j].k
		for d := range a {
			if a[d] != b[d] {
				return a[d] < b[d]
			}
		}
		return false
	})
	out := make([]Cell, len(all))
	for i, c := range all {
		idx := make([]int, len(s.axes))
		for d := range idx {
			idx[d] = int(c.k[d])
		}
		out[i] = Cell{Index: idx, Value: c.v}
	}
	return out
}

// Clone returns a deep copy of s.
func (s *Sparse) Clone() *Sparse {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &Sparse{
		name:     s.name,
		axes:     append([]Axis(nil), s.axes...),
		cells:    make(map[cellKey]float64, len(s.cells)),
		entries:  s.entries,
		overflow: s.overflow,
	}
	for k, v := range s.cells {
		c.cells[k] = v
	}
	return c
}

// Values returns the projection of s onto axis dim as one value per bin.
// keep, when non-nil, selects which cells contribute.
func (s *Sparse) Values(dim int, keep func(idx []int) bool) []float64 {
	out := make([]float64, s.axes[dim].NBins())
	for _, c := range s.Cells() {
		if keep != nil && !keep(c.Index) {
			continue
		}
		out[c.Index[dim]] += c.Value
	}
	return out
}

// Project returns the projection of s onto axis dim as an hbook histogram.
func (s *Sparse) Project(dim int, keep func(idx []int) bool) *hbook.H1D {
	a := s.axes[dim]
	h := hbook.NewH1DFromEdges(a.Edges)
	for i, v := range s.Values(dim, keep) {
		if v != 0 {
			h.Fill(a.Center(i), v)
		}
	}
	return h
}

// Project2D returns the projection of s onto axes dx and dy.
func (s *Sparse) Project2D(dx, dy int, keep func(idx []int) bool) *hbook.H2D {
	ax, ay := s.axes[dx], s.axes[dy]
	h := hbook.NewH2DFromEdges(ax.Edges, ay.Edges)
	for _, c := range s.Cells() {
		if keep != nil && !keep(c.Index) {
			continue
		}
		h.Fill(ax.Center(c.Index[dx]), ay.Center(c.Index[dy]), c.Value)
	}
	return h
}

// Only selects cells whose index on axis dim equals bin.
func Only(dim, bin int) func(idx []int) bool {
	return func(idx []int) bool { return idx[dim] == bin }
}
