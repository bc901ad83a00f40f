package histo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Axis is one binned dimension of a histogram. Bins are half-open
// [Edges[i], Edges[i+1]).
type Axis struct {
	Name  string
	Edges []float64

	// width is non-zero for axes built by Uniform.
	width float64
}

// Uniform returns an axis of n equal-width bins covering [lo, hi).
func Uniform(name string, n int, lo, hi float64) Axis {
	edges := make([]float64, n+1)
	floats.Span(edges, lo, hi)
	edges[n] = hi
	return Axis{Name: name, Edges: edges, width: (hi - lo) / float64(n)}
}

// Variable returns an axis with the given, strictly increasing, edges.
func Variable(name string, edges []float64) Axis {
	return Axis{Name: name, Edges: append([]float64(nil), edges...)}
}

// NBins returns the number of bins on the axis.
func (a Axis) NBins() int {
	if len(a.Edges) < 2 {
		return 0
	}
	return len(a.Edges) - 1
}

// Index returns the bin containing x, or -1 if x is out of range or NaN.
func (a Axis) Index(x float64) int {
	n := len(a.Edges) - 1
	if n < 1 || math.IsNaN(x) || x < a.Edges[0] || x >= a.Edges[n] {
		return -1
	}
	if a.width <= 0 {
		return floats.Within(a.Edges, x)
	}
	i := int((x - a.Edges[0]) / a.width)
	if i >= n {
		i = n - 1
	}
	// Rounding in the division can land one bin off near an edge.
	for i > 0 && x < a.Edges[i] {
		i--
	}
	for i < n-1 && x >= a.Edges[i+1] {
		i++
	}
	return i
}

// Center returns the midpoint of bin i.
func (a Axis) Center(i int) float64 {
	return 0.5 * (a.Edges[i] + a.Edges[i+1])
}

func (a Axis) equal(b Axis) bool {
	return a.Name == b.Name && floats.Equal(a.Edges, b.Edges)
}

func (a Axis) validate() error {
	if len(a.Edges) < 2 {
		return fmt.Errorf("axis %q: need at least two edges", a.Name)
	}
	for i := 1; i < len(a.Edges); i++ {
		if !(a.Edges[i] > a.Edges[i-1]) {
			return fmt.Errorf("axis %q: edges not strictly increasing at %d", a.Name, i)
		}
	}
	return nil
}
