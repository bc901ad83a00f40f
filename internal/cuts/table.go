// Package cuts holds pT-binned cut tables: ordered bin edges plus one
// numeric threshold per (bin, cut variable). Tables are validated once at
// load time and are read-only afterwards, so they can be shared by any
// number of workers.
package cuts

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Var names a cut variable. The set is closed; unknown names are rejected
// when a table is parsed.
type Var int

const (
	// B± → D0 π± topology.
	MassB Var = iota
	CPA
	D0ImpactParameter
	PiImpactParameter
	PtD0
	PtPi
	DecayLength
	DecayLengthXY
	ImpactParameterProduct
	DeltaMassD0
	CosThetaStar

	// Single-track DCA selection.
	MinDCAXY
	MaxDCAXY

	numVars
)

var varNames = [numVars]string{
	MassB:                  "m",
	CPA:                    "CPA",
	D0ImpactParameter:      "d0 D0",
	PiImpactParameter:      "d0 Pi",
	PtD0:                   "pT D0",
	PtPi:                   "pT Pi",
	DecayLength:            "B decLen",
	DecayLengthXY:          "B decLenXY",
	ImpactParameterProduct: "Imp. Par. Product",
	DeltaMassD0:            "DeltaMD0",
	CosThetaStar:           "Cos ThetaStar",
	MinDCAXY:               "min_dcaxytoprimary",
	MaxDCAXY:               "max_dcaxytoprimary",
}

func (v Var) String() string {
	if v < 0 || v >= numVars {
		return fmt.Sprintf("Var(%d)", int(v))
	}
	return varNames[v]
}

// ParseVar maps a cut label to its Var.
func ParseVar(name string) (Var, error) {
	for i, n := range varNames {
		if n == name {
			return Var(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCut, name)
}

// BplusVars are the variables a B± topology table must define.
var BplusVars = []Var{PtPi, ImpactParameterProduct, DeltaMassD0, DecayLength, DecayLengthXY, CPA, D0ImpactParameter, PiImpactParameter}

// TrackDCAVars are the variables a single-track DCA table must define.
var TrackDCAVars = []Var{MinDCAXY, MaxDCAXY}

var (
	ErrEmptyTable          = errors.New("cut table has fewer than two bin edges")
	ErrNonIncreasingEdges  = errors.New("cut table bin edges are not strictly increasing")
	ErrMissingCut          = errors.New("cut table is missing a required cut")
	ErrUnknownCut          = errors.New("unknown cut variable")
	ErrWrongNumberOfValues = errors.New("cut has wrong number of values")
)

// Table is a validated pT-binned cut table. Bin i covers [Edges[i], Edges[i+1]).
type Table struct {
	edges  []float64
	values map[Var][]float64
}

// NewTable validates and builds a table. values maps each cut to one value
// per bin; every var in required must be present.
func NewTable(edges []float64, values map[Var][]float64, required []Var) (*Table, error) {
	if len(edges) < 2 {
		return nil, ErrEmptyTable
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("%w: edge %d (%g) <= edge %d (%g)", ErrNonIncreasingEdges, i, edges[i], i-1, edges[i-1])
		}
	}
	nBins := len(edges) - 1
	for _, v := range required {
		if _, ok := values[v]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingCut, v)
		}
	}
	t := &Table{
		edges:  append([]float64(nil), edges...),
		values: make(map[Var][]float64, len(values)),
	}
	for v, vals := range values {
		if len(vals) != nBins {
			return nil, fmt.Errorf("%w: %s has %d values for %d bins", ErrWrongNumberOfValues, v, len(vals), nBins)
		}
		t.values[v] = append([]float64(nil), vals...)
	}
	return t, nil
}

// NewTableFromLabels is NewTable keyed by cut labels, as they appear in
// configuration files.
func NewTableFromLabels(edges []float64, labelled map[string][]float64, required []Var) (*Table, error) {
	values := make(map[Var][]float64, len(labelled))
	for name, vals := range labelled {
		v, err := ParseVar(name)
		if err != nil {
			return nil, err
		}
		values[v] = vals
	}
	return NewTable(edges, values, required)
}

// Edges returns a copy of the bin edges.
func (t *Table) Edges() []float64 {
	return append([]float64(nil), t.edges...)
}

// NBins is the number of pT bins.
func (t *Table) NBins() int { return len(t.edges) - 1 }

// Find returns the bin containing pt, or -1 when pt is below the first
// edge, at or above the last edge, or NaN.
func (t *Table) Find(pt float64) int {
	return floats.Within(t.edges, pt)
}

// Get returns the value of v in bin. It panics on an undefined cut or an
// out-of-range bin; callers obtain bin from Find and check for -1 first.
func (t *Table) Get(bin int, v Var) float64 {
	vals, ok := t.values[v]
	if !ok {
		panic(fmt.Sprintf("cuts: %s not defined in table", v))
	}
	return vals[bin]
}

// Has reports whether the table defines v.
func (t *Table) Has(v Var) bool {
	_, ok := t.values[v]
	return ok
}

// Threshold looks up v for the bin containing pt. ok is false when pt is
// outside the table or v is undefined; callers must treat that as a
// rejection.
func (t *Table) Threshold(v Var, pt float64) (value float64, ok bool) {
	bin := t.Find(pt)
	if bin < 0 {
		return 0, false
	}
	vals, defined := t.values[v]
	if !defined {
		return 0, false
	}
	return vals[bin], true
}

// Labelled returns a copy of the table values keyed by cut label.
func (t *Table) Labelled() map[string][]float64 {
	out := make(map[string][]float64, len(t.values))
	for v, vals := range t.values {
		out[v.String()] = append([]float64(nil), vals...)
	}
	return out
}

// Vars lists the defined cut variables in enum order.
func (t *Table) Vars() []Var {
	out := make([]Var, 0, len(t.values))
	for v := range t.values {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FindBin returns i such that edges[i] <= x < edges[i+1], or -1. edges must
// be strictly increasing with at least two entries; anything else also
// yields -1.
func FindBin(edges []float64, x float64) int {
	if len(edges) < 2 || math.IsNaN(x) || !sort.Float64sAreSorted(edges) {
		return -1
	}
	return floats.Within(edges, x)
}
