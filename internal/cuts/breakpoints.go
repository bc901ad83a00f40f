package cuts

import (
	"fmt"
	"math"
)

// Breakpoints is a pT-dependent |nSigma| limit given as ascending upper pT
// breakpoints, each with its own maximum. Every breakpoint above the track
// pT applies, so a track must satisfy all of them; with ascending
// breakpoints that means the tightest applicable limit decides.
type Breakpoints struct {
	PtBelow   []float64
	MaxNSigma []float64
}

// DefaultKaonBreakpoints applies |nSigma| < 2 to every track below 999 GeV/c.
func DefaultKaonBreakpoints() Breakpoints {
	return Breakpoints{PtBelow: []float64{999}, MaxNSigma: []float64{2}}
}

// Validate checks that the two lists pair up and the breakpoints ascend.
func (b Breakpoints) Validate() error {
	if len(b.PtBelow) != len(b.MaxNSigma) {
		return fmt.Errorf("%w: %d pT breakpoints but %d nSigma limits", ErrWrongNumberOfValues, len(b.PtBelow), len(b.MaxNSigma))
	}
	for i := 1; i < len(b.PtBelow); i++ {
		if !(b.PtBelow[i] > b.PtBelow[i-1]) {
			return fmt.Errorf("%w: breakpoint %d (%g) <= breakpoint %d (%g)", ErrNonIncreasingEdges, i, b.PtBelow[i], i-1, b.PtBelow[i-1])
		}
	}
	return nil
}

// Pass reports whether nsigma survives every breakpoint that applies to pt.
// An empty list accepts everything.
func (b Breakpoints) Pass(pt, nsigma float64) bool {
	n := len(b.PtBelow)
	if len(b.MaxNSigma) < n {
		n = len(b.MaxNSigma)
	}
	for i := 0; i < n; i++ {
		if pt < b.PtBelow[i] && math.Abs(nsigma) > b.MaxNSigma[i] {
			return false
		}
	}
	return true
}
