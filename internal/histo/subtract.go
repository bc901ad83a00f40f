package histo

import (
	"errors"
	"fmt"
)

// ErrEmptySideband is returned when the mixed-event spectrum has no entries
// in the normalization window.
var ErrEmptySideband = errors.New("mixed-event spectrum is empty in the sideband")

// Subtraction is the result of a real minus mixed-event subtraction.
type Subtraction struct {
	Axis   Axis
	Real   []float64
	Mixed  []float64 // scaled
	Signal []float64
	Scale  float64
}

// SubtractMixed normalizes the mixed-event spectrum to the real one in the
// sideband [lo, hi) and subtracts it bin by bin. Bins are assigned to the
// sideband by their centre.
func SubtractMixed(axis Axis, real, mixed []float64, lo, hi float64) (*Subtraction, error) {
	n := axis.NBins()
	if len(real) != n || len(mixed) != n {
		return nil, fmt.Errorf("%w: spectra have %d and %d bins, axis has %d", ErrIncompatible, len(real), len(mixed), n)
	}
	var sumReal, sumMixed float64
	for i := 0; i < n; i++ {
		c := axis.Center(i)
		if c < lo || c >= hi {
			continue
		}
		sumReal += real[i]
		sumMixed += mixed[i]
	}
	if sumMixed == 0 {
		return nil, fmt.Errorf("%w: [%g, %g)", ErrEmptySideband, lo, hi)
	}
	k := sumReal / sumMixed
	out := &Subtraction{
		Axis:   axis,
		Real:   append([]float64(nil), real...),
		Mixed:  make([]float64, n),
		Signal: make([]float64, n),
		Scale:  k,
	}
	for i := 0; i < n; i++ {
		out.Mixed[i] = k * mixed[i]
		out.Signal[i] = real[i] - out.Mixed[i]
	}
	return out, nil
}
