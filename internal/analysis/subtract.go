package analysis

import (
	"fmt"

	"github.com/banshee-data/resonance.report/internal/histo"
	"github.com/banshee-data/resonance.report/internal/reco"
)

// Default K1 normalization sideband, above the K1(1270) and K1(1400) peaks.
const (
	DefaultSidebandLo = 1.8
	DefaultSidebandHi = 2.4
)

const (
	sparseTypeAxis = 0
	sparseMassAxis = 3
)

// K1Subtraction projects the K1 sparse histogram of reg onto invariant mass,
// separately for the same-event and mixed-event categories, and subtracts
// the mixed spectrum normalized in [lo, hi).
func K1Subtraction(reg *histo.Registry, lo, hi float64) (*histo.Subtraction, error) {
	h := reg.Get(reco.HK1Sparse)
	if h == nil {
		return nil, fmt.Errorf("histogram %q not defined", reco.HK1Sparse)
	}
	real := h.Values(sparseMassAxis, func(idx []int) bool {
		return !reco.Category(idx[sparseTypeAxis]).Mixed()
	})
	mixed := h.Values(sparseMassAxis, func(idx []int) bool {
		return reco.Category(idx[sparseTypeAxis]).Mixed()
	})
	return histo.SubtractMixed(h.Axes()[sparseMassAxis], real, mixed, lo, hi)
}
