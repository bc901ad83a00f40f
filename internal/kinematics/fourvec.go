// Package kinematics provides the small amount of relativistic 4-vector
// arithmetic the reconstruction needs: building a vector from a momentum
// and a mass hypothesis, summing, and reading off invariant mass,
// transverse momentum and rapidity. Units are GeV and GeV/c.
package kinematics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// FourVector is an energy-momentum 4-vector.
type FourVector struct {
	P r3.Vec
	E float64
}

// FromMomentumMass builds the 4-vector of a particle with momentum
// (px, py, pz) under the given mass hypothesis.
func FromMomentumMass(px, py, pz, mass float64) FourVector {
	p := r3.Vec{X: px, Y: py, Z: pz}
	return FourVector{P: p, E: math.Sqrt(r3.Dot(p, p) + mass*mass)}
}

// Add returns the sum of two 4-vectors.
func Add(a, b FourVector) FourVector {
	return FourVector{P: r3.Add(a.P, b.P), E: a.E + b.E}
}

// Sum adds any number of 4-vectors.
func Sum(vs ...FourVector) FourVector {
	var out FourVector
	for _, v := range vs {
		out = Add(out, v)
	}
	return out
}

// M2 is the squared invariant mass.
func (v FourVector) M2() float64 {
	return v.E*v.E - r3.Dot(v.P, v.P)
}

// M is the invariant mass. Space-like vectors (M2 < 0, only possible from
// rounding) return -sqrt(-M2) to match the usual convention.
func (v FourVector) M() float64 {
	m2 := v.M2()
	if m2 < 0 {
		return -math.Sqrt(-m2)
	}
	return math.Sqrt(m2)
}

// Pt is the transverse momentum.
func (v FourVector) Pt() float64 {
	return math.Hypot(v.P.X, v.P.Y)
}

// Rapidity is 0.5*ln((E+pz)/(E-pz)). Vectors moving at the speed of light
// along the beam axis return ±Inf.
func (v FourVector) Rapidity() float64 {
	num := v.E + v.P.Z
	den := v.E - v.P.Z
	if den <= 0 {
		return math.Inf(1)
	}
	if num <= 0 {
		return math.Inf(-1)
	}
	return 0.5 * math.Log(num/den)
}

// Pt returns the transverse momentum of a (px, py) pair.
func Pt(px, py float64) float64 {
	return math.Hypot(px, py)
}
