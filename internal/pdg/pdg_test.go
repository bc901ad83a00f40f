package pdg

import (
	"math"
	"testing"
)

func TestMass_KnownSpecies(t *testing.T) {
	tests := []struct {
		code Code
		want float64
		tol  float64
	}{
		{PiPlus, 0.1396, 1e-3},
		{KPlus, 0.4937, 1e-3},
		{K892Zero, 0.8955, 1e-2},
		{D0, 1.8648, 1e-3},
		{BPlus, 5.279, 1e-2},
	}
	for _, tt := range tests {
		if got := Mass(tt.code); math.Abs(got-tt.want) > tt.tol {
			t.Errorf("Mass(%d) = %v, want %v±%v", tt.code, got, tt.want, tt.tol)
		}
	}
}

func TestMass_AntiparticleMatches(t *testing.T) {
	if Mass(-KPlus) != Mass(KPlus) {
		t.Errorf("antiparticle mass differs: %v vs %v", Mass(-KPlus), Mass(KPlus))
	}
}

func TestSpeciesCode(t *testing.T) {
	if Kaon.Code() != KPlus || Pion.Code() != PiPlus || Proton.Code() != ProtonPDG {
		t.Error("species codes mismatch")
	}
	if Kaon.String() != "kaon" {
		t.Errorf("String() = %q", Kaon.String())
	}
}
