// Package testutil provides shared test helpers and event fixtures.
//
// The fixtures build tracks, collisions and B± candidates that pass the
// default cuts in config/analysis.defaults.json, so tests only spell out
// the field they want to break.
package testutil

import (
	"math/rand"
	"testing"

	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/pdg"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Off is an nSigma outside every default standalone PID limit.
const Off = 10.0

// Track returns a primary track with TPC only and the given pion and kaon
// TPC responses.
func Track(id int, sign int8, px, py, pz, nsPion, nsKaon float64) event.Track {
	return event.Track{
		ID:     id,
		Px:     px,
		Py:     py,
		Pz:     pz,
		Sign:   sign,
		DcaXY:  0.01,
		DcaZ:   0.1,
		HasTPC: true,
		NSigma: map[pdg.Species]event.Response{
			pdg.Pion:   {TPC: nsPion, TOF: nsPion},
			pdg.Kaon:   {TPC: nsKaon, TOF: nsKaon},
			pdg.Proton: {TPC: Off, TOF: Off},
		},
	}
}

// Pion returns a track identified as a pion only.
func Pion(id int, sign int8, px, py, pz float64) event.Track {
	return Track(id, sign, px, py, pz, 0, Off)
}

// Kaon returns a track identified as a kaon only.
func Kaon(id int, sign int8, px, py, pz float64) event.Track {
	return Track(id, sign, px, py, pz, Off, 0)
}

// WithTOF marks the track as TOF-matched.
func WithTOF(t event.Track) event.Track {
	t.HasTOF = true
	return t
}

// WithTruth attaches MC truth to the track.
func WithTruth(t event.Track, code pdg.Code, motherID int, motherPDG pdg.Code) event.Track {
	t.Truth = &event.Truth{PDG: code, MotherID: motherID, MotherPDG: motherPDG}
	return t
}

// Collision returns a collision holding tracks, with their CollisionID set.
func Collision(id int64, posZ, mult float64, tracks ...event.Track) *event.Collision {
	c := &event.Collision{ID: id, PosZ: posZ, Multiplicity: mult, MultTPC: mult}
	for _, t := range tracks {
		t.CollisionID = id
		c.Tracks = append(c.Tracks, t)
	}
	return c
}

// BplusCandidate returns a B± candidate at the given pT that passes the
// default skim and topology cuts. The pion carries a TOF pion response of
// nsTOF.
func BplusCandidate(pt float64, pionSign int8, nsTOF float64) event.BplusCandidate {
	mD0 := pdg.Mass(pdg.D0)
	pion := Track(1, pionSign, 1.0, 0, 0.2, nsTOF, Off)
	pion.HasTOF = true
	return event.BplusCandidate{
		HFFlag:                 1 << event.DecayBplusToD0Pi,
		Pt:                     pt,
		DecayLength:            0.1,
		DecayLengthXY:          0.08,
		CPA:                    0.99,
		ImpactParameterProduct: -1e-4,
		ImpactParameter0:       0.02,
		ImpactParameter1:       -0.03,
		D0:                     event.DCandidate{Pt: pt * 0.8, InvMassD0: mD0, InvMassD0bar: mD0},
		Pion:                   pion,
	}
}

// RandomCollision returns a collision with n tracks of random momentum and
// sign, all compatible with both the pion and kaon hypotheses. The vertex
// and multiplicity fall inside the default mixing binning.
func RandomCollision(rng *rand.Rand, id int64, n int) *event.Collision {
	tracks := make([]event.Track, 0, n)
	for i := 0; i < n; i++ {
		sign := int8(1)
		if rng.Intn(2) == 0 {
			sign = -1
		}
		tracks = append(tracks, Track(i, sign, rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()-0.5, 0, 0))
	}
	return Collision(id, rng.Float64()*20-10, float64(rng.Intn(60)), tracks...)
}
