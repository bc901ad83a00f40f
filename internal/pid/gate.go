// Package pid decides whether a track's particle-identification response is
// compatible with a species hypothesis, combining a low-momentum detector
// (TPC) and a high-momentum detector (TOF).
package pid

import (
	"math"

	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/pdg"
)

// Status is the outcome of a PID evaluation.
type Status int

const (
	NotApplicable Status = iota
	Rejected
	Accepted
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	}
	return "not-applicable"
}

// detectorStatus adds the intermediate "conditional" outcome: outside the
// standalone limit but inside the limit used when the other detector
// agrees.
type detectorStatus int

const (
	detNotApplicable detectorStatus = iota
	detRejected
	detConditional
	detAccepted
)

// Detector holds the validity window and limits of one detector.
type Detector struct {
	PtMin float64
	PtMax float64

	// NSigmaMax is the standalone |nSigma| limit; NSigmaCombinedMax is the
	// limit applied when the other detector accepts the track.
	NSigmaMax         float64
	NSigmaCombinedMax float64
}

func (d Detector) status(pt, nsigma float64, ok bool) detectorStatus {
	if !ok || pt < d.PtMin || pt > d.PtMax || math.IsNaN(nsigma) {
		return detNotApplicable
	}
	a := math.Abs(nsigma)
	switch {
	case a <= d.NSigmaMax:
		return detAccepted
	case a <= d.NSigmaCombinedMax:
		return detConditional
	}
	return detRejected
}

// Gate evaluates the TPC and TOF response of a track for one species.
type Gate struct {
	Species pdg.Species
	TPC     Detector
	TOF     Detector

	// Combined lets a track pass when both detectors are within their
	// combined limits. Without it both must accept.
	Combined bool
}

// NewPionGate returns the B± bachelor-pion gate with the reference windows:
// TPC effectively off (999-9999 GeV/c) and TOF between 0.15 and 50 GeV/c,
// both at 5 sigma.
func NewPionGate() Gate {
	return Gate{
		Species:  pdg.Pion,
		TPC:      Detector{PtMin: 999, PtMax: 9999, NSigmaMax: 5, NSigmaCombinedMax: 5},
		TOF:      Detector{PtMin: 0.15, PtMax: 50, NSigmaMax: 5, NSigmaCombinedMax: 999},
		Combined: true,
	}
}

// Status evaluates the track under the gate's species hypothesis.
func (g Gate) Status(t *event.Track) Status {
	pt := t.Pt()
	tpcSigma, tpcOK := t.TPCNSigma(g.Species)
	tofSigma, tofOK := t.TOFNSigma(g.Species)
	return g.combine(g.TPC.status(pt, tpcSigma, tpcOK), g.TOF.status(pt, tofSigma, tofOK))
}

func (g Gate) combine(tpc, tof detectorStatus) Status {
	switch {
	case tpc == detNotApplicable && tof == detNotApplicable:
		return NotApplicable
	case tpc == detNotApplicable:
		return single(tof)
	case tof == detNotApplicable:
		return single(tpc)
	case tpc == detAccepted && tof == detAccepted:
		return Accepted
	case g.Combined && tpc != detRejected && tof != detRejected:
		return Accepted
	}
	return Rejected
}

// single decides from one usable detector. A conditional response has
// nothing to confirm it and is reported as not applicable.
func single(s detectorStatus) Status {
	switch s {
	case detAccepted:
		return Accepted
	case detConditional:
		return NotApplicable
	}
	return Rejected
}

// Passes applies the not-applicable policy: with acceptNotApplicable only
// Rejected fails, otherwise only Accepted passes.
func Passes(s Status, acceptNotApplicable bool) bool {
	if acceptNotApplicable {
		return s != Rejected
	}
	return s == Accepted
}
