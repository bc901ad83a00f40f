package event

import (
	"github.com/banshee-data/resonance.report/internal/kinematics"
	"github.com/banshee-data/resonance.report/internal/pdg"
)

// Response is the normalised detector response (nSigma) of a track under
// one species hypothesis.
type Response struct {
	TPC float64 `json:"tpc"`
	TOF float64 `json:"tof"`
}

// Truth links a reconstructed track to the generated particle it came from.
type Truth struct {
	PDG       pdg.Code `json:"pdg"`
	MotherID  int      `json:"mother_id"`
	MotherPDG pdg.Code `json:"mother_pdg"`
}

// TrackKey identifies a track across collisions.
type TrackKey struct {
	CollisionID int64
	ID          int
}

// Track is a reconstructed charged track.
type Track struct {
	ID          int     `json:"id"`
	CollisionID int64   `json:"collision_id"`
	Px          float64 `json:"px"`
	Py          float64 `json:"py"`
	Pz          float64 `json:"pz"`
	Sign        int8    `json:"sign"`
	PtValue     float64 `json:"pt,omitempty"`

	// Distance of closest approach to the primary vertex (cm).
	DcaXY float64 `json:"dca_xy"`
	DcaZ  float64 `json:"dca_z"`

	HasTPC bool                      `json:"has_tpc"`
	HasTOF bool                      `json:"has_tof"`
	NSigma map[pdg.Species]Response `json:"nsigma,omitempty"`

	Truth *Truth `json:"truth,omitempty"`
}

// Key returns the cross-collision identity of the track.
func (t *Track) Key() TrackKey {
	return TrackKey{CollisionID: t.CollisionID, ID: t.ID}
}

// Pt returns the stored transverse momentum, or derives it from px, py.
func (t *Track) Pt() float64 {
	if t.PtValue > 0 {
		return t.PtValue
	}
	return kinematics.Pt(t.Px, t.Py)
}

// TPCNSigma returns the TPC response for s; ok is false without a TPC signal.
func (t *Track) TPCNSigma(s pdg.Species) (nsigma float64, ok bool) {
	if !t.HasTPC {
		return 0, false
	}
	r, found := t.NSigma[s]
	if !found {
		return 0, false
	}
	return r.TPC, true
}

// TOFNSigma returns the TOF response for s; ok is false without a TOF match.
func (t *Track) TOFNSigma(s pdg.Species) (nsigma float64, ok bool) {
	if !t.HasTOF {
		return 0, false
	}
	r, found := t.NSigma[s]
	if !found {
		return 0, false
	}
	return r.TOF, true
}

// FourVector builds the track 4-vector under the mass hypothesis m.
func (t *Track) FourVector(m float64) kinematics.FourVector {
	return kinematics.FromMomentumMass(t.Px, t.Py, t.Pz, m)
}

// Collision is one recorded event.
type Collision struct {
	ID   int64   `json:"id"`
	PosZ float64 `json:"pos_z"`

	// Multiplicity is the estimator recorded with every histogram entry;
	// MultTPC drives event-mixing bins.
	Multiplicity float64 `json:"mult"`
	MultTPC      float64 `json:"mult_tpc"`

	Tracks []Track `json:"tracks"`
}

// DecayType bits of the upstream skim flag on heavy-flavour candidates.
const (
	DecayBplusToD0Pi = 0
)

// DCandidate is the D0 daughter of a B± candidate with its mass under both
// daughter-assignment hypotheses.
type DCandidate struct {
	Pt           float64 `json:"pt"`
	InvMassD0    float64 `json:"inv_mass_d0"`
	InvMassD0bar float64 `json:"inv_mass_d0bar"`
}

// BplusCandidate is a pre-built B± → D0(bar) π± candidate.
type BplusCandidate struct {
	HFFlag uint8   `json:"hf_flag"`
	Pt     float64 `json:"pt"`

	DecayLength            float64 `json:"decay_length"`
	DecayLengthXY          float64 `json:"decay_length_xy"`
	CPA                    float64 `json:"cpa"`
	ImpactParameterProduct float64 `json:"impact_parameter_product"`
	ImpactParameter0       float64 `json:"impact_parameter_0"`
	ImpactParameter1       float64 `json:"impact_parameter_1"`

	D0   DCandidate `json:"d0"`
	Pion Track      `json:"pion"`
}

// HasDecayType reports whether the skim flag carries the given decay bit.
func (c *BplusCandidate) HasDecayType(bit uint) bool {
	return c.HFFlag&(1<<bit) != 0
}

// MCParticle is a generator-level particle.
type MCParticle struct {
	Index     int      `json:"index"`
	PDG       pdg.Code `json:"pdg"`
	Pt        float64  `json:"pt"`
	Y         float64  `json:"y"`
	Daughters []int    `json:"daughters,omitempty"`
}
