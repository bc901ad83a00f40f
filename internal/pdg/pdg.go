// Package pdg names the particle species used by the analyses and looks up
// their masses from the go-hep particle data table.
package pdg

import (
	"fmt"
	"sync"

	"go-hep.org/x/hep/heppdt"
)

// Code is a PDG Monte-Carlo particle code.
type Code int

const (
	PiPlus    Code = 211
	KPlus     Code = 321
	K892Zero  Code = 313
	K1Plus    Code = 10323
	D0        Code = 421
	DPlus     Code = 411
	BPlus     Code = 521
	BZero     Code = 511
	ProtonPDG Code = 2212
)

// Masses used when the particle table has no entry (or a zero mass) for a
// code. Values in GeV/c^2.
var fallbackMass = map[Code]float64{
	PiPlus:    0.13957039,
	KPlus:     0.493677,
	K892Zero:  0.89555,
	K1Plus:    1.253,
	D0:        1.86484,
	DPlus:     1.86966,
	BPlus:     5.27934,
	BZero:     5.27965,
	ProtonPDG: 0.93827208816,
}

var (
	massMu    sync.Mutex
	massCache = map[Code]float64{}
)

// Mass returns the nominal mass of the species in GeV/c^2. The sign of the
// code is ignored so antiparticles share their particle's mass.
func Mass(c Code) float64 {
	c = Abs(c)
	massMu.Lock()
	defer massMu.Unlock()
	if m, ok := massCache[c]; ok {
		return m
	}
	m := fallbackMass[c]
	if p := heppdt.ParticleByID(heppdt.PID(c)); p != nil && p.Mass > 0 {
		m = p.Mass
	}
	massCache[c] = m
	return m
}

// Abs strips the charge-conjugation sign from a code.
func Abs(c Code) Code {
	if c < 0 {
		return -c
	}
	return c
}

// Species is a particle-identification hypothesis.
type Species int

const (
	Pion Species = iota
	Kaon
	Proton
)

func (s Species) String() string {
	switch s {
	case Pion:
		return "pion"
	case Kaon:
		return "kaon"
	case Proton:
		return "proton"
	}
	return "unknown"
}

// Code returns the positive PDG code of the species.
func (s Species) Code() Code {
	switch s {
	case Kaon:
		return KPlus
	case Proton:
		return ProtonPDG
	}
	return PiPlus
}

// MarshalText encodes the species by name so it can key JSON objects.
func (s Species) MarshalText() ([]byte, error) {
	if s < Pion || s > Proton {
		return nil, fmt.Errorf("pdg: invalid species %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names produced by String.
func (s *Species) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pion", "pi":
		*s = Pion
	case "kaon", "ka":
		*s = Kaon
	case "proton", "pr":
		*s = Proton
	default:
		return fmt.Errorf("pdg: unknown species %q", b)
	}
	return nil
}
