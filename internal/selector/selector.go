package selector

import (
	"fmt"
	"math"

	"github.com/banshee-data/resonance.report/internal/config"
	"github.com/banshee-data/resonance.report/internal/cuts"
	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/histo"
	"github.com/banshee-data/resonance.report/internal/monitoring"
	"github.com/banshee-data/resonance.report/internal/pdg"
	"github.com/banshee-data/resonance.report/internal/pid"
)

// Stage bits of the selection status.
const (
	BitSkims = iota
	BitTopological
	BitPID
	numBits
)

// QAHistogram is the registry name of the stage-reached histogram.
const QAHistogram = "hSelections"

var stageNames = [numBits]string{"skims", "topological", "pid"}

// Status is the bitmask of stages a candidate passed.
type Status uint8

// Has reports whether the given stage bit is set.
func (s Status) Has(bit int) bool { return s&(1<<uint(bit)) != 0 }

// Depth returns how many stages passed.
func (s Status) Depth() int {
	n := 0
	for n < numBits && s.Has(n) {
		n++
	}
	return n
}

func (s Status) String() string {
	d := s.Depth()
	if d == 0 {
		if s != 0 {
			return fmt.Sprintf("invalid(%d)", uint8(s))
		}
		return "none"
	}
	return fmt.Sprintf("%s(%d)", stageNames[d-1], uint8(s))
}

// Stage is one named predicate of the cascade.
type Stage struct {
	Name    string
	Bit     int
	Enabled func() bool
	Eval    func(c *event.BplusCandidate) bool
}

// Config holds everything the selector reads. It is fixed before the first
// candidate is evaluated.
type Config struct {
	Cuts                   *cuts.Table
	PionGate               pid.Gate
	UsePID                 bool
	AcceptPIDNotApplicable bool
	ActivateQA             bool

	// PIDInSync is false when the D0 producer applied a PID policy that
	// disagrees with UsePID; the PID stage is then skipped.
	PIDInSync bool
}

// ConfigFromAnalysis builds a selector Config from the analysis configuration.
func ConfigFromAnalysis(c *config.AnalysisConfig) (Config, error) {
	tbl, err := c.BplusCutTable()
	if err != nil {
		return Config{}, fmt.Errorf("bplus cut table: %w", err)
	}
	gate := pid.NewPionGate()
	gate.TPC.PtMin, gate.TPC.PtMax, gate.TPC.NSigmaMax, gate.TPC.NSigmaCombinedMax = c.GetPionTPC()
	gate.TOF.PtMin, gate.TOF.PtMax, gate.TOF.NSigmaMax, gate.TOF.NSigmaCombinedMax = c.GetPionTOF()
	return Config{
		Cuts:                   tbl,
		PionGate:               gate,
		UsePID:                 c.GetUsePID(),
		AcceptPIDNotApplicable: c.GetAcceptPIDNotApplicable(),
		ActivateQA:             c.GetActivateQA(),
		PIDInSync:              c.PIDInSync(),
	}, nil
}

// Selector evaluates B± candidates. It is safe for concurrent use.
type Selector struct {
	cfg    Config
	stages []Stage
	qa     *histo.Sparse
	massD0 float64
}

// New returns a selector. reg receives the QA histogram when ActivateQA is
// set and may be nil otherwise.
func New(cfg Config, reg *histo.Registry) (*Selector, error) {
	if cfg.Cuts == nil {
		return nil, fmt.Errorf("%w: selector needs a cut table", cuts.ErrEmptyTable)
	}
	for _, v := range cuts.BplusVars {
		if !cfg.Cuts.Has(v) {
			return nil, fmt.Errorf("%w: %s", cuts.ErrMissingCut, v)
		}
	}
	s := &Selector{cfg: cfg, massD0: pdg.Mass(pdg.D0)}
	if cfg.ActivateQA {
		if reg == nil {
			return nil, fmt.Errorf("selector QA enabled without a histogram registry")
		}
		qa, err := reg.Define(QAHistogram,
			histo.Uniform("selection", numBits+1, 0.5, numBits+1.5),
			histo.Variable("pt", cfg.Cuts.Edges()))
		if err != nil {
			return nil, err
		}
		s.qa = qa
	}
	s.stages = []Stage{
		{
			Name:    stageNames[BitSkims],
			Bit:     BitSkims,
			Enabled: func() bool { return true },
			Eval: func(c *event.BplusCandidate) bool {
				return c.HasDecayType(event.DecayBplusToD0Pi)
			},
		},
		{
			Name:    stageNames[BitTopological],
			Bit:     BitTopological,
			Enabled: func() bool { return true },
			Eval: func(c *event.BplusCandidate) bool {
				ok, failed := s.topology(c)
				if !ok {
					monitoring.Debugf("B+ candidate pt=%.3f failed topology at %q", c.Pt, failed)
				}
				return ok
			},
		},
		{
			Name:    stageNames[BitPID],
			Bit:     BitPID,
			Enabled: func() bool { return s.cfg.UsePID && s.cfg.PIDInSync },
			Eval: func(c *event.BplusCandidate) bool {
				return pid.Passes(s.cfg.PionGate.Status(&c.Pion), s.cfg.AcceptPIDNotApplicable)
			},
		},
	}
	return s, nil
}

// Stages returns the ordered stage list.
func (s *Selector) Stages() []Stage {
	return append([]Stage(nil), s.stages...)
}

// Select evaluates one candidate.
func (s *Selector) Select(c *event.BplusCandidate) Status {
	var st Status
	for _, stage := range s.stages {
		if !stage.Enabled() || !stage.Eval(c) {
			break
		}
		st |= 1 << uint(stage.Bit)
		if s.qa != nil {
			s.qa.Fill(1, float64(2+stage.Bit), c.Pt)
		}
	}
	return st
}

// SelectAll evaluates candidates in order and returns one status per input.
func (s *Selector) SelectAll(cands []event.BplusCandidate) []Status {
	out := make([]Status, len(cands))
	for i := range cands {
		out[i] = s.Select(&cands[i])
	}
	return out
}

// topology applies the pT-binned topological cuts in their fixed order and
// names the first cut that failed.
func (s *Selector) topology(c *event.BplusCandidate) (bool, string) {
	t := s.cfg.Cuts
	bin := t.Find(c.Pt)
	if bin < 0 {
		return false, "pT bin"
	}
	if c.Pion.Pt() < t.Get(bin, cuts.PtPi) {
		return false, cuts.PtPi.String()
	}
	if c.ImpactParameterProduct > t.Get(bin, cuts.ImpactParameterProduct) {
		return false, cuts.ImpactParameterProduct.String()
	}
	// The pion charge fixes which D0 mass hypothesis applies; a neutral
	// pion has none and fails.
	switch {
	case c.Pion.Sign > 0:
		if math.Abs(c.D0.InvMassD0bar-s.massD0) > t.Get(bin, cuts.DeltaMassD0) {
			return false, cuts.DeltaMassD0.String()
		}
	case c.Pion.Sign < 0:
		if math.Abs(c.D0.InvMassD0-s.massD0) > t.Get(bin, cuts.DeltaMassD0) {
			return false, cuts.DeltaMassD0.String()
		}
	default:
		return false, "pion sign"
	}
	if c.DecayLength < t.Get(bin, cuts.DecayLength) {
		return false, cuts.DecayLength.String()
	}
	if c.DecayLengthXY < t.Get(bin, cuts.DecayLengthXY) {
		return false, cuts.DecayLengthXY.String()
	}
	if c.CPA < t.Get(bin, cuts.CPA) {
		return false, cuts.CPA.String()
	}
	if math.Abs(c.ImpactParameter0) < t.Get(bin, cuts.D0ImpactParameter) {
		return false, cuts.D0ImpactParameter.String()
	}
	if math.Abs(c.ImpactParameter1) < t.Get(bin, cuts.PiImpactParameter) {
		return false, cuts.PiImpactParameter.String()
	}
	return true, ""
}
