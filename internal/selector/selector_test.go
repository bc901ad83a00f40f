package selector

import (
	"testing"

	"github.com/banshee-data/resonance.report/internal/config"
	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/histo"
	"github.com/banshee-data/resonance.report/internal/monitoring"
	"github.com/banshee-data/resonance.report/internal/pdg"
	"github.com/banshee-data/resonance.report/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func defaultConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := ConfigFromAnalysis(config.MustLoadDefaultConfig())
	testutil.AssertNoError(t, err)
	cfg.PIDInSync = true
	return cfg
}

func newSelector(t *testing.T, cfg Config) (*Selector, *histo.Registry) {
	t.Helper()
	reg := histo.NewRegistry()
	s, err := New(cfg, reg)
	testutil.AssertNoError(t, err)
	return s, reg
}

func TestSelectFullyPassing(t *testing.T) {
	s, _ := newSelector(t, defaultConfig(t))
	c := testutil.BplusCandidate(5, 1, 0.5)
	if got := s.Select(&c); got != 7 {
		t.Errorf("Select() = %d (%v), want 7", got, got)
	}
}

func TestSkimFailureYieldsZero(t *testing.T) {
	s, _ := newSelector(t, defaultConfig(t))
	c := testutil.BplusCandidate(5, 1, 0.5)
	c.HFFlag = 0b10
	if got := s.Select(&c); got != 0 {
		t.Errorf("Select() = %d, want 0", got)
	}
}

func TestPIDDisabledStopsAtTopology(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.UsePID = false
	s, _ := newSelector(t, cfg)

	// A pion that would fail PID cannot matter when PID is off.
	c := testutil.BplusCandidate(5, -1, 1200)
	if got := s.Select(&c); got != 3 {
		t.Errorf("Select() = %d, want 3", got)
	}

	cfg = defaultConfig(t)
	cfg.PIDInSync = false
	s, _ = newSelector(t, cfg)
	if got := s.Select(&c); got != 3 {
		t.Errorf("out-of-sync Select() = %d, want 3", got)
	}
}

func TestTopologyCuts(t *testing.T) {
	s, _ := newSelector(t, defaultConfig(t))
	mD0 := pdg.Mass(pdg.D0)

	tests := []struct {
		name   string
		mutate func(c *event.BplusCandidate)
		want   Status
	}{
		{"passes", func(c *event.BplusCandidate) {}, 7},
		{"pt below first edge", func(c *event.BplusCandidate) { c.Pt = -1 }, 1},
		{"pt at last edge", func(c *event.BplusCandidate) { c.Pt = 24 }, 1},
		{"soft pion", func(c *event.BplusCandidate) { c.Pion.Px, c.Pion.Py = 0.1, 0 }, 1},
		{"positive IP product", func(c *event.BplusCandidate) { c.ImpactParameterProduct = 1e-4 }, 1},
		{"short decay length", func(c *event.BplusCandidate) { c.DecayLength = 0.01 }, 1},
		{"short decay length xy", func(c *event.BplusCandidate) { c.DecayLengthXY = 0.01 }, 1},
		{"low cpa", func(c *event.BplusCandidate) { c.CPA = 0.5 }, 1},
		{"prompt D0", func(c *event.BplusCandidate) { c.ImpactParameter0 = -0.001 }, 1},
		{"prompt pion", func(c *event.BplusCandidate) { c.ImpactParameter1 = 0.005 }, 1},
		// pi+ pairs with a D0bar: only the D0bar hypothesis mass is checked.
		{"pi+ with bad D0bar mass", func(c *event.BplusCandidate) { c.D0.InvMassD0bar = mD0 + 0.2 }, 1},
		{"pi+ ignores D0 mass", func(c *event.BplusCandidate) { c.D0.InvMassD0 = mD0 + 0.2 }, 7},
		{"pi- with bad D0 mass", func(c *event.BplusCandidate) {
			c.Pion.Sign = -1
			c.D0.InvMassD0 = mD0 - 0.2
		}, 1},
		{"pi- ignores D0bar mass", func(c *event.BplusCandidate) {
			c.Pion.Sign = -1
			c.D0.InvMassD0bar = mD0 - 0.2
		}, 7},
		{"neutral pion", func(c *event.BplusCandidate) { c.Pion.Sign = 0 }, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testutil.BplusCandidate(5, 1, 0.5)
			tt.mutate(&c)
			if got := s.Select(&c); got != tt.want {
				t.Errorf("Select() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPIDPolicy(t *testing.T) {
	tests := []struct {
		name     string
		acceptNA bool
		mutate   func(c *event.BplusCandidate)
		want     Status
	}{
		{"accepted", true, func(c *event.BplusCandidate) {}, 7},
		{"rejected", true, func(c *event.BplusCandidate) { c.Pion.NSigma[pdg.Pion] = event.Response{TOF: 1200} }, 3},
		// Outside the standalone TOF limit, inside the combined one, no TPC.
		{"loose tof accepted", true, func(c *event.BplusCandidate) { c.Pion.NSigma[pdg.Pion] = event.Response{TOF: 7} }, 7},
		{"loose tof refused", false, func(c *event.BplusCandidate) { c.Pion.NSigma[pdg.Pion] = event.Response{TOF: 7} }, 3},
		{"not applicable accepted", true, func(c *event.BplusCandidate) { c.Pion.HasTOF = false }, 7},
		{"not applicable refused", false, func(c *event.BplusCandidate) { c.Pion.HasTOF = false }, 3},
		{"accepted strict", false, func(c *event.BplusCandidate) {}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			cfg.AcceptPIDNotApplicable = tt.acceptNA
			s, _ := newSelector(t, cfg)
			c := testutil.BplusCandidate(5, 1, 0.5)
			tt.mutate(&c)
			if got := s.Select(&c); got != tt.want {
				t.Errorf("Select() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStatusPrefixMonotonicAndIdempotent(t *testing.T) {
	s, _ := newSelector(t, defaultConfig(t))

	var cands []event.BplusCandidate
	for i, pt := range []float64{-1, 0.2, 1, 3, 7.5, 12, 23.9, 30} {
		for _, sign := range []int8{-1, 1} {
			c := testutil.BplusCandidate(pt, sign, float64(i))
			if i%3 == 0 {
				c.CPA = 0.1
			}
			if i%4 == 1 {
				c.HFFlag = 0
			}
			cands = append(cands, c)
		}
	}
	first := s.SelectAll(cands)
	second := s.SelectAll(cands)
	if len(first) != len(cands) {
		t.Fatalf("SelectAll returned %d statuses for %d candidates", len(first), len(cands))
	}
	for i, st := range first {
		if st != second[i] {
			t.Errorf("candidate %d: status %d then %d", i, st, second[i])
		}
		for bit := 1; bit < numBits; bit++ {
			if st.Has(bit) && !st.Has(bit-1) {
				t.Errorf("candidate %d: status %03b sets bit %d without bit %d", i, st, bit, bit-1)
			}
		}
	}
}

func TestQAHistogram(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.ActivateQA = true
	s, reg := newSelector(t, cfg)

	pass := testutil.BplusCandidate(5, 1, 0.5)
	topoFail := testutil.BplusCandidate(5, 1, 0.5)
	topoFail.CPA = 0
	s.SelectAll([]event.BplusCandidate{pass, topoFail})

	qa := reg.Get(QAHistogram)
	if qa == nil {
		t.Fatal("QA histogram not registered")
	}
	// skims for both, topology and PID for one
	if got := qa.Value(2, 5); got != 2 {
		t.Errorf("skims bin = %v, want 2", got)
	}
	if got := qa.Value(3, 5); got != 1 {
		t.Errorf("topology bin = %v, want 1", got)
	}
	if got := qa.Value(4, 5); got != 1 {
		t.Errorf("pid bin = %v, want 1", got)
	}
	if got := qa.Value(1, 5); got != 0 {
		t.Errorf("no-selection bin = %v, want 0", got)
	}
}

func TestNewRequiresCuts(t *testing.T) {
	_, err := New(Config{}, nil)
	testutil.AssertError(t, err)

	cfg := defaultConfig(t)
	cfg.ActivateQA = true
	_, err = New(cfg, nil)
	testutil.AssertError(t, err)
}

func TestStatusString(t *testing.T) {
	if got := Status(0).String(); got != "none" {
		t.Errorf("String() = %q", got)
	}
	if got := Status(3).String(); got != "topological(3)" {
		t.Errorf("String() = %q", got)
	}
}
