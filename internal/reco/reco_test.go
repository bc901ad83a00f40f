package reco

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/resonance.report/internal/config"
	"github.com/banshee-data/resonance.report/internal/cuts"
	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/histo"
	"github.com/banshee-data/resonance.report/internal/pdg"
	"github.com/banshee-data/resonance.report/internal/testutil"
)

func defaultConfig(t *testing.T, mc bool) Config {
	t.Helper()
	cfg, err := ConfigFromAnalysis(config.EmptyAnalysisConfig(), mc)
	require.NoError(t, err)
	return cfg
}

func newReco(t *testing.T, cfg Config) (*Reconstructor, *histo.Registry) {
	t.Helper()
	reg := histo.NewRegistry()
	r, err := New(cfg, reg)
	require.NoError(t, err)
	return r, reg
}

// k1Collision holds one π+ K- pair inside the K*0 window plus a π+
// bachelor. Pairing the bachelor with the kaon falls outside the window.
func k1Collision(id int64, sign int8) *event.Collision {
	return testutil.Collision(id, 1.0, 25,
		testutil.Pion(0, sign, 0.29, 0.5, 0),
		testutil.Kaon(1, -sign, -0.29, 0.5, 0),
		testutil.Pion(2, sign, 0.3, -0.2, 0),
	)
}

func categoryCount(reg *histo.Registry, c Category) float64 {
	return reg.Get(HK1Sparse).Values(0, nil)[int(c)]
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		sign int8
		anti bool
		mode Mode
		want Category
	}{
		{1, false, Same, MatterPos},
		{-1, false, Same, MatterNeg},
		{1, true, Same, AntiPos},
		{-1, true, Same, AntiNeg},
		{1, false, Mixed, MatterPosMix},
		{-1, false, Mixed, MatterNegMix},
		{1, true, Mixed, AntiPosMix},
		{-1, true, Mixed, AntiNegMix},
	}
	for _, tt := range tests {
		got := CategoryOf(tt.sign, tt.anti, tt.mode)
		assert.Equal(t, tt.want, got, "CategoryOf(%d, %v, %v)", tt.sign, tt.anti, tt.mode)
		assert.Equal(t, tt.mode == Mixed, got.Mixed())
	}
	assert.Equal(t, "AntiNeg_Mix", AntiNegMix.String())
	assert.Equal(t, "unknown", Category(0).String())
}

func TestTrackCuts(t *testing.T) {
	c := TrackCuts{MinPt: 0.15, MaxDCAXY: 0.5, MinDCAZ: 0, MaxDCAZ: 2}
	base := testutil.Pion(0, 1, 1, 0, 0)
	tests := []struct {
		name   string
		mutate func(tr *event.Track)
		want   bool
	}{
		{"passes", func(tr *event.Track) {}, true},
		{"soft", func(tr *event.Track) { tr.Px = 0.1 }, false},
		{"at min pt", func(tr *event.Track) { tr.Px = 0.15 }, true},
		{"large dcaxy", func(tr *event.Track) { tr.DcaXY = 0.6 }, false},
		{"negative dcaz", func(tr *event.Track) { tr.DcaZ = -0.1 }, false},
		{"large dcaz", func(tr *event.Track) { tr.DcaZ = 2.1 }, false},
		{"dcaz at max", func(tr *event.Track) { tr.DcaZ = 2 }, true},
	}
	for _, tt := range tests {
		tr := base
		tt.mutate(&tr)
		assert.Equal(t, tt.want, c.Pass(&tr), tt.name)
	}
}

func TestSameEventK1(t *testing.T) {
	r, reg := newReco(t, defaultConfig(t, false))
	var got []Combination
	r.OnCombination = func(c Combination) { got = append(got, c) }

	st := r.Process(k1Collision(1, 1))

	assert.Equal(t, Stats{Pairs: 2, K892: 1, K1: 1}, st)
	require.Len(t, got, 1)
	assert.Equal(t, MatterPos, got[0].Category)
	assert.Equal(t, 0, got[0].Pion.ID)
	assert.Equal(t, 1, got[0].Kaon.ID)
	assert.Equal(t, 2, got[0].Bachelor.ID)
	assert.InDelta(t, 0.914, got[0].K892Mass, 0.002)
	assert.InDelta(t, 1.517, got[0].K1Mass, 0.002)

	assert.Equal(t, 1.0, categoryCount(reg, MatterPos))
	assert.Equal(t, 1.0, reg.Get(HK1Sparse).SumW())
	assert.Equal(t, 1.0, reg.Get(HK1Mass).SumW())
	assert.Equal(t, 0.0, reg.Get(HK1MassMix).SumW())
	// Both pairs are recorded before the mass window.
	assert.Equal(t, 2.0, reg.Get(HK892Sparse).SumW())
	assert.Equal(t, 2.0, reg.Get(HK892Mass).SumW())
	// The kaon is negative in both pairs.
	assert.Equal(t, 2.0, reg.Get(HK892Sparse).Values(0, nil)[int(K892Matter)])
	// Multiplicity is recorded on the second axis.
	assert.Equal(t, 1.0, reg.Get(HK1Sparse).Values(1, nil)[25])

	assert.Equal(t, 1.0, reg.Get(HPiPiBefore).SumW())
	assert.Greater(t, reg.Get(qaBeforePrefix+"trkpT_pi").SumW(), 0.0)
	assert.Equal(t, 1.0, reg.Get(qaAfterPrefix+"trkpT_pi_bach").SumW())
}

func TestAntiCategory(t *testing.T) {
	r, reg := newReco(t, defaultConfig(t, false))
	st := r.Process(k1Collision(1, -1))
	assert.Equal(t, 1, st.K1)
	assert.Equal(t, 1.0, categoryCount(reg, AntiNeg))
	assert.Equal(t, 2.0, reg.Get(HK892Sparse).Values(0, nil)[int(K892Anti)])
	assert.Equal(t, 1.0, reg.Get(HK1Mass).SumW())
}

func TestSameSignNeverCombined(t *testing.T) {
	r, reg := newReco(t, defaultConfig(t, false))
	c := testutil.Collision(1, 0, 10,
		testutil.Track(0, 1, 1.0, 0, 0, 0, 0),
		testutil.Track(1, 1, -1.0, 0, 0, 0, 0),
	)
	st := r.Process(c)
	assert.Equal(t, Stats{}, st)
	assert.Equal(t, 0.0, reg.Get(HK892Mass).SumW())
	assert.Equal(t, int64(0), reg.Get(qaBeforePrefix+"trkpT_pi").Entries())
}

func TestCombinationInvariants(t *testing.T) {
	cfg := defaultConfig(t, false)
	cfg.K892MassWindow = 10
	cfg.K1MinRapidity, cfg.K1MaxRapidity = -10, 10
	r, _ := newReco(t, cfg)

	rng := rand.New(rand.NewSource(42))
	var tracks []event.Track
	for i := 0; i < 12; i++ {
		sign := int8(1)
		if rng.Intn(2) == 0 {
			sign = -1
		}
		tracks = append(tracks, testutil.Track(i, sign, rng.Float64()*2-1, rng.Float64()*2-1, rng.Float64()-0.5, 0, 0))
	}
	n := 0
	r.OnCombination = func(c Combination) {
		n++
		assert.Less(t, int(c.PionSign)*int(c.KaonSign), 0, "same-sign pair emitted")
		assert.NotEqual(t, c.Pion, c.Kaon)
		assert.NotEqual(t, c.Bachelor, c.Pion)
		assert.NotEqual(t, c.Bachelor, c.Kaon)
		assert.False(t, c.Category.Mixed())
	}
	st := r.Process(testutil.Collision(3, 0, 50, tracks...))
	assert.Equal(t, st.K1, n)
	assert.Greater(t, n, 0)
}

func TestKaonBreakpoints(t *testing.T) {
	cfg := defaultConfig(t, false)
	cfg.KaonTPC = cuts.Breakpoints{PtBelow: []float64{1, 999}, MaxNSigma: []float64{1, 3}}
	r, _ := newReco(t, cfg)

	// Kaon at pT 0.58 with nSigma 1.5: the pT<1 breakpoint rejects it even
	// though the looser pT<999 one would accept.
	c := k1Collision(1, 1)
	c.Tracks[1].NSigma[pdg.Kaon] = event.Response{TPC: 1.5}
	assert.Equal(t, 0, r.Process(c).K892)

	c.Tracks[1].NSigma[pdg.Kaon] = event.Response{TPC: 0.9}
	assert.Equal(t, 1, r.Process(c).K892)
}

func TestKaonTOFOnlyWhenMatched(t *testing.T) {
	r, _ := newReco(t, defaultConfig(t, false))
	c := k1Collision(1, 1)
	c.Tracks[1].NSigma[pdg.Kaon] = event.Response{TPC: 0, TOF: 5}
	assert.Equal(t, 1, r.Process(c).K892, "TOF response ignored without a TOF match")

	c.Tracks[1].HasTOF = true
	assert.Equal(t, 0, r.Process(c).K892)
}

func TestBachelorSelection(t *testing.T) {
	t.Run("tof pid", func(t *testing.T) {
		cfg := defaultConfig(t, false)
		r, _ := newReco(t, cfg)
		c := k1Collision(1, 1)
		c.Tracks[2].HasTOF = true
		c.Tracks[2].NSigma[pdg.Pion] = event.Response{TPC: 0, TOF: 3}
		assert.Equal(t, 0, r.Process(c).K1)

		cfg.DoTOFPID = false
		r, _ = newReco(t, cfg)
		assert.Equal(t, 1, r.Process(c).K1)
	})

	t.Run("dca table", func(t *testing.T) {
		cfg := defaultConfig(t, false)
		tbl, err := cuts.NewTable([]float64{0, 10}, map[cuts.Var][]float64{
			cuts.MinDCAXY: {0.05},
			cuts.MaxDCAXY: {0.5},
		}, cuts.TrackDCAVars)
		require.NoError(t, err)
		cfg.BachelorDCA = tbl
		r, _ := newReco(t, cfg)

		c := k1Collision(1, 1)
		assert.Equal(t, 0, r.Process(c).K1)
		c.Tracks[2].DcaXY = -0.1
		assert.Equal(t, 1, r.Process(c).K1)
	})

	t.Run("rapidity", func(t *testing.T) {
		cfg := defaultConfig(t, false)
		cfg.K1MinRapidity, cfg.K1MaxRapidity = 0.1, 0.5
		r, _ := newReco(t, cfg)
		assert.Equal(t, 0, r.Process(k1Collision(1, 1)).K1)
	})

	t.Run("pipi window", func(t *testing.T) {
		cfg := defaultConfig(t, false)
		cfg.PiPiMin = 0.8
		r, reg := newReco(t, cfg)
		assert.Equal(t, 0, r.Process(k1Collision(1, 1)).K1)
		// The correlation is recorded before the cut.
		assert.Equal(t, 1.0, reg.Get(HPiPiBefore).SumW())
	})
}

func TestMixedEvent(t *testing.T) {
	r, reg := newReco(t, defaultConfig(t, false))
	var got []Combination
	r.OnCombination = func(c Combination) { got = append(got, c) }

	pairEvent := testutil.Collision(2, 1.0, 70,
		testutil.Pion(0, 1, 0.29, 0.5, 0),
		testutil.Kaon(1, -1, -0.29, 0.5, 0),
	)
	bachelorEvent := testutil.Collision(1, 1.5, 30,
		testutil.Pion(0, 1, 0.3, -0.2, 0),
	)

	st := r.ProcessMixed(bachelorEvent, pairEvent)
	assert.Equal(t, 1, st.K1)
	require.Len(t, got, 1)
	assert.Equal(t, MatterPosMix, got[0].Category)
	assert.NotEqual(t, got[0].Pion.CollisionID, got[0].Bachelor.CollisionID)

	assert.Equal(t, 1.0, categoryCount(reg, MatterPosMix))
	assert.Equal(t, 1.0, reg.Get(HK1Sparse).Values(1, nil)[30], "multiplicity of the bachelor event")
	assert.Equal(t, 1.0, reg.Get(HK1MassMix).SumW())
	assert.Equal(t, 0.0, reg.Get(HK1Mass).SumW())
	// K*0 and QA histograms are same-event only.
	assert.Equal(t, 0.0, reg.Get(HK892Sparse).SumW())
	assert.Equal(t, int64(0), reg.Get(qaBeforePrefix+"trkpT_pi").Entries())

	assert.Equal(t, Stats{}, r.ProcessMixed(pairEvent, pairEvent))
}

func withTruth(c *event.Collision, kaonMother int) *event.Collision {
	c.Tracks[0] = testutil.WithTruth(c.Tracks[0], pdg.PiPlus, 5, pdg.K892Zero)
	c.Tracks[1] = testutil.WithTruth(c.Tracks[1], -pdg.KPlus, kaonMother, -pdg.K892Zero)
	c.Tracks[2] = testutil.WithTruth(c.Tracks[2], pdg.PiPlus, 9, pdg.K1Plus)
	return c
}

func TestMCMatching(t *testing.T) {
	r, reg := newReco(t, defaultConfig(t, true))
	st := r.Process(withTruth(k1Collision(1, 1), 5))
	assert.Equal(t, 1, st.MC)
	assert.Equal(t, 1.0, reg.Get(HReconK892Pt).SumW())
	assert.Equal(t, 1.0, reg.Get(HReconK1Pt).SumW())
	assert.Equal(t, 1.0, reg.Get(HK1SparseMC).Values(0, nil)[MCRecon])
	assert.Equal(t, 1.0, reg.Get(HPiPiMCAfter).SumW())

	r, reg = newReco(t, defaultConfig(t, true))
	st = r.Process(withTruth(k1Collision(1, 1), 6))
	assert.Equal(t, 0, st.MC)
	assert.Equal(t, 0.0, reg.Get(HReconK892Pt).SumW())

	// K*0 matched, bachelor not from a K1.
	r, reg = newReco(t, defaultConfig(t, true))
	c := withTruth(k1Collision(1, 1), 5)
	c.Tracks[2].Truth.MotherPDG = pdg.K892Zero
	st = r.Process(c)
	assert.Equal(t, 0, st.MC)
	assert.Equal(t, 1.0, reg.Get(HReconK892Pt).SumW())
	assert.Equal(t, 0.0, reg.Get(HReconK1Pt).SumW())
}

func TestMCHistogramsOnlyWithMC(t *testing.T) {
	_, reg := newReco(t, defaultConfig(t, false))
	assert.Nil(t, reg.Get(HK1SparseMC))
	assert.Nil(t, reg.Get(HTrueK1Pt))
}

func TestCountTrueK1(t *testing.T) {
	r, reg := newReco(t, defaultConfig(t, true))
	particles := []event.MCParticle{
		{Index: 0, PDG: pdg.K1Plus, Pt: 2.5, Y: 0.1, Daughters: []int{1, 2}},
		{Index: 1, PDG: pdg.K892Zero},
		{Index: 2, PDG: pdg.PiPlus},
		{Index: 3, PDG: -pdg.K1Plus, Pt: 1.5, Y: -0.4, Daughters: []int{4, 5}},
		{Index: 4, PDG: -pdg.K892Zero},
		{Index: 5, PDG: -pdg.PiPlus},
		{Index: 6, PDG: pdg.K1Plus, Pt: 3, Y: 0.7, Daughters: []int{1, 2}}, // outside |y|
		{Index: 7, PDG: pdg.K1Plus, Pt: 3, Y: 0, Daughters: []int{2}},      // no K*0
		{Index: 8, PDG: pdg.K1Plus, Pt: 3, Y: 0, Daughters: []int{1, 99}},  // missing pion
	}
	assert.Equal(t, 2, r.CountTrueK1(particles))
	assert.Equal(t, 2.0, reg.Get(HTrueK1Pt).SumW())

	noMC, _ := newReco(t, defaultConfig(t, false))
	assert.Equal(t, 0, noMC.CountTrueK1(particles))
}

func TestNewErrors(t *testing.T) {
	_, err := New(defaultConfig(t, false), nil)
	assert.Error(t, err)

	cfg := defaultConfig(t, false)
	cfg.KaonTOF = cuts.Breakpoints{PtBelow: []float64{1}, MaxNSigma: nil}
	_, err = New(cfg, histo.NewRegistry())
	assert.Error(t, err)
}
