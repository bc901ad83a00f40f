package reco

import (
	"fmt"
	"math"

	"github.com/banshee-data/resonance.report/internal/config"
	"github.com/banshee-data/resonance.report/internal/cuts"
	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/histo"
	"github.com/banshee-data/resonance.report/internal/kinematics"
	"github.com/banshee-data/resonance.report/internal/pdg"
)

// TrackCuts are the single-track quality cuts applied to every daughter.
type TrackCuts struct {
	MinPt    float64
	MaxDCAXY float64
	MinDCAZ  float64
	MaxDCAZ  float64
}

// Pass reports whether t survives the cuts.
func (c TrackCuts) Pass(t *event.Track) bool {
	if t.Pt() < c.MinPt {
		return false
	}
	if t.DcaXY > c.MaxDCAXY {
		return false
	}
	return t.DcaZ >= c.MinDCAZ && t.DcaZ <= c.MaxDCAZ
}

// Config holds the reconstruction cuts.
type Config struct {
	Track TrackCuts

	MaxTPCNSigmaPion     float64
	MaxTOFNSigmaPion     float64
	MaxTPCNSigmaBachelor float64
	MaxTOFNSigmaBachelor float64
	DoTOFPID             bool

	KaonTPC cuts.Breakpoints
	KaonTOF cuts.Breakpoints

	// BachelorDCA is an optional pT-binned |DCAxy| window for the bachelor.
	BachelorDCA *cuts.Table

	K892MassWindow float64
	PiPiMin        float64
	PiPiMax        float64
	K1MinRapidity  float64
	K1MaxRapidity  float64

	// MC enables truth matching and the MC histograms.
	MC bool
}

// ConfigFromAnalysis builds a reconstruction Config from the analysis
// configuration.
func ConfigFromAnalysis(c *config.AnalysisConfig, mc bool) (Config, error) {
	dca, err := c.BachelorDCATable()
	if err != nil {
		return Config{}, fmt.Errorf("bachelor dca table: %w", err)
	}
	return Config{
		Track: TrackCuts{
			MinPt:    c.GetMinPt(),
			MaxDCAXY: c.GetMaxDCAXY(),
			MinDCAZ:  c.GetMinDCAZ(),
			MaxDCAZ:  c.GetMaxDCAZ(),
		},
		MaxTPCNSigmaPion:     c.GetMaxTPCNSigmaPion(),
		MaxTOFNSigmaPion:     c.GetMaxTOFNSigmaPion(),
		MaxTPCNSigmaBachelor: c.GetMaxTPCNSigmaPionBachelor(),
		MaxTOFNSigmaBachelor: c.GetMaxTOFNSigmaPionBachelor(),
		DoTOFPID:             c.GetDoTOFPID(),
		KaonTPC:              c.KaonTPCBreakpoints(),
		KaonTOF:              c.KaonTOFBreakpoints(),
		BachelorDCA:          dca,
		K892MassWindow:       c.GetK892MassWindow(),
		PiPiMin:              c.GetPiPiMassMin(),
		PiPiMax:              c.GetPiPiMassMax(),
		K1MinRapidity:        c.GetK1MinRapidity(),
		K1MaxRapidity:        c.GetK1MaxRapidity(),
		MC:                   mc,
	}, nil
}

// Combination describes one K1 entry. It is passed to OnCombination.
type Combination struct {
	Pion         event.TrackKey
	Kaon         event.TrackKey
	Bachelor     event.TrackKey
	PionSign     int8
	KaonSign     int8
	BachelorSign int8
	K892Mass     float64
	K1Mass       float64
	K1Pt         float64
	Category     Category
}

// Stats counts what one Reconstruct call produced.
type Stats struct {
	Pairs int // opposite-sign pairs passing daughter selection
	K892  int // pairs inside the K*0 mass window
	K1    int // triples filled
	MC    int // truth-matched K1 triples
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Pairs += o.Pairs
	s.K892 += o.K892
	s.K1 += o.K1
	s.MC += o.MC
}

// Reconstructor fills K*0 and K1 histograms into one registry. Use one
// Reconstructor per worker and merge the registries afterwards.
type Reconstructor struct {
	cfg   Config
	h     *histograms
	mPi   float64
	mKa   float64
	mK892 float64

	// OnCombination, when set, is called for every K1 entry filled.
	OnCombination func(Combination)
}

// New returns a Reconstructor that defines its histograms in reg.
func New(cfg Config, reg *histo.Registry) (*Reconstructor, error) {
	if reg == nil {
		return nil, fmt.Errorf("reco: nil histogram registry")
	}
	if err := cfg.KaonTPC.Validate(); err != nil {
		return nil, fmt.Errorf("kaon TPC breakpoints: %w", err)
	}
	if err := cfg.KaonTOF.Validate(); err != nil {
		return nil, fmt.Errorf("kaon TOF breakpoints: %w", err)
	}
	return &Reconstructor{
		cfg:   cfg,
		h:     defineHistograms(reg, cfg.MC),
		mPi:   pdg.Mass(pdg.PiPlus),
		mKa:   pdg.Mass(pdg.KPlus),
		mK892: pdg.Mass(pdg.K892Zero),
	}, nil
}

// Process reconstructs within one collision.
func (r *Reconstructor) Process(c *event.Collision) Stats {
	return r.Reconstruct(c, c.Tracks, c.Tracks, Same)
}

// ProcessMixed reconstructs across a mixing pair: the π K pair comes from
// second and the bachelor from first. Entries carry first's multiplicity.
// A collision is never mixed with itself.
func (r *Reconstructor) ProcessMixed(first, second *event.Collision) Stats {
	if first == second {
		return Stats{}
	}
	return r.Reconstruct(first, second.Tracks, first.Tracks, Mixed)
}

// daughter caches the per-track quantities used by the pair loop.
type daughter struct {
	t      *event.Track
	key    event.TrackKey
	pt     float64
	passed bool // track cuts

	piTPC, piTOF float64
	kaTPC, kaTOF float64
	hasTOF       bool
	pionOK       bool
	kaonOK       bool
	bachelorOK   bool

	asPion, asKaon kinematics.FourVector
}

func (r *Reconstructor) prepare(tracks []event.Track) []daughter {
	out := make([]daughter, len(tracks))
	for i := range tracks {
		t := &tracks[i]
		d := daughter{t: t, key: t.Key(), pt: t.Pt(), passed: r.cfg.Track.Pass(t)}

		var tpcPi, tpcKa bool
		d.piTPC, tpcPi = t.TPCNSigma(pdg.Pion)
		d.kaTPC, tpcKa = t.TPCNSigma(pdg.Kaon)
		d.piTOF, d.hasTOF = t.TOFNSigma(pdg.Pion)
		d.kaTOF, _ = t.TOFNSigma(pdg.Kaon)

		d.pionOK = tpcPi && math.Abs(d.piTPC) <= r.cfg.MaxTPCNSigmaPion
		if d.hasTOF && math.Abs(d.piTOF) > r.cfg.MaxTOFNSigmaPion {
			d.pionOK = false
		}

		d.kaonOK = tpcKa && r.cfg.KaonTPC.Pass(d.pt, d.kaTPC)
		if d.hasTOF && !r.cfg.KaonTOF.Pass(d.pt, d.kaTOF) {
			d.kaonOK = false
		}

		d.bachelorOK = tpcPi && math.Abs(d.piTPC) <= r.cfg.MaxTPCNSigmaBachelor
		if r.cfg.DoTOFPID && d.hasTOF && math.Abs(d.piTOF) > r.cfg.MaxTOFNSigmaBachelor {
			d.bachelorOK = false
		}
		if r.cfg.BachelorDCA != nil && !bachelorDCAPass(r.cfg.BachelorDCA, d.pt, t.DcaXY) {
			d.bachelorOK = false
		}

		d.asPion = t.FourVector(r.mPi)
		d.asKaon = t.FourVector(r.mKa)
		out[i] = d
	}
	return out
}

func sameTracks(a, b []event.Track) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

func bachelorDCAPass(tbl *cuts.Table, pt, dcaXY float64) bool {
	bin := tbl.Find(pt)
	if bin < 0 {
		return false
	}
	a := math.Abs(dcaXY)
	return a >= tbl.Get(bin, cuts.MinDCAXY) && a <= tbl.Get(bin, cuts.MaxDCAXY)
}

// Reconstruct builds π K pairs from pairTracks and extends each surviving
// pair with a bachelor pion from bachelors. coll supplies the multiplicity.
func (r *Reconstructor) Reconstruct(coll *event.Collision, pairTracks, bachelors []event.Track, mode Mode) Stats {
	var st Stats
	same := mode == Same
	mult := coll.Multiplicity

	pairs := r.prepare(pairTracks)
	bach := pairs
	if !sameTracks(pairTracks, bachelors) {
		bach = r.prepare(bachelors)
	}

	for i := range pairs {
		d1 := &pairs[i] // pion
		for j := range pairs {
			d2 := &pairs[j] // kaon
			if d1.key == d2.key {
				continue
			}
			if int(d1.t.Sign)*int(d2.t.Sign) > 0 {
				continue
			}
			if !d1.passed || !d2.passed {
				continue
			}

			if same {
				r.h.before.pion.fill(d1.pt, d1.piTPC, d1.piTOF, d1.hasTOF)
				r.h.before.kaon.fill(d2.pt, d2.kaTPC, d2.kaTOF, d2.hasTOF)
			}
			if !d1.pionOK || !d2.kaonOK {
				continue
			}
			if same {
				r.h.after.pion.fill(d1.pt, d1.piTPC, d1.piTOF, d1.hasTOF)
				r.h.after.kaon.fill(d2.pt, d2.kaTPC, d2.kaTOF, d2.hasTOF)
			}
			st.Pairs++

			k892 := kinematics.Add(d1.asPion, d2.asKaon)
			k892Mass := k892.M()
			anti := d2.t.Sign > 0
			if same {
				kt := K892Matter
				if anti {
					kt = K892Anti
				}
				r.h.k892Mass.Fill(1, k892Mass)
				r.h.k892.Fill(1, float64(kt), mult, k892.Pt(), k892Mass)
			}
			if math.Abs(k892Mass-r.mK892) > r.cfg.K892MassWindow {
				continue
			}
			st.K892++

			for b := range bach {
				db := &bach[b]
				if db.key == d1.key || db.key == d2.key {
					continue
				}
				if !db.passed {
					continue
				}
				if same {
					r.h.before.bachelor.fill(db.pt, db.piTPC, db.piTOF, db.hasTOF)
				}
				if !db.bachelorOK {
					continue
				}
				if same {
					r.h.after.bachelor.fill(db.pt, db.piTPC, db.piTOF, db.hasTOF)
				}

				k1 := kinematics.Add(k892, db.asPion)
				y := k1.Rapidity()
				if y > r.cfg.K1MaxRapidity || y < r.cfg.K1MinRapidity {
					continue
				}

				pipiMass := kinematics.Add(d1.asPion, db.asPion).M()
				if same {
					r.h.pipiBefore.Fill(1, k892Mass, pipiMass)
				}
				if pipiMass < r.cfg.PiPiMin || pipiMass > r.cfg.PiPiMax {
					continue
				}

				cat := CategoryOf(db.t.Sign, anti, mode)
				k1Mass, k1Pt := k1.M(), k1.Pt()
				if cat.quickCheck() {
					if same {
						r.h.k1Mass.Fill(1, k1Mass)
					} else {
						r.h.k1MassMix.Fill(1, k1Mass)
					}
				}
				r.h.k1.Fill(1, float64(cat), mult, k1Pt, k1Mass)
				st.K1++

				if r.OnCombination != nil {
					r.OnCombination(Combination{
						Pion:         d1.key,
						Kaon:         d2.key,
						Bachelor:     db.key,
						PionSign:     d1.t.Sign,
						KaonSign:     d2.t.Sign,
						BachelorSign: db.t.Sign,
						K892Mass:     k892Mass,
						K1Mass:       k1Mass,
						K1Pt:         k1Pt,
						Category:     cat,
					})
				}

				if r.cfg.MC && same && r.matchMC(d1.t, d2.t, db.t, k892, k892Mass, k1, pipiMass, mult) {
					st.MC++
				}
			}
		}
	}
	return st
}

// matchMC fills the truth-matched histograms. The π K pair must come from
// one K*0, and a K*0 match is recorded even when the bachelor does not
// come from a K1.
func (r *Reconstructor) matchMC(pion, kaon, bachelor *event.Track, k892 kinematics.FourVector, k892Mass float64, k1 kinematics.FourVector, pipiMass, mult float64) bool {
	tp, tk := pion.Truth, kaon.Truth
	if tp == nil || tk == nil {
		return false
	}
	if pdg.Abs(tp.PDG) != pdg.PiPlus || pdg.Abs(tk.PDG) != pdg.KPlus {
		return false
	}
	if tp.MotherID != tk.MotherID || pdg.Abs(tp.MotherPDG) != pdg.K892Zero {
		return false
	}
	r.h.reconK892Pt.Fill(1, k892.Pt())

	tb := bachelor.Truth
	if tb == nil || pdg.Abs(tb.PDG) != pdg.PiPlus || pdg.Abs(tb.MotherPDG) != pdg.K1Plus {
		return false
	}
	k1Mass, k1Pt := k1.M(), k1.Pt()
	r.h.reconK1Pt.Fill(1, k1Pt)
	r.h.k1MC.Fill(1, MCRecon, mult, k1Pt, k1Mass)
	r.h.pipiMCAfter.Fill(1, k892Mass, pipiMass)
	return true
}

// CountTrueK1 fills the generator-level K1 spectrum with every K1± inside
// |y| <= 0.5 that has both a K*0 and a charged pion among its daughters.
// It returns the number of K1 counted. It is a no-op without MC.
func (r *Reconstructor) CountTrueK1(particles []event.MCParticle) int {
	if !r.cfg.MC {
		return 0
	}
	byIndex := make(map[int]*event.MCParticle, len(particles))
	for i := range particles {
		byIndex[particles[i].Index] = &particles[i]
	}
	n := 0
	for i := range particles {
		p := &particles[i]
		if pdg.Abs(p.PDG) != pdg.K1Plus {
			continue
		}
		if p.Y > 0.5 || p.Y < -0.5 {
			continue
		}
		var hasK892, hasPion bool
		for _, di := range p.Daughters {
			d, ok := byIndex[di]
			if !ok {
				continue
			}
			switch pdg.Abs(d.PDG) {
			case pdg.K892Zero:
				hasK892 = true
			case pdg.PiPlus:
				hasPion = true
			}
		}
		if !hasK892 || !hasPion {
			continue
		}
		r.h.trueK1Pt.Fill(1, p.Pt)
		n++
	}
	return n
}
