package reco

import "github.com/banshee-data/resonance.report/internal/histo"

// Histogram names in the registry.
const (
	HK892Mass      = "k892invmass"
	HK1Mass        = "k1invmass"
	HK1MassMix     = "k1invmass_mix"
	HK892Sparse    = "THnK892invmass"
	HK1Sparse      = "THnK1invmass"
	HK1SparseMC    = "THnK1invmassMC"
	HReconK892Pt   = "hReconK892pt"
	HTrueK1Pt      = "hTrueK1pt"
	HReconK1Pt     = "hReconK1pt"
	HPiPiBefore    = "QAMCbefore/InvMass_piK_pipi"
	HPiPiMCAfter   = "QAMCafter/InvMass_piK_pipi"
	qaBeforePrefix = "QAbefore/"
	qaAfterPrefix  = "QAafter/"
)

// Axes shared by the reconstruction histograms.
var (
	AxisPt       = histo.Uniform("pt", 200, 0, 20)
	AxisK892Mass = histo.Uniform("mass", 900, 0.6, 1.5)
	AxisK1Mass   = histo.Uniform("mass", 1600, 0.9, 2.5)
	AxisScan     = histo.Uniform("mass", 250, 0, 2.5)
	AxisPIDQA    = histo.Uniform("nsigma", 130, -6.5, 6.5)
	AxisType     = histo.Uniform("type", 9, 0, 9)
	AxisMCType   = histo.Uniform("type", 4, 0, 4)
	AxisMult     = histo.Uniform("mult", 3000, 0, 3000)
)

// speciesQA holds the PID and pT QA of one daughter role at one stage.
type speciesQA struct {
	pt     *histo.Sparse
	tpc    *histo.Sparse
	tof    *histo.Sparse
	tofTPC *histo.Sparse
}

func newSpeciesQA(reg *histo.Registry, prefix, ptName, tpcName, tofName, mapName string) speciesQA {
	return speciesQA{
		pt:     reg.MustDefine(prefix+ptName, AxisPt),
		tpc:    reg.MustDefine(prefix+tpcName, AxisPt, AxisPIDQA),
		tof:    reg.MustDefine(prefix+tofName, AxisPt, AxisPIDQA),
		tofTPC: reg.MustDefine(prefix+mapName, AxisPIDQA, AxisPIDQA),
	}
}

func (q speciesQA) fill(pt, nsTPC, nsTOF float64, hasTOF bool) {
	q.pt.Fill(1, pt)
	q.tpc.Fill(1, pt, nsTPC)
	if hasTOF {
		q.tof.Fill(1, pt, nsTOF)
		q.tofTPC.Fill(1, nsTOF, nsTPC)
	}
}

type stageQA struct {
	pion, kaon, bachelor speciesQA
}

func newStageQA(reg *histo.Registry, prefix string) stageQA {
	return stageQA{
		pion:     newSpeciesQA(reg, prefix, "trkpT_pi", "TPC_Nsigma_pi", "TOF_Nsigma_pi", "TOF_TPC_Map_pi"),
		kaon:     newSpeciesQA(reg, prefix, "trkpT_ka", "TPC_Nsigmaka", "TOF_Nsigma_ka", "TOF_TPC_Map_ka"),
		bachelor: newSpeciesQA(reg, prefix, "trkpT_pi_bach", "TPC_Nsigma_pi_bach", "TOF_Nsigma_pi_bach", "TOF_TPC_Map_pi_bach"),
	}
}

type histograms struct {
	k892Mass, k1Mass, k1MassMix *histo.Sparse
	k892, k1                    *histo.Sparse
	before, after               stageQA
	pipiBefore                  *histo.Sparse

	// MC only
	k1MC, reconK892Pt, trueK1Pt, reconK1Pt, pipiMCAfter *histo.Sparse
}

func defineHistograms(reg *histo.Registry, mc bool) *histograms {
	h := &histograms{
		k892Mass:   reg.MustDefine(HK892Mass, AxisK892Mass),
		k1Mass:     reg.MustDefine(HK1Mass, AxisK1Mass),
		k1MassMix:  reg.MustDefine(HK1MassMix, AxisK1Mass),
		k892:       reg.MustDefine(HK892Sparse, AxisType, AxisMult, AxisPt, AxisK892Mass),
		k1:         reg.MustDefine(HK1Sparse, AxisType, AxisMult, AxisPt, AxisK1Mass),
		before:     newStageQA(reg, qaBeforePrefix),
		after:      newStageQA(reg, qaAfterPrefix),
		pipiBefore: reg.MustDefine(HPiPiBefore, AxisScan, AxisScan),
	}
	if mc {
		h.k1MC = reg.MustDefine(HK1SparseMC, AxisMCType, AxisMult, AxisPt, AxisK1Mass)
		h.reconK892Pt = reg.MustDefine(HReconK892Pt, AxisPt)
		h.trueK1Pt = reg.MustDefine(HTrueK1Pt, AxisPt)
		h.reconK1Pt = reg.MustDefine(HReconK1Pt, AxisPt)
		h.pipiMCAfter = reg.MustDefine(HPiPiMCAfter, AxisScan, AxisScan)
	}
	return h
}
