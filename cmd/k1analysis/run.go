package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/resonance.report/internal/analysis"
	"github.com/banshee-data/resonance.report/internal/config"
	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/histo"
	"github.com/banshee-data/resonance.report/internal/reco"
	"github.com/banshee-data/resonance.report/internal/report"
	"github.com/banshee-data/resonance.report/internal/store"
)

const defaultConfigHint = config.DefaultConfigPath

type options struct {
	configPath  string
	input       string
	mc          bool
	mcParticles string
	mixing      bool
	dbPath      string
	plotDir     string
	qaPlots     bool
	htmlPath    string
	workers     int
	batch       int
	sidebandLo  float64
	sidebandHi  float64
}

func loadConfig(path string) (*config.AnalysisConfig, error) {
	if path == "" {
		return config.MustLoadDefaultConfig(), nil
	}
	return config.LoadAnalysisConfig(path)
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func run(ctx context.Context, o options) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	mc := o.mc || o.mcParticles != ""

	runner, err := analysis.NewRunner(cfg, analysis.Options{MC: mc, Mixing: o.mixing, Workers: o.workers})
	if err != nil {
		return err
	}

	in, err := openInput(o.input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	err = runner.Run(ctx, in, o.batch)
	in.Close()
	if err != nil {
		return fmt.Errorf("reconstruct %s: %w", o.input, err)
	}

	if o.mcParticles != "" {
		f, err := os.Open(o.mcParticles)
		if err != nil {
			return fmt.Errorf("open MC particles: %w", err)
		}
		particles, err := event.ReadMCParticles(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read MC particles: %w", err)
		}
		runner.CountTrueK1(particles)
	}

	res := runner.Result()
	log.Printf("processed %d collisions with %d workers: %d pairs, %d K*0, %d K1 (MC matched %d)",
		res.Events, res.WorkerCount, res.Same.Pairs, res.Same.K892, res.Same.K1, res.Same.MC)
	if o.mixing {
		log.Printf("mixing: %d pairs, %d collisions outside binning, %d mixed K1",
			res.MixedPairs, res.MixSkipped, res.Mixed.K1)
	}
	if mc {
		log.Printf("generator level: %d K1 in acceptance", res.TrueK1)
	}

	var sub *histo.Subtraction
	if o.mixing {
		lo, hi := o.sidebandLo, o.sidebandHi
		if lo == 0 && hi == 0 {
			lo, hi = analysis.DefaultSidebandLo, analysis.DefaultSidebandHi
		}
		sub, err = analysis.K1Subtraction(res.Registry, lo, hi)
		if errors.Is(err, histo.ErrEmptySideband) {
			log.Printf("skipping mixed-event subtraction: %v", err)
			sub = nil
		} else if err != nil {
			return err
		}
	}

	runID := ""
	if o.dbPath != "" {
		if runID, err = record(ctx, o, res); err != nil {
			return err
		}
		log.Printf("recorded run %s in %s", runID, o.dbPath)
	}
	if o.plotDir != "" {
		if err := writePlots(o.plotDir, res.Registry, sub); err != nil {
			return err
		}
		if o.qaPlots {
			files, err := report.WriteOneDimensional(filepath.Join(o.plotDir, "qa"), res.Registry)
			if err != nil {
				return err
			}
			log.Printf("wrote %d QA plots to %s", len(files), filepath.Join(o.plotDir, "qa"))
		}
	}
	if o.htmlPath != "" {
		if err := writeHTML(o.htmlPath, runID, res, sub); err != nil {
			return err
		}
	}
	return nil
}

func record(ctx context.Context, o options, res *analysis.Result) (string, error) {
	s, err := store.Open(o.dbPath)
	if err != nil {
		return "", fmt.Errorf("open db: %w", err)
	}
	defer s.Close()
	r, err := s.StartRun(ctx, "k1", o.configPath)
	if err != nil {
		return "", err
	}
	if err := s.SaveRegistry(ctx, r.ID, res.Registry); err != nil {
		return "", err
	}
	if err := s.FinishRun(ctx, r.ID, int64(res.Events)); err != nil {
		return "", err
	}
	return r.ID, nil
}

func writePlots(dir string, reg *histo.Registry, sub *histo.Subtraction) error {
	spectra := []struct {
		file, title, name, xlabel string
	}{
		{"k892_mass.png", "K*(892)0 invariant mass", reco.HK892Mass, "M(πK) (GeV/c^2)"},
		{"k1_mass.png", "K1 invariant mass", reco.HK1Mass, "M(πKπ) (GeV/c^2)"},
	}
	for _, sp := range spectra {
		h := reg.Get(sp.name)
		if h == nil || h.Entries() == 0 {
			continue
		}
		series := []report.Series{{Label: "same event", H: h.Project(0, nil)}}
		if sp.name == reco.HK1Mass {
			if mix := reg.Get(reco.HK1MassMix); mix != nil && mix.Entries() > 0 {
				series = append(series, report.Series{Label: "mixed", H: mix.Project(0, nil)})
			}
		}
		if err := report.WriteSpectra(filepath.Join(dir, sp.file), sp.title, sp.xlabel, series); err != nil {
			return err
		}
	}
	if sub != nil {
		if err := report.WriteSubtraction(filepath.Join(dir, "k1_subtraction.png"), "K1 real - mixed", sub); err != nil {
			return err
		}
	}
	return nil
}

func writeHTML(path, runID string, res *analysis.Result, sub *histo.Subtraction) error {
	reg := res.Registry
	s := report.Summary{
		RunID:       runID,
		Title:       "K1 resonance analysis",
		Subtraction: sub,
		Histograms:  report.Inventory(reg),
	}
	for _, name := range []string{reco.HK892Mass, reco.HReconK892Pt, reco.HTrueK1Pt, reco.HReconK1Pt} {
		h := reg.Get(name)
		if h == nil || h.Entries() == 0 {
			continue
		}
		s.Spectra = append(s.Spectra, report.Spectrum{Name: name, Axis: h.Axes()[0], Values: h.Values(0, nil)})
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteHTML(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
