package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/resonance.report/internal/analysis"
	"github.com/banshee-data/resonance.report/internal/config"
	"github.com/banshee-data/resonance.report/internal/event"
	"github.com/banshee-data/resonance.report/internal/histo"
	"github.com/banshee-data/resonance.report/internal/report"
	"github.com/banshee-data/resonance.report/internal/selector"
	"github.com/banshee-data/resonance.report/internal/store"
)

type options struct {
	configPath string
	input      string
	output     string
	dbPath     string
	htmlPath   string
	workers    int
}

func run(ctx context.Context, o options) error {
	var (
		cfg *config.AnalysisConfig
		err error
	)
	if o.configPath == "" {
		cfg = config.MustLoadDefaultConfig()
	} else if cfg, err = config.LoadAnalysisConfig(o.configPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sc, err := selector.ConfigFromAnalysis(cfg)
	if err != nil {
		return err
	}
	reg := histo.NewRegistry()
	sel, err := selector.New(sc, reg)
	if err != nil {
		return err
	}

	cands, err := readCandidates(o.input)
	if err != nil {
		return err
	}
	workers := o.workers
	if workers <= 0 {
		workers = cfg.GetWorkers()
	}
	statuses, err := analysis.SelectCandidates(ctx, sel, cands, workers)
	if err != nil {
		return err
	}

	if err := writeStatuses(o.output, statuses); err != nil {
		return err
	}

	counts := make(map[uint8]int)
	for _, s := range statuses {
		counts[s]++
	}
	for _, c := range report.SortedStatusCounts(counts, statusLabel) {
		log.Printf("%-16s %d", c.Label, c.Count)
	}

	runID := ""
	if o.dbPath != "" {
		if runID, err = record(ctx, o, statuses, reg); err != nil {
			return err
		}
		log.Printf("recorded run %s in %s", runID, o.dbPath)
	}
	if o.htmlPath != "" {
		f, err := os.Create(o.htmlPath)
		if err != nil {
			return err
		}
		err = report.WriteHTML(f, report.Summary{
			RunID:      runID,
			Title:      "B± candidate selection",
			Selections: report.SortedStatusCounts(counts, statusLabel),
			Histograms: report.Inventory(reg),
		})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func statusLabel(s uint8) string { return selector.Status(s).String() }

func readCandidates(path string) ([]event.BplusCandidate, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	cands, err := event.ReadBplusCandidates(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return cands, nil
}

func writeStatuses(path string, statuses []uint8) error {
	if path == "" || path == "-" {
		return event.WriteStatuses(os.Stdout, statuses)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := event.WriteStatuses(f, statuses); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func record(ctx context.Context, o options, statuses []uint8, reg *histo.Registry) (string, error) {
	s, err := store.Open(o.dbPath)
	if err != nil {
		return "", fmt.Errorf("open db: %w", err)
	}
	defer s.Close()
	r, err := s.StartRun(ctx, "bplus", o.configPath)
	if err != nil {
		return "", err
	}
	if err := s.SaveSelections(ctx, r.ID, statuses); err != nil {
		return "", err
	}
	if err := s.SaveRegistry(ctx, r.ID, reg); err != nil {
		return "", err
	}
	if err := s.FinishRun(ctx, r.ID, int64(len(statuses))); err != nil {
		return "", err
	}
	return r.ID, nil
}
