package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/resonance.report/internal/cuts"
	"github.com/banshee-data/resonance.report/internal/monitoring"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
// This is the single source of truth for all default cut values.
const DefaultConfigPath = "config/analysis.defaults.json"

// DetectorConfig is the PID validity window and limits of one detector.
type DetectorConfig struct {
	PtMin             *float64 `json:"pt_min,omitempty"`
	PtMax             *float64 `json:"pt_max,omitempty"`
	NSigmaMax         *float64 `json:"nsigma_max,omitempty"`
	NSigmaCombinedMax *float64 `json:"nsigma_combined_max,omitempty"`
}

// CutTableConfig is the on-disk form of a pT-binned cut table.
type CutTableConfig struct {
	BinsPt []float64            `json:"bins_pt"`
	Cuts   map[string][]float64 `json:"cuts"`
}

// UpstreamConfig mirrors the options the D0 candidate producer declared.
// Absent values mean the producer did not say, which counts as in sync.
type UpstreamConfig struct {
	SelectionFlagD0    *int `json:"selection_flag_d0,omitempty"`
	SelectionFlagD0bar *int `json:"selection_flag_d0bar,omitempty"`
}

// AnalysisConfig represents the root configuration for both analyses. All
// fields are optional; the Get* methods supply defaults.
type AnalysisConfig struct {
	// B± candidate selection
	UsePID                 *bool           `json:"use_pid,omitempty"`
	AcceptPIDNotApplicable *bool           `json:"accept_pid_not_applicable,omitempty"`
	ActivateQA             *bool           `json:"activate_qa,omitempty"`
	PionTPC                *DetectorConfig `json:"pion_tpc,omitempty"`
	PionTOF                *DetectorConfig `json:"pion_tof,omitempty"`
	BplusCuts              *CutTableConfig `json:"bplus_cuts,omitempty"`
	Upstream               *UpstreamConfig `json:"upstream,omitempty"`

	// Track selection for resonance reconstruction
	MinPt    *float64 `json:"min_pt,omitempty"`
	MaxDCAXY *float64 `json:"max_dca_xy,omitempty"`
	MinDCAZ  *float64 `json:"min_dca_z,omitempty"`
	MaxDCAZ  *float64 `json:"max_dca_z,omitempty"`

	// Pion and bachelor-pion PID
	MaxTPCNSigmaPion         *float64 `json:"max_tpc_nsigma_pion,omitempty"`
	MaxTOFNSigmaPion         *float64 `json:"max_tof_nsigma_pion,omitempty"`
	MaxTPCNSigmaPionBachelor *float64 `json:"max_tpc_nsigma_pion_bachelor,omitempty"`
	MaxTOFNSigmaPionBachelor *float64 `json:"max_tof_nsigma_pion_bachelor,omitempty"`
	DoTOFPID                 *bool    `json:"do_tof_pid,omitempty"`

	// Kaon pT-dependent PID
	KaonTPCPtIntervals []float64 `json:"kaon_tpc_pt_intervals,omitempty"`
	KaonTPCNSigmaCuts  []float64 `json:"kaon_tpc_nsigma_cuts,omitempty"`
	KaonTOFPtIntervals []float64 `json:"kaon_tof_pt_intervals,omitempty"`
	KaonTOFNSigmaCuts  []float64 `json:"kaon_tof_nsigma_cuts,omitempty"`

	// Bachelor DCAxy table; optional
	BachelorDCACuts *CutTableConfig `json:"bachelor_dca_cuts,omitempty"`

	// Mass and rapidity windows
	K892MassWindow *float64 `json:"k892_mass_window,omitempty"`
	PiPiMassMin    *float64 `json:"pipi_mass_min,omitempty"`
	PiPiMassMax    *float64 `json:"pipi_mass_max,omitempty"`
	K1MinRapidity  *float64 `json:"k1_min_rapidity,omitempty"`
	K1MaxRapidity  *float64 `json:"k1_max_rapidity,omitempty"`

	// Event mixing
	MixingDepth    *int      `json:"mixing_depth,omitempty"`
	MixingVtxBins  []float64 `json:"mixing_vtx_bins,omitempty"`
	MixingMultBins []float64 `json:"mixing_mult_bins,omitempty"`

	// Execution
	Workers *int `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON keep their defaults.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseAnalysisConfig(data)
}

// ParseAnalysisConfig decodes and validates a JSON configuration.
func ParseAnalysisConfig(data []byte) (*AnalysisConfig, error) {
	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/<pkg>/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	var lastErr error
	for _, path := range candidates {
		cfg, err := LoadAnalysisConfig(path)
		if err == nil {
			return cfg
		}
		lastErr = err
	}
	panic(fmt.Sprintf("cannot load %s - run tests from repository root: %v", DefaultConfigPath, lastErr))
}

// Validate checks that the configuration values are usable. Cut tables and
// bin edges are fully checked here so a malformed file fails at startup.
func (c *AnalysisConfig) Validate() error {
	if _, err := c.BplusCutTable(); err != nil {
		return fmt.Errorf("bplus_cuts: %w", err)
	}
	if _, err := c.BachelorDCATable(); err != nil {
		return fmt.Errorf("bachelor_dca_cuts: %w", err)
	}
	if err := c.KaonTPCBreakpoints().Validate(); err != nil {
		return fmt.Errorf("kaon TPC PID: %w", err)
	}
	if err := c.KaonTOFBreakpoints().Validate(); err != nil {
		return fmt.Errorf("kaon TOF PID: %w", err)
	}
	if err := checkEdges(c.GetMixingVtxBins()); err != nil {
		return fmt.Errorf("mixing_vtx_bins: %w", err)
	}
	if err := checkEdges(c.GetMixingMultBins()); err != nil {
		return fmt.Errorf("mixing_mult_bins: %w", err)
	}
	if c.GetMixingDepth() < 0 {
		return fmt.Errorf("mixing_depth must be non-negative, got %d", c.GetMixingDepth())
	}
	if c.GetK1MinRapidity() > c.GetK1MaxRapidity() {
		return fmt.Errorf("k1 rapidity window inverted: [%g, %g]", c.GetK1MinRapidity(), c.GetK1MaxRapidity())
	}
	if c.GetMinDCAZ() > c.GetMaxDCAZ() {
		return fmt.Errorf("dca_z window inverted: [%g, %g]", c.GetMinDCAZ(), c.GetMaxDCAZ())
	}
	if c.GetK892MassWindow() <= 0 {
		return fmt.Errorf("k892_mass_window must be positive, got %g", c.GetK892MassWindow())
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

func checkEdges(edges []float64) error {
	if len(edges) < 2 {
		return cuts.ErrEmptyTable
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return fmt.Errorf("%w: edge %d (%g) <= edge %d (%g)", cuts.ErrNonIncreasingEdges, i, edges[i], i-1, edges[i-1])
		}
	}
	return nil
}

// BplusCutTable builds the B± topology table. A missing table is an error:
// there is no sensible built-in default for topology cuts.
func (c *AnalysisConfig) BplusCutTable() (*cuts.Table, error) {
	if c.BplusCuts == nil {
		return nil, fmt.Errorf("%w: no bplus_cuts configured", cuts.ErrEmptyTable)
	}
	return cuts.NewTableFromLabels(c.BplusCuts.BinsPt, c.BplusCuts.Cuts, cuts.BplusVars)
}

// BachelorDCATable builds the optional bachelor DCAxy table; nil, nil when
// not configured.
func (c *AnalysisConfig) BachelorDCATable() (*cuts.Table, error) {
	if c.BachelorDCACuts == nil {
		return nil, nil
	}
	return cuts.NewTableFromLabels(c.BachelorDCACuts.BinsPt, c.BachelorDCACuts.Cuts, cuts.TrackDCAVars)
}

// KaonTPCBreakpoints returns the kaon TPC nSigma breakpoints or the default.
func (c *AnalysisConfig) KaonTPCBreakpoints() cuts.Breakpoints {
	if c.KaonTPCPtIntervals == nil && c.KaonTPCNSigmaCuts == nil {
		return cuts.DefaultKaonBreakpoints()
	}
	return cuts.Breakpoints{PtBelow: c.KaonTPCPtIntervals, MaxNSigma: c.KaonTPCNSigmaCuts}
}

// KaonTOFBreakpoints returns the kaon TOF nSigma breakpoints or the default.
func (c *AnalysisConfig) KaonTOFBreakpoints() cuts.Breakpoints {
	if c.KaonTOFPtIntervals == nil && c.KaonTOFNSigmaCuts == nil {
		return cuts.DefaultKaonBreakpoints()
	}
	return cuts.Breakpoints{PtBelow: c.KaonTOFPtIntervals, MaxNSigma: c.KaonTOFNSigmaCuts}
}

// PIDInSync reports whether the D0 producer's PID policy matches use_pid.
// It is evaluated once at startup; a mismatch is logged and disables the
// PID stage of the B± selector.
func (c *AnalysisConfig) PIDInSync() bool {
	if c.Upstream == nil {
		return true
	}
	usePID := c.GetUsePID()
	flags := []*int{c.Upstream.SelectionFlagD0, c.Upstream.SelectionFlagD0bar}
	for _, f := range flags {
		if f == nil {
			continue
		}
		if usePID && *f == 0 {
			monitoring.Logf("PID selections required on B+ daughters (use_pid=true) but no PID selections on D candidates were required a priori")
			return false
		}
		if !usePID && *f != 0 {
			monitoring.Logf("No PID selections required on B+ daughters (use_pid=false) but PID selections on D candidates were required a priori")
			return false
		}
	}
	return true
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// GetUsePID returns the use_pid value or the default (true).
func (c *AnalysisConfig) GetUsePID() bool { return getBool(c.UsePID, true) }

// GetAcceptPIDNotApplicable returns the accept_pid_not_applicable value or the default (true).
func (c *AnalysisConfig) GetAcceptPIDNotApplicable() bool {
	return getBool(c.AcceptPIDNotApplicable, true)
}

// GetActivateQA returns the activate_qa value or the default (false).
func (c *AnalysisConfig) GetActivateQA() bool { return getBool(c.ActivateQA, false) }

// GetPionTPC returns the pion TPC detector settings, filling defaults.
func (c *AnalysisConfig) GetPionTPC() (ptMin, ptMax, nsigma, nsigmaCombined float64) {
	d := c.PionTPC
	if d == nil {
		d = &DetectorConfig{}
	}
	return getFloat(d.PtMin, 999), getFloat(d.PtMax, 9999), getFloat(d.NSigmaMax, 5), getFloat(d.NSigmaCombinedMax, 5)
}

// GetPionTOF returns the pion TOF detector settings, filling defaults.
func (c *AnalysisConfig) GetPionTOF() (ptMin, ptMax, nsigma, nsigmaCombined float64) {
	d := c.PionTOF
	if d == nil {
		d = &DetectorConfig{}
	}
	return getFloat(d.PtMin, 0.15), getFloat(d.PtMax, 50), getFloat(d.NSigmaMax, 5), getFloat(d.NSigmaCombinedMax, 999)
}

// GetMinPt returns the min_pt value or the default.
func (c *AnalysisConfig) GetMinPt() float64 { return getFloat(c.MinPt, 0.15) }

// GetMaxDCAXY returns the max_dca_xy value or the default.
func (c *AnalysisConfig) GetMaxDCAXY() float64 { return getFloat(c.MaxDCAXY, 0.5) }

// GetMinDCAZ returns the min_dca_z value or the default.
func (c *AnalysisConfig) GetMinDCAZ() float64 { return getFloat(c.MinDCAZ, 0) }

// GetMaxDCAZ returns the max_dca_z value or the default.
func (c *AnalysisConfig) GetMaxDCAZ() float64 { return getFloat(c.MaxDCAZ, 2.0) }

// GetMaxTPCNSigmaPion returns the max_tpc_nsigma_pion value or the default.
func (c *AnalysisConfig) GetMaxTPCNSigmaPion() float64 { return getFloat(c.MaxTPCNSigmaPion, 2) }

// GetMaxTOFNSigmaPion returns the max_tof_nsigma_pion value or the default.
func (c *AnalysisConfig) GetMaxTOFNSigmaPion() float64 { return getFloat(c.MaxTOFNSigmaPion, 2) }

// GetMaxTPCNSigmaPionBachelor returns the bachelor TPC limit or the default.
func (c *AnalysisConfig) GetMaxTPCNSigmaPionBachelor() float64 {
	return getFloat(c.MaxTPCNSigmaPionBachelor, 2)
}

// GetMaxTOFNSigmaPionBachelor returns the bachelor TOF limit or the default.
func (c *AnalysisConfig) GetMaxTOFNSigmaPionBachelor() float64 {
	return getFloat(c.MaxTOFNSigmaPionBachelor, 2)
}

// GetDoTOFPID returns the do_tof_pid value or the default (true).
func (c *AnalysisConfig) GetDoTOFPID() bool { return getBool(c.DoTOFPID, true) }

// GetK892MassWindow returns the k892_mass_window value or the default.
func (c *AnalysisConfig) GetK892MassWindow() float64 { return getFloat(c.K892MassWindow, 0.1) }

// GetPiPiMassMin returns the pipi_mass_min value or the default.
func (c *AnalysisConfig) GetPiPiMassMin() float64 { return getFloat(c.PiPiMassMin, 0) }

// GetPiPiMassMax returns the pipi_mass_max value or the default.
func (c *AnalysisConfig) GetPiPiMassMax() float64 { return getFloat(c.PiPiMassMax, 999) }

// GetK1MinRapidity returns the k1_min_rapidity value or the default.
func (c *AnalysisConfig) GetK1MinRapidity() float64 { return getFloat(c.K1MinRapidity, -0.5) }

// GetK1MaxRapidity returns the k1_max_rapidity value or the default.
func (c *AnalysisConfig) GetK1MaxRapidity() float64 { return getFloat(c.K1MaxRapidity, 0.5) }

// GetMixingDepth returns the number of partner collisions per event or the default.
func (c *AnalysisConfig) GetMixingDepth() int {
	if c.MixingDepth == nil {
		return 5
	}
	return *c.MixingDepth
}

// GetMixingVtxBins returns the vertex-z mixing edges or the default.
func (c *AnalysisConfig) GetMixingVtxBins() []float64 {
	if c.MixingVtxBins == nil {
		return []float64{-10, -8, -6, -4, -2, 0, 2, 4, 6, 8, 10}
	}
	return c.MixingVtxBins
}

// GetMixingMultBins returns the multiplicity mixing edges or the default.
func (c *AnalysisConfig) GetMixingMultBins() []float64 {
	if c.MixingMultBins == nil {
		return []float64{0, 20, 40, 60, 80, 100, 200, 99999}
	}
	return c.MixingMultBins
}

// GetWorkers returns the worker count or the number of CPUs.
func (c *AnalysisConfig) GetWorkers() int {
	if c.Workers == nil {
		return runtime.NumCPU()
	}
	return *c.Workers
}
