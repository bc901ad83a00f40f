// Command k1analysis reconstructs K*(892)0 and K1(1270)± candidates from a
// JSONL stream of collisions and fills the resonance histograms.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/resonance.report/internal/monitoring"
	"github.com/banshee-data/resonance.report/internal/version"
)

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "analysis config JSON (default: search for "+defaultConfigHint+")")
	flag.StringVar(&o.input, "input", "", "collisions JSONL file, - for stdin")
	flag.BoolVar(&o.mc, "mc", false, "enable MC truth matching")
	flag.StringVar(&o.mcParticles, "mcparticles", "", "generator-level particles JSONL (implies -mc)")
	flag.BoolVar(&o.mixing, "mixing", false, "run the mixed-event pass")
	flag.StringVar(&o.dbPath, "db", "", "sqlite database to record the run in")
	flag.StringVar(&o.plotDir, "plots", "", "directory for PNG spectra")
	flag.BoolVar(&o.qaPlots, "qa-plots", false, "also plot every filled 1-D histogram under <plots>/qa")
	flag.StringVar(&o.htmlPath, "html", "", "write an HTML summary to this file")
	flag.IntVar(&o.workers, "workers", 0, "worker count (default from config)")
	flag.IntVar(&o.batch, "batch", 0, "collisions per batch")
	flag.Float64Var(&o.sidebandLo, "sideband-lo", 0, "lower edge of the mixed-event normalization window (GeV)")
	flag.Float64Var(&o.sidebandHi, "sideband-hi", 0, "upper edge of the mixed-event normalization window (GeV)")
	debug := flag.Bool("debug", false, "verbose per-candidate logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("k1analysis"))
		return
	}
	if o.input == "" {
		flag.Usage()
		log.Fatalf("-input is required")
	}
	monitoring.SetDebug(*debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o); err != nil {
		log.Fatalf("k1analysis: %v", err)
	}
}
