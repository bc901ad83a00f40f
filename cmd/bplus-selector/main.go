// Command bplus-selector evaluates B± → D0 π± candidates and writes one
// selection status per candidate as JSON lines.
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
	flag.StringVar(&o.configPath, "config", "", "analysis config JSON (default: search for config/analysis.defaults.json)")
	flag.StringVar(&o.input, "input", "", "B± candidates JSONL file, - for stdin")
	flag.StringVar(&o.output, "output", "-", "status JSONL output, - for stdout")
	flag.StringVar(&o.dbPath, "db", "", "sqlite database to record the run in")
	flag.StringVar(&o.htmlPath, "html", "", "write an HTML summary to this file")
	flag.IntVar(&o.workers, "workers", 0, "worker count (default from config)")
	debug := flag.Bool("debug", false, "log the failing cut of every rejected candidate")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("bplus-selector"))
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
		log.Fatalf("bplus-selector: %v", err)
	}
}
