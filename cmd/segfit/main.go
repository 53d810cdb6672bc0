// Command segfit fits straight-line segments to drift-tube hits.
//
// It reads a geometry description and a list of segment candidates, runs
// the fit and hit refinement schedule on every candidate, and optionally
// stores the fitted segments in SQLite and writes residual plots.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/dtsegment/internal/config"
	"github.com/banshee-data/dtsegment/internal/drift"
	"github.com/banshee-data/dtsegment/internal/geometry"
	"github.com/banshee-data/dtsegment/internal/monitor"
	"github.com/banshee-data/dtsegment/internal/segment"
	"github.com/banshee-data/dtsegment/internal/segmentdb"
	"github.com/banshee-data/dtsegment/internal/version"
)

type options struct {
	geometry    string
	config      string
	input       string
	db          string
	plots       string
	workers     int
	verbose     bool
	trace       bool
	showVersion bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.geometry, "geometry", "", "Geometry JSON file (required)")
	fs.StringVar(&o.config, "config", "", "Reconstruction config JSON file (defaults when empty)")
	fs.StringVar(&o.input, "input", "", "Segment candidates JSON file (required)")
	fs.StringVar(&o.db, "db", "", "SQLite database for fitted segments (optional)")
	fs.StringVar(&o.plots, "plots", "", "Base directory for residual plots (optional)")
	fs.IntVar(&o.workers, "workers", -1, "Worker count, overrides the config when >= 0")
	fs.BoolVar(&o.verbose, "v", false, "Log per-segment fit results")
	fs.BoolVar(&o.trace, "trace", false, "Log per-hit updates")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.showVersion {
		return o, nil
	}
	if o.geometry == "" {
		return o, fmt.Errorf("-geometry is required")
	}
	if o.input == "" {
		return o, fmt.Errorf("-input is required")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if opts.showVersion {
		fmt.Println(version.String("segfit"))
		return
	}

	writers := segment.LogWriters{Ops: os.Stderr}
	if opts.verbose {
		writers.Diag = os.Stderr
	}
	if opts.trace {
		writers.Trace = os.Stderr
	}
	segment.SetLogWriters(writers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("segfit: %v", err)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg := config.DefaultRecoConfig()
	if opts.config != "" {
		var err error
		if cfg, err = config.LoadRecoConfig(opts.config); err != nil {
			return err
		}
	}
	workers := cfg.GetWorkers()
	if opts.workers >= 0 {
		workers = opts.workers
	}

	static, err := geometry.LoadFile(opts.geometry)
	if err != nil {
		return err
	}
	geom, err := geometry.NewCached(static, cfg.GetTransformCacheSize())
	if err != nil {
		return err
	}

	model, err := drift.New(cfg)
	if err != nil {
		return err
	}

	cands, droppedHits, err := loadCandidates(opts.input, geom, model)
	if err != nil {
		return err
	}

	u := segment.NewUpdater(geom, model, segment.Options{
		MinMeasurements: cfg.GetMinMeasurements(),
		PositionPass:    cfg.GetPositionPass(),
		MaxChi2PerDOF:   cfg.GetMaxChi2PerDOF(),
	})
	start := time.Now()
	report, err := (&segment.Batch{Updater: u, Workers: workers}).Run(ctx, cands)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	stored := 0
	if opts.db != "" {
		if stored, err = store(ctx, opts.db, cands); err != nil {
			return err
		}
	}

	plots := 0
	if opts.plots != "" {
		if plots, err = plot(u, cands, monitor.MakePlotOutputDir(opts.plots, opts.input, start)); err != nil {
			return err
		}
	}

	summary, err := u.Summarize(cands)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "drift model:     %s (schedule %v)\n", model.Name(), u.Schedule())
	fmt.Fprintf(out, "candidates:      %d (%d hits dropped on input)\n", report.Total, droppedHits)
	fmt.Fprintf(out, "fitted:          %d in %s\n", report.Fitted, elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "rejected:        not good %d, degenerate %d, hit failures %d, high chi2 %d, other %d\n",
		report.NotGood, report.Degenerate, report.HitFailures, report.HighChi2, report.Other)
	fmt.Fprintf(out, "residual rms:    %.4f cm over %d hits\n", summary.ResidualRMS, summary.Hits)
	fmt.Fprintf(out, "pulls:           mean %.3f, std dev %.3f\n", summary.PullMean, summary.PullStdDev)
	fmt.Fprintf(out, "mean chi2/dof:   %.3f\n", summary.MeanChi2PerDOF)
	if opts.db != "" {
		fmt.Fprintf(out, "stored:          %d segments in %s\n", stored, opts.db)
	}
	if opts.plots != "" {
		fmt.Fprintf(out, "plots:           %d files\n", plots)
	}
	return nil
}

func store(ctx context.Context, path string, cands []*segment.Candidate) (int, error) {
	db, err := segmentdb.OpenAndMigrate(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	n := 0
	for _, c := range cands {
		if !c.Valid {
			continue
		}
		if err := db.InsertSegment(ctx, c); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func plot(u *segment.Updater, cands []*segment.Candidate, dir string) (int, error) {
	rp := monitor.NewResidualPlotter(u)
	if err := rp.Start(dir); err != nil {
		return 0, err
	}
	for _, c := range cands {
		if err := rp.Record(c); err != nil {
			return 0, err
		}
	}
	rp.Stop()
	return rp.GeneratePlots()
}
