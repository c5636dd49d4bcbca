package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/rxsens/internal/berlog"
	"github.com/banshee-data/rxsens/internal/config"
	"github.com/banshee-data/rxsens/internal/fsutil"
	"github.com/banshee-data/rxsens/internal/monitoring"
	"github.com/banshee-data/rxsens/internal/report"
	"github.com/banshee-data/rxsens/internal/rssi"
	"github.com/banshee-data/rxsens/internal/security"
	"github.com/banshee-data/rxsens/internal/sensitivity"
	"github.com/banshee-data/rxsens/internal/timeutil"
	"github.com/banshee-data/rxsens/internal/version"
)

// Exit codes
const (
	exitOK      = 0
	exitError   = 1 // usage, config or load failure
	exitFlagged = 2 // regression or RSSI anomaly found and failing was requested
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	stdout, stderr io.Writer
	cfg            *config.AnalysisConfig
	fsys           fsutil.FileSystem
	clock          timeutil.Clock
	outputDirs     []string // where -json may write; nil means cwd and temp dir
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		cfg:    config.EmptyAnalysisConfig(),
		fsys:   fsutil.OSFileSystem{},
		clock:  timeutil.RealClock{},
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	return newApp(stdout, stderr).main(args)
}

func (a *app) main(args []string) int {
	stdout, stderr := a.stdout, a.stderr
	global := flag.NewFlagSet("bersens", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { printUsage(stderr) }
	configPath := global.String("config", "", "Analysis config file (.json, .yaml or .yml)")
	showVersion := global.Bool("version", false, "Print version and exit")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}
	if global.NArg() < 1 {
		printUsage(stderr)
		return exitError
	}

	monitoring.SetLogger(log.New(stderr, "", log.LstdFlags).Printf)

	if *configPath != "" {
		loaded, err := config.LoadAnalysisConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
			return exitError
		}
		a.cfg = loaded
	}

	command := global.Arg(0)
	rest := global.Args()[1:]
	switch command {
	case "show":
		return a.runShow(rest)
	case "compare":
		return a.runCompare(rest)
	case "rssi":
		return a.runRSSI(rest)
	case "version":
		fmt.Fprintln(stdout, version.String())
		return exitOK
	case "help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return exitError
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `bersens - receiver sensitivity analysis for BER test logs

Usage: bersens [-config FILE] [-version] <command> [options]

Commands:
  show       List the 1e-3 and 1e-4 sensitivity of one run
  compare    Compare the sensitivity of a candidate run against a baseline
  rssi       Check pre-detection RSSI against the fitted noise floor
  version    Show bersens version
  help       Show this help message

Each run is a directory of per-condition CSV logs.

Examples:
  bersens show -dir logs/main
  bersens compare -baseline logs/main -candidate logs/feature -name2 feature -fail-on-regression
  bersens -config analysis.yaml rssi -dir logs/main -brief -t1 nom
`)
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitError, false
	}
	return 0, true
}

func (a *app) required(fs *flag.FlagSet, name, value string) bool {
	if value != "" {
		return true
	}
	fmt.Fprintf(a.stderr, "Error: -%s is required\n", name)
	fs.Usage()
	return false
}

// conditions resolves the -t1 and -blf flags, falling back to the config.
func (a *app) conditions(t1Flag, blfFlag string) ([]berlog.ConditionKey, error) {
	t1s := a.cfg.GetT1Times()
	if t1Flag != "" {
		parsed, err := berlog.ParseT1List(t1Flag)
		if err != nil {
			return nil, err
		}
		t1s = parsed
	}
	blfs := a.cfg.GetBLFErrs()
	if blfFlag != "" {
		parsed, err := berlog.ParseBLFList(blfFlag)
		if err != nil {
			return nil, err
		}
		blfs = parsed
	}
	return berlog.ConditionGrid(t1s, blfs), nil
}

func (a *app) load(dir string) (*berlog.Run, error) {
	start := a.clock.Now()
	loader := &berlog.Loader{FS: a.fsys, Workers: a.cfg.GetLoadWorkers()}
	run, err := loader.LoadRun(dir)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("Loaded %d records from %s in %v (run %s)",
		len(run.Records), dir, a.clock.Since(start).Round(time.Millisecond), run.ID)
	return run, nil
}

// export writes a JSON document after checking the path stays inside the
// allowed output directories.
func (a *app) export(path string, doc interface{}) error {
	dirs := a.outputDirs
	if dirs == nil {
		var err error
		if dirs, err = security.DefaultOutputDirs(); err != nil {
			return err
		}
	}
	if err := security.ValidateOutputPath(path, dirs); err != nil {
		return err
	}
	return report.ExportJSON(a.fsys, path, doc)
}

func (a *app) extractor() sensitivity.Extractor {
	return sensitivity.Extractor{Method: a.cfg.GetInterpolation()}
}

// joined splits an errors.Join result back into its parts.
func joined(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func (a *app) runShow(args []string) int {
	fs := a.flagSet("show")
	dir := fs.String("dir", "", "Directory of BER logs (required)")
	t1 := fs.String("t1", "", "Comma-separated T1 settings to list (min,nom,max)")
	blf := fs.String("blf", "", "Comma-separated BLF error settings to list (neg,nom,pos)")
	jsonOut := fs.String("json", "", "Also write the sensitivity table as JSON to this file")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if !a.required(fs, "dir", *dir) {
		return exitError
	}

	conds, err := a.conditions(*t1, *blf)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitError
	}
	run, err := a.load(*dir)
	if err != nil {
		fmt.Fprintf(a.stderr, "Failed to load run: %v\n", err)
		return exitError
	}

	x := a.extractor()
	table, extractErr := x.Aggregate(run.Records)
	w := report.NewWriter(a.stdout)
	w.SensitivityTable(*dir, table, conds)
	w.Failures("Extraction failures", joined(extractErr))

	if *jsonOut != "" {
		doc := report.SensitivityExport{
			Generated: a.clock.Now().UTC(),
			Run:       report.NewRunInfo(run, ""),
			Method:    x.Method.String(),
			Table:     table,
			Errors:    errorStrings(joined(extractErr)),
		}
		if err := a.export(*jsonOut, doc); err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return exitError
		}
	}
	return exitOK
}

func (a *app) runCompare(args []string) int {
	fs := a.flagSet("compare")
	baseDir := fs.String("baseline", "", "Directory of baseline BER logs (required)")
	candDir := fs.String("candidate", "", "Directory of candidate BER logs (required)")
	name1 := fs.String("name1", a.cfg.GetBaselineLabel(), "Display name of the baseline run")
	name2 := fs.String("name2", a.cfg.GetCandidateLabel(), "Display name of the candidate run")
	tolerance := fs.Float64("tolerance", a.cfg.GetToleranceDB(), "Allowed sensitivity loss in dB")
	t1 := fs.String("t1", "", "Comma-separated T1 settings to compare (min,nom,max)")
	blf := fs.String("blf", "", "Comma-separated BLF error settings to compare (neg,nom,pos)")
	jsonOut := fs.String("json", "", "Also write the comparison as JSON to this file")
	failOnRegression := fs.Bool("fail-on-regression", false, "Exit with status 2 when any condition regressed")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if !a.required(fs, "baseline", *baseDir) || !a.required(fs, "candidate", *candDir) {
		return exitError
	}
	if *tolerance < 0 {
		fmt.Fprintf(a.stderr, "Error: -tolerance must be non-negative, got %g\n", *tolerance)
		return exitError
	}

	conds, err := a.conditions(*t1, *blf)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitError
	}

	var baseRun, candRun *berlog.Run
	var g errgroup.Group
	g.Go(func() (err error) {
		baseRun, err = a.load(*baseDir)
		return err
	})
	g.Go(func() (err error) {
		candRun, err = a.load(*candDir)
		return err
	})
	if err := g.Wait(); err != nil {
		fmt.Fprintf(a.stderr, "Failed to load run: %v\n", err)
		return exitError
	}

	x := a.extractor()
	w := report.NewWriter(a.stdout)
	baseTable, baseErr := x.Aggregate(baseRun.Records)
	w.Failures("Extraction failures in "+*name1, joined(baseErr))
	candTable, candErr := x.Aggregate(candRun.Records)
	w.Failures("Extraction failures in "+*name2, joined(candErr))

	rep := sensitivity.Compare(baseTable, candTable, sensitivity.Options{
		ToleranceDB:    *tolerance,
		Conditions:     conds,
		BaselineLabel:  *name1,
		CandidateLabel: *name2,
	})
	w.Comparison(rep)

	if *jsonOut != "" {
		doc := report.ComparisonExport{
			Generated:   a.clock.Now().UTC(),
			Baseline:    report.NewRunInfo(baseRun, *name1),
			Candidate:   report.NewRunInfo(candRun, *name2),
			Method:      x.Method.String(),
			Report:      rep,
			Regressions: len(rep.Regressions()),
		}
		if err := a.export(*jsonOut, doc); err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return exitError
		}
	}

	if *failOnRegression && rep.HasRegression() {
		return exitFlagged
	}
	return exitOK
}

func (a *app) runRSSI(args []string) int {
	fs := a.flagSet("rssi")
	dir := fs.String("dir", "", "Directory of BER logs (required)")
	brief := fs.Bool("brief", false, "Show one pass/fail line per condition")
	tolerance := fs.Float64("tolerance", a.cfg.GetRSSITolerance(), "Allowed residual and trend in RSSI counts")
	t1 := fs.String("t1", "", "Comma-separated T1 settings to check (min,nom,max)")
	blf := fs.String("blf", "", "Comma-separated BLF error settings to check (neg,nom,pos)")
	jsonOut := fs.String("json", "", "Also write the checks as JSON to this file")
	failOnAnomaly := fs.Bool("fail-on-anomaly", false, "Exit with status 2 when any check fails")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if !a.required(fs, "dir", *dir) {
		return exitError
	}
	if *tolerance < 0 {
		fmt.Fprintf(a.stderr, "Error: -tolerance must be non-negative, got %g\n", *tolerance)
		return exitError
	}

	conds, err := a.conditions(*t1, *blf)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return exitError
	}
	run, err := a.load(*dir)
	if err != nil {
		fmt.Fprintf(a.stderr, "Failed to load run: %v\n", err)
		return exitError
	}

	checks, checkErr := rssi.CheckRun(run.Records, *tolerance, conds)
	w := report.NewWriter(a.stdout)
	if *brief {
		w.RSSIBrief(checks)
	} else {
		w.RSSIDetail(checks)
	}
	w.Failures("RSSI check failures", joined(checkErr))

	if *jsonOut != "" {
		doc := report.RSSIExport{
			Generated: a.clock.Now().UTC(),
			Run:       report.NewRunInfo(run, ""),
			Tolerance: *tolerance,
			Modes:     checks,
		}
		if err := a.export(*jsonOut, doc); err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return exitError
		}
	}

	if *failOnAnomaly {
		for _, mc := range checks {
			if !mc.Pass() {
				return exitFlagged
			}
		}
	}
	return exitOK
}
