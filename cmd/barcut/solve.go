package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/export"
	"github.com/piwi3910/BarCut/internal/importer"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/project"
	"github.com/piwi3910/BarCut/internal/store"
)

// jobFlags are the input flags shared by solve, compare and preset save.
type jobFlags struct {
	fs *flag.FlagSet

	config string
	job    string
	preset string
	name   string

	stock       int
	policy      string
	maxBars     int
	bigM        int
	timeout     float64
	nodes       int
	parallel    int
	noSymmetry  bool
	minOffcut   int
	wastePct    float64
	pricePerBar float64
}

func newJobFlags(name string) *jobFlags {
	f := &jobFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	fs := f.fs
	fs.StringVar(&f.config, "config", project.DefaultConfigPath(), "application config file (TOML)")
	fs.StringVar(&f.job, "job", "", "job file (JSON) to load")
	fs.StringVar(&f.preset, "preset", "", "settings preset to start from")
	fs.StringVar(&f.name, "name", "", "job name")
	fs.IntVar(&f.stock, "stock", 0, "stock bar length in mm")
	fs.StringVar(&f.policy, "policy", "", "demand policy: at_least or exact")
	fs.IntVar(&f.maxBars, "max-bars", 0, "bar slots offered to the packing model (0 = automatic)")
	fs.IntVar(&f.bigM, "big-m", 0, "pattern usage bound for refinement (0 = total demand)")
	fs.Float64Var(&f.timeout, "timeout", 0, "seconds per solver call (0 = none)")
	fs.IntVar(&f.nodes, "nodes", 0, "branch-and-bound node limit per solver call (0 = none)")
	fs.IntVar(&f.parallel, "parallel", 0, "concurrent refinement solves")
	fs.BoolVar(&f.noSymmetry, "no-symmetry", false, "disable bar slot symmetry breaking")
	fs.IntVar(&f.minOffcut, "min-offcut", 0, "shortest remnant reported as a reusable offcut")
	fs.Float64Var(&f.wastePct, "waste-percent", 0, "safety margin for the purchase estimate")
	fs.Float64Var(&f.pricePerBar, "price", 0, "price of one stock bar")
	return f
}

func (f *jobFlags) appConfig() (model.AppConfig, error) {
	cfg, err := project.LoadAppConfig(f.config)
	if err != nil {
		return model.AppConfig{}, fmt.Errorf("loading config %s: %w", f.config, err)
	}
	project.ApplyEnvOverrides(&cfg)
	return cfg, nil
}

// load assembles the job: config defaults or the job file, then the
// preset, then an optional piece list file, then explicitly set flags.
// With both -job and -preset the job keeps its name and pieces and takes
// the preset's settings.
func (f *jobFlags) load(requirePieces bool) (model.Job, error) {
	cfg, err := f.appConfig()
	if err != nil {
		return model.Job{}, err
	}

	job := model.NewJob()
	cfg.ApplyToSettings(&job.Settings)

	if f.job != "" {
		if job, err = project.LoadJob(f.job); err != nil {
			return model.Job{}, err
		}
	}

	if f.preset != "" {
		presets, err := project.LoadPresets(project.DefaultPresetPath())
		if err != nil {
			return model.Job{}, fmt.Errorf("loading presets: %w", err)
		}
		p := presets.FindByName(f.preset)
		if p == nil {
			return model.Job{}, usageErrorf("no preset named %q", f.preset)
		}
		if f.job == "" {
			job = p.ToJob(p.Name)
		} else {
			glog.Infof("job %s: using settings of preset %q", f.job, p.Name)
			job.Settings = p.Settings
		}
	}

	if f.fs.NArg() > 1 {
		return model.Job{}, usageErrorf("expected at most one piece list file, got %d", f.fs.NArg())
	}
	if path := f.fs.Arg(0); path != "" {
		res := importer.ImportFile(path)
		for _, w := range res.Warnings {
			glog.Warningf("import %s: %s", path, w)
		}
		if len(res.Errors) > 0 {
			for _, e := range res.Errors {
				fmt.Fprintf(os.Stderr, "import %s: %s\n", path, e)
			}
			return model.Job{}, fmt.Errorf("%s: %d import errors", path, len(res.Errors))
		}
		job.Pieces = res.Pieces
		if job.Name == "" || job.Name == "Untitled" {
			job.Name = path
		}
	}

	f.applyOverrides(&job)
	if requirePieces && len(job.Pieces) == 0 {
		return model.Job{}, usageErrorf("no pieces: pass a piece list file, -job or -preset")
	}
	return job, nil
}

// applyOverrides copies only the flags given on the command line.
func (f *jobFlags) applyOverrides(job *model.Job) {
	s := &job.Settings
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "name":
			job.Name = f.name
		case "stock":
			s.StockLength = f.stock
		case "policy":
			s.DemandPolicy = model.DemandPolicy(f.policy)
		case "max-bars":
			s.MaxBars = f.maxBars
		case "big-m":
			s.BigM = f.bigM
		case "timeout":
			s.SolveTimeoutSec = f.timeout
		case "nodes":
			s.NodeLimit = f.nodes
		case "parallel":
			s.Parallel = f.parallel
		case "no-symmetry":
			s.SymmetryBreaking = !f.noSymmetry
		case "min-offcut":
			s.MinOffcut = f.minOffcut
		case "waste-percent":
			s.WastePercent = f.wastePct
		case "price":
			s.PricePerBar = f.pricePerBar
		}
	})
}

func runSolve(ctx context.Context, args []string) error {
	jf := newJobFlags("solve")
	fs := jf.fs
	out := fs.String("out", "", "write the result as JSON to this file")
	asJSON := fs.Bool("json", false, "print the result as JSON instead of a summary")
	pdfPath := fs.String("pdf", "", "write a PDF cutting plan")
	labelsPath := fs.String("labels", "", "write QR pattern labels (PDF)")
	xlsxPath := fs.String("xlsx", "", "write an Excel workbook")
	dxfPath := fs.String("dxf", "", "write a DXF bar layout")
	dbPath := fs.String("db", "", "run history database (overrides config)")
	saveJob := fs.String("save-job", "", "save the job with its result to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	job, err := jf.load(true)
	if err != nil {
		return err
	}

	result, err := engine.OptimizeJob(ctx, job)
	if err != nil {
		return err
	}
	job.Result = result

	if *asJSON {
		if err := writeJSON(os.Stdout, result); err != nil {
			return err
		}
	} else {
		printSummary(os.Stdout, *result)
	}
	if *out != "" {
		if err := writeJSONFile(*out, result); err != nil {
			return err
		}
	}

	exports := []struct {
		path  string
		write func(string, model.OptimizeResult) error
	}{
		{*pdfPath, export.ExportPDF},
		{*labelsPath, export.ExportLabels},
		{*xlsxPath, export.ExportXLSX},
		{*dxfPath, export.ExportDXF},
	}
	for _, e := range exports {
		if e.path == "" {
			continue
		}
		if err := e.write(e.path, *result); err != nil {
			return fmt.Errorf("export %s: %w", e.path, err)
		}
		glog.Infof("wrote %s", e.path)
	}

	if *saveJob != "" {
		if err := project.SaveJob(*saveJob, job); err != nil {
			return err
		}
		if err := rememberJob(jf.config, *saveJob); err != nil {
			glog.Warningf("updating recent jobs: %v", err)
		}
	}

	cfg, err := jf.appConfig()
	if err != nil {
		return err
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if cfg.DBPath != "" {
		st, err := store.New(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveRun(result); err != nil {
			return err
		}
		glog.Infof("stored run %s in %s", result.ID, cfg.DBPath)
	}
	return nil
}

func runCompare(ctx context.Context, args []string) error {
	jf := newJobFlags("compare")
	if err := jf.fs.Parse(args); err != nil {
		return err
	}
	job, err := jf.load(true)
	if err != nil {
		return err
	}

	results, err := engine.CompareScenarios(ctx, engine.BuildDefaultScenarios(job.Settings), job.Pieces)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tINITIAL BARS\tBARS\tPATTERNS\tMIN K\tWASTE\tWASTE %\tERROR")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t-\t%v\n", r.Scenario.Name, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%.1f\t\n",
			r.Scenario.Name, r.InitialBars, r.Bars, r.Patterns, r.MinPatternLimit, r.Waste, r.WastePercent)
	}
	return w.Flush()
}

// printSummary writes the human-readable cutting plan.
func printSummary(out io.Writer, r model.OptimizeResult) {
	best := r.Best()
	fmt.Fprintf(out, "Job:        %s\n", r.JobName)
	fmt.Fprintf(out, "Stock:      %d mm, %d bar slots, big-M %d, policy %s\n",
		r.StockLength, r.MaxBars, r.BigM, r.Settings.DemandPolicy)
	fmt.Fprintf(out, "Initial:    %d bars, %d patterns, waste %d mm (%s)\n",
		r.Initial.Bars, r.Initial.Patterns, r.Initial.Waste, r.Initial.Status)
	fmt.Fprintf(out, "Best:       %d bars, %d patterns, waste %d mm, efficiency %.1f%%\n",
		best.Bars, best.Patterns, best.Waste, r.Efficiency())
	fmt.Fprintf(out, "Lower bound %d bars; minimum pattern limit solved: %d\n", r.Estimate.LowerBound, r.Refined.MinK)
	if r.Refined.Stopped {
		fmt.Fprintf(out, "Refinement stopped: %s\n", r.Refined.StopStatus)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tBARS\tPATTERN\tWASTE/BAR")
	for i, use := range best.Plan {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\n", i+1, use.Uses, use.Pattern.Describe(r.Pieces), use.Pattern.Waste(r.StockLength, r.Pieces))
	}
	w.Flush()

	if len(r.Offcuts) > 0 {
		fmt.Fprintf(out, "\nReusable offcuts (>= %d mm):\n", r.Settings.MinOffcut)
		for _, o := range r.Offcuts {
			fmt.Fprintf(out, "  %d x %d mm\n", o.Quantity, o.Length)
		}
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func rememberJob(configPath, jobPath string) error {
	cfg, err := project.LoadAppConfig(configPath)
	if err != nil {
		return err
	}
	project.AddRecentJob(&cfg, jobPath, 10)
	return project.SaveAppConfig(configPath, cfg)
}
