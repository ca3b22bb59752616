package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fishls/internal/analysis"
	"fishls/internal/config"
	"fishls/internal/diag"
	"fishls/internal/diagfmt"
	"fishls/internal/diskcache"
	"fishls/internal/observ"
	"fishls/internal/source"
	"fishls/internal/version"
)

var diagCmd = &cobra.Command{
	Use:   "diag [flags] <file.fish|directory>...",
	Short: "Run diagnostics on fish files or directories",
	Long: `Run the language server's diagnostics on fish files or on every *.fish file
below the given directories. Exits with status 1 when any error is reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiagnose,
}

func init() {
	diagCmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	diagCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	diagCmd.Flags().Bool("disk-cache", false, "reuse diagnostics of unchanged files from the user cache directory")
	diagCmd.Flags().Bool("clear-cache", false, "drop the disk cache before running")
	diagCmd.Flags().Bool("no-warnings", false, "report errors only")
	diagCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
	diagCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	diagCmd.Flags().Int("context", 0, "source lines shown above each diagnostic in pretty output")
}

type diagOptions struct {
	format           string
	jobs             int
	diskCache        bool
	clearCache       bool
	noWarnings       bool
	warningsAsErrors bool
	fullPath         bool
	context          int
	timings          bool
}

func readDiagOptions(cmd *cobra.Command) (diagOptions, error) {
	var opts diagOptions
	var err error
	flags := cmd.Flags()
	if opts.format, err = flags.GetString("format"); err != nil {
		return opts, fmt.Errorf("failed to get format flag: %w", err)
	}
	if opts.jobs, err = flags.GetInt("jobs"); err != nil {
		return opts, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	if opts.diskCache, err = flags.GetBool("disk-cache"); err != nil {
		return opts, fmt.Errorf("failed to get disk-cache flag: %w", err)
	}
	if opts.clearCache, err = flags.GetBool("clear-cache"); err != nil {
		return opts, fmt.Errorf("failed to get clear-cache flag: %w", err)
	}
	if opts.noWarnings, err = flags.GetBool("no-warnings"); err != nil {
		return opts, fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	if opts.warningsAsErrors, err = flags.GetBool("warnings-as-errors"); err != nil {
		return opts, fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	if opts.fullPath, err = flags.GetBool("fullpath"); err != nil {
		return opts, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if opts.context, err = flags.GetInt("context"); err != nil {
		return opts, fmt.Errorf("failed to get context flag: %w", err)
	}
	if opts.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return opts, fmt.Errorf("failed to get timings flag: %w", err)
	}
	if opts.noWarnings && opts.warningsAsErrors {
		return opts, fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}
	switch opts.format {
	case "pretty", "short", "json", "sarif":
	default:
		return opts, fmt.Errorf("unknown format: %s", opts.format)
	}
	return opts, nil
}

// errDiagnostics makes the process exit non-zero without a usage dump.
var errDiagnostics = errors.New("diagnostics reported errors")

func runDiagnose(cmd *cobra.Command, args []string) error {
	opts, err := readDiagOptions(cmd)
	if err != nil {
		return err
	}
	quiet, err := quietFlag(cmd)
	if err != nil {
		return err
	}
	colored, err := useColor(cmd)
	if err != nil {
		return err
	}

	var timer *observ.Timer
	if opts.timings {
		timer = observ.NewTimer()
	}

	end := timer.Begin("config")
	cfg, cfgPath, err := loadConfig(cmd, startDirFor(args[0]))
	if err != nil {
		return err
	}
	end(cfgPath)

	var cache *diskcache.Cache
	if opts.diskCache {
		if cache, err = diskcache.Open("fishls"); err != nil {
			return fmt.Errorf("disk cache: %w", err)
		}
		if opts.clearCache {
			if err := cache.DropAll(); err != nil {
				return fmt.Errorf("disk cache: %w", err)
			}
		}
	}

	files, err := diagnosePaths(cmd.Context(), args, cfg, cache, opts, timer, quiet)
	if err != nil {
		return err
	}

	errorsFound := 0
	for i := range files {
		files[i].Diagnostics = filterSeverity(files[i].Diagnostics, opts)
		for _, d := range files[i].Diagnostics {
			if d.Severity == diag.SevError {
				errorsFound++
			}
		}
	}

	pathMode := diagfmt.PathModeAuto
	if opts.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	baseDir, _ := os.Getwd()
	out := cmd.OutOrStdout()

	end = timer.Begin("output")
	switch opts.format {
	case "pretty":
		diagfmt.Pretty(out, files, diagfmt.PrettyOpts{
			Color:    colored,
			PathMode: pathMode,
			BaseDir:  baseDir,
			Context:  opts.context,
		})
	case "short":
		diagfmt.Short(out, files, diagfmt.PrettyOpts{PathMode: pathMode, BaseDir: baseDir})
	case "json":
		err = diagfmt.JSON(out, files, diagfmt.JSONOpts{PathMode: pathMode, BaseDir: baseDir})
	case "sarif":
		err = diagfmt.Sarif(out, files, diagfmt.SarifRunMeta{
			ToolName:       "fishls",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args[1:],
		})
	}
	end("")
	if err != nil {
		return fmt.Errorf("failed to format diagnostics: %w", err)
	}

	if timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if errorsFound > 0 {
		cmd.SilenceErrors = quiet
		return fmt.Errorf("%w: %d error(s) in %d file(s)", errDiagnostics, errorsFound, countFilesWithErrors(files))
	}
	return nil
}

func startDirFor(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "."
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return filepath.Dir(abs)
	}
	return abs
}

// diagnosePaths indexes every file first so cross-file lookups see the whole
// set, then runs the diagnostic passes per file.
func diagnosePaths(ctx context.Context, paths []string, cfg *config.Config, cache *diskcache.Cache, opts diagOptions, timer *observ.Timer, quiet bool) ([]diagfmt.File, error) {
	a := newAnalyzer(cfg, quiet)

	end := timer.Begin("index")
	summary, err := a.IndexWorkspace(ctx, paths, analysis.IndexOptions{
		Jobs: opts.jobs,
		Progress: func(p analysis.Progress) {
			if p.Err != nil && !quiet {
				fmt.Fprintf(os.Stderr, "fishls: %s: %v\n", p.Path, p.Err)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	end(fmt.Sprintf("%d files", summary.Files))
	if summary.Files == 0 {
		return nil, fmt.Errorf("no fish files found in %s", strings.Join(paths, ", "))
	}

	listed, err := analysis.ListFishFiles(paths)
	if err != nil {
		return nil, err
	}
	fingerprint := configFingerprint(cfg)
	files := make([]diagfmt.File, len(listed))
	var hits, misses atomic.Int32

	jobs := opts.jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range listed {
		g.Go(func() error {
			files[i].Path = path
			res, ok := a.Result(source.PathToURI(path))
			if !ok {
				// unreadable; already reported while indexing
				return nil
			}
			files[i].Doc = res.Doc

			key := diskcache.Key(res.Doc.Bytes(), version.Version, fingerprint, path)
			if cached, hit, err := cache.Get(key); err == nil && hit {
				files[i].Diagnostics = cached
				hits.Add(1)
				return nil
			}

			end := timer.Begin("diagnose")
			diags, err := a.DiagnosticsFor(gctx, res, cfg)
			end("")
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			files[i].Diagnostics = diags
			if err := cache.Put(key, path, diags); err != nil && !quiet {
				fmt.Fprintf(os.Stderr, "fishls: disk cache: %v\n", err)
			}
			misses.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if cache != nil {
		timer.Begin("disk-cache")(fmt.Sprintf("%d hits, %d misses", hits.Load(), misses.Load()))
	}
	return files, nil
}

// configFingerprint captures the settings that change diagnostic output.
func configFingerprint(cfg *config.Config) string {
	return fmt.Sprintf("codes=%v strict=%t max=%d",
		cfg.EnabledCodes(), cfg.Diagnostics.StrictConditional, cfg.Diagnostics.MaxDiagnostics)
}

func filterSeverity(diags []diag.Diagnostic, opts diagOptions) []diag.Diagnostic {
	if !opts.noWarnings && !opts.warningsAsErrors {
		return diags
	}
	out := make([]diag.Diagnostic, 0, len(diags))
	for _, d := range diags {
		switch {
		case opts.noWarnings && d.Severity != diag.SevError:
			continue
		case opts.warningsAsErrors && d.Severity == diag.SevWarning:
			d.Severity = diag.SevError
		}
		out = append(out, d)
	}
	return out
}

func countFilesWithErrors(files []diagfmt.File) int {
	n := 0
	for _, f := range files {
		for _, d := range f.Diagnostics {
			if d.Severity == diag.SevError {
				n++
				break
			}
		}
	}
	return n
}
