// Package orchestrator coordinates the Extract -> Scan -> Report pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samatild/sosparser/internal/browser"
	"github.com/samatild/sosparser/internal/bundle"
	"github.com/samatild/sosparser/internal/config"
	"github.com/samatild/sosparser/internal/health"
	"github.com/samatild/sosparser/internal/report"
	"github.com/samatild/sosparser/internal/rules"
	"github.com/samatild/sosparser/internal/server"
	"github.com/samatild/sosparser/internal/sysinfo"
)

// Options holds CLI flags for the orchestrator.
type Options struct {
	BundlePath string // archive or already-extracted directory
	Format     string // sosreport | supportconfig | "" (auto)
	Verbose    bool
	Version    string
}

// Result summarizes one completed pipeline run.
type Result struct {
	RunID      string
	ReportPath string
	ZipPath    string
	Health     health.Summary
}

// Orchestrator runs the analysis pipeline for one bundle.
type Orchestrator struct {
	cfg  *config.Config
	opts Options
}

// New creates an Orchestrator with validated config.
func New(cfg *config.Config, opts Options) *Orchestrator {
	return &Orchestrator{cfg: cfg, opts: opts}
}

// Run executes the full pipeline.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()[:8]
	bundleName := bundleBaseName(o.opts.BundlePath)

	// --- Stage 1: Intake ---
	root, cleanup, err := o.intake(runID)
	if err != nil {
		return nil, err
	}
	if cleanup != nil && !o.cfg.Output.KeepTree {
		defer cleanup()
	}

	format := bundle.ParseFormat(o.opts.Format, root)
	if format == rules.FormatUnknown {
		return nil, fmt.Errorf("cannot determine bundle format of %s (use --format)", o.opts.BundlePath)
	}
	fmt.Fprintf(os.Stderr, "[*] Detected %s at %s\n", format, root)

	// --- Stage 2: Rules ---
	var engine *rules.Engine
	if o.cfg.Rules.DisableBuiltin {
		engine = rules.NewFromDirsOnly(o.opts.Verbose, o.cfg.Rules.Dirs...)
	} else {
		engine, err = rules.NewFromDirs(o.opts.Verbose, o.cfg.Rules.Dirs...)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
	}
	fmt.Fprintf(os.Stderr, "[*] Scanning with %d rules...\n", engine.RuleCount())
	scanStart := time.Now()
	ruleFindings := engine.Evaluate(ctx, root, format)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "[*] Scan complete (%s), %d finding(s)\n",
		time.Since(scanStart).Round(time.Millisecond), len(ruleFindings))

	// --- Stage 3: System summary and health verdict ---
	sys := sysinfo.Collect(root, format)
	checks := health.StructuredChecks(sys, o.cfg.HealthThresholds())
	summary := health.Summarize(append(checks, ruleFindings...))

	// --- Stage 4: Report ---
	outputDir := filepath.Join(o.cfg.Output.Dir, fmt.Sprintf("%s_%s", bundleName, runID))
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	data := report.Data{
		BundleName:       bundleName,
		Format:           string(format),
		GeneratedAt:      time.Now().UTC(),
		Version:          o.opts.Version,
		RunID:            runID,
		System:           sys,
		Health:           summary,
		RuleCount:        engine.RuleCount(),
		LoadErrors:       engine.LoadErrors(),
		AnalysisDuration: time.Since(startTime).Round(time.Millisecond).String(),
	}

	renderer, err := report.New()
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	reportPath, err := renderer.Generate(data, outputDir)
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	if _, err := report.WriteJSON(data, outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "[orchestrator] warning: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "[*] Report generated: %s\n", reportPath)

	res := &Result{
		RunID:      runID,
		ReportPath: reportPath,
		Health:     summary,
	}

	// --- Stage 5: Export ---
	if o.cfg.Output.ExportZip {
		zipPath, zipErr := report.ExportArchive(outputDir, bundleName, sys.Hostname, o.opts.Version)
		if zipErr != nil {
			fmt.Fprintf(os.Stderr, "[orchestrator] warning: export: %v\n", zipErr)
		} else {
			fmt.Fprintf(os.Stderr, "[*] Report package: %s\n", zipPath)
			res.ZipPath = zipPath
		}
	}

	o.printSummary(res, data)

	// --- Stage 6: Serve ---
	if o.cfg.Serve.Enabled {
		if err := o.serve(ctx, data, renderer); err != nil {
			fmt.Fprintf(os.Stderr, "[orchestrator] warning: serve: %v\n", err)
		}
	}

	return res, nil
}

// intake resolves the bundle path to an extracted report root. Archives
// are unpacked into a per-run working directory; directories are used in
// place.
func (o *Orchestrator) intake(runID string) (string, func(), error) {
	info, err := os.Stat(o.opts.BundlePath)
	if err != nil {
		return "", nil, fmt.Errorf("bundle not found: %s", o.opts.BundlePath)
	}

	if info.IsDir() {
		root, err := bundle.ResolveRoot(o.opts.BundlePath)
		if err != nil {
			return "", nil, err
		}
		return root, nil, nil
	}

	destDir := filepath.Join(o.cfg.Output.Dir, fmt.Sprintf("extracted_%s", runID))
	fmt.Fprintf(os.Stderr, "[*] Extracting %s...\n", filepath.Base(o.opts.BundlePath))
	if o.opts.Verbose {
		fmt.Fprintf(os.Stderr, "[orchestrator] extraction dir: %s\n", destDir)
	}
	root, err := bundle.Extract(o.opts.BundlePath, destDir)
	if err != nil {
		os.RemoveAll(destDir)
		return "", nil, fmt.Errorf("extract bundle: %w", err)
	}
	return root, func() { os.RemoveAll(destDir) }, nil
}

// serve hosts the report locally until ctx is cancelled.
func (o *Orchestrator) serve(ctx context.Context, data report.Data, renderer *report.Renderer) error {
	html, err := renderer.GenerateString(data)
	if err != nil {
		return err
	}
	srv := server.New(data, html)
	addr, err := srv.Start(o.cfg.Serve.Port)
	if err != nil {
		return err
	}
	defer srv.Stop()

	url := "http://" + addr
	fmt.Fprintf(os.Stderr, "[*] Serving report at %s (Ctrl+C to stop)\n", url)
	if o.cfg.Serve.OpenBrowser {
		if err := browser.Open(url); err != nil && o.opts.Verbose {
			fmt.Fprintf(os.Stderr, "[orchestrator] browser: %v\n", err)
		}
	}

	<-ctx.Done()
	return nil
}

func (o *Orchestrator) printSummary(res *Result, data report.Data) {
	fmt.Printf("\n=== sosparser Report ===\n")
	fmt.Printf("Host: %s (%s)\n", data.System.Hostname, data.Format)
	fmt.Printf("Status: %s | Critical: %d | Warnings: %d\n",
		res.Health.OverallStatus, res.Health.CriticalCount, res.Health.WarningCount)
	fmt.Printf("Report: %s\n", res.ReportPath)
	if res.ZipPath != "" {
		fmt.Printf("Package: %s\n", res.ZipPath)
	}
}

// bundleBaseName strips archive extensions so output directories read as
// the bundle they came from.
func bundleBaseName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".tar.gz", ".tgz", ".tar.bz2", ".tbz2", ".tbz", ".tar.xz", ".txz", ".tar"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}
