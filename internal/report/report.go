// Package report renders the analysis outcome as a self-contained HTML
// page and as machine-readable JSON, and packages the output directory
// for handoff.
package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samatild/sosparser/internal/health"
	"github.com/samatild/sosparser/internal/rules"
	"github.com/samatild/sosparser/internal/sysinfo"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Data is the complete data model passed to the HTML template.
type Data struct {
	// Header
	BundleName  string    `json:"bundle_name"`
	Format      string    `json:"format"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
	RunID       string    `json:"run_id"`

	// System overview
	System sysinfo.Summary `json:"system"`

	// Health verdict and findings
	Health health.Summary `json:"health"`

	// Rule engine metadata
	RuleCount  int               `json:"rule_count"`
	LoadErrors []rules.LoadError `json:"load_errors,omitempty"`

	AnalysisDuration string `json:"analysis_duration"`
}

// Renderer generates HTML reports from analysis results.
type Renderer struct {
	tmpl *template.Template
}

// New creates a Renderer with the embedded HTML template.
func New() (*Renderer, error) {
	funcMap := template.FuncMap{
		"statusClass": func(s health.Status) string {
			switch s {
			case health.StatusCritical:
				return "banner-critical"
			case health.StatusWarnings:
				return "banner-warning"
			default:
				return "banner-healthy"
			}
		},
		"statusLabel": func(s health.Status) string {
			switch s {
			case health.StatusCritical:
				return "CRITICAL ISSUES FOUND"
			case health.StatusWarnings:
				return "WARNINGS FOUND"
			default:
				return "SYSTEM HEALTHY"
			}
		},
		"severityClass": func(sev rules.Severity) string {
			if sev == rules.SeverityCritical {
				return "sev-critical"
			}
			return "sev-warning"
		},
		"severityLabel": func(sev rules.Severity) string {
			return strings.ToUpper(string(sev))
		},
	}

	tmpl, err := template.New("report.html.tmpl").Funcs(funcMap).ParseFS(templates, "templates/report.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	return &Renderer{tmpl: tmpl}, nil
}

// GenerateString renders the HTML template to a string (used by serve mode).
func (r *Renderer) GenerateString(data Data) (string, error) {
	var buf strings.Builder
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

// Generate renders the HTML report and writes it to the output directory.
func (r *Renderer) Generate(data Data, outputDir string) (string, error) {
	reportPath := filepath.Join(outputDir, "report.html")
	f, err := os.Create(reportPath)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := r.tmpl.Execute(f, data); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	return reportPath, nil
}

// WriteJSON writes the full report data model as findings.json next to
// the HTML report.
func WriteJSON(data Data, outputDir string) (string, error) {
	jsonPath := filepath.Join(outputDir, "findings.json")
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal findings: %w", err)
	}
	if err := os.WriteFile(jsonPath, out, 0o644); err != nil {
		return "", fmt.Errorf("write findings: %w", err)
	}
	return jsonPath, nil
}
