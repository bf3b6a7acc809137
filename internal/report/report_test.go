package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samatild/sosparser/internal/health"
	"github.com/samatild/sosparser/internal/rules"
	"github.com/samatild/sosparser/internal/sysinfo"
)

func TestNew(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if r == nil || r.tmpl == nil {
		t.Fatal("expected renderer with parsed template")
	}
}

func TestGenerate_HealthyBundle(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tmpDir := t.TempDir()
	data := Data{
		BundleName:  "sosreport-web01",
		Format:      "sosreport",
		GeneratedAt: time.Now().UTC(),
		Version:     "test-0.1.0",
		System: sysinfo.Summary{
			Hostname: "web01",
			Distro:   "SUSE Linux Enterprise Server 15 SP5",
			Kernel:   "5.14.21-150500.55.7-default",
		},
		Health:           health.Summarize(nil),
		RuleCount:        13,
		AnalysisDuration: "120ms",
	}

	path, err := r.Generate(data, tmpDir)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if filepath.Base(path) != "report.html" {
		t.Errorf("expected report.html, got %s", filepath.Base(path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	html := string(content)

	if !strings.Contains(html, "web01") {
		t.Error("report should contain hostname")
	}
	if strings.Contains(html, `class="banner`) {
		t.Error("clean bundle should render no status banner")
	}
	if !strings.Contains(html, "No known issues matched") {
		t.Error("report should state that no findings matched")
	}
}

func TestGenerate_WithFindings(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tmpDir := t.TempDir()
	findings := []rules.Finding{
		{
			RuleID:     "kernel-panic",
			Collection: "kernel",
			Severity:   rules.SeverityCritical,
			Category:   "Kernel",
			Title:      "Kernel panic recorded",
			Detail:     "The kernel panicked at least once during the log window.",
			Evidence: []rules.EvidenceLine{
				{FilePath: "var/log/messages", LineNum: 42, Text: "kernel: Kernel panic - not syncing"},
			},
			MatchCount:  1,
			SectionLink: "summary",
		},
		{
			RuleID:     "ssh-auth-failures",
			Collection: "auth",
			Severity:   rules.SeverityWarning,
			Title:      "Repeated SSH authentication failures x37",
			Evidence: []rules.EvidenceLine{
				{FilePath: "var/log/secure", LineNum: 10, Text: "sshd[1]: Failed password for root"},
			},
			MatchCount: 37,
		},
	}
	data := Data{
		BundleName:  "sosreport-web01",
		Format:      "sosreport",
		GeneratedAt: time.Now().UTC(),
		Version:     "test",
		System:      sysinfo.Summary{Hostname: "web01"},
		Health:      health.Summarize(findings),
		RuleCount:   13,
	}

	path, err := r.Generate(data, tmpDir)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	content, _ := os.ReadFile(path)
	html := string(content)

	checks := []string{
		"CRITICAL ISSUES FOUND",
		"banner-critical",
		"sev-critical",
		"sev-warning",
		"Kernel panic recorded",
		"var/log/messages:42",
		"Repeated SSH authentication failures x37",
		"37 matches total, first 1 shown",
		`href="#summary"`,
	}
	for _, want := range checks {
		if !strings.Contains(html, want) {
			t.Errorf("report should contain %q", want)
		}
	}
}

func TestGenerate_LoadErrorsSection(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tmpDir := t.TempDir()
	data := Data{
		BundleName:  "nts_sles01",
		Format:      "supportconfig",
		GeneratedAt: time.Now().UTC(),
		Version:     "test",
		Health:      health.Summarize(nil),
		LoadErrors: []rules.LoadError{
			{File: "custom/broken.json", Reason: "parse rule collection: unexpected end of JSON input"},
			{File: "custom/rules.json", RuleID: "bad-regex", Reason: "compile pattern: missing closing )"},
		},
	}

	path, err := r.Generate(data, tmpDir)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	content, _ := os.ReadFile(path)
	html := string(content)

	if !strings.Contains(html, "Rule Load Problems") {
		t.Error("report should contain load problems section")
	}
	if !strings.Contains(html, "custom/broken.json") {
		t.Error("report should name the unparsable file")
	}
	if !strings.Contains(html, "[bad-regex]") {
		t.Error("report should name the rejected rule id")
	}
}

func TestWriteJSON(t *testing.T) {
	tmpDir := t.TempDir()
	data := Data{
		BundleName: "sosreport-web01",
		Format:     "sosreport",
		Version:    "test",
		Health: health.Summarize([]rules.Finding{
			{RuleID: "oom-killer", Severity: rules.SeverityWarning, Title: "OOM killer x3", MatchCount: 3},
		}),
	}

	path, err := WriteJSON(data, tmpDir)
	if err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded Data
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Health.OverallStatus != health.StatusWarnings {
		t.Errorf("OverallStatus = %q", decoded.Health.OverallStatus)
	}
	if len(decoded.Health.Findings) != 1 || decoded.Health.Findings[0].RuleID != "oom-killer" {
		t.Errorf("Findings = %+v", decoded.Health.Findings)
	}
}
