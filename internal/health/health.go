// Package health turns findings into the top-of-report health summary and
// contributes the structured resource checks that run alongside the rules
// engine.
package health

import (
	"fmt"
	"strings"

	"github.com/samatild/sosparser/internal/rules"
	"github.com/samatild/sosparser/internal/sysinfo"
)

// Status is the aggregate health state shown in the report banner.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarnings Status = "warnings"
	StatusCritical Status = "critical"
)

// Summary is the aggregate of all findings for one bundle.
type Summary struct {
	OverallStatus Status          `json:"overall_status"`
	CriticalCount int             `json:"critical_count"`
	WarningCount  int             `json:"warning_count"`
	Findings      []rules.Finding `json:"findings"`
}

// HasFindings reports whether any finding was produced. The report only
// renders a status banner when this is true; a clean bundle gets none.
func (s Summary) HasFindings() bool {
	return len(s.Findings) > 0
}

// Summarize partitions findings by severity and derives the overall
// status: any critical finding makes the whole bundle critical, otherwise
// any warning makes it warnings, otherwise healthy.
//
// Finding order is preserved exactly as given: callers pass structured
// checks first, then rule findings in collection/declaration order, so the
// summary is deterministic for a fixed bundle and rule set.
func Summarize(findings []rules.Finding) Summary {
	s := Summary{
		OverallStatus: StatusHealthy,
		Findings:      findings,
	}
	for _, f := range findings {
		switch f.Severity {
		case rules.SeverityCritical:
			s.CriticalCount++
		case rules.SeverityWarning:
			s.WarningCount++
		}
	}
	if s.CriticalCount > 0 {
		s.OverallStatus = StatusCritical
	} else if s.WarningCount > 0 {
		s.OverallStatus = StatusWarnings
	}
	return s
}

// Thresholds holds the resource-check trigger points (percentages).
type Thresholds struct {
	DiskCritical         int
	DiskWarning          int
	MemCriticalAvailable int
	MemWarningAvailable  int
	SwapCritical         int
	SwapWarning          int
}

// DefaultThresholds mirror long-standing triage practice: act on disks at
// 85/95%, on memory when less than 15/5% remains available, and flag swap
// pressure at 50/80%.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DiskCritical:         95,
		DiskWarning:          85,
		MemCriticalAvailable: 5,
		MemWarningAvailable:  15,
		SwapCritical:         80,
		SwapWarning:          50,
	}
}

// StructuredChecks evaluates the parsed system summary against thresholds
// and returns findings in a fixed order: failed services, disks, memory,
// swap. Pure function; no I/O.
func StructuredChecks(sys sysinfo.Summary, th Thresholds) []rules.Finding {
	var findings []rules.Finding

	if n := len(sys.FailedServices); n > 0 {
		shown := sys.FailedServices
		suffix := ""
		if n > 8 {
			shown = shown[:8]
			suffix = " …"
		}
		findings = append(findings, rules.Finding{
			Severity:    rules.SeverityCritical,
			Category:    "Services",
			Title:       fmt.Sprintf("%d failed service%s", n, plural(n)),
			Detail:      strings.Join(shown, ", ") + suffix,
			SectionLink: "summary",
			MatchCount:  n,
		})
	}

	for _, d := range sys.Disks {
		severity := rules.Severity("")
		switch {
		case d.UsePercent >= th.DiskCritical:
			severity = rules.SeverityCritical
		case d.UsePercent >= th.DiskWarning:
			severity = rules.SeverityWarning
		default:
			continue
		}
		findings = append(findings, rules.Finding{
			Severity:    severity,
			Category:    "Disk",
			Title:       fmt.Sprintf("Disk %s at %d%%", d.Mount, d.UsePercent),
			Detail:      fmt.Sprintf("%s / %s used on %s", d.Used, d.Size, d.Filesystem),
			SectionLink: "filesystem",
			MatchCount:  1,
		})
	}

	if mem := sys.Memory; mem != nil {
		avail := mem.AvailablePercent()
		switch {
		case avail <= th.MemCriticalAvailable:
			findings = append(findings, memoryFinding(rules.SeverityCritical, "Available memory critically low", avail))
		case avail <= th.MemWarningAvailable:
			findings = append(findings, memoryFinding(rules.SeverityWarning, "Available memory low", avail))
		}

		swap := mem.SwapUsedPercent()
		switch {
		case mem.SwapTotalKB > 0 && swap >= th.SwapCritical:
			findings = append(findings, swapFinding("Swap usage high", swap))
		case mem.SwapTotalKB > 0 && swap >= th.SwapWarning:
			findings = append(findings, swapFinding("Swap usage elevated", swap))
		}
	}

	return findings
}

func memoryFinding(severity rules.Severity, title string, availPct int) rules.Finding {
	return rules.Finding{
		Severity:    severity,
		Category:    "Memory",
		Title:       fmt.Sprintf("%s (%d%% available)", title, availPct),
		SectionLink: "summary",
		MatchCount:  1,
	}
}

// Swap pressure alone is survivable, so both tiers stay at warning
// severity; the tier only changes the wording.
func swapFinding(title string, usedPct int) rules.Finding {
	return rules.Finding{
		Severity:    rules.SeverityWarning,
		Category:    "Swap",
		Title:       fmt.Sprintf("%s (%d%%)", title, usedPct),
		SectionLink: "summary",
		MatchCount:  1,
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
