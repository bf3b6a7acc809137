// Package rules evaluates declarative known-issue rule collections against
// an extracted diagnostic bundle.
package rules

import "regexp"

// Format identifies which diagnostic-bundle convention a bundle follows.
type Format string

const (
	FormatSosreport     Format = "sosreport"
	FormatSupportconfig Format = "supportconfig"
	FormatUnknown       Format = "unknown"
)

// Severity classifies how serious a triggered rule is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// MaxEvidenceLines caps the evidence attached to a single finding. Bounds
// memory and report size even when a pattern matches thousands of lines.
const MaxEvidenceLines = 10

// Collection is one named, versioned set of rules loaded from a single file.
type Collection struct {
	Name        string `json:"collection" yaml:"collection"`
	Description string `json:"description" yaml:"description"`
	Version     string `json:"version" yaml:"version"`
	Rules       []Rule `json:"rules" yaml:"rules"`
}

// Rule is a single known-issue detection rule. Patterns target files inside
// the bundle; which files depends on the bundle format.
type Rule struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	// AppliesTo is "sosreport", "supportconfig" or "both" (default),
	// matched case-insensitively and normalized at load time.
	AppliesTo string `json:"applies_to" yaml:"applies_to"`

	// FilePaths maps a format to an ordered list of candidate paths relative
	// to the bundle root. Entries may be exact names or glob patterns.
	FilePaths map[string][]string `json:"file_paths" yaml:"file_paths"`

	Pattern      string   `json:"pattern" yaml:"pattern"`
	PatternFlags []string `json:"pattern_flags" yaml:"pattern_flags"`

	Severity Severity `json:"severity" yaml:"severity"`
	Category string   `json:"category" yaml:"category"`

	// TitleTemplate and DetailTemplate may contain a {match_count}
	// placeholder that is substituted when the finding is built.
	TitleTemplate  string `json:"title_template" yaml:"title_template"`
	DetailTemplate string `json:"detail_template" yaml:"detail_template"`

	// SectionLink names the report tab a finding navigates to.
	SectionLink string `json:"section_link" yaml:"section_link"`

	// CountMatches tallies every match across all lines and files. When
	// false a single match anywhere suffices and scanning stops early.
	CountMatches bool `json:"count_matches" yaml:"count_matches"`

	// MinMatches is the trigger threshold, applied only when CountMatches
	// is true. Presence rules (CountMatches=false) trigger on any match
	// regardless of this value.
	MinMatches int `json:"min_matches" yaml:"min_matches"`

	// Enabled is a kill switch. Disabled rules are loaded but never scanned.
	Enabled *bool `json:"enabled" yaml:"enabled"`

	re *regexp.Regexp // compiled at load time
}

// enabled reports whether the rule is active. Missing field means enabled.
func (r *Rule) enabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// appliesTo reports whether the rule targets the given bundle format.
func (r *Rule) appliesTo(format Format) bool {
	switch r.AppliesTo {
	case "", "both":
		return true
	default:
		return r.AppliesTo == string(format)
	}
}

// EvidenceLine is one literal matched line supporting a finding.
type EvidenceLine struct {
	FilePath string `json:"file"`
	LineNum  int    `json:"line_num"`
	Text     string `json:"line"`
}

// Finding is the output of one triggered rule against one bundle.
type Finding struct {
	RuleID      string         `json:"rule_id,omitempty"`
	Collection  string         `json:"collection,omitempty"`
	Severity    Severity       `json:"severity"`
	Category    string         `json:"category"`
	Title       string         `json:"title"`
	Detail      string         `json:"detail"`
	SectionLink string         `json:"section_link"`
	Evidence    []EvidenceLine `json:"evidence,omitempty"`

	// MatchCount is the total number of matches, which may exceed
	// len(Evidence). Presence rules always report 1.
	MatchCount int `json:"match_count"`
}

// LoadError records a collection file or rule that failed to load. The run
// continues without the offending piece; the report surfaces these so a
// silently dropped rule is still visible to the operator.
type LoadError struct {
	File   string `json:"file"`
	RuleID string `json:"rule_id,omitempty"`
	Reason string `json:"reason"`
}
