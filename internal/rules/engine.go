package rules

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

//go:embed known_issues
var embeddedCollections embed.FS

// Engine holds immutable, pre-compiled rule collections and evaluates them
// against extracted bundles. Collections are loaded once; no hot-reloading.
type Engine struct {
	collections []Collection
	loadErrs    []LoadError
	verbose     bool
}

// NewDefault creates an Engine loaded with the built-in known-issue
// collections.
func NewDefault(verbose bool) (*Engine, error) {
	sub, err := fs.Sub(embeddedCollections, "known_issues")
	if err != nil {
		return nil, err
	}
	return New(sub, verbose), nil
}

// New creates an Engine from every rule-collection file (.json/.yaml/.yml)
// in fsys. Malformed collections and rules are skipped with a logged
// warning and recorded in LoadErrors; loading itself never fails.
func New(fsys fs.FS, verbose bool) *Engine {
	collections, loadErrs := loadCollections(fsys)
	e := &Engine{collections: collections, loadErrs: loadErrs, verbose: verbose}
	for _, le := range loadErrs {
		e.warnf("%s: %s", le.File, le.Reason)
	}
	if verbose {
		for _, c := range collections {
			e.logf("loaded collection %q (%d rules)", c.Name, len(c.Rules))
		}
	}
	return e
}

// NewFromDirs creates an Engine from the embedded default collections plus
// every collection found in the given extra directories. A missing
// directory is skipped with a warning; adding a rule file to a directory
// needs no code change.
func NewFromDirs(verbose bool, dirs ...string) (*Engine, error) {
	sub, err := fs.Sub(embeddedCollections, "known_issues")
	if err != nil {
		return nil, err
	}

	e := New(sub, verbose)
	e.addDirs(dirs)
	return e, nil
}

// NewFromDirsOnly creates an Engine from user directories alone, leaving
// the embedded collections out.
func NewFromDirsOnly(verbose bool, dirs ...string) *Engine {
	e := &Engine{verbose: verbose}
	e.addDirs(dirs)
	return e
}

func (e *Engine) addDirs(dirs []string) {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			le := LoadError{File: dir, Reason: "rules directory not found"}
			e.loadErrs = append(e.loadErrs, le)
			e.warnf("%s: %s", le.File, le.Reason)
			continue
		}
		extra := New(os.DirFS(dir), e.verbose)
		e.collections = append(e.collections, extra.collections...)
		e.loadErrs = append(e.loadErrs, extra.loadErrs...)
	}
}

// Collections returns the loaded collections.
func (e *Engine) Collections() []Collection { return e.collections }

// LoadErrors returns collection files and rules that failed to load.
func (e *Engine) LoadErrors() []LoadError { return e.loadErrs }

// RuleCount returns the total number of loaded rules.
func (e *Engine) RuleCount() int {
	n := 0
	for _, c := range e.collections {
		n += len(c.Rules)
	}
	return n
}

// Evaluate runs every enabled, format-applicable rule against the bundle
// rooted at root and returns the triggered findings.
//
// Findings come out in collection order (filename order) and rule
// declaration order within a collection, so re-running against an unchanged
// bundle yields identical output. ctx is checked between rules: a cancelled
// run returns the findings of fully-evaluated rules only, never a partial
// finding for an interrupted rule.
func (e *Engine) Evaluate(ctx context.Context, root string, format Format) []Finding {
	var findings []Finding
	evaluated := 0

	for _, coll := range e.collections {
		for i := range coll.Rules {
			if ctx.Err() != nil {
				e.logf("evaluation cancelled after %d rule(s)", evaluated)
				return findings
			}
			rule := &coll.Rules[i]
			if !rule.enabled() || !rule.appliesTo(format) {
				continue
			}
			evaluated++
			if f, ok := e.evaluateRule(rule, root, format); ok {
				f.Collection = coll.Name
				findings = append(findings, f)
			}
		}
	}

	e.logf("evaluated %d rule(s), %d finding(s) triggered", evaluated, len(findings))
	return findings
}

// evaluateRule scans the rule's resolved files and applies the trigger
// threshold. Evidence is collected in file order, then line order, capped
// at MaxEvidenceLines.
func (e *Engine) evaluateRule(rule *Rule, root string, format Format) (Finding, bool) {
	paths := rule.FilePaths[string(format)]
	files := resolveFiles(root, paths)
	if len(files) == 0 {
		return Finding{}, false
	}

	total := 0
	var evidence []EvidenceLine
	for _, rel := range files {
		res := scanFile(filepath.Join(root, rel), rel, rule.re, rule.CountMatches, MaxEvidenceLines-len(evidence))
		if res.skipReason != "" {
			e.warnf("rule %s: %s: %s", rule.ID, rel, res.skipReason)
		}
		total += res.matchCount
		evidence = append(evidence, res.evidence...)

		// Presence rules stop at the first match; scanning the remaining
		// candidates would be wasted I/O.
		if !rule.CountMatches && total > 0 {
			total = 1
			break
		}
	}

	if rule.CountMatches {
		if total < max(rule.MinMatches, 1) {
			return Finding{}, false
		}
	} else if total == 0 {
		return Finding{}, false
	}

	return Finding{
		RuleID:      rule.ID,
		Severity:    rule.Severity,
		Category:    rule.Category,
		Title:       renderTemplate(rule.TitleTemplate, total),
		Detail:      renderTemplate(rule.DetailTemplate, total),
		SectionLink: rule.SectionLink,
		Evidence:    evidence,
		MatchCount:  total,
	}, true
}

// renderTemplate substitutes the {match_count} placeholder.
func renderTemplate(tmpl string, matchCount int) string {
	return strings.ReplaceAll(tmpl, "{match_count}", strconv.Itoa(matchCount))
}

func (e *Engine) logf(format string, args ...any) {
	if e.verbose {
		fmt.Fprintf(os.Stderr, "[rules] "+format+"\n", args...)
	}
}

// warnf always reaches stderr; degraded loading must be visible even
// without --verbose.
func (e *Engine) warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[rules] warning: "+format+"\n", args...)
}
