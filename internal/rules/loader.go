package rules

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/blang/semver/v4"
	"gopkg.in/yaml.v3"
)

// supportedSchemaMajor is the collection schema major version this engine
// understands. Collections declaring a different major are skipped.
const supportedSchemaMajor = 1

// patternFlags maps declared flag names to Go inline regexp flags.
//
// The scanner is line-oriented, so MULTILINE ((?m)) is effectively a no-op
// (anchors already bind to single lines) and DOTALL ((?s)) only changes
// whether '.' matches within a line's content. Rules that need genuine
// cross-line matching cannot be expressed against this engine.
var patternFlags = map[string]string{
	"IGNORECASE": "(?i)",
	"MULTILINE":  "(?m)",
	"DOTALL":     "(?s)",
}

// loadCollections parses every rule-collection file in fsys, in filename
// order for reproducibility. Malformed files and invalid rules are recorded
// as LoadErrors and skipped; the remaining rules still load. Patterns are
// compiled exactly once, at load time.
func loadCollections(fsys fs.FS) ([]Collection, []LoadError) {
	var paths []string
	fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error { //nolint:errcheck
		if err != nil || d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".json", ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	sort.Strings(paths)

	var collections []Collection
	var loadErrs []LoadError

	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			loadErrs = append(loadErrs, LoadError{File: path, Reason: fmt.Sprintf("read: %v", err)})
			continue
		}

		var coll Collection
		if filepath.Ext(path) == ".json" {
			err = json.Unmarshal(data, &coll)
		} else {
			err = yaml.Unmarshal(data, &coll)
		}
		if err != nil {
			loadErrs = append(loadErrs, LoadError{File: path, Reason: fmt.Sprintf("parse: %v", err)})
			continue
		}
		if len(coll.Rules) == 0 {
			loadErrs = append(loadErrs, LoadError{File: path, Reason: "no rules array"})
			continue
		}
		if coll.Name == "" {
			coll.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		if reason := checkSchemaVersion(coll.Version); reason != "" {
			loadErrs = append(loadErrs, LoadError{File: path, Reason: reason})
			continue
		}

		// Validate and compile rules individually; a faulty rule never
		// takes its siblings down with it.
		valid := coll.Rules[:0]
		for i := range coll.Rules {
			rule := coll.Rules[i]
			if reason := prepareRule(&rule); reason != "" {
				loadErrs = append(loadErrs, LoadError{File: path, RuleID: rule.ID, Reason: reason})
				continue
			}
			valid = append(valid, rule)
		}
		coll.Rules = valid
		collections = append(collections, coll)
	}

	return collections, loadErrs
}

// checkSchemaVersion validates the collection's semver schema version.
// Returns a non-empty reason when the collection must be skipped.
func checkSchemaVersion(version string) string {
	if version == "" {
		return "missing version"
	}
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return fmt.Sprintf("invalid version %q: %v", version, err)
	}
	if v.Major != supportedSchemaMajor {
		return fmt.Sprintf("unsupported schema version %s (want major %d)", version, supportedSchemaMajor)
	}
	return ""
}

// prepareRule validates required fields and compiles the pattern.
// Returns a non-empty reason when the rule must be skipped.
func prepareRule(r *Rule) string {
	if r.ID == "" {
		return "missing id"
	}
	if r.Name == "" {
		return "missing name"
	}
	if r.Pattern == "" {
		return "missing pattern"
	}
	// Rule files are hand-authored; "Both" or "SOSReport" should still load.
	r.AppliesTo = strings.ToLower(r.AppliesTo)
	switch r.AppliesTo {
	case "", "both", string(FormatSosreport), string(FormatSupportconfig):
	default:
		return fmt.Sprintf("unrecognized applies_to %q", r.AppliesTo)
	}
	switch r.Severity {
	case SeverityCritical, SeverityWarning:
	default:
		return fmt.Sprintf("unrecognized severity %q", r.Severity)
	}
	if r.MinMatches < 0 {
		return fmt.Sprintf("negative min_matches %d", r.MinMatches)
	}

	var prefix strings.Builder
	for _, name := range r.PatternFlags {
		inline, ok := patternFlags[strings.ToUpper(name)]
		if !ok {
			return fmt.Sprintf("unrecognized pattern flag %q", name)
		}
		prefix.WriteString(inline)
	}

	// Go's regexp is RE2: no lookarounds or backreferences. Rules using them
	// fail here and are reported as a load error, which is the documented
	// rule-authoring constraint.
	re, err := regexp.Compile(prefix.String() + r.Pattern)
	if err != nil {
		return fmt.Sprintf("invalid pattern %q: %v", r.Pattern, err)
	}
	r.re = re

	if r.TitleTemplate == "" {
		r.TitleTemplate = r.Name
	}
	return ""
}
