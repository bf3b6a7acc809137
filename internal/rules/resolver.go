package rules

import (
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// resolveFiles maps a rule's declared path patterns to files that actually
// exist under the bundle root, preserving declaration order. Glob patterns
// (e.g. "sos_commands/lvm2/pvs_*" or "var/log/**/messages*") expand to their
// matches in lexical order. Paths that resolve to nothing are silently
// omitted: bundles vary by collection-tool version and optional subsystems,
// so a missing file is normal, not an error.
func resolveFiles(root string, patterns []string) []string {
	fsys := os.DirFS(root)

	var resolved []string
	seen := make(map[string]bool)

	add := func(rel string) {
		if seen[rel] {
			return
		}
		info, err := fs.Stat(fsys, rel)
		if err != nil || info.IsDir() {
			return
		}
		seen[rel] = true
		resolved = append(resolved, rel)
	}

	for _, pattern := range patterns {
		if !hasGlobMeta(pattern) {
			add(pattern)
			continue
		}
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			continue // bad pattern resolves to nothing
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return resolved
}

// hasGlobMeta reports whether the pattern contains glob metacharacters.
func hasGlobMeta(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
