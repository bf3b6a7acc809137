package bundle

import (
	"os"
	"path/filepath"

	"github.com/samatild/sosparser/internal/rules"
)

// supportconfigMarkers are files only the SUSE collector writes. Any one
// of them is decisive.
var supportconfigMarkers = []string{
	"basic-environment.txt",
	"basic-health-check.txt",
	"supportconfig.txt",
}

// sosreportMarkers are entries a sosreport tree carries. Several overlap
// with an ordinary filesystem copy, so three are required to call it.
var sosreportMarkers = []string{
	"sos_commands",
	"sos_logs",
	"sos_reports",
	"version",
	"proc",
	"etc",
	"var",
}

// DetectFormat identifies which collector produced the tree at root.
func DetectFormat(root string) rules.Format {
	for _, m := range supportconfigMarkers {
		if fileExists(filepath.Join(root, m)) {
			return rules.FormatSupportconfig
		}
	}
	hits := 0
	for _, m := range sosreportMarkers {
		if fileExists(filepath.Join(root, m)) {
			hits++
		}
	}
	if hits >= 3 {
		return rules.FormatSosreport
	}
	return rules.FormatUnknown
}

// ParseFormat maps a user-supplied format name to a Format, falling back
// to auto-detection for empty or "auto".
func ParseFormat(name, root string) rules.Format {
	switch name {
	case "sosreport":
		return rules.FormatSosreport
	case "supportconfig":
		return rules.FormatSupportconfig
	}
	return DetectFormat(root)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
