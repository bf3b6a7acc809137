package sysinfo

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Supportconfig .txt files are concatenations of sections marked with
//
//	#==[ Command ]========================================#
//	# /bin/uname -a
//	<output...>
//
// where the first comment line after the marker names the command or file
// the section captures.
var sectionHeader = regexp.MustCompile(`^#==\[\s*(.+?)\s*\]={5,}#\s*$`)

// maxSectionLines bounds how much of a single section is kept in memory.
const maxSectionLines = 10000

// commandOutput streams through a supportconfig file and returns the body
// of the first Command section whose label contains needle. The file is
// read line by line and the scan stops as soon as the section has been
// consumed, so multi-hundred-MB files stay cheap. Returns "" when the file
// or section is absent.
func commandOutput(root, file, needle string) string {
	return sectionBody(root, file, "Command", needle)
}

// sectionBody is commandOutput generalized over the section type
// ("Command", "Configuration File", ...). Empty sectionType matches any.
func sectionBody(root, file, sectionType, needle string) string {
	f, err := os.Open(filepath.Join(root, file))
	if err != nil {
		return ""
	}
	defer f.Close()

	needle = strings.ToLower(needle)

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	inSection := false
	wantLabel := false
	sectionOK := false
	var body []string

	for sc.Scan() {
		line := sc.Text()
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			if inSection && sectionOK {
				break
			}
			inSection = sectionType == "" || strings.HasPrefix(m[1], sectionType)
			wantLabel = inSection
			sectionOK = false
			body = body[:0]
			continue
		}
		if !inSection {
			continue
		}
		if wantLabel {
			// First "# <label>" line after the marker names the section.
			wantLabel = false
			label := strings.TrimSpace(strings.TrimPrefix(line, "#"))
			sectionOK = strings.Contains(strings.ToLower(label), needle)
			continue
		}
		if !sectionOK {
			continue
		}
		body = append(body, line)
		if len(body) >= maxSectionLines {
			break
		}
	}

	if !sectionOK {
		return ""
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}
