package rules

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// maxLineBytes bounds the scanner's per-line buffer. Diagnostic bundles
	// contain journal dumps and kernel logs that run to hundreds of MB; the
	// scan must never hold more than one line in memory.
	maxLineBytes = 1024 * 1024

	// binarySniffBytes is how much of the file head is inspected for NUL
	// bytes before deciding the file is binary and skipping it.
	binarySniffBytes = 1024
)

// scanResult accumulates one file's contribution to a rule evaluation.
type scanResult struct {
	matchCount int
	evidence   []EvidenceLine
	skipReason string // non-empty when the file could not be scanned
}

// scanFile streams one resolved file line by line, applying the compiled
// pattern. countAll tallies every pattern occurrence on every line;
// otherwise the scan stops at the first matching line. evidenceBudget caps
// how many EvidenceLines this file may still contribute.
//
// Unreadable or binary files are skipped with a reason; they never abort
// the evaluation.
func scanFile(path, relPath string, re *regexp.Regexp, countAll bool, evidenceBudget int) scanResult {
	f, err := os.Open(path)
	if err != nil {
		return scanResult{skipReason: err.Error()}
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)
	if head, _ := br.Peek(binarySniffBytes); bytes.IndexByte(head, 0) >= 0 {
		return scanResult{skipReason: "binary content"}
	}

	var res scanResult
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()

		var hits int
		if countAll {
			hits = len(re.FindAllStringIndex(line, -1))
		} else if re.MatchString(line) {
			hits = 1
		}
		if hits == 0 {
			continue
		}

		res.matchCount += hits
		if len(res.evidence) < evidenceBudget {
			res.evidence = append(res.evidence, EvidenceLine{
				FilePath: filepath.ToSlash(relPath),
				LineNum:  lineNum,
				Text:     strings.TrimRight(line, " \t\r"),
			})
		}
		if !countAll {
			// Presence rule: one match is the whole answer.
			return res
		}
	}
	if err := sc.Err(); err != nil {
		// Oversized line or read failure mid-file. Keep what was counted so
		// far; the partial result is still useful.
		res.skipReason = err.Error()
	}
	return res
}
