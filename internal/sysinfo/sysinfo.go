// Package sysinfo extracts the system summary surface of a diagnostic
// bundle: identity for the report header and the resource numbers the
// structured health checks run on. Every reader degrades to a zero value
// when its source file is missing, since bundles vary widely by collector
// version and options.
package sysinfo

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/samatild/sosparser/internal/rules"
)

// Memory holds meminfo-derived figures in kilobytes.
type Memory struct {
	TotalKB     int64 `json:"total_kb"`
	AvailableKB int64 `json:"available_kb"`
	SwapTotalKB int64 `json:"swap_total_kb"`
	SwapUsedKB  int64 `json:"swap_used_kb"`
}

// AvailablePercent returns available memory as a percentage of total.
func (m Memory) AvailablePercent() int {
	if m.TotalKB == 0 {
		return 100
	}
	return int(m.AvailableKB * 100 / m.TotalKB)
}

// SwapUsedPercent returns used swap as a percentage of swap total.
func (m Memory) SwapUsedPercent() int {
	if m.SwapTotalKB == 0 {
		return 0
	}
	return int(m.SwapUsedKB * 100 / m.SwapTotalKB)
}

// Disk is one df output row.
type Disk struct {
	Filesystem string `json:"filesystem"`
	Size       string `json:"size"`
	Used       string `json:"used"`
	Avail      string `json:"avail"`
	UsePercent int    `json:"use_percent"`
	Mount      string `json:"mount"`
}

// Summary is the extracted system overview for one bundle.
type Summary struct {
	Hostname       string   `json:"hostname"`
	Distro         string   `json:"distro"`
	Kernel         string   `json:"kernel"`
	Uptime         string   `json:"uptime"`
	CollectedAt    string   `json:"collected_at,omitempty"`
	Memory         *Memory  `json:"memory,omitempty"`
	Disks          []Disk   `json:"disks,omitempty"`
	FailedServices []string `json:"failed_services,omitempty"`
}

// Collect reads the summary surface for the given bundle format.
func Collect(root string, format rules.Format) Summary {
	if format == rules.FormatSupportconfig {
		return collectSupportconfig(root)
	}
	return collectSosreport(root)
}

func collectSosreport(root string) Summary {
	var s Summary

	s.Hostname = firstLine(readFirst(root,
		"etc/hostname",
		"sos_commands/general/hostname",
		"sos_commands/host/hostname",
	))
	s.Distro = osReleasePrettyName(readFirst(root, "etc/os-release"))
	s.Kernel = kernelFromUname(readFirst(root,
		"sos_commands/kernel/uname_-a",
		"proc/version",
	))
	s.Uptime = firstLine(readFirst(root,
		"sos_commands/general/uptime",
		"sos_commands/host/uptime",
		"uptime",
	))
	s.Memory = parseMeminfo(readFirst(root, "proc/meminfo"))
	s.Disks = parseDf(readFirst(root, "df", "sos_commands/filesys/df_-al"))
	s.FailedServices = parseFailedUnits(readFirst(root,
		"sos_commands/systemd/systemctl_list-units_--failed",
	))
	s.CollectedAt = sosCollectionDate(readFirst(root, "sos_logs/ui.log"))
	if s.CollectedAt == "" {
		s.CollectedAt = firstLine(readFirst(root, "date", "sos_commands/general/date"))
	}
	return s
}

func collectSupportconfig(root string) Summary {
	var s Summary

	uname := commandOutput(root, "basic-environment.txt", "uname")
	if fields := strings.Fields(uname); len(fields) >= 3 {
		s.Hostname = fields[1]
		s.Kernel = fields[2]
	}
	s.Distro = osReleasePrettyName(readFirst(root, "basic-environment.txt"))
	s.Uptime = firstLine(commandOutput(root, "basic-health-check.txt", "uptime"))
	s.Memory = parseMeminfo(sectionBody(root, "memory.txt", "", "meminfo"))
	s.Disks = parseDf(commandOutput(root, "fs-diskio.txt", "/bin/df"))
	s.FailedServices = parseFailedUnits(commandOutput(root, "systemd-status.txt", "--failed"))
	s.CollectedAt = firstLine(commandOutput(root, "basic-environment.txt", "/bin/date"))
	return s
}

var uiLogTimestamp = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)

// sosCollectionDate pulls the timestamp of the first sos ui.log line,
// which marks when collection started.
func sosCollectionDate(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if m := uiLogTimestamp.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// readFirst returns the content of the first existing candidate file.
func readFirst(root string, candidates ...string) string {
	for _, rel := range candidates {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err == nil {
			return string(data)
		}
	}
	return ""
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

// osReleasePrettyName pulls PRETTY_NAME (falling back to NAME) out of
// os-release content, which may be embedded in a larger file.
func osReleasePrettyName(content string) string {
	var name string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			return strings.Trim(v, `"`)
		}
		if v, ok := strings.CutPrefix(line, "NAME="); ok && name == "" {
			name = strings.Trim(v, `"`)
		}
	}
	return name
}

// kernelFromUname extracts the release field from "uname -a" output, or the
// third word of /proc/version ("Linux version 5.14...").
func kernelFromUname(content string) string {
	fields := strings.Fields(firstLine(content))
	if len(fields) >= 3 {
		return fields[2]
	}
	return ""
}

// parseMeminfo reads MemTotal/MemAvailable/SwapTotal/SwapFree from
// /proc/meminfo style content. Returns nil when nothing useful is present.
func parseMeminfo(content string) *Memory {
	if content == "" {
		return nil
	}
	var m Memory
	for _, line := range strings.Split(content, "\n") {
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		kb, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "MemTotal":
			m.TotalKB = kb
		case "MemAvailable":
			m.AvailableKB = kb
		case "SwapTotal":
			m.SwapTotalKB = kb
		case "SwapFree":
			m.SwapUsedKB = m.SwapTotalKB - kb
		}
	}
	if m.TotalKB == 0 {
		return nil
	}
	// SwapFree may precede SwapTotal in odd captures; recompute defensively.
	if m.SwapUsedKB < 0 {
		m.SwapUsedKB = 0
	}
	return &m
}

// parseDf parses df output rows, skipping the header and pseudo
// filesystems. Handles the wrapped two-line rows df emits for long device
// names by joining continuation lines.
func parseDf(content string) []Disk {
	if content == "" {
		return nil
	}
	var disks []Disk
	var pending string

	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if i == 0 && strings.Contains(line, "Filesystem") {
			continue
		}
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 1 {
			pending = fields[0]
			continue
		}
		if pending != "" {
			fields = append([]string{pending}, fields...)
			pending = ""
		}
		if len(fields) < 6 {
			continue
		}
		pctStr := strings.TrimSuffix(fields[4], "%")
		pct, err := strconv.Atoi(pctStr)
		if err != nil {
			continue
		}
		fs := fields[0]
		if strings.HasPrefix(fs, "tmpfs") || strings.HasPrefix(fs, "devtmpfs") ||
			strings.HasPrefix(fs, "overlay") || fs == "none" {
			continue
		}
		disks = append(disks, Disk{
			Filesystem: fs,
			Size:       fields[1],
			Used:       fields[2],
			Avail:      fields[3],
			UsePercent: pct,
			Mount:      fields[5],
		})
	}
	return disks
}

// parseFailedUnits extracts unit names from "systemctl list-units --failed"
// output (either the raw capture or a supportconfig section of it).
func parseFailedUnits(content string) []string {
	var units []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "●"))
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		// UNIT LOAD ACTIVE SUB ...
		if fields[2] != "failed" && fields[3] != "failed" {
			continue
		}
		if strings.Contains(fields[0], ".") {
			units = append(units, fields[0])
		}
	}
	return units
}
