// Package config handles loading and validating the config.toml configuration file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/samatild/sosparser/internal/health"
)

// Config is the top-level configuration. Every field has a usable
// default, so running without a config file is the normal case.
type Config struct {
	Output     OutputConfig     `toml:"output"`
	Rules      RulesConfig      `toml:"rules"`
	Serve      ServeConfig      `toml:"serve"`
	Thresholds ThresholdsConfig `toml:"thresholds"`
}

// OutputConfig configures where analysis artifacts land.
type OutputConfig struct {
	Dir       string `toml:"dir"`
	ExportZip bool   `toml:"export_zip"`
	KeepTree  bool   `toml:"keep_tree"` // keep the extracted bundle tree after analysis
}

// RulesConfig configures rule collection sources.
type RulesConfig struct {
	// Dirs are extra rule collection directories loaded on top of the
	// built-in collections.
	Dirs []string `toml:"dirs"`
	// DisableBuiltin drops the embedded collections entirely.
	DisableBuiltin bool `toml:"disable_builtin"`
}

// ServeConfig configures the local report server.
type ServeConfig struct {
	Enabled     bool `toml:"enabled"`
	Port        int  `toml:"port"`
	OpenBrowser bool `toml:"open_browser"`
}

// ThresholdsConfig overrides the structured health check limits.
// Zero values keep the defaults.
type ThresholdsConfig struct {
	DiskCriticalPct     int `toml:"disk_critical_pct"`
	DiskWarningPct      int `toml:"disk_warning_pct"`
	MemAvailCriticalPct int `toml:"mem_avail_critical_pct"`
	MemAvailWarningPct  int `toml:"mem_avail_warning_pct"`
	SwapCriticalPct     int `toml:"swap_critical_pct"`
	SwapWarningPct      int `toml:"swap_warning_pct"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Output: OutputConfig{Dir: "output"},
		Serve:  ServeConfig{Enabled: true, OpenBrowser: true},
	}
}

// Load reads a config.toml file and returns a validated Config. A
// missing file is only an error when the path was explicitly requested.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			if explicit {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			cfg.applyEnv()
			return cfg, cfg.validate()
		}
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies environment variable overrides. Useful in CI where a
// config file is awkward to ship.
func (c *Config) applyEnv() {
	if dir := os.Getenv("SOSPARSER_OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
	if port := os.Getenv("SOSPARSER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Serve.Port = p
		}
	}
	if v := os.Getenv("SOSPARSER_NO_SERVE"); v == "1" || v == "true" {
		c.Serve.Enabled = false
		c.Serve.OpenBrowser = false
	}
}

func (c *Config) validate() error {
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port out of range: %d", c.Serve.Port)
	}
	t := c.Thresholds
	for name, pct := range map[string]int{
		"disk_critical_pct":      t.DiskCriticalPct,
		"disk_warning_pct":       t.DiskWarningPct,
		"mem_avail_critical_pct": t.MemAvailCriticalPct,
		"mem_avail_warning_pct":  t.MemAvailWarningPct,
		"swap_critical_pct":      t.SwapCriticalPct,
		"swap_warning_pct":       t.SwapWarningPct,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("thresholds.%s out of range: %d", name, pct)
		}
	}
	return nil
}

// HealthThresholds merges the configured overrides onto the defaults.
func (c *Config) HealthThresholds() health.Thresholds {
	th := health.DefaultThresholds()
	t := c.Thresholds
	if t.DiskCriticalPct != 0 {
		th.DiskCritical = t.DiskCriticalPct
	}
	if t.DiskWarningPct != 0 {
		th.DiskWarning = t.DiskWarningPct
	}
	if t.MemAvailCriticalPct != 0 {
		th.MemCriticalAvailable = t.MemAvailCriticalPct
	}
	if t.MemAvailWarningPct != 0 {
		th.MemWarningAvailable = t.MemAvailWarningPct
	}
	if t.SwapCriticalPct != 0 {
		th.SwapCritical = t.SwapCriticalPct
	}
	if t.SwapWarningPct != 0 {
		th.SwapWarning = t.SwapWarningPct
	}
	return th
}
