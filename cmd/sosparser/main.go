// Package main is the CLI entry point for sosparser.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samatild/sosparser/internal/config"
	"github.com/samatild/sosparser/internal/health"
	"github.com/samatild/sosparser/internal/orchestrator"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sosparser <bundle>",
		Short: "Linux diagnostic bundle analyzer for sosreport and supportconfig",
		Long: `sosparser extracts a sosreport or supportconfig bundle, scans its logs
against declarative known-issue rules, runs structured health checks, and
produces a single report.html with the findings.`,
		Args:          cobra.ExactArgs(1),
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringP("config", "c", "config.toml", "path to config file")
	rootCmd.Flags().StringP("format", "f", "", "bundle format: sosreport or supportconfig (default: auto-detect)")
	rootCmd.Flags().StringSliceP("rules-dir", "r", nil, "extra rule collection directories (repeatable)")
	rootCmd.Flags().StringP("output", "o", "", "output directory (default from config)")
	rootCmd.Flags().Bool("export-zip", false, "package the report directory as a zip")
	rootCmd.Flags().Bool("no-serve", false, "write the report without serving it (for CI/scripted use)")
	rootCmd.Flags().Int("port", 0, "port for the report server (0 = OS-assigned)")
	rootCmd.Flags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.AddCommand(newUpdateCmd(version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	format, _ := cmd.Flags().GetString("format")
	rulesDirs, _ := cmd.Flags().GetStringSlice("rules-dir")
	output, _ := cmd.Flags().GetString("output")
	exportZip, _ := cmd.Flags().GetBool("export-zip")
	noServe, _ := cmd.Flags().GetBool("no-serve")
	port, _ := cmd.Flags().GetInt("port")
	verbose, _ := cmd.Flags().GetBool("verbose")

	switch format {
	case "", "auto", "sosreport", "supportconfig":
	default:
		return fmt.Errorf("unknown format %q (expected sosreport or supportconfig)", format)
	}

	cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// CLI flags override the config file.
	if output != "" {
		cfg.Output.Dir = output
	}
	if exportZip {
		cfg.Output.ExportZip = true
	}
	if noServe {
		cfg.Serve.Enabled = false
		cfg.Serve.OpenBrowser = false
	}
	if cmd.Flags().Changed("port") {
		cfg.Serve.Port = port
	}
	cfg.Rules.Dirs = append(cfg.Rules.Dirs, rulesDirs...)

	orch := orchestrator.New(cfg, orchestrator.Options{
		BundlePath: args[0],
		Format:     format,
		Verbose:    verbose,
		Version:    fmt.Sprintf("%s (%s)", version, commit),
	})

	res, err := orch.Run(cmd.Context())
	if err != nil {
		return err
	}
	if res.Health.OverallStatus == health.StatusCritical {
		os.Exit(2)
	}
	return nil
}
