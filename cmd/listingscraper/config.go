package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"listingscraper/pkg/config"
	"listingscraper/pkg/ui"
)

const defaultConfigPath = ".listingscraper.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage listingscraper configuration files.

Configuration is loaded from, highest priority first:
  - Command line flags
  - Environment variables (` + config.EnvPrefix + `*, also read from .env)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create a configuration file holding every option at its default value.

Durations are written as Go durations (2s, 1m30s). Every option can also be
set with an environment variable prefixed with ` + config.EnvPrefix + `.

The file is written to ./` + defaultConfigPath + ` unless --config names another path.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Output and log directories can be created`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout(), quiet)
	p.PrintSuccess("Configuration file created: " + configPath)
	p.PrintInfo("Next", "listingscraper config validate --config "+configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	p := ui.NewPrinter(cmd.OutOrStdout(), false)
	p.PrintHighlight("Current configuration")
	fmt.Fprint(p.Writer(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		for _, candidate := range []string{defaultConfigPath, ".listingscraper.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return fmt.Errorf("no configuration file found, pass one with --config")
	}

	p := ui.NewPrinter(cmd.OutOrStdout(), quiet)
	p.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		return err
	}

	var problems []string
	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	if len(problems) > 0 {
		for _, problem := range problems {
			p.PrintError("Problem", problem)
		}
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	}

	if cfg.Download.RandomDelay && cfg.Download.MinDelay == cfg.Download.MaxDelay {
		p.PrintWarning("random_delay is on but min_delay equals max_delay")
	}

	p.PrintSuccess("Configuration is valid")
	p.PrintPanel("Summary", []ui.Field{
		{Label: "Output directory", Value: cfg.Output.BaseDirectory},
		{Label: "Details format", Value: cfg.Output.MetadataFormat},
		{Label: "Site", Value: cfg.Download.Site},
		{Label: "Delay", Value: describeDelay(cfg.Download)},
		{Label: "Log level", Value: cfg.Logging.Level},
	})
	return nil
}

func describeDelay(d config.DownloadConfig) string {
	if d.RandomDelay {
		return fmt.Sprintf("random %s to %s", d.MinDelay, d.MaxDelay)
	}
	return d.Delay.String()
}
