// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/modikodi/bridge/internal/config"
	"github.com/modikodi/bridge/internal/version"
	"gopkg.in/yaml.v3"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  mkbridge config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  mkbridge config dump [--file|-f config.yaml] [--format=yaml|json]")
}

func configFileFlag(fs *flag.FlagSet) *string {
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	return &file
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mkbridge config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := configFileFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := strings.TrimSpace(*file)
	if path == "" {
		path = resolveDefaultConfigPath()
	}
	if path == "" {
		fmt.Fprintln(stderr, "Error: --file is required (no config.yaml found in $BRIDGE_DATA)")
		return 2
	}

	if _, err := config.NewLoader(path, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", path, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s is valid\n", path)
	return 0
}

// runConfigDump prints the effective configuration (defaults + file + env).
// Without a file it dumps defaults + env.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mkbridge config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := configFileFlag(fs)
	format := fs.String("format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := strings.TrimSpace(*file)
	if path == "" {
		path = resolveDefaultConfigPath()
	}

	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	fc := fileConfigFromAppConfig(cfg)

	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fc); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fc); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", *format)
		return 2
	}
}

func ptr[T any](v T) *T { return &v }

// fileConfigFromAppConfig renders cfg in file form with secrets redacted.
func fileConfigFromAppConfig(cfg config.AppConfig) config.FileConfig {
	var fc config.FileConfig
	fc.ListenAddr = ptr(cfg.ListenAddr)
	fc.LogLevel = ptr(cfg.LogLevel)

	fc.Stores.ContentTTL = ptr(cfg.Stores.ContentTTL.String())
	fc.Stores.ResumeTTL = ptr(cfg.Stores.ResumeTTL.String())
	fc.Stores.MetadataTTL = ptr(cfg.Stores.MetadataTTL.String())
	fc.Stores.SweepInterval = ptr(cfg.Stores.SweepInterval.String())

	fc.Timeouts.Metadata = ptr(cfg.Timeouts.Metadata.String())
	fc.Timeouts.Upstream = ptr(cfg.Timeouts.Upstream.String())
	fc.Timeouts.Shutdown = ptr(cfg.Timeouts.Shutdown.String())

	fc.RateLimit.Enabled = ptr(cfg.RateLimit.Enabled)
	fc.RateLimit.Requests = ptr(cfg.RateLimit.Requests)
	fc.RateLimit.Window = ptr(cfg.RateLimit.Window.String())

	fc.CORS.Origins = cfg.CORS.Origins

	fc.TMDB.APIKey = ptr(redact(cfg.TMDB.APIKey))
	fc.TMDB.BaseURL = ptr(cfg.TMDB.BaseURL)
	fc.TMDB.RPS = ptr(cfg.TMDB.RPS)

	fc.Metadata.Backend = ptr(cfg.Metadata.Backend)
	fc.Redis.Addr = ptr(cfg.Redis.Addr)
	fc.Redis.Password = ptr(redact(cfg.Redis.Password))
	fc.Redis.DB = ptr(cfg.Redis.DB)

	fc.Metrics.Enabled = ptr(cfg.Metrics.Enabled)

	fc.Tracing.Enabled = ptr(cfg.Tracing.Enabled)
	fc.Tracing.Exporter = ptr(cfg.Tracing.Exporter)
	fc.Tracing.Endpoint = ptr(cfg.Tracing.Endpoint)
	fc.Tracing.SampleRate = ptr(cfg.Tracing.SampleRate)
	return fc
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}
