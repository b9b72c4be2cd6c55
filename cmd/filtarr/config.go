package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vmunix/filtarr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, and environment variable substitution without starting the server.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}
		return runConfigTest(cmd.OutOrStdout(), path)
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultPath()
		if len(args) > 0 {
			path = args[0]
		}
		return runConfigInit(cmd.OutOrStdout(), path, configInitForce)
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing file")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd, configInitCmd)
}

func runConfigTest(w io.Writer, explicit string) error {
	path, err := resolveConfigPath(explicit)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(w, "No config file found, validating defaults and environment...")
	} else {
		fmt.Fprintf(w, "Validating %s...\n", path)
	}
	fmt.Fprintln(w)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(w, configErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(w, cfg)
	fmt.Fprintln(w, "\nConfiguration valid!")
	return nil
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		for _, err := range e.Errors {
			fmt.Fprintf(w, "  - %s\n", err)
		}
		fmt.Fprintln(w)
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Server:      %s (log: %s, %s)\n", cfg.Server.Addr(), cfg.Server.LogLevel, cfg.Server.LogFormat)
	fmt.Fprintf(w, "  qBittorrent: %s (client name %q)\n", cfg.QBittorrent.URL, cfg.QBittorrent.ClientName)

	var managers []string
	if cfg.Radarr.Enabled() {
		managers = append(managers, "radarr ("+cfg.Radarr.URL+")")
	}
	if cfg.Sonarr.Enabled() {
		managers = append(managers, "sonarr ("+cfg.Sonarr.URL+")")
	}
	fmt.Fprintf(w, "  Managers:    %s\n", strings.Join(managers, ", "))
	fmt.Fprintf(w, "  Blacklist:   %s\n", strings.Join(cfg.Filter.Extensions, " "))
	fmt.Fprintf(w, "  Delay:       %s\n", cfg.Filter.Delay)

	if cfg.History.Path != "" {
		fmt.Fprintf(w, "  History:     %s (retention %s)\n", cfg.History.Path, cfg.History.Retention)
	}
	if cfg.Webhook.APIKey != "" {
		fmt.Fprintln(w, "  Webhooks:    api key required")
	}
}

func runConfigInit(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(w, "Wrote %s\n", path)
	fmt.Fprintln(w, "Set QBITTORRENT_PASSWORD and RADARR_API_KEY, then run 'filtarr config test'.")
	return nil
}
