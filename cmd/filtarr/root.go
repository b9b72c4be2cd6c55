package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vmunix/filtarr/internal/config"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "filtarr",
	Short: "Blocklist malicious torrent grabs for Radarr and Sonarr",
	Long: `filtarr - webhook companion for Radarr, Sonarr and qBittorrent

Radarr and Sonarr notify filtarr when they grab a torrent. filtarr waits,
lists the torrent's files in qBittorrent and either resumes the torrent or,
when a blacklisted extension is present, removes and blocklists the release
in the media manager.

Run 'filtarr serve' to start the webhook server.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: discovered)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("filtarr {{.Version}}\n")
}

// resolveConfigPath returns the explicit --config path, else the discovered
// one. An empty result means defaults plus environment.
func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	path, err := config.Discover()
	if errors.Is(err, config.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// loadConfig resolves and loads the configuration.
func loadConfig(explicit string) (*config.Config, string, error) {
	path, err := resolveConfigPath(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("config: %w", err)
	}
	return cfg, path, nil
}
