package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vmunix/filtarr/internal/blacklist"
	"github.com/vmunix/filtarr/internal/download"
)

var checkCmd = &cobra.Command{
	Use:   "check <hash>",
	Short: "Show whether a torrent would be blocklisted",
	Long: `Lists a torrent's files in qBittorrent and reports the verdict the
webhook workflow would reach. Nothing is resumed or removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		logger, closer := newLogger(cfg.Server, cmd.ErrOrStderr())
		defer func() { _ = closer.Close() }()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.QBittorrent.Timeout+5*time.Second)
		defer cancel()

		client := newTorrentClient(cfg, logger)
		_, err = runCheck(ctx, cmd.OutOrStdout(), client, blacklist.New(cfg.Filter.Extensions), args[0])
		return err
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// runCheck prints the torrent's files and verdict. It reports whether any
// file is blacklisted.
func runCheck(ctx context.Context, w io.Writer, client download.TorrentClient, bl *blacklist.Blacklist, hash string) (bool, error) {
	files, err := client.Files(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("list files for %s: %w", hash, err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSIZE\tPROGRESS\tBLACKLISTED")
	for _, f := range files {
		mark := ""
		if bl.Contains(blacklist.Extension(f.Name)) {
			mark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%s\n", f.Name, formatSize(f.Size), f.Progress*100, mark)
	}
	if err := tw.Flush(); err != nil {
		return false, err
	}

	offender, bad := bl.Match(files)
	fmt.Fprintln(w)
	if bad {
		fmt.Fprintf(w, "Verdict: blocklist (%s)\n", offender.Name)
	} else {
		fmt.Fprintf(w, "Verdict: resume (%d files clean)\n", len(files))
	}
	return bad, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
