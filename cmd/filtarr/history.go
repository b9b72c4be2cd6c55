package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vmunix/filtarr/internal/events"
)

var (
	historyLimit  int
	historyEntity string
	historyID     int64
	historySince  time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent reconcile decisions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if cfg.History.Path == "" {
			return errors.New("history is disabled; set history.path in the config")
		}

		log, err := events.OpenEventLog(cfg.History.Path)
		if err != nil {
			return err
		}
		defer func() { _ = log.Close() }()

		rows, err := queryHistory(cmd.Context(), log, historyQuery{
			Limit:  historyLimit,
			Entity: historyEntity,
			ID:     historyID,
			Since:  historySince,
		})
		if err != nil {
			return err
		}
		return printHistory(cmd.OutOrStdout(), rows)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of events")
	historyCmd.Flags().StringVar(&historyEntity, "entity", "", "Filter by entity type (movie or series); requires --id")
	historyCmd.Flags().Int64Var(&historyID, "id", 0, "Filter by Radarr movie or Sonarr series ID")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "Only events newer than this, e.g. 24h")

	rootCmd.AddCommand(historyCmd)
}

type historyQuery struct {
	Limit  int
	Entity string
	ID     int64
	Since  time.Duration
}

// queryHistory selects events newest first.
func queryHistory(ctx context.Context, log *events.EventLog, q historyQuery) ([]events.RawEvent, error) {
	var (
		rows []events.RawEvent
		err  error
	)
	switch {
	case q.Entity != "" || q.ID != 0:
		if q.Entity != events.EntityMovie && q.Entity != events.EntitySeries {
			return nil, fmt.Errorf("--entity must be %q or %q with --id", events.EntityMovie, events.EntitySeries)
		}
		rows, err = log.ForEntity(ctx, q.Entity, q.ID)
		reverse(rows)
	case q.Since > 0:
		rows, err = log.Since(ctx, time.Now().Add(-q.Since))
		reverse(rows)
	default:
		return log.Recent(ctx, q.Limit)
	}
	if err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func reverse(rows []events.RawEvent) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// historyRow extracts the columns shown for one event.
func historyRow(reg *events.Registry, r events.RawEvent) (source, release, detail string) {
	e, err := reg.Unmarshal(r)
	if err != nil {
		return "", "", err.Error()
	}
	switch ev := e.(type) {
	case *events.GrabAccepted:
		return ev.Source, ev.ReleaseTitle, ev.DownloadID
	case *events.ReleaseResumed:
		return ev.Source, ev.ReleaseTitle, ev.Reason
	case *events.ReleaseBlocklisted:
		return ev.Source, ev.ReleaseTitle, ev.File
	case *events.ReconcileFailed:
		return ev.Source, ev.ReleaseTitle, ev.Stage + ": " + ev.Error
	}
	return "", "", ""
}

func printHistory(w io.Writer, rows []events.RawEvent) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No events.")
		return nil
	}

	reg := events.DefaultRegistry()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tEVENT\tSOURCE\tID\tRELEASE\tDETAIL")
	for _, r := range rows {
		source, release, detail := historyRow(reg, r)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.OccurredAt.Local().Format("2006-01-02 15:04:05"),
			r.EventType, source, r.EntityID, release, detail)
	}
	return tw.Flush()
}
