package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/grabarr/internal/events"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show download lifecycle events",
	Long: `Show download lifecycle events.

Examples:
  grabarr history               # Events from the last 24 hours
  grabarr history --since 72h   # Events from the last 3 days`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Duration("since", 24*time.Hour, "How far back to look")
}

func runHistory(cmd *cobra.Command, args []string) error {
	since, _ := cmd.Flags().GetDuration("since")

	_, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	log := events.NewEventLog(db)
	entries, err := log.Since(time.Now().Add(-since))
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No events.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tEVENT\tENTITY")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s/%d\n",
			humanize.Time(e.OccurredAt),
			e.EventType,
			e.EntityType, e.EntityID,
		)
	}
	return w.Flush()
}
