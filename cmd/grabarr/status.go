package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/grabarr/internal/download"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracked downloads",
	Long: `Show tracked downloads.

Examples:
  grabarr status                # Show active downloads
  grabarr status --all          # Include completed and failed downloads`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolP("all", "a", false, "Include completed and failed downloads")
}

func runStatus(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")

	_, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	store := download.NewStore(db)
	downloads, err := store.List(download.Filter{Active: !all})
	if err != nil {
		return err
	}

	if len(downloads) == 0 {
		fmt.Println("No downloads.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tITEM\tRELEASE\tSTATUS\tPROGRESS\tSIZE\tLEFT\tETA")
	for _, d := range downloads {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.1f%%\t%s\t%s\t%s\n",
			d.ID,
			d.Ref,
			truncate(d.Release.Title, 50),
			d.Status,
			d.Progress,
			humanize.Bytes(uint64(d.SizeBytes)),
			humanize.Bytes(uint64(d.RemainingBytes)),
			formatETA(d),
		)
	}
	return w.Flush()
}

func formatETA(d *download.Download) string {
	if d.Status != download.StatusDownloading || d.ETASeconds <= 0 {
		return "-"
	}
	return (time.Duration(d.ETASeconds) * time.Second).String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
