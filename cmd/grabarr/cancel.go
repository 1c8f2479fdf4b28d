package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vmunix/grabarr/internal/download"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a download",
	Long:  "Removes the download from its client (best effort) and deletes the local record. Use --delete to also remove downloaded files.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
	cancelCmd.Flags().BoolP("delete", "d", false, "Also delete downloaded files")
}

func runCancel(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ID: %s", args[0])
	}
	deleteFiles, _ := cmd.Flags().GetBool("delete")

	cfg, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	store := download.NewStore(db)
	d, err := store.Get(id)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clients, err := download.BuildClients(cfg.Clients, logger)
	if err != nil {
		return err
	}

	// Same best-effort remote-delete-then-local-delete path the daemon uses.
	manager := download.NewManager(download.ManagerDeps{
		Store:   store,
		Clients: clients,
		Logger:  logger,
	})
	if err := manager.Cancel(context.Background(), id, deleteFiles); err != nil {
		return err
	}

	fmt.Printf("Cancelled download %d (%s)\n", id, d.Release.Title)
	return nil
}
