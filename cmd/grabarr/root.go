package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/vmunix/grabarr/internal/config"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "grabarr",
	Short: "CLI for the grabarr download orchestrator",
	Long: `grabarr - CLI for the grabarr download orchestrator

Inspect and manage tracked downloads.

Run 'grabarrd' to start the daemon.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to config file")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("grabarr {{.Version}}\n")
}

// openDatabase loads the config and opens the daemon's database.
func openDatabase() (*config.Config, *sql.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	return cfg, db, nil
}
