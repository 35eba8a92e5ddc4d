package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dailydose/internal/config"
	"dailydose/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "dailydose",
	Short: "Quota-aware reminder digests",
	Long:  "Dailydose surfaces a bounded daily digest of reminders, balancing soft time-decay preferences against hard periodic quotas. Single Go binary, SQLite-backed.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(seedCmd)
}

// openStore loads config and opens the database, the shared preamble of
// every command that touches state.
func openStore() (config.Config, *store.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return cfg, nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, nil
}
