package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dailydose/internal/engine"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Run one digest cycle now and print the selection",
	RunE:  runDigest,
}

func runDigest(cmd *cobra.Command, args []string) error {
	cfg, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	eng := engine.New(db, cfg.Selection)
	digest, err := eng.RunDigest(cmd.Context(), time.Now())
	if err != nil {
		return fmt.Errorf("digest cycle: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(digest)
}
