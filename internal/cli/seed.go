package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dailydose/internal/library"
	"dailydose/internal/period"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with a starter set of tags and doses",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	tags := []library.Tag{
		{Name: "exercise", Demand: 1.5},
		{Name: "nutrition", Demand: 1.2},
		{Name: "finance", Demand: 0.5},
	}
	doses := []library.Dose{
		{
			ID:      "complex_movement",
			Tag:     "exercise",
			Message: "Do a compound movement today (Squat, Deadlift, or Bench).",
			Frequency: &library.Frequency{
				Kind: library.AtLeast, Count: 1, Period: period.Day,
			},
		},
		{
			ID:      "walk_10k",
			Tag:     "exercise",
			Message: "Go for a long walk aiming for 10k steps.",
			Frequency: &library.Frequency{
				Kind: library.AtLeast, Count: 3, Period: period.Week,
			},
		},
		{
			ID:      "drink_water",
			Tag:     "nutrition",
			Message: "Drink 8 glasses of water.",
			Frequency: &library.Frequency{
				Kind: library.AtLeast, Count: 1, Period: period.Day,
			},
		},
		{
			ID:      "check_balance",
			Tag:     "finance",
			Message: "Review your monthly expenses.",
			Frequency: &library.Frequency{
				Kind: library.Exactly, Count: 1, Period: period.Month,
			},
		},
	}

	for _, t := range tags {
		if err := db.CreateTag(t); err != nil {
			return err
		}
	}
	for _, d := range doses {
		if err := db.CreateDose(d); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "seeded %d tags and %d doses into %s\n", len(tags), len(doses), db.Path)
	return nil
}
