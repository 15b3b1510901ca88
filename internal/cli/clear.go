package cli

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lockblank/lockblank/internal/database"
)

var (
	clearYes       bool
	clearOlderThan time.Duration
)

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
	clearCmd.Flags().DurationVar(&clearOlderThan, "older-than", 0, "only remove sessions that started longer ago than this")
	rootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete journaled sessions and errors",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if !clearYes {
		fmt.Print("This will delete journaled lock sessions. Are you sure? (yes/no): ")
		var response string
		fmt.Scanln(&response)

		if response != "yes" && response != "y" {
			fmt.Println("Operation cancelled")
			return nil
		}
	}

	db, err := database.Connect(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return err
	}

	repo := database.NewRepository(db)

	if clearOlderThan > 0 {
		n, err := repo.DeleteOldSessions(time.Now().Add(-clearOlderThan))
		if err != nil {
			return errors.Wrap(err, "failed to prune journal")
		}
		fmt.Printf("Removed %d sessions\n", n)
		return nil
	}

	if err := repo.Clear(); err != nil {
		return errors.Wrap(err, "failed to clear journal")
	}

	fmt.Println("Journal cleared successfully")
	return nil
}
