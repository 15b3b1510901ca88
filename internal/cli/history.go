package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lockblank/lockblank/internal/database"
	"github.com/lockblank/lockblank/internal/reporter"
)

var historyJSON bool

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:       "history [day|week|month]",
	Short:     "Summarise journaled lock sessions",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"day", "week", "month"},
	RunE:      runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	periodType := "day"
	if len(args) > 0 {
		periodType = args[0]
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return err
	}

	rep := reporter.New(database.NewRepository(db))

	report, err := rep.GenerateReport(periodType)
	if err != nil {
		return errors.Wrap(err, "failed to generate report")
	}

	if historyJSON {
		out, err := rep.FormatReportJSON(report)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	fmt.Println(rep.FormatReportText(report))
	return nil
}
