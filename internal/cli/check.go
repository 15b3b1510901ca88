package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockblank/lockblank/pkg/detector"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the desktop session and the tools lockblank needs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		failed := 0
		for _, c := range detector.Preflight(cfg) {
			mark := "ok"
			if !c.OK {
				mark = "!!"
				failed++
			}
			fmt.Printf("[%s] %-20s %s\n", mark, c.Name, c.Message)
		}

		if failed > 0 {
			fmt.Printf("\n%d checks failed; lockblank may not work in this session\n", failed)
		}
		return nil
	},
}
