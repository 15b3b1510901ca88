package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lockblank/lockblank/internal/config"
)

var saveConfig bool

func init() {
	configCmd.Flags().BoolVar(&saveConfig, "save", false, "write the effective configuration to the config file")
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after the config file and the environment were
applied. With --save it is written back as TOML, which is a quick way to
start a config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return showConfig(cmd.OutOrStdout(), cfg, saveConfig)
	},
}

func showConfig(w io.Writer, cfg *config.Config, save bool) error {
	fmt.Fprintln(w, cfg.String())
	if !save {
		return nil
	}

	path := config.FilePath()
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(w, "Saved to %s\n", path)
	return nil
}
