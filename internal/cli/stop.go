package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lockblank/lockblank/internal/daemon"
)

func init() {
	rootCmd.AddCommand(stopCmd)
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running monitor",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check monitor status")
	}

	if !running {
		fmt.Println("Monitor is not running")
		return nil
	}

	fmt.Printf("Stopping monitor (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		return errors.Wrap(err, "failed to stop monitor")
	}

	fmt.Println("Monitor stopped successfully")
	return nil
}
