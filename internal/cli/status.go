package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lockblank/lockblank/internal/config"
	"github.com/lockblank/lockblank/internal/daemon"
	"github.com/lockblank/lockblank/internal/database"
	"github.com/lockblank/lockblank/pkg/detector"
	"github.com/lockblank/lockblank/pkg/integrations/x11"
	"github.com/lockblank/lockblank/pkg/utils"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitor status, lock state and the last session",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
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
		fmt.Println("Status: Not running")
	} else {
		fmt.Printf("Status: Running (PID: %d)\n", pid)
	}
	fmt.Printf("Idle Timeout: %v\n", cfg.Monitor.IdleTimeout)
	fmt.Printf("Lock Backend: %s\n", cfg.Lock.Backend)
	fmt.Printf("Display Backend: %s\n", cfg.Display.Backend)

	printSessionState(cmd.Context(), cfg)
	printLatestSession(cfg)

	return nil
}

func printSessionState(parent context.Context, cfg *config.Config) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, 5*time.Second)
	defer cancel()

	fmt.Printf("\nSystem State:\n")
	fmt.Printf("  Display Server: %s\n", detector.DetectDisplayServer())

	lock, err := detector.NewLockOracle(cfg)
	if err == nil {
		if closer, ok := lock.(io.Closer); ok {
			defer closer.Close()
		}
		locked, err := lock.Locked(ctx)
		if err != nil {
			fmt.Printf("  Locked: unknown (%v)\n", err)
		} else {
			fmt.Printf("  Locked: %v\n", locked)
		}
	}

	if cfg.Display.Backend == config.DisplayBackendDPMS {
		d := x11.NewDPMSDisplay()
		defer d.Close()
		if level, err := d.PowerLevel(); err == nil {
			fmt.Printf("  Display Power: %s\n", level)
		}
	}
}

func printLatestSession(cfg *config.Config) {
	if !cfg.Journal.Enabled {
		return
	}

	db, err := database.Connect(cfg.Journal.Path)
	if err != nil {
		return
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return
	}

	latest, err := database.NewRepository(db).GetLatest()
	if err != nil || latest == nil {
		return
	}

	reason := latest.ExitReason
	if reason == "" {
		reason = "running"
	}

	fmt.Printf("\nLast Session:\n")
	fmt.Printf("  Started: %s\n", latest.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Length: %s\n", utils.FormatRoundedUnit(int64(latest.Duration(time.Now()).Seconds())))
	fmt.Printf("  Watchers: %d of %d devices\n", latest.Watchers, latest.Devices)
	fmt.Printf("  Blanks: %d\n", latest.Blanks)
	fmt.Printf("  Exit: %s\n", reason)
}
