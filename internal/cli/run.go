package cli

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lockblank/lockblank/internal/config"
	"github.com/lockblank/lockblank/internal/daemon"
	"github.com/lockblank/lockblank/internal/database"
	"github.com/lockblank/lockblank/internal/models"
	"github.com/lockblank/lockblank/internal/monitor"
	"github.com/lockblank/lockblank/internal/watcher"
	"github.com/lockblank/lockblank/pkg/detector"
	"github.com/lockblank/lockblank/pkg/session"
)

func init() {
	addMonitorFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor input in the foreground until the session unlocks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runMonitor(cmd.Context(), cfg)
	},
}

// runMonitor performs one monitor session: startup grace, enumeration,
// watcher spawn and the idle loop
func runMonitor(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	if err := dm.Acquire(); err != nil {
		return err
	}
	defer dm.RemovePID()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, c := range detector.Preflight(cfg) {
		if !c.OK {
			log.Printf("Preflight warning: %s: %s", c.Name, c.Message)
		}
	}

	lock, err := detector.NewLockOracle(cfg)
	if err != nil {
		return err
	}
	if closer, ok := lock.(io.Closer); ok {
		defer closer.Close()
	}

	display, err := detector.NewDisplay(cfg)
	if err != nil {
		return err
	}
	defer display.Close()

	journal, closeJournal := openJournal(cfg, lock, display)
	defer closeJournal()

	log.Printf("Waiting %v for input devices to settle", cfg.Monitor.StartupGrace)
	if err := sleepContext(ctx, cfg.Monitor.StartupGrace.Std()); err != nil {
		finishJournal(journal, models.ExitCanceled, &monitor.Result{})
		return nil
	}

	devices, err := detector.NewEnumerator(cfg).Devices(ctx)
	if err != nil {
		if journal != nil {
			journal.RecordError("enumeration", err)
		}
		finishJournal(journal, models.ExitFailed, &monitor.Result{})
		return err
	}
	log.Printf("Found %d input devices", len(devices))

	pool := watcher.NewPool(watcher.ArgvCommand(cfg.Watcher.Argv))
	if journal != nil {
		pool.OnError(func(err error) { journal.RecordError("watcher", err) })
	}

	for _, err := range pool.Spawn(ctx, devices) {
		log.Printf("Skipping device: %v", err)
		if journal != nil {
			journal.RecordError("spawn", err)
		}
	}

	if journal != nil {
		journal.Session().Devices = len(devices)
		journal.Session().Watchers = len(pool.Handles())
	}

	m := monitor.New(cfg.Monitor, monitor.Policy{
		Repeat:              cfg.Display.Repeat,
		AssumeLockedOnError: cfg.Lock.AssumeLockedOnError,
	}, lock, display)
	if journal != nil {
		m.SetRecorder(journal)
	}

	res, err := m.Run(ctx, pool)
	if err != nil {
		finishJournal(journal, models.ExitFailed, &monitor.Result{})
		return err
	}

	log.Printf("Monitor finished: %s after %v (%d blanks, %d input events)",
		res.Reason, res.Ended.Sub(res.Started).Round(time.Second), res.Blanks, res.Activity)
	finishJournal(journal, res.Reason, res)

	return nil
}

// openJournal starts a journal entry. The monitor runs without one when the
// journal is disabled or the database cannot be opened.
func openJournal(cfg *config.Config, lock session.LockOracle, display session.Display) (*database.Journal, func()) {
	noop := func() {}
	if !cfg.Journal.Enabled {
		return nil, noop
	}

	db, err := database.Connect(cfg.Journal.Path)
	if err != nil {
		log.Printf("Journal unavailable: %v", err)
		return nil, noop
	}

	if err := db.Initialize(); err != nil {
		log.Printf("Journal unavailable: %v", err)
		db.Close()
		return nil, noop
	}

	journal, err := database.NewRepository(db).Begin(&models.MonitorSession{
		LockBackend:    lock.Name(),
		DisplayBackend: display.Name(),
	})
	if err != nil {
		log.Printf("Journal unavailable: %v", err)
		db.Close()
		return nil, noop
	}

	return journal, func() { db.Close() }
}

func finishJournal(journal *database.Journal, reason string, res *monitor.Result) {
	if journal == nil {
		return
	}
	if err := journal.Finish(reason, res.Blanks, res.Activity, res.LongestIdle); err != nil {
		log.Printf("Failed to finish journal entry: %v", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "interrupted")
	case <-t.C:
		return nil
	}
}

// isDaemonChild reports whether this process was re-executed by start
func isDaemonChild() bool {
	return os.Getenv(daemonChildEnv) == "1"
}
