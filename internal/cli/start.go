package cli

import (
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lockblank/lockblank/internal/config"
	"github.com/lockblank/lockblank/internal/daemon"
)

const daemonChildEnv = "LOCKBLANK_DAEMON_CHILD"

func init() {
	addMonitorFlags(startCmd)
	rootCmd.AddCommand(startCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the monitor in the background",
	Long: `Start the monitor detached from the terminal. Logs go to the configured
log file. The background monitor exits by itself when the session unlocks.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check monitor status")
	}
	// the lock itself is taken by the child in runMonitor
	if running {
		return errors.Wrapf(daemon.ErrAlreadyRunning, "PID %d", pid)
	}

	if !isDaemonChild() {
		return daemonize(cfg)
	}

	logFile, err := os.OpenFile(cfg.Daemon.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	log.Printf("Starting lockblank monitor...")
	log.Printf("Configuration:\n%s", cfg.String())

	if err := runMonitor(cmd.Context(), cfg); err != nil {
		log.Printf("Monitor error: %v", err)
		return err
	}

	log.Println("Monitor stopped successfully")
	return nil
}

// daemonize re-executes the current command in a new session with its
// standard streams detached
func daemonize(cfg *config.Config) error {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	env := append(os.Environ(), daemonChildEnv+"=1")

	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil}, // stdin, stdout, stderr to /dev/null
		Sys: &syscall.SysProcAttr{
			Setsid: true, // Create new session
		},
	}

	process, err := os.StartProcess(exe, os.Args, procAttr)
	if err != nil {
		return errors.Wrap(err, "failed to start monitor process")
	}

	fmt.Printf("Monitor started successfully (PID: %d)\n", process.Pid)
	fmt.Printf("Logs: %s\n", cfg.Daemon.LogFile)

	return process.Release()
}
