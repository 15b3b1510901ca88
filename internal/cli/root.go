// Package cli implements the lockblank command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lockblank/lockblank/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "lockblank",
	Short: "lockblank - turn the display off while the screen is locked",
	Long: `lockblank watches every input device while the session is locked and
forces the display off once no input arrived for the idle timeout.

It exits as soon as the session unlocks, so it is meant to be started by
the screen locker or a lock hook.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/lockblank/config.toml)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig layers the config file, the environment and cmd's flags over
// the defaults, then validates the result
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if configPath != "" {
		// the child of "start" must read the same file as its parent
		os.Setenv(config.EnvConfigFile, configPath)
	}

	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// monitorFlags are shared by run and start
type monitorFlags struct {
	idleTimeout    time.Duration
	streamWait     time.Duration
	lockBackend    string
	displayBackend string
	exclude        []string
	edge           bool
	noJournal      bool
}

var flags monitorFlags

func addMonitorFlags(cmd *cobra.Command) {
	def := config.Default()
	f := cmd.Flags()
	f.DurationVar(&flags.idleTimeout, "idle-timeout", def.Monitor.IdleTimeout.Std(), "idle time while locked before the display is forced off")
	f.DurationVar(&flags.streamWait, "stream-wait", def.Monitor.StreamWait.Std(), "upper bound on one wait for input")
	f.StringVar(&flags.lockBackend, "lock-backend", def.Lock.Backend, "lock state source: pgrep, screensaver or logind")
	f.StringVar(&flags.displayBackend, "display-backend", def.Display.Backend, "display control: xset or dpms")
	f.StringSliceVar(&flags.exclude, "exclude", nil, "skip devices whose name contains this text (repeatable)")
	f.BoolVar(&flags.edge, "once", false, "force the display off once per idle period instead of every iteration")
	f.BoolVar(&flags.noJournal, "no-journal", false, "do not record the session in the journal")
}

// applyFlags copies the flags the user set on cmd into cfg
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Lookup("idle-timeout") == nil {
		return nil
	}

	if f.Changed("idle-timeout") {
		cfg.SetIdleTimeout(flags.idleTimeout)
	}
	if f.Changed("stream-wait") {
		if err := cfg.SetStreamWait(flags.streamWait); err != nil {
			return err
		}
	}
	if f.Changed("lock-backend") {
		cfg.Lock.Backend = flags.lockBackend
	}
	if f.Changed("display-backend") {
		cfg.Display.Backend = flags.displayBackend
	}
	if f.Changed("exclude") {
		cfg.Devices.Exclude = append(cfg.Devices.Exclude, flags.exclude...)
	}
	if f.Changed("once") {
		cfg.Display.Repeat = !flags.edge
	}
	if f.Changed("no-journal") {
		cfg.Journal.Enabled = !flags.noJournal
	}

	return nil
}
