package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Idle monitor timing
	Monitor MonitorConfig `toml:"monitor"`

	// Per-device watcher processes
	Watcher WatcherConfig `toml:"watcher"`

	// Device enumeration
	Devices DevicesConfig `toml:"devices"`

	// Lock-state oracle
	Lock LockConfig `toml:"lock"`

	// Display controller
	Display DisplayConfig `toml:"display"`

	// Session journal
	Journal JournalConfig `toml:"journal"`

	// Daemon configuration
	Daemon DaemonConfig `toml:"daemon"`
}

// MonitorConfig holds the idle monitor's timing constants
type MonitorConfig struct {
	IdleTimeout  Duration `toml:"idle_timeout"`  // Idle time while locked before the display is forced off
	StreamWait   Duration `toml:"stream_wait"`   // Upper bound on one readiness wait
	LoopSleep    Millis   `toml:"loop_sleep"`    // Pause between loop iterations, bare numbers in ms
	StartupGrace Duration `toml:"startup_grace"` // Sleep before enumerating devices
}

// WatcherConfig describes the command spawned once per device
type WatcherConfig struct {
	// Command and arguments; DevicePlaceholder is replaced with the device ID
	Command []string `toml:"command"`
}

// DevicesConfig filters enumerated devices
type DevicesConfig struct {
	Exclude []string `toml:"exclude"` // Device name substrings to skip
}

// LockConfig selects how lock state is queried
type LockConfig struct {
	Backend             string   `toml:"backend"`               // "pgrep", "screensaver" or "logind"
	Lockers             []string `toml:"lockers"`               // Process patterns for the pgrep backend
	AssumeLockedOnError bool     `toml:"assume_locked_on_error"` // Treat a failed query as locked
}

// DisplayConfig selects how the display is forced off
type DisplayConfig struct {
	Backend string `toml:"backend"` // "xset" or "dpms"
	Repeat  bool   `toml:"repeat"`  // Force off on every iteration past the timeout
}

// JournalConfig holds session journal configuration
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Path to SQLite database file
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `toml:"pid_file"` // Path to PID file for daemon management
	LogFile string `toml:"log_file"` // Log destination of the daemonized child
}

// DevicePlaceholder is substituted with the device ID in Watcher.Command
const DevicePlaceholder = "{device}"

const (
	LockBackendPgrep       = "pgrep"
	LockBackendScreenSaver = "screensaver"
	LockBackendLogind      = "logind"

	DisplayBackendXset = "xset"
	DisplayBackendDPMS = "dpms"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			IdleTimeout:  Duration(300 * time.Second), // 5 minutes in the lock screen
			StreamWait:   Duration(1 * time.Second),
			LoopSleep:    Millis(1 * time.Millisecond),
			StartupGrace: Duration(1 * time.Second),
		},
		Watcher: WatcherConfig{
			Command: []string{"xinput", "--test", DevicePlaceholder},
		},
		Devices: DevicesConfig{
			Exclude: []string{},
		},
		Lock: LockConfig{
			Backend:             LockBackendPgrep,
			Lockers:             []string{"kscreenlocker"},
			AssumeLockedOnError: true,
		},
		Display: DisplayConfig{
			Backend: DisplayBackendXset,
			Repeat:  true,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "", // Empty means use default ~/.config/lockblank/lockblank.db
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/lockblank-%d.pid", os.Getuid()),
			LogFile: fmt.Sprintf("/tmp/lockblank-%d.log", os.Getuid()),
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Monitor.StreamWait.Std() <= 0 {
		return fmt.Errorf("stream wait must be positive, got %v", c.Monitor.StreamWait)
	}

	if c.Monitor.LoopSleep.Std() < 0 {
		return fmt.Errorf("loop sleep cannot be negative")
	}

	if c.Monitor.StartupGrace.Std() < 0 {
		return fmt.Errorf("startup grace cannot be negative")
	}

	if len(c.Watcher.Command) == 0 {
		return fmt.Errorf("watcher command cannot be empty")
	}

	if !c.Watcher.HasPlaceholder() {
		return fmt.Errorf("watcher command must contain %s", DevicePlaceholder)
	}

	switch c.Lock.Backend {
	case LockBackendPgrep:
		if len(c.Lock.Lockers) == 0 {
			return fmt.Errorf("pgrep lock backend needs at least one locker pattern")
		}
	case LockBackendScreenSaver, LockBackendLogind:
	default:
		return fmt.Errorf("unknown lock backend %q", c.Lock.Backend)
	}

	switch c.Display.Backend {
	case DisplayBackendXset, DisplayBackendDPMS:
	default:
		return fmt.Errorf("unknown display backend %q", c.Display.Backend)
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetIdleTimeout sets the idle timeout. A negative value blanks the display
// on the first iteration.
func (c *Config) SetIdleTimeout(timeout time.Duration) {
	c.Monitor.IdleTimeout = Duration(timeout)
}

// SetStreamWait sets the readiness wait bound with validation
func (c *Config) SetStreamWait(wait time.Duration) error {
	if wait <= 0 {
		return fmt.Errorf("stream wait must be positive, got %v", wait)
	}
	c.Monitor.StreamWait = Duration(wait)
	return nil
}

// HasPlaceholder reports whether the watcher command references the device
func (w WatcherConfig) HasPlaceholder() bool {
	for _, arg := range w.Command {
		if strings.Contains(arg, DevicePlaceholder) {
			return true
		}
	}
	return false
}

// Argv returns the watcher command with the device ID substituted
func (w WatcherConfig) Argv(deviceID string) []string {
	argv := make([]string, len(w.Command))
	for i, arg := range w.Command {
		argv[i] = strings.ReplaceAll(arg, DevicePlaceholder, deviceID)
	}
	return argv
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Monitor:
    Idle Timeout: %v
    Stream Wait: %v
    Loop Sleep: %v
    Startup Grace: %v
  Watcher:
    Command: %s
  Devices:
    Exclude: %v
  Lock:
    Backend: %s
    Lockers: %v
    Assume Locked On Error: %v
  Display:
    Backend: %s
    Repeat: %v
  Journal:
    Enabled: %v
    Path: %s
  Daemon:
    PID File: %s
    Log File: %s`,
		c.Monitor.IdleTimeout,
		c.Monitor.StreamWait,
		c.Monitor.LoopSleep,
		c.Monitor.StartupGrace,
		strings.Join(c.Watcher.Command, " "),
		c.Devices.Exclude,
		c.Lock.Backend,
		c.Lock.Lockers,
		c.Lock.AssumeLockedOnError,
		c.Display.Backend,
		c.Display.Repeat,
		c.Journal.Enabled,
		c.Journal.Path,
		c.Daemon.PIDFile,
		c.Daemon.LogFile,
	)
}
