package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override file and default values
func LoadFromEnv(cfg *Config) {
	// Monitor configuration
	if v := os.Getenv("LOCKBLANK_IDLE_TIMEOUT"); v != "" {
		if d, err := ParseDuration(v, time.Second); err == nil {
			cfg.Monitor.IdleTimeout = Duration(d)
		} else {
			log.Printf("Ignoring LOCKBLANK_IDLE_TIMEOUT: %v", err)
		}
	}

	if v := os.Getenv("LOCKBLANK_STREAM_WAIT"); v != "" {
		if d, err := ParseDuration(v, time.Second); err == nil && d > 0 {
			cfg.Monitor.StreamWait = Duration(d)
		}
	}

	if v := os.Getenv("LOCKBLANK_LOOP_SLEEP"); v != "" {
		if d, err := ParseDuration(v, time.Millisecond); err == nil && d >= 0 {
			cfg.Monitor.LoopSleep = Millis(d)
		}
	}

	if v := os.Getenv("LOCKBLANK_STARTUP_GRACE"); v != "" {
		if d, err := ParseDuration(v, time.Second); err == nil && d >= 0 {
			cfg.Monitor.StartupGrace = Duration(d)
		}
	}

	// Lock and display backends
	if backend := os.Getenv("LOCKBLANK_LOCK_BACKEND"); backend != "" {
		cfg.Lock.Backend = backend
	}

	if lockers := os.Getenv("LOCKBLANK_LOCKERS"); lockers != "" {
		cfg.Lock.Lockers = splitList(lockers)
	}

	if backend := os.Getenv("LOCKBLANK_DISPLAY_BACKEND"); backend != "" {
		cfg.Display.Backend = backend
	}

	if repeat := os.Getenv("LOCKBLANK_DISPLAY_REPEAT"); repeat != "" {
		if val, err := strconv.ParseBool(repeat); err == nil {
			cfg.Display.Repeat = val
		}
	}

	// Journal configuration
	if enabled := os.Getenv("LOCKBLANK_JOURNAL"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			cfg.Journal.Enabled = val
		}
	}

	if dbPath := os.Getenv("LOCKBLANK_DB_PATH"); dbPath != "" {
		cfg.Journal.Path = dbPath
	}

	// Daemon configuration
	if pidFile := os.Getenv("LOCKBLANK_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("LOCKBLANK_LOG_FILE"); logFile != "" {
		cfg.Daemon.LogFile = logFile
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// New creates a new Config from defaults, the config file and the environment
func New() (*Config, error) {
	cfg := Default()
	if err := LoadFile(cfg, FilePath()); err != nil {
		return cfg, err
	}
	LoadFromEnv(cfg)
	return cfg, nil
}
