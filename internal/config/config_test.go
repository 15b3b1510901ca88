package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero stream wait", func(c *Config) { c.Monitor.StreamWait = 0 }, "stream wait"},
		{"negative loop sleep", func(c *Config) { c.Monitor.LoopSleep = Millis(-time.Millisecond) }, "loop sleep"},
		{"empty watcher", func(c *Config) { c.Watcher.Command = nil }, "watcher command cannot be empty"},
		{"missing placeholder", func(c *Config) { c.Watcher.Command = []string{"xinput", "--test"} }, "must contain"},
		{"unknown lock backend", func(c *Config) { c.Lock.Backend = "magic" }, "unknown lock backend"},
		{"pgrep without lockers", func(c *Config) { c.Lock.Lockers = nil }, "locker pattern"},
		{"logind without lockers", func(c *Config) { c.Lock.Backend = LockBackendLogind; c.Lock.Lockers = nil }, ""},
		{"unknown display backend", func(c *Config) { c.Display.Backend = "hdmi-cec" }, "unknown display backend"},
		{"empty pid file", func(c *Config) { c.Daemon.PIDFile = "" }, "PID file"},
		{"zero idle timeout allowed", func(c *Config) { c.SetIdleTimeout(0) }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		unit    time.Duration
		want    time.Duration
		wantErr bool
	}{
		{"300", time.Second, 300 * time.Second, false},
		{"1.5", time.Second, 1500 * time.Millisecond, false},
		{"5m", time.Second, 5 * time.Minute, false},
		{"1", time.Millisecond, time.Millisecond, false},
		{"250us", time.Millisecond, 250 * time.Microsecond, false},
		{"", time.Second, 0, true},
		{"soon", time.Second, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input, tt.unit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOCKBLANK_IDLE_TIMEOUT", "2")
	t.Setenv("LOCKBLANK_STREAM_WAIT", "500ms")
	t.Setenv("LOCKBLANK_LOOP_SLEEP", "5")
	t.Setenv("LOCKBLANK_LOCK_BACKEND", "logind")
	t.Setenv("LOCKBLANK_LOCKERS", "i3lock, swaylock")
	t.Setenv("LOCKBLANK_DISPLAY_REPEAT", "false")
	t.Setenv("LOCKBLANK_JOURNAL", "off")
	t.Setenv("LOCKBLANK_PID_FILE", "/tmp/custom.pid")

	cfg := Default()
	LoadFromEnv(cfg)

	if cfg.Monitor.IdleTimeout.Std() != 2*time.Second {
		t.Errorf("IdleTimeout = %v, want 2s", cfg.Monitor.IdleTimeout)
	}
	if cfg.Monitor.StreamWait.Std() != 500*time.Millisecond {
		t.Errorf("StreamWait = %v, want 500ms", cfg.Monitor.StreamWait)
	}
	if cfg.Monitor.LoopSleep.Std() != 5*time.Millisecond {
		t.Errorf("LoopSleep = %v, want 5ms", cfg.Monitor.LoopSleep)
	}
	if cfg.Lock.Backend != LockBackendLogind {
		t.Errorf("Lock.Backend = %q, want logind", cfg.Lock.Backend)
	}
	if len(cfg.Lock.Lockers) != 2 || cfg.Lock.Lockers[1] != "swaylock" {
		t.Errorf("Lock.Lockers = %v, want [i3lock swaylock]", cfg.Lock.Lockers)
	}
	if cfg.Display.Repeat {
		t.Error("Display.Repeat = true, want false")
	}
	// "off" is not a valid bool for strconv, so the default is kept
	if !cfg.Journal.Enabled {
		t.Error("Journal.Enabled = false, want true")
	}
	if cfg.Daemon.PIDFile != "/tmp/custom.pid" {
		t.Errorf("Daemon.PIDFile = %q, want /tmp/custom.pid", cfg.Daemon.PIDFile)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[monitor]
idle_timeout = "2m"
stream_wait = 2
loop_sleep = "10ms"

[watcher]
command = ["xinput", "test", "{device}"]

[devices]
exclude = ["XTEST"]

[lock]
backend = "screensaver"

[display]
backend = "dpms"
repeat = false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Monitor.IdleTimeout.Std() != 2*time.Minute {
		t.Errorf("IdleTimeout = %v, want 2m", cfg.Monitor.IdleTimeout)
	}
	if cfg.Monitor.StreamWait.Std() != 2*time.Second {
		t.Errorf("StreamWait = %v, want 2s", cfg.Monitor.StreamWait)
	}
	if cfg.Monitor.LoopSleep.Std() != 10*time.Millisecond {
		t.Errorf("LoopSleep = %v, want 10ms", cfg.Monitor.LoopSleep)
	}
	if cfg.Monitor.StartupGrace.Std() != time.Second {
		t.Errorf("StartupGrace = %v, want default 1s", cfg.Monitor.StartupGrace)
	}
	if got := cfg.Watcher.Argv("4"); got[1] != "test" || got[2] != "4" {
		t.Errorf("Watcher.Argv = %v", got)
	}
	if cfg.Lock.Backend != LockBackendScreenSaver {
		t.Errorf("Lock.Backend = %q, want screensaver", cfg.Lock.Backend)
	}
	if cfg.Display.Backend != DisplayBackendDPMS || cfg.Display.Repeat {
		t.Errorf("Display = %+v, want dpms without repeat", cfg.Display)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFileBareNumberUnits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[monitor]
idle_timeout = 5
loop_sleep = 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	// loop_sleep counts milliseconds, like LOCKBLANK_LOOP_SLEEP
	if cfg.Monitor.LoopSleep.Std() != 5*time.Millisecond {
		t.Errorf("LoopSleep = %v, want 5ms", cfg.Monitor.LoopSleep)
	}
	if cfg.Monitor.IdleTimeout.Std() != 5*time.Second {
		t.Errorf("IdleTimeout = %v, want 5s", cfg.Monitor.IdleTimeout)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := LoadFile(cfg, filepath.Join(t.TempDir(), "absent.toml")); err != nil {
		t.Errorf("LoadFile() on missing file error = %v, want nil", err)
	}
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[monitor]\nidle_timout = 5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := LoadFile(Default(), path)
	if err == nil || !strings.Contains(err.Error(), "unknown keys") {
		t.Errorf("LoadFile() error = %v, want unknown keys", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.SetIdleTimeout(90 * time.Second)
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := Default()
	if err := LoadFile(loaded, path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if loaded.Monitor.IdleTimeout != cfg.Monitor.IdleTimeout {
		t.Errorf("IdleTimeout = %v, want %v", loaded.Monitor.IdleTimeout, cfg.Monitor.IdleTimeout)
	}
}
