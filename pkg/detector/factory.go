package detector

import (
	"os"

	"github.com/pkg/errors"

	"github.com/lockblank/lockblank/internal/config"
	"github.com/lockblank/lockblank/pkg/integrations/dbuslock"
	"github.com/lockblank/lockblank/pkg/integrations/x11"
	"github.com/lockblank/lockblank/pkg/session"
)

// NewEnumerator returns the device enumerator for cfg
func NewEnumerator(cfg *config.Config) session.Enumerator {
	return x11.NewXInputEnumerator(cfg.Devices.Exclude)
}

// NewLockOracle returns the lock-state oracle selected by cfg.Lock.Backend
func NewLockOracle(cfg *config.Config) (session.LockOracle, error) {
	switch cfg.Lock.Backend {
	case config.LockBackendPgrep:
		return x11.NewPgrepLockOracle(cfg.Lock.Lockers), nil
	case config.LockBackendScreenSaver:
		return dbuslock.NewScreenSaverOracle(), nil
	case config.LockBackendLogind:
		return dbuslock.NewLogindOracle(), nil
	default:
		return nil, errors.Errorf("unknown lock backend %q", cfg.Lock.Backend)
	}
}

// NewDisplay returns the display controller selected by cfg.Display.Backend
func NewDisplay(cfg *config.Config) (session.Display, error) {
	switch cfg.Display.Backend {
	case config.DisplayBackendXset:
		return x11.NewXsetDisplay(), nil
	case config.DisplayBackendDPMS:
		return x11.NewDPMSDisplay(), nil
	default:
		return nil, errors.Errorf("unknown display backend %q", cfg.Display.Backend)
	}
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
