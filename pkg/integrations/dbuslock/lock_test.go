package dbuslock

import (
	"context"
	"os"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/lockblank/lockblank/pkg/session"
)

var errNoBus = errors.New("no bus in test")

func TestScreenSaverOracleNoBus(t *testing.T) {
	o := NewScreenSaverOracle()
	o.connect = func() (*dbus.Conn, error) { return nil, errNoBus }

	locked, err := o.Locked(context.Background())
	if locked {
		t.Error("Locked() = true without a bus")
	}
	if !errors.Is(err, session.ErrQuery) {
		t.Errorf("Locked() error = %v, want ErrQuery", err)
	}
	if !errors.Is(err, errNoBus) {
		t.Errorf("Locked() error = %v, want cause preserved", err)
	}
}

func TestLogindOracleNoBus(t *testing.T) {
	o := NewLogindOracle()
	o.connect = func() (*dbus.Conn, error) { return nil, errNoBus }

	_, err := o.Locked(context.Background())
	if !errors.Is(err, session.ErrQuery) {
		t.Errorf("Locked() error = %v, want ErrQuery", err)
	}
	if err := o.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestScreenSaverOracleSessionBus(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no session bus available")
	}

	o := NewScreenSaverOracle()
	defer o.Close()

	locked, err := o.Locked(context.Background())
	if err != nil {
		t.Logf("Locked() error (no screensaver service is expected on CI): %v", err)
		return
	}
	t.Logf("Screen locked: %v", locked)
}

func TestLogindOracleSystemBus(t *testing.T) {
	if _, err := os.Stat("/run/systemd/seats"); err != nil {
		t.Skip("systemd-logind not running")
	}

	o := NewLogindOracle()
	defer o.Close()

	locked, err := o.Locked(context.Background())
	if err != nil {
		t.Logf("Locked() error (no logind session is expected in CI): %v", err)
		return
	}
	t.Logf("LockedHint: %v", locked)
}

func TestOracleNames(t *testing.T) {
	var _ session.LockOracle = (*ScreenSaverOracle)(nil)
	var _ session.LockOracle = (*LogindOracle)(nil)

	if got := NewScreenSaverOracle().Name(); got != "screensaver" {
		t.Errorf("Name() = %q, want screensaver", got)
	}
	if got := NewLogindOracle().Name(); got != "logind" {
		t.Errorf("Name() = %q, want logind", got)
	}
}
