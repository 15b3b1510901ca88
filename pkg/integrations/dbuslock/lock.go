// Package dbuslock answers lock-state queries over D-Bus, either from the
// desktop's screensaver service on the session bus or from systemd-logind's
// LockedHint on the system bus.
package dbuslock

import (
	"context"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/lockblank/lockblank/pkg/session"
)

// ScreenSaverService names a screensaver D-Bus endpoint with a GetActive method
type ScreenSaverService struct {
	Dest  string
	Path  dbus.ObjectPath
	Iface string
}

// Known screensaver endpoints, tried in order
var (
	FreedesktopScreenSaver = ScreenSaverService{
		Dest:  "org.freedesktop.ScreenSaver",
		Path:  "/org/freedesktop/ScreenSaver",
		Iface: "org.freedesktop.ScreenSaver",
	}
	GnomeScreenSaver = ScreenSaverService{
		Dest:  "org.gnome.ScreenSaver",
		Path:  "/org/gnome/ScreenSaver",
		Iface: "org.gnome.ScreenSaver",
	}
)

// ScreenSaverOracle calls GetActive on the session bus screensaver
type ScreenSaverOracle struct {
	mu       sync.Mutex
	conn     *dbus.Conn
	connect  func() (*dbus.Conn, error)
	services []ScreenSaverService
}

func NewScreenSaverOracle() *ScreenSaverOracle {
	return &ScreenSaverOracle{
		connect:  func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
		services: []ScreenSaverService{FreedesktopScreenSaver, GnomeScreenSaver},
	}
}

func (o *ScreenSaverOracle) Name() string {
	return "screensaver"
}

// Locked returns the first answer from the known screensaver services
func (o *ScreenSaverOracle) Locked(ctx context.Context) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	conn, err := o.bus()
	if err != nil {
		return false, session.Mark(err, session.ErrQuery)
	}

	var lastErr error
	for _, svc := range o.services {
		active, err := dbusCall[bool](ctx, conn, svc.Dest, svc.Path, svc.Iface+".GetActive")
		if err == nil {
			return active, nil
		}
		lastErr = errors.Wrapf(err, "%s.GetActive", svc.Iface)
	}

	o.reset()
	return false, session.Mark(lastErr, session.ErrQuery)
}

func (o *ScreenSaverOracle) bus() (*dbus.Conn, error) {
	if o.conn != nil && o.conn.Connected() {
		return o.conn, nil
	}
	conn, err := o.connect()
	if err != nil {
		return nil, errors.Wrap(err, "connect to session bus")
	}
	o.conn = conn
	return conn, nil
}

func (o *ScreenSaverOracle) reset() {
	if o.conn != nil {
		o.conn.Close()
		o.conn = nil
	}
}

func (o *ScreenSaverOracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset()
	return nil
}

// LogindOracle reads the LockedHint property of this process's logind
// session on the system bus.
type LogindOracle struct {
	mu      sync.Mutex
	conn    *dbus.Conn
	path    dbus.ObjectPath
	connect func() (*dbus.Conn, error)
}

const (
	logindDest    = "org.freedesktop.login1"
	logindManager = dbus.ObjectPath("/org/freedesktop/login1")
)

func NewLogindOracle() *LogindOracle {
	return &LogindOracle{
		connect: func() (*dbus.Conn, error) { return dbus.ConnectSystemBus() },
	}
}

func (o *LogindOracle) Name() string {
	return "logind"
}

func (o *LogindOracle) Locked(ctx context.Context) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	path, err := o.sessionPath(ctx)
	if err != nil {
		o.reset()
		return false, session.Mark(err, session.ErrQuery)
	}

	v, err := o.conn.Object(logindDest, path).GetProperty("org.freedesktop.login1.Session.LockedHint")
	if err != nil {
		o.reset()
		return false, session.Mark(errors.Wrap(err, "read LockedHint"), session.ErrQuery)
	}

	locked, ok := v.Value().(bool)
	if !ok {
		return false, session.Mark(errors.Errorf("LockedHint has type %s", v.Signature()), session.ErrQuery)
	}
	return locked, nil
}

// sessionPath resolves the logind session object, preferring
// XDG_SESSION_ID and falling back to the session of this PID.
func (o *LogindOracle) sessionPath(ctx context.Context) (dbus.ObjectPath, error) {
	if o.conn == nil || !o.conn.Connected() {
		conn, err := o.connect()
		if err != nil {
			return "", errors.Wrap(err, "connect to system bus")
		}
		o.conn = conn
		o.path = ""
	}
	if o.path != "" {
		return o.path, nil
	}

	var (
		path dbus.ObjectPath
		err  error
	)
	if id := os.Getenv("XDG_SESSION_ID"); id != "" {
		path, err = dbusCall[dbus.ObjectPath](ctx, o.conn, logindDest, logindManager,
			"org.freedesktop.login1.Manager.GetSession", id)
	} else {
		path, err = dbusCall[dbus.ObjectPath](ctx, o.conn, logindDest, logindManager,
			"org.freedesktop.login1.Manager.GetSessionByPID", uint32(os.Getpid()))
	}
	if err != nil {
		return "", errors.Wrap(err, "resolve logind session")
	}

	o.path = path
	return path, nil
}

func (o *LogindOracle) reset() {
	if o.conn != nil {
		o.conn.Close()
		o.conn = nil
	}
	o.path = ""
}

func (o *LogindOracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset()
	return nil
}

func dbusCall[T any](ctx context.Context, conn *dbus.Conn, dest string, path dbus.ObjectPath, method string, args ...any) (T, error) {
	var v T
	c := conn.Object(dest, path).CallWithContext(ctx, method, 0, args...)
	if err := c.Store(&v); err != nil {
		return v, err
	}
	return v, nil
}
