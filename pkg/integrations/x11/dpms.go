package x11

import (
	"context"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/dpms"
	"github.com/pkg/errors"

	"github.com/lockblank/lockblank/pkg/session"
)

// DPMSDisplay forces the display off through the X DPMS extension. The X
// connection is opened on first use and reopened after a failure.
type DPMSDisplay struct {
	mu   sync.Mutex
	conn *xgb.Conn
	dial func() (*xgb.Conn, error)
}

func NewDPMSDisplay() *DPMSDisplay {
	return &DPMSDisplay{dial: xgb.NewConn}
}

func (d *DPMSDisplay) Name() string {
	return "dpms"
}

func (d *DPMSDisplay) connect() (*xgb.Conn, error) {
	if d.conn != nil {
		return d.conn, nil
	}

	conn, err := d.dial()
	if err != nil {
		return nil, errors.Wrap(err, "connect to X server")
	}

	if err := dpms.Init(conn); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "DPMS extension not available")
	}

	capable, err := dpms.Capable(conn).Reply()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "query DPMS capability")
	}
	if capable == nil || !capable.Capable {
		conn.Close()
		return nil, errors.New("display does not support DPMS")
	}

	d.conn = conn
	return conn, nil
}

// ForceOff enables DPMS if needed and forces the off power level. Forcing
// a display that is already off is accepted by the server.
func (d *DPMSDisplay) ForceOff(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := d.connect()
	if err != nil {
		return session.Mark(err, session.ErrQuery)
	}

	if err := d.forceOff(conn); err != nil {
		d.conn.Close()
		d.conn = nil
		return session.Mark(err, session.ErrQuery)
	}
	return nil
}

func (d *DPMSDisplay) forceOff(conn *xgb.Conn) error {
	info, err := dpms.Info(conn).Reply()
	if err != nil {
		return errors.Wrap(err, "query DPMS state")
	}

	if info == nil || !info.State {
		if err := dpms.EnableChecked(conn).Check(); err != nil {
			return errors.Wrap(err, "enable DPMS")
		}
	}

	if err := dpms.ForceLevelChecked(conn, dpms.DPMSModeOff).Check(); err != nil {
		return errors.Wrap(err, "force DPMS off")
	}
	return nil
}

// PowerLevel reports the current DPMS power level, for diagnostics
func (d *DPMSDisplay) PowerLevel() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn, err := d.connect()
	if err != nil {
		return "", err
	}

	info, err := dpms.Info(conn).Reply()
	if err != nil {
		return "", errors.Wrap(err, "query DPMS state")
	}
	return powerLevelName(info)
}

func powerLevelName(info *dpms.InfoReply) (string, error) {
	if info == nil {
		return "", errors.New("empty DPMS info reply")
	}
	if !info.State {
		return "disabled", nil
	}

	switch info.PowerLevel {
	case dpms.DPMSModeOn:
		return "on", nil
	case dpms.DPMSModeStandby:
		return "standby", nil
	case dpms.DPMSModeSuspend:
		return "suspend", nil
	case dpms.DPMSModeOff:
		return "off", nil
	default:
		return "unknown", nil
	}
}

func (d *DPMSDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	return nil
}
