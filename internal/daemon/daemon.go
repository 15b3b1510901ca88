package daemon

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is returned by Acquire when another monitor holds the PID file
var ErrAlreadyRunning = errors.New("monitor is already running")

// Daemon guards a PID file with an exclusive flock. The lock, not the PID
// written into the file, decides whether a monitor is running.
type Daemon struct {
	pidFile string
	lock    *os.File
}

func New(pidFile string) *Daemon {
	return &Daemon{pidFile: pidFile}
}

func (d *Daemon) PIDFile() string {
	return d.pidFile
}

// Acquire takes the lock on the PID file and records the current PID in it.
// It fails with ErrAlreadyRunning while another process holds the lock. A
// file left behind by a crashed monitor carries no lock and is reused.
func (d *Daemon) Acquire() error {
	if d.lock != nil {
		return nil
	}

	for {
		f, err := os.OpenFile(d.pidFile, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return errors.Wrap(err, "failed to open PID file")
		}

		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			pid, _ := readPID(f)
			f.Close()
			if err == unix.EWOULDBLOCK {
				return errors.Wrapf(ErrAlreadyRunning, "PID %d", pid)
			}
			return errors.Wrap(err, "failed to lock PID file")
		}

		// the previous owner may have unlinked the file we opened
		if !d.sameFile(f) {
			f.Close()
			continue
		}

		if err := writePID(f, os.Getpid()); err != nil {
			f.Close()
			return err
		}

		d.lock = f
		return nil
	}
}

func (d *Daemon) sameFile(f *os.File) bool {
	opened, err := f.Stat()
	if err != nil {
		return false
	}
	current, err := os.Stat(d.pidFile)
	if err != nil {
		return false
	}
	return os.SameFile(opened, current)
}

func writePID(f *os.File, pid int) error {
	if err := f.Truncate(0); err != nil {
		return errors.Wrap(err, "failed to write PID file")
	}
	if _, err := f.WriteAt(fmt.Appendf([]byte{}, "%d", pid), 0); err != nil {
		return errors.Wrap(err, "failed to write PID file")
	}
	return nil
}

// ReadPID returns the PID recorded in the file, or 0 when there is none
func (d *Daemon) ReadPID() (int, error) {
	f, err := os.Open(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to read PID file")
	}
	defer f.Close()

	return readPID(f)
}

func readPID(f *os.File) (int, error) {
	data, err := io.ReadAll(io.NewSectionReader(f, 0, 32))
	if err != nil {
		return 0, errors.Wrap(err, "failed to read PID file")
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}

	pid, err := strconv.Atoi(text)
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in file")
	}

	return pid, nil
}

// RemovePID deletes the PID file and releases the lock. It does nothing
// unless Acquire succeeded on d.
func (d *Daemon) RemovePID() error {
	if d.lock == nil {
		return nil
	}

	err := os.Remove(d.pidFile)
	d.lock.Close()
	d.lock = nil

	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove PID file")
	}
	return nil
}

// IsRunning reports whether some process holds the lock on the PID file,
// and the PID it recorded.
func (d *Daemon) IsRunning() (bool, int, error) {
	f, err := os.Open(d.pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, errors.Wrap(err, "failed to open PID file")
	}
	defer f.Close()

	err = unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB)
	if err == nil {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		return false, 0, nil
	}
	if err != unix.EWOULDBLOCK {
		return false, 0, errors.Wrap(err, "failed to check PID file lock")
	}

	pid, err := readPID(f)
	if err != nil {
		return true, 0, err
	}
	return true, pid, nil
}

func (d *Daemon) Stop() error {
	running, pid, err := d.IsRunning()
	if err != nil {
		return errors.Wrap(err, "error checking monitor status")
	}

	if !running {
		return errors.New("monitor is not running or PID file is stale")
	}

	// the owner holds the lock but has not written its PID yet
	if pid <= 0 {
		return errors.New("monitor is starting, try again")
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		if err == unix.ESRCH {
			return errors.New("monitor process already terminated")
		}
		return errors.Wrap(err, "failed to send SIGTERM")
	}

	return nil
}
