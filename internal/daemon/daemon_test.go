package daemon

import (
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "lockblank.pid"))
}

func TestAcquireAndRelease(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	// Re-acquiring through the owning Daemon is allowed
	if err := d.Acquire(); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}

	pid, err := d.ReadPID()
	if err != nil {
		t.Fatalf("ReadPID() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("ReadPID() = %d, want %d", pid, os.Getpid())
	}

	running, runningPID, err := d.IsRunning()
	if err != nil {
		t.Fatalf("IsRunning() error = %v", err)
	}
	if !running || runningPID != os.Getpid() {
		t.Errorf("IsRunning() = %v, %d; want true, %d", running, runningPID, os.Getpid())
	}

	if err := d.RemovePID(); err != nil {
		t.Errorf("RemovePID() error = %v", err)
	}
	if err := d.RemovePID(); err != nil {
		t.Errorf("second RemovePID() error = %v", err)
	}
	if _, err := os.Stat(d.PIDFile()); !os.IsNotExist(err) {
		t.Errorf("PID file still present after RemovePID: %v", err)
	}
}

func TestReadPIDMissingFile(t *testing.T) {
	d := newTestDaemon(t)

	pid, err := d.ReadPID()
	if err != nil || pid != 0 {
		t.Errorf("ReadPID() = %d, %v; want 0, nil", pid, err)
	}
}

func TestReadPIDGarbage(t *testing.T) {
	d := newTestDaemon(t)
	if err := os.WriteFile(d.PIDFile(), []byte("not-a-pid"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := d.ReadPID(); err == nil {
		t.Error("ReadPID() error = nil, want parse error")
	}
}

func TestStalePIDFileIsReused(t *testing.T) {
	d := newTestDaemon(t)
	// PID 1 is alive, but nobody holds the lock
	if err := os.WriteFile(d.PIDFile(), []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}

	running, _, err := d.IsRunning()
	if err != nil {
		t.Fatalf("IsRunning() error = %v", err)
	}
	if running {
		t.Fatal("IsRunning() = true for an unlocked PID file")
	}

	if err := d.Acquire(); err != nil {
		t.Fatalf("Acquire() over a stale file error = %v", err)
	}
	defer d.RemovePID()

	if pid, _ := d.ReadPID(); pid != os.Getpid() {
		t.Errorf("ReadPID() = %d, want %d", pid, os.Getpid())
	}
}

func TestAcquireHeldByOther(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lockblank.pid")
	owner := New(path)
	if err := owner.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer owner.RemovePID()

	err := New(path).Acquire()
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Acquire() error = %v, want ErrAlreadyRunning", err)
	}

	// a failed Acquire must not disturb the owner
	if pid, _ := owner.ReadPID(); pid != os.Getpid() {
		t.Errorf("ReadPID() = %d after failed Acquire, want %d", pid, os.Getpid())
	}
	if err := New(path).RemovePID(); err != nil {
		t.Errorf("RemovePID() by non-owner error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("non-owner removed the PID file: %v", err)
	}
}

func TestAcquireConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lockblank.pid")

	const contenders = 8
	daemons := make([]*Daemon, contenders)
	errs := make([]error, contenders)

	var start, wg sync.WaitGroup
	start.Add(1)
	for i := range daemons {
		daemons[i] = New(path)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start.Wait()
			errs[i] = daemons[i].Acquire()
		}(i)
	}
	start.Done()
	wg.Wait()

	winners := 0
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
			defer daemons[i].RemovePID()
		case !errors.Is(err, ErrAlreadyRunning):
			t.Errorf("Acquire() error = %v, want ErrAlreadyRunning", err)
		}
	}
	if winners != 1 {
		t.Errorf("%d concurrent Acquire calls succeeded, want 1", winners)
	}
}

func TestAcquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lockblank.pid")

	first := New(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := first.RemovePID(); err != nil {
		t.Fatalf("RemovePID() error = %v", err)
	}

	second := New(path)
	if err := second.Acquire(); err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	defer second.RemovePID()
}

func TestStopNotRunning(t *testing.T) {
	d := newTestDaemon(t)
	if err := d.Stop(); err == nil {
		t.Error("Stop() error = nil, want not running")
	}
}

func TestStopSendsSIGTERM(t *testing.T) {
	cmd := exec.Command("sleep", "10")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start sleep: %v", err)
	}

	owner := newTestDaemon(t)
	if err := owner.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer owner.RemovePID()
	if err := writePID(owner.lock, cmd.Process.Pid); err != nil {
		t.Fatal(err)
	}

	if err := New(owner.PIDFile()).Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if err := cmd.Wait(); err == nil {
		t.Error("sleep exited cleanly, want termination by signal")
	}
}
