package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lockblank/lockblank/internal/config"
	"github.com/lockblank/lockblank/internal/models"
	"github.com/lockblank/lockblank/pkg/session"
)

// Watchers is the part of the watcher pool the monitor drives
type Watchers interface {
	// Wait returns the devices that produced input within bound,
	// consuming one line from each
	Wait(bound time.Duration) []session.Device
	Alive() bool
	TerminateAll()
}

// ErrorRecorder receives non-fatal errors for the journal
type ErrorRecorder interface {
	RecordError(kind string, err error)
}

// Error kinds passed to the ErrorRecorder
const (
	KindLock    = "lock"
	KindDisplay = "display"
)

// Policy holds the behaviour switches that are not timing constants
type Policy struct {
	// Repeat forces the display off on every iteration past the timeout.
	// Without it the display is forced off once per idle period.
	Repeat bool

	// AssumeLockedOnError keeps the monitor running when the lock state
	// cannot be queried.
	AssumeLockedOnError bool
}

// DefaultPolicy matches the behaviour of the desktop script lockblank replaces
func DefaultPolicy() Policy {
	return Policy{Repeat: true, AssumeLockedOnError: true}
}

// Result summarises one monitor run
type Result struct {
	Reason      string
	Blanks      int
	Activity    int64
	LongestIdle time.Duration
	Started     time.Time
	Ended       time.Time
}

type Monitor struct {
	config   config.MonitorConfig
	policy   Policy
	lock     session.LockOracle
	display  session.Display
	recorder ErrorRecorder

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	running bool
}

func New(cfg config.MonitorConfig, policy Policy, lock session.LockOracle, display session.Display) *Monitor {
	return &Monitor{
		config:  cfg,
		policy:  policy,
		lock:    lock,
		display: display,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// SetRecorder routes lock and display failures to r in addition to the log
func (m *Monitor) SetRecorder(r ErrorRecorder) {
	m.recorder = r
}

// Run drives the watchers until the session unlocks, every watcher has
// exited, or ctx is canceled. The watchers are terminated on every exit path.
func (m *Monitor) Run(ctx context.Context, w Watchers) (*Result, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, fmt.Errorf("monitor is already running")
	}
	m.running = true
	m.mu.Unlock()

	timeout := m.config.IdleTimeout.Std()
	res := &Result{Started: m.now()}

	defer func() {
		w.TerminateAll()
		res.Ended = m.now()

		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	log.Printf("Monitoring input with %v idle timeout (lock: %s, display: %s)",
		timeout, m.lock.Name(), m.display.Name())

	lastInput := res.Started
	blanked := false

	for {
		if ctx.Err() != nil {
			log.Println("Monitor stopped by context")
			res.Reason = models.ExitCanceled
			return res, nil
		}

		if !m.locked(ctx) {
			log.Println("Session unlocked, stopping watchers")
			res.Reason = models.ExitUnlocked
			return res, nil
		}

		idle := m.now().Sub(lastInput)
		if idle > res.LongestIdle {
			res.LongestIdle = idle
		}
		if idle > timeout && (m.policy.Repeat || !blanked) {
			if !blanked {
				log.Printf("Idle for %v while locked, forcing display off", idle.Round(time.Second))
			}
			if err := m.display.ForceOff(ctx); err != nil {
				m.recordError(KindDisplay, err)
			} else {
				res.Blanks++
				blanked = true
			}
		}

		if ready := w.Wait(m.config.StreamWait.Std()); len(ready) > 0 {
			lastInput = m.now()
			blanked = false
			res.Activity += int64(len(ready))
		}

		if !w.Alive() {
			log.Println("All watchers exited")
			res.Reason = models.ExitWatchersExited
			return res, nil
		}

		if err := m.sleep(ctx, m.config.LoopSleep.Std()); err != nil {
			log.Println("Monitor stopped by context")
			res.Reason = models.ExitCanceled
			return res, nil
		}
	}
}

// locked queries the lock oracle. A failed query counts as locked unless the
// policy says otherwise.
func (m *Monitor) locked(ctx context.Context) bool {
	locked, err := m.lock.Locked(ctx)
	if err != nil {
		m.recordError(KindLock, err)
		return m.policy.AssumeLockedOnError
	}
	return locked
}

func (m *Monitor) recordError(kind string, err error) {
	log.Printf("%s error: %v", kind, err)
	if m.recorder != nil {
		m.recorder.RecordError(kind, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
