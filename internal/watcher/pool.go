// Package watcher owns the per-device watcher processes.
//
// Each watcher is an external process that prints one line per input event
// on its device. A reader goroutine per process turns lines into readiness
// tokens; Pool.Wait multiplexes those tokens with a bounded wait and consumes
// at most one line per ready stream, the way select(2) over the pipes would.
//
//	Pool.Spawn(devices) → one process + reader per device
//	Pool.Wait(bound)    → devices that produced a line within bound
//	Pool.Alive()        → any process still running
//	Pool.TerminateAll() → kill every live process once
package watcher

import (
	"bufio"
	"context"
	"io"
	"log"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/lockblank/lockblank/pkg/session"
)

// ErrStreamRead marks a watcher whose output broke for a reason other than
// process exit. Such a watcher is killed and counted as dead.
var ErrStreamRead = errors.New("watcher stream read failed")

// CommandFunc builds the watcher command for one device
type CommandFunc func(ctx context.Context, device session.Device) *exec.Cmd

// ArgvCommand returns a CommandFunc running argv(device.ID)
func ArgvCommand(argv func(deviceID string) []string) CommandFunc {
	return func(ctx context.Context, device session.Device) *exec.Cmd {
		args := argv(device.ID)
		return exec.CommandContext(ctx, args[0], args[1:]...)
	}
}

// Handle is one spawned watcher process bound to one device.
// alive and signaled are only touched by the goroutine driving the Pool.
type Handle struct {
	Device session.Device

	cmd      *exec.Cmd
	ready    chan struct{} // holds one token per unread line
	done     chan struct{} // closed once the process is reaped
	quit     chan struct{} // closed by TerminateAll to release the reader
	readErr  error         // set by the reader before done is closed
	alive    bool
	pending  bool // last line of an exited watcher, not yet reported
	signaled bool
}

// Pid returns the OS process ID of the watcher
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Pool owns the lifecycle of all watcher processes of one monitor run.
// Its methods must be called from a single goroutine.
type Pool struct {
	command CommandFunc
	handles []*Handle
	wake    chan struct{} // poked whenever a reader has news
	onError func(err error)
}

// NewPool creates an empty pool that spawns processes with command
func NewPool(command CommandFunc) *Pool {
	return &Pool{
		command: command,
		wake:    make(chan struct{}, 1),
	}
}

// OnError registers a callback for stream failures observed by readers.
// It must be set before Spawn.
func (p *Pool) OnError(fn func(err error)) {
	p.onError = fn
}

// Spawn starts one watcher per device. Devices that fail to spawn are
// skipped and reported; the pool keeps every watcher that did start.
func (p *Pool) Spawn(ctx context.Context, devices []session.Device) []error {
	var failures []error

	for _, device := range devices {
		h, err := p.spawn(ctx, device)
		if err != nil {
			failures = append(failures, session.Mark(err, session.ErrSpawn))
			continue
		}
		p.handles = append(p.handles, h)
		log.Printf("Watching %s (pid %d)", device, h.Pid())
	}

	return failures
}

func (p *Pool) spawn(ctx context.Context, device session.Device) (*Handle, error) {
	cmd := p.command(ctx, device)
	cmd.Stderr = io.Discard
	configureProcess(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "stdout pipe for device %s", device.ID)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start watcher for device %s", device.ID)
	}

	h := &Handle{
		Device: device,
		cmd:    cmd,
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		quit:   make(chan struct{}),
		alive:  true,
	}

	go p.read(h, stdout)

	return h, nil
}

// read forwards one readiness token per line. It blocks while the previous
// line is unconsumed, so the pipe buffers the backlog, not this program.
func (p *Pool) read(h *Handle, stdout io.Reader) {
	defer p.poke()
	defer close(h.done)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)

	for scanner.Scan() {
		select {
		case h.ready <- struct{}{}:
			p.poke()
		case <-h.quit:
			_ = h.cmd.Wait()
			return
		}
	}

	if err := scanner.Err(); err != nil {
		h.readErr = errors.Wrapf(ErrStreamRead, "device %s: %v", h.Device.ID, err)
		killProcess(h.cmd)
	}

	_ = h.cmd.Wait()
}

func (p *Pool) poke() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Handles returns every handle that was spawned, live or not
func (p *Pool) Handles() []*Handle {
	return p.handles
}

// Live returns the number of watchers whose process is still running
func (p *Pool) Live() int {
	p.reap()
	n := 0
	for _, h := range p.handles {
		if h.alive {
			n++
		}
	}
	return n
}

// Alive reports whether any watcher process is still running
func (p *Pool) Alive() bool {
	return p.Live() > 0
}

// Wait blocks until at least one watcher has an unread line or bound
// elapses. It consumes exactly one line from each ready watcher and returns
// their devices. A line written right before a watcher exited is still
// reported. With no live watchers and nothing unread it returns immediately.
func (p *Pool) Wait(bound time.Duration) []session.Device {
	if ready := p.collect(); len(ready) > 0 {
		return ready
	}
	if !p.Alive() {
		return nil
	}

	timer := time.NewTimer(bound)
	defer timer.Stop()

	for {
		select {
		case <-p.wake:
			if ready := p.collect(); len(ready) > 0 {
				return ready
			}
			if !p.Alive() {
				return nil
			}
		case <-timer.C:
			return p.collect()
		}
	}
}

// collect takes at most one unread line from every watcher
func (p *Pool) collect() []session.Device {
	p.reap()

	var ready []session.Device
	for _, h := range p.handles {
		if h.pending {
			h.pending = false
			ready = append(ready, h.Device)
			continue
		}
		if !h.alive {
			continue
		}
		select {
		case <-h.ready:
			ready = append(ready, h.Device)
		default:
		}
	}
	return ready
}

// reap clears the liveness flag of watchers whose process has been reaped
func (p *Pool) reap() {
	for _, h := range p.handles {
		if !h.alive {
			continue
		}
		select {
		case <-h.done:
			// the reader hands over its last token before closing done
			select {
			case <-h.ready:
				h.pending = true
			default:
			}
			h.alive = false
			if h.readErr != nil {
				log.Printf("Watcher for %s failed: %v", h.Device, h.readErr)
				if p.onError != nil {
					p.onError(h.readErr)
				}
			} else if !h.signaled {
				log.Printf("Watcher for %s exited: %v", h.Device, h.cmd.ProcessState)
			}
		default:
		}
	}
}

// TerminateAll sends a kill signal to every live watcher that has not been
// signalled yet. It does not wait for the processes to exit and never fails;
// readers reap them in the background. Calling it again is a no-op.
func (p *Pool) TerminateAll() {
	p.reap()
	for _, h := range p.handles {
		if !h.alive || h.signaled {
			continue
		}
		h.signaled = true
		killProcess(h.cmd)
		close(h.quit)
	}
}

// Signaled returns how many watchers received a kill signal from TerminateAll
func (p *Pool) Signaled() int {
	n := 0
	for _, h := range p.handles {
		if h.signaled {
			n++
		}
	}
	return n
}
