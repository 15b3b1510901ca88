package session

import "context"

// Device identifies one physical input device as reported by the OS
type Device struct {
	ID   string // Opaque handle passed to the watcher command
	Name string
}

func (d Device) String() string {
	if d.Name == "" {
		return d.ID
	}
	return d.Name + " (id=" + d.ID + ")"
}

// Enumerator lists the input devices attached at startup
type Enumerator interface {
	// Devices returns every attached slave input device
	Devices(ctx context.Context) ([]Device, error)
}

// LockOracle answers whether the session's screen lock is active
type LockOracle interface {
	// Locked reports the current lock state
	Locked(ctx context.Context) (bool, error)

	// Name identifies the backend ("pgrep", "screensaver", "logind")
	Name() string
}

// Display forces the display into a powered-off state
type Display interface {
	// ForceOff turns the display off. Calling it while the display is
	// already off is a no-op.
	ForceOff(ctx context.Context) error

	// Name identifies the backend ("xset", "dpms")
	Name() string

	// Close cleans up any resources used by the controller
	Close() error
}
