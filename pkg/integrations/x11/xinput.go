package x11

import (
	"bufio"
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/lockblank/lockblank/pkg/session"
)

// slaveLine matches one slave device entry of `xinput --list --short`:
//
//	⎜   ↳ Logitech USB Receiver                 	id=9	[slave  pointer  (2)]
var slaveLine = regexp.MustCompile(`^[^A-Za-z0-9]*(.*?)\s+id=(\S+)\s*\[slave\b`)

var numericID = regexp.MustCompile(`^[0-9]+$`)

// XInputEnumerator lists slave input devices with xinput
type XInputEnumerator struct {
	// Exclude skips devices whose name contains any of these substrings
	Exclude []string
}

// NewXInputEnumerator creates an enumerator that skips excluded names
func NewXInputEnumerator(exclude []string) *XInputEnumerator {
	return &XInputEnumerator{Exclude: exclude}
}

// Devices runs `xinput --list --short` and returns the slave devices
func (e *XInputEnumerator) Devices(ctx context.Context) ([]session.Device, error) {
	output, err := exec.CommandContext(ctx, "xinput", "--list", "--short").Output()
	if err != nil {
		return nil, session.Mark(errors.Wrap(err, "xinput --list --short"), session.ErrEnumeration)
	}

	devices, err := parseXInputList(string(output))
	if err != nil {
		return nil, session.Mark(err, session.ErrEnumeration)
	}

	return e.filter(devices), nil
}

func (e *XInputEnumerator) filter(devices []session.Device) []session.Device {
	if len(e.Exclude) == 0 {
		return devices
	}

	kept := devices[:0]
	for _, d := range devices {
		if !e.excluded(d.Name) {
			kept = append(kept, d)
		}
	}
	return kept
}

func (e *XInputEnumerator) excluded(name string) bool {
	for _, pattern := range e.Exclude {
		if pattern != "" && strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

// parseXInputList extracts slave devices from xinput's short listing.
// Master devices and floating devices are ignored.
func parseXInputList(output string) ([]session.Device, error) {
	var devices []session.Device

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "[slave") {
			continue
		}

		m := slaveLine.FindStringSubmatch(line)
		if m == nil {
			return nil, errors.Errorf("unexpected xinput line %q", line)
		}
		if !numericID.MatchString(m[2]) {
			return nil, errors.Errorf("invalid device id %q in line %q", m[2], line)
		}

		devices = append(devices, session.Device{
			ID:   m[2],
			Name: strings.TrimSpace(m[1]),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read xinput output")
	}

	return devices, nil
}
