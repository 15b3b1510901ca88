package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration that reads from TOML and the environment as
// either a Go duration string ("5m", "1500ms") or a bare number of seconds.
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText encodes the duration as a Go duration string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText parses a Go duration string or a number of seconds
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text), time.Second)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalTOML accepts TOML strings and numbers (seconds)
func (d *Duration) UnmarshalTOML(value any) error {
	v, err := tomlDuration(value, time.Second)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Millis is like Duration but reads bare numbers as milliseconds. It holds
// the short control-loop pauses.
type Millis time.Duration

// Std returns the value as a time.Duration
func (m Millis) Std() time.Duration { return time.Duration(m) }

func (m Millis) String() string { return time.Duration(m).String() }

// MarshalText encodes the duration as a Go duration string
func (m Millis) MarshalText() ([]byte, error) {
	return []byte(time.Duration(m).String()), nil
}

// UnmarshalText parses a Go duration string or a number of milliseconds
func (m *Millis) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text), time.Millisecond)
	if err != nil {
		return err
	}
	*m = Millis(v)
	return nil
}

// UnmarshalTOML accepts TOML strings and numbers (milliseconds)
func (m *Millis) UnmarshalTOML(value any) error {
	v, err := tomlDuration(value, time.Millisecond)
	if err != nil {
		return err
	}
	*m = Millis(v)
	return nil
}

func tomlDuration(value any, unit time.Duration) (time.Duration, error) {
	switch v := value.(type) {
	case string:
		return ParseDuration(v, unit)
	case int64:
		return time.Duration(v) * unit, nil
	case float64:
		return time.Duration(v * float64(unit)), nil
	default:
		return 0, fmt.Errorf("invalid duration %v (%T)", value, value)
	}
}

// ParseDuration parses s as a Go duration, falling back to a bare number
// interpreted in unit.
func ParseDuration(s string, unit time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(unit)), nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return v, nil
}
