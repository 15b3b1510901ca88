package x11

import (
	"context"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/lockblank/lockblank/pkg/session"
)

// PgrepLockOracle treats the session as locked while a locker process runs
type PgrepLockOracle struct {
	lockers []string
}

// NewPgrepLockOracle creates an oracle matching any of lockers. With no
// lockers the session never counts as locked.
func NewPgrepLockOracle(lockers []string) *PgrepLockOracle {
	return &PgrepLockOracle{lockers: lockers}
}

func (o *PgrepLockOracle) Name() string {
	return "pgrep"
}

// Locked runs pgrep for each locker pattern. pgrep exits 1 when nothing
// matches; any other failure is a query error.
func (o *PgrepLockOracle) Locked(ctx context.Context) (bool, error) {
	for _, locker := range o.lockers {
		err := exec.CommandContext(ctx, "pgrep", locker).Run()
		if err == nil {
			return true, nil
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			continue
		}
		return false, session.Mark(errors.Wrapf(err, "pgrep %s", locker), session.ErrQuery)
	}

	return false, nil
}
