package x11

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/lockblank/lockblank/pkg/session"
)

// XsetDisplay forces the display off with `xset dpms force off`
type XsetDisplay struct{}

func NewXsetDisplay() *XsetDisplay {
	return &XsetDisplay{}
}

func (d *XsetDisplay) Name() string {
	return "xset"
}

func (d *XsetDisplay) ForceOff(ctx context.Context) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "xset", "dpms", "force", "off")
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = errors.Wrap(err, msg)
		}
		return session.Mark(errors.Wrap(err, "xset dpms force off"), session.ErrQuery)
	}
	return nil
}

func (d *XsetDisplay) Close() error {
	return nil
}
