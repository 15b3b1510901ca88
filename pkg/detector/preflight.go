package detector

import (
	"fmt"
	"os"
	"strings"

	"github.com/lockblank/lockblank/internal/config"
	"github.com/lockblank/lockblank/pkg/integrations/x11"
)

// Check is one preflight finding
type Check struct {
	Name    string
	OK      bool
	Message string
}

// Preflight inspects the environment for the tools and session the
// configured backends rely on. Findings are advisory.
func Preflight(cfg *config.Config) []Check {
	var checks []Check

	desktop := os.Getenv("XDG_CURRENT_DESKTOP")
	checks = append(checks, Check{
		Name:    "desktop",
		OK:      desktop != "",
		Message: orUnknown(desktop),
	})

	server := DetectDisplayServer()
	checks = append(checks, Check{
		Name:    "display server",
		OK:      server == "x11",
		Message: server,
	})

	for _, tool := range requiredTools(cfg) {
		found := x11.CommandExists(tool)
		msg := "found"
		if !found {
			msg = "missing from PATH"
		}
		checks = append(checks, Check{
			Name:    fmt.Sprintf("tool %s", tool),
			OK:      found,
			Message: msg,
		})
	}

	return checks
}

// requiredTools lists the external commands the configuration will run
func requiredTools(cfg *config.Config) []string {
	tools := []string{"xinput"}

	if len(cfg.Watcher.Command) > 0 && cfg.Watcher.Command[0] != "xinput" {
		tools = append(tools, cfg.Watcher.Command[0])
	}
	if cfg.Lock.Backend == config.LockBackendPgrep {
		tools = append(tools, "pgrep")
	}
	if cfg.Display.Backend == config.DisplayBackendXset {
		tools = append(tools, "xset")
	}

	return tools
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
