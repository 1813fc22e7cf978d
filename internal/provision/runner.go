package provision

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// commandTimeout bounds a single shell command invocation.
const commandTimeout = 15 * time.Second

// CommandRunner executes an external command and returns its combined
// output. Implementations must respect context cancellation.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// execRunner runs commands via os/exec.
type execRunner struct {
	logger Logger
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	r.logger.Debug("running command", "command", name, "args", args)

	cmd := exec.CommandContext(runCtx, name, args...)
	output, err := cmd.CombinedOutput()
	out := strings.TrimSpace(string(output))
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return out, fmt.Errorf("%s timed out after %v", name, commandTimeout)
		}
		return out, fmt.Errorf("%s: %w (output: %s)", name, err, out)
	}
	return out, nil
}
