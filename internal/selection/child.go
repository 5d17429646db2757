package selection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// DefaultArchiveTimeout bounds one archive conversion.
const DefaultArchiveTimeout = time.Hour

// ChildArchive converts archives in a child process of Exe, so a crash or a
// hung codec only costs that archive. The child never sees the operator's
// stdin.
type ChildArchive struct {
	Exe string
	// Args go between the subcommand and the paths, typically forwarded flags.
	Args    []string
	Timeout time.Duration
	Stdout  io.Writer
	Stderr  io.Writer
}

// Command builds the child invocation for src and dst.
func (c ChildArchive) Command(ctx context.Context, src, dst string) *exec.Cmd {
	args := append([]string{"archive"}, c.Args...)
	args = append(args, "--", src, dst)
	cmd := exec.CommandContext(ctx, c.Exe, args...)
	cmd.Stdin = nil
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	return cmd
}

// Run executes the child and waits for it, killing it past the timeout.
func (c ChildArchive) Run(ctx context.Context, src, dst string) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultArchiveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := c.Command(ctx, src, dst).Run()
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("archive conversion timed out after %s", timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("archive conversion exited with status %d", exitErr.ExitCode())
	}
	return err
}
