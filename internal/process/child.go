package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/milmil7/gui-reaper/internal/logging"
)

// outputGrace bounds how long Wait keeps reading output after the child
// exits, in case a grandchild inherited the pipes.
const outputGrace = 500 * time.Millisecond

// Handle is the view of a launched child the supervisor needs.
type Handle interface {
	PID() int
	Exited() bool
	Kill() error
}

// ExitCoder is implemented by handles that can report how their child
// exited. The code is only available once Exited reports true.
type ExitCoder interface {
	ExitCode() (int, bool)
}

// Launcher starts a child process.
type Launcher func(ctx context.Context, exe string, args []string, logger logging.Logger) (Handle, error)

// Child is a launched subprocess.
type Child struct {
	cmd    *exec.Cmd
	logger logging.Logger

	done       chan struct{}
	outputDone sync.WaitGroup

	mu       sync.Mutex
	exitCode int
	waitErr  error
}

// Launch starts exe with args and streams its output into logger.
// The child is bound to ctx: cancelling ctx kills it. Pass a context that is
// never cancelled for a child that must outlive the caller.
func Launch(ctx context.Context, exe string, args []string, logger logging.Logger) (*Child, error) {
	if exe == "" {
		return nil, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	configureSysProcAttr(cmd)
	cmd.WaitDelay = outputGrace

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		logger.Error("Failed to start process", "error", err, "command", exe)
		return nil, fmt.Errorf("start %s: %w", exe, err)
	}

	c := &Child{
		cmd:      cmd,
		logger:   logger,
		done:     make(chan struct{}),
		exitCode: -1,
	}

	logger.Info("Process started", "pid", cmd.Process.Pid, "command", exe, "args", args)

	c.outputDone.Add(2)
	go c.streamOutput(stdoutR, "stdout")
	go c.streamOutput(stderrR, "stderr")

	go func() {
		err := cmd.Wait()
		_ = stdoutW.Close()
		_ = stderrW.Close()
		c.outputDone.Wait()

		c.mu.Lock()
		c.exitCode = exitCodeFromError(err)
		c.waitErr = err
		c.mu.Unlock()

		logger.Info("Process exited", "pid", cmd.Process.Pid, "exit_code", c.exitCode)
		close(c.done)
	}()

	return c, nil
}

// LaunchHandle is Launch with the Launcher signature.
func LaunchHandle(ctx context.Context, exe string, args []string, logger logging.Logger) (Handle, error) {
	c, err := Launch(ctx, exe, args, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// PID returns the child's process id.
func (c *Child) PID() int {
	return c.cmd.Process.Pid
}

// Exited reports whether the child has exited, without blocking.
func (c *Child) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code once the child has exited.
func (c *Child) ExitCode() (int, bool) {
	if !c.Exited() {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode, true
}

// Kill force-stops the child. Killing an exited child is not an error.
func (c *Child) Kill() error {
	if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pid %d: %w", c.PID(), err)
	}
	return nil
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
// A child killed by a signal reports -1.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// streamOutput forwards each output line of the child to the logger.
func (c *Child) streamOutput(reader io.Reader, source string) {
	defer c.outputDone.Done()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		c.logger.Info(scanner.Text(), "source", source, "pid", c.cmd.Process.Pid)
	}

	if err := scanner.Err(); err != nil {
		c.logger.Warn("Error reading output", "source", source, "error", err)
	}
	// Keep draining so the copying goroutine in os/exec never blocks.
	_, _ = io.Copy(io.Discard, reader)
}
