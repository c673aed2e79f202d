// Package convert runs the external step that turns legacy .doc files into
// text artifacts the plain text decoder can read.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds one conversion batch.
const DefaultTimeout = 20 * time.Second

// maxStderr caps the stderr carried in a conversion error.
const maxStderr = 4 * 1024

// ErrTimeout is returned when the converter does not finish in time.
var ErrTimeout = errors.New("conversion timed out")

// Converter converts every legacy document in inputDir. Artifacts are
// written to a location the converter owns; OutputDir reports it.
type Converter interface {
	Convert(ctx context.Context, inputDir string, timeout time.Duration) error
	OutputDir() string
}

// ScriptConverter invokes an external program as
//
//	Executable Args... inputDir outputDir timeoutSeconds
//
// and treats a zero exit status as success.
type ScriptConverter struct {
	Executable string
	Args       []string
	Output     string
	Logger     *slog.Logger
}

func (c *ScriptConverter) OutputDir() string { return c.Output }

func (c *ScriptConverter) Convert(ctx context.Context, inputDir string, timeout time.Duration) error {
	if c.Executable == "" {
		return fmt.Errorf("converter executable is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if c.Output != "" {
		if err := os.MkdirAll(c.Output, 0o755); err != nil {
			return fmt.Errorf("create converter output dir: %w", err)
		}
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, c.Args...),
		inputDir, c.Output, strconv.Itoa(int(timeout.Round(time.Second)/time.Second)))
	cmd := exec.CommandContext(execCtx, c.Executable, args...)
	cmd.WaitDelay = time.Second

	var stderr strings.Builder
	cmd.Stderr = &stderr

	start := time.Now()
	logger.Info("conversion started", "executable", c.Executable, "input", inputDir, "output", c.Output, "timeout", timeout)
	err := cmd.Run()
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%s after %s: %w", c.Executable, timeout, ErrTimeout)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr] + "... [truncated]"
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with code %d: %s", c.Executable, exitErr.ExitCode(), msg)
		}
		return fmt.Errorf("run %s: %w", c.Executable, err)
	}
	logger.Info("conversion completed", "executable", c.Executable, "duration", time.Since(start))
	return nil
}
