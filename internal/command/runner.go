package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout means the subprocess did not finish within its deadline. The
// process is killed but not guaranteed to be reaped synchronously.
var ErrTimeout = errors.New("command timed out")

// ErrNotFound means the executable does not exist on PATH.
var ErrNotFound = errors.New("command not found")

// Result captures a finished subprocess. A non-zero ExitCode is reported
// here rather than as an error: the command ran, it just failed.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes argv with the given timeout, feeding stdin when non-empty.
// Timeout, missing executable and non-zero exit are three distinct
// outcomes and are never conflated.
func Run(ctx context.Context, argv []string, timeout time.Duration, stdin string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("empty argument vector")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		return result, fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, argv[0])
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return result, fmt.Errorf("%w: %s", ErrNotFound, argv[0])
		}
		return result, err
	}
	return result, nil
}
