package ansible

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// waitDelay bounds how long Wait blocks on inherited pipes after the child is
// killed.
const waitDelay = 5 * time.Second

// Runner executes an argument vector and captures its output.
//
// A non-zero exit is reported through exitCode with a nil error; err is only
// set when the process could not be started or waited on.
type Runner interface {
	Run(ctx context.Context, dir string, args []string) (stdout, stderr string, exitCode int, err error)
}

// processRunner runs the vector as a child process.
type processRunner struct{}

func (processRunner) Run(ctx context.Context, dir string, args []string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return stdout.String(), stderr.String(), -1, err
	}
	return stdout.String(), stderr.String(), 0, nil
}
