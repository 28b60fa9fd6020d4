package mission

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// TestResult is the combined outcome of a verification run.
type TestResult struct {
	Passed bool
	// Output is the combined stdout+stderr of every command, in order.
	Output string
}

// TestRunner executes approved verification commands.
type TestRunner interface {
	Run(ctx context.Context, commands []string) (*TestResult, error)
}

// ExecRunner runs commands through the shell in the workspace root.
// Commands run sequentially; the first failure stops the run, since
// later commands usually depend on earlier ones.
type ExecRunner struct {
	dir     string
	timeout time.Duration
}

// NewExecRunner creates a runner. timeout bounds the whole run; zero
// means no bound beyond the caller's context.
func NewExecRunner(dir string, timeout time.Duration) *ExecRunner {
	return &ExecRunner{dir: dir, timeout: timeout}
}

// Run executes the commands and captures their output. A non-zero exit
// is a failed result, not an error; errors are reserved for being
// unable to run at all.
func (r *ExecRunner) Run(ctx context.Context, commands []string) (*TestResult, error) {
	if len(commands) == 0 {
		return nil, fmt.Errorf("no test commands to run")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var output bytes.Buffer
	for _, command := range commands {
		fmt.Fprintf(&output, "$ %s\n", command)

		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Dir = r.dir
		out, err := cmd.CombinedOutput()
		output.Write(out)

		if ctx.Err() == context.DeadlineExceeded {
			output.WriteString("\ntest timed out\n")
			return &TestResult{Passed: false, Output: output.String()}, nil
		}
		if err != nil {
			if _, ok := err.(*exec.ExitError); ok {
				fmt.Fprintf(&output, "\nexit: %v\n", err)
				return &TestResult{Passed: false, Output: output.String()}, nil
			}
			return nil, fmt.Errorf("failed to run %q: %w", command, err)
		}
	}
	return &TestResult{Passed: true, Output: output.String()}, nil
}
