package mission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerAllPass(t *testing.T) {
	runner := NewExecRunner(t.TempDir(), 0)
	result, err := runner.Run(context.Background(), []string{"echo first", "echo second"})
	require.NoError(t, err)

	assert.True(t, result.Passed)
	assert.Contains(t, result.Output, "$ echo first")
	assert.Contains(t, result.Output, "first")
	assert.Contains(t, result.Output, "second")
}

func TestExecRunnerCommandFails(t *testing.T) {
	runner := NewExecRunner(t.TempDir(), 0)
	result, err := runner.Run(context.Background(), []string{"echo before", "exit 3"})
	require.NoError(t, err, "a failing test command is a result, not an error")

	assert.False(t, result.Passed)
	assert.Contains(t, result.Output, "before")
}

func TestExecRunnerRunsInDir(t *testing.T) {
	dir := t.TempDir()
	runner := NewExecRunner(dir, 0)
	result, err := runner.Run(context.Background(), []string{"pwd"})
	require.NoError(t, err)
	assert.Contains(t, result.Output, dir)
}

func TestExecRunnerTimeout(t *testing.T) {
	runner := NewExecRunner(t.TempDir(), 100*time.Millisecond)
	result, err := runner.Run(context.Background(), []string{"sleep 5"})
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Contains(t, result.Output, "timed out")
}

func TestExecRunnerEmptyCommands(t *testing.T) {
	runner := NewExecRunner(t.TempDir(), 0)
	_, err := runner.Run(context.Background(), nil)
	assert.Error(t, err)
}
