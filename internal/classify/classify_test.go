package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

func TestClassifyRateLimit(t *testing.T) {
	err := fmt.Errorf("anthropic API error: 429 too many requests")
	desc := Classify(err, types.ClassifyContext{Stage: types.StageProposeDiff})

	assert.Equal(t, types.CategoryRateLimit, desc.Category)
	assert.True(t, desc.Retryable)
	assert.Equal(t, types.ActionRetrySame, desc.SuggestedAction)
}

func TestClassifySideEffectOverride(t *testing.T) {
	err := fmt.Errorf("connection reset by peer")
	desc := Classify(err, types.ClassifyContext{
		Stage:             types.StageApplyDiff,
		ToolHadSideEffect: true,
	})

	assert.Equal(t, types.CategoryNetworkTransient, desc.Category)
	assert.False(t, desc.Retryable, "side effect must force retryable=false")
	assert.Equal(t, types.ActionPause, desc.SuggestedAction)
	assert.Equal(t, "true", desc.Detail["side_effect_override"])
}

func TestClassifyCascade(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		category  types.ErrorCategory
		retryable bool
		action    types.SuggestedAction
	}{
		{"deadline exceeded", context.DeadlineExceeded, types.CategoryNetworkTransient, true, types.ActionRetrySame},
		{"truncation", errors.New("stop_reason: max_tokens"), types.CategoryLLMTruncation, true, types.ActionRetrySplit},
		{"invalid output", errors.New("failed to parse model output: invalid JSON"), types.CategoryLLMInvalidOutput, true, types.ActionRegenerate},
		{"apply conflict", errors.New("base content hash mismatch for internal/auth/session.go"), types.CategoryApplyConflict, true, types.ActionRegenerate},
		{"permission", errors.New("open /etc/shadow: permission denied"), types.CategoryPermission, false, types.ActionAskUser},
		{"workspace", errors.New("refusing to apply: dirty worktree"), types.CategoryWorkspaceState, false, types.ActionPause},
		{"tool failure", errors.New("go: exit status 2"), types.CategoryToolFailure, true, types.ActionRetrySame},
		{"internal bug", errors.New("panic: nil pointer dereference"), types.CategoryInternalBug, false, types.ActionAbort},
		{"unrecognized", errors.New("zorp gribble"), types.CategoryInternalBug, false, types.ActionAbort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Classify(tt.err, types.ClassifyContext{})
			assert.Equal(t, tt.category, desc.Category)
			assert.Equal(t, tt.retryable, desc.Retryable)
			assert.Equal(t, tt.action, desc.SuggestedAction)
		})
	}
}

func TestClassifyNeedlesSurviveLowercasing(t *testing.T) {
	// The cascade matches against the lowercased message, so every
	// needle must match errors however the producer cased them.
	tests := []struct {
		name     string
		err      error
		category types.ErrorCategory
		code     string
	}{
		{"unexpected EOF", errors.New("read tcp 10.0.0.1->10.0.0.2: unexpected EOF"), types.CategoryNetworkTransient, "NETWORK_ERROR"},
		{"invalid JSON uppercase", errors.New("model returned invalid JSON"), types.CategoryLLMInvalidOutput, "INVALID_MODEL_OUTPUT"},
		{"invalid json lowercase", errors.New("model returned invalid json"), types.CategoryLLMInvalidOutput, "INVALID_MODEL_OUTPUT"},
		{"shouting rate limit", errors.New("RATE LIMIT EXCEEDED"), types.CategoryRateLimit, "RATE_LIMITED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Classify(tt.err, types.ClassifyContext{})
			assert.Equal(t, tt.category, desc.Category)
			assert.Equal(t, tt.code, desc.Code)
			assert.True(t, desc.Retryable)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	err := errors.New("connection refused")
	a := Classify(err, types.ClassifyContext{})
	b := Classify(err, types.ClassifyContext{})
	assert.Equal(t, a, b)
}

func TestClassifyOutputPriority(t *testing.T) {
	// Timeout outranks the assertion noise also present in the output.
	output := `--- FAIL: TestSlowThing (60.00s)
panic: test timed out after 60s
goroutine 42 [running]`

	c := ClassifyOutput(output)
	assert.Equal(t, types.FailureTimeout, c.Type)
	assert.False(t, c.CodeFixable)
}

func TestClassifyOutputTypes(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		typ         types.FailureType
		codeFixable bool
	}{
		{
			"assertion",
			"--- FAIL: TestLogin (0.01s)\n    session_test.go:42: expected 200 got 401",
			types.FailureAssertion, true,
		},
		{
			"typecheck",
			"internal/auth/session.go:17:9: undefined: tokenStore",
			types.FailureTypecheck, true,
		},
		{
			"build",
			"build failed: cannot compile package auth",
			types.FailureBuild, true,
		},
		{
			"environment",
			"bash: npx: command not found",
			types.FailureEnvironment, false,
		},
		{
			"unknown",
			"everything is on fire in an unprecedented way",
			types.FailureUnknown, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClassifyOutput(tt.output)
			assert.Equal(t, tt.typ, c.Type)
			assert.Equal(t, tt.codeFixable, c.CodeFixable)
		})
	}
}

func TestSignatureStableAcrossVolatileNoise(t *testing.T) {
	run1 := `2026-03-01T10:00:01.123Z --- FAIL: TestLogin (0.013s)
    session_test.go:42: expected 200 got 401
    goroutine 17 at 0xc000123456`
	run2 := `2026-03-01T11:37:52.987Z --- FAIL: TestLogin (0.250s)
    session_test.go:42: expected 200 got 401
    goroutine 93 at 0xc0009abcde`

	c1 := ClassifyOutput(run1)
	c2 := ClassifyOutput(run2)

	require.Equal(t, c1.Type, c2.Type)
	assert.Equal(t, c1.Signature, c2.Signature)
	assert.Len(t, c1.Signature, 16)
}

func TestSignatureStableAcrossPIDsUUIDsAndHomeDirs(t *testing.T) {
	run1 := `--- FAIL: TestWorker (0.01s)
    worker_test.go:9: process pid 12345 crashed, request 7c9e6679-7425-40de-944b-e07fc1f90ae7
    log at /home/alice/.cache/run.log`
	run2 := `--- FAIL: TestWorker (0.01s)
    worker_test.go:9: process pid 99887 crashed, request 550e8400-e29b-41d4-a716-446655440000
    log at /home/bob/.cache/run.log`

	c1 := ClassifyOutput(run1)
	c2 := ClassifyOutput(run2)

	require.Equal(t, c1.Type, c2.Type)
	assert.Equal(t, c1.Signature, c2.Signature)
}

func TestStripVolatileRemovesPIDsUUIDsAndHomeDirs(t *testing.T) {
	stable := StripVolatile("pid 4242 [31337] at /Users/carol/work, id 123e4567-e89b-12d3-a456-426614174000")
	assert.NotContains(t, stable, "4242")
	assert.NotContains(t, stable, "31337")
	assert.NotContains(t, stable, "carol")
	assert.NotContains(t, stable, "123e4567")
}

func TestSignatureDiffersByFailure(t *testing.T) {
	c1 := ClassifyOutput("--- FAIL: TestLogin (0.01s)\n    session_test.go:42: expected 200 got 401")
	c2 := ClassifyOutput("--- FAIL: TestLogout (0.01s)\n    session_test.go:77: expected 204 got 500")
	assert.NotEqual(t, c1.Signature, c2.Signature)
}

func TestExtractRefsAreCapped(t *testing.T) {
	output := "--- FAIL: TestBig\n"
	for i := 0; i < 20; i++ {
		output += fmt.Sprintf("    file%d_test.go:%d: boom\n", i, i+1)
	}
	for i := 0; i < 10; i++ {
		output += fmt.Sprintf("--- FAIL: TestCase%d\n", i)
	}

	c := ClassifyOutput(output)
	assert.Len(t, c.Files, 10)
	assert.Len(t, c.Tests, 5)
}

func TestParseTestCounts(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   types.TestCounts
	}{
		{
			"jest style",
			"Tests: 7 passed, 3 failed",
			types.TestCounts{Known: true, Passed: 7, Failed: 3},
		},
		{
			"n of m",
			"3 of 13 tests failed",
			types.TestCounts{Known: true, Passed: 10, Failed: 3},
		},
		{
			"go markers",
			"--- PASS: TestA (0.00s)\n--- PASS: TestB (0.00s)\n--- FAIL: TestC (0.01s)",
			types.TestCounts{Known: true, Passed: 2, Failed: 1},
		},
		{
			"unparseable",
			"no summary here",
			types.TestCounts{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTestCounts(tt.output))
		})
	}
}
