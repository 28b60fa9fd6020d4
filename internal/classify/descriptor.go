// Package classify turns raw errors and raw tool output into structured,
// deterministic classifications. Both classifiers are pure: same input,
// same answer, no clock, no I/O. Everything downstream (the recovery
// ladder, loop detection, pause decisions) keys off these results.
package classify

import (
	"context"
	"errors"
	"strings"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// rule is one arm of the classification cascade. Rules are evaluated in
// order and the first match wins, so more specific predicates come first.
type rule struct {
	match     func(msg string, err error) bool
	category  types.ErrorCategory
	retryable bool
	action    types.SuggestedAction
	code      string
}

func containsAny(msg string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}

var rules = []rule{
	{
		match: func(msg string, err error) bool {
			return containsAny(msg, "429", "rate limit", "too many requests", "overloaded")
		},
		category:  types.CategoryRateLimit,
		retryable: true,
		action:    types.ActionRetrySame,
		code:      "RATE_LIMITED",
	},
	{
		match: func(msg string, err error) bool {
			if errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return containsAny(msg,
				"connection refused", "connection reset", "broken pipe",
				"no such host", "i/o timeout", "unexpected eof",
				"temporary failure", "network is unreachable",
				"502", "503", "504", "bad gateway", "service unavailable", "gateway timeout")
		},
		category:  types.CategoryNetworkTransient,
		retryable: true,
		action:    types.ActionRetrySame,
		code:      "NETWORK_ERROR",
	},
	{
		match: func(msg string, err error) bool {
			return containsAny(msg, "max_tokens", "truncated", "output cut off", "stop_reason: max_tokens", "response too long")
		},
		category:  types.CategoryLLMTruncation,
		retryable: true,
		action:    types.ActionRetrySplit,
		code:      "OUTPUT_TRUNCATED",
	},
	{
		match: func(msg string, err error) bool {
			return containsAny(msg,
				"invalid json", "failed to parse model output", "unparseable",
				"missing required field", "malformed diff", "invalid patch format")
		},
		category:  types.CategoryLLMInvalidOutput,
		retryable: true,
		action:    types.ActionRegenerate,
		code:      "INVALID_MODEL_OUTPUT",
	},
	{
		match: func(msg string, err error) bool {
			return containsAny(msg, "base content hash mismatch", "apply conflict", "patch does not apply", "hunk failed")
		},
		category:  types.CategoryApplyConflict,
		retryable: true,
		action:    types.ActionRegenerate,
		code:      "APPLY_CONFLICT",
	},
	{
		match: func(msg string, err error) bool {
			return containsAny(msg, "permission denied", "operation not permitted", "read-only file system", "access denied", "401", "403", "authentication")
		},
		category:  types.CategoryPermission,
		retryable: false,
		action:    types.ActionAskUser,
		code:      "PERMISSION_DENIED",
	},
	{
		match: func(msg string, err error) bool {
			return containsAny(msg,
				"no such file or directory", "file exists",
				"uncommitted changes", "dirty worktree", "workspace modified externally",
				"checkpoint missing", "disk full", "no space left")
		},
		category:  types.CategoryWorkspaceState,
		retryable: false,
		action:    types.ActionPause,
		code:      "WORKSPACE_STATE",
	},
	{
		match: func(msg string, err error) bool {
			return containsAny(msg, "tests failed", "verification failed", "acceptance criteria not met")
		},
		category:  types.CategoryVerificationFailure,
		retryable: true,
		action:    types.ActionRegenerate,
		code:      "VERIFICATION_FAILED",
	},
	{
		match: func(msg string, err error) bool {
			return containsAny(msg, "command not found", "executable file not found", "exit status", "tool crashed", "signal: killed")
		},
		category:  types.CategoryToolFailure,
		retryable: true,
		action:    types.ActionRetrySame,
		code:      "TOOL_FAILED",
	},
	{
		match: func(msg string, err error) bool {
			return containsAny(msg, "user input required", "clarification needed", "ambiguous instruction")
		},
		category:  types.CategoryUserInput,
		retryable: false,
		action:    types.ActionAskUser,
		code:      "USER_INPUT_REQUIRED",
	},
	{
		match: func(msg string, err error) bool {
			return containsAny(msg, "nil pointer", "index out of range", "invariant violated", "impossible state", "panic:")
		},
		category:  types.CategoryInternalBug,
		retryable: false,
		action:    types.ActionAbort,
		code:      "INTERNAL_BUG",
	},
}

// Classify maps an error plus its context to a descriptor. The cascade
// is ordered, first match wins; anything that matches nothing lands in
// INTERNAL_BUG, because an unrecognized error is a gap in this table.
//
// The side-effect override runs after the cascade: an error that occurred
// after the tool already mutated the workspace is never auto-retried,
// regardless of category, because a blind retry could double-apply.
func Classify(err error, cctx types.ClassifyContext) types.ErrorDescriptor {
	if err == nil {
		return types.ErrorDescriptor{
			Category:        types.CategoryInternalBug,
			Retryable:       false,
			SuggestedAction: types.ActionAbort,
			Message:         "classify called with nil error",
			Code:            "INTERNAL_BUG",
		}
	}

	msg := strings.ToLower(err.Error())
	desc := types.ErrorDescriptor{
		Category:        types.CategoryInternalBug,
		Retryable:       false,
		SuggestedAction: types.ActionAbort,
		Message:         err.Error(),
		Code:            "UNRECOGNIZED",
	}
	for _, r := range rules {
		if r.match(msg, err) {
			desc.Category = r.category
			desc.Retryable = r.retryable
			desc.SuggestedAction = r.action
			desc.Code = r.code
			break
		}
	}

	if cctx.ToolHadSideEffect && desc.Retryable {
		desc.Retryable = false
		desc.SuggestedAction = types.ActionPause
		desc.Detail = withDetail(desc.Detail, "side_effect_override", "true")
	}
	if cctx.Stage != "" {
		desc.Detail = withDetail(desc.Detail, "stage", string(cctx.Stage))
	}
	if cctx.AffectedFile != "" {
		desc.Detail = withDetail(desc.Detail, "affected_file", cctx.AffectedFile)
	}
	return desc
}

func withDetail(m map[string]string, k, v string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m[k] = v
	return m
}
