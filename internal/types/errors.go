package types

// ErrorCategory is the closed failure taxonomy. Every failure anywhere in
// the core is funneled into exactly one of these before any retry decision
// is made.
type ErrorCategory string

const (
	// CategoryNetworkTransient covers connection resets, 5xx responses,
	// service overload, and request timeouts against external services.
	CategoryNetworkTransient ErrorCategory = "NETWORK_TRANSIENT"
	// CategoryRateLimit is a 429 or an explicit rate-limit signal.
	CategoryRateLimit ErrorCategory = "RATE_LIMIT"
	// CategoryLLMTruncation means the generation service cut its output
	// short. Never retryable as-is, only splittable.
	CategoryLLMTruncation ErrorCategory = "LLM_TRUNCATION"
	// CategoryLLMInvalidOutput means the response parsed but failed schema
	// or structural validation.
	CategoryLLMInvalidOutput ErrorCategory = "LLM_INVALID_OUTPUT"
	// CategoryToolFailure is a host tool that timed out, crashed, or was
	// not found.
	CategoryToolFailure ErrorCategory = "TOOL_FAILURE"
	// CategoryApplyConflict is a hunk mismatch or stale-context apply failure.
	CategoryApplyConflict ErrorCategory = "APPLY_CONFLICT"
	// CategoryVerificationFailure is a failed test, lint, or build check.
	CategoryVerificationFailure ErrorCategory = "VERIFICATION_FAILURE"
	// CategoryWorkspaceState is a missing file, missing directory, or other
	// unexpected workspace condition.
	CategoryWorkspaceState ErrorCategory = "WORKSPACE_STATE"
	// CategoryPermission is a denied file or path-traversal attempt.
	CategoryPermission ErrorCategory = "PERMISSION"
	// CategoryUserInput is a problem only the user can resolve.
	CategoryUserInput ErrorCategory = "USER_INPUT"
	// CategoryInternalBug is the fallthrough: an error the cascade could
	// not place. Never retried; always escalated.
	CategoryInternalBug ErrorCategory = "INTERNAL_BUG"
)

// IsValid reports whether the category is part of the closed taxonomy.
func (c ErrorCategory) IsValid() bool {
	switch c {
	case CategoryNetworkTransient, CategoryRateLimit, CategoryLLMTruncation,
		CategoryLLMInvalidOutput, CategoryToolFailure, CategoryApplyConflict,
		CategoryVerificationFailure, CategoryWorkspaceState,
		CategoryPermission, CategoryUserInput, CategoryInternalBug:
		return true
	}
	return false
}

// SuggestedAction is the classifier's recommendation for what to do next.
// The recovery ladder may downgrade it; it never upgrades it.
type SuggestedAction string

const (
	ActionRetrySame  SuggestedAction = "RETRY_SAME"
	ActionRetrySplit SuggestedAction = "RETRY_SPLIT"
	ActionRegenerate SuggestedAction = "REGENERATE"
	ActionAskUser    SuggestedAction = "ASK_USER"
	ActionPause      SuggestedAction = "PAUSE"
	ActionAbort      SuggestedAction = "ABORT"
)

// ErrorDescriptor is the canonical shape for any failure in the system.
// It is produced by classification, consumed by the recovery ladder and by
// decision-point construction, and persisted only inside event payloads.
type ErrorDescriptor struct {
	Category ErrorCategory `json:"category"`
	// Retryable reports whether an automatic retry is permitted at all.
	// Once a side-effecting tool has run, this is forced false.
	Retryable       bool            `json:"retryable"`
	SuggestedAction SuggestedAction `json:"suggested_action"`
	// Message is the short user-facing explanation.
	Message string `json:"message"`
	// Code is the stable machine-readable identifier, e.g. "RATE_LIMITED".
	Code string `json:"code"`
	// Detail carries developer-facing context: raw message, truncated
	// stack, whatever the classifier had in hand.
	Detail map[string]string `json:"detail,omitempty"`
}

// ClassifyContext is the context object handed to the universal classifier
// alongside the raw error.
type ClassifyContext struct {
	// Stage is the execution stage the error occurred in.
	Stage Stage `json:"stage,omitempty"`
	// ToolHadSideEffect is the single most important flag: once a
	// side-effecting tool has executed, automatic retry is permanently
	// forbidden for this attempt.
	ToolHadSideEffect bool `json:"tool_had_side_effect"`
	// AffectedFile is the file involved, when known.
	AffectedFile string `json:"affected_file,omitempty"`
}
