package types

// FailureType classifies raw test/build output. Distinct from ErrorCategory:
// this taxonomy describes what kind of check broke, not how to recover.
type FailureType string

const (
	FailureAssertion   FailureType = "assertion"
	FailureTypecheck   FailureType = "typecheck"
	FailureLint        FailureType = "lint"
	FailureBuild       FailureType = "build"
	FailureEnvironment FailureType = "environment"
	FailureTimeout     FailureType = "timeout"
	FailureUnknown     FailureType = "unknown"
)

// FailureClassification is the deterministic result of classifying raw
// test/build output. Two semantically identical failures always produce the
// same Signature, regardless of timestamps, PIDs, or addresses in the text.
type FailureClassification struct {
	Type FailureType `json:"type"`
	// NormalizedKey is built from the volatility-stripped signal lines.
	NormalizedKey string `json:"normalized_key"`
	// Signature is the stable 16-hex-character hash of (type, key).
	Signature string `json:"signature"`
	// Summary is a one-line human description.
	Summary string `json:"summary"`
	// CodeFixable reports whether a code change could plausibly fix this.
	// Environment and timeout failures are not code-fixable.
	CodeFixable bool `json:"code_fixable"`
	// Files are extracted file references, at most 10.
	Files []string `json:"files,omitempty"`
	// Tests are extracted test names, at most 5.
	Tests []string `json:"tests,omitempty"`
}

// TestCounts carries pass/fail counts when they could be parsed out of the
// output. Known is false when the output had no countable summary.
type TestCounts struct {
	Known  bool `json:"known"`
	Passed int  `json:"passed"`
	Failed int  `json:"failed"`
}

// IterationOutcome is the unit the loop detector consumes: one repair
// iteration's result, reduced to what convergence analysis needs.
type IterationOutcome struct {
	Iteration int    `json:"iteration"`
	Success   bool   `json:"success"`
	// FailureSignature is empty on success.
	FailureSignature string     `json:"failure_signature,omitempty"`
	TestCounts       TestCounts `json:"test_counts"`
	FilesTouched     []string   `json:"files_touched,omitempty"`
}
