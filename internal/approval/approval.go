// Package approval owns the human-in-the-loop surfaces: the two hard
// gates (apply diff, run tests) and decision point resolution. The
// orchestrator only ever talks to the Transport interface, so tests and
// unattended runs swap the terminal out without touching the machine.
package approval

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// Gate kinds presented for approval.
const (
	KindApplyDiff = "apply_diff"
	KindRunTests  = "run_tests"
)

// Request describes the action being gated.
type Request struct {
	Kind      string
	MissionID string
	// Action is the one-line statement of what will happen.
	Action string
	// Summary gives the reviewer enough to decide: affected files for a
	// diff, the command line for a test run.
	Summary string
	Details []string
}

// Decision is the reviewer's answer.
type Decision struct {
	Approved  bool
	DecidedBy string
	// AlwaysAllow marks a test command for the session allowlist so the
	// same command is not re-prompted.
	AlwaysAllow bool
}

// Transport presents approval requests and decision points to whoever
// can answer them.
type Transport interface {
	// RequestApproval blocks until the gate is decided or ctx ends.
	RequestApproval(ctx context.Context, req Request) (Decision, error)
	// ResolveDecision blocks until the human picks a decision option.
	ResolveDecision(ctx context.Context, dp types.DecisionPoint) (types.DecisionResolution, error)
}

// autoApproveEnv short-circuits every gate when set to a truthy value.
const autoApproveEnv = "ORDINEX_AUTO_APPROVE"

// AutoApproveEnabled reports whether the environment requests
// unattended approval.
func AutoApproveEnabled() bool {
	v := strings.ToLower(os.Getenv(autoApproveEnv))
	return v == "1" || v == "true" || v == "yes"
}

// AutoTransport approves every gate and resolves every decision point
// with its default option (or abort when there is none). Used for
// sandboxed and scripted runs.
type AutoTransport struct{}

// RequestApproval grants the gate without prompting.
func (AutoTransport) RequestApproval(ctx context.Context, req Request) (Decision, error) {
	return Decision{Approved: true, DecidedBy: "auto", AlwaysAllow: req.Kind == KindRunTests}, nil
}

// ResolveDecision picks the default option, falling back to abort.
func (AutoTransport) ResolveDecision(ctx context.Context, dp types.DecisionPoint) (types.DecisionResolution, error) {
	if opt := dp.DefaultOption(); opt != nil {
		return types.DecisionResolution{DecisionID: dp.ID, OptionID: opt.ID}, nil
	}
	for _, opt := range dp.Options {
		if opt.Action == types.DecisionAbortStep {
			return types.DecisionResolution{DecisionID: dp.ID, OptionID: opt.ID}, nil
		}
	}
	return types.DecisionResolution{}, fmt.Errorf("decision point %s has no default and no abort option", dp.ID)
}

// DenyTransport denies every gate. Used in tests exercising the denial
// paths.
type DenyTransport struct{}

// RequestApproval denies the gate.
func (DenyTransport) RequestApproval(ctx context.Context, req Request) (Decision, error) {
	return Decision{Approved: false, DecidedBy: "deny"}, nil
}

// ResolveDecision aborts.
func (DenyTransport) ResolveDecision(ctx context.Context, dp types.DecisionPoint) (types.DecisionResolution, error) {
	for _, opt := range dp.Options {
		if opt.Action == types.DecisionAbortStep {
			return types.DecisionResolution{DecisionID: dp.ID, OptionID: opt.ID}, nil
		}
	}
	return types.DecisionResolution{}, fmt.Errorf("decision point %s has no abort option", dp.ID)
}
