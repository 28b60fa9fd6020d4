// Package recovery implements the escalation ladder that runs between a
// classified error and a human decision point. The ladder is strictly
// ordered and bounded; when its ceilings are spent the only remaining
// move is asking a human.
package recovery

import (
	"math/rand"
	"time"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// Phase is one rung of the escalation ladder.
type Phase string

const (
	// PhaseRetrySame repeats the identical operation, with backoff.
	PhaseRetrySame Phase = "RETRY_SAME"
	// PhaseRetrySplit retries with the work divided into smaller pieces.
	PhaseRetrySplit Phase = "RETRY_SPLIT"
	// PhaseRegenerate discards the failed artifact and regenerates it
	// with the failure context included.
	PhaseRegenerate Phase = "REGENERATE_PATCH"
	// PhaseDecisionPoint hands the problem to a human.
	PhaseDecisionPoint Phase = "DECISION_POINT"
)

// Policy bounds the ladder. Ceilings are per error signature: a new
// failure mode gets a fresh ladder, a repeat keeps climbing the old one.
type Policy struct {
	MaxSameRetries int
	MaxSplits      int
	MaxRegenerates int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	JitterMax      time.Duration
}

// DefaultPolicy returns the standard ladder bounds.
func DefaultPolicy() Policy {
	return Policy{
		MaxSameRetries: 2,
		MaxSplits:      1,
		MaxRegenerates: 1,
		BackoffBase:    time.Second,
		BackoffCap:     30 * time.Second,
		JitterMax:      time.Second,
	}
}

// State tracks ladder progress for one error signature. The zero value
// is a fresh ladder. State is a value type: callers thread it through
// Next explicitly, which keeps the ladder trivially replayable.
type State struct {
	Signature   string
	SameRetries int
	Splits      int
	Regenerates int
	// Attempt counts every rung climbed, for backoff and event payloads.
	Attempt int
}

// Next picks the rung for a classified error and returns the advanced
// state. Non-retryable errors short-circuit to a decision point. Each
// category owns its ladder step: transient categories retry verbatim,
// truncation only ever splits, bad artifacts regenerate. A category with
// no remaining step, or no step at all, escalates to a human.
func (p Policy) Next(desc types.ErrorDescriptor, st State) (Phase, State) {
	st.Attempt++

	if !desc.Retryable {
		return PhaseDecisionPoint, st
	}

	switch desc.Category {
	case types.CategoryNetworkTransient, types.CategoryRateLimit, types.CategoryToolFailure:
		if st.SameRetries < p.MaxSameRetries {
			st.SameRetries++
			return PhaseRetrySame, st
		}
	case types.CategoryLLMTruncation:
		// Truncated output is never retried as-is; repeating the same
		// request reproduces the same overflow.
		if st.Splits < p.MaxSplits {
			st.Splits++
			return PhaseRetrySplit, st
		}
	case types.CategoryLLMInvalidOutput, types.CategoryApplyConflict, types.CategoryVerificationFailure:
		if st.Regenerates < p.MaxRegenerates {
			st.Regenerates++
			return PhaseRegenerate, st
		}
	}
	return PhaseDecisionPoint, st
}

// Backoff computes the wait before retry attempt n (0-based): base
// doubled per attempt plus uniform jitter, capped. Jitter keeps
// concurrent missions from retrying in lockstep.
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BackoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.BackoffCap {
			d = p.BackoffCap
			break
		}
	}
	if p.JitterMax > 0 {
		d += time.Duration(rand.Int63n(int64(p.JitterMax)))
	}
	if d > p.BackoffCap {
		d = p.BackoffCap
	}
	return d
}
