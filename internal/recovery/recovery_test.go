package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

func retryableDesc(action types.SuggestedAction) types.ErrorDescriptor {
	return types.ErrorDescriptor{
		Category:        types.CategoryNetworkTransient,
		Retryable:       true,
		SuggestedAction: action,
		Message:         "connection refused",
		Code:            "NETWORK_ERROR",
	}
}

func TestLadderStepsAreBoundedPerCategory(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name   string
		desc   types.ErrorDescriptor
		phases []Phase
	}{
		{
			name: "transient retries verbatim then escalates",
			desc: retryableDesc(types.ActionRetrySame),
			phases: []Phase{
				PhaseRetrySame,
				PhaseRetrySame,
				PhaseDecisionPoint,
				PhaseDecisionPoint,
			},
		},
		{
			name: "truncation splits exactly once",
			desc: types.ErrorDescriptor{
				Category:        types.CategoryLLMTruncation,
				Retryable:       true,
				SuggestedAction: types.ActionRetrySplit,
			},
			phases: []Phase{
				PhaseRetrySplit,
				PhaseDecisionPoint,
			},
		},
		{
			name: "invalid output regenerates exactly once",
			desc: types.ErrorDescriptor{
				Category:        types.CategoryLLMInvalidOutput,
				Retryable:       true,
				SuggestedAction: types.ActionRegenerate,
			},
			phases: []Phase{
				PhaseRegenerate,
				PhaseDecisionPoint,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st State
			var phases []Phase
			for range tt.phases {
				var phase Phase
				phase, st = p.Next(tt.desc, st)
				phases = append(phases, phase)
			}
			assert.Equal(t, tt.phases, phases)
			assert.Equal(t, len(tt.phases), st.Attempt)
		})
	}
}

func TestTruncationNeverRetriesVerbatim(t *testing.T) {
	p := DefaultPolicy()
	desc := types.ErrorDescriptor{
		Category:        types.CategoryLLMTruncation,
		Retryable:       true,
		SuggestedAction: types.ActionRetrySplit,
		Code:            "OUTPUT_TRUNCATED",
	}

	// With the split already spent, truncation goes to a human, never to
	// a verbatim retry or a regenerate of the same oversized request.
	phase, _ := p.Next(desc, State{Splits: 1})
	assert.Equal(t, PhaseDecisionPoint, phase)
}

func TestCategoryWithoutLadderStepEscalates(t *testing.T) {
	p := DefaultPolicy()
	desc := types.ErrorDescriptor{
		Category:        types.CategoryUserInput,
		Retryable:       true,
		SuggestedAction: types.ActionAskUser,
	}

	phase, st := p.Next(desc, State{})
	assert.Equal(t, PhaseDecisionPoint, phase)
	assert.Zero(t, st.SameRetries)
	assert.Zero(t, st.Splits)
	assert.Zero(t, st.Regenerates)
}

func TestNonRetryableShortCircuits(t *testing.T) {
	p := DefaultPolicy()
	desc := types.ErrorDescriptor{
		Category:        types.CategoryPermission,
		Retryable:       false,
		SuggestedAction: types.ActionAskUser,
	}

	phase, st := p.Next(desc, State{})
	assert.Equal(t, PhaseDecisionPoint, phase)
	assert.Zero(t, st.SameRetries)
	assert.Zero(t, st.Splits)
	assert.Zero(t, st.Regenerates)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	p := Policy{
		BackoffBase: time.Second,
		BackoffCap:  8 * time.Second,
	}

	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 8*time.Second, p.Backoff(3))
	assert.Equal(t, 8*time.Second, p.Backoff(10))
}

func TestBackoffJitterStaysUnderCap(t *testing.T) {
	p := DefaultPolicy()
	for i := 0; i < 50; i++ {
		d := p.Backoff(10)
		assert.LessOrEqual(t, d, p.BackoffCap)
		assert.Positive(t, d)
	}
}

func TestBuildDecisionPointAlwaysHasAbort(t *testing.T) {
	for _, cat := range []types.ErrorCategory{
		types.CategoryNetworkTransient,
		types.CategoryLLMTruncation,
		types.CategoryApplyConflict,
		types.CategoryPermission,
		types.CategoryWorkspaceState,
		types.CategoryInternalBug,
	} {
		t.Run(string(cat), func(t *testing.T) {
			dp := BuildDecisionPoint(types.ErrorDescriptor{Category: cat, Message: "boom", Code: "X"}, types.DecisionContext{})

			var hasAbort bool
			defaults := 0
			for _, opt := range dp.Options {
				if opt.Action == types.DecisionAbortStep {
					hasAbort = true
				}
				if opt.Default {
					defaults++
				}
			}
			assert.True(t, hasAbort, "abort option is mandatory")
			assert.LessOrEqual(t, defaults, 1, "at most one default option")
			assert.NotEmpty(t, dp.ID)
			require.NotEmpty(t, dp.Options)
		})
	}
}

func TestBuildDecisionPointCarriesContext(t *testing.T) {
	dctx := types.DecisionContext{
		TaskID:        "task-1",
		MissionID:     "m-1",
		ErrorCategory: types.CategoryApplyConflict,
		AffectedFiles: []string{"internal/auth/session.go"},
	}
	dp := BuildDecisionPoint(types.ErrorDescriptor{
		Category: types.CategoryApplyConflict,
		Message:  "base content hash mismatch",
		Code:     "APPLY_CONFLICT",
	}, dctx)

	assert.Equal(t, dctx, dp.Context)
	assert.Contains(t, dp.Summary, "APPLY_CONFLICT")
}
