package recovery

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// BuildDecisionPoint constructs the bounded question presented to a
// human when the ladder is exhausted. Every decision point carries an
// abort option, and at most one option is marked default.
func BuildDecisionPoint(desc types.ErrorDescriptor, dctx types.DecisionContext) types.DecisionPoint {
	opts := optionsForCategory(desc.Category)
	opts = append(opts, types.DecisionOption{
		ID:     "abort",
		Label:  "Abort this step",
		Action: types.DecisionAbortStep,
		Safe:   true,
	})

	seenDefault := false
	for i := range opts {
		if opts[i].Default {
			if seenDefault {
				opts[i].Default = false
			}
			seenDefault = true
		}
	}

	return types.DecisionPoint{
		ID:      uuid.New().String(),
		Title:   titleForCategory(desc.Category),
		Summary: fmt.Sprintf("%s (%s)", desc.Message, desc.Code),
		Options: opts,
		Context: dctx,
	}
}

func optionsForCategory(cat types.ErrorCategory) []types.DecisionOption {
	switch cat {
	case types.CategoryNetworkTransient, types.CategoryRateLimit, types.CategoryToolFailure:
		return []types.DecisionOption{
			{ID: "retry", Label: "Retry now", Action: types.DecisionRetryNow, Safe: true, Default: true},
		}
	case types.CategoryLLMTruncation:
		return []types.DecisionOption{
			{ID: "split", Label: "Split the work and retry", Action: types.DecisionSplitAndRetry, Safe: true, Default: true},
			{ID: "retry", Label: "Retry as-is", Action: types.DecisionRetryNow, Safe: true},
		}
	case types.CategoryLLMInvalidOutput, types.CategoryApplyConflict, types.CategoryVerificationFailure:
		return []types.DecisionOption{
			{ID: "regenerate", Label: "Regenerate with failure context", Action: types.DecisionRegenerate, Safe: true, Default: true},
			{ID: "skip", Label: "Skip the affected file", Action: types.DecisionSkipFile, Safe: true},
		}
	case types.CategoryPermission, types.CategoryUserInput:
		return []types.DecisionOption{
			{ID: "provide", Label: "Provide the missing input", Action: types.DecisionProvideInfo, Safe: true, Default: true},
		}
	case types.CategoryWorkspaceState:
		return []types.DecisionOption{
			{ID: "retry", Label: "Retry after fixing the workspace", Action: types.DecisionRetryNow, Safe: true},
			{ID: "edit", Label: "Edit the plan", Action: types.DecisionEditPlan, Safe: true},
		}
	default:
		// INTERNAL_BUG and anything unrecognized: abort only.
		return nil
	}
}

func titleForCategory(cat types.ErrorCategory) string {
	switch cat {
	case types.CategoryNetworkTransient:
		return "Network problem persists"
	case types.CategoryRateLimit:
		return "Rate limited by the model API"
	case types.CategoryLLMTruncation:
		return "Model output keeps getting truncated"
	case types.CategoryLLMInvalidOutput:
		return "Model output is not usable"
	case types.CategoryToolFailure:
		return "A tool keeps failing"
	case types.CategoryApplyConflict:
		return "Proposed changes no longer apply"
	case types.CategoryVerificationFailure:
		return "Verification keeps failing"
	case types.CategoryWorkspaceState:
		return "Workspace is in an unexpected state"
	case types.CategoryPermission:
		return "Missing permission"
	case types.CategoryUserInput:
		return "Input needed to continue"
	default:
		return "Automatic recovery failed"
	}
}
