package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/kalyank1144/Ordinex-sub008/internal/events"
)

// displayEvent prints one event as a single aligned line.
func displayEvent(ev *events.Event) {
	timestamp := ev.Timestamp.Local().Format("15:04:05")
	gray := color.New(color.FgHiBlack).SprintFunc()
	typeColor := color.New(color.FgMagenta).SprintFunc()

	detail := eventDetail(ev)
	if detail != "" {
		detail = "  " + gray(detail)
	}
	fmt.Printf("%s [%s] %-24s%s\n",
		eventGlyph(ev.Type),
		timestamp,
		typeColor(string(ev.Type)),
		detail,
	)
}

// eventGlyph maps event kinds to a one-glyph visual cue.
func eventGlyph(t events.EventType) string {
	switch t {
	case events.EventTypeMissionStarted:
		return "🚀"
	case events.EventTypeMissionCompleted:
		return "✅"
	case events.EventTypeMissionPaused:
		return "⏸️"
	case events.EventTypeMissionCancelled:
		return "🛑"
	case events.EventTypeMissionResumed:
		return "▶️"
	case events.EventTypeStageChanged:
		return "➡️"
	case events.EventTypeStageTimeout:
		return "⏰"
	case events.EventTypeContextRetrieved:
		return "📖"
	case events.EventTypeScopeViolation:
		return "🚫"
	case events.EventTypePlanProposed:
		return "🗺️"
	case events.EventTypeDiffProposed:
		return "📝"
	case events.EventTypeApprovalRequested, events.EventTypeApprovalResolved:
		return "🔔"
	case events.EventTypeTestCommandApproved:
		return "🔓"
	case events.EventTypeCheckpointCreated:
		return "💾"
	case events.EventTypeDiffApplied:
		return "✏️"
	case events.EventTypeDiffRejected:
		return "🙅"
	case events.EventTypeStalenessDetected:
		return "🥀"
	case events.EventTypeRollbackPerformed:
		return "↩️"
	case events.EventTypeTestRunStarted, events.EventTypeTestRunCompleted:
		return "🧪"
	case events.EventTypeFailureClassified:
		return "🔍"
	case events.EventTypeRepairAttemptStarted, events.EventTypeRepairAttemptCompleted:
		return "🔧"
	case events.EventTypeDecisionPointCreated, events.EventTypeDecisionPointResolved:
		return "🤔"
	case events.EventTypeError:
		return "❌"
	default:
		return "•"
	}
}

// eventDetail extracts the one fact worth showing inline for each kind.
func eventDetail(ev *events.Event) string {
	switch p := ev.Payload.(type) {
	case *events.MissionStartedPayload:
		return p.Title
	case *events.MissionPausedPayload:
		return p.Reason
	case *events.MissionCancelledPayload:
		return p.Reason
	case *events.MissionResumedPayload:
		return "from " + string(p.FromStage)
	case *events.StageChangedPayload:
		return fmt.Sprintf("%s → %s (%s)", p.From, p.To, p.Transition)
	case *events.StageTimeoutPayload:
		return fmt.Sprintf("%s after %ds", p.Stage, p.TimeoutSeconds)
	case *events.ContextRetrievedPayload:
		return fmt.Sprintf("%d file(s)", len(p.Files))
	case *events.ScopeViolationPayload:
		return fmt.Sprintf("%s matched %s", p.Path, p.Pattern)
	case *events.PlanProposedPayload:
		return p.Summary
	case *events.DiffProposedPayload:
		return fmt.Sprintf("%s: %s", p.DiffID, strings.Join(p.FilesAffected, ", "))
	case *events.ApprovalRequestedPayload:
		return fmt.Sprintf("%s: %s", p.Kind, p.Summary)
	case *events.ApprovalResolvedPayload:
		if p.Approved {
			return fmt.Sprintf("%s approved by %s", p.Kind, p.DecidedBy)
		}
		return fmt.Sprintf("%s denied by %s", p.Kind, p.DecidedBy)
	case *events.TestCommandApprovedPayload:
		return p.Command
	case *events.CheckpointCreatedPayload:
		return p.CheckpointID
	case *events.DiffAppliedPayload:
		return fmt.Sprintf("%s (%d file(s))", p.DiffID, len(p.Files))
	case *events.DiffRejectedPayload:
		return p.Reason
	case *events.StalenessDetectedPayload:
		return strings.Join(p.StaleFiles, ", ")
	case *events.RollbackPerformedPayload:
		return fmt.Sprintf("to %s: %s", p.CheckpointID, p.Reason)
	case *events.TestRunStartedPayload:
		return strings.Join(p.Commands, " && ")
	case *events.TestRunCompletedPayload:
		if p.Passed {
			if p.Counts.Known {
				return fmt.Sprintf("passed (%d test(s))", p.Counts.Passed)
			}
			return "passed"
		}
		return fmt.Sprintf("failed, signature %s", p.Signature)
	case *events.FailureClassifiedPayload:
		return fmt.Sprintf("%s: %s", p.Classification.Type, p.Classification.Summary)
	case *events.RepairAttemptStartedPayload:
		return fmt.Sprintf("attempt %d (%s)", p.Attempt, p.Phase)
	case *events.RepairAttemptCompletedPayload:
		if p.Success {
			return fmt.Sprintf("attempt %d succeeded", p.Attempt)
		}
		return fmt.Sprintf("attempt %d failed", p.Attempt)
	case *events.DecisionPointCreatedPayload:
		return p.DecisionPoint.Title
	case *events.DecisionPointResolvedPayload:
		return "chose " + p.Resolution.OptionID
	case *events.ErrorPayload:
		return fmt.Sprintf("%s: %s", p.Descriptor.Code, p.Descriptor.Message)
	default:
		return ""
	}
}
