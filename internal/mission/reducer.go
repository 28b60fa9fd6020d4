package mission

import (
	"fmt"

	"github.com/kalyank1144/Ordinex-sub008/internal/events"
	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// Reduce folds a task's events, oldest first, into the run state. The
// reducer is pure: replaying the same events always produces the same
// state, which is what makes the log the source of truth.
func Reduce(evs []*events.Event) (*types.MissionRunState, error) {
	var st *types.MissionRunState

	for _, ev := range evs {
		switch payload := ev.Payload.(type) {
		case *events.MissionStartedPayload:
			st = types.NewMissionRunState(ev.TaskID, payload.MissionID, ev.Mode, payload.RepairBudget)
			st.StartedAt = ev.Timestamp

		case *events.StageChangedPayload:
			if st == nil {
				return nil, fmt.Errorf("stage_changed before mission_started (event %s)", ev.ID)
			}
			st.PreviousStage = st.CurrentStage
			st.CurrentStage = payload.To

		case *events.MissionPausedPayload:
			if st == nil {
				continue
			}
			st.PauseReason = payload.Reason
			st.PauseOptions = payload.Options
			if payload.DecisionPoint != nil {
				st.PauseOptions = nil
				for _, opt := range payload.DecisionPoint.Options {
					st.PauseOptions = append(st.PauseOptions, opt.ID)
				}
			}

		case *events.MissionResumedPayload:
			if st == nil {
				continue
			}
			st.PauseReason = ""
			st.PauseOptions = nil
			st.PreviousStage = st.CurrentStage
			st.CurrentStage = payload.FromStage

		case *events.ContextRetrievedPayload:
			// Snapshot lives in the event for the staleness re-check;
			// the reducer only needs the file list implicitly via
			// later diff events.

		case *events.DiffProposedPayload:
			if st == nil {
				continue
			}
			st.InFlightDiffID = payload.DiffID

		case *events.DiffRejectedPayload:
			if st != nil && st.InFlightDiffID == payload.DiffID {
				st.InFlightDiffID = ""
			}

		case *events.CheckpointCreatedPayload:
			if st == nil {
				continue
			}
			st.CheckpointIDs = append(st.CheckpointIDs, payload.CheckpointID)

		case *events.DiffAppliedPayload:
			if st == nil {
				continue
			}
			if st.InFlightDiffID == payload.DiffID {
				st.InFlightDiffID = ""
			}
			for _, f := range payload.Files {
				st.TouchedFiles[f] = true
			}
			// The repair budget is spent by applied repair diffs only.
			// Failed proposals and retries are free.
			if payload.Repair && st.RepairRemaining > 0 {
				st.RepairRemaining--
			}

		case *events.TestCommandApprovedPayload:
			if st == nil {
				continue
			}
			st.ApprovedTestCommands[payload.Command] = true

		case *events.FailureClassifiedPayload:
			if st == nil {
				continue
			}
			st.FailureSignatures = append(st.FailureSignatures, payload.Classification.Signature)
		}

		if st != nil {
			st.UpdatedAt = ev.Timestamp
		}
	}

	return st, nil
}

// RecoverReason is recorded when a crash interrupted a mission.
const RecoverReason = "recovered after interruption"

// ReconstructRunState rebuilds state for crash recovery. A mission that
// was mid-flight when the process died always comes back paused; it
// never silently resumes work the human did not observe stopping.
func ReconstructRunState(evs []*events.Event) (*types.MissionRunState, error) {
	st, err := Reduce(evs)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("no mission found in event history")
	}
	if !st.CurrentStage.IsTerminal() {
		st.PreviousStage = st.CurrentStage
		st.CurrentStage = types.StageMissionPaused
		st.PauseReason = RecoverReason
	}
	return st, nil
}
