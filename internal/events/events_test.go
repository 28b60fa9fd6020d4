package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

func TestNewSetsTypeFromPayload(t *testing.T) {
	ev := New("task-1", types.ModeAssisted, types.StageRunTests, &TestRunStartedPayload{
		MissionID: "m-1",
		Commands:  []string{"go test ./..."},
	})

	assert.Equal(t, EventTypeTestRunStarted, ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "task-1", ev.TaskID)
	assert.False(t, ev.Timestamp.IsZero())
	require.NoError(t, ev.Validate())
}

func TestEventJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
	}{
		{
			name: "mission started",
			payload: &MissionStartedPayload{
				MissionID:    "m-1",
				Title:        "fix flaky auth test",
				LikelyFiles:  []string{"internal/auth/session.go"},
				OutOfScope:   []string{"vendor/**"},
				RepairBudget: 2,
			},
		},
		{
			name: "diff applied",
			payload: &DiffAppliedPayload{
				MissionID:    "m-1",
				DiffID:       "d-7",
				CheckpointID: "cp-3",
				Files:        []string{"internal/auth/session.go"},
				Repair:       true,
			},
		},
		{
			name: "failure classified",
			payload: &FailureClassifiedPayload{
				MissionID: "m-1",
				Classification: types.FailureClassification{
					Type:        types.FailureAssertion,
					Signature:   "a1b2c3d4e5f60718",
					Summary:     "TestLogin: expected 200, got 401",
					CodeFixable: true,
					Tests:       []string{"TestLogin"},
				},
			},
		},
		{
			name: "decision point created",
			payload: &DecisionPointCreatedPayload{
				MissionID: "m-1",
				DecisionPoint: types.DecisionPoint{
					ID:    "dp-1",
					Title: "Repair budget exhausted",
					Options: []types.DecisionOption{
						{ID: "retry", Label: "Retry once more", Action: types.DecisionRetryNow, Safe: true, Default: true},
						{ID: "abort", Label: "Abort this step", Action: types.DecisionAbortStep, Safe: true},
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := New("task-1", types.ModeAuto, types.StageRepairLoop, tt.payload)
			original.WithParent("parent-1").WithEvidence("ev-1", "ev-2")

			data, err := json.Marshal(original)
			require.NoError(t, err)

			var decoded Event
			require.NoError(t, json.Unmarshal(data, &decoded))

			assert.Equal(t, original.ID, decoded.ID)
			assert.Equal(t, original.Type, decoded.Type)
			assert.Equal(t, original.ParentEventID, decoded.ParentEventID)
			assert.Equal(t, original.EvidenceIDs, decoded.EvidenceIDs)
			assert.Equal(t, tt.payload, decoded.Payload)
			require.NoError(t, decoded.Validate())
		})
	}
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	raw := `{"id":"e-1","task_id":"task-1","timestamp":"2026-01-02T15:04:05Z","type":"mystery_event"}`

	var ev Event
	err := json.Unmarshal([]byte(raw), &ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestValidateRejectsMismatchedPayload(t *testing.T) {
	ev := New("task-1", types.ModeAssisted, types.StageApplyDiff, &DiffAppliedPayload{
		MissionID: "m-1",
		DiffID:    "d-1",
	})
	ev.Type = EventTypeMissionCompleted

	err := ev.Validate()
	require.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	ev := New("task-1", types.ModeAssisted, types.StageApplyDiff, &DiffAppliedPayload{
		MissionID: "m-1",
		DiffID:    "d-1",
		Files:     []string{"a.go"},
	})

	clone := ev.Clone()
	clone.Payload.(*DiffAppliedPayload).Files[0] = "b.go"
	clone.EvidenceIDs = append(clone.EvidenceIDs, "ev-1")

	assert.Equal(t, "a.go", ev.Payload.(*DiffAppliedPayload).Files[0])
	assert.Empty(t, ev.EvidenceIDs)
}

func TestEventTypeIsValid(t *testing.T) {
	assert.True(t, EventTypeMissionStarted.IsValid())
	assert.True(t, EventTypeDecisionPointResolved.IsValid())
	assert.False(t, EventType("nope").IsValid())
}
