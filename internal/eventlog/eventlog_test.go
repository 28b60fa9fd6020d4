package eventlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kalyank1144/Ordinex-sub008/internal/events"
	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.ndjson")
	log, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func startedEvent(taskID, missionID string) *events.Event {
	return events.New(taskID, types.ModeAssisted, types.StageRetrieveContext, &events.MissionStartedPayload{
		MissionID:    missionID,
		Title:        "test mission",
		RepairBudget: 2,
	})
}

func TestAppendAndReplayPreservesOrder(t *testing.T) {
	log := openTestLog(t)

	first := startedEvent("task-1", "m-1")
	second := events.NewStageChanged("task-1", "m-1", types.ModeAssisted,
		types.StageRetrieveContext, types.StageProposePatchPlan, "context_ready")

	require.NoError(t, log.Append(first))
	require.NoError(t, log.Append(second))

	replayed, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, replayed, 2)
	assert.Equal(t, first.ID, replayed[0].ID)
	assert.Equal(t, second.ID, replayed[1].ID)
	assert.Equal(t, events.EventTypeStageChanged, replayed[1].Type)
}

func TestAppendRejectsInvalidEvent(t *testing.T) {
	log := openTestLog(t)

	bad := startedEvent("", "m-1")
	err := log.Append(bad)
	require.Error(t, err)

	replayed, err := log.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, replayed)
}

func TestReplaySurvivesProcessRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")

	log, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, log.Append(startedEvent("task-1", "m-1")))
	require.NoError(t, log.Close())

	reopened, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	replayed, err := reopened.ReadAll()
	require.NoError(t, err)
	require.Len(t, replayed, 1)
	assert.Equal(t, events.EventTypeMissionStarted, replayed[0].Type)
}

func TestReplaySkipsTornFinalLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")

	log, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, log.Append(startedEvent("task-1", "m-1")))
	require.NoError(t, log.Close())

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"e-torn","task_id":"task-1","ty`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	replayed, err := reopened.ReadAll()
	require.NoError(t, err)
	require.Len(t, replayed, 1)
}

func TestEventsByTaskFiltersAndClones(t *testing.T) {
	log := openTestLog(t)

	require.NoError(t, log.Append(startedEvent("task-1", "m-1")))
	require.NoError(t, log.Append(startedEvent("task-2", "m-2")))

	got, err := log.EventsByTask("task-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "task-1", got[0].TaskID)

	got[0].Payload.(*events.MissionStartedPayload).Title = "mutated"
	again, err := log.EventsByTask("task-1")
	require.NoError(t, err)
	assert.Equal(t, "test mission", again[0].Payload.(*events.MissionStartedPayload).Title)
}

func TestBusPersistsBeforeFanOut(t *testing.T) {
	log := openTestLog(t)
	bus := NewBus(log, zap.NewNop())

	var sawOnDisk bool
	bus.Subscribe(func(ev *events.Event) {
		replayed, err := log.ReadAll()
		require.NoError(t, err)
		for _, r := range replayed {
			if r.ID == ev.ID {
				sawOnDisk = true
			}
		}
	})

	require.NoError(t, bus.Publish(startedEvent("task-1", "m-1")))
	assert.True(t, sawOnDisk, "subscriber observed an event not yet durable")
}

func TestBusIsolatesPanickingSubscriber(t *testing.T) {
	log := openTestLog(t)
	bus := NewBus(log, zap.NewNop())

	bus.Subscribe(func(*events.Event) { panic("boom") })
	var delivered int
	bus.Subscribe(func(*events.Event) { delivered++ })

	require.NoError(t, bus.Publish(startedEvent("task-1", "m-1")))
	assert.Equal(t, 1, delivered)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	log := openTestLog(t)
	bus := NewBus(log, zap.NewNop())

	var delivered int
	unsub := bus.Subscribe(func(*events.Event) { delivered++ })

	require.NoError(t, bus.Publish(startedEvent("task-1", "m-1")))
	unsub()
	require.NoError(t, bus.Publish(startedEvent("task-1", "m-1")))

	assert.Equal(t, 1, delivered)
}
