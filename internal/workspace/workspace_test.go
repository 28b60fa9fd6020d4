package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return ws
}

func writeFile(t *testing.T, ws *Workspace, rel, content string) {
	t.Helper()
	abs := filepath.Join(ws.Root(), rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func TestResolveRejectsEscapes(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.ReadFile("../outside.txt")
	assert.Error(t, err)

	_, err = ws.ReadFile("/etc/passwd")
	assert.Error(t, err)
}

func TestSnapshotAndStaleness(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "a.go", "package a\n")
	writeFile(t, ws, "b.go", "package b\n")

	snap, err := ws.Snapshot([]string{"a.go", "b.go", "missing.go"})
	require.NoError(t, err)
	assert.Len(t, snap, 3)
	assert.Empty(t, snap["missing.go"])

	stale, err := ws.CheckStaleness(snap)
	require.NoError(t, err)
	assert.Empty(t, stale)

	writeFile(t, ws, "b.go", "package b // drifted\n")
	writeFile(t, ws, "missing.go", "package missing\n")

	stale, err = ws.CheckStaleness(snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go", "missing.go"}, stale)
}

func TestApplyPatchesVerifiesBaseHash(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "a.go", "old content")

	patches := []types.Patch{{
		Path:            "a.go",
		Action:          types.PatchUpdate,
		NewContent:      "new content",
		BaseContentHash: HashBytes([]byte("different base")),
	}}

	_, err := ws.ApplyPatches(patches)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base content hash mismatch")

	// Nothing was written.
	data, err := ws.ReadFile("a.go")
	require.NoError(t, err)
	assert.Equal(t, "old content", string(data))
}

func TestApplyPatchesAllOrNothingVerification(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "good.go", "good")

	patches := []types.Patch{
		{Path: "good.go", Action: types.PatchUpdate, NewContent: "changed", BaseContentHash: HashBytes([]byte("good"))},
		{Path: "missing.go", Action: types.PatchUpdate, NewContent: "x"},
	}

	_, err := ws.ApplyPatches(patches)
	require.Error(t, err)

	data, err := ws.ReadFile("good.go")
	require.NoError(t, err)
	assert.Equal(t, "good", string(data), "verification failure must precede any write")
}

func TestApplyPatchesCreateUpdateDelete(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "update.go", "before")
	writeFile(t, ws, "delete.go", "doomed")

	patches := []types.Patch{
		{Path: "new/created.go", Action: types.PatchCreate, NewContent: "fresh"},
		{Path: "update.go", Action: types.PatchUpdate, NewContent: "after", BaseContentHash: HashBytes([]byte("before"))},
		{Path: "delete.go", Action: types.PatchDelete, BaseContentHash: HashBytes([]byte("doomed"))},
	}

	touched, err := ws.ApplyPatches(patches)
	require.NoError(t, err)
	assert.Equal(t, []string{"new/created.go", "update.go", "delete.go"}, touched)

	data, err := ws.ReadFile("new/created.go")
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))

	data, err = ws.ReadFile("update.go")
	require.NoError(t, err)
	assert.Equal(t, "after", string(data))

	assert.False(t, ws.Exists("delete.go"))
}

func TestApplyPatchesRejectsCreateOverExisting(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "a.go", "here")

	_, err := ws.ApplyPatches([]types.Patch{{Path: "a.go", Action: types.PatchCreate, NewContent: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCheckpointRollback(t *testing.T) {
	ws := newTestWorkspace(t)
	writeFile(t, ws, "a.go", "original a")
	store, err := NewCheckpointStore(ws, filepath.Join(t.TempDir(), "checkpoints"), zap.NewNop())
	require.NoError(t, err)

	// Checkpoint covers one existing and one not-yet-existing file.
	id, err := store.Create([]string{"a.go", "b.go"})
	require.NoError(t, err)
	require.True(t, store.Exists(id))

	_, err = ws.ApplyPatches([]types.Patch{
		{Path: "a.go", Action: types.PatchUpdate, NewContent: "mutated a", BaseContentHash: HashBytes([]byte("original a"))},
		{Path: "b.go", Action: types.PatchCreate, NewContent: "created b"},
	})
	require.NoError(t, err)

	require.NoError(t, store.Rollback(id))

	data, err := ws.ReadFile("a.go")
	require.NoError(t, err)
	assert.Equal(t, "original a", string(data))
	assert.False(t, ws.Exists("b.go"), "rollback removes files the diff created")
}

func TestRollbackMissingCheckpointFails(t *testing.T) {
	ws := newTestWorkspace(t)
	store, err := NewCheckpointStore(ws, filepath.Join(t.TempDir(), "checkpoints"), zap.NewNop())
	require.NoError(t, err)

	err = store.Rollback("no-such-checkpoint")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint missing")
}
