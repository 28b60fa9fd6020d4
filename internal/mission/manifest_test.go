package mission

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
title: Fix widget rendering
scope:
  likely_files:
    - widget.go
    - widget_test.go
  out_of_scope:
    - vendor/**
steps:
  - id: inspect
    description: Read the current rendering path
  - description: Patch the off-by-one in layout
verification:
  test_commands:
    - go test ./internal/widget/...
  acceptance_criteria: widgets render at the right offset
`

func TestParseManifest(t *testing.T) {
	mission, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, "Fix widget rendering", mission.Title)
	assert.NotEmpty(t, mission.ID)
	assert.Equal(t, []string{"widget.go", "widget_test.go"}, mission.Scope.LikelyFiles)
	assert.Equal(t, []string{"vendor/**"}, mission.Scope.OutOfScope)

	require.Len(t, mission.Steps, 2)
	assert.Equal(t, "inspect", mission.Steps[0].ID)
	assert.Equal(t, "step-2", mission.Steps[1].ID, "missing step ids get positional defaults")

	require.NotNil(t, mission.Verification)
	assert.Equal(t, []string{"go test ./internal/widget/..."}, mission.Verification.TestCommands)
	assert.Equal(t, "widgets render at the right offset", mission.Verification.AcceptanceCriteria)
	assert.False(t, mission.CreatedAt.IsZero())
}

func TestParseManifestGeneratesUniqueIDs(t *testing.T) {
	a, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)
	b, err := ParseManifest([]byte(sampleManifest))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestParseManifestRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"no title", "steps:\n  - description: something\n"},
		{"no steps", "title: Something\n"},
		{"malformed yaml", "title: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mission.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	mission, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "Fix widget rendering", mission.Title)

	_, err = LoadManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
