package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test.
// It mirrors (*testing.T).Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Mission.RepairBudget)
	assert.Equal(t, 10*time.Minute, cfg.Mission.StageTimeout)
	assert.False(t, cfg.Mission.AutoApprove)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Events.LogPath)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ordinex.yaml")
	content := `
mission:
  repair_budget: 5
  auto_approve: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Mission.RepairBudget)
	assert.True(t, cfg.Mission.AutoApprove)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset keys keep defaults.
	assert.Equal(t, 10*time.Minute, cfg.Mission.StageTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ORDINEX_MISSION_REPAIR_BUDGET", "7")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Mission.RepairBudget)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Mission.RepairBudget = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LLM.MaxTokens = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Events.LogPath = ""
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}
