package mission

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// manifestFile is the YAML shape of a mission manifest.
type manifestFile struct {
	Title string `yaml:"title"`
	Scope struct {
		LikelyFiles []string `yaml:"likely_files"`
		OutOfScope  []string `yaml:"out_of_scope"`
	} `yaml:"scope"`
	Steps []struct {
		ID          string `yaml:"id"`
		Description string `yaml:"description"`
	} `yaml:"steps"`
	Verification struct {
		TestCommands       []string `yaml:"test_commands"`
		AcceptanceCriteria string   `yaml:"acceptance_criteria"`
	} `yaml:"verification"`
}

// LoadManifest reads a mission manifest from a YAML file.
func LoadManifest(path string) (*types.Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mission manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

// ParseManifest parses and validates manifest YAML.
func ParseManifest(data []byte) (*types.Mission, error) {
	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse mission manifest: %w", err)
	}

	mission := &types.Mission{
		ID:    "mission-" + uuid.New().String(),
		Title: mf.Title,
		Scope: types.Scope{
			LikelyFiles: mf.Scope.LikelyFiles,
			OutOfScope:  mf.Scope.OutOfScope,
		},
		Verification: &types.VerificationSpec{
			TestCommands:       mf.Verification.TestCommands,
			AcceptanceCriteria: mf.Verification.AcceptanceCriteria,
		},
		CreatedAt: time.Now().UTC(),
	}
	for i, s := range mf.Steps {
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("step-%d", i+1)
		}
		mission.Steps = append(mission.Steps, types.Step{ID: id, Description: s.Description})
	}

	if err := mission.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mission manifest: %w", err)
	}
	return mission, nil
}
