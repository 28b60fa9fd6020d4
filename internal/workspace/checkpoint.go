package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckpointStore holds pre-change backups of workspace files so any
// applied diff can be rolled back exactly.
type CheckpointStore struct {
	ws     *Workspace
	dir    string
	logger *zap.Logger
}

// checkpointManifest records what a checkpoint protects. Files that did
// not exist at checkpoint time are listed so rollback can remove them.
type checkpointManifest struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// Saved maps each backed-up path to its stored copy's filename.
	Saved map[string]string `json:"saved"`
	// Absent lists paths that did not exist when the checkpoint was taken.
	Absent []string `json:"absent,omitempty"`
}

// NewCheckpointStore creates a store rooted at dir (typically
// <state_dir>/checkpoints).
func NewCheckpointStore(ws *Workspace, dir string, logger *zap.Logger) (*CheckpointStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &CheckpointStore{ws: ws, dir: dir, logger: logger}, nil
}

// Create snapshots the given workspace files and returns the checkpoint
// id. The checkpoint is durable before Create returns; applying a diff
// without a prior checkpoint is a sequencing bug in the caller.
func (s *CheckpointStore) Create(files []string) (string, error) {
	id := uuid.New().String()
	cpDir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(cpDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create checkpoint %s: %w", id, err)
	}

	manifest := checkpointManifest{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Saved:     make(map[string]string),
	}
	for i, rel := range files {
		if !s.ws.Exists(rel) {
			manifest.Absent = append(manifest.Absent, rel)
			continue
		}
		data, err := s.ws.ReadFile(rel)
		if err != nil {
			return "", fmt.Errorf("failed to back up %s: %w", rel, err)
		}
		name := fmt.Sprintf("%04d", i)
		if err := os.WriteFile(filepath.Join(cpDir, name), data, 0o600); err != nil {
			return "", fmt.Errorf("failed to write backup of %s: %w", rel, err)
		}
		manifest.Saved[rel] = name
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkpoint manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(cpDir, "manifest.json"), data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write checkpoint manifest: %w", err)
	}

	s.logger.Debug("checkpoint created",
		zap.String("checkpoint_id", id),
		zap.Int("files", len(files)))
	return id, nil
}

// Rollback restores every file a checkpoint protects: saved files get
// their old content back, files absent at checkpoint time are removed.
func (s *CheckpointStore) Rollback(id string) error {
	manifest, err := s.load(id)
	if err != nil {
		return err
	}

	for rel, name := range manifest.Saved {
		data, err := os.ReadFile(filepath.Join(s.dir, id, name))
		if err != nil {
			return fmt.Errorf("checkpoint %s missing backup for %s: %w", id, rel, err)
		}
		abs, err := s.ws.resolve(rel)
		if err != nil {
			return err
		}
		if err := s.ws.writeFileAtomic(abs, data); err != nil {
			return fmt.Errorf("failed to restore %s: %w", rel, err)
		}
	}
	for _, rel := range manifest.Absent {
		abs, err := s.ws.resolve(rel)
		if err != nil {
			return err
		}
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s during rollback: %w", rel, err)
		}
	}

	s.logger.Info("checkpoint restored", zap.String("checkpoint_id", id))
	return nil
}

// Exists reports whether a checkpoint is present and readable.
func (s *CheckpointStore) Exists(id string) bool {
	_, err := s.load(id)
	return err == nil
}

func (s *CheckpointStore) load(id string) (*checkpointManifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("checkpoint missing: %s: %w", id, err)
	}
	var manifest checkpointManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint manifest %s: %w", id, err)
	}
	return &manifest, nil
}
