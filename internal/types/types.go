// Package types holds the shared domain types for the orchestrator.
// It is a leaf package: everything else imports types, types imports nothing
// outside the standard library. This keeps the event model, the state
// machine, and the recovery engine free of import cycles.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Mode indicates how much autonomy the orchestrator has for a mission.
type Mode string

const (
	// ModeAssisted requires human approval at every gate
	ModeAssisted Mode = "assisted"
	// ModeAuto allows pre-approved actions to proceed without prompting
	ModeAuto Mode = "auto"
)

// Mission is one bounded, approval-gated code-editing task with a declared
// file scope. A Mission is created once from an approved plan and never
// mutated; re-planning produces a new Mission with a new ID.
type Mission struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`

	// Scope declares which files the mission is expected to touch and
	// which paths are off limits regardless of what the model proposes.
	Scope Scope `json:"scope" yaml:"scope"`

	// Steps are the ordered units of work from the approved plan.
	Steps []Step `json:"steps" yaml:"steps"`

	// Verification describes how the mission's result should be checked.
	Verification *VerificationSpec `json:"verification,omitempty" yaml:"verification,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Validate checks the mission has the fields the state machine depends on.
func (m *Mission) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("mission id is required")
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("mission title is required")
	}
	if len(m.Steps) == 0 {
		return fmt.Errorf("mission must have at least one step")
	}
	for i, s := range m.Steps {
		if strings.TrimSpace(s.Description) == "" {
			return fmt.Errorf("step %d has no description", i+1)
		}
	}
	return nil
}

// Scope declares the file-system footprint of a mission.
type Scope struct {
	// LikelyFiles are the paths the plan expects to modify.
	LikelyFiles []string `json:"likely_files,omitempty" yaml:"likely_files,omitempty"`
	// OutOfScope is a glob deny-list; a file matching any pattern here is
	// never read into context and never written, period.
	OutOfScope []string `json:"out_of_scope,omitempty" yaml:"out_of_scope,omitempty"`
}

// Step is one ordered unit of mission work.
type Step struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Description string `json:"description" yaml:"description"`
}

// VerificationSpec describes how to check a mission's result.
type VerificationSpec struct {
	// TestCommands are suggested commands; each still needs human approval
	// before its first execution in a session.
	TestCommands []string `json:"test_commands,omitempty" yaml:"test_commands,omitempty"`
	// AcceptanceCriteria is free text the human can check against.
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty" yaml:"acceptance_criteria,omitempty"`
}

// Patch is one file-level change, the unit consumed by the workspace writer.
type Patch struct {
	Path   string      `json:"path"`
	Action PatchAction `json:"action"`
	// NewContent is the full post-change content for create/update.
	NewContent string `json:"new_content,omitempty"`
	// BaseContentHash is the hash of the content the patch was generated
	// against; apply must fail if the on-disk content no longer matches.
	BaseContentHash string `json:"base_content_hash,omitempty"`
}

// PatchAction is the kind of file operation a Patch performs.
type PatchAction string

const (
	PatchCreate PatchAction = "create"
	PatchUpdate PatchAction = "update"
	PatchDelete PatchAction = "delete"
)

// IsValid reports whether the action is a known patch action.
func (a PatchAction) IsValid() bool {
	switch a {
	case PatchCreate, PatchUpdate, PatchDelete:
		return true
	}
	return false
}

// DiffProposal is the structured shape the generation service hands back.
// The core never parses model output itself; it only sees this.
type DiffProposal struct {
	DiffID        string   `json:"diff_id"`
	UnifiedDiff   string   `json:"unified_diff"`
	FilesAffected []string `json:"files_affected"`
	Summary       string   `json:"summary"`
	// Patches is the file-level decomposition of the diff, ready for the
	// workspace writer.
	Patches []Patch `json:"patches,omitempty"`
}
