package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

func newDiffID() string {
	return "diff-" + uuid.New().String()
}

// maxFileContext caps how much of any one file goes into a prompt.
const maxFileContext = 30000

func buildPlanPrompt(mission *types.Mission, contextFiles map[string]string) string {
	var b strings.Builder
	b.WriteString("You are planning a code change. Respond with JSON only: ")
	b.WriteString(`{"summary": "...", "steps": ["..."]}` + "\n\n")
	fmt.Fprintf(&b, "Goal: %s\n", mission.Title)
	if len(mission.Scope.LikelyFiles) > 0 {
		fmt.Fprintf(&b, "Files likely involved: %s\n", strings.Join(mission.Scope.LikelyFiles, ", "))
	}
	if len(mission.Scope.OutOfScope) > 0 {
		fmt.Fprintf(&b, "Out of scope, never touch: %s\n", strings.Join(mission.Scope.OutOfScope, ", "))
	}
	if mission.Verification != nil && mission.Verification.AcceptanceCriteria != "" {
		fmt.Fprintf(&b, "Acceptance: %s\n", mission.Verification.AcceptanceCriteria)
	}
	writeFileContext(&b, contextFiles)
	return b.String()
}

func buildDiffPrompt(req DiffRequest) string {
	var b strings.Builder
	b.WriteString("You are producing a code change. Respond with JSON only:\n")
	b.WriteString(`{"summary": "...", "unified_diff": "...", "patches": [{"path": "...", "action": "create|update|delete", "new_content": "...", "base_content_hash": "..."}]}` + "\n")
	b.WriteString("For update and delete, base_content_hash must be the hash given with the file below.\n\n")
	fmt.Fprintf(&b, "Goal: %s\n", req.Mission.Title)
	if req.Plan != nil {
		fmt.Fprintf(&b, "Plan: %s\n", req.Plan.Summary)
		for i, s := range req.Plan.Steps {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, s)
		}
	}
	if len(req.Mission.Scope.OutOfScope) > 0 {
		fmt.Fprintf(&b, "Out of scope, never touch: %s\n", strings.Join(req.Mission.Scope.OutOfScope, ", "))
	}
	writeHashedContext(&b, req.Context, req.ContextHashes)
	return b.String()
}

func buildRepairPrompt(req RepairRequest) string {
	var b strings.Builder
	b.WriteString(buildDiffPrompt(req.DiffRequest))
	b.WriteString("\nThe previous change failed verification. Produce a corrected change.\n")
	fmt.Fprintf(&b, "Failure type: %s\n", req.Failure.Type)
	fmt.Fprintf(&b, "Failure summary: %s\n", req.Failure.Summary)
	if len(req.Failure.Tests) > 0 {
		fmt.Fprintf(&b, "Failing tests: %s\n", strings.Join(req.Failure.Tests, ", "))
	}
	if len(req.Failure.Files) > 0 {
		fmt.Fprintf(&b, "Implicated locations: %s\n", strings.Join(req.Failure.Files, ", "))
	}
	if req.RawOutput != "" {
		fmt.Fprintf(&b, "\nRaw output:\n%s\n", truncateText(req.RawOutput, maxFileContext))
	}
	return b.String()
}

func writeFileContext(b *strings.Builder, files map[string]string) {
	for _, path := range sortedKeys(files) {
		fmt.Fprintf(b, "\n--- %s ---\n%s\n", path, truncateText(files[path], maxFileContext))
	}
}

func writeHashedContext(b *strings.Builder, files, hashes map[string]string) {
	for _, path := range sortedKeys(files) {
		fmt.Fprintf(b, "\n--- %s (hash %s) ---\n%s\n", path, hashes[path], truncateText(files[path], maxFileContext))
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}
