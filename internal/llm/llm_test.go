package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			"bare object",
			`{"a": 1}`,
			`{"a": 1}`,
		},
		{
			"prose around object",
			`Here is the plan: {"a": 1} Hope that helps!`,
			`{"a": 1}`,
		},
		{
			"markdown fence",
			"Sure!\n```json\n{\"a\": 1}\n```\n",
			`{"a": 1}`,
		},
		{
			"nested braces",
			`{"outer": {"inner": [1, 2]}}`,
			`{"outer": {"inner": [1, 2]}}`,
		},
		{
			"braces inside strings",
			`{"text": "a } inside"}`,
			`{"text": "a } inside"}`,
		},
		{
			"array",
			`[1, 2, 3]`,
			`[1, 2, 3]`,
		},
		{
			"no json",
			"nothing to see here",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.text))
		})
	}
}

func TestParseDiffProposal(t *testing.T) {
	text := `Here is the change.
{"summary": "fix auth", "unified_diff": "--- a\n+++ b", "patches": [
  {"path": "internal/auth/session.go", "action": "update", "new_content": "package auth", "base_content_hash": "abc123"}
]}`

	proposal, err := parseDiffProposal(text)
	require.NoError(t, err)
	assert.Equal(t, "fix auth", proposal.Summary)
	assert.NotEmpty(t, proposal.DiffID)
	require.Len(t, proposal.Patches, 1)
	assert.Equal(t, types.PatchUpdate, proposal.Patches[0].Action)
	assert.Equal(t, "abc123", proposal.Patches[0].BaseContentHash)
	assert.Equal(t, []string{"internal/auth/session.go"}, proposal.FilesAffected)
}

func TestParseDiffProposalRejectsBadInput(t *testing.T) {
	_, err := parseDiffProposal("no json at all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse model output")

	_, err = parseDiffProposal(`{"summary": "x", "patches": []}`)
	require.Error(t, err)

	_, err = parseDiffProposal(`{"summary": "x", "patches": [{"path": "a.go", "action": "obliterate"}]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid patch action")
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	b := NewBreaker(3, 1, 10*time.Millisecond)

	require.NoError(t, b.Allow())
	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()

	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(1, 2, 10*time.Millisecond)
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
}

func TestNewAnthropicProposerValidation(t *testing.T) {
	_, err := NewAnthropicProposer(Config{Model: "claude-sonnet-4-5"}, nil)
	assert.Error(t, err)

	_, err = NewAnthropicProposer(Config{APIKey: "key"}, nil)
	assert.Error(t, err)

	p, err := NewAnthropicProposer(Config{APIKey: "key", Model: "claude-sonnet-4-5"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}
