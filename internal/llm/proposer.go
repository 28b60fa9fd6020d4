// Package llm generates plans, diffs, and repair diffs with the
// Anthropic API. All resilience around the API lives here: retry with
// backoff, a circuit breaker, a concurrency cap, and a request rate
// limit. Callers see clean proposals or classified errors, never raw
// API trouble.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/kalyank1144/Ordinex-sub008/internal/classify"
	"github.com/kalyank1144/Ordinex-sub008/internal/recovery"
	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

// PlanProposal is the model's proposed approach for a mission.
type PlanProposal struct {
	Summary string   `json:"summary"`
	Steps   []string `json:"steps"`
}

// DiffRequest carries everything the model needs to produce a diff.
type DiffRequest struct {
	Mission *types.Mission
	Plan    *PlanProposal
	// Context maps in-scope file paths to their current content.
	Context map[string]string
	// ContextHashes maps the same paths to their content hashes, which
	// the model echoes back as base hashes.
	ContextHashes map[string]string
}

// RepairRequest asks for a diff that fixes a classified failure.
type RepairRequest struct {
	DiffRequest
	Failure    types.FailureClassification
	RawOutput  string
	PriorDiffs []string
}

// Proposer produces mission artifacts. The orchestrator depends on this
// interface so tests can script proposals.
type Proposer interface {
	ProposePlan(ctx context.Context, mission *types.Mission, contextFiles map[string]string) (*PlanProposal, error)
	ProposeDiff(ctx context.Context, req DiffRequest) (*types.DiffProposal, error)
	ProposeRepair(ctx context.Context, req RepairRequest) (*types.DiffProposal, error)
}

// Config bounds the Anthropic client.
type Config struct {
	APIKey            string
	Model             string
	MaxTokens         int
	MaxRetries        int
	RequestTimeout    time.Duration
	MaxConcurrent     int
	RequestsPerMinute int
}

// AnthropicProposer is the production Proposer.
type AnthropicProposer struct {
	client    anthropic.Client
	model     string
	maxTokens int

	retries Retrier
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Retrier bounds API retry behavior.
type Retrier struct {
	MaxRetries int
	Policy     recovery.Policy
	Timeout    time.Duration
	Breaker    *Breaker
}

// NewAnthropicProposer builds the production proposer.
func NewAnthropicProposer(cfg Config, logger *zap.Logger) (*AnthropicProposer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 32000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}

	return &AnthropicProposer{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		retries: Retrier{
			MaxRetries: cfg.MaxRetries,
			Policy:     recovery.DefaultPolicy(),
			Timeout:    cfg.RequestTimeout,
			Breaker:    NewBreaker(5, 2, 30*time.Second),
		},
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.MaxConcurrent),
		logger:  logger,
	}, nil
}

// ProposePlan asks the model for an approach.
func (p *AnthropicProposer) ProposePlan(ctx context.Context, mission *types.Mission, contextFiles map[string]string) (*PlanProposal, error) {
	prompt := buildPlanPrompt(mission, contextFiles)
	text, err := p.call(ctx, "propose-plan", prompt)
	if err != nil {
		return nil, err
	}
	var plan PlanProposal
	if err := decodeJSON(text, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse model output for plan: %w", err)
	}
	if plan.Summary == "" {
		return nil, fmt.Errorf("failed to parse model output: plan missing required field summary")
	}
	return &plan, nil
}

// ProposeDiff asks the model for a full diff proposal.
func (p *AnthropicProposer) ProposeDiff(ctx context.Context, req DiffRequest) (*types.DiffProposal, error) {
	prompt := buildDiffPrompt(req)
	text, err := p.call(ctx, "propose-diff", prompt)
	if err != nil {
		return nil, err
	}
	return parseDiffProposal(text)
}

// ProposeRepair asks for a diff targeting the classified failure.
func (p *AnthropicProposer) ProposeRepair(ctx context.Context, req RepairRequest) (*types.DiffProposal, error) {
	prompt := buildRepairPrompt(req)
	text, err := p.call(ctx, "propose-repair", prompt)
	if err != nil {
		return nil, err
	}
	return parseDiffProposal(text)
}

// call runs one prompt through the full resilience stack and returns
// the concatenated text blocks.
func (p *AnthropicProposer) call(ctx context.Context, operation, prompt string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire API slot for %s: %w", operation, err)
	}
	defer p.sem.Release(1)

	var lastErr error
	var st recovery.State
	for attempt := 0; attempt <= p.retries.MaxRetries; attempt++ {
		if err := p.retries.Breaker.Allow(); err != nil {
			return "", fmt.Errorf("%s blocked: %w", operation, err)
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%s rate wait interrupted: %w", operation, err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.retries.Timeout)
		resp, err := p.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(p.model),
			MaxTokens: int64(p.maxTokens),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		cancel()

		if err == nil {
			p.retries.Breaker.RecordSuccess()
			if resp.StopReason == anthropic.StopReasonMaxTokens {
				return "", fmt.Errorf("%s: model output truncated at max_tokens", operation)
			}
			var text strings.Builder
			for _, block := range resp.Content {
				if block.Type == "text" {
					text.WriteString(block.Text)
				}
			}
			return text.String(), nil
		}

		p.retries.Breaker.RecordFailure()
		lastErr = err

		desc := classify.Classify(err, types.ClassifyContext{})
		if !desc.Retryable {
			return "", fmt.Errorf("%s failed: %w", operation, err)
		}
		if attempt < p.retries.MaxRetries {
			var phase recovery.Phase
			phase, st = p.retries.Policy.Next(desc, st)
			// Only verbatim retries happen at this level. Splitting or
			// regenerating changes the request, which is the caller's
			// call to make.
			if phase != recovery.PhaseRetrySame {
				break
			}
			wait := p.retries.Policy.Backoff(attempt)
			p.logger.Warn("model API call failed, retrying",
				zap.String("operation", operation),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", wait),
				zap.String("category", string(desc.Category)))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("%s failed after %d attempts: %w", operation, p.retries.MaxRetries+1, lastErr)
}

// decodeJSON extracts the first JSON object from model text, tolerating
// prose and markdown fences around it.
func decodeJSON(text string, out interface{}) error {
	cleaned := ExtractJSON(text)
	if cleaned == "" {
		return fmt.Errorf("failed to parse model output: no JSON found")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("failed to parse model output: invalid JSON: %w", err)
	}
	return nil
}

// ExtractJSON finds the outermost JSON object or array in text,
// stripping markdown fences and surrounding prose.
func ExtractJSON(text string) string {
	trimmed := strings.TrimSpace(text)

	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		rest := trimmed[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			trimmed = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return ""
	}
	open := trimmed[start]
	var closer byte = '}'
	if open == '[' {
		closer = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(trimmed); i++ {
		c := trimmed[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == open:
			depth++
		case !inString && c == closer:
			depth--
			if depth == 0 {
				return trimmed[start : i+1]
			}
		}
	}
	return ""
}

// wireDiff is the JSON shape the model returns for diff proposals.
type wireDiff struct {
	Summary     string `json:"summary"`
	UnifiedDiff string `json:"unified_diff"`
	Patches     []struct {
		Path            string `json:"path"`
		Action          string `json:"action"`
		NewContent      string `json:"new_content"`
		BaseContentHash string `json:"base_content_hash"`
	} `json:"patches"`
}

func parseDiffProposal(text string) (*types.DiffProposal, error) {
	var wire wireDiff
	if err := decodeJSON(text, &wire); err != nil {
		return nil, err
	}
	if len(wire.Patches) == 0 {
		return nil, fmt.Errorf("failed to parse model output: diff proposal missing required field patches")
	}

	proposal := &types.DiffProposal{
		DiffID:      newDiffID(),
		UnifiedDiff: wire.UnifiedDiff,
		Summary:     wire.Summary,
	}
	for _, p := range wire.Patches {
		action := types.PatchAction(p.Action)
		if !action.IsValid() {
			return nil, fmt.Errorf("failed to parse model output: invalid patch action %q", p.Action)
		}
		proposal.Patches = append(proposal.Patches, types.Patch{
			Path:            p.Path,
			Action:          action,
			NewContent:      p.NewContent,
			BaseContentHash: p.BaseContentHash,
		})
		proposal.FilesAffected = append(proposal.FilesAffected, p.Path)
	}
	return proposal, nil
}
