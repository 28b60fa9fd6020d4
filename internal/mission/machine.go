package mission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kalyank1144/Ordinex-sub008/internal/approval"
	"github.com/kalyank1144/Ordinex-sub008/internal/classify"
	"github.com/kalyank1144/Ordinex-sub008/internal/config"
	"github.com/kalyank1144/Ordinex-sub008/internal/events"
	"github.com/kalyank1144/Ordinex-sub008/internal/eventlog"
	"github.com/kalyank1144/Ordinex-sub008/internal/llm"
	"github.com/kalyank1144/Ordinex-sub008/internal/loopdetect"
	"github.com/kalyank1144/Ordinex-sub008/internal/recovery"
	"github.com/kalyank1144/Ordinex-sub008/internal/types"
	"github.com/kalyank1144/Ordinex-sub008/internal/workspace"
)

// Machine executes missions through the staged state machine. Every
// observable thing it does is an event on the bus; the machine holds no
// state that cannot be rebuilt from the log.
type Machine struct {
	cfg         config.MissionConfig
	bus         *eventlog.Bus
	ws          *workspace.Workspace
	checkpoints *workspace.CheckpointStore
	proposer    llm.Proposer
	transport   approval.Transport
	runner      TestRunner
	policy      recovery.Policy
	logger      *zap.Logger
}

// MachineConfig wires a Machine's collaborators.
type MachineConfig struct {
	Mission     config.MissionConfig
	Bus         *eventlog.Bus
	Workspace   *workspace.Workspace
	Checkpoints *workspace.CheckpointStore
	Proposer    llm.Proposer
	Transport   approval.Transport
	Runner      TestRunner
	Logger      *zap.Logger
}

// NewMachine validates the wiring and builds a machine.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	if cfg.Workspace == nil {
		return nil, fmt.Errorf("workspace is required")
	}
	if cfg.Checkpoints == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if cfg.Proposer == nil {
		return nil, fmt.Errorf("proposer is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("approval transport is required")
	}
	if cfg.Runner == nil {
		cfg.Runner = NewExecRunner(cfg.Workspace.Root(), 0)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Machine{
		cfg:         cfg.Mission,
		bus:         cfg.Bus,
		ws:          cfg.Workspace,
		checkpoints: cfg.Checkpoints,
		proposer:    cfg.Proposer,
		transport:   cfg.Transport,
		runner:      cfg.Runner,
		policy:      recovery.DefaultPolicy(),
		logger:      cfg.Logger,
	}, nil
}

// run carries the in-flight state of one mission execution.
type run struct {
	m       *Machine
	mission *types.Mission
	st      *types.MissionRunState
	fence   *Fence

	// snapshot is the content-hash view captured at context retrieval,
	// re-checked immediately before any write.
	snapshot map[string]string
	context  map[string]string
	plan     *llm.PlanProposal
	proposal *types.DiffProposal

	// repair is non-nil while the machine is fixing a failed run.
	repair  *repairState
	history []types.IterationOutcome
	ladders map[string]recovery.State

	// stageMutated is set once the current stage attempt starts touching
	// the workspace. Errors past that point are never auto-retried.
	stageMutated bool
}

type repairState struct {
	failure   types.FailureClassification
	rawOutput string
	attempt   int
}

// Run executes a mission to a terminal stage. The returned error is
// non-nil only for infrastructure failures; mission-level failures end
// in mission_paused or mission_cancelled, which are normal terminals.
func (m *Machine) Run(ctx context.Context, mission *types.Mission, mode types.Mode) (*types.MissionRunState, error) {
	if err := mission.Validate(); err != nil {
		return nil, err
	}

	taskID := "task-" + uuid.New().String()
	r := &run{
		m:       m,
		mission: mission,
		st:      types.NewMissionRunState(taskID, mission.ID, mode, m.cfg.RepairBudget),
		fence:   NewFence(mission.Scope),
		ladders: make(map[string]recovery.State),
	}

	if err := r.publish(&events.MissionStartedPayload{
		MissionID:    mission.ID,
		Title:        mission.Title,
		LikelyFiles:  mission.Scope.LikelyFiles,
		OutOfScope:   mission.Scope.OutOfScope,
		RepairBudget: m.cfg.RepairBudget,
	}); err != nil {
		return nil, err
	}

	for !r.st.CurrentStage.IsTerminal() {
		if err := ctx.Err(); err != nil {
			if terr := r.cancel("run cancelled"); terr != nil {
				return r.st, terr
			}
			break
		}
		if err := r.step(ctx); err != nil {
			return r.st, err
		}
	}
	return r.st, nil
}

// Resume continues a paused mission from its reconstructed state. The
// chosen decision option (if any) steers where execution re-enters.
func (m *Machine) Resume(ctx context.Context, mission *types.Mission, st *types.MissionRunState, res *types.DecisionResolution) (*types.MissionRunState, error) {
	if st.CurrentStage != types.StageMissionPaused {
		return st, fmt.Errorf("mission is not paused (stage %s)", st.CurrentStage)
	}

	from := st.PreviousStage
	if from == "" || from.IsTerminal() {
		from = types.StageRetrieveContext
	}
	// Approval waits and mid-apply stages restart from a fresh context
	// retrieval; their in-memory artifacts did not survive.
	if from != types.StageRunTests {
		from = types.StageRetrieveContext
	}

	r := &run{
		m:       m,
		mission: mission,
		st:      st,
		fence:   NewFence(mission.Scope),
		ladders: make(map[string]recovery.State),
	}

	payload := &events.MissionResumedPayload{MissionID: mission.ID, FromStage: from}
	if res != nil {
		payload.OptionID = res.OptionID
	}
	if err := r.publish(payload); err != nil {
		return st, err
	}
	st.PauseReason = ""
	st.PauseOptions = nil
	st.PreviousStage = st.CurrentStage
	st.CurrentStage = from

	for !r.st.CurrentStage.IsTerminal() {
		if err := ctx.Err(); err != nil {
			if terr := r.cancel("run cancelled"); terr != nil {
				return r.st, terr
			}
			break
		}
		if err := r.step(ctx); err != nil {
			return r.st, err
		}
	}
	return r.st, nil
}

// step executes exactly one stage. Non-approval stages race their
// timeout; approval stages wait indefinitely for the human.
func (r *run) step(ctx context.Context) error {
	stage := r.st.CurrentStage
	r.stageMutated = false

	stageCtx := ctx
	var cancel context.CancelFunc
	if !stageTimeoutExempt(stage) && r.m.cfg.StageTimeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, r.m.cfg.StageTimeout)
		defer cancel()
	}

	var err error
	switch stage {
	case types.StageRetrieveContext:
		err = r.retrieveContext(stageCtx)
	case types.StageProposePatchPlan:
		err = r.proposePlan(stageCtx)
	case types.StageProposeDiff:
		err = r.proposeDiff(stageCtx)
	case types.StageAwaitApplyApproval:
		err = r.awaitApplyApproval(ctx)
	case types.StageApplyDiff:
		err = r.applyDiff(stageCtx)
	case types.StageAwaitTestApproval:
		err = r.awaitTestApproval(ctx)
	case types.StageRunTests:
		err = r.runTests(stageCtx)
	case types.StageRepairLoop:
		err = r.repairLoop(stageCtx)
	default:
		return fmt.Errorf("no executor for stage %s", stage)
	}

	if err == nil {
		return nil
	}
	// Stage timeout beats the parent context only when the parent is
	// still live.
	if stageCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return r.timeout(stage)
	}
	if ctx.Err() != nil {
		return r.cancel("run cancelled")
	}
	return r.handleStageError(ctx, err)
}

func (r *run) retrieveContext(ctx context.Context) error {
	allowed, denied := r.fence.Filter(r.mission.Scope.LikelyFiles)
	for _, p := range denied {
		if err := r.publish(&events.ScopeViolationPayload{
			MissionID: r.mission.ID,
			Path:      p,
			Pattern:   r.fence.Check(p),
		}); err != nil {
			return err
		}
	}

	r.context = make(map[string]string, len(allowed))
	var present []string
	for _, p := range allowed {
		if !r.m.ws.Exists(p) {
			continue
		}
		data, err := r.m.ws.ReadFile(p)
		if err != nil {
			return err
		}
		r.context[p] = string(data)
		present = append(present, p)
	}

	snap, err := r.m.ws.Snapshot(allowed)
	if err != nil {
		return err
	}
	r.snapshot = snap

	if err := r.publish(&events.ContextRetrievedPayload{
		MissionID: r.mission.ID,
		Files:     present,
		Snapshot:  snap,
	}); err != nil {
		return err
	}
	return r.advance(TriggerContextReady)
}

func (r *run) proposePlan(ctx context.Context) error {
	plan, err := r.m.proposer.ProposePlan(ctx, r.mission, r.context)
	if err != nil {
		return err
	}
	r.plan = plan
	if err := r.publish(&events.PlanProposedPayload{
		MissionID: r.mission.ID,
		Summary:   plan.Summary,
		Steps:     plan.Steps,
	}); err != nil {
		return err
	}
	return r.advance(TriggerPlanReady)
}

func (r *run) proposeDiff(ctx context.Context) error {
	req := llm.DiffRequest{
		Mission:       r.mission,
		Plan:          r.plan,
		Context:       r.context,
		ContextHashes: r.snapshot,
	}

	var proposal *types.DiffProposal
	var err error
	if r.repair != nil {
		proposal, err = r.m.proposer.ProposeRepair(ctx, llm.RepairRequest{
			DiffRequest: req,
			Failure:     r.repair.failure,
			RawOutput:   r.repair.rawOutput,
		})
	} else {
		proposal, err = r.m.proposer.ProposeDiff(ctx, req)
	}
	if err != nil {
		return err
	}

	// Scope fences apply to the model's output, not just its input.
	for _, p := range proposal.FilesAffected {
		if pattern := r.fence.Check(p); pattern != "" {
			if perr := r.publish(&events.ScopeViolationPayload{
				MissionID: r.mission.ID,
				Path:      p,
				Pattern:   pattern,
			}); perr != nil {
				return perr
			}
			if perr := r.publish(&events.DiffRejectedPayload{
				MissionID: r.mission.ID,
				DiffID:    proposal.DiffID,
				Reason:    fmt.Sprintf("touches out-of-scope path %s", p),
			}); perr != nil {
				return perr
			}
			return fmt.Errorf("failed to parse model output: diff touches out-of-scope path %s", p)
		}
	}

	r.proposal = proposal
	r.st.InFlightDiffID = proposal.DiffID
	if err := r.publish(&events.DiffProposedPayload{
		MissionID:     r.mission.ID,
		DiffID:        proposal.DiffID,
		FilesAffected: proposal.FilesAffected,
		Summary:       proposal.Summary,
		Repair:        r.repair != nil,
	}); err != nil {
		return err
	}
	return r.advance(TriggerDiffGenerated)
}

func (r *run) awaitApplyApproval(ctx context.Context) error {
	if err := r.publish(&events.ApprovalRequestedPayload{
		MissionID: r.mission.ID,
		Kind:      approval.KindApplyDiff,
		Action:    "apply proposed diff to the workspace",
		Summary:   r.proposal.Summary,
	}); err != nil {
		return err
	}

	decision, err := r.m.transport.RequestApproval(ctx, approval.Request{
		Kind:      approval.KindApplyDiff,
		MissionID: r.mission.ID,
		Action:    "apply proposed diff to the workspace",
		Summary:   r.proposal.Summary,
		Details:   r.proposal.FilesAffected,
	})
	if err != nil {
		return err
	}

	if err := r.publish(&events.ApprovalResolvedPayload{
		MissionID: r.mission.ID,
		Kind:      approval.KindApplyDiff,
		Approved:  decision.Approved,
		DecidedBy: decision.DecidedBy,
	}); err != nil {
		return err
	}

	if !decision.Approved {
		if err := r.publish(&events.DiffRejectedPayload{
			MissionID: r.mission.ID,
			DiffID:    r.proposal.DiffID,
			Reason:    "apply approval denied",
		}); err != nil {
			return err
		}
		r.st.InFlightDiffID = ""
		if err := r.advance(TriggerApprovalDenied); err != nil {
			return err
		}
		return r.publishPaused("apply approval denied", nil)
	}
	return r.advance(TriggerApprovalGranted)
}

func (r *run) applyDiff(ctx context.Context) error {
	// Staleness re-check: the decision to apply was made against the
	// snapshot; if the files moved since, the decision is void.
	stale, err := r.m.ws.CheckStaleness(r.snapshot)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		if err := r.publish(&events.StalenessDetectedPayload{
			MissionID:  r.mission.ID,
			StaleFiles: stale,
		}); err != nil {
			return err
		}
		if err := r.publish(&events.DiffRejectedPayload{
			MissionID: r.mission.ID,
			DiffID:    r.proposal.DiffID,
			Reason:    "context went stale before apply",
		}); err != nil {
			return err
		}
		r.st.InFlightDiffID = ""
		r.proposal = nil
		return r.advance(TriggerStaleContext)
	}

	// Checkpoint strictly before mutation.
	checkpointID, err := r.m.checkpoints.Create(r.proposal.FilesAffected)
	if err != nil {
		return err
	}
	r.st.CheckpointIDs = append(r.st.CheckpointIDs, checkpointID)
	r.stageMutated = true
	if err := r.publish(&events.CheckpointCreatedPayload{
		MissionID:    r.mission.ID,
		CheckpointID: checkpointID,
		Files:        r.proposal.FilesAffected,
	}); err != nil {
		return err
	}

	touched, err := r.m.ws.ApplyPatches(r.proposal.Patches)
	if err != nil {
		// Partial applications roll back to the checkpoint so the
		// workspace never sits in a half-applied state.
		if len(touched) > 0 {
			if rbErr := r.m.checkpoints.Rollback(checkpointID); rbErr != nil {
				return fmt.Errorf("apply failed (%v) and rollback failed: %w", err, rbErr)
			}
			if pErr := r.publish(&events.RollbackPerformedPayload{
				MissionID:    r.mission.ID,
				CheckpointID: checkpointID,
				Reason:       "partial apply rolled back",
			}); pErr != nil {
				return pErr
			}
		}
		return err
	}

	isRepair := r.repair != nil
	if isRepair && r.st.RepairRemaining > 0 {
		r.st.RepairRemaining--
	}
	for _, f := range touched {
		r.st.TouchedFiles[f] = true
	}
	r.st.InFlightDiffID = ""

	if err := r.publish(&events.DiffAppliedPayload{
		MissionID:    r.mission.ID,
		DiffID:       r.proposal.DiffID,
		CheckpointID: checkpointID,
		Files:        touched,
		Repair:       isRepair,
	}); err != nil {
		return err
	}

	// Refresh the snapshot so the next staleness check measures drift
	// from the state we just wrote.
	if snap, err := r.m.ws.Snapshot(r.proposal.FilesAffected); err == nil {
		for k, v := range snap {
			r.snapshot[k] = v
		}
	}
	return r.advance(TriggerDiffApplied)
}

func (r *run) awaitTestApproval(ctx context.Context) error {
	commands := r.testCommands()
	if len(commands) == 0 {
		return r.pause("no test commands configured", nil)
	}

	var pending []string
	for _, cmd := range commands {
		if !r.st.ApprovedTestCommands[cmd] {
			pending = append(pending, cmd)
		}
	}

	// Session allowlist: previously approved commands skip the gate.
	if len(pending) == 0 {
		return r.advance(TriggerApprovalGranted)
	}

	for _, cmd := range pending {
		if err := r.publish(&events.ApprovalRequestedPayload{
			MissionID: r.mission.ID,
			Kind:      approval.KindRunTests,
			Action:    "run test command",
			Summary:   cmd,
		}); err != nil {
			return err
		}

		decision, err := r.m.transport.RequestApproval(ctx, approval.Request{
			Kind:      approval.KindRunTests,
			MissionID: r.mission.ID,
			Action:    "run test command",
			Summary:   cmd,
		})
		if err != nil {
			return err
		}
		if err := r.publish(&events.ApprovalResolvedPayload{
			MissionID: r.mission.ID,
			Kind:      approval.KindRunTests,
			Approved:  decision.Approved,
			DecidedBy: decision.DecidedBy,
		}); err != nil {
			return err
		}
		if !decision.Approved {
			if err := r.advance(TriggerApprovalDenied); err != nil {
				return err
			}
			return r.publishPaused(fmt.Sprintf("test command denied: %s", cmd), nil)
		}
		if decision.AlwaysAllow {
			r.st.ApprovedTestCommands[cmd] = true
			if err := r.publish(&events.TestCommandApprovedPayload{
				MissionID: r.mission.ID,
				Command:   cmd,
			}); err != nil {
				return err
			}
		}
	}
	return r.advance(TriggerApprovalGranted)
}

func (r *run) runTests(ctx context.Context) error {
	commands := r.testCommands()
	if err := r.publish(&events.TestRunStartedPayload{
		MissionID: r.mission.ID,
		Commands:  commands,
	}); err != nil {
		return err
	}

	result, err := r.m.runner.Run(ctx, commands)
	if err != nil {
		return err
	}

	counts := classify.ParseTestCounts(result.Output)
	if result.Passed {
		if err := r.publish(&events.TestRunCompletedPayload{
			MissionID: r.mission.ID,
			Passed:    true,
			Counts:    counts,
		}); err != nil {
			return err
		}
		r.history = append(r.history, types.IterationOutcome{
			Iteration:  len(r.history) + 1,
			Success:    true,
			TestCounts: counts,
		})
		return r.complete()
	}

	classification := classify.ClassifyOutput(result.Output)
	r.st.FailureSignatures = append(r.st.FailureSignatures, classification.Signature)
	r.history = append(r.history, types.IterationOutcome{
		Iteration:        len(r.history) + 1,
		FailureSignature: classification.Signature,
		TestCounts:       counts,
	})

	testEv := events.New(r.st.TaskID, r.st.Mode, r.st.CurrentStage, &events.TestRunCompletedPayload{
		MissionID: r.mission.ID,
		Passed:    false,
		Counts:    counts,
		Signature: classification.Signature,
	})
	if err := r.publishEvent(testEv); err != nil {
		return err
	}
	// The classification cites the test run it was derived from.
	fcEv := events.New(r.st.TaskID, r.st.Mode, r.st.CurrentStage, &events.FailureClassifiedPayload{
		MissionID:      r.mission.ID,
		Classification: classification,
	}).WithParent(testEv.ID).WithEvidence(testEv.ID)
	if err := r.publishEvent(fcEv); err != nil {
		return err
	}

	r.repair = &repairState{
		failure:   classification,
		rawOutput: result.Output,
	}
	return r.advance(TriggerTestsFailed)
}

func (r *run) repairLoop(ctx context.Context) error {
	if verdict := loopdetect.Analyze(r.history); verdict.Looping() {
		return r.exhaustRepair(fmt.Sprintf("repair loop detected (%s): %s", verdict.Pattern, verdict.Reason))
	}
	if r.st.RepairRemaining <= 0 {
		return r.exhaustRepair("repair budget exhausted")
	}
	if r.repair == nil {
		return fmt.Errorf("repair loop entered with no recorded failure")
	}
	if !r.repair.failure.CodeFixable {
		return r.exhaustRepair(fmt.Sprintf("%s failures are not fixable by editing code", r.repair.failure.Type))
	}

	r.repair.attempt++
	if err := r.publish(&events.RepairAttemptStartedPayload{
		MissionID: r.mission.ID,
		Attempt:   r.repair.attempt,
		Phase:     string(recovery.PhaseRegenerate),
	}); err != nil {
		return err
	}
	return r.advance(TriggerRepairDiffGenerated)
}

// exhaustRepair converts a dead repair loop into a decision point and
// pauses the mission on it.
func (r *run) exhaustRepair(reason string) error {
	desc := types.ErrorDescriptor{
		Category:        types.CategoryVerificationFailure,
		Retryable:       false,
		SuggestedAction: types.ActionPause,
		Message:         reason,
		Code:            "REPAIR_EXHAUSTED",
	}
	dp := recovery.BuildDecisionPoint(desc, types.DecisionContext{
		TaskID:        r.st.TaskID,
		MissionID:     r.mission.ID,
		ErrorCode:     desc.Code,
		ErrorCategory: desc.Category,
	})
	if err := r.publish(&events.DecisionPointCreatedPayload{
		MissionID:     r.mission.ID,
		DecisionPoint: dp,
	}); err != nil {
		return err
	}
	if err := r.advance(TriggerRepairExhausted); err != nil {
		return err
	}
	return r.publishPaused(reason, &dp)
}

// handleStageError runs the recovery ladder for an in-stage failure.
func (r *run) handleStageError(ctx context.Context, stageErr error) error {
	desc := classify.Classify(stageErr, types.ClassifyContext{
		Stage:             r.st.CurrentStage,
		ToolHadSideEffect: r.stageMutated,
	})
	errEv := events.NewError(r.st.TaskID, r.mission.ID, r.st.Mode, r.st.CurrentStage, desc)
	if err := r.publishEvent(errEv); err != nil {
		return err
	}

	key := desc.Code + "/" + string(r.st.CurrentStage)
	phase, st := r.m.policy.Next(desc, r.ladders[key])
	r.ladders[key] = st

	if err := r.publish(&events.RepairAttemptStartedPayload{
		MissionID:  r.mission.ID,
		Attempt:    st.Attempt,
		Phase:      string(phase),
		Descriptor: &desc,
	}); err != nil {
		return err
	}

	switch phase {
	case recovery.PhaseRetrySame:
		wait := r.m.policy.Backoff(st.SameRetries - 1)
		r.m.logger.Warn("stage failed, retrying",
			zap.String("stage", string(r.st.CurrentStage)),
			zap.String("code", desc.Code),
			zap.Duration("backoff", wait))
		select {
		case <-time.After(wait):
			return nil
		case <-ctx.Done():
			return r.cancel("run cancelled")
		}
	case recovery.PhaseRetrySplit:
		// Truncated work is re-attempted against a halved context so the
		// next request is materially smaller, never repeated verbatim.
		kept := r.splitContext()
		r.proposal = nil
		r.m.logger.Warn("splitting context before retry",
			zap.String("stage", string(r.st.CurrentStage)),
			zap.String("code", desc.Code),
			zap.Int("files_kept", len(kept)))
		return nil
	case recovery.PhaseRegenerate:
		// Re-enters the stage from scratch; the failed artifact is
		// discarded.
		r.proposal = nil
		return nil
	default:
		dp := recovery.BuildDecisionPoint(desc, types.DecisionContext{
			TaskID:        r.st.TaskID,
			MissionID:     r.mission.ID,
			ErrorCode:     desc.Code,
			ErrorCategory: desc.Category,
		})
		dpEv := events.New(r.st.TaskID, r.st.Mode, r.st.CurrentStage, &events.DecisionPointCreatedPayload{
			MissionID:     r.mission.ID,
			DecisionPoint: dp,
		}).WithParent(errEv.ID)
		if err := r.publishEvent(dpEv); err != nil {
			return err
		}
		return r.pause(desc.Message, &dp)
	}
}

// splitContext drops the latter half of the context files, keeping the
// lexicographically first half so repeated splits converge. Returns the
// kept paths.
func (r *run) splitContext() []string {
	paths := make([]string, 0, len(r.context))
	for p := range r.context {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	if len(paths) < 2 {
		return paths
	}
	paths = paths[:(len(paths)+1)/2]
	kept := make(map[string]string, len(paths))
	for _, p := range paths {
		kept[p] = r.context[p]
	}
	r.context = kept
	return paths
}

func (r *run) testCommands() []string {
	if r.mission.Verification == nil {
		return nil
	}
	return r.mission.Verification.TestCommands
}

// advance fires a trigger, records the transition, and publishes the
// stage_changed event.
func (r *run) advance(trigger string) error {
	next, err := NextStage(r.st, trigger)
	if err != nil {
		if errors.Is(err, ErrNoTransition) {
			r.m.logger.Warn("dropping trigger with no edge",
				zap.String("trigger", trigger),
				zap.String("stage", string(r.st.CurrentStage)))
			return nil
		}
		return err
	}
	from := r.st.CurrentStage
	r.st.PreviousStage = from
	r.st.CurrentStage = next
	r.st.UpdatedAt = time.Now().UTC()

	return r.publish(&events.StageChangedPayload{
		MissionID:  r.mission.ID,
		From:       from,
		To:         next,
		Transition: trigger,
	})
}

func (r *run) complete() error {
	if err := r.advance(TriggerTestsPassed); err != nil {
		return err
	}
	return r.publish(&events.MissionCompletedPayload{
		MissionID: r.mission.ID,
		Summary:   fmt.Sprintf("%d files changed, verification passed", len(r.st.TouchedFiles)),
	})
}

func (r *run) pause(reason string, dp *types.DecisionPoint) error {
	if err := r.advance(TriggerPauseRequested); err != nil {
		return err
	}
	return r.publishPaused(reason, dp)
}

func (r *run) publishPaused(reason string, dp *types.DecisionPoint) error {
	r.st.PauseReason = reason
	payload := &events.MissionPausedPayload{
		MissionID:     r.mission.ID,
		Reason:        reason,
		DecisionPoint: dp,
	}
	if dp != nil {
		for _, opt := range dp.Options {
			payload.Options = append(payload.Options, opt.ID)
			r.st.PauseOptions = append(r.st.PauseOptions, opt.ID)
		}
	}
	return r.publish(payload)
}

func (r *run) timeout(stage types.Stage) error {
	if err := r.publish(&events.StageTimeoutPayload{
		MissionID:      r.mission.ID,
		Stage:          stage,
		TimeoutSeconds: int(r.m.cfg.StageTimeout.Seconds()),
	}); err != nil {
		return err
	}
	if err := r.advance(TriggerStageTimeout); err != nil {
		return err
	}
	return r.publishPaused(fmt.Sprintf("stage %s timed out", stage), nil)
}

func (r *run) cancel(reason string) error {
	if r.st.CurrentStage.IsTerminal() {
		return nil
	}
	if err := r.advance(TriggerCancelRequested); err != nil {
		return err
	}
	return r.publish(&events.MissionCancelledPayload{
		MissionID: r.mission.ID,
		Reason:    reason,
	})
}

func (r *run) publish(payload events.Payload) error {
	return r.publishEvent(events.New(r.st.TaskID, r.st.Mode, r.st.CurrentStage, payload))
}

func (r *run) publishEvent(ev *events.Event) error {
	if err := r.m.bus.Publish(ev); err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.Type, err)
	}
	return nil
}
