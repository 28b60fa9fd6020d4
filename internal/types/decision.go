package types

// DecisionAction is the deterministic action tag carried by a decision
// option. Resolving an option executes exactly the tagged action; there is
// no free-form interpretation.
type DecisionAction string

const (
	DecisionRetryNow       DecisionAction = "retry_now"
	DecisionSplitAndRetry  DecisionAction = "split_and_retry"
	DecisionRegenerate     DecisionAction = "regenerate"
	DecisionSkipFile       DecisionAction = "skip_file"
	DecisionProvideInfo    DecisionAction = "provide_info"
	DecisionEditPlan       DecisionAction = "edit_plan"
	DecisionAbortStep      DecisionAction = "abort_step"
)

// DecisionOption is one bounded choice inside a decision point.
type DecisionOption struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	// Action is the single deterministic action this option triggers.
	Action DecisionAction `json:"action"`
	// Safe marks options with no side effects beyond state bookkeeping.
	Safe bool `json:"safe"`
	// Default marks the obvious safe choice when the category implies one.
	// At most one option in a decision point is default.
	Default bool `json:"default,omitempty"`
}

// DecisionContext ties a decision point back to the run it interrupted.
type DecisionContext struct {
	TaskID        string        `json:"task_id,omitempty"`
	MissionID     string        `json:"mission_id,omitempty"`
	StepID        string        `json:"step_id,omitempty"`
	AttemptID     string        `json:"attempt_id,omitempty"`
	ErrorCode     string        `json:"error_code,omitempty"`
	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	AffectedFiles []string      `json:"affected_files,omitempty"`
}

// DecisionPoint is the terminal artifact of exhausted recovery: a
// structured, bounded-option question for a human. This is the only place
// the system asks a human anything.
type DecisionPoint struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Summary string           `json:"summary"`
	Options []DecisionOption `json:"options"`
	Context DecisionContext  `json:"context"`
}

// DefaultOption returns the option marked default, or nil.
func (d *DecisionPoint) DefaultOption() *DecisionOption {
	for i := range d.Options {
		if d.Options[i].Default {
			return &d.Options[i]
		}
	}
	return nil
}

// Option returns the option with the given id, or nil.
func (d *DecisionPoint) Option(id string) *DecisionOption {
	for i := range d.Options {
		if d.Options[i].ID == id {
			return &d.Options[i]
		}
	}
	return nil
}

// DecisionResolution is the human's answer: a chosen option id plus
// optional free text for provide_info options.
type DecisionResolution struct {
	DecisionID string `json:"decision_id"`
	OptionID   string `json:"option_id"`
	FreeText   string `json:"free_text,omitempty"`
}
