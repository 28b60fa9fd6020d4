// Package loopdetect recognizes unproductive repair loops from the
// recorded history of attempts. Detection is pure: it looks only at
// iteration outcomes, never at the clock or the workspace, so the same
// history always yields the same verdict.
package loopdetect

import (
	"fmt"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

const (
	// stuckThreshold is how many consecutive identical failure
	// signatures mean the loop is making no progress.
	stuckThreshold = 3
	// regressingWindow is how many trailing outcomes must show strictly
	// declining pass counts.
	regressingWindow = 3
	// oscillatingWindow is how many trailing outcomes an A/B/A/B
	// signature pattern must span.
	oscillatingWindow = 4
)

// Pattern names an unproductive loop shape.
type Pattern string

const (
	// PatternNone means the history shows no loop.
	PatternNone Pattern = ""
	// PatternStuck means the same failure keeps recurring unchanged.
	PatternStuck Pattern = "stuck"
	// PatternRegressing means repairs are making the tests worse.
	PatternRegressing Pattern = "regressing"
	// PatternOscillating means repairs alternate between two failures,
	// each fix reintroducing the other's breakage.
	PatternOscillating Pattern = "oscillating"
)

// Verdict is the result of analyzing an attempt history.
type Verdict struct {
	Pattern Pattern
	Reason  string
}

// Looping reports whether the verdict names any pattern.
func (v Verdict) Looping() bool { return v.Pattern != PatternNone }

// Analyze inspects the outcome history, newest last, and reports the
// first pattern found. Stuck is checked first as the strongest signal.
func Analyze(history []types.IterationOutcome) Verdict {
	if v := DetectStuck(history); v.Looping() {
		return v
	}
	if v := DetectRegressing(history); v.Looping() {
		return v
	}
	return DetectOscillating(history)
}

// DetectStuck reports a loop when the trailing attempts share one
// failure signature. Successful attempts reset the run.
func DetectStuck(history []types.IterationOutcome) Verdict {
	if len(history) < stuckThreshold {
		return Verdict{}
	}
	tail := history[len(history)-stuckThreshold:]
	sig := tail[0].FailureSignature
	if sig == "" {
		return Verdict{}
	}
	for _, out := range tail {
		if out.Success || out.FailureSignature != sig {
			return Verdict{}
		}
	}
	return Verdict{
		Pattern: PatternStuck,
		Reason:  fmt.Sprintf("failure %s recurred %d times unchanged", sig, stuckThreshold),
	}
}

// DetectRegressing reports a loop when pass counts strictly decline
// across the trailing attempts. Attempts with unknown counts break the
// sequence rather than guess.
func DetectRegressing(history []types.IterationOutcome) Verdict {
	if len(history) < regressingWindow {
		return Verdict{}
	}
	tail := history[len(history)-regressingWindow:]
	for _, out := range tail {
		if !out.TestCounts.Known {
			return Verdict{}
		}
	}
	for i := 1; i < len(tail); i++ {
		if tail[i].TestCounts.Passed >= tail[i-1].TestCounts.Passed {
			return Verdict{}
		}
	}
	return Verdict{
		Pattern: PatternRegressing,
		Reason: fmt.Sprintf("pass count fell from %d to %d over %d attempts",
			tail[0].TestCounts.Passed, tail[len(tail)-1].TestCounts.Passed, regressingWindow),
	}
}

// DetectOscillating reports a loop when the trailing signatures
// alternate between exactly two distinct failures.
func DetectOscillating(history []types.IterationOutcome) Verdict {
	if len(history) < oscillatingWindow {
		return Verdict{}
	}
	tail := history[len(history)-oscillatingWindow:]
	a, b := tail[0].FailureSignature, tail[1].FailureSignature
	if a == "" || b == "" || a == b {
		return Verdict{}
	}
	for i, out := range tail {
		if out.Success {
			return Verdict{}
		}
		want := a
		if i%2 == 1 {
			want = b
		}
		if out.FailureSignature != want {
			return Verdict{}
		}
	}
	return Verdict{
		Pattern: PatternOscillating,
		Reason:  fmt.Sprintf("failures alternate between %s and %s", a, b),
	}
}
