package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/kalyank1144/Ordinex-sub008/internal/types"
)

const (
	maxFileRefs  = 10
	maxTestNames = 5
	// signatureLines is how many stable output lines feed the signature.
	signatureLines = 3
)

// volatilePatterns strip run-to-run noise before signature computation.
// Two runs of the same failure must produce identical stable text.
var volatilePatterns = []*regexp.Regexp{
	// ISO timestamps and common log time prefixes.
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})?`),
	regexp.MustCompile(`\d{2}:\d{2}:\d{2}(\.\d+)?`),
	// Durations such as 1.234s, 45ms, 2m13s.
	regexp.MustCompile(`\b\d+(\.\d+)?(ns|us|µs|ms|s|m|h)\b`),
	// Hex addresses and pointers.
	regexp.MustCompile(`0x[0-9a-fA-F]+`),
	// Goroutine ids.
	regexp.MustCompile(`goroutine \d+`),
	// Process ids: "pid 123", "pid=123", "[123]".
	regexp.MustCompile(`(?i)\bpid[ =:]\s*\d+`),
	regexp.MustCompile(`\[\d{2,7}\]`),
	// UUID literals.
	regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`),
	// Home-directory prefixes vary per machine and user.
	regexp.MustCompile(`/(?:home|Users)/[^\s/:]+`),
	// Temp paths vary per run.
	regexp.MustCompile(`/tmp/[^\s:]+`),
	// Port numbers in addresses.
	regexp.MustCompile(`:\d{4,5}\b`),
}

// failurePattern maps an output signal to a failure type. Patterns are
// checked in priority order: a run that both timed out and shows
// assertion noise is a timeout.
type failurePattern struct {
	typ     types.FailureType
	matches *regexp.Regexp
}

var failurePatterns = []failurePattern{
	{types.FailureTimeout, regexp.MustCompile(`(?i)(test timed out|panic: test timed out|context deadline exceeded|killed after timeout)`)},
	{types.FailureEnvironment, regexp.MustCompile(`(?i)(command not found|executable file not found|no such file or directory|permission denied|cannot connect|connection refused|missing dependency|module .* not found|ENOENT)`)},
	{types.FailureBuild, regexp.MustCompile(`(?i)(build failed|compilation (error|failed)|cannot compile|undefined reference|linker error|ld: error|build constraints exclude)`)},
	{types.FailureTypecheck, regexp.MustCompile(`(?i)(type error|cannot use .* as .* value|undefined: |undeclared name|incompatible types|does not implement|mismatched types|TS\d{4}:)`)},
	{types.FailureLint, regexp.MustCompile(`(?i)(lint(er)? (error|failed)|golangci-lint|eslint|unused variable|ineffectual assignment|style violation)`)},
	{types.FailureAssertion, regexp.MustCompile(`(?i)(--- FAIL|FAIL:|assertion failed|expected .* (got|but was|received)|AssertionError|Test(s)? failed|not ok \d+)`)},
}

// fileRefPattern finds path:line references in output.
var fileRefPattern = regexp.MustCompile(`([A-Za-z0-9_\-./]+\.[A-Za-z]{1,4}):(\d+)`)

// testNamePatterns find failing test identifiers across common runners.
var testNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`--- FAIL: (\S+)`),
	regexp.MustCompile(`FAIL: (\S+)`),
	regexp.MustCompile(`✗ (\S+)`),
	regexp.MustCompile(`not ok \d+ - (\S+)`),
}

// testCountPatterns parse pass/fail tallies from runner summaries.
var (
	summaryPattern  = regexp.MustCompile(`(\d+) passed.*?(\d+) failed`)
	failedOfPattern = regexp.MustCompile(`(\d+) of (\d+) tests? failed`)
	goFailPattern   = regexp.MustCompile(`--- FAIL:`)
	goPassPattern   = regexp.MustCompile(`--- PASS:`)
)

// ClassifyOutput deterministically classifies raw tool output. The same
// output always yields the same classification, including the signature.
func ClassifyOutput(output string) types.FailureClassification {
	stable := StripVolatile(output)

	typ := types.FailureUnknown
	for _, fp := range failurePatterns {
		if fp.matches.MatchString(stable) {
			typ = fp.typ
			break
		}
	}

	key := normalizedKey(stable)
	return types.FailureClassification{
		Type:          typ,
		NormalizedKey: key,
		Signature:     Signature(typ, stable),
		Summary:       summarize(stable),
		CodeFixable:   codeFixable(typ),
		Files:         extractFileRefs(stable),
		Tests:         extractTestNames(stable),
	}
}

// StripVolatile removes run-to-run noise: timestamps, durations, memory
// addresses, goroutine ids, temp paths, and ephemeral ports.
func StripVolatile(output string) string {
	out := output
	for _, p := range volatilePatterns {
		out = p.ReplaceAllString(out, "<X>")
	}
	return out
}

// Signature computes the stable failure identity: the first 16 hex chars
// of sha256 over the failure type and the first stable non-empty lines.
func Signature(typ types.FailureType, stableOutput string) string {
	var picked []string
	for _, line := range strings.Split(stableOutput, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		picked = append(picked, line)
		if len(picked) == signatureLines {
			break
		}
	}
	h := sha256.Sum256([]byte(string(typ) + "\n" + strings.Join(picked, "\n")))
	return hex.EncodeToString(h[:])[:16]
}

// ParseTestCounts extracts pass/fail tallies from runner summary lines.
// Unparseable output yields zero counts, never an error.
func ParseTestCounts(output string) types.TestCounts {
	stable := StripVolatile(output)

	if m := summaryPattern.FindStringSubmatch(stable); m != nil {
		passed := atoi(m[1])
		failed := atoi(m[2])
		return types.TestCounts{Known: true, Passed: passed, Failed: failed}
	}
	if m := failedOfPattern.FindStringSubmatch(stable); m != nil {
		failed := atoi(m[1])
		total := atoi(m[2])
		return types.TestCounts{Known: true, Passed: total - failed, Failed: failed}
	}

	// Go test output has no single summary line; count FAIL markers.
	failures := len(goFailPattern.FindAllString(stable, -1))
	passes := len(goPassPattern.FindAllString(stable, -1))
	if failures > 0 || passes > 0 {
		return types.TestCounts{Known: true, Passed: passes, Failed: failures}
	}
	return types.TestCounts{}
}

func codeFixable(typ types.FailureType) bool {
	switch typ {
	case types.FailureAssertion, types.FailureTypecheck, types.FailureLint, types.FailureBuild:
		return true
	default:
		return false
	}
}

func normalizedKey(stable string) string {
	for _, line := range strings.Split(stable, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return strings.ToLower(line)
		}
	}
	return ""
}

func summarize(stable string) string {
	// Prefer the first explicit failure line over the first line overall.
	for _, line := range strings.Split(stable, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.Contains(trimmed, "FAIL") || strings.Contains(trimmed, "rror") {
			return truncate(trimmed, 200)
		}
	}
	for _, line := range strings.Split(stable, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			return truncate(trimmed, 200)
		}
	}
	return ""
}

func extractFileRefs(stable string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range fileRefPattern.FindAllStringSubmatch(stable, -1) {
		ref := m[1] + ":" + m[2]
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
		if len(out) == maxFileRefs {
			break
		}
	}
	return out
}

func extractTestNames(stable string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range testNamePatterns {
		for _, m := range p.FindAllStringSubmatch(stable, -1) {
			name := m[1]
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
			if len(out) == maxTestNames {
				return out
			}
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
