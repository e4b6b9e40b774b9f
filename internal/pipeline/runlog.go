package pipeline

import (
	"fmt"
	"io"
	"time"
)

// Verbosity controls how much of the per-span record stream reaches the log.
type Verbosity int

const (
	// VerbosityNormal records every span outcome.
	VerbosityNormal Verbosity = iota

	// VerbosityErrorsOnly suppresses successful outcomes.
	VerbosityErrorsOnly

	// VerbositySummaryOnly suppresses everything but the final summary.
	VerbositySummaryOnly
)

// ParseVerbosity maps a configuration string to a Verbosity level.
// Matching is case-sensitive on the canonical lowercase names.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "normal", "":
		return VerbosityNormal, nil
	case "errors-only":
		return VerbosityErrorsOnly, nil
	case "summary-only":
		return VerbositySummaryOnly, nil
	}
	return VerbosityNormal, fmt.Errorf("unknown verbosity %q (want normal, errors-only or summary-only)", s)
}

// Status tags recorded per span in the run log.
const (
	StatusSuccess      = "SUCCESS"
	StatusFailed       = "FAILED"
	StatusTimeout      = "TIMEOUT"
	StatusEmptyInput   = "EMPTY_INPUT"
	StatusEmptyOutput  = "EMPTY_OUTPUT"
	StatusSkippedCode  = "SKIPPED_CODE"
	StatusBatchSuccess = "BATCH_SUCCESS"
	StatusCacheHit     = "CACHE_HIT"
)

// RunLog is the append-only diagnostic record for one run. Every write is
// best-effort: a failed or absent writer never aborts translation. A nil
// RunLog or a nil writer silently discards everything.
type RunLog struct {
	w         io.Writer
	verbosity Verbosity
}

// NewRunLog returns a RunLog writing to w at the given verbosity. w may be
// nil to disable logging entirely.
func NewRunLog(w io.Writer, v Verbosity) *RunLog {
	return &RunLog{w: w, verbosity: v}
}

func (l *RunLog) enabled() bool {
	return l != nil && l.w != nil && l.verbosity != VerbositySummaryOnly
}

// Header writes the run preamble.
func (l *RunLog) Header(runID, input, output, sourceLang, targetLang string, batchMode bool, batchSize int, delimiter string) {
	if !l.enabled() {
		return
	}
	mode := "SEQUENTIAL"
	if batchMode {
		mode = "BATCH"
	}
	fmt.Fprintf(l.w, "=== TRANSLATION LOG ===\n")
	fmt.Fprintf(l.w, "Run: %s\n", runID)
	fmt.Fprintf(l.w, "Date: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(l.w, "Input: %s\n", input)
	fmt.Fprintf(l.w, "Output: %s\n", output)
	fmt.Fprintf(l.w, "Languages: %s -> %s\n", sourceLang, targetLang)
	fmt.Fprintf(l.w, "Mode: %s\n", mode)
	if batchMode {
		fmt.Fprintf(l.w, "Batch size: %d\n", batchSize)
		fmt.Fprintf(l.w, "Delimiter: %q\n", delimiter)
	}
	fmt.Fprintf(l.w, "%s\n\n", divider)
}

const divider = "----------------------------------------"

// Record appends one span outcome keyed by line number and status tag.
func (l *RunLog) Record(line int, status, original, translated, errMsg string) {
	if !l.enabled() {
		return
	}
	if l.verbosity == VerbosityErrorsOnly && (status == StatusSuccess || status == StatusBatchSuccess || status == StatusCacheHit) {
		return
	}
	fmt.Fprintf(l.w, "LINE %d | STATUS: %s\n", line, status)
	fmt.Fprintf(l.w, "SOURCE : %q\n", original)
	if translated != "" && translated != original {
		fmt.Fprintf(l.w, "RESULT : %q\n", translated)
	}
	if errMsg != "" {
		fmt.Fprintf(l.w, "ERROR  : %s\n", errMsg)
	}
	fmt.Fprintf(l.w, "%s\n\n", divider)
}

// Notef appends a free-form note, e.g. a batch failure explanation.
func (l *RunLog) Notef(format string, args ...any) {
	if !l.enabled() {
		return
	}
	fmt.Fprintf(l.w, format+"\n\n", args...)
}

// Summary appends the final totals block regardless of verbosity, as long
// as a writer is attached.
func (l *RunLog) Summary(stats Stats) {
	if l == nil || l.w == nil {
		return
	}
	fmt.Fprintf(l.w, "=== SUMMARY ===\n%s", stats.Summary())
}
