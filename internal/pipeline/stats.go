package pipeline

import (
	"fmt"
	"strings"
)

// Stats are the running totals for one file-processing run. They are
// reporting output only; nothing in the pipeline branches on them.
type Stats struct {
	Success            int // spans translated (batch or single)
	Failed             int // single calls failed for a non-timeout reason
	Timeouts           int // single calls that hit the call bound
	EmptyInput         int // spans with blank text, passed through
	EmptyOutput        int // calls that produced a blank result
	SkippedCode        int // spans excluded by classification
	CacheHits          int // spans resolved from translation memory
	TotalProcessed     int // spans that reached the translation stage
	BatchSuccess       int // chunks accepted whole
	BatchFailed        int // chunks rejected by validation
	FallbackIndividual int // spans re-sent one by one after a chunk failed
	TotalLines         int // lines in the input file
}

// SuccessRate returns the share of processed spans that translated, in percent.
func (s Stats) SuccessRate() float64 {
	if s.TotalProcessed == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.TotalProcessed) * 100
}

// BatchSuccessRate returns the share of dispatched chunks accepted whole, in percent.
func (s Stats) BatchSuccessRate() float64 {
	total := s.BatchSuccess + s.BatchFailed
	if total == 0 {
		return 0
	}
	return float64(s.BatchSuccess) / float64(total) * 100
}

// Issues returns the number of spans that ended with a problem.
func (s Stats) Issues() int {
	return s.Failed + s.Timeouts + s.EmptyOutput
}

// Summary renders the totals as a readable block for the run log and console.
func (s Stats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translated      : %d\n", s.Success)
	fmt.Fprintf(&b, "Skipped (code)  : %d\n", s.SkippedCode)
	fmt.Fprintf(&b, "Cache hits      : %d\n", s.CacheHits)
	fmt.Fprintf(&b, "Failed/timeout  : %d\n", s.Failed+s.Timeouts)
	fmt.Fprintf(&b, "Empty input     : %d\n", s.EmptyInput)
	fmt.Fprintf(&b, "Empty output    : %d\n", s.EmptyOutput)
	fmt.Fprintf(&b, "Total processed : %d\n", s.TotalProcessed)
	fmt.Fprintf(&b, "Total lines     : %d\n", s.TotalLines)
	fmt.Fprintf(&b, "Success rate    : %.1f%%\n", s.SuccessRate())
	if s.BatchSuccess+s.BatchFailed > 0 {
		fmt.Fprintf(&b, "Batches OK/fail : %d/%d (%.1f%%)\n", s.BatchSuccess, s.BatchFailed, s.BatchSuccessRate())
		fmt.Fprintf(&b, "Fallback calls  : %d\n", s.FallbackIndividual)
	}
	return b.String()
}
