// Package pipeline drives one file through classification, batched
// translation, and in-place span substitution. Lines are consumed in a
// single linear pass; translatable lines are parked in a pending set that is
// flushed at size and interval boundaries, and the output is reassembled in
// original line order.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/valpere/rentran/internal/classifier"
	"github.com/valpere/rentran/internal/translator"
)

// DefaultFlushInterval is the safety flush bound: pending lines are flushed
// at least this often regardless of how few have accumulated, so memory and
// latency stay bounded on files with sparse dialogue.
const DefaultFlushInterval = 100

// PendingLine is a line awaiting batch translation: its 1-based number, its
// original text with the trailing newline stripped, and the spans that
// passed classification in positional order.
type PendingLine struct {
	Number int
	Text   string
	Spans  []classifier.Span
}

// Key identifies one translatable occurrence. Raw text alone is not unique —
// the same phrase can recur on different lines with different outcomes (one
// via batch, one via fallback) and must never be conflated.
type Key struct {
	Line int
	Text string
}

// Memory is an optional translation-memory cache consulted before any
// external call and updated after successful ones.
type Memory interface {
	GetCached(ctx context.Context, text, sourceLang, targetLang string) (string, bool, error)
	Save(ctx context.Context, text, sourceLang, targetLang, translated, engine string) error
}

// Config carries the per-run settings of a Driver.
type Config struct {
	SourceLang string
	TargetLang string

	// BatchMode packs spans into delimiter-joined calls; when false every
	// span is translated individually.
	BatchMode bool

	// BatchSize is the item count per chunk and also the pending-line
	// count that triggers a flush.
	BatchSize int

	// Delay is the pacing pause inserted after full-size chunks.
	Delay time.Duration

	// FlushInterval forces a flush every N input lines.
	FlushInterval int

	// Progress, when set, is called after each input line.
	Progress func(line, total int)
}

// Driver runs the translation pipeline over one input stream. It is
// single-use: create one Driver per file.
type Driver struct {
	cfg   Config
	gw    *translator.Gateway
	log   *RunLog
	mem   Memory
	stats Stats
	sleep func(time.Duration)
}

// NewDriver returns a Driver over gw. log may be nil to disable the run log
// and mem may be nil to disable the translation memory.
func NewDriver(gw *translator.Gateway, log *RunLog, mem Memory, cfg Config) *Driver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if log == nil {
		log = NewRunLog(nil, VerbosityNormal)
	}
	return &Driver{cfg: cfg, gw: gw, log: log, mem: mem, sleep: time.Sleep}
}

// Stats returns the totals accumulated so far.
func (d *Driver) Stats() Stats {
	return d.stats
}

// Run consumes r line by line and returns the rewritten lines, without
// trailing newlines, in original order. Translation failures never abort the
// run — affected spans keep their original text. Only a read failure is
// returned as an error.
func (d *Driver) Run(ctx context.Context, r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	d.stats.TotalLines = len(lines)
	out := make([]string, len(lines))
	var pending []PendingLine

	flush := func() {
		if len(pending) == 0 {
			return
		}
		rewritten := d.processPending(ctx, pending)
		for i, p := range pending {
			out[p.Number-1] = rewritten[i]
		}
		pending = pending[:0]
	}

	for i, line := range lines {
		num := i + 1

		p, ok := d.collect(line, num)
		switch {
		case !ok:
			out[i] = line
		case !d.cfg.BatchMode:
			out[i] = d.translateSequential(ctx, p)
		default:
			pending = append(pending, p)
		}

		if len(pending) >= d.cfg.BatchSize || num%d.cfg.FlushInterval == 0 {
			flush()
		}

		if d.cfg.Progress != nil {
			d.cfg.Progress(num, len(lines))
		}
	}
	flush()

	return out, nil
}

// collect classifies one line. Comment and inline-statement lines, and lines
// with no qualifying span, pass through untouched.
func (d *Driver) collect(line string, num int) (PendingLine, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "$") {
		return PendingLine{}, false
	}

	var keep []classifier.Span
	for _, s := range classifier.Scan(line) {
		if !classifier.ShouldTranslate(line, s) {
			d.stats.SkippedCode++
			d.log.Record(num, StatusSkippedCode, s.Text, "", "")
			continue
		}
		if strings.TrimSpace(s.Text) == "" {
			d.stats.EmptyInput++
			d.log.Record(num, StatusEmptyInput, s.Text, "", "")
			continue
		}
		keep = append(keep, s)
	}

	if len(keep) == 0 {
		return PendingLine{}, false
	}
	return PendingLine{Number: num, Text: line, Spans: keep}, true
}

// translateSequential handles one line in non-batch mode: every span gets
// its own call, paced by the configured delay.
func (d *Driver) translateSequential(ctx context.Context, p PendingLine) string {
	results := make(map[Key]string, len(p.Spans))
	for _, s := range p.Spans {
		results[Key{Line: p.Number, Text: s.Text}] = d.translateSingle(ctx, p.Number, s.Text)
		if d.cfg.Delay > 0 {
			d.sleep(d.cfg.Delay)
		}
	}
	return Rewrite(p, results)
}
