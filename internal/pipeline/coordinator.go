package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/valpere/rentran/internal/translator"
)

// batchItem is one (line, text) occurrence queued for an external call.
type batchItem struct {
	line int
	text string
}

// processPending flattens the spans of the pending lines into batch items,
// resolves them chunk by chunk, and returns the rewritten lines in the same
// order the pending lines were given. Every item ends up with exactly one
// result entry; items whose calls failed keep their original text.
func (d *Driver) processPending(ctx context.Context, pending []PendingLine) []string {
	var items []batchItem
	for _, p := range pending {
		for _, s := range p.Spans {
			items = append(items, batchItem{line: p.Number, text: s.Text})
		}
	}

	results := make(map[Key]string, len(items))

	// Translation-memory hits skip the external call entirely.
	misses := items[:0:0]
	for _, it := range items {
		if d.mem != nil {
			cached, found, err := d.mem.GetCached(ctx, it.text, d.cfg.SourceLang, d.cfg.TargetLang)
			if err == nil && found {
				results[Key{Line: it.line, Text: it.text}] = cached
				d.stats.CacheHits++
				d.stats.TotalProcessed++
				d.stats.Success++
				d.log.Record(it.line, StatusCacheHit, it.text, cached, "")
				continue
			}
		}
		misses = append(misses, it)
	}

	for start := 0; start < len(misses); start += d.cfg.BatchSize {
		end := start + d.cfg.BatchSize
		if end > len(misses) {
			end = len(misses)
		}
		chunk := misses[start:end]
		d.translateChunk(ctx, chunk, results)

		// Pace only after full-size chunks; a short final chunk has no
		// subsequent call pressure to throttle.
		if len(chunk) == d.cfg.BatchSize && d.cfg.Delay > 0 {
			d.sleep(d.cfg.Delay)
		}
	}

	out := make([]string, len(pending))
	for i, p := range pending {
		out[i] = Rewrite(p, results)
	}
	return out
}

// translateChunk tries one batch call for the chunk and records a result per
// item. A rejected batch is never partially accepted: on any failure every
// item independently falls back to a single call.
func (d *Driver) translateChunk(ctx context.Context, chunk []batchItem, results map[Key]string) {
	texts := make([]string, len(chunk))
	for i, it := range chunk {
		texts[i] = it.text
	}

	translated, err := d.gw.TranslateBatch(ctx, texts)
	if err == nil {
		d.stats.BatchSuccess++
		d.stats.TotalProcessed += len(chunk)
		d.stats.Success += len(chunk)
		for i, it := range chunk {
			results[Key{Line: it.line, Text: it.text}] = translated[i]
			d.log.Record(it.line, StatusBatchSuccess, it.text, translated[i], "")
			d.remember(ctx, it.text, translated[i])
		}
		return
	}

	d.stats.BatchFailed++
	d.stats.FallbackIndividual += len(chunk)
	d.log.Notef("BATCH FAILED: %v — falling back to %d individual calls", err, len(chunk))

	for _, it := range chunk {
		results[Key{Line: it.line, Text: it.text}] = d.translateSingle(ctx, it.line, it.text)
	}
}

// translateSingle performs one bounded single-text call. Failures degrade to
// the original text; they are recorded, never raised.
func (d *Driver) translateSingle(ctx context.Context, line int, text string) string {
	d.stats.TotalProcessed++

	if strings.TrimSpace(text) == "" {
		d.stats.EmptyInput++
		d.log.Record(line, StatusEmptyInput, text, "", "")
		return text
	}

	if d.mem != nil {
		cached, found, err := d.mem.GetCached(ctx, text, d.cfg.SourceLang, d.cfg.TargetLang)
		if err == nil && found {
			d.stats.CacheHits++
			d.stats.Success++
			d.log.Record(line, StatusCacheHit, text, cached, "")
			return cached
		}
	}

	out, err := d.gw.TranslateOne(ctx, text)
	switch {
	case errors.Is(err, translator.ErrTimeout):
		d.stats.Timeouts++
		d.log.Record(line, StatusTimeout, text, "", err.Error())
		return text
	case errors.Is(err, translator.ErrEmptyResult):
		d.stats.EmptyOutput++
		d.log.Record(line, StatusEmptyOutput, text, "", err.Error())
		return text
	case err != nil:
		d.stats.Failed++
		d.log.Record(line, StatusFailed, text, "", err.Error())
		return text
	}

	d.stats.Success++
	d.log.Record(line, StatusSuccess, text, out, "")
	d.remember(ctx, text, out)
	return out
}

// remember stores a successful translation in the memory cache, best-effort.
func (d *Driver) remember(ctx context.Context, text, translated string) {
	if d.mem == nil {
		return
	}
	_ = d.mem.Save(ctx, text, d.cfg.SourceLang, d.cfg.TargetLang, translated, d.gw.Service().Name())
}
