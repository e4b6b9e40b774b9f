package pipeline_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/valpere/rentran/internal/batch"
	"github.com/valpere/rentran/internal/pipeline"
	"github.com/valpere/rentran/internal/translator"
)

// scriptedService answers each call from a queue of canned responses, or by
// applying a transform to the wire text.
type scriptedService struct {
	responses []string
	transform func(wire string) string
	calls     []string
}

func (s *scriptedService) Name() string { return "scripted" }

func (s *scriptedService) Translate(ctx context.Context, req translator.Request) (string, error) {
	s.calls = append(s.calls, req.Text)
	if len(s.responses) > 0 {
		r := s.responses[0]
		s.responses = s.responses[1:]
		return r, nil
	}
	if s.transform != nil {
		return s.transform(req.Text), nil
	}
	return req.Text, nil
}

func (s *scriptedService) IsAvailable(ctx context.Context) error { return nil }

// upperTransform is a stand-in translation visible in assertions.
func upperTransform(wire string) string {
	parts := strings.Split(wire, batch.DefaultDelimiter)
	for i := range parts {
		parts[i] = strings.ToUpper(parts[i])
	}
	return strings.Join(parts, batch.DefaultDelimiter)
}

func newDriver(svc translator.Service, cfg pipeline.Config) *pipeline.Driver {
	gw := translator.NewGateway(svc, translator.GatewayConfig{
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
	})
	return pipeline.NewDriver(gw, nil, nil, cfg)
}

func runLines(t *testing.T, d *pipeline.Driver, input string) []string {
	t.Helper()
	out, err := d.Run(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return out
}

func TestDriver_PassthroughLines(t *testing.T) {
	svc := &scriptedService{transform: upperTransform}
	d := newDriver(svc, pipeline.Config{SourceLang: "en", TargetLang: "id", BatchMode: true})

	input := "# a comment with \"quotes\"\n" +
		"$ flag = \"on\"\n" +
		"show eileen happy\n" +
		"\n" +
		"label start:\n"
	out := runLines(t, d, input)

	want := []string{
		`# a comment with "quotes"`,
		`$ flag = "on"`,
		"show eileen happy",
		"",
		"label start:",
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("line %d changed: expected %q, got %q", i+1, want[i], out[i])
		}
	}
	if len(svc.calls) != 0 {
		t.Errorf("expected no engine calls for passthrough input, got %d", len(svc.calls))
	}
}

func TestDriver_TranslatesDialogue(t *testing.T) {
	svc := &scriptedService{transform: upperTransform}
	d := newDriver(svc, pipeline.Config{SourceLang: "en", TargetLang: "id", BatchMode: true})

	out := runLines(t, d, "e \"hello\"\ne \"goodbye\"\n")

	if out[0] != `e "HELLO"` || out[1] != `e "GOODBYE"` {
		t.Errorf("unexpected output: %v", out)
	}

	stats := d.Stats()
	if stats.Success != 2 {
		t.Errorf("expected 2 successes, got %d", stats.Success)
	}
	if stats.BatchSuccess != 1 {
		t.Errorf("expected 1 batch success, got %d", stats.BatchSuccess)
	}
}

func TestDriver_MixedSpans(t *testing.T) {
	// First span is dialogue, second is an asset reference: only the first
	// is replaced, the second stays byte-identical.
	svc := &scriptedService{transform: upperTransform}
	d := newDriver(svc, pipeline.Config{SourceLang: "en", TargetLang: "id", BatchMode: true})

	out := runLines(t, d, "e \"Hello there\" \"image.png\"\n")

	if out[0] != `e "HELLO THERE" "image.png"` {
		t.Errorf("unexpected output: %q", out[0])
	}
	if d.Stats().SkippedCode != 1 {
		t.Errorf("expected 1 skipped span, got %d", d.Stats().SkippedCode)
	}
}

func TestDriver_OutputKeepsLineOrder(t *testing.T) {
	// A non-candidate line between two candidates must stay in place even
	// though the candidates are rewritten later, at flush time.
	svc := &scriptedService{transform: upperTransform}
	d := newDriver(svc, pipeline.Config{SourceLang: "en", TargetLang: "id", BatchMode: true, BatchSize: 5})

	input := "e \"first\"\nshow eileen happy\ne \"second\"\n"
	out := runLines(t, d, input)

	want := []string{`e "FIRST"`, "show eileen happy", `e "SECOND"`}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i+1, want[i], out[i])
		}
	}
}

func TestDriver_BatchFailureFallsBack(t *testing.T) {
	// The batch response loses the delimiter; every item must be retried
	// individually and the counters must show the fallback.
	svc := &scriptedService{
		responses: []string{
			"merged beyond recognition", // batch call: delimiter lost
			"SATU", "DUA", "TIGA",       // fallback singles
		},
	}
	d := newDriver(svc, pipeline.Config{SourceLang: "en", TargetLang: "id", BatchMode: true, BatchSize: 3})

	out := runLines(t, d, "e \"one\"\ne \"two\"\ne \"three\"\n")

	want := []string{`e "SATU"`, `e "DUA"`, `e "TIGA"`}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i+1, want[i], out[i])
		}
	}

	stats := d.Stats()
	if stats.BatchFailed != 1 {
		t.Errorf("expected 1 failed batch, got %d", stats.BatchFailed)
	}
	if stats.FallbackIndividual != 3 {
		t.Errorf("expected 3 fallback calls, got %d", stats.FallbackIndividual)
	}
	if stats.Success != 3 {
		t.Errorf("expected 3 successes, got %d", stats.Success)
	}
}

func TestDriver_FallbackFailureKeepsOriginal(t *testing.T) {
	// Batch fails, then every single call also fails: spans keep their
	// original text and the file still completes.
	svc := &scriptedService{
		responses: []string{"", "", ""}, // batch empty, singles empty
	}
	d := newDriver(svc, pipeline.Config{SourceLang: "en", TargetLang: "id", BatchMode: true, BatchSize: 2})

	out := runLines(t, d, "e \"one\"\ne \"two\"\n")

	if out[0] != `e "one"` || out[1] != `e "two"` {
		t.Errorf("originals not preserved: %v", out)
	}
	if d.Stats().EmptyOutput != 2 {
		t.Errorf("expected 2 empty outputs, got %d", d.Stats().EmptyOutput)
	}
}

func TestDriver_SameTextDifferentLinesResolveIndependently(t *testing.T) {
	// Two occurrences of "OK" on different lines: the first resolves via a
	// batch call, the second falls back and fails, keeping the original.
	// BatchSize 1 puts each occurrence in its own chunk.
	svc := &scriptedService{
		responses: []string{
			"Oke", // chunk 1 (line 1): batch of one succeeds
			"",    // chunk 2 (line 2): batch empty → rejected
			"",    // line 2 fallback single also empty
		},
	}
	d := newDriver(svc, pipeline.Config{SourceLang: "en", TargetLang: "id", BatchMode: true, BatchSize: 1})

	out := runLines(t, d, "a \"OK\"\nb \"OK\"\n")

	if out[0] != `a "Oke"` {
		t.Errorf("line 1 should carry the batch result: %q", out[0])
	}
	if out[1] != `b "OK"` {
		t.Errorf("line 2 should keep the original text: %q", out[1])
	}
}

func TestDriver_SafetyFlushInterval(t *testing.T) {
	// With a flush interval of 2 and a batch size of 10, pending lines are
	// flushed every two input lines even though the batch never fills —
	// producing short chunks by design.
	svc := &scriptedService{transform: upperTransform}
	d := newDriver(svc, pipeline.Config{
		SourceLang: "en", TargetLang: "id",
		BatchMode: true, BatchSize: 10, FlushInterval: 2,
	})

	out := runLines(t, d, "e \"a\"\ne \"b\"\ne \"c\"\n")

	want := []string{`e "A"`, `e "B"`, `e "C"`}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i+1, want[i], out[i])
		}
	}
	// Two flushes: lines 1-2 at the interval boundary, line 3 at EOF.
	if d.Stats().BatchSuccess != 2 {
		t.Errorf("expected 2 batch calls, got %d", d.Stats().BatchSuccess)
	}
}

func TestDriver_SequentialMode(t *testing.T) {
	svc := &scriptedService{responses: []string{"HALO", "SAMPAI JUMPA"}}
	d := newDriver(svc, pipeline.Config{SourceLang: "en", TargetLang: "id", BatchMode: false})

	out := runLines(t, d, "e \"hello\"\ne \"goodbye\"\n")

	if out[0] != `e "HALO"` || out[1] != `e "SAMPAI JUMPA"` {
		t.Errorf("unexpected output: %v", out)
	}
	if len(svc.calls) != 2 {
		t.Errorf("expected 2 single calls, got %d", len(svc.calls))
	}
	if d.Stats().BatchSuccess != 0 {
		t.Errorf("sequential mode must not dispatch batches")
	}
}

// fakeMemory is a map-backed Memory for cache tests.
type fakeMemory struct {
	entries map[string]string
	saved   int
}

func (m *fakeMemory) GetCached(ctx context.Context, text, sourceLang, targetLang string) (string, bool, error) {
	v, ok := m.entries[text]
	return v, ok, nil
}

func (m *fakeMemory) Save(ctx context.Context, text, sourceLang, targetLang, translated, engine string) error {
	m.saved++
	if m.entries == nil {
		m.entries = map[string]string{}
	}
	m.entries[text] = translated
	return nil
}

func TestDriver_MemoryHitSkipsEngine(t *testing.T) {
	svc := &scriptedService{transform: upperTransform}
	mem := &fakeMemory{entries: map[string]string{"hello": "Halo"}}

	gw := translator.NewGateway(svc, translator.GatewayConfig{SourceLang: "en", TargetLang: "id"})
	d := pipeline.NewDriver(gw, nil, mem, pipeline.Config{
		SourceLang: "en", TargetLang: "id", BatchMode: true,
	})

	out := runLines(t, d, "e \"hello\"\n")

	if out[0] != `e "Halo"` {
		t.Errorf("expected cached translation, got %q", out[0])
	}
	if len(svc.calls) != 0 {
		t.Errorf("cache hit must not reach the engine, got %d calls", len(svc.calls))
	}
	if d.Stats().CacheHits != 1 {
		t.Errorf("expected 1 cache hit, got %d", d.Stats().CacheHits)
	}
}

func TestDriver_SavesSuccessesToMemory(t *testing.T) {
	svc := &scriptedService{transform: upperTransform}
	mem := &fakeMemory{}

	gw := translator.NewGateway(svc, translator.GatewayConfig{SourceLang: "en", TargetLang: "id"})
	d := pipeline.NewDriver(gw, nil, mem, pipeline.Config{
		SourceLang: "en", TargetLang: "id", BatchMode: true,
	})

	runLines(t, d, "e \"hello\"\ne \"goodbye\"\n")

	if mem.saved != 2 {
		t.Errorf("expected 2 memory saves, got %d", mem.saved)
	}
}

func TestDriver_RunLogRecordsStatuses(t *testing.T) {
	var buf bytes.Buffer
	svc := &scriptedService{transform: upperTransform}
	gw := translator.NewGateway(svc, translator.GatewayConfig{SourceLang: "en", TargetLang: "id"})
	log := pipeline.NewRunLog(&buf, pipeline.VerbosityNormal)
	d := pipeline.NewDriver(gw, log, nil, pipeline.Config{
		SourceLang: "en", TargetLang: "id", BatchMode: true,
	})

	runLines(t, d, "e \"hello\" \"image.png\"\n")

	logged := buf.String()
	if !strings.Contains(logged, pipeline.StatusSkippedCode) {
		t.Errorf("log missing SKIPPED_CODE record:\n%s", logged)
	}
	if !strings.Contains(logged, pipeline.StatusBatchSuccess) {
		t.Errorf("log missing BATCH_SUCCESS record:\n%s", logged)
	}
	if !strings.Contains(logged, "LINE 1") {
		t.Errorf("log records should be keyed by line number:\n%s", logged)
	}
}

func TestDriver_SummaryOnlyVerbositySuppressesRecords(t *testing.T) {
	var buf bytes.Buffer
	svc := &scriptedService{transform: upperTransform}
	gw := translator.NewGateway(svc, translator.GatewayConfig{SourceLang: "en", TargetLang: "id"})
	log := pipeline.NewRunLog(&buf, pipeline.VerbositySummaryOnly)
	d := pipeline.NewDriver(gw, log, nil, pipeline.Config{
		SourceLang: "en", TargetLang: "id", BatchMode: true,
	})

	runLines(t, d, "e \"hello\"\n")

	if buf.Len() != 0 {
		t.Errorf("summary-only run should record nothing per span, got:\n%s", buf.String())
	}
	log.Summary(d.Stats())
	if !strings.Contains(buf.String(), "SUMMARY") {
		t.Error("summary block should still be written")
	}
}
