package translator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/valpere/rentran/internal/batch"
)

type mockService struct {
	nameVal       string
	translateFunc func(ctx context.Context, req Request) (string, error)
	calls         int
}

func (m *mockService) Name() string {
	if m.nameVal == "" {
		return "mock"
	}
	return m.nameVal
}

func (m *mockService) Translate(ctx context.Context, req Request) (string, error) {
	m.calls++
	if m.translateFunc != nil {
		return m.translateFunc(ctx, req)
	}
	return "translated: " + req.Text, nil
}

func (m *mockService) IsAvailable(ctx context.Context) error { return nil }

func TestGateway_TranslateOne_Trims(t *testing.T) {
	svc := &mockService{translateFunc: func(ctx context.Context, req Request) (string, error) {
		return "  Halo  \n", nil
	}}
	g := NewGateway(svc, GatewayConfig{SourceLang: "en", TargetLang: "id"})

	out, err := g.TranslateOne(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Halo" {
		t.Errorf("expected trimmed result, got %q", out)
	}
}

func TestGateway_TranslateOne_EmptyResult(t *testing.T) {
	svc := &mockService{translateFunc: func(ctx context.Context, req Request) (string, error) {
		return "   ", nil
	}}
	g := NewGateway(svc, GatewayConfig{})

	_, err := g.TranslateOne(context.Background(), "Hello")
	if !errors.Is(err, ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult, got %v", err)
	}
}

func TestGateway_TranslateOne_ErrorText(t *testing.T) {
	svc := &mockService{translateFunc: func(ctx context.Context, req Request) (string, error) {
		return "ERROR: quota exceeded", nil
	}}
	g := NewGateway(svc, GatewayConfig{})

	_, err := g.TranslateOne(context.Background(), "Hello")
	if !errors.Is(err, ErrServiceError) {
		t.Errorf("expected ErrServiceError, got %v", err)
	}
}

func TestGateway_TranslateOne_Timeout(t *testing.T) {
	svc := &mockService{translateFunc: func(ctx context.Context, req Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	g := NewGateway(svc, GatewayConfig{SingleTimeout: 20 * time.Millisecond})

	_, err := g.TranslateOne(context.Background(), "Hello")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestGateway_TranslateOne_ProtectsMarkup(t *testing.T) {
	var seen string
	svc := &mockService{translateFunc: func(ctx context.Context, req Request) (string, error) {
		seen = req.Text
		return req.Text, nil
	}}
	g := NewGateway(svc, GatewayConfig{ProtectMarkup: true})

	out, err := g.TranslateOne(context.Background(), "Hi [player], {b}wait{/b}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(seen, "[player]") || strings.Contains(seen, "{b}") {
		t.Errorf("markup reached the engine unprotected: %q", seen)
	}
	if out != "Hi [player], {b}wait{/b}" {
		t.Errorf("markup not restored: %q", out)
	}
}

func TestGateway_TranslateBatch_RoundTrip(t *testing.T) {
	svc := &mockService{translateFunc: func(ctx context.Context, req Request) (string, error) {
		// Echo the wire string back; segments survive unchanged.
		return req.Text, nil
	}}
	g := NewGateway(svc, GatewayConfig{})

	texts := []string{"one", "two", "three"}
	out, err := g.TranslateBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(out))
	}
	for i := range texts {
		if out[i] != texts[i] {
			t.Errorf("segment %d: expected %q, got %q", i, texts[i], out[i])
		}
	}
	if svc.calls != 1 {
		t.Errorf("expected a single engine call, got %d", svc.calls)
	}
}

func TestGateway_TranslateBatch_PaddedDelimiter(t *testing.T) {
	svc := &mockService{translateFunc: func(ctx context.Context, req Request) (string, error) {
		// Simulate a service that pads the delimiter with spaces.
		return strings.ReplaceAll(req.Text, batch.DefaultDelimiter, " "+batch.DefaultDelimiter+" "), nil
	}}
	g := NewGateway(svc, GatewayConfig{})

	texts := []string{"a", "b", "c", "d", "e"}
	out, err := g.TranslateBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("expected variant recovery, got error: %v", err)
	}
	if len(out) != 5 {
		t.Errorf("expected 5 segments, got %d", len(out))
	}
}

func TestGateway_TranslateBatch_DelimiterLost(t *testing.T) {
	svc := &mockService{translateFunc: func(ctx context.Context, req Request) (string, error) {
		return "everything merged into one string", nil
	}}
	g := NewGateway(svc, GatewayConfig{})

	_, err := g.TranslateBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, batch.ErrDelimiterLost) {
		t.Errorf("expected ErrDelimiterLost, got %v", err)
	}
}

func TestGateway_TranslateBatch_CountMismatch(t *testing.T) {
	svc := &mockService{translateFunc: func(ctx context.Context, req Request) (string, error) {
		// Drop the last segment.
		parts := strings.Split(req.Text, batch.DefaultDelimiter)
		return strings.Join(parts[:len(parts)-1], batch.DefaultDelimiter), nil
	}}
	g := NewGateway(svc, GatewayConfig{})

	_, err := g.TranslateBatch(context.Background(), []string{"a", "b", "c"})
	if !errors.Is(err, batch.ErrCountMismatch) {
		t.Errorf("expected ErrCountMismatch, got %v", err)
	}
}

func TestGateway_TranslateBatch_EmptyResponse(t *testing.T) {
	svc := &mockService{translateFunc: func(ctx context.Context, req Request) (string, error) {
		return "", nil
	}}
	g := NewGateway(svc, GatewayConfig{})

	_, err := g.TranslateBatch(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult, got %v", err)
	}
}

func TestGateway_TranslateBatch_EncodeErrors(t *testing.T) {
	g := NewGateway(&mockService{}, GatewayConfig{MaxBatchChars: 10})

	if _, err := g.TranslateBatch(context.Background(), nil); !errors.Is(err, batch.ErrEmptyBatch) {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
	if _, err := g.TranslateBatch(context.Background(), []string{"0123456789abcdef"}); !errors.Is(err, batch.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if _, err := g.TranslateBatch(context.Background(), []string{"has |~|~| inside"}); !errors.Is(err, batch.ErrDelimiterCollision) {
		t.Errorf("expected ErrDelimiterCollision, got %v", err)
	}
}
