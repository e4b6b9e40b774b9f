package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/rentran/internal/batch"
	"github.com/valpere/rentran/internal/placeholder"
)

const (
	// DefaultSingleTimeout bounds one single-text call.
	DefaultSingleTimeout = 25 * time.Second

	// DefaultBatchTimeout bounds one batch call; longer than the single
	// bound because the combined payload is larger.
	DefaultBatchTimeout = 30 * time.Second
)

// GatewayConfig carries the language pair and call bounds for a Gateway.
type GatewayConfig struct {
	SourceLang    string
	TargetLang    string
	SingleTimeout time.Duration
	BatchTimeout  time.Duration
	Delimiter     string
	MaxBatchChars int

	// ProtectMarkup replaces interpolation brackets and text tags with
	// placeholder markers for the duration of each call.
	ProtectMarkup bool
}

// Gateway is the single point through which the pipeline talks to a
// translation engine. It applies the per-call timeout, classifies blank and
// erroneous responses, and layers the batch wire codec over the engine's
// one-string-in/one-string-out contract.
type Gateway struct {
	svc   Service
	codec batch.Codec
	cfg   GatewayConfig
}

// NewGateway wraps svc with cfg, substituting defaults for zero timeouts.
func NewGateway(svc Service, cfg GatewayConfig) *Gateway {
	if cfg.SingleTimeout <= 0 {
		cfg.SingleTimeout = DefaultSingleTimeout
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	return &Gateway{
		svc:   svc,
		codec: batch.New(cfg.Delimiter, cfg.MaxBatchChars),
		cfg:   cfg,
	}
}

// Service returns the wrapped engine.
func (g *Gateway) Service() Service { return g.svc }

// TranslateOne translates a single text, returning the response with
// surrounding whitespace trimmed. Blank responses fail with ErrEmptyResult
// and responses carrying error text with ErrServiceError.
func (g *Gateway) TranslateOne(ctx context.Context, text string) (string, error) {
	send := text
	var markers []string
	if g.cfg.ProtectMarkup {
		send, markers = placeholder.Protect(text)
	}

	out, err := g.call(ctx, send, g.cfg.SingleTimeout)
	if err != nil {
		return "", err
	}

	if g.cfg.ProtectMarkup {
		out = placeholder.Restore(out, markers)
	}
	return out, nil
}

// TranslateBatch packs texts into one delimiter-joined call and splits the
// response back into len(texts) segments in input order. Any encode or
// decode failure rejects the batch as a whole; no partially-aligned result
// is ever returned.
func (g *Gateway) TranslateBatch(ctx context.Context, texts []string) ([]string, error) {
	send := texts
	var markerSets [][]string
	if g.cfg.ProtectMarkup {
		send = make([]string, len(texts))
		markerSets = make([][]string, len(texts))
		for i, t := range texts {
			send[i], markerSets[i] = placeholder.Protect(t)
		}
	}

	wire, err := g.codec.Encode(send)
	if err != nil {
		return nil, err
	}

	out, err := g.call(ctx, wire, g.cfg.BatchTimeout)
	if err != nil {
		return nil, err
	}

	parts, err := g.codec.Decode(out, len(texts))
	if err != nil {
		return nil, err
	}

	if g.cfg.ProtectMarkup {
		for i := range parts {
			parts[i] = placeholder.Restore(parts[i], markerSets[i])
		}
	}
	return parts, nil
}

// call performs one bounded engine invocation and normalizes the response.
func (g *Gateway) call(ctx context.Context, text string, timeout time.Duration) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := g.svc.Translate(callCtx, Request{
		Text:       text,
		SourceLang: g.cfg.SourceLang,
		TargetLang: g.cfg.TargetLang,
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return "", err
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyResult
	}
	if looksLikeError(out) {
		return "", fmt.Errorf("%w: %s", ErrServiceError, out)
	}
	return out, nil
}

// looksLikeError flags responses where the engine reported a failure on
// stdout instead of translating.
func looksLikeError(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "error:") || strings.Contains(lower, "request failed")
}
