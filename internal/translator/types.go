package translator

import (
	"context"
	"errors"
)

// Request carries one text through an engine together with its language pair.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// Service is a single translation engine. Translate returns the raw response
// text; the Gateway is responsible for trimming and for classifying blank or
// erroneous responses.
type Service interface {
	Name() string
	Translate(ctx context.Context, req Request) (string, error)
	IsAvailable(ctx context.Context) error
}

// Failure taxonomy for translation calls. Engines and the Gateway wrap these
// so callers can branch with errors.Is.
var (
	// ErrUnavailable means the engine cannot be reached at all, e.g. the
	// external binary is not installed.
	ErrUnavailable = errors.New("translation service unavailable")

	// ErrTimeout means the bounded wait for one call elapsed. A timed-out
	// call is a definitive failure for that call; it is never retried here.
	ErrTimeout = errors.New("translation timed out")

	// ErrEmptyResult means the service answered with a blank string.
	ErrEmptyResult = errors.New("empty translation result")

	// ErrServiceError covers non-zero exits and recognizably-erroneous
	// response text.
	ErrServiceError = errors.New("translation service error")
)
