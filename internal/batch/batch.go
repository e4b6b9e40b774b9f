// Package batch implements the delimiter-multiplexed wire codec used to pack
// several strings into a single translation call and split the combined
// response back into parts. The codec is independent of the transport that
// carries the wire string; every way a round trip can misalign is reported as
// a distinct error so callers can reject the whole batch rather than accept a
// partially-shifted result.
package batch

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultDelimiter is a marker unlikely to occur in natural prose.
	DefaultDelimiter = "|~|~|"

	// DefaultMaxChars bounds the delimiter-joined wire string.
	DefaultMaxChars = 1000

	// DefaultSize is the default number of items packed per call.
	DefaultSize = 5
)

var (
	ErrEmptyBatch         = errors.New("empty batch")
	ErrTooLarge           = errors.New("batch exceeds character budget")
	ErrDelimiterCollision = errors.New("input contains the batch delimiter")
	ErrDelimiterLost      = errors.New("delimiter not preserved in response")
	ErrCountMismatch      = errors.New("response segment count mismatch")
)

// Codec packs texts with a fixed delimiter and validates split responses.
// The zero value is not usable; construct with New.
type Codec struct {
	delimiter string
	maxChars  int
}

// New returns a Codec using delimiter and maxChars, substituting the
// defaults for empty or non-positive values.
func New(delimiter string, maxChars int) Codec {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return Codec{delimiter: delimiter, maxChars: maxChars}
}

// Delimiter returns the configured delimiter string.
func (c Codec) Delimiter() string { return c.delimiter }

// Encode joins texts into one wire string. It fails with ErrEmptyBatch for no
// inputs, ErrDelimiterCollision if any text already contains the delimiter
// (splitting the response would then be ambiguous), and ErrTooLarge if the
// joined string exceeds the character budget.
func (c Codec) Encode(texts []string) (string, error) {
	if len(texts) == 0 {
		return "", ErrEmptyBatch
	}

	for i, t := range texts {
		if strings.Contains(t, c.delimiter) {
			return "", fmt.Errorf("%w: item %d", ErrDelimiterCollision, i)
		}
	}

	combined := strings.Join(texts, c.delimiter)
	if len(combined) > c.maxChars {
		return "", fmt.Errorf("%w: %d > %d chars", ErrTooLarge, len(combined), c.maxChars)
	}

	return combined, nil
}

// variants lists the delimiter forms translation services are known to
// produce when they perturb case or spacing around punctuation. The exact
// delimiter is tried first.
func (c Codec) variants() []string {
	return []string{
		c.delimiter,
		strings.ToLower(c.delimiter),
		strings.ToUpper(c.delimiter),
		" " + c.delimiter + " ",
		" " + c.delimiter,
		c.delimiter + " ",
	}
}

// Decode splits wire into exactly want segments. When the exact delimiter is
// absent it retries with the known variants before failing with
// ErrDelimiterLost. Segments are whitespace-trimmed and empty segments are
// discarded; a count that differs from want fails with ErrCountMismatch —
// the caller must never accept a partially-misaligned batch.
//
// A single-item batch carries no delimiter on the wire, so for want == 1 the
// trimmed response is returned as the sole segment.
func (c Codec) Decode(wire string, want int) ([]string, error) {
	wire = strings.TrimSpace(wire)

	var sep string
	for _, v := range c.variants() {
		if strings.Contains(wire, v) {
			sep = v
			break
		}
	}

	if sep == "" {
		if want == 1 && wire != "" {
			return []string{wire}, nil
		}
		return nil, ErrDelimiterLost
	}

	raw := strings.Split(wire, sep)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	if len(parts) != want {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrCountMismatch, want, len(parts))
	}

	return parts, nil
}
