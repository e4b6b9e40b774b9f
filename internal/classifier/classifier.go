// Package classifier decides which quoted spans of a script line are
// translatable dialogue as opposed to code or asset references. The decision
// is purely lexical: it looks at the statement prefix before the span and at
// the span text itself, never at anything outside the line.
package classifier

import (
	"regexp"
	"strings"
)

// Span is one quoted occurrence on a line, a candidate for translation.
// Start and End are byte offsets within the original line including the
// surrounding quotes; Text is the content between the quotes. Offsets refer
// to the original line only — substitution rebuilds the line as a new string.
type Span struct {
	Start int
	End   int
	Text  string
}

var quotedRe = regexp.MustCompile(`"([^"]*)"`)

// Scan returns all double-quoted spans of line in positional order.
func Scan(line string) []Span {
	idx := quotedRe.FindAllStringSubmatchIndex(line, -1)
	spans := make([]Span, 0, len(idx))
	for _, m := range idx {
		spans = append(spans, Span{Start: m[0], End: m[1], Text: line[m[2]:m[3]]})
	}
	return spans
}

// skipKeywords are statement openers whose quoted arguments are identifiers
// or asset names, never dialogue. Trailing spaces distinguish "show x" from
// words that merely start with the same letters.
var skipKeywords = []string{
	"show ", "scene ", "play ", "stop ", "queue ",
	"image ", "define ", "transform ", "screen ",
	"jump ", "call ", "return", "menu:", "if ",
	"python:", "init ", "label ", "with ",
	"hide ", "at ", "as ", "$", "pause",
	"nvl ", "window ", "voice ", "sound ",
	"music ", "audio ", "renpy.", "camera ",
}

// assetExtensions mark span texts that reference image or audio files.
var assetExtensions = []string{".png", ".jpg", ".mp3", ".ogg", ".wav"}

// ShouldTranslate reports whether the span on line holds translatable prose.
// Rules are checked in order; any match excludes the span:
//
//  1. the trimmed, lower-cased prefix before the span starts with a skip keyword
//  2. the prefix contains an inline-expression marker ($) anywhere
//  3. the trimmed prefix ends with a block-opening colon
//  4. the trimmed prefix ends with the "old" modifier (identifier reference)
//  5. the span text ends with an asset extension or contains a path separator
//
// The function depends only on its arguments, so the result for a given
// (line, span) pair never changes across calls.
func ShouldTranslate(line string, span Span) bool {
	prefix := strings.ToLower(strings.TrimSpace(line[:span.Start]))

	for _, kw := range skipKeywords {
		if strings.HasPrefix(prefix, kw) {
			return false
		}
	}

	if strings.Contains(prefix, "$") {
		return false
	}

	if strings.HasSuffix(prefix, ":") {
		return false
	}

	if strings.HasSuffix(prefix, "old") {
		return false
	}

	for _, ext := range assetExtensions {
		if strings.HasSuffix(span.Text, ext) {
			return false
		}
	}
	if strings.ContainsAny(span.Text, `/\`) {
		return false
	}

	return true
}
