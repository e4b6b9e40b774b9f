// Package placeholder protects script markup — interpolation brackets like
// [player_name] and text tags like {b}…{/b} or {w=0.5} — during translation
// by replacing them with numbered markers ([PH0], [PH1], …). After
// translation, Restore substitutes the originals back so the rewritten line
// keeps its markup byte-identical.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// interpolation brackets: [variable] or [variable!formatter]
	reBracket = regexp.MustCompile(`\[[^\[\]]+\]`)

	// text tags: {b}, {/b}, {w=0.5}, {color=#fff}, …
	reTag = regexp.MustCompile(`\{[^{}]+\}`)

	// placeholder reference in translated text
	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces markup tokens with numbered placeholders in the order they
// appear in text. It returns the modified text and the slice of captured
// originals so Restore can put them back. Brackets are captured before tags
// so the inserted [PHn] markers are never re-matched.
func Protect(text string) (string, []string) {
	var markers []string
	counter := 0

	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", counter)
		markers = append(markers, match)
		counter++
		return id
	}

	text = reBracket.ReplaceAllStringFunc(text, replace)
	text = reTag.ReplaceAllStringFunc(text, replace)

	return text, markers
}

// Restore substitutes [PHn] markers in text back with the originals captured
// by Protect. Unrecognised indices leave the placeholder as-is; markers the
// service dropped are simply absent from the result.
func Restore(text string, markers []string) string {
	return rePlaceholder.ReplaceAllStringFunc(text, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		idx := 0
		fmt.Sscanf(sub[1], "%d", &idx)
		if idx < 0 || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// Validate checks whether all markers created by Protect are still present
// in the translated text and returns the indices of any that are missing.
func Validate(text string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(text, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}
