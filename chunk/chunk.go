// Package chunk splits normalized source text into bounded-length pieces.
//
// Splitting is greedy: while the remaining text is longer than the limit,
// the next piece ends just after the last period inside the limit, or at the
// limit itself when there is none. Lengths are counted in runes so that a
// split never lands inside a multi-byte character.
package chunk

import (
	"unicode"

	"github.com/poiesic/gleaner/core"
)

// DefaultMaxLength is the default chunk length limit in runes.
const DefaultMaxLength = 2000

// Split returns the text cut into trimmed, non-empty pieces of at most
// maxLength runes. A maxLength below 1 is treated as 1.
func Split(text string, maxLength int) []string {
	chunks := Chunks("", text, maxLength)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// Chunks is Split that also records each piece's index and rune offset
// within text.
func Chunks(sourceID, text string, maxLength int) []core.Chunk {
	if maxLength < 1 {
		maxLength = 1
	}

	runes := []rune(text)
	chunks := []core.Chunk{}
	emit := func(start, end int) {
		start, end = trim(runes, start, end)
		if start < end {
			chunks = append(chunks, core.Chunk{
				SourceID: sourceID,
				Index:    len(chunks),
				Offset:   start,
				Text:     string(runes[start:end]),
			})
		}
	}

	pos, _ := trim(runes, 0, len(runes))
	for len(runes)-pos > maxLength {
		cut := lastPeriod(runes[pos:pos+maxLength]) + 1
		if cut <= 0 {
			cut = maxLength
		}
		emit(pos, pos+cut)
		pos, _ = trim(runes, pos+cut, len(runes))
	}
	emit(pos, len(runes))

	return chunks
}

func lastPeriod(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' {
			return i
		}
	}
	return -1
}

// trim narrows [start, end) to exclude surrounding whitespace.
func trim(runes []rune, start, end int) (int, int) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return start, end
}
