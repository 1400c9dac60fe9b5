// Package chunker splits extracted text into overlapping segments sized for
// the embedding model. Sizes and offsets are counted in runes.
package chunker

import (
	"strings"
	"unicode"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Segment is an exact substring of the input. Overlap is the number of runes
// it shares with the previous segment.
type Segment struct {
	Index   int
	Text    string
	Offset  int
	Overlap int
}

type Chunker struct {
	size      int
	overlap   int
	tolerance int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap*2 >= size {
		overlap = size / 4
	}
	return &Chunker{
		size:      size,
		overlap:   overlap,
		tolerance: size / 5,
	}
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text into segments of at most Size runes. A cut is placed on the
// strongest break found in the last fifth of the window (paragraph, line,
// sentence, whitespace) and falls back to a hard cut.
func (c *Chunker) Split(text string) []Segment {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	n := len(runes)

	var segments []Segment
	start, overlap := 0, 0
	for {
		end := start + c.size
		if end >= n {
			end = n
		} else {
			end = c.boundary(runes, start, end)
		}
		segments = append(segments, Segment{
			Index:   len(segments),
			Text:    string(runes[start:end]),
			Offset:  start,
			Overlap: overlap,
		})
		if end == n {
			break
		}
		next := c.nextStart(runes, start, end)
		overlap = end - next
		start = next
	}
	return segments
}

// breakRules are tried strongest first against the tail of a candidate segment.
var breakRules = []func(seg []rune) bool{
	// paragraph
	func(seg []rune) bool {
		n := len(seg)
		return n >= 2 && seg[n-1] == '\n' && seg[n-2] == '\n'
	},
	// line
	func(seg []rune) bool { return seg[len(seg)-1] == '\n' },
	// sentence
	func(seg []rune) bool {
		n := len(seg)
		return n >= 2 && unicode.IsSpace(seg[n-1]) && strings.ContainsRune(".!?", seg[n-2])
	},
	// word
	func(seg []rune) bool { return unicode.IsSpace(seg[len(seg)-1]) },
}

func (c *Chunker) boundary(runes []rune, start, end int) int {
	lowest := end - c.tolerance
	if lowest < start+1 {
		lowest = start + 1
	}
	for _, rule := range breakRules {
		for i := end; i >= lowest; i-- {
			if rule(runes[start:i]) {
				return i
			}
		}
	}
	return end
}

// nextStart steps back by the configured overlap and then forward to the
// start of a word so segments do not open mid-word.
func (c *Chunker) nextStart(runes []rune, start, end int) int {
	next := end - c.overlap
	if next <= start {
		next = start + 1
	}
	for next < end && !wordStart(runes, next) {
		next++
	}
	return next
}

func wordStart(runes []rune, i int) bool {
	if i == 0 {
		return true
	}
	return unicode.IsSpace(runes[i-1]) && !unicode.IsSpace(runes[i])
}

// Reassemble drops each segment's overlap and concatenates the rest,
// reproducing the text Split was given.
func Reassemble(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		r := []rune(s.Text)
		if s.Overlap > len(r) {
			continue
		}
		b.WriteString(string(r[s.Overlap:]))
	}
	return b.String()
}
