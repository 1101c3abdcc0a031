// Package parser turns a plain-text answers dump into extracted question and answer fields.
package parser

import (
	"iter"
	"strings"
)

// Blocks yields one trimmed segment per question. The text is cut right before every line
// that starts with a "<digits>]" delimiter; whitespace-only segments are dropped.
// Ranging over the returned sequence again starts from the top of text.
func Blocks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for pos := 0; pos < len(text); {
			next := len(text)
			if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
				next = pos + nl + 1
			}
			if pos > start && isDelimiterLine(text[pos:next]) {
				if !emitBlock(yield, text[start:pos]) {
					return
				}
				start = pos
			}
			pos = next
		}
		emitBlock(yield, text[start:])
	}
}

// SplitBlocks collects Blocks into a slice.
func SplitBlocks(text string) []string {
	var blocks []string
	for b := range Blocks(text) {
		blocks = append(blocks, b)
	}
	return blocks
}

func emitBlock(yield func(string) bool, segment string) bool {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return true
	}
	return yield(segment)
}

// isDelimiterLine reports whether line opens with digits followed by ']'.
// Leading spaces and tabs are tolerated.
func isDelimiterLine(line string) bool {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	digits := 0
	for i < len(line) && isDigit(line[i]) {
		i++
		digits++
	}
	return digits > 0 && i < len(line) && line[i] == ']'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
