package parser

import (
	"fmt"
	"strconv"
	"strings"

	"saa-question-importer/internal/domain"
)

// answerMarkers open the answer section. Matching is case-insensitive and the earliest
// occurrence in the block wins.
var answerMarkers = []string{"ans-", "correct answer", "answer"}

type scanState int

const (
	inStem scanState = iota
	inOption
	inAnswer
)

// questionScanner walks a block line by line. Stem lines are held in pending until an
// option interrupts them; each interruption flushes pending as one stem fragment.
type questionScanner struct {
	state   scanState
	pending []string
	stem    []string
	options []string
	answer  []string

	line int
	// optionLine holds, per letter, the last line index that starts with "<letter>.", or -1.
	optionLine [26]int
}

// ExtractQuestion parses the ordinal, stem and options of a block. The second return value
// is the answer section, starting at the first answer marker, or "" when there is none.
func ExtractQuestion(block string) (domain.ExtractedQuestion, string, error) {
	ordinal, rest, err := parseOrdinal(block)
	if err != nil {
		return domain.ExtractedQuestion{}, "", err
	}

	lines := strings.Split(rest, "\n")
	s := &questionScanner{state: inStem, options: []string{}, optionLine: optionLines(lines)}
	for i, line := range lines {
		s.line = i
		s.scanLine(line)
	}
	s.flush()

	return domain.ExtractedQuestion{
		Ordinal: ordinal,
		Stem:    strings.Join(s.stem, " "),
		Options: s.options,
	}, strings.Join(s.answer, "\n"), nil
}

func parseOrdinal(block string) (int, string, error) {
	trimmed := strings.TrimLeft(block, " \t\r\n")
	i := 0
	for i < len(trimmed) && isDigit(trimmed[i]) {
		i++
	}
	if i == 0 || i >= len(trimmed) || trimmed[i] != ']' {
		return 0, "", fmt.Errorf("%w: missing leading ordinal in %q", domain.ErrMalformedBlock, preview(block))
	}
	n, err := strconv.Atoi(trimmed[:i])
	if err != nil {
		return 0, "", fmt.Errorf("%w: ordinal %q: %v", domain.ErrMalformedBlock, trimmed[:i], err)
	}
	return n, trimmed[i+1:], nil
}

func (s *questionScanner) scanLine(line string) {
	if s.state == inAnswer {
		s.answer = append(s.answer, line)
		return
	}
	if idx := indexAnswerMarker(line); idx >= 0 {
		s.scanQuestionText(line[:idx])
		s.state = inAnswer
		s.answer = append(s.answer, line[idx:])
		return
	}
	s.scanQuestionText(line)
}

func (s *questionScanner) scanQuestionText(line string) {
	line = strings.TrimSpace(line)
	for line != "" {
		if rest, ok := optionPrefix(line); ok {
			s.flush()
			s.state = inOption
			text, tail := splitInlineOption(rest, s.inlineLetter(s.expectedLetter()+1))
			s.options = append(s.options, text)
			line = tail
			continue
		}
		text, tail := splitInlineOption(line, s.inlineLetter(s.expectedLetter()))
		if text != "" {
			s.pending = append(s.pending, text)
			s.state = inStem
		}
		line = tail
	}
}

func (s *questionScanner) flush() {
	if len(s.pending) == 0 {
		return
	}
	s.stem = append(s.stem, strings.Join(s.pending, " "))
	s.pending = nil
}

// expectedLetter is the letter the next option would carry.
func (s *questionScanner) expectedLetter() byte {
	return byte('A' + len(s.options))
}

// inlineLetter returns letter, or 0 when a later line opens with that letter's option
// marker. The marker mid-line is then prose such as "Account A. The company".
func (s *questionScanner) inlineLetter(letter byte) byte {
	if letter < 'A' || letter > 'Z' || s.optionLine[letter-'A'] > s.line {
		return 0
	}
	return letter
}

// optionLines records where each option letter starts a line, up to the answer marker.
func optionLines(lines []string) [26]int {
	var at [26]int
	for i := range at {
		at[i] = -1
	}
	for i, line := range lines {
		idx := indexAnswerMarker(line)
		if idx >= 0 {
			line = line[:idx]
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			if _, ok := optionPrefix(trimmed); ok {
				at[trimmed[0]-'A'] = i
			}
		}
		if idx >= 0 {
			break
		}
	}
	return at
}

// optionPrefix matches "<uppercase letter>." at the start of line.
func optionPrefix(line string) (string, bool) {
	if len(line) < 2 || line[0] < 'A' || line[0] > 'Z' || line[1] != '.' {
		return "", false
	}
	return strings.TrimSpace(line[2:]), true
}

// splitInlineOption cuts line before an inline "<space><letter>.<space>" marker.
// Only the given letter is recognised inline so ordinary prose is rarely split.
func splitInlineOption(line string, letter byte) (string, string) {
	if letter < 'A' || letter > 'Z' {
		return strings.TrimSpace(line), ""
	}
	for i := 0; i+2 < len(line); i++ {
		if !isSpace(line[i]) || line[i+1] != letter || line[i+2] != '.' {
			continue
		}
		if i+3 < len(line) && !isSpace(line[i+3]) {
			continue
		}
		return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
	}
	return strings.TrimSpace(line), ""
}

func indexAnswerMarker(s string) int {
	best := -1
	for _, m := range answerMarkers {
		if i := indexFold(s, m); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

// indexFold is a case-insensitive strings.Index for ASCII needles.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func preview(block string) string {
	const limit = 50
	block = strings.TrimSpace(block)
	if len(block) <= limit {
		return block
	}
	return block[:limit] + "..."
}
