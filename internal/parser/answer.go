package parser

import (
	"strings"

	"saa-question-importer/internal/domain"
)

// DefaultLetter is used when an answer section carries no recognizable marker.
const DefaultLetter = "A"

// separatorRun is the length of a dash or asterisk run that ends an explanation.
const separatorRun = 5

// ExtractAnswer reads the correct-answer letter and the explanation from an answer
// section. A missing marker is not an error: the letter defaults to DefaultLetter and the
// explanation stays empty.
func ExtractAnswer(section string) domain.ExtractedAnswer {
	ans := domain.ExtractedAnswer{Letter: DefaultLetter}
	letter, end, ok := findMarkedLetter(section)
	if !ok {
		return ans
	}
	ans.Letter = letter
	ans.Detected = true
	ans.Explanation = explanationFrom(section[end:])
	return ans
}

// findMarkedLetter returns the first marker-plus-letter match and the offset right after
// the letter. "ans-" takes the next letter as is. The word markers must end at a word
// boundary ("Answers" and "Answered" count as the marker) and need a standalone letter so
// that "Answer is ..." does not read as "I".
func findMarkedLetter(s string) (string, int, bool) {
	for i := 0; i < len(s); i++ {
		for _, m := range answerMarkers {
			if i+len(m) > len(s) || !strings.EqualFold(s[i:i+len(m)], m) {
				continue
			}
			j := i + len(m)
			if m == "ans-" {
				j = skipSpaces(s, j)
				if j < len(s) && isLetter(s[j]) {
					return upper(s[j]), j + 1, true
				}
				continue
			}
			j = skipInflection(s, j)
			if j < len(s) && isLetter(s[j]) {
				// marker is only the start of a longer word
				continue
			}
			for j < len(s) && (isSpace(s[j]) || strings.IndexByte(":.)-", s[j]) >= 0) {
				j++
			}
			if j < len(s) && isLetter(s[j]) && (j+1 == len(s) || !isLetter(s[j+1])) {
				return upper(s[j]), j + 1, true
			}
		}
	}
	return "", 0, false
}

// explanationFrom trims the text after an answer letter and cuts it at the first
// separator run.
func explanationFrom(rest string) string {
	if rest != "" && (rest[0] == '.' || rest[0] == ')') {
		rest = rest[1:]
	}
	if i := indexSeparator(rest); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

// indexSeparator finds the first run of separatorRun or more '-' or '*' characters.
func indexSeparator(s string) int {
	run, start := 0, 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '-' && c != '*' {
			run = 0
			continue
		}
		if run > 0 && s[i-1] == c {
			run++
		} else {
			run, start = 1, i
		}
		if run >= separatorRun {
			return start
		}
	}
	return -1
}

// skipInflection steps over an "s" or "ed" ending directly after a word marker.
func skipInflection(s string, i int) int {
	for _, suffix := range []string{"ed", "s"} {
		if i+len(suffix) <= len(s) && strings.EqualFold(s[i:i+len(suffix)], suffix) {
			return i + len(suffix)
		}
	}
	return i
}

func skipSpaces(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func upper(c byte) string {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return string(c)
}
