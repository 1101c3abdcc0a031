package parser

import "saa-question-importer/internal/domain"

// Parsed is one block split into its question and answer halves.
type Parsed struct {
	Question domain.ExtractedQuestion
	Answer   domain.ExtractedAnswer
}

// ParseBlock runs the question and answer extractors over a single block.
// It fails only with domain.ErrMalformedBlock.
func ParseBlock(block string) (Parsed, error) {
	q, answerSection, err := ExtractQuestion(block)
	if err != nil {
		return Parsed{}, err
	}
	return Parsed{Question: q, Answer: ExtractAnswer(answerSection)}, nil
}
