package app

import (
	"context"

	"saa-question-importer/internal/domain"
)

// QuestionRepository reads an imported dataset (from cache/backing store).
type QuestionRepository interface {
	GetIndex(ctx context.Context) (domain.DatasetIndex, error)
	// GetTopic fails with domain.ErrTopicNotFound for unknown topics.
	GetTopic(ctx context.Context, topic string) ([]domain.QuestionRecord, error)
}

// QuestionFilter narrows a topic listing. Zero values match everything.
type QuestionFilter struct {
	Difficulty domain.Difficulty
	Tag        string
}

func (f QuestionFilter) match(r domain.QuestionRecord) bool {
	if f.Difficulty != "" && r.Difficulty != f.Difficulty {
		return false
	}
	if f.Tag != "" && !r.HasTag(f.Tag) {
		return false
	}
	return true
}

// BankService contains the read-side use cases over an imported question bank.
type BankService struct {
	questions QuestionRepository
}

func NewBankService(questions QuestionRepository) *BankService {
	return &BankService{questions: questions}
}

func (s *BankService) Index(ctx context.Context) (domain.DatasetIndex, error) {
	return s.questions.GetIndex(ctx)
}

// Questions lists a topic's records that pass filter, in dataset order.
func (s *BankService) Questions(ctx context.Context, topic string, filter QuestionFilter) ([]domain.QuestionRecord, error) {
	records, err := s.questions.GetTopic(ctx, topic)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuestionRecord, 0, len(records))
	for _, r := range records {
		if filter.match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Question finds a record by ID. IDs do not carry the topic, so every partition listed in
// the index is searched in order.
func (s *BankService) Question(ctx context.Context, id string) (domain.QuestionRecord, error) {
	index, err := s.questions.GetIndex(ctx)
	if err != nil {
		return domain.QuestionRecord{}, err
	}
	for _, topic := range index.Topics {
		records, err := s.questions.GetTopic(ctx, topic)
		if err != nil {
			return domain.QuestionRecord{}, err
		}
		for _, r := range records {
			if r.ID == id {
				return r, nil
			}
		}
	}
	return domain.QuestionRecord{}, domain.ErrQuestionNotFound
}
