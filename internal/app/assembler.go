package app

import (
	"fmt"
	"time"

	"saa-question-importer/internal/classify"
	"saa-question-importer/internal/domain"
	"saa-question-importer/internal/parser"
)

const questionTypeMultipleChoice = "multiple-choice"

// DatasetInfo carries the constants stamped onto every record of a dataset.
type DatasetInfo struct {
	IDPrefix    string
	Subject     string
	ExamType    string
	SourceRepo  string
	Contributor string
	Source      string
}

// DefaultDatasetInfo describes the AWS SAA-C03 answers dump.
func DefaultDatasetInfo() DatasetInfo {
	return DatasetInfo{
		IDPrefix:    "aws-saa-c03",
		Subject:     "cloud-computing",
		ExamType:    "AWS-SAA-C03",
		SourceRepo:  "Iamrushabhshahh/AWS-Certified-Solutions-Architect-Associate-SAA-C03-Exam-Dump-With-Solution",
		Contributor: "automated-import",
		Source:      "adapted",
	}
}

// Assembler combines parsed fields and a classification into a QuestionRecord.
// It is safe for concurrent use as long as its clock is.
type Assembler struct {
	classifier *classify.Classifier
	info       DatasetInfo
	now        func() time.Time
	importDate string
}

func NewAssembler(classifier *classify.Classifier, info DatasetInfo) *Assembler {
	return NewAssemblerWithClock(classifier, info, time.Now)
}

// NewAssemblerWithClock pins timestamps for tests.
func NewAssemblerWithClock(classifier *classify.Classifier, info DatasetInfo, now func() time.Time) *Assembler {
	return &Assembler{
		classifier: classifier,
		info:       info,
		now:        now,
	}
}

// ForRun returns a copy whose import date is fixed to the clock's current day, so every
// record of one run carries the same date.
func (a *Assembler) ForRun() *Assembler {
	run := *a
	run.importDate = a.now().UTC().Format(time.DateOnly)
	return &run
}

// Info returns the dataset constants the assembler stamps.
func (a *Assembler) Info() DatasetInfo {
	return a.info
}

// Assemble builds the record for one parsed block.
func (a *Assembler) Assemble(p parser.Parsed) domain.QuestionRecord {
	q, ans := p.Question, p.Answer
	cls := a.classifier.Classify(q.Stem, ans.Explanation)

	var subtopic *string
	if cls.SecondaryTopic != "" {
		s := cls.SecondaryTopic
		subtopic = &s
	}
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	tags := cls.Tags
	if tags == nil {
		tags = []string{}
	}
	importDate := a.importDate
	if importDate == "" {
		importDate = a.now().UTC().Format(time.DateOnly)
	}

	return domain.QuestionRecord{
		ID:            fmt.Sprintf("%s-%03d", a.info.IDPrefix, q.Ordinal),
		Subject:       a.info.Subject,
		Topic:         cls.PrimaryTopic,
		Subtopic:      subtopic,
		Difficulty:    cls.Difficulty,
		ExamTypes:     []string{a.info.ExamType},
		Question:      q.Stem,
		QuestionType:  questionTypeMultipleChoice,
		Options:       options,
		CorrectAnswer: ans.Index(),
		Explanation:   ans.Explanation,
		Tags:          tags,
		TimeEstimate:  classify.EstimateTime(len(options), ans.Explanation),
		Metadata: domain.Metadata{
			CreatedAt:      a.now().UTC(),
			Contributor:    a.info.Contributor,
			Verified:       false,
			Source:         a.info.Source,
			SourceRepo:     a.info.SourceRepo,
			ImportDate:     importDate,
			QuestionNumber: q.Ordinal,
			OriginalAnswer: ans.Letter,
		},
	}
}
