package app_test

import (
	"reflect"
	"testing"
	"time"

	"saa-question-importer/internal/app"
	"saa-question-importer/internal/classify"
	"saa-question-importer/internal/domain"
	"saa-question-importer/internal/parser"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAssembler() *app.Assembler {
	return app.NewAssemblerWithClock(classify.New(classify.DefaultTaxonomy()), app.DefaultDatasetInfo(), func() time.Time { return fixedNow })
}

func TestAssembleScenario(t *testing.T) {
	p, err := parser.ParseBlock("1] A company needs S3 storage. A. Use S3\nB. Use EBS\nans-A. S3 is cheapest.")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := newTestAssembler().Assemble(p)
	want := domain.QuestionRecord{
		ID:            "aws-saa-c03-001",
		Subject:       "cloud-computing",
		Topic:         "storage",
		Difficulty:    domain.DifficultyBeginner,
		ExamTypes:     []string{"AWS-SAA-C03"},
		Question:      "A company needs S3 storage.",
		QuestionType:  "multiple-choice",
		Options:       []string{"Use S3", "Use EBS"},
		CorrectAnswer: 0,
		Explanation:   "S3 is cheapest.",
		Tags:          []string{"s3"},
		TimeEstimate:  92,
		Metadata: domain.Metadata{
			CreatedAt:      fixedNow,
			Contributor:    "automated-import",
			Source:         "adapted",
			SourceRepo:     "Iamrushabhshahh/AWS-Certified-Solutions-Architect-Associate-SAA-C03-Exam-Dump-With-Solution",
			ImportDate:     "2025-03-01",
			QuestionNumber: 1,
			OriginalAnswer: "A",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Assemble() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestAssembleSubtopicAndDefaults(t *testing.T) {
	a := newTestAssembler()

	p, _ := parser.ParseBlock("42] Store objects in S3 and EBS volumes, process with Lambda\nA. one\nB. two\nC. three")
	rec := a.Assemble(p)
	if rec.ID != "aws-saa-c03-042" {
		t.Fatalf("unexpected id %q", rec.ID)
	}
	if rec.Subtopic == nil || *rec.Subtopic != "compute" {
		t.Fatalf("expected subtopic compute, got %v", rec.Subtopic)
	}
	if rec.CorrectAnswer != 0 || rec.Explanation != "" || rec.Metadata.OriginalAnswer != "A" {
		t.Fatalf("expected lenient defaults, got answer=%d explanation=%q", rec.CorrectAnswer, rec.Explanation)
	}

	p, _ = parser.ParseBlock("1234] no options at all")
	rec = a.Assemble(p)
	if rec.ID != "aws-saa-c03-1234" {
		t.Fatalf("ordinal wider than padding should be kept, got %q", rec.ID)
	}
	if rec.Options == nil || rec.Tags == nil {
		t.Fatalf("options and tags must be non-nil")
	}
	if rec.Topic != "general-aws" {
		t.Fatalf("expected fallback topic, got %q", rec.Topic)
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	a := newTestAssembler()
	p, _ := parser.ParseBlock("3] Deploy RDS Multi-AZ in a VPC for security\nA. yes\nB. no\nAnswer: B")

	first := a.Assemble(p)
	second := a.Assemble(p)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical records, got %+v and %+v", first, second)
	}
	if first.CorrectAnswer != 1 {
		t.Fatalf("expected answer index 1, got %d", first.CorrectAnswer)
	}
}

func TestPartitionByTopic(t *testing.T) {
	records := []domain.QuestionRecord{
		{ID: "1", Topic: "storage"},
		{ID: "2", Topic: "compute"},
		{ID: "3", Topic: "storage"},
		{ID: "4", Topic: "database"},
	}

	parts := app.PartitionByTopic(records)
	if len(parts) != 3 {
		t.Fatalf("expected 3 partitions, got %d", len(parts))
	}
	order := []string{parts[0].Topic, parts[1].Topic, parts[2].Topic}
	if !reflect.DeepEqual(order, []string{"storage", "compute", "database"}) {
		t.Fatalf("unexpected topic order %v", order)
	}
	if len(parts[0].Records) != 2 || parts[0].Records[0].ID != "1" || parts[0].Records[1].ID != "3" {
		t.Fatalf("records must keep input order, got %+v", parts[0].Records)
	}

	index := app.BuildIndex(parts, app.DefaultDatasetInfo(), fixedNow)
	if index.TotalQuestions != 4 || index.TopicCounts["storage"] != 2 {
		t.Fatalf("unexpected index %+v", index)
	}
	if !reflect.DeepEqual(index.Files, []string{"storage-questions.json", "compute-questions.json", "database-questions.json"}) {
		t.Fatalf("unexpected files %v", index.Files)
	}
	if index.ExamType != "AWS-SAA-C03" || !index.LastUpdated.Equal(fixedNow) {
		t.Fatalf("unexpected index header %+v", index)
	}
}

func TestPartitionByTopicEmpty(t *testing.T) {
	if parts := app.PartitionByTopic(nil); len(parts) != 0 {
		t.Fatalf("expected no partitions, got %d", len(parts))
	}
	index := app.BuildIndex(nil, app.DefaultDatasetInfo(), fixedNow)
	if index.Topics == nil || index.Files == nil || index.TotalQuestions != 0 {
		t.Fatalf("unexpected empty index %+v", index)
	}
}
