package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"saa-question-importer/internal/app"
	"saa-question-importer/internal/domain"
	"saa-question-importer/internal/schema"
)

func sampleRecord(id, topic string) domain.QuestionRecord {
	return domain.QuestionRecord{
		ID:           id,
		Subject:      "cloud-computing",
		Topic:        topic,
		Difficulty:   domain.DifficultyBeginner,
		ExamTypes:    []string{"AWS-SAA-C03"},
		Question:     "Stem",
		QuestionType: "multiple-choice",
		Options:      []string{"one", "two"},
		Tags:         []string{},
		TimeEstimate: 90,
		Metadata: domain.Metadata{
			CreatedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			Contributor:    "automated-import",
			Source:         "adapted",
			SourceRepo:     "owner/repo",
			ImportDate:     "2025-03-01",
			QuestionNumber: 1,
			OriginalAnswer: "A",
		},
	}
}

func sampleDataset() (domain.DatasetIndex, []domain.Partition) {
	parts := app.PartitionByTopic([]domain.QuestionRecord{
		sampleRecord("aws-saa-c03-001", "storage"),
		sampleRecord("aws-saa-c03-002", "compute"),
		sampleRecord("aws-saa-c03-003", "storage"),
	})
	index := app.BuildIndex(parts, app.DefaultDatasetInfo(), time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return index, parts
}

func TestWriterAndLoaderRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "aws")
	index, parts := sampleDataset()

	v, err := schema.New()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if err := NewWriter(dir, WithValidator(v)).Publish(context.Background(), index, parts); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, name := range []string{"storage-questions.json", "compute-questions.json", "index.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "index.json"))
	if !strings.Contains(string(raw), "\n  \"totalQuestions\": 3") {
		t.Fatalf("expected 2-space indented index, got:\n%s", raw)
	}

	loader := NewLoader(dir)
	gotIndex, err := loader.LoadIndex(context.Background())
	if err != nil {
		t.Fatalf("load index: %v", err)
	}
	if !reflect.DeepEqual(gotIndex, index) {
		t.Fatalf("index = %+v, want %+v", gotIndex, index)
	}
	records, err := loader.LoadTopic(context.Background(), "storage")
	if err != nil {
		t.Fatalf("load topic: %v", err)
	}
	if !reflect.DeepEqual(records, parts[0].Records) {
		t.Fatalf("records differ after round trip")
	}

	problems, err := ValidateDir(dir, v)
	if err != nil || len(problems) != 0 {
		t.Fatalf("ValidateDir() = %v, %v", problems, err)
	}
}

func TestWriterRejectsInvalidDataset(t *testing.T) {
	dir := t.TempDir()
	index, parts := sampleDataset()
	parts[0].Records[0].Difficulty = "expert"

	v, _ := schema.New()
	err := NewWriter(dir, WithValidator(v)).Publish(context.Background(), index, parts)
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected nothing written, found %d entries", len(entries))
	}
}

func TestLoaderUnknownTopic(t *testing.T) {
	loader := NewLoader(t.TempDir())
	for _, topic := range []string{"quantum", "../etc", ""} {
		if _, err := loader.LoadTopic(context.Background(), topic); !errors.Is(err, domain.ErrTopicNotFound) {
			t.Errorf("LoadTopic(%q) error = %v, want ErrTopicNotFound", topic, err)
		}
	}
	if _, err := loader.LoadIndex(context.Background()); !errors.Is(err, domain.ErrDatasetNotFound) {
		t.Errorf("LoadIndex() error = %v, want ErrDatasetNotFound", err)
	}
}

func TestValidateDirReportsProblems(t *testing.T) {
	dir := t.TempDir()
	index, parts := sampleDataset()
	if err := NewWriter(dir).Publish(context.Background(), index, parts); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "compute-questions.json"), []byte(`[]`), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	v, _ := schema.New()
	problems, err := ValidateDir(dir, v)
	if err != nil {
		t.Fatalf("ValidateDir() error = %v", err)
	}
	if len(problems) != 1 || problems[0].File != "compute-questions.json" {
		t.Fatalf("unexpected problems %v", problems)
	}

	if _, err := ValidateDir(t.TempDir(), v); err == nil {
		t.Fatalf("expected error without index")
	}
}
