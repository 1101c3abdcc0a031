// Package filestore writes topic partitions and the dataset index as JSON files and reads
// them back.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"saa-question-importer/internal/app"
	"saa-question-importer/internal/domain"
)

// Validator checks content before it is written.
type Validator interface {
	ValidatePartition(p domain.Partition) error
	ValidateIndex(index domain.DatasetIndex) error
}

// Writer is the partition publisher that lays a dataset out on disk:
// one <topic>-questions.json per partition and an index.json.
type Writer struct {
	dir       string
	validator Validator
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithValidator rejects the whole dataset before anything is written if a record or the
// index fails validation.
func WithValidator(v Validator) WriterOption {
	return func(w *Writer) { w.validator = v }
}

func NewWriter(dir string, opts ...WriterOption) *Writer {
	w := &Writer{dir: dir}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) Name() string { return "files" }

func (w *Writer) Publish(ctx context.Context, index domain.DatasetIndex, parts []domain.Partition) error {
	if w.validator != nil {
		for _, p := range parts {
			if err := w.validator.ValidatePartition(p); err != nil {
				return err
			}
		}
		if err := w.validator.ValidateIndex(index); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeJSON(filepath.Join(w.dir, app.PartitionFileName(p.Topic)), p.Records); err != nil {
			return err
		}
		slog.Info("saved topic partition", "topic", p.Topic, "questions", len(p.Records))
	}
	if err := writeJSON(filepath.Join(w.dir, app.IndexFileName), index); err != nil {
		return err
	}
	slog.Info("created index", "dir", w.dir, "questions", index.TotalQuestions)
	return nil
}

// writeJSON replaces path atomically with v encoded as 2-space indented JSON.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp.Name(), path)
}

// Loader reads a dataset written by Writer.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

func (l *Loader) LoadIndex(_ context.Context) (domain.DatasetIndex, error) {
	var index domain.DatasetIndex
	err := readJSON(filepath.Join(l.dir, app.IndexFileName), &index)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.DatasetIndex{}, fmt.Errorf("%w: %w", domain.ErrDatasetNotFound, err)
	}
	if err != nil {
		return domain.DatasetIndex{}, err
	}
	return index, nil
}

func (l *Loader) LoadTopic(_ context.Context, topic string) ([]domain.QuestionRecord, error) {
	if topic == "" || filepath.Base(topic) != topic {
		return nil, domain.ErrTopicNotFound
	}
	var records []domain.QuestionRecord
	err := readJSON(filepath.Join(l.dir, app.PartitionFileName(topic)), &records)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrTopicNotFound
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
