// Package schema validates question records and dataset indexes against the published
// JSON schemas.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"saa-question-importer/internal/domain"
)

//go:embed question.schema.json
var questionSchema []byte

//go:embed index.schema.json
var indexSchema []byte

// Validator holds the compiled schemas. It is safe for concurrent use.
type Validator struct {
	question *gojsonschema.Schema
	index    *gojsonschema.Schema
}

func New() (*Validator, error) {
	question, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(questionSchema))
	if err != nil {
		return nil, fmt.Errorf("compile question schema: %w", err)
	}
	index, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(indexSchema))
	if err != nil {
		return nil, fmt.Errorf("compile index schema: %w", err)
	}
	return &Validator{question: question, index: index}, nil
}

// ValidateRecord checks one record. Failures wrap domain.ErrInvalidRecord.
func (v *Validator) ValidateRecord(rec domain.QuestionRecord) error {
	return check(v.question, gojsonschema.NewGoLoader(rec), rec.ID)
}

// ValidatePartition checks every record of a partition and that each carries the
// partition's topic.
func (v *Validator) ValidatePartition(p domain.Partition) error {
	for _, rec := range p.Records {
		if rec.Topic != p.Topic {
			return fmt.Errorf("%w: %s: topic %q in partition %q", domain.ErrInvalidRecord, rec.ID, rec.Topic, p.Topic)
		}
		if err := v.ValidateRecord(rec); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) ValidateIndex(index domain.DatasetIndex) error {
	return check(v.index, gojsonschema.NewGoLoader(index), "index")
}

// ValidatePartitionJSON checks a written partition file: a JSON array of records.
func (v *Validator) ValidatePartitionJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: not a JSON array: %w", domain.ErrInvalidRecord, err)
	}
	for i, item := range items {
		if err := check(v.question, gojsonschema.NewBytesLoader(item), fmt.Sprintf("item %d", i)); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) ValidateIndexJSON(data []byte) error {
	return check(v.index, gojsonschema.NewBytesLoader(data), "index")
}

func check(s *gojsonschema.Schema, doc gojsonschema.JSONLoader, what string) error {
	result, err := s.Validate(doc)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidRecord, what, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s: %s", domain.ErrInvalidRecord, what, strings.Join(msgs, "; "))
}
