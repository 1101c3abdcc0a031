package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"saa-question-importer/internal/app"
	"saa-question-importer/internal/domain"
)

// JSONValidator checks raw file contents.
type JSONValidator interface {
	ValidatePartitionJSON(data []byte) error
	ValidateIndexJSON(data []byte) error
}

// Problem is one failed check in a dataset directory.
type Problem struct {
	File string
	Err  error
}

func (p Problem) String() string { return p.File + ": " + p.Err.Error() }

// ValidateDir checks index.json and every partition it lists against v, and that the
// record counts agree with the index. The error is non-nil only when the index itself
// cannot be read.
func ValidateDir(dir string, v JSONValidator) ([]Problem, error) {
	raw, err := os.ReadFile(filepath.Join(dir, app.IndexFileName))
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var problems []Problem
	if err := v.ValidateIndexJSON(raw); err != nil {
		problems = append(problems, Problem{File: app.IndexFileName, Err: err})
	}
	var index domain.DatasetIndex
	if err := json.Unmarshal(raw, &index); err != nil {
		return append(problems, Problem{File: app.IndexFileName, Err: err}), nil
	}

	total := 0
	for _, topic := range index.Topics {
		name := app.PartitionFileName(topic)
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			problems = append(problems, Problem{File: name, Err: err})
			continue
		}
		if err := v.ValidatePartitionJSON(data); err != nil {
			problems = append(problems, Problem{File: name, Err: err})
			continue
		}
		var records []json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			problems = append(problems, Problem{File: name, Err: err})
			continue
		}
		total += len(records)
		if want := index.TopicCounts[topic]; want != len(records) {
			problems = append(problems, Problem{
				File: name,
				Err:  fmt.Errorf("%w: index lists %d questions, file has %d", domain.ErrInvalidRecord, want, len(records)),
			})
		}
	}
	if total != index.TotalQuestions && !hasFileProblems(problems) {
		problems = append(problems, Problem{
			File: app.IndexFileName,
			Err:  fmt.Errorf("%w: totalQuestions %d, partitions hold %d", domain.ErrInvalidRecord, index.TotalQuestions, total),
		})
	}
	return problems, nil
}

func hasFileProblems(problems []Problem) bool {
	for _, p := range problems {
		if strings.HasSuffix(p.File, "-questions.json") {
			return true
		}
	}
	return false
}
