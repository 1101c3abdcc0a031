// Package xlsx exports an imported dataset as a spreadsheet for manual review.
package xlsx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"saa-question-importer/internal/domain"
)

const (
	indexSheet    = "Index"
	maxSheetName  = 31
	defaultSheet  = "Sheet1"
	optionColumns = 6
)

var questionHeader = []interface{}{
	"ID", "Question", "A", "B", "C", "D", "E", "F",
	"Correct", "Difficulty", "Subtopic", "Tags", "Time (s)", "Explanation",
}

// Exporter writes one worksheet per topic plus an Index sheet.
type Exporter struct {
	path string
}

func NewExporter(path string) *Exporter {
	return &Exporter{path: path}
}

func (e *Exporter) Name() string { return "xlsx" }

func (e *Exporter) Publish(ctx context.Context, index domain.DatasetIndex, parts []domain.Partition) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(indexSheet)
	if err != nil {
		return fmt.Errorf("create index sheet: %w", err)
	}
	if err := writeIndex(f, index); err != nil {
		return err
	}

	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeTopic(f, p); err != nil {
			return err
		}
	}

	f.SetActiveSheet(idx)
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := f.SaveAs(e.path); err != nil {
		return fmt.Errorf("save %s: %w", e.path, err)
	}
	return nil
}

func writeIndex(f *excelize.File, index domain.DatasetIndex) error {
	rows := [][]interface{}{
		{"Exam", index.ExamType},
		{"Source", index.Source},
		{"Last updated", index.LastUpdated.Format("2006-01-02 15:04:05")},
		{"Total questions", index.TotalQuestions},
		{},
		{"Topic", "Questions", "File"},
	}
	for i, topic := range index.Topics {
		file := ""
		if i < len(index.Files) {
			file = index.Files[i]
		}
		rows = append(rows, []interface{}{topic, index.TopicCounts[topic], file})
	}
	return setRows(f, indexSheet, rows)
}

func writeTopic(f *excelize.File, p domain.Partition) error {
	name := SheetName(p.Topic)
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	rows := make([][]interface{}, 0, len(p.Records)+1)
	rows = append(rows, questionHeader)
	for _, r := range p.Records {
		row := []interface{}{r.ID, r.Question}
		for i := 0; i < optionColumns; i++ {
			opt := ""
			if i < len(r.Options) {
				opt = r.Options[i]
			}
			row = append(row, opt)
		}
		subtopic := ""
		if r.Subtopic != nil {
			subtopic = *r.Subtopic
		}
		row = append(row,
			r.Metadata.OriginalAnswer,
			string(r.Difficulty),
			subtopic,
			strings.Join(r.Tags, ", "),
			r.TimeEstimate,
			r.Explanation,
		)
		rows = append(rows, row)
	}
	if err := setRows(f, name, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(name, "B", "B", 80); err != nil {
		return fmt.Errorf("set width on %s: %w", name, err)
	}
	return f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// SheetName fits a topic into Excel's sheet-name rules.
func SheetName(topic string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, topic)
	if name == "" || strings.EqualFold(name, indexSheet) {
		name = "topic-" + name
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}
