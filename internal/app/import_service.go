package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"saa-question-importer/internal/domain"
	"saa-question-importer/internal/parser"
)

// Source provides the raw answers document.
type Source interface {
	Fetch(ctx context.Context) (string, error)
}

// Publisher receives a finished dataset. The partition file writer is one; exports and
// database loaders are others.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, index domain.DatasetIndex, parts []domain.Partition) error
}

// RunRegistry guards against two imports running at once (in-memory, Redis, etc).
type RunRegistry interface {
	// Begin fails with domain.ErrImportInProgress while another run holds the lock.
	Begin(ctx context.Context, runID string) error
	// Finish releases the lock taken by runID and records its report.
	Finish(ctx context.Context, runID string, report domain.ImportReport) error
	Last(ctx context.Context) (domain.ImportReport, bool, error)
}

// ProgressFunc observes an import as it runs. It is called from the goroutine running
// the import, in source order.
type ProgressFunc func(domain.ProgressEvent)

const (
	EventFetched = "fetched"
	EventRecord  = "record"
	EventSkipped = "skipped"
	EventWritten = "written"
)

// Importer runs the whole pipeline: fetch, parse, partition, write, publish.
type Importer struct {
	source     Source
	assembler  *Assembler
	writer     Publisher
	publishers []Publisher
	runs       RunRegistry
	workers    int
	now        func() time.Time
	newRunID   func() string
}

// ImporterOption customizes an Importer.
type ImporterOption func(*Importer)

// WithWorkers parses blocks on up to n goroutines. Values below 2 parse sequentially.
func WithWorkers(n int) ImporterOption {
	return func(i *Importer) { i.workers = n }
}

// WithPublishers adds publishers that run after the partition writer, in order.
func WithPublishers(p ...Publisher) ImporterOption {
	return func(i *Importer) { i.publishers = append(i.publishers, p...) }
}

func WithRunRegistry(r RunRegistry) ImporterOption {
	return func(i *Importer) { i.runs = r }
}

// WithClock is test-only for deterministic reports.
func WithClock(now func() time.Time) ImporterOption {
	return func(i *Importer) { i.now = now }
}

func NewImporter(source Source, assembler *Assembler, writer Publisher, opts ...ImporterOption) *Importer {
	i := &Importer{
		source:    source,
		assembler: assembler,
		writer:    writer,
		workers:   1,
		now:       time.Now,
		newRunID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run performs one import. Malformed blocks are skipped; any collaborator failure aborts
// the run and is returned wrapped.
func (i *Importer) Run(ctx context.Context, progress ProgressFunc) (report domain.ImportReport, err error) {
	if progress == nil {
		progress = func(domain.ProgressEvent) {}
	}
	report = domain.ImportReport{
		RunID:       i.newRunID(),
		TopicCounts: map[string]int{},
		StartedAt:   i.now().UTC(),
	}

	if i.runs != nil {
		if err := i.runs.Begin(ctx, report.RunID); err != nil {
			return report, err
		}
		defer func() {
			report.FinishedAt = i.now().UTC()
			// release even when ctx is already cancelled
			if ferr := i.runs.Finish(context.WithoutCancel(ctx), report.RunID, report); ferr != nil {
				slog.Error("failed to release import lock", "run_id", report.RunID, "error", ferr)
			}
		}()
	}

	slog.Info("import started", "run_id", report.RunID)
	text, err := i.source.Fetch(ctx)
	if err != nil {
		return report, fmt.Errorf("fetching source: %w", err)
	}
	progress(domain.ProgressEvent{Type: EventFetched, Message: fmt.Sprintf("%d bytes", len(text))})

	records, stats, err := i.Parse(ctx, text, progress)
	if err != nil {
		return report, err
	}
	report.BlocksSeen = stats.BlocksSeen
	report.Skipped = stats.Skipped
	report.Produced = len(records)

	parts := PartitionByTopic(records)
	for _, p := range parts {
		report.TopicCounts[p.Topic] = len(p.Records)
	}
	index := BuildIndex(parts, i.assembler.Info(), i.now())

	for _, pub := range append([]Publisher{i.writer}, i.publishers...) {
		if err := pub.Publish(ctx, index, parts); err != nil {
			return report, fmt.Errorf("%w: %s: %w", domain.ErrWriteFailed, pub.Name(), err)
		}
		progress(domain.ProgressEvent{Type: EventWritten, Message: pub.Name()})
	}

	report.FinishedAt = i.now().UTC()
	slog.Info("import finished",
		"run_id", report.RunID,
		"blocks", report.BlocksSeen,
		"records", report.Produced,
		"skipped", report.Skipped,
		"topics", len(parts),
	)
	return report, nil
}

// ParseStats counts what Parse saw.
type ParseStats struct {
	BlocksSeen int
	Skipped    int
}

type blockResult struct {
	record domain.QuestionRecord
	err    error
}

// Parse turns the answers document into records in source order. Blocks without a
// leading ordinal are logged and skipped. It only fails when ctx is cancelled.
func (i *Importer) Parse(ctx context.Context, text string, progress ProgressFunc) ([]domain.QuestionRecord, ParseStats, error) {
	if progress == nil {
		progress = func(domain.ProgressEvent) {}
	}

	asm := i.assembler.ForRun()
	var results []blockResult
	if i.workers < 2 {
		for block := range parser.Blocks(text) {
			if err := ctx.Err(); err != nil {
				return nil, ParseStats{}, err
			}
			results = append(results, assembleBlock(asm, block))
		}
	} else {
		blocks := parser.SplitBlocks(text)
		results = make([]blockResult, len(blocks))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(i.workers)
		for n, block := range blocks {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[n] = assembleBlock(asm, block)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, ParseStats{}, err
		}
	}

	stats := ParseStats{BlocksSeen: len(results)}
	records := make([]domain.QuestionRecord, 0, len(results))
	for n, res := range results {
		if res.err != nil {
			stats.Skipped++
			slog.Warn("skipping malformed block", "block", n, "error", res.err)
			progress(domain.ProgressEvent{Type: EventSkipped, Message: res.err.Error()})
			continue
		}
		rec := res.record
		if rec.CorrectAnswer >= len(rec.Options) {
			slog.Warn("answer outside option range",
				"id", rec.ID,
				"answer", rec.Metadata.OriginalAnswer,
				"options", len(rec.Options),
			)
		}
		records = append(records, rec)
		progress(domain.ProgressEvent{Type: EventRecord, Ordinal: rec.Metadata.QuestionNumber, Topic: rec.Topic})
	}
	return records, stats, nil
}

func assembleBlock(asm *Assembler, block string) blockResult {
	p, err := parser.ParseBlock(block)
	if err != nil {
		return blockResult{err: err}
	}
	return blockResult{record: asm.Assemble(p)}
}
