// Package postgres publishes imported datasets to Postgres and loads them back.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saa-question-importer/internal/domain"
)

// QuestionStore keeps records as JSONB rows, one per question, plus the dataset index.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) Name() string { return "postgres" }

// Publish replaces the questions of the index's exam type in a single transaction.
func (s *QuestionStore) Publish(ctx context.Context, index domain.DatasetIndex, parts []domain.Partition) error {
	indexData, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM questions WHERE exam_type = $1`, index.ExamType)
	for _, p := range parts {
		for pos, r := range p.Records {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", r.ID, err)
			}
			tags := r.Tags
			if tags == nil {
				tags = []string{}
			}
			batch.Queue(`
INSERT INTO questions (id, exam_type, topic, position, difficulty, tags, data)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
ON CONFLICT (id) DO UPDATE SET
  exam_type = EXCLUDED.exam_type, topic = EXCLUDED.topic, position = EXCLUDED.position,
  difficulty = EXCLUDED.difficulty, tags = EXCLUDED.tags, data = EXCLUDED.data, imported_at = now()`,
				r.ID, index.ExamType, p.Topic, pos, string(r.Difficulty), tags, string(data))
		}
	}
	batch.Queue(`
INSERT INTO dataset_indexes (exam_type, data, updated_at) VALUES ($1, $2::jsonb, $3)
ON CONFLICT (exam_type) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		index.ExamType, string(indexData), index.LastUpdated)

	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("publish questions: %w", err)
			}
		}
		return br.Close()
	})
}

// LoadIndex returns the most recently published index.
func (s *QuestionStore) LoadIndex(ctx context.Context) (domain.DatasetIndex, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM dataset_indexes ORDER BY updated_at DESC LIMIT 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DatasetIndex{}, domain.ErrDatasetNotFound
	}
	if err != nil {
		return domain.DatasetIndex{}, fmt.Errorf("load index: %w", err)
	}
	var index domain.DatasetIndex
	if err := json.Unmarshal(raw, &index); err != nil {
		return domain.DatasetIndex{}, fmt.Errorf("unmarshal index: %w", err)
	}
	return index, nil
}

func (s *QuestionStore) LoadTopic(ctx context.Context, topic string) ([]domain.QuestionRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions WHERE topic = $1 ORDER BY position`, topic)
	if err != nil {
		return nil, fmt.Errorf("load topic: %w", err)
	}
	defer rows.Close()

	var records []domain.QuestionRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var r domain.QuestionRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load topic: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrTopicNotFound
	}
	return records, nil
}

// QuestionsByTag returns every record carrying tag, across topics.
func (s *QuestionStore) QuestionsByTag(ctx context.Context, tag string) ([]domain.QuestionRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions WHERE $1 = ANY(tags) ORDER BY topic, position`, tag)
	if err != nil {
		return nil, fmt.Errorf("query by tag: %w", err)
	}
	defer rows.Close()

	records := []domain.QuestionRecord{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var r domain.QuestionRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
