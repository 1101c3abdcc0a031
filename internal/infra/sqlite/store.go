// Package sqlite keeps an imported dataset in a single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers "sqlite"

	"saa-question-importer/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS questions (
  id             TEXT PRIMARY KEY,
  exam_type      TEXT NOT NULL,
  topic          TEXT NOT NULL,
  position       INTEGER NOT NULL,
  subtopic       TEXT,
  difficulty     TEXT NOT NULL,
  question       TEXT NOT NULL,
  correct_answer INTEGER NOT NULL,
  time_estimate  INTEGER NOT NULL,
  record         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS questions_topic_idx ON questions (topic, position);

CREATE TABLE IF NOT EXISTS dataset_index (
  exam_type  TEXT PRIMARY KEY,
  body       TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`

var pragmas = []string{
	"PRAGMA journal_mode = WAL;",
	"PRAGMA synchronous = NORMAL;",
	"PRAGMA busy_timeout = 5000;",
}

// Store publishes datasets into SQLite and loads them back.
type Store struct {
	db *sql.DB
}

// Open connects to the database at path, applies pragmas and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// single writer: keep the pool tiny to avoid busy errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Name() string { return "sqlite" }

// Publish replaces every question of the index's exam type with parts.
func (s *Store) Publish(ctx context.Context, index domain.DatasetIndex, parts []domain.Partition) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE exam_type = ?`, index.ExamType); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO questions (id, exam_type, topic, position, subtopic, difficulty, question, correct_answer, time_estimate, record)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  exam_type = excluded.exam_type, topic = excluded.topic, position = excluded.position,
  subtopic = excluded.subtopic, difficulty = excluded.difficulty, question = excluded.question,
  correct_answer = excluded.correct_answer, time_estimate = excluded.time_estimate, record = excluded.record`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range parts {
			for pos, r := range p.Records {
				body, err := json.Marshal(r)
				if err != nil {
					return fmt.Errorf("encode %s: %w", r.ID, err)
				}
				if _, err := stmt.ExecContext(ctx,
					r.ID, index.ExamType, p.Topic, pos, r.Subtopic, string(r.Difficulty),
					r.Question, r.CorrectAnswer, r.TimeEstimate, string(body),
				); err != nil {
					return fmt.Errorf("insert %s: %w", r.ID, err)
				}
			}
		}

		body, err := json.Marshal(index)
		if err != nil {
			return fmt.Errorf("encode index: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO dataset_index (exam_type, body, updated_at) VALUES (?, ?, ?)
ON CONFLICT (exam_type) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
			index.ExamType, string(body), index.LastUpdated.UTC().Format("2006-01-02T15:04:05.000000000Z"))
		if err != nil {
			return fmt.Errorf("upsert index: %w", err)
		}
		return nil
	})
}

// LoadIndex returns the most recently published index.
func (s *Store) LoadIndex(ctx context.Context) (domain.DatasetIndex, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM dataset_index ORDER BY updated_at DESC LIMIT 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DatasetIndex{}, domain.ErrDatasetNotFound
	}
	if err != nil {
		return domain.DatasetIndex{}, fmt.Errorf("sqlite: load index: %w", err)
	}
	var index domain.DatasetIndex
	if err := json.Unmarshal([]byte(body), &index); err != nil {
		return domain.DatasetIndex{}, fmt.Errorf("sqlite: decode index: %w", err)
	}
	return index, nil
}

func (s *Store) LoadTopic(ctx context.Context, topic string) ([]domain.QuestionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM questions WHERE topic = ? ORDER BY position`, topic)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load topic: %w", err)
	}
	defer rows.Close()

	var records []domain.QuestionRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		var r domain.QuestionRecord
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("sqlite: decode record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.ErrTopicNotFound
	}
	return records, nil
}

// withTx runs fn in a transaction, committing if it returns nil.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if e := tx.Commit(); e != nil {
			err = fmt.Errorf("sqlite: commit: %w", e)
		}
	}()
	return fn(tx)
}
