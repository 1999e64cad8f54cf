package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the session state in PostgreSQL. It assumes a
// single logical writer, matching the one-in-flight-reply model.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alma_turns (
			idx INTEGER PRIMARY KEY,
			user_utterance TEXT NOT NULL,
			sentiment_label TEXT NOT NULL,
			reply_emotion_label TEXT NOT NULL,
			reply_text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS alma_summary (
			id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			abstract_text TEXT NOT NULL,
			covered_turn_count INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, turn Turn) (Turn, error) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	var count int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM alma_turns`).Scan(&count); err != nil {
		return Turn{}, fmt.Errorf("count turns: %w", err)
	}
	turn.Index = count + 1

	_, err := s.pool.Exec(ctx,
		`INSERT INTO alma_turns (idx, user_utterance, sentiment_label, reply_emotion_label, reply_text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		turn.Index,
		turn.UserUtterance,
		turn.SentimentLabel,
		turn.ReplyEmotionLabel,
		turn.ReplyText,
		turn.CreatedAt,
	)
	if err != nil {
		return Turn{}, fmt.Errorf("append turn: %w", err)
	}
	return turn, nil
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT idx, user_utterance, sentiment_label, reply_emotion_label, reply_text, created_at
		 FROM alma_turns ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Index, &t.UserUtterance, &t.SentimentLabel, &t.ReplyEmotionLabel, &t.ReplyText, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) Summary(ctx context.Context) (SummaryRecord, error) {
	var rec SummaryRecord
	err := s.pool.QueryRow(ctx,
		`SELECT abstract_text, covered_turn_count, updated_at FROM alma_summary WHERE id = 1`).
		Scan(&rec.AbstractText, &rec.CoveredTurnCount, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SummaryRecord{}, nil
	}
	if err != nil {
		return SummaryRecord{}, fmt.Errorf("query summary: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) SaveSummary(ctx context.Context, rec SummaryRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO alma_summary (id, abstract_text, covered_turn_count, updated_at)
		 VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
			abstract_text = EXCLUDED.abstract_text,
			covered_turn_count = EXCLUDED.covered_turn_count,
			updated_at = EXCLUDED.updated_at`,
		rec.AbstractText,
		rec.CoveredTurnCount,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

func (s *PostgresStore) Wipe(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM alma_turns`, `DELETE FROM alma_summary`} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("wipe: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
