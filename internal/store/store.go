package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	dbtypes "github.com/nitesh/news_near_me/internal/db"
	"github.com/nitesh/news_near_me/pkg/models"
)

// PgStore keeps generation metadata in Postgres.
type PgStore struct {
	db *sqlx.DB
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres")}
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS news_generations(
  id UUID PRIMARY KEY,
  source TEXT NOT NULL,
  location TEXT NOT NULL,
  language TEXT NOT NULL,
  requested_limit INTEGER NOT NULL,
  categories JSONB NOT NULL DEFAULT '[]'::jsonb,
  total_news INTEGER NOT NULL,
  skipped_entries INTEGER NOT NULL DEFAULT 0,
  parse_failed BOOLEAN NOT NULL DEFAULT FALSE,
  latency_ms BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_news_generations_created ON news_generations(created_at);
CREATE INDEX IF NOT EXISTS idx_news_generations_location ON news_generations(location);
`
	_, err := db.ExecContext(ctx, initSQL)
	return err
}

// Record inserts one generation. Missing ID and timestamp are filled in.
func (p *PgStore) Record(ctx context.Context, g *models.Generation) error {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	if g.Categories == nil {
		g.Categories = dbtypes.StringSlice{}
	}

	stmt := `
INSERT INTO news_generations (id, source, location, language, requested_limit, categories, total_news, skipped_entries, parse_failed, latency_ms, created_at)
VALUES (:id, :source, :location, :language, :requested_limit, :categories, :total_news, :skipped_entries, :parse_failed, :latency_ms, :created_at)
`
	if _, err := p.db.NamedExecContext(ctx, stmt, g); err != nil {
		return fmt.Errorf("insert generation id=%s: %w", g.ID, err)
	}
	return nil
}

// Recent returns the latest generations, newest first.
func (p *PgStore) Recent(ctx context.Context, limit int) ([]*models.Generation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows := []*models.Generation{}
	query := `
SELECT id, source, location, language, requested_limit, categories, total_news, skipped_entries, parse_failed, latency_ms, created_at
FROM news_generations
ORDER BY created_at DESC
LIMIT $1
`
	if err := p.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("select generations: %w", err)
	}
	return rows, nil
}

func (p *PgStore) Close() error {
	return p.db.Close()
}
