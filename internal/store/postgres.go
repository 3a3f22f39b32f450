package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps records in a PostgreSQL table, one row per detail URL
type PostgresStore struct {
	db    *sql.DB
	runID string
}

// NewPostgresStore connects to dsn, checks the connection and ensures the
// schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db, runID: uuid.NewString()}
	schemaCtx, schemaCancel := context.WithTimeout(ctx, 10*time.Second)
	defer schemaCancel()
	if err := store.ensureSchema(schemaCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS activities (
			detail_url TEXT PRIMARY KEY,
			title TEXT,
			homepage_url TEXT,
			categories JSONB NOT NULL DEFAULT '[]'::jsonb,
			start_date TEXT,
			end_date TEXT,
			image_url TEXT,
			run_id UUID NOT NULL,
			scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_activities_run ON activities(run_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Write(ctx context.Context, rec *models.ActivityRecord) error {
	categories, err := encodeCategories(rec.Categories)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activities (detail_url, title, homepage_url, categories, start_date, end_date, image_url, run_id, scraped_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, NOW())
		ON CONFLICT (detail_url) DO UPDATE
		SET
			title = EXCLUDED.title,
			homepage_url = EXCLUDED.homepage_url,
			categories = EXCLUDED.categories,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			image_url = EXCLUDED.image_url,
			run_id = EXCLUDED.run_id,
			scraped_at = NOW()`,
		rec.DetailURL,
		rec.Title,
		rec.HomepageURL,
		categories,
		rec.StartDate,
		rec.EndDate,
		rec.ImageURL,
		s.runID,
	)
	if err != nil {
		return fmt.Errorf("upsert activity %q: %w", rec.DetailURL, err)
	}
	return nil
}

// Known reports whether detailURL already has a row
func (s *PostgresStore) Known(ctx context.Context, detailURL string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM activities WHERE detail_url = $1)", detailURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query activity %q: %w", detailURL, err)
	}
	return exists, nil
}

// Tally counts the stored activities, in total and written by this store
func (s *PostgresStore) Tally(ctx context.Context) (*Tally, error) {
	t := &Tally{Backend: "postgres", RunID: s.runID}
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(*) FILTER (WHERE run_id = $1) FROM activities", s.runID).Scan(&t.Total, &t.Run)
	if err != nil {
		return nil, fmt.Errorf("count activities: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
