package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps records in a local SQLite database, one row per detail
// URL. Re-crawled pages overwrite their earlier row.
type SQLiteStore struct {
	db    *sql.DB
	runID string
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, runID: uuid.NewString()}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the activities table if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activities (
		detail_url TEXT PRIMARY KEY,
		title TEXT,
		homepage_url TEXT,
		categories TEXT NOT NULL DEFAULT '[]',
		start_date TEXT,
		end_date TEXT,
		image_url TEXT,
		run_id TEXT NOT NULL,
		scraped_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_activities_run ON activities(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Write(ctx context.Context, rec *models.ActivityRecord) error {
	categories, err := encodeCategories(rec.Categories)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO activities (detail_url, title, homepage_url, categories, start_date, end_date, image_url, run_id, scraped_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(detail_url) DO UPDATE SET
		title = excluded.title,
		homepage_url = excluded.homepage_url,
		categories = excluded.categories,
		start_date = excluded.start_date,
		end_date = excluded.end_date,
		image_url = excluded.image_url,
		run_id = excluded.run_id,
		scraped_at = excluded.scraped_at
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.DetailURL,
		rec.Title,
		rec.HomepageURL,
		categories,
		rec.StartDate,
		rec.EndDate,
		rec.ImageURL,
		s.runID,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert activity %q: %w", rec.DetailURL, err)
	}
	return nil
}

// Known reports whether detailURL already has a row
func (s *SQLiteStore) Known(ctx context.Context, detailURL string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM activities WHERE detail_url = ?", detailURL).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query activity: %w", err)
	}
	return true, nil
}

// Tally counts the stored activities, in total and written by this store
func (s *SQLiteStore) Tally(ctx context.Context) (*Tally, error) {
	t := &Tally{Backend: "sqlite", RunID: s.runID}
	query := "SELECT COUNT(*), COALESCE(SUM(run_id = ?), 0) FROM activities"
	if err := s.db.QueryRowContext(ctx, query, s.runID).Scan(&t.Total, &t.Run); err != nil {
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}
	return t, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeCategories(categories []string) (string, error) {
	if categories == nil {
		categories = []string{}
	}
	data, err := json.Marshal(categories)
	if err != nil {
		return "", fmt.Errorf("failed to encode categories: %w", err)
	}
	return string(data), nil
}
