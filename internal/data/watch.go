package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/frc6135/orgbot/internal/biz/domain"
	"github.com/frc6135/orgbot/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// watchRepo implements the keyword watch repository over sqlite. Each user's
// watch config is one JSON document keyed by user id.
type watchRepo struct {
	db *sql.DB
}

// NewWatchRepo creates a new watch repository
func NewWatchRepo(dbPath string) (repo.WatchRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS watches (
			user_id TEXT PRIMARY KEY,
			document TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &watchRepo{db: db}, nil
}

// Get returns the user's watch config, or nil when the user has none
func (r *watchRepo) Get(ctx context.Context, userID string) (*domain.KeywordWatch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT document FROM watches WHERE user_id = ?`, userID)

	var document string
	err := row.Scan(&document)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query watch: %w", err)
	}

	watch := &domain.KeywordWatch{}
	if err := json.Unmarshal([]byte(document), watch); err != nil {
		return nil, fmt.Errorf("failed to decode watch: %w", err)
	}
	return watch, nil
}

// Save stores the user's watch config, replacing any previous one
func (r *watchRepo) Save(ctx context.Context, userID string, watch *domain.KeywordWatch) error {
	document, err := json.Marshal(watch)
	if err != nil {
		return fmt.Errorf("failed to encode watch: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO watches (user_id, document)
		VALUES (?, ?)
	`, userID, string(document))
	if err != nil {
		return fmt.Errorf("failed to save watch: %w", err)
	}
	return nil
}

// All returns every stored watch config keyed by user id
func (r *watchRepo) All(ctx context.Context) (map[string]*domain.KeywordWatch, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, document FROM watches`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watches: %w", err)
	}
	defer rows.Close()

	watches := make(map[string]*domain.KeywordWatch)
	for rows.Next() {
		var userID, document string
		if err := rows.Scan(&userID, &document); err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		watch := &domain.KeywordWatch{}
		if err := json.Unmarshal([]byte(document), watch); err != nil {
			return nil, fmt.Errorf("failed to decode watch for %s: %w", userID, err)
		}
		watches[userID] = watch
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watches: %w", err)
	}
	return watches, nil
}

func (r *watchRepo) Close() error {
	return r.db.Close()
}
