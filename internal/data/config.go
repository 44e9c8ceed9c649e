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

// configRepo implements the config repository over sqlite. The whole config
// is one versioned JSON document in a single-row table.
type configRepo struct {
	db *sql.DB
}

// NewConfigRepo creates a new config repository
func NewConfigRepo(dbPath string) (repo.ConfigRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL,
			document TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &configRepo{db: db}, nil
}

// Load returns the stored config, or a fresh default when none exists
func (r *configRepo) Load(ctx context.Context) (*domain.BotConfig, error) {
	row := r.db.QueryRowContext(ctx, `SELECT version, document FROM config WHERE id = 1`)

	var version int
	var document string
	err := row.Scan(&version, &document)
	if err == sql.ErrNoRows {
		return domain.NewBotConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query config: %w", err)
	}

	cfg := &domain.BotConfig{}
	if err := json.Unmarshal([]byte(document), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Version = version
	cfg.Normalize()
	return cfg, nil
}

// Save stores the document, failing if the stored version moved past
// cfg.Version. On success cfg carries the bumped version.
func (r *configRepo) Save(ctx context.Context, cfg *domain.BotConfig) error {
	document, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var stored int
	err = tx.QueryRowContext(ctx, `SELECT version FROM config WHERE id = 1`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO config (id, version, document) VALUES (1, ?, ?)`,
			cfg.Version+1, string(document))
		if err != nil {
			return fmt.Errorf("failed to insert config: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to query version: %w", err)
	case stored != cfg.Version:
		return fmt.Errorf("config version conflict: stored %d, expected %d", stored, cfg.Version)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE config SET version = ?, document = ? WHERE id = 1`,
			cfg.Version+1, string(document))
		if err != nil {
			return fmt.Errorf("failed to update config: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	cfg.Version++
	return nil
}

func (r *configRepo) Close() error {
	return r.db.Close()
}
