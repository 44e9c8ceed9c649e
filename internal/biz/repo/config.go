package repo

import (
	"context"

	"github.com/frc6135/orgbot/internal/biz/domain"
)

// ConfigRepo persists the versioned bot configuration document.
type ConfigRepo interface {
	// Load returns the stored config, or a fresh default when none exists.
	Load(ctx context.Context) (*domain.BotConfig, error)

	// Save stores the document. The write fails if the stored version no
	// longer matches cfg.Version; on success the stored version is bumped
	// and reflected in cfg.
	Save(ctx context.Context, cfg *domain.BotConfig) error

	Close() error
}
