package repo

import (
	"context"

	"github.com/frc6135/orgbot/internal/biz/domain"
)

// WatchRepo persists per-user keyword watch configs.
type WatchRepo interface {
	// Get returns the user's watch config, or nil when the user has none.
	Get(ctx context.Context, userID string) (*domain.KeywordWatch, error)

	// Save stores the user's watch config, replacing any previous one.
	Save(ctx context.Context, userID string, watch *domain.KeywordWatch) error

	// All returns every stored watch config keyed by user id.
	All(ctx context.Context) (map[string]*domain.KeywordWatch, error)

	Close() error
}
