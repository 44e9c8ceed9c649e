package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/frc6135/orgbot/internal/biz/domain"
	"github.com/frc6135/orgbot/internal/biz/repo"
)

// ConfigUsecase holds the live bot configuration.
//
// Readers take lock-free snapshots; they may observe a config that is one
// update old, never a torn one. Mutations are serialized and persisted before
// the snapshot is swapped, so an accepted change is never lost to a crash.
type ConfigUsecase struct {
	configRepo repo.ConfigRepo

	mu       sync.Mutex // serializes Update and Reload
	snapshot atomic.Pointer[domain.BotConfig]
}

// NewConfigUsecase creates a config usecase and loads the stored document.
func NewConfigUsecase(ctx context.Context, configRepo repo.ConfigRepo) (*ConfigUsecase, error) {
	uc := &ConfigUsecase{configRepo: configRepo}
	cfg, err := configRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Normalize()
	uc.snapshot.Store(cfg)
	return uc, nil
}

// Snapshot returns the current config. The returned document is shared and
// must not be mutated; use Update for changes.
func (uc *ConfigUsecase) Snapshot() *domain.BotConfig {
	return uc.snapshot.Load()
}

// Update clones the current config, applies mutate to the clone, persists it
// and swaps it in. If mutate or the save fails the live snapshot is untouched.
func (uc *ConfigUsecase) Update(ctx context.Context, mutate func(cfg *domain.BotConfig) error) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	next := uc.snapshot.Load().Clone()
	if err := mutate(next); err != nil {
		return err
	}
	if err := uc.configRepo.Save(ctx, next); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	uc.snapshot.Store(next)
	return nil
}

// Reload replaces the snapshot with the stored document.
func (uc *ConfigUsecase) Reload(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	cfg, err := uc.configRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Normalize()
	uc.snapshot.Store(cfg)
	return nil
}
