package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/frc6135/orgbot/internal/biz/domain"
	"github.com/frc6135/orgbot/internal/biz/repo"
)

// WatchUsecase manages keyword watches and the shared keyword matcher.
//
// Scans run against an immutable matcher snapshot and never block on
// mutations. Every successful watch update persists first, then rebuilds the
// matcher from scratch and swaps it in atomically; a failed rebuild keeps the
// previous matcher in service.
type WatchUsecase struct {
	watchRepo repo.WatchRepo

	mu      sync.Mutex // serializes mutations and rebuilds
	watches map[string]*domain.KeywordWatch
	matcher atomic.Pointer[domain.Matcher]
}

// NewWatchUsecase creates a watch usecase, loading all stored watches and
// building the initial matcher.
func NewWatchUsecase(ctx context.Context, watchRepo repo.WatchRepo) (*WatchUsecase, error) {
	watches, err := watchRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watches: %w", err)
	}
	matcher, err := domain.BuildMatcher(watches)
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}
	uc := &WatchUsecase{watchRepo: watchRepo, watches: watches}
	uc.matcher.Store(matcher)
	return uc, nil
}

// Get returns a copy of the user's watch config, creating a default one in
// memory if the user has none yet. The copy is the caller's to mutate.
func (uc *WatchUsecase) Get(userID string) *domain.KeywordWatch {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if watch, ok := uc.watches[userID]; ok {
		return watch.Clone()
	}
	return domain.NewKeywordWatch()
}

// Update applies mutate to a copy of the user's watch config, persists it,
// then rebuilds and swaps the matcher. On any failure nothing changes.
func (uc *WatchUsecase) Update(ctx context.Context, userID string, mutate func(w *domain.KeywordWatch) error) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	watch, ok := uc.watches[userID]
	if ok {
		watch = watch.Clone()
	} else {
		watch = domain.NewKeywordWatch()
	}
	if err := mutate(watch); err != nil {
		return err
	}

	next := make(map[string]*domain.KeywordWatch, len(uc.watches)+1)
	for id, w := range uc.watches {
		next[id] = w
	}
	next[userID] = watch

	matcher, err := domain.BuildMatcher(next)
	if err != nil {
		return fmt.Errorf("build matcher: %w", err)
	}
	if err := uc.watchRepo.Save(ctx, userID, watch); err != nil {
		return fmt.Errorf("save watch: %w", err)
	}
	uc.watches = next
	uc.matcher.Store(matcher)
	return nil
}

// Scan returns the keyword matches for a message, filtered to users with
// watching enabled.
func (uc *WatchUsecase) Scan(text string) []domain.KeywordMatch {
	matches := uc.matcher.Load().Scan(text)
	if len(matches) == 0 {
		return nil
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	filtered := matches[:0]
	for _, match := range matches {
		if watch, ok := uc.watches[match.UserID]; ok && watch.On {
			filtered = append(filtered, match)
		}
	}
	return filtered
}
