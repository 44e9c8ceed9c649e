package usecase

import (
	"context"
	"fmt"

	"github.com/frc6135/orgbot/internal/biz/domain"
	"github.com/frc6135/orgbot/internal/biz/repo"
)

// AccessUsecase resolves user access levels and authorizes commands.
type AccessUsecase struct {
	chatRepo     repo.ChatRepo
	config       *ConfigUsecase
	maintainerID string
}

// NewAccessUsecase creates an access usecase.
func NewAccessUsecase(chatRepo repo.ChatRepo, config *ConfigUsecase, maintainerID string) *AccessUsecase {
	return &AccessUsecase{
		chatRepo:     chatRepo,
		config:       config,
		maintainerID: maintainerID,
	}
}

// Level resolves the user's effective access level in a chat: the highest of
// maintainer, bot admin, org admin and chat admin, defaulting to everyone.
func (uc *AccessUsecase) Level(ctx context.Context, chatID, userID string) (domain.AccessLevel, error) {
	if userID != "" && userID == uc.maintainerID {
		return domain.LevelMaintainer, nil
	}
	if uc.config.Snapshot().IsAdmin(userID) {
		return domain.LevelBotAdmin, nil
	}
	orgAdmin, err := uc.chatRepo.IsOrgAdmin(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("org admin check: %w", err)
	}
	if orgAdmin {
		return domain.LevelOrgAdmin, nil
	}
	if chatID != "" {
		chatAdmin, err := uc.chatRepo.IsChatAdmin(ctx, chatID, userID)
		if err != nil {
			return 0, fmt.Errorf("chat admin check: %w", err)
		}
		if chatAdmin {
			return domain.LevelForumAdmin, nil
		}
	}
	return domain.LevelEveryone, nil
}

// Authorize decides whether the user may run the named command. The command's
// access rule, if any, is taken from the current config snapshot.
func (uc *AccessUsecase) Authorize(ctx context.Context, command string, defaultLevel domain.AccessLevel, chatID, userID string) (bool, error) {
	cfg := uc.config.Snapshot()
	level, err := uc.Level(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	memberOf := func(role string) bool {
		return cfg.HasRole(userID, role)
	}
	return domain.Authorize(cfg.AccessRules[command], defaultLevel, userID, level, memberOf), nil
}
