package repo

import (
	"context"
	"time"

	"github.com/frc6135/orgbot/internal/biz/domain"
)

// ChatRepo is the chat platform adapter interface.
type ChatRepo interface {
	// BotID returns the bot's own user id on the platform.
	BotID() string

	// Messaging operations
	SendMessage(ctx context.Context, chatID, text string) error
	SendPrivateMessage(ctx context.Context, userID, text string) error
	DeleteMessage(ctx context.Context, msgID string) error

	// User and chat lookups
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	ResolveChat(ctx context.Context, ref domain.ChatRef) (chatID string, err error)
	ChatName(ctx context.Context, chatID string) (string, error)

	// Membership and platform-level admin checks
	IsChatMember(ctx context.Context, chatID, userID string) (bool, error)
	IsChatAdmin(ctx context.Context, chatID, userID string) (bool, error)
	IsOrgAdmin(ctx context.Context, userID string) (bool, error)

	// NoteActivity records that the user posted a message at the given time,
	// feeding the notification filter's activity and presence checks.
	NoteActivity(userID string, at time.Time)
}
