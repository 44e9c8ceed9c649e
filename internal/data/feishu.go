package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/frc6135/orgbot/internal/biz/domain"
	"github.com/frc6135/orgbot/internal/biz/repo"
	"github.com/frc6135/orgbot/internal/infra/feishu"
)

// userState is what the adapter remembers about a user between messages.
// Feishu has no presence API, so presence is inferred: a user is Available
// for a short window after they post anywhere the bot can see.
type userState struct {
	name         string
	lastActivity time.Time
}

const presenceWindow = 5 * time.Minute

// chatRepo implements the chat platform adapter over the Feishu client
type chatRepo struct {
	client    *feishu.Client
	orgAdmins map[string]bool

	mu    sync.Mutex
	state map[string]*userState
	now   func() time.Time
}

// NewChatRepo creates a new chat repository
func NewChatRepo(client *feishu.Client, orgAdminIDs []string) repo.ChatRepo {
	admins := make(map[string]bool, len(orgAdminIDs))
	for _, id := range orgAdminIDs {
		admins[id] = true
	}
	return &chatRepo{
		client:    client,
		orgAdmins: admins,
		state:     make(map[string]*userState),
		now:       time.Now,
	}
}

// BotID returns the bot's own open id.
func (r *chatRepo) BotID() string {
	return r.client.BotOpenID()
}

// NoteActivity records that a user just posted. The server calls this for
// every inbound message so the notification filter can skip active users.
func (r *chatRepo) NoteActivity(userID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state[userID]
	if st == nil {
		st = &userState{}
		r.state[userID] = st
	}
	if at.After(st.lastActivity) {
		st.lastActivity = at
	}
}

func (r *chatRepo) SendMessage(ctx context.Context, chatID, text string) error {
	return r.client.SendText(ctx, chatID, text)
}

func (r *chatRepo) SendPrivateMessage(ctx context.Context, userID, text string) error {
	return r.client.SendTextToUser(ctx, userID, text)
}

func (r *chatRepo) DeleteMessage(ctx context.Context, msgID string) error {
	return r.client.DeleteMessage(ctx, msgID)
}

func (r *chatRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	r.mu.Lock()
	st := r.state[userID]
	var lastActivity time.Time
	var name string
	if st != nil {
		lastActivity = st.lastActivity
		name = st.name
	}
	now := r.now()
	r.mu.Unlock()

	if name == "" {
		fetched, err := r.client.GetUserName(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get user %s: %w", userID, err)
		}
		name = fetched
		r.mu.Lock()
		if st := r.state[userID]; st != nil {
			st.name = name
		} else {
			r.state[userID] = &userState{name: name}
		}
		r.mu.Unlock()
	}

	presence := domain.PresenceAway
	if !lastActivity.IsZero() && now.Sub(lastActivity) < presenceWindow {
		presence = domain.PresenceAvailable
	}
	return &domain.User{
		ID:           userID,
		Name:         name,
		Presence:     presence,
		LastActivity: lastActivity,
	}, nil
}

func (r *chatRepo) ResolveChat(ctx context.Context, ref domain.ChatRef) (string, error) {
	switch ref.Field {
	case domain.FieldID, domain.FieldJID:
		return ref.Value, nil
	case domain.FieldName:
		return r.client.FindChatByName(ctx, ref.Value)
	case domain.FieldNickname:
		return r.client.FindChatByNameFold(ctx, ref.Value)
	case domain.FieldEmail:
		return r.client.FindUserByEmail(ctx, ref.Value)
	default:
		return "", &domain.ValidationError{Message: fmt.Sprintf("lookup by %s is not supported here", ref.Field)}
	}
}

func (r *chatRepo) ChatName(ctx context.Context, chatID string) (string, error) {
	info, err := r.client.GetChatInfo(ctx, chatID)
	if err != nil {
		return "", err
	}
	return info.Name, nil
}

func (r *chatRepo) IsChatMember(ctx context.Context, chatID, userID string) (bool, error) {
	members, err := r.client.GetChatMembers(ctx, chatID)
	if err != nil {
		return false, err
	}
	for _, member := range members {
		if member.MemberID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *chatRepo) IsChatAdmin(ctx context.Context, chatID, userID string) (bool, error) {
	admins, err := r.client.GetChatAdmins(ctx, chatID)
	if err != nil {
		return false, err
	}
	for _, id := range admins {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *chatRepo) IsOrgAdmin(ctx context.Context, userID string) (bool, error) {
	return r.orgAdmins[userID], nil
}
