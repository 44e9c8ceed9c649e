package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/frc6135/orgbot/internal/biz/domain"
)

type fakeConfigRepo struct {
	cfg     *domain.BotConfig
	saveErr error
	saves   int
}

func (r *fakeConfigRepo) Load(ctx context.Context) (*domain.BotConfig, error) {
	if r.cfg == nil {
		return domain.NewBotConfig(), nil
	}
	return r.cfg.Clone(), nil
}

func (r *fakeConfigRepo) Save(ctx context.Context, cfg *domain.BotConfig) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	cfg.Version++
	r.cfg = cfg.Clone()
	return nil
}

func (r *fakeConfigRepo) Close() error { return nil }

type fakeWatchRepo struct {
	watches map[string]*domain.KeywordWatch
	saveErr error
}

func newFakeWatchRepo() *fakeWatchRepo {
	return &fakeWatchRepo{watches: make(map[string]*domain.KeywordWatch)}
}

func (r *fakeWatchRepo) Get(ctx context.Context, userID string) (*domain.KeywordWatch, error) {
	watch, ok := r.watches[userID]
	if !ok {
		return nil, nil
	}
	return watch.Clone(), nil
}

func (r *fakeWatchRepo) Save(ctx context.Context, userID string, watch *domain.KeywordWatch) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.watches[userID] = watch.Clone()
	return nil
}

func (r *fakeWatchRepo) All(ctx context.Context) (map[string]*domain.KeywordWatch, error) {
	all := make(map[string]*domain.KeywordWatch, len(r.watches))
	for id, watch := range r.watches {
		all[id] = watch.Clone()
	}
	return all, nil
}

func (r *fakeWatchRepo) Close() error { return nil }

type fakeChatRepo struct {
	users      map[string]*domain.User
	orgAdmins  map[string]bool
	chatAdmins map[string]bool // key chatID|userID
	members    map[string]bool // key chatID|userID, default true
	sent       []string
	private    map[string][]string
	deleted    []string
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		users:      make(map[string]*domain.User),
		orgAdmins:  make(map[string]bool),
		chatAdmins: make(map[string]bool),
		members:    make(map[string]bool),
		private:    make(map[string][]string),
	}
}

func (r *fakeChatRepo) BotID() string { return "bot-open-id" }

func (r *fakeChatRepo) SendMessage(ctx context.Context, chatID, text string) error {
	r.sent = append(r.sent, text)
	return nil
}

func (r *fakeChatRepo) SendPrivateMessage(ctx context.Context, userID, text string) error {
	r.private[userID] = append(r.private[userID], text)
	return nil
}

func (r *fakeChatRepo) DeleteMessage(ctx context.Context, msgID string) error {
	r.deleted = append(r.deleted, msgID)
	return nil
}

func (r *fakeChatRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, ok := r.users[userID]
	if !ok {
		return nil, errors.New("user not found: " + userID)
	}
	return user, nil
}

func (r *fakeChatRepo) ResolveChat(ctx context.Context, ref domain.ChatRef) (string, error) {
	return ref.Value, nil
}

func (r *fakeChatRepo) ChatName(ctx context.Context, chatID string) (string, error) {
	return chatID, nil
}

func (r *fakeChatRepo) IsChatMember(ctx context.Context, chatID, userID string) (bool, error) {
	member, ok := r.members[chatID+"|"+userID]
	if !ok {
		return true, nil
	}
	return member, nil
}

func (r *fakeChatRepo) IsChatAdmin(ctx context.Context, chatID, userID string) (bool, error) {
	return r.chatAdmins[chatID+"|"+userID], nil
}

func (r *fakeChatRepo) IsOrgAdmin(ctx context.Context, userID string) (bool, error) {
	return r.orgAdmins[userID], nil
}

func (r *fakeChatRepo) NoteActivity(userID string, at time.Time) {
	if user, ok := r.users[userID]; ok && at.After(user.LastActivity) {
		user.LastActivity = at
	}
}

type fakeRegistry map[string]CommandInfo

func (r fakeRegistry) Lookup(name string) (CommandInfo, bool) {
	info, ok := r[name]
	return info, ok
}
