package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/frc6135/orgbot/internal/biz/domain"
)

type pipelineFixture struct {
	pipeline   *PipelineUsecase
	config     *ConfigUsecase
	watch      *WatchUsecase
	moderation *domain.ModerationTable
	chat       *fakeChatRepo
	registry   fakeRegistry
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	ctx := context.Background()
	config, err := NewConfigUsecase(ctx, &fakeConfigRepo{})
	if err != nil {
		t.Fatalf("NewConfigUsecase failed: %v", err)
	}
	err = config.Update(ctx, func(cfg *domain.BotConfig) error {
		cfg.CommandPrefixes = []string{"@bot ", "!"}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	watch, err := NewWatchUsecase(ctx, newFakeWatchRepo())
	if err != nil {
		t.Fatalf("NewWatchUsecase failed: %v", err)
	}
	chat := newFakeChatRepo()
	moderation := domain.NewModerationTable()
	registry := fakeRegistry{
		"ping": {Name: "ping", Level: domain.LevelEveryone},
		"mute": {Name: "mute", Level: domain.LevelForumAdmin},
	}
	access := NewAccessUsecase(chat, config, "maintainer-1")
	pipeline := NewPipelineUsecase(config, watch, access, moderation, registry, chat)
	return &pipelineFixture{
		pipeline:   pipeline,
		config:     config,
		watch:      watch,
		moderation: moderation,
		chat:       chat,
		registry:   registry,
	}
}

func (f *pipelineFixture) process(t *testing.T, msg *domain.InboundMessage) *domain.Outcome {
	t.Helper()
	out, err := f.pipeline.Process(context.Background(), msg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	return out
}

func TestPipeline_MutedUserIsSuppressed(t *testing.T) {
	f := newPipelineFixture(t)
	f.moderation.Mute("c1", "u1", 0)

	out := f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "!ping"})
	if out.Kind != domain.OutcomeSuppressed || out.Notify {
		t.Errorf("Expected silent suppression, got %+v", out)
	}

	// Muted in one chat only.
	out = f.process(t, &domain.InboundMessage{ChatID: "c2", UserID: "u1", Text: "!ping"})
	if out.Kind != domain.OutcomeDispatched {
		t.Errorf("Expected dispatch in other chat, got %v", out.Kind)
	}
}

func TestPipeline_ReadOnlyChatNotifies(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	err := f.config.Update(ctx, func(cfg *domain.BotConfig) error {
		cfg.AddToRole("Leads", "lead-1")
		cfg.ReadOnlyChats["c1"] = []string{"Leads"}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	out := f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "hello"})
	if out.Kind != domain.OutcomeSuppressed || !out.Notify {
		t.Errorf("Expected suppression with notice, got %+v", out)
	}

	out = f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "lead-1", Text: "hello"})
	if out.Kind != domain.OutcomeNoMatch {
		t.Errorf("Expected allowed role to pass, got %v", out.Kind)
	}
}

func TestPipeline_CommandDispatchAndDenial(t *testing.T) {
	f := newPipelineFixture(t)

	out := f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "!ping now"})
	if out.Kind != domain.OutcomeDispatched || out.Command != "ping" || out.Args != "now" {
		t.Errorf("Expected ping dispatch, got %+v", out)
	}

	out = f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "!mute @x"})
	if out.Kind != domain.OutcomeAccessDenied || out.Command != "mute" {
		t.Errorf("Expected denial for mute, got %+v", out)
	}

	f.chat.chatAdmins["c1|admin-1"] = true
	out = f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "admin-1", Text: "!mute @x"})
	if out.Kind != domain.OutcomeDispatched {
		t.Errorf("Expected chat admin to dispatch mute, got %v", out.Kind)
	}
}

func TestPipeline_LongestPrefixWins(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	err := f.config.Update(ctx, func(cfg *domain.BotConfig) error {
		cfg.CommandPrefixes = []string{"!", "!!"}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	out := f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "!!ping"})
	if out.Kind != domain.OutcomeDispatched || out.Command != "ping" {
		t.Errorf("Expected longest prefix to strip fully, got %+v", out)
	}
}

func TestPipeline_DirectMessageNeedsNoPrefix(t *testing.T) {
	f := newPipelineFixture(t)

	out := f.process(t, &domain.InboundMessage{ChatID: "dm1", UserID: "u1", Text: "ping", DM: true})
	if out.Kind != domain.OutcomeDispatched || out.Command != "ping" {
		t.Errorf("Expected bare command in DM to dispatch, got %+v", out)
	}

	out = f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "ping"})
	if out.Kind != domain.OutcomeNoMatch {
		t.Errorf("Expected bare text in a chat to be scanned, got %v", out.Kind)
	}
}

func TestPipeline_UnknownCommand(t *testing.T) {
	f := newPipelineFixture(t)

	out := f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "!frobnicate"})
	if out.Kind != domain.OutcomeUnknownCommand || out.Command != "frobnicate" {
		t.Errorf("Expected unknown command outcome, got %+v", out)
	}
}

func TestPipeline_BarePrefixIsNotScanned(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	err := f.watch.Update(ctx, "watcher", func(w *domain.KeywordWatch) error {
		w.Keywords = append(w.Keywords, domain.Keyword{Text: "!"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	longAgo := time.Now().Add(-time.Hour)
	f.chat.users["watcher"] = &domain.User{ID: "watcher", Presence: domain.PresenceAway, LastActivity: longAgo}

	// A prefix match commits to the command path even with nothing after it
	out := f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "!"})
	if out.Kind != domain.OutcomeUnknownCommand {
		t.Errorf("Expected a bare prefix to stay on the command path, got %+v", out)
	}
}

func TestPipeline_AliasExpansionAndCycle(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	err := f.config.Update(ctx, func(cfg *domain.BotConfig) error {
		cfg.Aliases = []domain.Alias{
			{From: "p", To: "ping"},
			{From: "loop", To: "loop"},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	out := f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "!p now"})
	if out.Kind != domain.OutcomeDispatched || out.Command != "ping" || out.Args != "now" {
		t.Errorf("Expected alias to expand to ping, got %+v", out)
	}

	out = f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "!loop"})
	if out.Kind != domain.OutcomeAliasCycle {
		t.Fatalf("Expected alias cycle outcome, got %+v", out)
	}
	if len(out.AliasChain) == 0 || out.AliasChain[0] != "loop" {
		t.Errorf("Expected chain naming loop, got %v", out.AliasChain)
	}
}

func TestPipeline_KeywordNotificationFilter(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	users := []string{"author", "away", "available", "active", "outsider", "suppressed"}
	for _, id := range users {
		err := f.watch.Update(ctx, id, func(w *domain.KeywordWatch) error {
			w.Keywords = append(w.Keywords, domain.Keyword{Text: "printer"})
			if id == "suppressed" {
				w.SuppressedUntil = time.Now().Add(time.Hour)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Update %s failed: %v", id, err)
		}
	}

	longAgo := time.Now().Add(-time.Hour)
	f.chat.users["away"] = &domain.User{ID: "away", Presence: domain.PresenceAway, LastActivity: longAgo}
	f.chat.users["available"] = &domain.User{ID: "available", Presence: domain.PresenceAvailable, LastActivity: longAgo}
	f.chat.users["active"] = &domain.User{ID: "active", Presence: domain.PresenceAway, LastActivity: time.Now()}
	f.chat.users["outsider"] = &domain.User{ID: "outsider", Presence: domain.PresenceAway, LastActivity: longAgo}
	f.chat.users["suppressed"] = &domain.User{ID: "suppressed", Presence: domain.PresenceAway, LastActivity: longAgo}
	f.chat.members["c1|outsider"] = false

	out := f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "author", Text: "the printer is on fire"})
	if out.Kind != domain.OutcomeKeywordMatches {
		t.Fatalf("Expected keyword matches, got %+v", out)
	}
	if len(out.Matches) != 1 || out.Matches[0].UserID != "away" {
		t.Errorf("Expected only the away user to be notified, got %v", out.Matches)
	}
}

func TestPipeline_CommandTextIsNotScanned(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	err := f.watch.Update(ctx, "watcher", func(w *domain.KeywordWatch) error {
		w.Keywords = append(w.Keywords, domain.Keyword{Text: "ping"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	longAgo := time.Now().Add(-time.Hour)
	f.chat.users["watcher"] = &domain.User{ID: "watcher", Presence: domain.PresenceAway, LastActivity: longAgo}

	out := f.process(t, &domain.InboundMessage{ChatID: "c1", UserID: "u1", Text: "!ping"})
	if out.Kind != domain.OutcomeDispatched {
		t.Errorf("Expected command text to dispatch, not notify, got %+v", out)
	}
}
