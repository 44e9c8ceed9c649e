package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frc6135/orgbot/internal/biz/domain"
	"github.com/frc6135/orgbot/internal/biz/repo"
)

// CommandInfo describes a registered command for authorization purposes.
type CommandInfo struct {
	Name  string
	Level domain.AccessLevel
}

// Registry resolves command names to registered commands.
type Registry interface {
	Lookup(name string) (CommandInfo, bool)
}

// PipelineUsecase classifies every inbound message into exactly one outcome:
// moderation suppression, command dispatch (or denial), or keyword scan.
type PipelineUsecase struct {
	config     *ConfigUsecase
	watch      *WatchUsecase
	access     *AccessUsecase
	moderation *domain.ModerationTable
	registry   Registry
	chatRepo   repo.ChatRepo

	now func() time.Time
}

// NewPipelineUsecase creates the message pipeline.
func NewPipelineUsecase(
	config *ConfigUsecase,
	watch *WatchUsecase,
	access *AccessUsecase,
	moderation *domain.ModerationTable,
	registry Registry,
	chatRepo repo.ChatRepo,
) *PipelineUsecase {
	return &PipelineUsecase{
		config:     config,
		watch:      watch,
		access:     access,
		moderation: moderation,
		registry:   registry,
		chatRepo:   chatRepo,
		now:        time.Now,
	}
}

// Process runs one message through the pipeline. The moderation gate runs
// first so muted users cannot run commands or trigger notifications; commands
// are checked before keyword scanning so command text never notifies anyone.
func (uc *PipelineUsecase) Process(ctx context.Context, msg *domain.InboundMessage) (*domain.Outcome, error) {
	cfg := uc.config.Snapshot()
	out := &domain.Outcome{ChatID: msg.ChatID, UserID: msg.UserID}

	if uc.moderation.Suppressed(msg.ChatID, msg.UserID) {
		out.Kind = domain.OutcomeSuppressed
		return out, nil
	}
	if cfg.IsReadOnly(msg.ChatID) && !cfg.MayPostReadOnly(msg.ChatID, msg.UserID) {
		out.Kind = domain.OutcomeSuppressed
		out.Notify = true
		return out, nil
	}

	if command, ok := commandText(msg, cfg.CommandPrefixes); ok {
		return uc.processCommand(ctx, msg, cfg, command, out)
	}
	return uc.processScan(ctx, msg, out)
}

func (uc *PipelineUsecase) processCommand(ctx context.Context, msg *domain.InboundMessage, cfg *domain.BotConfig, command string, out *domain.Outcome) (*domain.Outcome, error) {
	name, args, err := domain.ExpandAliases(command, cfg.Aliases)
	if err != nil {
		var cycle *domain.AliasCycleError
		if errors.As(err, &cycle) {
			out.Kind = domain.OutcomeAliasCycle
			out.AliasChain = cycle.Chain
			return out, nil
		}
		return nil, err
	}
	out.Command = name
	out.Args = args

	info, ok := uc.registry.Lookup(name)
	if !ok {
		out.Kind = domain.OutcomeUnknownCommand
		return out, nil
	}
	allowed, err := uc.access.Authorize(ctx, info.Name, info.Level, msg.ChatID, msg.UserID)
	if err != nil {
		return nil, fmt.Errorf("authorize %s: %w", info.Name, err)
	}
	if !allowed {
		out.Kind = domain.OutcomeAccessDenied
		return out, nil
	}
	out.Kind = domain.OutcomeDispatched
	return out, nil
}

func (uc *PipelineUsecase) processScan(ctx context.Context, msg *domain.InboundMessage, out *domain.Outcome) (*domain.Outcome, error) {
	matches := uc.watch.Scan(msg.Text)
	now := uc.now()

	var notify []domain.KeywordMatch
	for _, match := range matches {
		if match.UserID == msg.UserID {
			continue
		}
		watch := uc.watch.Get(match.UserID)
		if watch.Suppressed(now) {
			continue
		}
		user, err := uc.chatRepo.GetUser(ctx, match.UserID)
		if err != nil {
			fmt.Printf("[Pipeline] Skipping notification for %s: %v\n", match.UserID, err)
			continue
		}
		// A user reading the chat does not need a ping about it.
		if user.Presence == domain.PresenceAvailable {
			continue
		}
		timeout := watch.ActivityTimeout
		if timeout <= 0 {
			timeout = domain.DefaultActivityTimeout
		}
		if !user.LastActivity.IsZero() && now.Sub(user.LastActivity) < timeout {
			continue
		}
		member, err := uc.chatRepo.IsChatMember(ctx, msg.ChatID, match.UserID)
		if err != nil {
			fmt.Printf("[Pipeline] Skipping notification for %s: %v\n", match.UserID, err)
			continue
		}
		if !member {
			continue
		}
		notify = append(notify, match)
	}

	if len(notify) == 0 {
		out.Kind = domain.OutcomeNoMatch
		return out, nil
	}
	out.Kind = domain.OutcomeKeywordMatches
	out.Matches = notify
	return out, nil
}

// commandText extracts the prefix-stripped command line from a message. In a
// direct message no prefix is required; elsewhere the longest matching prefix
// wins so overlapping prefixes resolve deterministically. A prefix match
// always takes the command path: a bare prefix yields an empty command line,
// never a keyword scan.
func commandText(msg *domain.InboundMessage, prefixes []string) (string, bool) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return "", false
	}
	best := -1
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(text, prefix) && len(prefix) > best {
			best = len(prefix)
		}
	}
	if best >= 0 {
		return strings.TrimSpace(text[best:]), true
	}
	if msg.DM {
		return text, true
	}
	return "", false
}
