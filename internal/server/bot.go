package server

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frc6135/orgbot/internal/biz/domain"
	"github.com/frc6135/orgbot/internal/biz/repo"
	"github.com/frc6135/orgbot/internal/biz/usecase"
	"github.com/frc6135/orgbot/internal/conf"
	"github.com/frc6135/orgbot/internal/infra/feishu"
	"github.com/frc6135/orgbot/internal/service"
)

// BotServer connects the Feishu client to the message pipeline.
type BotServer struct {
	feishuClient *feishu.Client
	pipeline     *usecase.PipelineUsecase
	registry     *service.Registry
	chatRepo     repo.ChatRepo
	config       *usecase.ConfigUsecase
	messages     *conf.MessagesConfig

	// Message deduplication cache
	seenMsgsMu sync.RWMutex
	seenMsgs   map[string]time.Time // msgID -> timestamp
}

// NewBotServer creates a new bot server
func NewBotServer(
	feishuClient *feishu.Client,
	pipeline *usecase.PipelineUsecase,
	registry *service.Registry,
	chatRepo repo.ChatRepo,
	config *usecase.ConfigUsecase,
	messages *conf.MessagesConfig,
) *BotServer {
	return &BotServer{
		feishuClient: feishuClient,
		pipeline:     pipeline,
		registry:     registry,
		chatRepo:     chatRepo,
		config:       config,
		messages:     messages,
		seenMsgs:     make(map[string]time.Time),
	}
}

// Start sets the message handler and starts the Feishu client (blocking)
func (s *BotServer) Start() error {
	s.feishuClient.OnMessage(s.handleMessage)
	return s.feishuClient.Start()
}

// Stop stops the server
func (s *BotServer) Stop() {
	s.feishuClient.Stop()
}

// handleMessage runs one Feishu message through the pipeline and acts on the
// outcome.
func (s *BotServer) handleMessage(msg *feishu.Message) {
	if s.isMessageSeen(msg.MsgID) {
		fmt.Printf("[Server] Duplicate message ignored: %s\n", msg.MsgID)
		return
	}
	s.markMessageSeen(msg.MsgID)

	if msg.Sender == nil || msg.Sender.SenderID == "" {
		return
	}
	senderID := msg.Sender.SenderID

	ctx := context.Background()
	sentAt := time.UnixMilli(msg.CreateTime)
	if msg.CreateTime == 0 {
		sentAt = time.Now()
	}

	inbound := &domain.InboundMessage{
		ChatID: msg.ChatID,
		UserID: senderID,
		MsgID:  msg.MsgID,
		Text:   msg.Content,
		Time:   sentAt,
		DM:     msg.ChatType == "p2p",
	}

	out, err := s.pipeline.Process(ctx, inbound)
	if err != nil {
		fmt.Printf("[Server] Pipeline error for %s: %v\n", msg.MsgID, err)
		return
	}
	// The sender was demonstrably active just now. Recorded after processing
	// so the activity filter judged this message against their previous state.
	s.chatRepo.NoteActivity(senderID, sentAt)

	switch out.Kind {
	case domain.OutcomeSuppressed:
		s.suppress(ctx, msg, out)
	case domain.OutcomeDispatched:
		s.dispatch(ctx, msg, out)
	case domain.OutcomeAccessDenied:
		s.reply(ctx, msg.ChatID, s.denialMessage())
	case domain.OutcomeAliasCycle:
		s.reply(ctx, msg.ChatID, s.messages.AliasCycle+"recursive alias: "+strings.Join(out.AliasChain, " -> "))
	case domain.OutcomeUnknownCommand:
		s.reply(ctx, msg.ChatID, s.messages.UnknownCommand)
	case domain.OutcomeKeywordMatches:
		s.notifyWatchers(ctx, msg, out)
	case domain.OutcomeNoMatch:
	}
}

// suppress removes the offending message. Read-only violations also tell the
// author privately why; mutes and timeouts stay silent.
func (s *BotServer) suppress(ctx context.Context, msg *feishu.Message, out *domain.Outcome) {
	if err := s.chatRepo.DeleteMessage(ctx, msg.MsgID); err != nil {
		fmt.Printf("[Server] Failed to delete message %s: %v\n", msg.MsgID, err)
	}
	if !out.Notify {
		return
	}
	chatName, err := s.chatRepo.ChatName(ctx, msg.ChatID)
	if err != nil {
		chatName = msg.ChatID
	}
	notice := s.messages.FormatReadOnlyNotice(chatName)
	if err := s.chatRepo.SendPrivateMessage(ctx, out.UserID, notice); err != nil {
		fmt.Printf("[Server] Failed to notify %s: %v\n", out.UserID, err)
	}
}

// dispatch runs the command in its own goroutine so a slow handler never
// stalls the receive loop.
func (s *BotServer) dispatch(ctx context.Context, msg *feishu.Message, out *domain.Outcome) {
	req := &service.Request{
		ChatID:   msg.ChatID,
		UserID:   out.UserID,
		MsgID:    msg.MsgID,
		Args:     out.Args,
		Mentions: s.userMentions(msg),
		DM:       msg.ChatType == "p2p",
	}
	dispatchID := uuid.NewString()
	fmt.Printf("[Server] Dispatch %s: %s from %s in %s\n", dispatchID, out.Command, out.UserID, out.ChatID)

	go func() {
		reply, err := s.registry.Dispatch(ctx, out.Command, req)
		if err != nil {
			fmt.Printf("[Server] Dispatch %s failed: %v\n", dispatchID, err)
			s.reply(ctx, msg.ChatID, "Something went wrong running that command.")
			return
		}
		if reply != "" {
			s.reply(ctx, msg.ChatID, reply)
		}
	}()
}

// notifyWatchers sends a private notification for every surviving match.
func (s *BotServer) notifyWatchers(ctx context.Context, msg *feishu.Message, out *domain.Outcome) {
	chatName, err := s.chatRepo.ChatName(ctx, msg.ChatID)
	if err != nil {
		chatName = msg.ChatID
	}
	for _, match := range out.Matches {
		notice := s.messages.FormatKeywordNotice(match.Keyword, chatName, msg.Content)
		if err := s.chatRepo.SendPrivateMessage(ctx, match.UserID, notice); err != nil {
			fmt.Printf("[Server] Failed to notify %s about %q: %v\n", match.UserID, match.Keyword, err)
		}
	}
}

// userMentions returns the message's mentioned users, without the bot itself.
func (s *BotServer) userMentions(msg *feishu.Message) []string {
	var mentions []string
	for _, id := range msg.Mentions {
		if id != s.feishuClient.BotOpenID() {
			mentions = append(mentions, id)
		}
	}
	return mentions
}

// denialMessage picks a random denial reply, preferring the pool configured
// at runtime over the messages file.
func (s *BotServer) denialMessage() string {
	pool := s.config.Snapshot().AccessDeniedMessages
	if len(pool) == 0 {
		pool = s.messages.AccessDenied
	}
	if len(pool) == 0 {
		return "Access denied."
	}
	return pool[rand.Intn(len(pool))]
}

func (s *BotServer) reply(ctx context.Context, chatID, text string) {
	if err := s.chatRepo.SendMessage(ctx, chatID, text); err != nil {
		fmt.Printf("[Server] Failed to send reply: %v\n", err)
	}
}

// isMessageSeen checks if a message has been processed
func (s *BotServer) isMessageSeen(msgID string) bool {
	s.seenMsgsMu.RLock()
	defer s.seenMsgsMu.RUnlock()
	_, exists := s.seenMsgs[msgID]
	return exists
}

// markMessageSeen marks a message as processed and prunes old entries
func (s *BotServer) markMessageSeen(msgID string) {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	s.seenMsgs[msgID] = time.Now()
	if len(s.seenMsgs) > 10000 {
		cutoff := time.Now().Add(-time.Hour)
		for id, seen := range s.seenMsgs {
			if seen.Before(cutoff) {
				delete(s.seenMsgs, id)
			}
		}
	}
}
