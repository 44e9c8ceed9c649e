package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkcontact "github.com/larksuite/oapi-sdk-go/v3/service/contact/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// Message represents a received Feishu message
type Message struct {
	ChatID      string
	ChatType    string // "p2p" or "group"
	MsgID       string
	MsgType     string
	Content     string
	CreateTime  int64 // milliseconds Unix timestamp
	Sender      *Sender
	Mentions    []string // open_ids of mentioned users
	MentionsBot bool
	MentionMap  map[string]string // mention key (@_user_1) -> display name
}

// Sender represents the message sender
type Sender struct {
	SenderID   string
	SenderType string
}

// ChatMember represents a member in a chat
type ChatMember struct {
	MemberID string
	Name     string
}

// ChatInfo represents information about a chat
type ChatInfo struct {
	ChatID  string
	Name    string
	OwnerID string
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	apiBase   string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	ctx       context.Context
	cancel    context.CancelFunc
	botOpenID string
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		apiBase:   "https://open.feishu.cn",
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// BotOpenID returns the bot's own open_id once Start has connected.
func (c *Client) BotOpenID() string {
	return c.botOpenID
}

// Start connects to Feishu via WebSocket and starts listening for messages
func (c *Client) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.larkCli = lark.NewClient(c.appID, c.appSecret)

	// The bot must know its own open_id to filter self-mentions and to stop
	// anyone from muting it
	if err := c.fetchBotOpenID(); err != nil {
		fmt.Printf("[Feishu] Warning: failed to fetch bot open_id: %v\n", err)
	}

	// Register event handler
	// Note: Must return quickly so SDK can send ACK, otherwise Feishu will retry due to timeout
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	fmt.Println("[Feishu] Starting WebSocket connection...")

	// Start WebSocket (blocking)
	return c.wsCli.Start(c.ctx)
}

// fetchBotOpenID resolves the bot's own open_id via the bot info endpoint,
// which the SDK does not wrap.
func (c *Client) fetchBotOpenID() error {
	tokenReq := fmt.Sprintf(`{"app_id":%q,"app_secret":%q}`, c.appID, c.appSecret)
	tokenResp, err := http.Post(
		c.apiBase+"/open-apis/auth/v3/tenant_access_token/internal",
		"application/json",
		strings.NewReader(tokenReq),
	)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	defer tokenResp.Body.Close()

	var tokenResult struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if err := json.NewDecoder(tokenResp.Body).Decode(&tokenResult); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	if tokenResult.Code != 0 {
		return fmt.Errorf("token error: %s", tokenResult.Msg)
	}

	req, _ := http.NewRequest("GET", c.apiBase+"/open-apis/bot/v3/info", nil)
	req.Header.Set("Authorization", "Bearer "+tokenResult.TenantAccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	defer resp.Body.Close()

	var botResult struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Bot  struct {
			OpenID  string `json:"open_id"`
			AppName string `json:"app_name"`
		} `json:"bot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&botResult); err != nil {
		return fmt.Errorf("decode bot info: %w", err)
	}
	if botResult.Code != 0 {
		return fmt.Errorf("API error: %s", botResult.Msg)
	}

	c.botOpenID = botResult.Bot.OpenID
	fmt.Printf("[Feishu] Bot open_id: %s (name=%s)\n", c.botOpenID, botResult.Bot.AppName)
	return nil
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// handleMessage processes incoming Feishu messages
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	rawMsg := event.Event.Message
	if rawMsg == nil {
		return
	}

	// Ignore the bot's own messages to prevent loops
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil {
		if *event.Event.Sender.SenderType == "app" {
			return
		}
	}

	msg := &Message{
		ChatID:  *rawMsg.ChatId,
		MsgID:   *rawMsg.MessageId,
		MsgType: *rawMsg.MessageType,
	}
	if rawMsg.ChatType != nil {
		msg.ChatType = *rawMsg.ChatType
	}
	if rawMsg.CreateTime != nil {
		if ts, err := strconv.ParseInt(*rawMsg.CreateTime, 10, 64); err == nil {
			msg.CreateTime = ts
		}
	}
	if event.Event.Sender != nil {
		msg.Sender = &Sender{}
		if event.Event.Sender.SenderId != nil && event.Event.Sender.SenderId.OpenId != nil {
			msg.Sender.SenderID = *event.Event.Sender.SenderId.OpenId
		}
		if event.Event.Sender.SenderType != nil {
			msg.Sender.SenderType = *event.Event.Sender.SenderType
		}
	}

	msg.MentionMap = make(map[string]string)
	for _, mention := range rawMsg.Mentions {
		if mention.Id != nil && mention.Id.OpenId != nil {
			openID := *mention.Id.OpenId
			msg.Mentions = append(msg.Mentions, openID)
			if openID == c.botOpenID {
				msg.MentionsBot = true
			}
		}
		if mention.Key != nil && mention.Name != nil {
			msg.MentionMap[*mention.Key] = *mention.Name
		}
	}

	switch msg.MsgType {
	case "text":
		msg.Content = parseTextContent(*rawMsg.Content, msg.MentionMap)
	case "post":
		msg.Content = parsePostContent(*rawMsg.Content, msg.MentionMap)
	default:
		// Other message types carry nothing to match or dispatch
		return
	}

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// parseTextContent extracts text from a text message and replaces mention
// placeholders (@_user_1) with real names
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent flattens a rich text message into plain text
func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, line := range parsed.Content {
		var parts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text":
				if elem.Text != "" {
					parts = append(parts, elem.Text)
				}
			case "at":
				if elem.UserID != "" {
					if name, ok := mentionMap[elem.UserID]; ok {
						parts = append(parts, "@"+name)
					} else {
						parts = append(parts, "@"+elem.UserID)
					}
				}
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, ""))
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentionMap)
}

// replaceMentions replaces mention placeholders (@_user_1, @_user_2, etc.) with real names
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

// SendText sends a text message to a chat
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	return c.send(ctx, larkim.ReceiveIdTypeChatId, chatID, text)
}

// SendTextToUser sends a private text message to a user by open_id
func (c *Client) SendTextToUser(ctx context.Context, openID, text string) error {
	return c.send(ctx, larkim.ReceiveIdTypeOpenId, openID, text)
}

func (c *Client) send(ctx context.Context, receiveIDType, receiveID, text string) error {
	contentJSON, _ := json.Marshal(map[string]string{"text": text})

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}
	return nil
}

// DeleteMessage recalls a message by id
func (c *Client) DeleteMessage(ctx context.Context, msgID string) error {
	req := larkim.NewDeleteMessageReqBuilder().
		MessageId(msgID).
		Build()

	resp, err := c.larkCli.Im.Message.Delete(ctx, req)
	if err != nil {
		return fmt.Errorf("delete message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("delete message error: %s", resp.Msg)
	}
	return nil
}

// GetUserName retrieves a user's display name by open_id
func (c *Client) GetUserName(ctx context.Context, openID string) (string, error) {
	req := larkcontact.NewGetUserReqBuilder().
		UserId(openID).
		UserIdType("open_id").
		Build()

	resp, err := c.larkCli.Contact.User.Get(ctx, req)
	if err != nil {
		return "", fmt.Errorf("get user failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("get user error: %s", resp.Msg)
	}
	if resp.Data.User == nil || resp.Data.User.Name == nil {
		return "", fmt.Errorf("user %s has no name", openID)
	}
	return *resp.Data.User.Name, nil
}

// GetChatMembers retrieves all members of a chat, following pagination
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]*ChatMember, error) {
	var members []*ChatMember
	var pageToken string

	for {
		reqBuilder := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("get chat members error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			member := &ChatMember{}
			if item.MemberId != nil {
				member.MemberID = *item.MemberId
			}
			if item.Name != nil {
				member.Name = *item.Name
			}
			members = append(members, member)
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}
	return members, nil
}

// GetChatAdmins retrieves the open_ids of a chat's owner and managers
func (c *Client) GetChatAdmins(ctx context.Context, chatID string) ([]string, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat error: %s", resp.Msg)
	}

	var admins []string
	if resp.Data.OwnerId != nil && *resp.Data.OwnerId != "" {
		admins = append(admins, *resp.Data.OwnerId)
	}
	// The owner may also appear in the manager list
	for _, id := range resp.Data.UserManagerIdList {
		if id == "" {
			continue
		}
		duplicate := false
		for _, existing := range admins {
			if existing == id {
				duplicate = true
				break
			}
		}
		if !duplicate {
			admins = append(admins, id)
		}
	}
	return admins, nil
}

// GetChatInfo retrieves information about a chat
func (c *Client) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat info error: %s", resp.Msg)
	}

	info := &ChatInfo{ChatID: chatID}
	if resp.Data.Name != nil {
		info.Name = *resp.Data.Name
	}
	if resp.Data.OwnerId != nil {
		info.OwnerID = *resp.Data.OwnerId
	}
	return info, nil
}

// FindChatByName searches the bot's chats for one with the given name.
// Name matching is exact and case-sensitive.
func (c *Client) FindChatByName(ctx context.Context, name string) (string, error) {
	return c.findChat(ctx, name, func(a, b string) bool { return a == b })
}

// FindChatByNameFold is the case-insensitive variant, used for nickname
// lookups.
func (c *Client) FindChatByNameFold(ctx context.Context, name string) (string, error) {
	return c.findChat(ctx, name, strings.EqualFold)
}

func (c *Client) findChat(ctx context.Context, name string, match func(a, b string) bool) (string, error) {
	var pageToken string
	for {
		reqBuilder := larkim.NewListChatReqBuilder().PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.Chat.List(ctx, reqBuilder.Build())
		if err != nil {
			return "", fmt.Errorf("list chats failed: %w", err)
		}
		if !resp.Success() {
			return "", fmt.Errorf("list chats error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			if item.Name != nil && match(*item.Name, name) && item.ChatId != nil {
				return *item.ChatId, nil
			}
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			return "", fmt.Errorf("no chat named %q", name)
		}
		pageToken = *resp.Data.PageToken
	}
}

// FindUserByEmail resolves an email address to an open_id
func (c *Client) FindUserByEmail(ctx context.Context, email string) (string, error) {
	req := larkcontact.NewBatchGetIdUserReqBuilder().
		UserIdType("open_id").
		Body(larkcontact.NewBatchGetIdUserReqBodyBuilder().
			Emails([]string{email}).
			Build()).
		Build()

	resp, err := c.larkCli.Contact.User.BatchGetId(ctx, req)
	if err != nil {
		return "", fmt.Errorf("lookup user failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("lookup user error: %s", resp.Msg)
	}
	for _, item := range resp.Data.UserList {
		if item.UserId != nil && *item.UserId != "" {
			return *item.UserId, nil
		}
	}
	return "", fmt.Errorf("no user with email %q", email)
}
