package feishu

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

func strPtr(s string) *string { return &s }

// newAPIServer serves the token endpoint plus the given extra routes, the
// minimum the SDK needs to complete a call.
func newAPIServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/open-apis/auth/v3/tenant_access_token/internal" {
			fmt.Fprint(w, `{"code":0,"msg":"ok","tenant_access_token":"t-test","expire":7200}`)
			return
		}
		if body, ok := routes[r.URL.Path]; ok {
			fmt.Fprint(w, body)
			return
		}
		http.NotFound(w, r)
	}))
}

func TestClient_FetchBotOpenID(t *testing.T) {
	srv := newAPIServer(t, map[string]string{
		"/open-apis/bot/v3/info": `{"code":0,"msg":"ok","bot":{"open_id":"ou_bot","app_name":"Orgbot"}}`,
	})
	defer srv.Close()

	c := NewClient("app-bot-info", "secret")
	c.apiBase = srv.URL
	if err := c.fetchBotOpenID(); err != nil {
		t.Fatalf("fetchBotOpenID failed: %v", err)
	}
	if c.BotOpenID() != "ou_bot" {
		t.Errorf("Expected bot open_id ou_bot, got %q", c.BotOpenID())
	}
}

func TestClient_HandleMessageRecognizesBotMention(t *testing.T) {
	c := NewClient("app", "secret")
	c.botOpenID = "ou_bot"

	var got *Message
	c.OnMessage(func(msg *Message) { got = msg })

	event := &larkim.P2MessageReceiveV1{
		Event: &larkim.P2MessageReceiveV1Data{
			Sender: &larkim.EventSender{
				SenderId:   &larkim.UserId{OpenId: strPtr("ou_alice")},
				SenderType: strPtr("user"),
			},
			Message: &larkim.EventMessage{
				MessageId:   strPtr("om_1"),
				ChatId:      strPtr("oc_1"),
				ChatType:    strPtr("group"),
				MessageType: strPtr("text"),
				Content:     strPtr(`{"text":"@_user_1 ping"}`),
				Mentions: []*larkim.MentionEvent{
					{Key: strPtr("@_user_1"), Id: &larkim.UserId{OpenId: strPtr("ou_bot")}, Name: strPtr("Orgbot")},
				},
			},
		},
	}
	c.handleMessage(event)

	if got == nil {
		t.Fatal("Expected the message handler to run")
	}
	if !got.MentionsBot {
		t.Error("Expected the bot mention to be recognized")
	}
	if len(got.Mentions) != 1 || got.Mentions[0] != "ou_bot" {
		t.Errorf("Expected the bot open_id in mentions, got %v", got.Mentions)
	}
	if got.Content != "@Orgbot ping" {
		t.Errorf("Expected mention key replaced with the name, got %q", got.Content)
	}
}

func TestClient_GetChatAdminsIncludesManagers(t *testing.T) {
	srv := newAPIServer(t, map[string]string{
		"/open-apis/im/v1/chats/oc_1": `{"code":0,"msg":"success","data":{"name":"General","owner_id":"ou_owner","user_manager_id_list":["ou_mgr","ou_owner"]}}`,
	})
	defer srv.Close()

	c := NewClient("app-chat-admins", "secret")
	c.larkCli = lark.NewClient(c.appID, c.appSecret, lark.WithOpenBaseUrl(srv.URL))

	admins, err := c.GetChatAdmins(context.Background(), "oc_1")
	if err != nil {
		t.Fatalf("GetChatAdmins failed: %v", err)
	}
	if len(admins) != 2 || admins[0] != "ou_owner" || admins[1] != "ou_mgr" {
		t.Errorf("Expected owner and manager without duplicates, got %v", admins)
	}
}

func TestClient_FindChatByNameCaseSensitivity(t *testing.T) {
	srv := newAPIServer(t, map[string]string{
		"/open-apis/im/v1/chats": `{"code":0,"msg":"success","data":{"items":[{"chat_id":"oc_general","name":"General"}],"page_token":"","has_more":false}}`,
	})
	defer srv.Close()

	c := NewClient("app-chat-list", "secret")
	c.larkCli = lark.NewClient(c.appID, c.appSecret, lark.WithOpenBaseUrl(srv.URL))
	ctx := context.Background()

	if _, err := c.FindChatByName(ctx, "general"); err == nil {
		t.Error("Expected exact lookup to miss on different case")
	}
	chatID, err := c.FindChatByNameFold(ctx, "general")
	if err != nil {
		t.Fatalf("FindChatByNameFold failed: %v", err)
	}
	if chatID != "oc_general" {
		t.Errorf("Expected oc_general, got %q", chatID)
	}
}
