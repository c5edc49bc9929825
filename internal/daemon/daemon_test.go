package daemon

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/client"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/devserver"
	"github.com/matheus3301/chatsync/internal/session"
	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

var (
	ana   = store.Participant{ID: "u1", Name: "Ana"}
	bruno = store.Participant{ID: "u2", Name: "Bruno"}
)

type testDaemon struct {
	backend *devserver.Server
	client  *client.Client
	chatID  string
}

// startDaemon runs the full fx graph against an in-memory backend. The base
// directory lives under /tmp to stay below the 104-char Unix socket limit on
// macOS.
func startDaemon(t *testing.T, writeToken bool) *testDaemon {
	t.Helper()
	base, err := os.MkdirTemp("/tmp", "chatsync-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(base) })
	t.Setenv(session.HomeEnv, base)

	backend := devserver.New(nil)
	backend.AddUser("ana-token", ana)
	backend.AddUser("bruno-token", bruno)
	chat := backend.SeedChat(ana, bruno)
	if _, err := backend.Say(chat.ID, bruno.ID, "hello ana"); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	tokenFile := filepath.Join(base, "token")
	if writeToken {
		if err := os.WriteFile(tokenFile, []byte("ana-token\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	socketPath := filepath.Join(base, "d.sock")
	settings := &config.Profile{
		APIURL:            ts.URL,
		SocketURL:         "ws" + strings.TrimPrefix(ts.URL, "http") + "/socket",
		UserID:            ana.ID,
		UserName:          ana.Name,
		TokenFile:         tokenFile,
		ReconnectAttempts: 3,
		ReconnectDelay:    config.Duration{Duration: 20 * time.Millisecond},
	}

	app := fx.New(
		Module(Params{ProfileName: "test", SocketPath: socketPath, Settings: settings, Logger: zap.NewNop()}),
		fx.NopLogger,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("app.Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Stop(ctx)
	})

	c, err := client.New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return &testDaemon{backend: backend, client: c, chatID: chat.ID}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func waitState(t *testing.T, c *client.Client, want status.State) {
	t.Helper()
	eventually(t, "state "+string(want), func() bool {
		resp, err := c.Session.GetStatus(context.Background(), &apiv1.GetStatusRequest{})
		return err == nil && resp.State == string(want)
	})
}

func TestDaemonLifecycle(t *testing.T) {
	d := startDaemon(t, true)
	ctx := context.Background()
	waitState(t, d.client, status.Connected)

	st, err := d.client.Session.GetStatus(ctx, &apiv1.GetStatusRequest{})
	if err != nil {
		t.Fatalf("GetStatus error = %v", err)
	}
	if st.Profile != "test" || st.UserID != ana.ID || st.ChatCount != 1 {
		t.Errorf("status = %+v", st)
	}

	chats, err := d.client.Chat.ListChats(ctx, &apiv1.ListChatsRequest{})
	if err != nil {
		t.Fatalf("ListChats error = %v", err)
	}
	if len(chats.Chats) != 1 || chats.Chats[0].Peer.ID != bruno.ID || chats.Chats[0].UnreadCount != 1 {
		t.Fatalf("chats = %+v", chats.Chats)
	}

	page, err := d.client.Message.OpenChat(ctx, &apiv1.OpenChatRequest{ChatID: d.chatID})
	if err != nil {
		t.Fatalf("OpenChat error = %v", err)
	}
	if len(page.Messages) != 1 || page.HasMore || page.Page != 1 {
		t.Errorf("page = %+v", page)
	}

	sent, err := d.client.Message.SendText(ctx, &apiv1.SendTextRequest{ChatID: d.chatID, Text: "hi bruno"})
	if err != nil {
		t.Fatalf("SendText error = %v", err)
	}
	if !sent.Sent || !sent.Message.Pending {
		t.Errorf("send = %+v, want an optimistic message that went out", sent)
	}

	eventually(t, "confirmed message", func() bool {
		resp, err := d.client.Message.ListMessages(ctx, &apiv1.ListMessagesRequest{ChatID: d.chatID})
		if err != nil || len(resp.Messages) != 2 {
			return false
		}
		last := resp.Messages[1]
		return !last.Pending && last.Content == "hi bruno"
	})

	eventually(t, "archived search hit", func() bool {
		resp, err := d.client.Message.Search(ctx, &apiv1.SearchRequest{Query: "bruno"})
		return err == nil && len(resp.Results) == 1
	})

	archived, err := d.client.Message.ListMessages(ctx, &apiv1.ListMessagesRequest{ChatID: d.chatID, Archived: true})
	if err != nil {
		t.Fatalf("archived ListMessages error = %v", err)
	}
	if len(archived.Messages) != 2 {
		t.Errorf("archived = %d messages, want 2", len(archived.Messages))
	}
}

func TestDaemonValidation(t *testing.T) {
	d := startDaemon(t, true)
	ctx := context.Background()
	waitState(t, d.client, status.Connected)

	_, err := d.client.Message.SendText(ctx, &apiv1.SendTextRequest{ChatID: d.chatID, Text: "  "})
	if grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("blank send code = %v, want InvalidArgument", grpcstatus.Code(err))
	}
	_, err = d.client.Message.OpenChat(ctx, &apiv1.OpenChatRequest{ChatID: "nope"})
	if grpcstatus.Code(err) != codes.NotFound {
		t.Errorf("unknown chat code = %v, want NotFound", grpcstatus.Code(err))
	}
	_, err = d.client.Chat.StartChat(ctx, &apiv1.StartChatRequest{UserID: "ghost"})
	if code := grpcstatus.Code(err); code != codes.NotFound && code != codes.InvalidArgument {
		t.Errorf("unknown peer code = %v", code)
	}
}

func TestWatchEvents(t *testing.T) {
	d := startDaemon(t, true)
	waitState(t, d.client, status.Connected)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := d.client.Chat.WatchEvents(ctx, &apiv1.WatchEventsRequest{Namespace: "message.", ChatID: d.chatID})
	if err != nil {
		t.Fatal(err)
	}

	// The subscription is registered once the handler runs; keep talking
	// until the stream picks something up.
	go func() {
		for ctx.Err() == nil {
			_, _ = d.backend.Say(d.chatID, bruno.ID, "ping")
			time.Sleep(50 * time.Millisecond)
		}
	}()

	evt, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv error = %v", err)
	}
	if evt.Kind != "message.confirmed" || evt.ChatID != d.chatID || evt.Profile != "test" || len(evt.Payload) == 0 {
		t.Errorf("event = %+v", evt)
	}
}

func TestReconnectRestoresSession(t *testing.T) {
	d := startDaemon(t, true)
	ctx := context.Background()
	waitState(t, d.client, status.Connected)

	if _, err := d.client.Session.Reconnect(ctx, &apiv1.ReconnectRequest{}); err != nil {
		t.Fatalf("Reconnect error = %v", err)
	}
	waitState(t, d.client, status.Connected)
	eventually(t, "single room membership", func() bool { return d.backend.Joins(ana.ID) == 1 })
}

// A daemon without a token must still come up and answer status queries;
// the user fixes the token and asks for a reconnect.
func TestMissingTokenKeepsDaemonReachable(t *testing.T) {
	d := startDaemon(t, false)
	ctx := context.Background()

	st, err := d.client.Session.GetStatus(ctx, &apiv1.GetStatusRequest{})
	if err != nil {
		t.Fatalf("GetStatus error = %v", err)
	}
	if st.State != string(status.Disconnected) {
		t.Errorf("state = %s, want DISCONNECTED", st.State)
	}

	_, err = d.client.Session.Reconnect(ctx, &apiv1.ReconnectRequest{})
	if grpcstatus.Code(err) != codes.Unauthenticated {
		t.Errorf("Reconnect code = %v, want Unauthenticated", grpcstatus.Code(err))
	}
}

// TestFxModuleWiring verifies the fx dependency graph resolves without
// running any constructor.
func TestFxModuleWiring(t *testing.T) {
	if err := fx.ValidateApp(Module(Params{ProfileName: "fxtest"}), fx.NopLogger); err != nil {
		t.Fatalf("ValidateApp() error = %v", err)
	}
}
