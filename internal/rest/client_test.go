package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matheus3301/chatsync/internal/credentials"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, credentials.Static("tok"), nil, nil)
}

func TestListChatsSkipsUndecodable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		if r.URL.Path != "/chats" {
			t.Errorf("path = %s, want /chats", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true,"chats":[
			{"_id":"c1","participants":[{"_id":"u1","name":"Ana"},{"_id":"u2","name":"Bruno"}],"unreadCount":{"u1":2}},
			{"_id":42},
			{"_id":"c2","participants":[]}
		]}`))
	})

	chats, err := c.ListChats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2 (undecodable skipped, invalid kept for the store)", len(chats))
	}
	if chats[0].Unread("u1") != 2 {
		t.Errorf("unread = %d, want 2", chats[0].Unread("u1"))
	}
}

func TestListMessagesPage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/c1/messages" || r.URL.Query().Get("page") != "2" {
			t.Errorf("url = %s", r.URL)
		}
		_, _ = w.Write([]byte(`{"success":true,"messages":[
			{"_id":"m1","chatId":"c1","sender":{"_id":"u2","name":"Bruno"},"content":"hi","createdAt":"2026-01-02T15:04:05Z","readBy":["u2"]}
		]}`))
	})

	msgs, err := c.ListMessages(context.Background(), "c1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m1" || msgs[0].Sender.ID != "u2" {
		t.Errorf("got %+v", msgs)
	}
}

func TestCreateChat(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["userId"] != "u2" {
			t.Errorf("userId = %q", body["userId"])
		}
		_, _ = w.Write([]byte(`{"success":true,"chat":{"_id":"c9","participants":[{"_id":"u1"},{"_id":"u2"}]}}`))
	})

	chat, err := c.CreateChat(context.Background(), "u2")
	if err != nil {
		t.Fatal(err)
	}
	if chat.ID != "c9" {
		t.Errorf("id = %q, want c9", chat.ID)
	}
}

func TestUnauthorizedIsFatal(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"jwt expired"}`))
	})

	_, err := c.ListChats(context.Background())
	if !errors.Is(err, ErrUnauthorized) || !IsFatal(err) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("err = %#v, want RequestError with 401", err)
	}
}

func TestServerErrorIsRetryable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ListMessages(context.Background(), "c1", 1)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want RequestError", err)
	}
	if !reqErr.Retryable() || IsFatal(err) {
		t.Errorf("502 should be retryable and not fatal")
	}
}

func TestOnlyUnauthorizedIsFatal(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"success":false,"message":"nope"}`))
		})

		_, err := c.CreateChat(context.Background(), "u9")
		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.StatusCode != code {
			t.Fatalf("%d: err = %v, want RequestError", code, err)
		}
		if IsFatal(err) || !reqErr.Retryable() {
			t.Errorf("%d: fatal = %v, retryable = %v; want a retryable request error", code, IsFatal(err), reqErr.Retryable())
		}
	}
}

func TestUnsuccessfulEnvelope(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"chat not found"}`))
	})

	_, err := c.ListMessages(context.Background(), "missing", 1)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Message != "chat not found" {
		t.Errorf("err = %v, want chat not found", err)
	}
}

func TestMissingTokenIsFatal(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", credentials.Static(""), nil, nil)
	_, err := c.ListChats(context.Background())
	if !IsFatal(err) {
		t.Errorf("err = %v, want fatal", err)
	}
}
