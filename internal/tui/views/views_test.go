package views

import (
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/tui/ui"
)

func TestCleanStripsModifiers(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"thumbs \U0001F44D\U0001F3FB", "thumbs \U0001F44D"},
		{"a\u200db", "ab"},
		{"heart \u2764\ufe0f", "heart \u2764"},
		{"bell\x07", "bell"},
		{"two\nlines", "two lines"},
		{"[red]tag", "[red[]tag"},
	}
	for _, tt := range tests {
		if got := clean(tt.in); got != tt.want {
			t.Errorf("clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := cleanBlock("one\ntwo"); got != "one\ntwo" {
		t.Errorf("cleanBlock kept %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)
	if got := formatTimestamp(now.Add(-2*time.Hour).UnixMilli(), now); got != "16:00" {
		t.Errorf("same day = %q", got)
	}
	if got := formatTimestamp(now.AddDate(0, 0, -3).UnixMilli(), now); got != "05/07" {
		t.Errorf("older = %q", got)
	}
	if got := formatTimestamp(0, now); got != "" {
		t.Errorf("zero = %q", got)
	}
}

func TestChatListFilterAndIndex(t *testing.T) {
	cl := NewChatList(ui.DefaultTheme())
	cl.Update([]apiv1.Chat{
		{ID: "c1", Peer: apiv1.Participant{ID: "u2", Name: "Bruno"}, LastMessagePreview: "see you"},
		{ID: "c2", Peer: apiv1.Participant{ID: "u3", Name: "Carol"}, LastMessagePreview: "lunch?", UnreadCount: 2},
	})
	if cl.ChatAt(2) != "c2" || cl.ChatAt(3) != "" {
		t.Errorf("ChatAt = %q, %q", cl.ChatAt(2), cl.ChatAt(3))
	}

	cl.SetFilter("LUNCH")
	if cl.ChatAt(1) != "c2" || cl.ChatAt(2) != "" {
		t.Errorf("filtered ChatAt(1) = %q", cl.ChatAt(1))
	}
	cl.SetFilter("")
	if cl.ChatAt(1) != "c1" {
		t.Errorf("unfiltered ChatAt(1) = %q", cl.ChatAt(1))
	}
}

func TestThreadRenderMarksOwnAndPending(t *testing.T) {
	th := NewThread(ui.DefaultTheme())
	th.SetUser("u1")
	out := th.render([]apiv1.Message{
		{ID: "m1", SenderID: "u2", SenderName: "Bruno", Content: "hi"},
		{ID: "m2", SenderID: "u1", SenderName: "Ana", Content: "hello", ReadBy: []string{"u2"}},
		{ID: "tmp_1", SenderID: "u1", SenderName: "Ana", Content: "still going", Pending: true},
	}, time.Now())

	if !strings.Contains(out, "Bruno") || strings.Contains(out, "Ana") {
		t.Errorf("own messages should read as You:\n%s", out)
	}
	if strings.Count(out, "You") != 2 {
		t.Errorf("want two own messages:\n%s", out)
	}
	if !strings.Contains(out, "sending") || !strings.Contains(out, "read") {
		t.Errorf("missing delivery marks:\n%s", out)
	}
}
