package slackbot

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/slack-go/slack"

	"workpilot/internal/config"
)

type fakeSlack struct {
	mu        sync.Mutex
	posted    map[string][]string
	opened    []string
	userLists int
}

func newFakeSlack(t *testing.T) (*fakeSlack, string) {
	t.Helper()
	f := &fakeSlack{posted: map[string][]string{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()
		switch strings.TrimPrefix(r.URL.Path, "/api/") {
		case "users.list":
			f.userLists++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"members": []map[string]any{
					{"id": "U0LIN00001", "name": "lin", "real_name": "Lin Wei", "profile": map[string]any{"display_name": "小林"}},
				},
			})
		case "conversations.open":
			f.opened = append(f.opened, r.Form.Get("users"))
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": map[string]any{"id": "D_" + r.Form.Get("users")}})
		case "chat.postMessage":
			channel := r.Form.Get("channel")
			f.posted[channel] = append(f.posted[channel], r.Form.Get("text"))
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": channel, "ts": "1.23"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unknown_method"})
		}
	}))
	t.Cleanup(server.Close)
	return f, server.URL + "/api/"
}

func TestNotifyPostsToChannel(t *testing.T) {
	f, url := newFakeSlack(t)
	n := New(config.Config{SlackBotToken: "xoxb-test", SlackChannelID: "C123"}, slack.OptionAPIURL(url))

	if err := n.Notify("hello"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if got := f.posted["C123"]; len(got) != 1 || got[0] != "hello" {
		t.Fatalf("posted = %v", f.posted)
	}
	if len(f.opened) != 0 {
		t.Fatalf("channel delivery must not open a DM, opened %v", f.opened)
	}
}

func TestNotifyResolvesUserNameOnce(t *testing.T) {
	f, url := newFakeSlack(t)
	n := New(config.Config{SlackBotToken: "xoxb-test", SlackUserID: "小林"}, slack.OptionAPIURL(url))

	for i := 0; i < 2; i++ {
		if err := n.Notify("记得写日报"); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
	}
	if f.userLists != 1 {
		t.Fatalf("users.list called %d times, want 1", f.userLists)
	}
	if got := f.posted["D_U0LIN00001"]; len(got) != 2 {
		t.Fatalf("posted = %v", f.posted)
	}
}

func TestNotifyWithSlackIDSkipsLookup(t *testing.T) {
	f, url := newFakeSlack(t)
	n := New(config.Config{SlackBotToken: "xoxb-test", SlackUserID: "U0ABCDEF12"}, slack.OptionAPIURL(url))

	if err := n.Notify("hi"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if f.userLists != 0 {
		t.Fatal("an ID must not trigger users.list")
	}
	if len(f.opened) != 1 || f.opened[0] != "U0ABCDEF12" {
		t.Fatalf("opened = %v", f.opened)
	}
}

func TestNotifyErrors(t *testing.T) {
	_, url := newFakeSlack(t)

	n := New(config.Config{SlackBotToken: "xoxb-test"}, slack.OptionAPIURL(url))
	if err := n.Notify("x"); !errors.Is(err, ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}

	n = New(config.Config{SlackBotToken: "xoxb-test", SlackUserID: "nobody"}, slack.OptionAPIURL(url))
	if err := n.Notify("x"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected unknown user error, got %v", err)
	}
}

func TestIsLikelySlackID(t *testing.T) {
	cases := map[string]bool{
		"U0ABCDEF12": true,
		"W12345678":  true,
		"U123":       false,
		"u0abcdef12": false,
		"小林":         false,
	}
	for in, want := range cases {
		if got := isLikelySlackID(in); got != want {
			t.Fatalf("isLikelySlackID(%q) = %v, want %v", in, got, want)
		}
	}
}
