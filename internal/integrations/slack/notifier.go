package slackbot

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/slack-go/slack"

	"workpilot/internal/config"
	"workpilot/internal/httpx"
)

var ErrNoDestination = errors.New("slack: no channel or user configured")

// Notifier posts plain-text messages to one channel or, when no channel is set,
// to a direct message with one user.
type Notifier struct {
	api       *slack.Client
	channelID string
	user      string

	mu     sync.Mutex
	userID string
}

func New(cfg config.Config, options ...slack.Option) *Notifier {
	opts := append([]slack.Option{slack.OptionHTTPClient(httpx.Client())}, options...)
	return &Notifier{
		api:       slack.New(cfg.SlackBotToken, opts...),
		channelID: cfg.SlackChannelID,
		user:      strings.TrimSpace(cfg.SlackUserID),
	}
}

func (n *Notifier) Notify(text string) error {
	channel, err := n.destination()
	if err != nil {
		return err
	}
	_, ts, err := n.api.PostMessage(channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("post message to %s: %w", channel, err)
	}
	log.Printf("slack message sent channel=%s ts=%s", channel, ts)
	return nil
}

func (n *Notifier) destination() (string, error) {
	if n.channelID != "" {
		return n.channelID, nil
	}
	if n.user == "" {
		return "", ErrNoDestination
	}
	userID, err := n.resolveUser()
	if err != nil {
		return "", err
	}
	channel, _, _, err := n.api.OpenConversation(&slack.OpenConversationParameters{Users: []string{userID}})
	if err != nil {
		return "", fmt.Errorf("open DM with %s: %w", userID, err)
	}
	return channel.ID, nil
}

// resolveUser accepts a Slack ID or a user, real or display name. The lookup is
// cached after the first success.
func (n *Notifier) resolveUser() (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.userID != "" {
		return n.userID, nil
	}
	if isLikelySlackID(n.user) {
		n.userID = n.user
		return n.userID, nil
	}

	users, err := n.api.GetUsers()
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}
	want := strings.ToLower(n.user)
	for _, u := range users {
		for _, name := range []string{u.Name, u.RealName, u.Profile.DisplayName} {
			if strings.ToLower(strings.TrimSpace(name)) == want {
				n.userID = u.ID
				log.Printf("slack user resolved name=%s id=%s", n.user, u.ID)
				return n.userID, nil
			}
		}
	}
	return "", fmt.Errorf("slack user %q not found", n.user)
}

func isLikelySlackID(val string) bool {
	if len(val) < 9 {
		return false
	}
	for i, r := range val {
		if i == 0 {
			if r != 'U' && r != 'W' {
				return false
			}
			continue
		}
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
