// Package notify tells operators about actions waiting in the approval queue.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clawdesk/clawdesk/internal/timeline"
	"github.com/slack-go/slack"
)

// DefaultSlackAPIURL is used when no API URL is configured.
const DefaultSlackAPIURL = "https://slack.com/api/"

// SlackNotifier posts queued approvals to a Slack channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier for channel. An empty apiURL selects the
// public Slack API.
func NewSlackNotifier(token, channel, apiURL string) (*SlackNotifier, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("missing slack token")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil, errors.New("missing slack channel")
	}
	base := strings.TrimSpace(apiURL)
	if base == "" {
		base = DefaultSlackAPIURL
	}
	base = strings.TrimRight(base, "/") + "/"
	client := &http.Client{Timeout: 15 * time.Second}
	return &SlackNotifier{
		api:     slack.New(token, slack.OptionHTTPClient(client), slack.OptionAPIURL(base)),
		channel: channel,
	}, nil
}

// ApprovalQueued posts one message describing item.
func (n *SlackNotifier) ApprovalQueued(ctx context.Context, item *timeline.ApprovalItem, agentName string) error {
	text := fmt.Sprintf("Approval needed for %s (%s)", agentName, item.ActionType)
	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*Approval needed* for *%s*\n%s", agentName, item.ContentPreview), false, false), nil, nil),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("id `%s` · action `%s`", item.ID, item.ActionType), false, false)),
	}
	return withRetry(ctx, 3, 200*time.Millisecond, func() (bool, error) {
		_, _, err := n.api.PostMessageContext(ctx, n.channel,
			slack.MsgOptionText(text, false),
			slack.MsgOptionBlocks(blocks...),
		)
		return retryable(err)
	})
}

func retryable(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	var rle *slack.RateLimitedError
	if errors.As(err, &rle) {
		return true, err
	}
	return false, err
}

func withRetry(ctx context.Context, attempts int, backoff time.Duration, fn func() (bool, error)) error {
	var err error
	for i := 0; i < attempts; i++ {
		var retry bool
		retry, err = fn()
		if !retry {
			return err
		}
		slog.Debug("Slack call rate limited, retrying", "attempt", i+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(i+1)):
		}
	}
	return err
}
