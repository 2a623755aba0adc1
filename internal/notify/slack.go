package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackNotifier posts events as colored attachments to a Slack channel.
type SlackNotifier struct {
	client    slackClient
	channelID string
}

// NewSlack returns a SlackNotifier authenticated with a bot token.
func NewSlack(botToken, channelID string) (*SlackNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("slack: channel id is required")
	}
	return &SlackNotifier{client: slackapi.New(botToken), channelID: channelID}, nil
}

func (s *SlackNotifier) Notify(ctx context.Context, evt Event) error {
	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := s.client.PostMessageContext(ctx, s.channelID, buildMessageOptions(evt)...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

// buildMessageOptions renders an event as fallback text plus one attachment.
func buildMessageOptions(evt Event) []slackapi.MsgOption {
	att := slackapi.Attachment{
		Title:    evt.Title,
		Text:     evt.Body,
		Color:    evt.Color(),
		Fallback: evt.Title,
	}
	for _, f := range evt.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return []slackapi.MsgOption{
		slackapi.MsgOptionText(evt.Title, false),
		slackapi.MsgOptionAttachments(att),
	}
}

// retryOnRateLimit calls fn and retries on Slack rate limit errors, waiting
// the server-provided RetryAfter or an exponential backoff.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
