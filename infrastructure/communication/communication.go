package communication

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Slack posts notices to the channels staff watch for sync problems.
type Slack struct {
	client  *slack.Client
	options SlackOption
}

type SlackOption struct {
	InfoChannelID  string `yaml:"infoChannel"`
	ErrorChannelID string `yaml:"errorChannel"`
	// APIURL overrides the Slack endpoint, for tests.
	APIURL string `yaml:"-"`
}

func NewSlack(token string, options SlackOption) *Slack {
	var opts []slack.Option
	if options.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(options.APIURL))
	}
	client := slack.New(token, opts...)
	return &Slack{client: client, options: options}
}

func (s *Slack) postMessage(ctx context.Context, channelID, message string) error {
	if channelID == "" {
		return nil
	}
	_, _, err := s.client.PostMessageContext(
		ctx,
		channelID,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (s *Slack) Info(ctx context.Context, message string) error {
	return s.postMessage(ctx, s.options.InfoChannelID, message)
}

func (s *Slack) Error(ctx context.Context, message string) error {
	return s.postMessage(ctx, s.options.ErrorChannelID, message)
}
