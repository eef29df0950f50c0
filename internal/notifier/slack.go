package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// errEmptyFile is returned for uploads without content.
var errEmptyFile = errors.New("file content is empty")

// Slack posts to a Slack workspace through the Web API.
type Slack struct {
	// api is the slack-go client.
	api *slack.Client
	// username is the display name of bot messages.
	username string
	// iconEmoji is the avatar of bot messages.
	iconEmoji string
}

// SlackOption configures the Slack notifier.
type SlackOption func(*slackOptions)

type slackOptions struct {
	apiURL     string
	username   string
	iconEmoji  string
	httpClient *http.Client
}

// WithAPIURL points the client at another Web API base URL.
func WithAPIURL(url string) SlackOption {
	return func(o *slackOptions) {
		if url == "" {
			return
		}

		if !strings.HasSuffix(url, "/") {
			url += "/"
		}

		o.apiURL = url
	}
}

// WithIdentity sets the display name and avatar of bot messages.
func WithIdentity(username, iconEmoji string) SlackOption {
	return func(o *slackOptions) {
		o.username = username
		o.iconEmoji = iconEmoji
	}
}

// WithHTTPTimeout bounds every Web API call.
func WithHTTPTimeout(timeout time.Duration) SlackOption {
	return func(o *slackOptions) {
		if timeout > 0 {
			o.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewSlack creates a notifier authenticated with a bot token.
func NewSlack(token string, opts ...SlackOption) *Slack {
	options := new(slackOptions)
	for _, opt := range opts {
		opt(options)
	}

	clientOptions := make([]slack.Option, 0, 2)
	if options.apiURL != "" {
		clientOptions = append(clientOptions, slack.OptionAPIURL(options.apiURL))
	}

	if options.httpClient != nil {
		clientOptions = append(clientOptions, slack.OptionHTTPClient(options.httpClient))
	}

	return &Slack{
		api:       slack.New(token, clientOptions...),
		username:  options.username,
		iconEmoji: options.iconEmoji,
	}
}

// PostMessage posts msg as header, divider and section blocks.
func (s *Slack) PostMessage(ctx context.Context, channel string, msg Message) error {
	options := []slack.MsgOption{
		slack.MsgOptionText(fallbackText(msg), false),
		slack.MsgOptionBlocks(Blocks(msg)...),
	}

	if s.username != "" {
		options = append(options, slack.MsgOptionUsername(s.username))
	}

	if s.iconEmoji != "" {
		options = append(options, slack.MsgOptionIconEmoji(s.iconEmoji))
	}

	if _, _, err := s.api.PostMessageContext(ctx, channel, options...); err != nil {
		return fmt.Errorf("post message: %w", err)
	}

	return nil
}

// UploadFile uploads file content to the channel.
func (s *Slack) UploadFile(ctx context.Context, channel string, file File) error {
	if len(file.Content) == 0 {
		return errEmptyFile
	}

	params := slack.UploadFileV2Parameters{
		Channel:  channel,
		Filename: file.Name,
		Title:    file.Title,
		Reader:   bytes.NewReader(file.Content),
		FileSize: len(file.Content),
	}

	if _, err := s.api.UploadFileV2Context(ctx, params); err != nil {
		return fmt.Errorf("upload file: %w", err)
	}

	return nil
}

// Blocks renders msg as Slack blocks: a header, then a divider and a section if Body is set.
func Blocks(msg Message) []slack.Block {
	blocks := make([]slack.Block, 0, 3)

	if msg.Header != "" {
		blocks = append(blocks, slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, msg.Header, true, false),
		))
	}

	if msg.Body != "" {
		blocks = append(blocks,
			slack.NewDividerBlock(),
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.PlainTextType, msg.Body, true, false),
				nil,
				nil,
			),
		)
	}

	return blocks
}

func fallbackText(msg Message) string {
	switch {
	case msg.Text != "":
		return msg.Text
	case msg.Header != "":
		return msg.Header
	default:
		return msg.Body
	}
}
