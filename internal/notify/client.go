package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.uber.org/zap"

	"github.com/helpdesk-line/repair-service/internal/config"
)

// MaxMulticastRecipients is the LINE limit for one multicast call.
const MaxMulticastRecipients = 500

// Client delivers rendered messages to the external channel.
type Client interface {
	Push(ctx context.Context, to string, msg Message) error
	Multicast(ctx context.Context, to []string, msg Message) error
}

// LineClient sends through the LINE Messaging API.
type LineClient struct {
	api     *messaging_api.MessagingApiAPI
	timeout time.Duration
}

// NewClient returns a LINE client when a channel token is configured and a
// log-only client otherwise.
func NewClient(lineCfg config.LineConfig, notifyCfg config.NotificationConfig, logger *zap.Logger) (Client, error) {
	if lineCfg.ChannelAccessToken == "" {
		logger.Warn("LINE_CHANNEL_ACCESS_TOKEN not provided; notifications are only logged")
		return NewLogClient(logger), nil
	}
	timeout := notifyCfg.SendTimeout()
	api, err := messaging_api.NewMessagingApiAPI(
		lineCfg.ChannelAccessToken,
		messaging_api.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("init line messaging api: %w", err)
	}
	return &LineClient{api: api, timeout: timeout}, nil
}

// Push sends msg to one LINE user.
func (c *LineClient) Push(ctx context.Context, to string, msg Message) error {
	lineMsg, err := toLineMessage(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err = c.api.WithContext(ctx).PushMessage(&messaging_api.PushMessageRequest{
		To:       to,
		Messages: []messaging_api.MessageInterface{lineMsg},
	}, uuid.NewString())
	return err
}

// Multicast sends msg to up to MaxMulticastRecipients users in one call.
func (c *LineClient) Multicast(ctx context.Context, to []string, msg Message) error {
	if len(to) == 0 {
		return errors.New("multicast without recipients")
	}
	if len(to) > MaxMulticastRecipients {
		return fmt.Errorf("multicast limited to %d recipients, got %d", MaxMulticastRecipients, len(to))
	}
	lineMsg, err := toLineMessage(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err = c.api.WithContext(ctx).Multicast(&messaging_api.MulticastRequest{
		To:       to,
		Messages: []messaging_api.MessageInterface{lineMsg},
	}, uuid.NewString())
	return err
}

func toLineMessage(msg Message) (messaging_api.MessageInterface, error) {
	switch msg.Kind {
	case MessageFlex:
		if msg.Flex == nil {
			return nil, errors.New("flex message without contents")
		}
		raw, err := json.Marshal(msg.Flex)
		if err != nil {
			return nil, fmt.Errorf("marshal flex: %w", err)
		}
		contents, err := messaging_api.UnmarshalFlexContainer(raw)
		if err != nil {
			return nil, fmt.Errorf("decode flex: %w", err)
		}
		return &messaging_api.FlexMessage{AltText: msg.AltText, Contents: contents}, nil
	case MessageText:
		return &messaging_api.TextMessage{Text: msg.Text}, nil
	default:
		return nil, fmt.Errorf("unsupported message kind %q", msg.Kind)
	}
}

// LogClient writes deliveries to the logger instead of the network.
type LogClient struct {
	logger *zap.Logger
}

// NewLogClient constructs a log-only client.
func NewLogClient(logger *zap.Logger) *LogClient {
	return &LogClient{logger: logger}
}

func (c *LogClient) Push(_ context.Context, to string, msg Message) error {
	c.logger.Info("notification push (log only)",
		zap.String("to", to),
		zap.String("kind", string(msg.Kind)),
		zap.String("alt_text", msg.AltText),
		zap.String("text", msg.Text))
	return nil
}

func (c *LogClient) Multicast(_ context.Context, to []string, msg Message) error {
	c.logger.Info("notification multicast (log only)",
		zap.Strings("to", to),
		zap.String("kind", string(msg.Kind)),
		zap.String("alt_text", msg.AltText))
	return nil
}
