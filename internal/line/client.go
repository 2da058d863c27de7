// Package line wraps the LINE Messaging API used by the bot: replies,
// profile lookups, attachment content, and carousel rendering.
package line

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Profile is the subset of a LINE user profile the bot uses.
type Profile struct {
	DisplayName string
	UserID      string
}

// Client is the outbound LINE Messaging API adapter.
type Client struct {
	api    *messaging_api.MessagingApiAPI
	blob   *messaging_api.MessagingApiBlobAPI
	logger *slog.Logger
}

// NewClient creates a client for the given channel access token.
func NewClient(log *slog.Logger, channelToken string) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("messaging api client: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("messaging blob client: %w", err)
	}
	return &Client{
		api:    api,
		blob:   blob,
		logger: log.With(slog.String("adapter", "line")),
	}, nil
}

// Reply sends messages against a reply token.
func (c *Client) Reply(replyToken string, messages ...messaging_api.MessageInterface) error {
	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

// ReplyText sends one or more plain text messages against a reply token.
func (c *Client) ReplyText(replyToken string, texts ...string) error {
	messages := make([]messaging_api.MessageInterface, 0, len(texts))
	for _, text := range texts {
		messages = append(messages, messaging_api.TextMessage{Text: text})
	}
	return c.Reply(replyToken, messages...)
}

// GetProfile fetches the display profile for a user id.
func (c *Client) GetProfile(userID string) (Profile, error) {
	resp, err := c.api.GetProfile(userID)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return Profile{
		DisplayName: resp.DisplayName,
		UserID:      resp.UserId,
	}, nil
}

// GetMessageContent downloads the raw attachment bytes for a message id.
func (c *Client) GetMessageContent(ctx context.Context, messageID string) ([]byte, error) {
	resp, err := c.blob.GetMessageContent(messageID)
	if err != nil {
		return nil, fmt.Errorf("get message content %s: %w", messageID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read message content %s: %w", messageID, err)
	}
	return raw, nil
}
