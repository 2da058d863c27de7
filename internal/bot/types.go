package bot

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shenwii/line-chatgpt-bot/internal/chat"
	"github.com/shenwii/line-chatgpt-bot/internal/line"
	"github.com/shenwii/line-chatgpt-bot/internal/session"
)

// Messenger is the slice of the LINE client the router depends on.
type Messenger interface {
	Reply(replyToken string, messages ...messaging_api.MessageInterface) error
	ReplyText(replyToken string, texts ...string) error
	GetProfile(userID string) (line.Profile, error)
}

// SessionStore is the session persistence surface used by handlers.
type SessionStore interface {
	FetchOrCreate(ctx context.Context, userID, defaultAssistant, defaultModel string) (session.Session, error)
	SetModel(ctx context.Context, id primitive.ObjectID, model string) error
	SetAssistant(ctx context.Context, id primitive.ObjectID, assistant string) error
	SetHistory(ctx context.Context, id primitive.ObjectID, history []session.Turn) error
}

// Turner is the conversation state machine surface.
type Turner interface {
	TextTurn(ctx context.Context, sess session.Session, text string) (chat.Decision, error)
	ImageTurn(ctx context.Context, sess session.Session, messageID string) (chat.Decision, error)
}

// Invocation carries the per-event context a command handler needs.
type Invocation struct {
	ReplyToken string
	UserID     string
}
