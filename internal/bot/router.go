// Package bot routes inbound LINE webhook events: slash commands go
// through the command registry, postbacks mutate the session, and
// everything else flows into the conversation engine.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shenwii/line-chatgpt-bot/internal/catalog"
	"github.com/shenwii/line-chatgpt-bot/internal/chat"
	"github.com/shenwii/line-chatgpt-bot/internal/command"
	"github.com/shenwii/line-chatgpt-bot/internal/line"
)

const (
	unknownCommandReply = "Unknown command."
	unknownActionReply  = "Unknown action."
	sessionClearedReply = "Session cleared."
)

// Router classifies inbound provider events and drives the dispatcher and
// the conversation engine. Events within one webhook delivery are
// processed strictly sequentially.
type Router struct {
	logger    *slog.Logger
	messenger Messenger
	store     SessionStore
	engine    Turner
	catalog   catalog.Catalog
	commands  *command.Registry[Invocation]
	allow     map[string]struct{}
	deny      map[string]struct{}
}

// NewRouter creates a router and registers the built-in commands.
func NewRouter(log *slog.Logger, messenger Messenger, store SessionStore, engine Turner, cat catalog.Catalog, allowList, denyList []string) *Router {
	if log == nil {
		log = slog.Default()
	}
	r := &Router{
		logger:    log.With(slog.String("service", "bot")),
		messenger: messenger,
		store:     store,
		engine:    engine,
		catalog:   cat,
		commands:  command.NewRegistry[Invocation](),
		allow:     toSet(allowList),
		deny:      toSet(denyList),
	}
	r.commands.MustRegister("me", r.commandMe)
	r.commands.MustRegister("model", r.commandModel)
	r.commands.MustRegister("assistant", r.commandAssistant)
	r.commands.MustRegister("new", r.commandNew)
	r.commands.MustRegister("help", r.commandHelp)
	return r
}

// HandleEvents processes every event in a webhook delivery in order.
// Collaborator failures abort the delivery and propagate to the boundary.
func (r *Router) HandleEvents(ctx context.Context, events []webhook.EventInterface) error {
	for _, ev := range events {
		if err := r.handleEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) handleEvent(ctx context.Context, ev webhook.EventInterface) error {
	switch e := ev.(type) {
	case webhook.PostbackEvent:
		userID := sourceUserID(e.Source)
		if !r.allowed(userID) {
			r.logger.Debug("event dropped by access list", slog.String("user_id", userID))
			return nil
		}
		if e.Postback == nil {
			return r.messenger.ReplyText(e.ReplyToken, unknownActionReply)
		}
		return r.handlePostback(ctx, e.ReplyToken, userID, e.Postback.Data)
	case webhook.MessageEvent:
		userID := sourceUserID(e.Source)
		if !r.allowed(userID) {
			r.logger.Debug("event dropped by access list", slog.String("user_id", userID))
			return nil
		}
		switch m := e.Message.(type) {
		case webhook.TextMessageContent:
			return r.handleText(ctx, e.ReplyToken, userID, m.Text)
		case webhook.ImageMessageContent:
			return r.handleImage(ctx, e.ReplyToken, userID, m.Id)
		}
	}
	return nil
}

func (r *Router) handleText(ctx context.Context, replyToken, userID, text string) error {
	profile, err := r.messenger.GetProfile(userID)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	r.logger.Info("message received",
		slog.String("display_name", profile.DisplayName),
		slog.String("user_id", profile.UserID),
	)

	outcome, err := r.commands.Dispatch(ctx, text, Invocation{ReplyToken: replyToken, UserID: userID})
	if err != nil {
		return err
	}
	switch outcome {
	case command.OutcomeHandled:
		return nil
	case command.OutcomeUnknown:
		return r.messenger.ReplyText(replyToken, unknownCommandReply)
	}
	return r.conversationText(ctx, replyToken, userID, text)
}

func (r *Router) conversationText(ctx context.Context, replyToken, userID, text string) error {
	sess, err := r.store.FetchOrCreate(ctx, userID, r.catalog.DefaultAssistant(), r.catalog.DefaultModel())
	if err != nil {
		return err
	}
	decision, err := r.engine.TextTurn(ctx, sess, text)
	if err != nil {
		if reply, ok := guardReply(err); ok {
			r.logger.Info("turn rejected", slog.String("user_id", userID), slog.String("reason", err.Error()))
			return r.messenger.ReplyText(replyToken, reply)
		}
		return err
	}
	return r.finish(ctx, replyToken, sess.ID, decision)
}

func (r *Router) handleImage(ctx context.Context, replyToken, userID, messageID string) error {
	sess, err := r.store.FetchOrCreate(ctx, userID, r.catalog.DefaultAssistant(), r.catalog.DefaultModel())
	if err != nil {
		return err
	}
	decision, err := r.engine.ImageTurn(ctx, sess, messageID)
	if err != nil {
		if reply, ok := guardReply(err); ok {
			r.logger.Info("image rejected", slog.String("user_id", userID), slog.String("reason", err.Error()))
			return r.messenger.ReplyText(replyToken, reply)
		}
		return err
	}
	return r.finish(ctx, replyToken, sess.ID, decision)
}

// finish sends the reply and then persists history. The reply goes out
// first, matching the provider's reply-token flow; a persistence failure
// after a sent reply is the known inconsistency window.
func (r *Router) finish(ctx context.Context, replyToken string, id primitive.ObjectID, decision chat.Decision) error {
	if decision.Reply != "" {
		if err := r.messenger.ReplyText(replyToken, decision.Reply); err != nil {
			return err
		}
	}
	if decision.History != nil {
		if err := r.store.SetHistory(ctx, id, decision.History); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) handlePostback(ctx context.Context, replyToken, userID, data string) error {
	values, err := url.ParseQuery(data)
	if err != nil {
		r.logger.Warn("malformed postback data", slog.String("user_id", userID))
		return r.messenger.ReplyText(replyToken, unknownActionReply)
	}
	switch values.Get("action") {
	case line.ActionSelectModel:
		key := values.Get("model")
		if key == "" {
			return r.messenger.ReplyText(replyToken, unknownActionReply)
		}
		return r.selectModel(ctx, replyToken, userID, key)
	case line.ActionSelectAssistant:
		key := values.Get("assistant")
		if key == "" {
			return r.messenger.ReplyText(replyToken, unknownActionReply)
		}
		return r.selectAssistant(ctx, replyToken, userID, key)
	default:
		return r.messenger.ReplyText(replyToken, unknownActionReply)
	}
}

// selectModel stores the key as-is; existence is validated at use time
// only.
func (r *Router) selectModel(ctx context.Context, replyToken, userID, key string) error {
	sess, err := r.store.FetchOrCreate(ctx, userID, r.catalog.DefaultAssistant(), r.catalog.DefaultModel())
	if err != nil {
		return err
	}
	if err := r.store.SetModel(ctx, sess.ID, key); err != nil {
		return err
	}
	return r.messenger.ReplyText(replyToken, fmt.Sprintf("Model %s selected.", key))
}

func (r *Router) selectAssistant(ctx context.Context, replyToken, userID, key string) error {
	sess, err := r.store.FetchOrCreate(ctx, userID, r.catalog.DefaultAssistant(), r.catalog.DefaultModel())
	if err != nil {
		return err
	}
	if err := r.store.SetAssistant(ctx, sess.ID, key); err != nil {
		return err
	}
	return r.messenger.ReplyText(replyToken, fmt.Sprintf("Assistant %s selected.", key))
}

func (r *Router) allowed(userID string) bool {
	if userID == "" {
		return false
	}
	if _, denied := r.deny[userID]; denied {
		return false
	}
	if len(r.allow) == 0 {
		return true
	}
	_, ok := r.allow[userID]
	return ok
}

// guardReply maps guard failures onto their user-facing reply text.
func guardReply(err error) (string, bool) {
	var unknownModel *chat.UnknownModelError
	if errors.As(err, &unknownModel) {
		return unknownModel.Error(), true
	}
	var unknownAssistant *chat.UnknownAssistantError
	if errors.As(err, &unknownAssistant) {
		return unknownAssistant.Error(), true
	}
	var noVision *chat.VisionUnsupportedError
	if errors.As(err, &noVision) {
		return noVision.Error(), true
	}
	return "", false
}

func sourceUserID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

func toSet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}
