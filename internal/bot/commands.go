package bot

import (
	"context"
	"fmt"

	"github.com/shenwii/line-chatgpt-bot/internal/line"
)

const helpReply = "/new: clear the session\n" +
	"/model: select a model\n" +
	"/assistant: select an assistant\n" +
	"/me: show your profile\n" +
	"/help: show this help"

// commandMe replies with the caller's display profile. The remainder is
// ignored.
func (r *Router) commandMe(_ context.Context, _ string, inv Invocation) error {
	profile, err := r.messenger.GetProfile(inv.UserID)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	return r.messenger.ReplyText(inv.ReplyToken,
		fmt.Sprintf("Name: %s\nID: %s", profile.DisplayName, profile.UserID))
}

// commandModel replies with the model selection carousel. Pure read.
func (r *Router) commandModel(ctx context.Context, _ string, inv Invocation) error {
	sess, err := r.store.FetchOrCreate(ctx, inv.UserID, r.catalog.DefaultAssistant(), r.catalog.DefaultModel())
	if err != nil {
		return err
	}
	carousel := line.ModelCarousel(r.catalog.Models(), sess.Model)
	return r.messenger.Reply(inv.ReplyToken, carousel)
}

// commandAssistant replies with the assistant selection carousel.
func (r *Router) commandAssistant(ctx context.Context, _ string, inv Invocation) error {
	sess, err := r.store.FetchOrCreate(ctx, inv.UserID, r.catalog.DefaultAssistant(), r.catalog.DefaultModel())
	if err != nil {
		return err
	}
	carousel := line.AssistantCarousel(r.catalog.Assistants(), sess.Assistant)
	return r.messenger.Reply(inv.ReplyToken, carousel)
}

// commandNew truncates the conversation history. Idempotent.
func (r *Router) commandNew(ctx context.Context, _ string, inv Invocation) error {
	sess, err := r.store.FetchOrCreate(ctx, inv.UserID, r.catalog.DefaultAssistant(), r.catalog.DefaultModel())
	if err != nil {
		return err
	}
	if err := r.store.SetHistory(ctx, sess.ID, nil); err != nil {
		return err
	}
	return r.messenger.ReplyText(inv.ReplyToken, sessionClearedReply)
}

func (r *Router) commandHelp(_ context.Context, _ string, inv Invocation) error {
	return r.messenger.ReplyText(inv.ReplyToken, helpReply)
}
