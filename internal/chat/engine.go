// Package chat implements the conversation state machine: given a session
// and an inbound content item, it decides the next stored history and the
// outbound reply under the configured guards.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shenwii/line-chatgpt-bot/internal/catalog"
	"github.com/shenwii/line-chatgpt-bot/internal/session"
)

// ImagePromptReply is sent after an image is accepted, while the turn
// awaits a caption. No completion call is issued for a bare image.
const ImagePromptReply = "Tell me what you want to ask about this photo."

// Engine is the conversation state machine. It holds no mutable state of
// its own; the session record is the state, and guard failures leave it
// untouched.
type Engine struct {
	logger     *slog.Logger
	catalog    catalog.Catalog
	completer  Completer
	fetcher    AttachmentFetcher
	transcoder Transcoder
	maxHistory int
}

// NewEngine creates a conversation engine over an immutable catalog.
func NewEngine(log *slog.Logger, cat catalog.Catalog, completer Completer, fetcher AttachmentFetcher, transcoder Transcoder, maxHistory int) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		logger:     log.With(slog.String("service", "chat")),
		catalog:    cat,
		completer:  completer,
		fetcher:    fetcher,
		transcoder: transcoder,
		maxHistory: maxHistory,
	}
}

// TextTurn runs the text pipeline: resolve model and assistant, project the
// bounded history window, merge the text into a pending multi-part user
// turn or append a new turn, issue the completion call, and produce the
// reconciled history plus the assistant reply.
//
// On a pending multi-part turn the new text part is appended at the tail.
// Nothing is persisted here: a completion failure leaves the stored history
// exactly as it was, so a retry recomputes the merge from scratch.
func (e *Engine) TextTurn(ctx context.Context, sess session.Session, text string) (Decision, error) {
	model, ok := e.catalog.Model(sess.Model)
	if !ok {
		return Decision{}, &UnknownModelError{Key: sess.Model}
	}
	if model.Type != catalog.ModelTypeChat {
		// Reserved for future non-chat model types.
		e.logger.Debug("non-chat model, skipping turn",
			slog.String("model", sess.Model),
			slog.String("type", string(model.Type)),
		)
		return Decision{}, nil
	}
	assistant, ok := e.catalog.Assistant(sess.Assistant)
	if !ok {
		return Decision{}, &UnknownAssistantError{Key: sess.Assistant}
	}

	window := session.Window(sess.History, e.maxHistory)
	trimmed := len(window)
	if session.AwaitingCaption(window) {
		last := &window[len(window)-1]
		last.Parts = append(last.Parts, session.ContentPart{Type: session.PartText, Text: text})
	} else {
		window = append(window, session.Turn{Role: session.RoleUser, Text: text})
	}

	messages := make([]session.Turn, 0, len(window)+1)
	messages = append(messages, session.Turn{Role: session.RoleSystem, Text: assistant.Instructions})
	messages = append(messages, window...)

	reply, err := e.completer.Complete(ctx, model, messages)
	if err != nil {
		return Decision{}, fmt.Errorf("completion: %w", err)
	}

	window = append(window, session.Turn{Role: session.RoleAssistant, Text: reply})
	return Decision{
		Reply:   reply,
		History: session.Reconcile(sess.History, window, trimmed),
	}, nil
}

// ImageTurn runs the image pipeline: guard on the vision capability before
// any attachment fetch, transcode the bytes to a data URI, and merge an
// image part into the pending multi-part user turn (or open a new one).
// The completion call is deferred until a later text turn supplies the
// caption.
func (e *Engine) ImageTurn(ctx context.Context, sess session.Session, messageID string) (Decision, error) {
	model, ok := e.catalog.Model(sess.Model)
	if !ok {
		return Decision{}, &UnknownModelError{Key: sess.Model}
	}
	if model.Type != catalog.ModelTypeChat {
		e.logger.Debug("non-chat model, skipping image",
			slog.String("model", sess.Model),
			slog.String("type", string(model.Type)),
		)
		return Decision{}, nil
	}
	if !model.Vision {
		return Decision{}, &VisionUnsupportedError{Key: sess.Model}
	}

	raw, err := e.fetcher.GetMessageContent(ctx, messageID)
	if err != nil {
		return Decision{}, fmt.Errorf("fetch attachment %s: %w", messageID, err)
	}
	uri, err := e.transcoder.DataURI(ctx, raw)
	if err != nil {
		return Decision{}, fmt.Errorf("transcode attachment %s: %w", messageID, err)
	}

	part := session.ContentPart{Type: session.PartImage, ImageURL: uri}
	history := session.Window(sess.History, len(sess.History))
	if session.AwaitingCaption(history) {
		last := &history[len(history)-1]
		last.Parts = append(last.Parts, part)
	} else {
		history = append(history, session.Turn{
			Role:  session.RoleUser,
			Parts: []session.ContentPart{part},
		})
	}

	return Decision{Reply: ImagePromptReply, History: history}, nil
}
