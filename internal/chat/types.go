package chat

import (
	"context"
	"fmt"

	"github.com/shenwii/line-chatgpt-bot/internal/catalog"
	"github.com/shenwii/line-chatgpt-bot/internal/session"
)

// Completer issues one completion call against the configured provider.
// The message list already includes the system turn; per-model request
// properties travel opaquely in the model descriptor.
type Completer interface {
	Complete(ctx context.Context, model catalog.Model, messages []session.Turn) (string, error)
}

// AttachmentFetcher loads raw attachment bytes by provider message id.
type AttachmentFetcher interface {
	GetMessageContent(ctx context.Context, messageID string) ([]byte, error)
}

// Transcoder converts raw image bytes into a data URI.
type Transcoder interface {
	DataURI(ctx context.Context, raw []byte) (string, error)
}

// Decision is the state machine output for one turn: the outbound reply
// text (empty means send nothing) and the full next stored history (nil
// means no mutation).
type Decision struct {
	Reply   string
	History []session.Turn
}

// UnknownModelError is the guard failure for a session whose model key is
// no longer in the catalog. User-facing; no state was mutated.
type UnknownModelError struct {
	Key string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("model does not exist: %s", e.Key)
}

// UnknownAssistantError is the guard failure for a stale assistant key.
type UnknownAssistantError struct {
	Key string
}

func (e *UnknownAssistantError) Error() string {
	return fmt.Sprintf("assistant does not exist: %s", e.Key)
}

// VisionUnsupportedError is the guard failure for an image turn on a model
// without the vision capability. No attachment fetch was attempted.
type VisionUnsupportedError struct {
	Key string
}

func (e *VisionUnsupportedError) Error() string {
	return fmt.Sprintf("model %s does not support images", e.Key)
}
