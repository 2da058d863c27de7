// Package session defines the per-user session record and its MongoDB
// store.
package session

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Turn role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Content part type constants.
const (
	PartText  = "text"
	PartImage = "image"
)

// Session is the persisted per-user record. Assistant and Model hold
// catalog keys that are validated only at use time; a stale key must
// surface as a guard reply, never a crash.
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    string             `bson:"id" json:"id"`
	Assistant string             `bson:"assistant" json:"assistant"`
	Model     string             `bson:"model" json:"model"`
	History   []Turn             `bson:"conversation_history" json:"conversation_history"`
}

// Turn is one message-equivalent unit in conversation history. Content is
// either plain text (Text set, Parts empty) or an ordered multi-part
// sequence (Parts set, Text empty). The two forms are mutually exclusive.
type Turn struct {
	Role  string        `bson:"role" json:"role"`
	Text  string        `bson:"text,omitempty" json:"text,omitempty"`
	Parts []ContentPart `bson:"parts,omitempty" json:"parts,omitempty"`
}

// ContentPart is one element of a multi-part turn.
type ContentPart struct {
	Type     string `bson:"type" json:"type"`
	Text     string `bson:"text,omitempty" json:"text,omitempty"`
	ImageURL string `bson:"image_url,omitempty" json:"image_url,omitempty"`
}

// IsMultiPart reports whether the turn carries multi-part content.
func (t Turn) IsMultiPart() bool {
	return len(t.Parts) > 0
}

// Clone returns a deep copy of the turn so callers can mutate a projected
// history window without touching the stored slice.
func (t Turn) Clone() Turn {
	out := t
	if len(t.Parts) > 0 {
		out.Parts = make([]ContentPart, len(t.Parts))
		copy(out.Parts, t.Parts)
	}
	return out
}

// AwaitingCaption reports whether the last history entry is an unanswered
// multi-part user turn, i.e. an image is pending a caption. The awaiting
// state is derived from content shape on purpose; there is no separate
// persisted flag to drift out of sync.
func AwaitingCaption(history []Turn) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	return last.Role == RoleUser && last.IsMultiPart()
}

// Window returns a deep copy of the last n turns. n <= 0 yields an empty
// window.
func Window(history []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	start := 0
	if len(history) > n {
		start = len(history) - n
	}
	out := make([]Turn, 0, len(history)-start)
	for _, t := range history[start:] {
		out = append(out, t.Clone())
	}
	return out
}

// Reconcile replaces the last len(window)-edited tail of stored history
// with the mutated window, keeping the untrimmed prefix intact. trimmed is
// the number of stored turns the window was projected from.
func Reconcile(stored []Turn, window []Turn, trimmed int) []Turn {
	prefix := len(stored) - trimmed
	if prefix < 0 {
		prefix = 0
	}
	out := make([]Turn, 0, prefix+len(window))
	out = append(out, stored[:prefix]...)
	out = append(out, window...)
	return out
}
