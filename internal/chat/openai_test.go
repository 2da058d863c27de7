package chat

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shenwii/line-chatgpt-bot/internal/session"
)

func TestToChatMessages(t *testing.T) {
	t.Parallel()

	turns := []session.Turn{
		{Role: session.RoleSystem, Text: "Be helpful."},
		{Role: session.RoleUser, Parts: []session.ContentPart{
			{Type: session.PartImage, ImageURL: "data:image/jpeg;base64,img"},
			{Type: session.PartText, Text: "what is this"},
		}},
		{Role: session.RoleAssistant, Text: "a cat"},
	}

	msgs := toChatMessages(turns)
	if len(msgs) != 3 {
		t.Fatalf("messages = %d", len(msgs))
	}

	if msgs[0].Role != session.RoleSystem || msgs[0].Content != "Be helpful." {
		t.Errorf("system = %+v", msgs[0])
	}
	if msgs[0].MultiContent != nil {
		t.Error("plain turn must not carry multi content")
	}

	multi := msgs[1]
	if multi.Content != "" || len(multi.MultiContent) != 2 {
		t.Fatalf("multi-part turn = %+v", multi)
	}
	if multi.MultiContent[0].Type != openai.ChatMessagePartTypeImageURL {
		t.Errorf("part 0 = %+v", multi.MultiContent[0])
	}
	if multi.MultiContent[0].ImageURL == nil || multi.MultiContent[0].ImageURL.URL != "data:image/jpeg;base64,img" {
		t.Errorf("image url = %+v", multi.MultiContent[0].ImageURL)
	}
	if multi.MultiContent[1].Type != openai.ChatMessagePartTypeText || multi.MultiContent[1].Text != "what is this" {
		t.Errorf("part 1 = %+v", multi.MultiContent[1])
	}
}

func TestApplyProps(t *testing.T) {
	t.Parallel()

	var req openai.ChatCompletionRequest
	applyProps(&req, map[string]any{
		"temperature":      0.7,
		"top_p":            0.95,
		"max_tokens":       512,
		"presence_penalty": 0.1,
		"stop":             []any{"END", "STOP"},
		"reasoning_magic":  "ignored",
	})

	if req.Temperature != 0.7 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if req.TopP != 0.95 {
		t.Errorf("top_p = %v", req.TopP)
	}
	if req.MaxTokens != 512 {
		t.Errorf("max_tokens = %v", req.MaxTokens)
	}
	if req.PresencePenalty != 0.1 {
		t.Errorf("presence_penalty = %v", req.PresencePenalty)
	}
	if len(req.Stop) != 2 || req.Stop[0] != "END" {
		t.Errorf("stop = %v", req.Stop)
	}
}

func TestApplyPropsNumericCoercion(t *testing.T) {
	t.Parallel()

	var req openai.ChatCompletionRequest
	// YAML integers arrive as int; floats as float64.
	applyProps(&req, map[string]any{
		"temperature": 1,
		"max_tokens":  float64(256),
		"stop":        "END",
	})

	if req.Temperature != 1 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if req.MaxTokens != 256 {
		t.Errorf("max_tokens = %v", req.MaxTokens)
	}
	if len(req.Stop) != 1 || req.Stop[0] != "END" {
		t.Errorf("stop = %v", req.Stop)
	}
}
