package chat

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/shenwii/line-chatgpt-bot/internal/catalog"
	"github.com/shenwii/line-chatgpt-bot/internal/session"
)

// OpenAICompleter implements Completer against an OpenAI-compatible chat
// completion endpoint.
type OpenAICompleter struct {
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAICompleter creates a completer for the given API key and base
// URL. An empty baseURL keeps the client default.
func NewOpenAICompleter(log *slog.Logger, apiKey, baseURL string) *OpenAICompleter {
	if log == nil {
		log = slog.Default()
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(cfg),
		logger: log.With(slog.String("service", "openai")),
	}
}

// Complete issues one chat completion call and returns the reply text.
func (c *OpenAICompleter) Complete(ctx context.Context, model catalog.Model, messages []session.Turn) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    model.Model,
		Messages: toChatMessages(messages),
	}
	applyProps(&req, model.Props)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices for model %s", model.Model)
	}
	c.logger.Debug("completion finished",
		slog.String("model", model.Model),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

func toChatMessages(turns []session.Turn) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		msg := openai.ChatCompletionMessage{Role: t.Role}
		if t.IsMultiPart() {
			msg.MultiContent = make([]openai.ChatMessagePart, 0, len(t.Parts))
			for _, p := range t.Parts {
				switch p.Type {
				case session.PartImage:
					msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    p.ImageURL,
							Detail: openai.ImageURLDetailAuto,
						},
					})
				default:
					msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
						Type: openai.ChatMessagePartTypeText,
						Text: p.Text,
					})
				}
			}
		} else {
			msg.Content = t.Text
		}
		out = append(out, msg)
	}
	return out
}

// applyProps maps the opaque per-model property set onto the typed request.
// Unknown keys are ignored; YAML numbers arrive as int or float64.
func applyProps(req *openai.ChatCompletionRequest, props map[string]any) {
	for key, value := range props {
		switch key {
		case "temperature":
			if f, ok := toFloat32(value); ok {
				req.Temperature = f
			}
		case "top_p":
			if f, ok := toFloat32(value); ok {
				req.TopP = f
			}
		case "max_tokens":
			if n, ok := toInt(value); ok {
				req.MaxTokens = n
			}
		case "presence_penalty":
			if f, ok := toFloat32(value); ok {
				req.PresencePenalty = f
			}
		case "frequency_penalty":
			if f, ok := toFloat32(value); ok {
				req.FrequencyPenalty = f
			}
		case "stop":
			if stops, ok := toStrings(value); ok {
				req.Stop = stops
			}
		}
	}
}

func toFloat32(v any) (float32, bool) {
	switch n := v.(type) {
	case float64:
		return float32(n), true
	case float32:
		return n, true
	case int:
		return float32(n), true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func toStrings(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	case string:
		return []string{s}, true
	}
	return nil, false
}
