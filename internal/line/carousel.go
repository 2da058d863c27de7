package line

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/shenwii/line-chatgpt-bot/internal/catalog"
)

// Postback action names carried in carousel postback data.
const (
	ActionSelectModel     = "select_model"
	ActionSelectAssistant = "select_assistant"
)

// LINE caps carousel column text at 120 characters.
const maxColumnText = 120

// ModelCarousel renders the configured models as a selectable carousel,
// marking the currently active key.
func ModelCarousel(models []catalog.Model, activeKey string) messaging_api.TemplateMessage {
	columns := make([]messaging_api.CarouselColumn, 0, len(models))
	for _, m := range models {
		marker := ""
		if m.Key == activeKey {
			marker = "** "
		}
		text := fmt.Sprintf("%sModel: %s\nIntelligence: %s\nSpeed: %s\nPricing in/out: %s / %s",
			marker, m.Model, m.Intelligence, m.Speed, m.Pricing.Input, m.Pricing.Output)
		columns = append(columns, messaging_api.CarouselColumn{
			Text: truncateColumnText(text),
			Actions: []messaging_api.ActionInterface{
				messaging_api.PostbackAction{
					Label: "Select",
					Data: url.Values{
						"action": {ActionSelectModel},
						"model":  {m.Key},
					}.Encode(),
				},
			},
		})
	}
	return messaging_api.TemplateMessage{
		AltText:  "Select a model.",
		Template: messaging_api.CarouselTemplate{Columns: columns},
	}
}

// AssistantCarousel renders the configured assistants as a selectable
// carousel, marking the currently active key.
func AssistantCarousel(assistants []catalog.Assistant, activeKey string) messaging_api.TemplateMessage {
	columns := make([]messaging_api.CarouselColumn, 0, len(assistants))
	for _, a := range assistants {
		marker := ""
		if a.Key == activeKey {
			marker = "** "
		}
		description := a.Description
		if description == "" {
			description = a.Key
		}
		text := fmt.Sprintf("%sAssistant: %s\n%s", marker, a.Key, description)
		columns = append(columns, messaging_api.CarouselColumn{
			Text: truncateColumnText(text),
			Actions: []messaging_api.ActionInterface{
				messaging_api.PostbackAction{
					Label: "Select",
					Data: url.Values{
						"action":    {ActionSelectAssistant},
						"assistant": {a.Key},
					}.Encode(),
				},
			},
		})
	}
	return messaging_api.TemplateMessage{
		AltText:  "Select an assistant.",
		Template: messaging_api.CarouselTemplate{Columns: columns},
	}
}

func truncateColumnText(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxColumnText {
		return string(runes)
	}
	return string(runes[:maxColumnText-1]) + "…"
}
