// Package handlers contains the echo HTTP handlers.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// Router consumes the parsed events of one webhook delivery.
type Router interface {
	HandleEvents(ctx context.Context, events []webhook.EventInterface) error
}

// WebhookHandler terminates LINE webhook deliveries: signature
// verification via the SDK parser, then sequential event processing.
type WebhookHandler struct {
	logger        *slog.Logger
	channelSecret string
	router        Router
}

// NewWebhookHandler creates the webhook handler.
func NewWebhookHandler(log *slog.Logger, channelSecret string, router Router) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		logger:        log.With(slog.String("handler", "webhook")),
		channelSecret: channelSecret,
		router:        router,
	}
}

// Register mounts the handler routes.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/callback", h.Callback)
	e.GET("/health", h.Health)
}

// Callback handles one webhook delivery. An invalid signature yields 400;
// a collaborator failure while processing yields 500; otherwise the
// delivery is acknowledged with 200 once every event is processed.
func (h *WebhookHandler) Callback(c echo.Context) error {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request())
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			return c.String(http.StatusBadRequest, "invalid signature")
		}
		return c.String(http.StatusBadRequest, "malformed request")
	}

	deliveryID := uuid.NewString()
	log := h.logger.With(slog.String("delivery_id", deliveryID))
	log.Debug("webhook delivery received", slog.Int("events", len(cb.Events)))

	if err := h.router.HandleEvents(c.Request().Context(), cb.Events); err != nil {
		log.Error("delivery processing failed", slog.Any("error", err))
		return c.String(http.StatusInternalServerError, "processing failed")
	}
	return c.String(http.StatusOK, "OK")
}

// Health is the liveness endpoint.
func (h *WebhookHandler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
