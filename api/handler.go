// Package api exposes the assistant over HTTP: the Twilio WhatsApp webhook
// plus a few operational endpoints.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	// ServiceName is reported by the health endpoint.
	ServiceName = "WhatsApp Hotel Chatbot"

	// ApologyReply is sent to the guest when a turn fails.
	ApologyReply = "Sorry, I'm having trouble right now. Please try again in a moment."

	whatsappPrefix = "whatsapp:"
)

type Config struct {
	Addr            string        `split_words:"true" default:":8000"`
	RequestTimeout  time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	AdminToken      string        `split_words:"true"`
}

// Conversations is the assistant as seen from the transport.
type Conversations interface {
	HandleMessage(ctx context.Context, userID string, text string) (string, error)
	ClearSession(ctx context.Context, userID string) (bool, error)
}

// Handler handles HTTP requests.
type Handler struct {
	conversations Conversations
	gatherer      prometheus.Gatherer
	config        Config
}

// NewHandler creates a new handler. A nil gatherer disables /metrics.
func NewHandler(conversations Conversations, gatherer prometheus.Gatherer, config Config) *Handler {
	return &Handler{
		conversations: conversations,
		gatherer:      gatherer,
		config:        config,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/webhook", h.Webhook)
	e.POST("/clear-session/:phone_number", h.ClearSession)

	e.GET("/health", h.Health)
	if h.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}

// twimlResponse is the TwiML document Twilio expects back from the webhook.
// An empty Message is omitted so Twilio sends nothing.
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// Webhook runs one conversation turn for an inbound WhatsApp message.
// A failed turn still answers 200, carrying ApologyReply.
func (h *Handler) Webhook(c echo.Context) error {
	body := strings.TrimSpace(c.FormValue("Body"))
	from := c.FormValue("From")

	ctx := c.Request().Context()
	if h.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.RequestTimeout)
		defer cancel()
	}

	reply, err := h.conversations.HandleMessage(ctx, from, body)
	if err != nil {
		log.Error().
			Err(err).
			Str("component", "webhook").
			Str("user_id", from).
			Msg("turn failed")
		reply = ApologyReply
	}

	return c.XML(http.StatusOK, twimlResponse{Message: reply})
}

// ClearSession drops the stored conversation for one phone number.
func (h *Handler) ClearSession(c echo.Context) error {
	if !h.authorized(c.Request()) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
	}

	userID := sessionKey(c.Param("phone_number"))
	if userID == whatsappPrefix {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "phone_number is required"})
	}

	cleared, err := h.conversations.ClearSession(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("component", "webhook").Str("user_id", userID).Msg("clear session failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to clear session"})
	}
	if !cleared {
		return c.JSON(http.StatusOK, map[string]string{"message": "No session found"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Session cleared"})
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

func (h *Handler) authorized(r *http.Request) bool {
	token := strings.TrimSpace(h.config.AdminToken)
	if token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) == 1
}

// sessionKey maps a phone number onto the Twilio sender id the webhook uses
// as session key.
func sessionKey(phone string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, whatsappPrefix) {
		return phone
	}
	return whatsappPrefix + phone
}
