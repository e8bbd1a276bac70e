package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
	openrouterx "github.com/tanpawarit/hotel-whatsapp-concierge/pkg/openrouter"
)

type Backend string

const (
	// BackendEino talks to OpenRouter through the eino-ext OpenAI model.
	BackendEino Backend = "eino"
	// BackendOpenAI talks to OpenRouter through the openai-go SDK directly.
	BackendOpenAI Backend = "openai"
)

type Config struct {
	Backend Backend `envconfig:"BACKEND" default:"eino"`
}

func (c *Config) Validate() error {
	switch Backend(strings.ToLower(strings.TrimSpace(string(c.Backend)))) {
	case BackendEino, BackendOpenAI:
		return nil
	default:
		return fmt.Errorf("%w: unknown llm backend %q", contractx.ErrValidation, c.Backend)
	}
}

// NewChatModel builds the chat model for the configured backend. Tools are
// bound by the caller with WithTools.
func NewChatModel(ctx context.Context, cfg Config, or openrouterx.Config) (model.ToolCallingChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch Backend(strings.ToLower(strings.TrimSpace(string(cfg.Backend)))) {
	case BackendOpenAI:
		client := openrouterx.NewClient(or)
		if client == nil {
			return nil, fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
		}
		return NewOpenAIChatModel(client, OpenAIOptions{
			Model:       strings.TrimSpace(or.Model),
			Temperature: or.Temperature,
			MaxTokens:   or.MaxCompletionToken,
		}), nil
	default:
		return or.New(ctx)
	}
}
