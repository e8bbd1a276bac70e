package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
	statex "github.com/tanpawarit/hotel-whatsapp-concierge/agent/state"
	toolx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/tool"
)

const DefaultMaxToolRounds = 8

// ToolExecutor runs one model-requested tool call and returns its text.
// An error is fatal for the turn; tool-level problems come back as text.
type ToolExecutor interface {
	Infos() []*schema.ToolInfo
	Execute(ctx context.Context, call schema.ToolCall) (string, error)
}

// ToolCallObserver is told about every executed tool call.
type ToolCallObserver interface {
	ObserveToolCall(tool string)
}

type TurnConfig struct {
	MaxToolRounds int `split_words:"true" default:"8"`
}

func (c *TurnConfig) Validate() error {
	if c.MaxToolRounds < 1 {
		return fmt.Errorf("%w: max tool rounds must be >= 1", contractx.ErrValidation)
	}
	return nil
}

// TurnRunner drives one conversation turn: model call, tool execution, and
// back to the model until it answers without tool calls.
type TurnRunner struct {
	modelRunner  compose.Runnable[[]*schema.Message, *schema.Message]
	tools        ToolExecutor
	systemPrompt string
	maxRounds    int
	observer     ToolCallObserver
}

type TurnOption func(*TurnRunner)

func WithToolCallObserver(o ToolCallObserver) TurnOption {
	return func(r *TurnRunner) {
		r.observer = o
	}
}

func NewTurnRunner(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	tools ToolExecutor,
	systemPrompt string,
	cfg TurnConfig,
	opts ...TurnOption,
) (*TurnRunner, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if tools == nil {
		return nil, errors.New("tool executor is required")
	}
	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		return nil, fmt.Errorf("%w: assistant system prompt", contractx.ErrPromptMissing)
	}
	maxRounds := cfg.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}

	toolModel, err := chatModel.WithTools(tools.Infos())
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}

	chain := compose.NewChain[[]*schema.Message, *schema.Message]()
	chain.AppendChatModel(toolModel)
	modelRunner, err := chain.Compile(ctx, compose.WithGraphName("orchestrator.turn_model"))
	if err != nil {
		return nil, fmt.Errorf("%w: compile turn model chain: %v", contractx.ErrModelInvoke, err)
	}

	r := &TurnRunner{
		modelRunner:  modelRunner,
		tools:        tools,
		systemPrompt: systemPrompt,
		maxRounds:    maxRounds,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// RunTurn extends history until the model replies without tool calls.
// The input slice and its messages are never modified. On error the
// partial log is discarded.
func (r *TurnRunner) RunTurn(ctx context.Context, history []*schema.Message) ([]*schema.Message, error) {
	msgs := make([]*schema.Message, 0, len(history)+4)
	if !statex.HasSystemMessage(history) {
		msgs = append(msgs, schema.SystemMessage(r.systemPrompt))
	}
	msgs = append(msgs, history...)

	logger := log.With().
		Str("component", "turn").
		Str("user_id", toolx.UserIDFromContext(ctx)).
		Logger()

	for round := 0; ; round++ {
		reply, err := r.modelRunner.Invoke(ctx, msgs)
		if err != nil {
			return nil, fmt.Errorf("%w: round %d: %v", contractx.ErrModelInvoke, round, err)
		}
		if reply == nil {
			return nil, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
		}
		if reply.Role == "" {
			fixed := *reply
			fixed.Role = schema.Assistant
			reply = &fixed
		}
		msgs = append(msgs, reply)

		if len(reply.ToolCalls) == 0 {
			logger.Debug().Int("round", round).Msg("turn finished")
			return msgs, nil
		}
		if round >= r.maxRounds {
			return nil, fmt.Errorf("%w: model still requesting tools after %d rounds", contractx.ErrToolRoundsExceeded, r.maxRounds)
		}

		for _, call := range reply.ToolCalls {
			logger.Debug().
				Int("round", round).
				Str("tool", call.Function.Name).
				Str("call_id", call.ID).
				Msg("executing tool call")

			text, err := r.tools.Execute(ctx, call)
			if err != nil {
				return nil, err
			}
			if r.observer != nil {
				r.observer.ObserveToolCall(call.Function.Name)
			}
			msgs = append(msgs, schema.ToolMessage(text, call.ID))
		}
	}
}
