package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

type OpenAIOptions struct {
	Model       string
	Temperature float32
	MaxTokens   *int
}

// OpenAIChatModel adapts the openai-go Chat Completions client to the eino
// ToolCallingChatModel interface.
type OpenAIChatModel struct {
	client *openaisdk.Client
	opts   OpenAIOptions
	tools  []openaisdk.ChatCompletionToolParam
}

var _ model.ToolCallingChatModel = (*OpenAIChatModel)(nil)

func NewOpenAIChatModel(client *openaisdk.Client, opts OpenAIOptions) *OpenAIChatModel {
	return &OpenAIChatModel{client: client, opts: opts}
}

// WithTools returns a copy bound to tools; the receiver is left unchanged.
func (m *OpenAIChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	params := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, info := range tools {
		p, err := toolParam(info)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	out := *m
	out.tools = params
	return &out, nil
}

func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	temperature := m.opts.Temperature
	modelName := m.opts.Model
	common := model.GetCommonOptions(&model.Options{
		Temperature: &temperature,
		Model:       &modelName,
		MaxTokens:   m.opts.MaxTokens,
	}, opts...)

	msgs, err := toOpenAIMessages(input)
	if err != nil {
		return nil, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(*common.Model),
		Messages: msgs,
		Tools:    m.tools,
	}
	if common.Temperature != nil {
		params.Temperature = openaisdk.Float(float64(*common.Temperature))
	}
	if common.MaxTokens != nil && *common.MaxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(*common.MaxTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat completion returned no choices", contractx.ErrSchemaViolation)
	}

	choice := resp.Choices[0]
	out := &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: choice.FinishReason,
			Usage: &schema.TokenUsage{
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			},
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out, nil
}

// Stream is served from a single Generate call.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func toOpenAIMessages(input []*schema.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(input))
	for i, msg := range input {
		if msg == nil {
			return nil, fmt.Errorf("%w: nil message at %d", contractx.ErrSchemaViolation, i)
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openaisdk.SystemMessage(msg.Content))
		case schema.User:
			out = append(out, openaisdk.UserMessage(msg.Content))
		case schema.Tool:
			out = append(out, openaisdk.ToolMessage(msg.Content, msg.ToolCallID))
		case schema.Assistant:
			asst := openaisdk.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				asst.Content.OfString = openaisdk.String(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			out = append(out, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		default:
			return nil, fmt.Errorf("%w: unsupported role %q at %d", contractx.ErrSchemaViolation, msg.Role, i)
		}
	}
	return out, nil
}

func toolParam(info *schema.ToolInfo) (openaisdk.ChatCompletionToolParam, error) {
	if info == nil {
		return openaisdk.ChatCompletionToolParam{}, fmt.Errorf("%w: nil tool info", contractx.ErrValidation)
	}

	parameters := openaisdk.FunctionParameters{"type": "object", "properties": map[string]any{}}
	if info.ParamsOneOf != nil {
		s, err := info.ParamsOneOf.ToOpenAPIV3()
		if err != nil {
			return openaisdk.ChatCompletionToolParam{}, fmt.Errorf("tool %s: convert params: %w", info.Name, err)
		}
		raw, err := json.Marshal(s)
		if err != nil {
			return openaisdk.ChatCompletionToolParam{}, fmt.Errorf("tool %s: marshal params: %w", info.Name, err)
		}
		parameters = openaisdk.FunctionParameters{}
		if err := json.Unmarshal(raw, &parameters); err != nil {
			return openaisdk.ChatCompletionToolParam{}, fmt.Errorf("tool %s: decode params: %w", info.Name, err)
		}
	}

	return openaisdk.ChatCompletionToolParam{
		Function: openaisdk.FunctionDefinitionParam{
			Name:        info.Name,
			Description: openaisdk.String(info.Desc),
			Parameters:  parameters,
		},
	}, nil
}
