package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

// fakeToolCallingModel answers from a script, or from respond when set.
type fakeToolCallingModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	respond   func(input []*schema.Message) (*schema.Message, error)
	err       error
	idx       int
	inputs    [][]*schema.Message
	tools     []*schema.ToolInfo
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, append([]*schema.Message(nil), input...))
	if f.err != nil {
		return nil, f.err
	}
	if f.respond != nil {
		return f.respond(input)
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.tools = tools
	return f, nil
}

func (f *fakeToolCallingModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

type executedCall struct {
	name string
	id   string
}

type fakeExecutor struct {
	mu       sync.Mutex
	executed []executedCall
	err      error
}

func (f *fakeExecutor) Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{{Name: "get_menu"}, {Name: "get_item_details"}}
}

func (f *fakeExecutor) Execute(ctx context.Context, call schema.ToolCall) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.executed = append(f.executed, executedCall{name: call.Function.Name, id: call.ID})
	return "result of " + call.ID, nil
}

type fakeMenu struct {
	items []contractx.MenuItem
	err   error
}

func (f *fakeMenu) ListItems(ctx context.Context) ([]contractx.MenuItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]contractx.MenuItem(nil), f.items...), nil
}

type fakeOrders struct {
	mu     sync.Mutex
	orders []contractx.Order
}

func (f *fakeOrders) AppendOrder(ctx context.Context, order contractx.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	return nil
}

type fakeObserver struct {
	mu       sync.Mutex
	outcomes []string
	rounds   []int
	tools    []string
}

func (f *fakeObserver) ObserveTurn(outcome string, rounds int, elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	f.rounds = append(f.rounds, rounds)
}

func (f *fakeObserver) ObserveToolCall(tool string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tools = append(f.tools, tool)
}

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}
}

func assistantWithCalls(calls ...schema.ToolCall) *schema.Message {
	return &schema.Message{Role: schema.Assistant, ToolCalls: calls}
}

func countSystem(msgs []*schema.Message) int {
	n := 0
	for _, m := range msgs {
		if m.Role == schema.System {
			n++
		}
	}
	return n
}
