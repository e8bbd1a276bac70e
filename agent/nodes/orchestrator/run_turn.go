package orchestratornode

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
	toolx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/tool"
)

type TurnRunner interface {
	RunTurn(ctx context.Context, log []*schema.Message) ([]*schema.Message, error)
}

func RunTurn(ctx context.Context, in *GraphState, runner TurnRunner) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	before := len(in.Log)
	out, err := runner.RunTurn(toolx.WithUserID(ctx, in.UserID), in.Log)
	if err != nil {
		return nil, err
	}

	in.Log = out
	in.Rounds = countToolRounds(out, before)
	if n := len(out); n > 0 && out[n-1].Role == schema.Assistant {
		in.Reply = out[n-1].Content
	}
	return in, nil
}

// countToolRounds counts assistant messages carrying tool calls. The turn
// may have prepended a system message, so the scan starts one early.
func countToolRounds(log []*schema.Message, before int) int {
	start := before - 1
	if start < 0 {
		start = 0
	}
	rounds := 0
	for _, msg := range log[start:] {
		if msg.Role == schema.Assistant && len(msg.ToolCalls) > 0 {
			rounds++
		}
	}
	return rounds
}
