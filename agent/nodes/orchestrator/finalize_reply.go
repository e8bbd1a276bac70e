package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

// FinalizeReply may yield an empty reply; the webhook then answers with no
// message.
func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	return GraphOutput{
		Reply:  strings.TrimSpace(in.Reply),
		Rounds: in.Rounds,
	}, nil
}
