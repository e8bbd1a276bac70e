package orchestratornode

import (
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
)

func AppendUserMessage(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	log := make([]*schema.Message, 0, len(in.Log)+1)
	log = append(log, in.Log...)
	in.Log = append(log, schema.UserMessage(in.Text))
	return in, nil
}
