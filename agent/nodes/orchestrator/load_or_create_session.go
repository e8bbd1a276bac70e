package orchestratornode

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
	statex "github.com/tanpawarit/hotel-whatsapp-concierge/agent/state"
)

// SessionRegistry is the slice of state.Registry the graph needs.
type SessionRegistry interface {
	GetOrCreate(ctx context.Context, userID string) (*statex.Session, error)
	Save(ctx context.Context, userID string, log []*schema.Message) error
}

func LoadOrCreateSession(ctx context.Context, in *GraphState, sessions SessionRegistry) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := sessions.GetOrCreate(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	in.Session = sess
	in.Log = sess.Log
	return in, nil
}
