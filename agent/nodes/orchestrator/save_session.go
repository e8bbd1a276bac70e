package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/hotel-whatsapp-concierge/agent/contract"
	statex "github.com/tanpawarit/hotel-whatsapp-concierge/agent/state"
)

func SaveSession(ctx context.Context, in *GraphState, sessions SessionRegistry) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	// The user id may be empty; the registry keys on it as given.
	if err := statex.ValidateLog(in.Log); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}

	if err := sessions.Save(ctx, in.UserID, in.Log); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return in, nil
}
