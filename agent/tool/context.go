package tool

import "context"

type userIDKey struct{}

// WithUserID tags ctx with the conversation's user identifier so tool
// failures can be attributed.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey{}).(string); ok {
		return v
	}
	return ""
}
