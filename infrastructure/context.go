package infrastructure

import "context"

type userIDKeyType struct{}

var userIDKey userIDKeyType

// WithUserID stores the authenticated user ID resolved by the auth
// middleware; handlers read it back with UserIDFromContext.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}
