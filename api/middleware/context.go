package middleware

import "context"

type contextKey string

const (
	ctxUserID     contextKey = "user_id"
	ctxRole       contextKey = "actor_role"
	ctxMemberRole contextKey = "member_role"
	ctxTefaID     contextKey = "tefa_id"
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRole)
}

func MemberRoleFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxMemberRole)
}

func TefaIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxTefaID)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithTefaID injects the active tefa identifier for downstream handlers.
func WithTefaID(ctx context.Context, tefaID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxTefaID, tefaID)
}
