package utils

import (
	"context"
)

// CustomContext carries the identity of the user whose mailbox is being
// processed, so spans and logs emitted deeper in the stack can be attributed.
type CustomContext struct {
	UserId    string
	UserEmail string
}

var customContextKey = "CUSTOM_CONTEXT"

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey, customContext)
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey).(*CustomContext)
	if !ok {
		return &CustomContext{}
	}
	return customContext
}

func GetUserIdFromContext(ctx context.Context) string {
	return GetContext(ctx).UserId
}

func GetUserEmailFromContext(ctx context.Context) string {
	return GetContext(ctx).UserEmail
}
