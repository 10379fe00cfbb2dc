package utils

import (
	"context"
)

type contextKey string

const (
	ContextRunIDKey contextKey = "runID"
	ContextAdminKey contextKey = "admin"
)

// WithRunID tags ctx with the id of the reload it belongs to.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextRunIDKey, runID)
}

func GetRunIDFromContext(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(ContextRunIDKey).(string)
	return runID, ok
}

// WithAdmin marks ctx as carrying a verified admin token.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextAdminKey, true)
}

func IsAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(ContextAdminKey).(bool)
	return ok
}
