package handlers

import "context"

type contextKey string

const creatorContextKey contextKey = "creator"

// ContextWithCreator stores the authenticated survey author's id.
func ContextWithCreator(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, creatorContextKey, id)
}

// CreatorFromContext extracts the authenticated survey author's id.
func CreatorFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(creatorContextKey).(int)
	return id, ok
}
