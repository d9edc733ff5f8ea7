package userctx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	userKey ctxKey = "user"
	slotKey ctxKey = "caller_slot"
)

// slot is filled when the caller is authenticated deeper in the handler chain
type slot struct {
	userID uuid.UUID
}

// Create a new context with id of the authenticated caller
func New(ctx context.Context, userID uuid.UUID) context.Context {
	if s, ok := ctx.Value(slotKey).(*slot); ok {
		s.userID = userID
	}
	return context.WithValue(ctx, userKey, userID)
}

// Extract the caller id from the context
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	u, ok := ctx.Value(userKey).(uuid.UUID)
	return u, ok
}

// Track returns context that records the caller set by New on any derived context
// The returned func reports uuid.Nil until the caller is known
func Track(ctx context.Context) (context.Context, func() uuid.UUID) {
	s := &slot{}
	return context.WithValue(ctx, slotKey, s), func() uuid.UUID { return s.userID }
}
