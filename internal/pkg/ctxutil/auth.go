package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type ownerKey struct{}

// WithOwner stores the authenticated owner id on ctx.
func WithOwner(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(Default(ctx), ownerKey{}, id)
}

// Owner returns the authenticated owner id, or uuid.Nil when absent.
func Owner(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(ownerKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
