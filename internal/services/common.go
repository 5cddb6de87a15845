package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/studydesk-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studydesk-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

// requireOwner returns the authenticated owner or ErrUnauthorized.
func requireOwner(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctxutil.Owner(ctx)
	if !ok {
		return uuid.Nil, apperr.ErrUnauthorized
	}
	return id, nil
}

func dbc(ctx context.Context) dbctx.Context {
	return dbctx.Context{Ctx: ctx}
}

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s id %q", apperr.ErrInvalidArgument, what, raw)
	}
	return id, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
