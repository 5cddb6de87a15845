package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/studydesk-backend/internal/data/repos/testutil"
	"github.com/yungbote/studydesk-backend/internal/pkg/ctxutil"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

func TestAuthRoundTrip(t *testing.T) {
	svc := NewAuthService(testutil.Logger(t), "secret")
	owner := uuid.New()
	tok, err := svc.IssueToken(owner, time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ctx, err := svc.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	got, ok := ctxutil.Owner(ctx)
	if !ok || got != owner {
		t.Fatalf("owner: want=%s got=%s", owner, got)
	}
}

func TestAuthRejects(t *testing.T) {
	svc := NewAuthService(testutil.Logger(t), "secret").(*authService)
	other := NewAuthService(testutil.Logger(t), "different")

	foreign, err := other.IssueToken(uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	expired, err := svc.IssueToken(uuid.New(), time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	for name, tok := range map[string]string{"empty": "", "garbage": "a.b.c", "wrong key": foreign, "expired": expired} {
		if _, err := svc.SetContextFromToken(context.Background(), tok); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Fatalf("%s: want=%v got=%v", name, apperr.ErrUnauthorized, err)
		}
	}
}
