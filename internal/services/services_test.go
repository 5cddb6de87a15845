package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studydesk-backend/internal/data/repos"
	"github.com/yungbote/studydesk-backend/internal/data/repos/testutil"
	"github.com/yungbote/studydesk-backend/internal/generation"
	"github.com/yungbote/studydesk-backend/internal/pkg/ctxutil"
	"github.com/yungbote/studydesk-backend/internal/platform/gateway"
)

type fixture struct {
	db    *gorm.DB
	set   repos.Set
	owner uuid.UUID
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	owner := uuid.New()
	return &fixture{
		db:    db,
		set:   repos.NewSet(db, testutil.Logger(t)),
		owner: owner,
		ctx:   ctxutil.WithOwner(context.Background(), owner),
	}
}

type fakeGenerator struct {
	mu   sync.Mutex
	reqs []generation.Request
	res  *generation.Result
	err  error
}

func (g *fakeGenerator) Generate(_ context.Context, req generation.Request) (*generation.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reqs = append(g.reqs, req)
	if g.err != nil {
		return nil, g.err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return g.res, nil
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	removed []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (s *fakeObjectStore) Put(_ context.Context, key, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeObjectStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.removed = append(s.removed, key)
	return nil
}

// fakeChat replays a fixed SSE body and records the messages it was sent.
type fakeChat struct {
	mu    sync.Mutex
	body  string
	err   error
	calls [][]gateway.Message
	// open, when set, supplies the body reader instead of body.
	open func(ctx context.Context) (io.ReadCloser, error)
}

func (c *fakeChat) StreamChat(ctx context.Context, messages []gateway.Message) (io.ReadCloser, error) {
	c.mu.Lock()
	c.calls = append(c.calls, append([]gateway.Message(nil), messages...))
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if c.open != nil {
		return c.open(ctx)
	}
	return io.NopCloser(strings.NewReader(c.body)), nil
}

func (c *fakeChat) lastCall(t *testing.T) []gateway.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.calls) == 0 {
		t.Fatalf("StreamChat was not called")
	}
	return c.calls[len(c.calls)-1]
}

func sseBody(fragments ...string) string {
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(`data: {"choices":[{"delta":{"content":"` + f + `"}}]}` + "\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

var errBoom = errors.New("boom")
