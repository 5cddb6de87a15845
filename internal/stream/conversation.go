package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Status string

const (
	StatusComplete  Status = "complete"
	StatusStreaming Status = "streaming"
	StatusAborted   Status = "aborted"
	StatusFailed    Status = "failed"
)

// NotesSourceLabel marks replies that were grounded on the user's notes.
const NotesSourceLabel = "Your uploaded notes"

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (m ChatMessage) clone() ChatMessage {
	if m.Sources != nil {
		m.Sources = append([]string(nil), m.Sources...)
	}
	return m
}

// ReplyState is the per-conversation reply state.
type ReplyState int

const (
	StateIdle ReplyState = iota
	StateStreamingReply
)

func (s ReplyState) String() string {
	if s == StateStreamingReply {
		return "streaming_reply"
	}
	return "idle"
}

// Opener starts an answer stream for a question.
type Opener interface {
	Open(ctx context.Context, question, notesContext string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, question, notesContext string) (io.ReadCloser, error)

func (f OpenerFunc) Open(ctx context.Context, question, notesContext string) (io.ReadCloser, error) {
	return f(ctx, question, notesContext)
}

// NewMessageID returns a creation-ordered unique id.
func NewMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Conversation owns an ordered message list and at most one streaming reply.
// Readers always receive copies; writers replace the trailing message under
// the write lock.
type Conversation struct {
	ID string

	mu       sync.RWMutex
	messages []ChatMessage
	state    ReplyState
	busy     bool
	cancel   context.CancelFunc
}

func NewConversation(id string, history []ChatMessage) *Conversation {
	c := &Conversation{ID: id}
	for _, m := range history {
		m = m.clone()
		if m.Status == StatusStreaming {
			// A reply that was mid-stream when persisted can never resume.
			m.Status = StatusAborted
		}
		c.messages = append(c.messages, m)
	}
	return c
}

// Snapshot returns a copy of the message list.
func (c *Conversation) Snapshot() []ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ChatMessage, len(c.messages))
	for i := range c.messages {
		out[i] = c.messages[i].clone()
	}
	return out
}

func (c *Conversation) State() ReplyState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Busy reports whether an Ask is in flight, streaming or not.
func (c *Conversation) Busy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.busy
}

// Cancel aborts the in-flight reply, if any.
func (c *Conversation) Cancel() bool {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

type askOptions struct {
	onDelta func(fragment string, msg ChatMessage)
	onUser  func(msg ChatMessage)
	result  *Result
}

type AskOption func(*askOptions)

// WithDeltaHook is called after each applied fragment with a copy of the
// updated assistant message.
func WithDeltaHook(fn func(fragment string, msg ChatMessage)) AskOption {
	return func(o *askOptions) { o.onDelta = fn }
}

// WithUserHook is called once the user message has been appended.
func WithUserHook(fn func(msg ChatMessage)) AskOption {
	return func(o *askOptions) { o.onUser = fn }
}

// WithResult stores the ingestion counters into dst when the stream ends.
func WithResult(dst *Result) AskOption {
	return func(o *askOptions) { o.result = dst }
}

// Ask appends the user's question, opens an answer stream and ingests it
// into a single assistant message. The returned message is the frozen
// reply; it is zero when the stream failed before any content arrived.
func (c *Conversation) Ask(ctx context.Context, opener Opener, question, notesContext string, opts ...AskOption) (ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ChatMessage{}, fmt.Errorf("%w: question is required", apperr.ErrInvalidArgument)
	}
	if opener == nil {
		return ChatMessage{}, fmt.Errorf("%w: opener is required", apperr.ErrInvalidArgument)
	}
	var o askOptions
	for _, opt := range opts {
		opt(&o)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ChatMessage{}, apperr.ErrReplyInFlight
	}
	user := ChatMessage{
		ID:        NewMessageID(),
		Role:      RoleUser,
		Content:   question,
		Status:    StatusComplete,
		CreatedAt: time.Now().UTC(),
	}
	c.messages = append(c.messages, user)
	c.busy = true
	c.cancel = cancel
	c.mu.Unlock()

	if o.onUser != nil {
		o.onUser(user.clone())
	}

	var sources []string
	if strings.TrimSpace(notesContext) != "" {
		sources = []string{NotesSourceLabel}
	}

	body, err := opener.Open(ctx, question, notesContext)
	if err == nil && body == nil {
		err = apperr.ErrNoStream
	}
	if err != nil {
		c.release()
		if ctx.Err() != nil && !errors.Is(err, apperr.ErrRequestFailed) {
			return ChatMessage{}, fmt.Errorf("%w: %v", apperr.ErrStreamAborted, err)
		}
		return ChatMessage{}, err
	}
	defer body.Close()

	sink := SinkFunc(func(fragment string) {
		msg := c.applyDelta(fragment, sources)
		if o.onDelta != nil {
			o.onDelta(fragment, msg)
		}
	})
	res, ingestErr := Ingest(ctx, body, sink)
	if o.result != nil {
		*o.result = res
	}

	final := StatusComplete
	switch {
	case ingestErr == nil:
	case errors.Is(ingestErr, apperr.ErrStreamAborted):
		final = StatusAborted
	default:
		final = StatusFailed
	}
	msg, ok := c.finish(final)
	if !ok {
		return ChatMessage{}, ingestErr
	}
	return msg, ingestErr
}

func (c *Conversation) applyDelta(fragment string, sources []string) ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		c.messages = append(c.messages, ChatMessage{
			ID:        NewMessageID(),
			Role:      RoleAssistant,
			Sources:   append([]string(nil), sources...),
			Status:    StatusStreaming,
			CreatedAt: time.Now().UTC(),
		})
		c.state = StateStreamingReply
	}
	last := len(c.messages) - 1
	next := c.messages[last].clone()
	next.Content += fragment
	c.messages[last] = next
	return next.clone()
}

// finish freezes the streaming reply (if one was started) and returns to Idle.
func (c *Conversation) finish(status Status) (ChatMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	c.cancel = nil
	if c.state != StateStreamingReply {
		return ChatMessage{}, false
	}
	c.state = StateIdle
	last := len(c.messages) - 1
	next := c.messages[last].clone()
	next.Status = status
	c.messages[last] = next
	return next.clone(), true
}

func (c *Conversation) release() {
	c.mu.Lock()
	c.busy = false
	c.cancel = nil
	c.mu.Unlock()
}
