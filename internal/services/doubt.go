package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/russross/blackfriday"

	"github.com/yungbote/studydesk-backend/internal/data/convstore"
	"github.com/yungbote/studydesk-backend/internal/generation"
	"github.com/yungbote/studydesk-backend/internal/observability"
	"github.com/yungbote/studydesk-backend/internal/pkg/ctxutil"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/gateway"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
	"github.com/yungbote/studydesk-backend/internal/stream"
)

// maxHistory bounds the prior turns replayed to the model.
const maxHistory = 20

// ChatStreamer opens a streamed chat completion. *gateway.Client
// implements it.
type ChatStreamer interface {
	StreamChat(ctx context.Context, messages []gateway.Message) (io.ReadCloser, error)
}

type AskInput struct {
	Question string `json:"question"`
	// Notes replaces the conversation's notes context when set.
	Notes *string `json:"context,omitempty"`
}

type AskHooks struct {
	OnUser  func(msg stream.ChatMessage)
	OnDelta func(fragment string, msg stream.ChatMessage)
}

type DoubtService interface {
	Create(ctx context.Context, title, notes string) (*convstore.Record, error)
	List(ctx context.Context) ([]convstore.Summary, error)
	Get(ctx context.Context, id string) (*convstore.Record, error)
	// Ask streams one answer into the conversation and persists it,
	// whatever its final status.
	Ask(ctx context.Context, id string, in AskInput, hooks AskHooks) (stream.ChatMessage, error)
	// AskOnce answers without keeping a conversation.
	AskOnce(ctx context.Context, question, notes string, onDelta func(fragment string)) (stream.ChatMessage, error)
	// Cancel stops the reply streaming in id, if any.
	Cancel(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	ExportHTML(ctx context.Context, id string) ([]byte, error)
}

type doubtService struct {
	log           *logger.Logger
	store         convstore.Store
	chat          ChatStreamer
	prompts       *generation.Prompts
	streamTimeout time.Duration
	metrics       *observability.Metrics
	now           func() time.Time

	mu   sync.Mutex
	live map[string]*liveConversation
}

// liveConversation is a conversation with a reply in progress. Saves and
// deletion are serialized on mu; once deleted is set nothing is saved.
type liveConversation struct {
	conv    *stream.Conversation
	mu      sync.Mutex
	deleted bool
}

func (lc *liveConversation) save(ctx context.Context, store convstore.Store, rec *convstore.Record) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.deleted {
		return nil
	}
	return store.Save(ctx, rec)
}

func (lc *liveConversation) markDeleted() {
	lc.mu.Lock()
	lc.deleted = true
	lc.mu.Unlock()
}

func NewDoubtService(log *logger.Logger, store convstore.Store, chat ChatStreamer, prompts *generation.Prompts, streamTimeout time.Duration, metrics *observability.Metrics) DoubtService {
	if prompts == nil {
		prompts = generation.DefaultPrompts()
	}
	return &doubtService{
		log:           log.With("service", "DoubtService"),
		store:         store,
		chat:          chat,
		prompts:       prompts,
		streamTimeout: streamTimeout,
		metrics:       metrics,
		now:           time.Now,
		live:          map[string]*liveConversation{},
	}
}

func ownerKey(ctx context.Context) (string, error) {
	id, ok := ctxutil.Owner(ctx)
	if !ok {
		return "", apperr.ErrUnauthorized
	}
	return id.String(), nil
}

func (s *doubtService) Create(ctx context.Context, title, notes string) (*convstore.Record, error) {
	owner, err := ownerKey(ctx)
	if err != nil {
		return nil, err
	}
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("conversation id: %w", err)
	}
	now := s.now().UTC()
	rec := &convstore.Record{
		ID:        id,
		OwnerID:   owner,
		Title:     strings.TrimSpace(title),
		Notes:     notes,
		Messages:  []stream.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *doubtService) List(ctx context.Context) ([]convstore.Summary, error) {
	owner, err := ownerKey(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, owner)
}

// Get returns the stored conversation, with the live message list when a
// reply is streaming.
func (s *doubtService) Get(ctx context.Context, id string) (*convstore.Record, error) {
	owner, err := ownerKey(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	lc := s.live[liveKey(owner, id)]
	s.mu.Unlock()
	if lc != nil {
		rec.Messages = lc.conv.Snapshot()
	}
	return rec, nil
}

func liveKey(owner, id string) string { return owner + "/" + id }

// acquire returns the in-memory conversation for rec, creating it from the
// stored history when no reply is running.
func (s *doubtService) acquire(owner string, rec *convstore.Record) *liveConversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := liveKey(owner, rec.ID)
	if lc, ok := s.live[key]; ok {
		return lc
	}
	lc := &liveConversation{conv: stream.NewConversation(rec.ID, rec.Messages)}
	s.live[key] = lc
	return lc
}

func (s *doubtService) releaseIdle(owner, id string, lc *liveConversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := liveKey(owner, id)
	if s.live[key] == lc && !lc.conv.Busy() {
		delete(s.live, key)
	}
}

func (s *doubtService) Ask(ctx context.Context, id string, in AskInput, hooks AskHooks) (stream.ChatMessage, error) {
	owner, err := ownerKey(ctx)
	if err != nil {
		return stream.ChatMessage{}, err
	}
	rec, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return stream.ChatMessage{}, err
	}
	if in.Notes != nil {
		rec.Notes = *in.Notes
	}
	if rec.Title == "" {
		rec.Title = truncateRunes(strings.TrimSpace(in.Question), 60)
	}

	lc := s.acquire(owner, rec)
	defer s.releaseIdle(owner, id, lc)
	conv := lc.conv

	history := conv.Snapshot()
	// Persisting must outlive a client disconnect so aborted replies are kept.
	saveCtx := context.WithoutCancel(ctx)
	persist := func() {
		rec.Messages = conv.Snapshot()
		rec.UpdatedAt = s.now().UTC()
		if err := lc.save(saveCtx, s.store, rec); err != nil {
			s.log.Error("conversation not saved", "conversation_id", rec.ID, "error", err)
		}
	}

	started := false
	msg, err := s.run(ctx, conv, history, in.Question, rec.Notes, func(u stream.ChatMessage) {
		started = true
		persist()
		if hooks.OnUser != nil {
			hooks.OnUser(u)
		}
	}, hooks.OnDelta)
	if started {
		persist()
	}
	return msg, err
}

func (s *doubtService) AskOnce(ctx context.Context, question, notes string, onDelta func(fragment string)) (stream.ChatMessage, error) {
	if _, err := ownerKey(ctx); err != nil {
		return stream.ChatMessage{}, err
	}
	conv := stream.NewConversation(stream.NewMessageID(), nil)
	var hook func(string, stream.ChatMessage)
	if onDelta != nil {
		hook = func(fragment string, _ stream.ChatMessage) { onDelta(fragment) }
	}
	return s.run(ctx, conv, nil, question, notes, nil, hook)
}

// run performs one Ask with metrics and the stream timeout applied.
func (s *doubtService) run(ctx context.Context, conv *stream.Conversation, history []stream.ChatMessage, question, notes string, onUser func(stream.ChatMessage), onDelta func(string, stream.ChatMessage)) (stream.ChatMessage, error) {
	if s.streamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.streamTimeout)
		defer cancel()
	}

	var (
		res    stream.Result
		active bool
	)
	opts := []stream.AskOption{
		stream.WithResult(&res),
		stream.WithUserHook(func(u stream.ChatMessage) {
			active = true
			s.metrics.ReplyStarted()
			if onUser != nil {
				onUser(u)
			}
		}),
	}
	if onDelta != nil {
		opts = append(opts, stream.WithDeltaHook(onDelta))
	}

	msg, err := conv.Ask(ctx, s.opener(history), question, notes, opts...)
	if active {
		status := string(msg.Status)
		if msg.ID == "" {
			status = replyStatusOf(err)
		}
		s.metrics.ReplyFinished(status, res.Deltas, res.Malformed)
	}
	if err != nil && !errors.Is(err, apperr.ErrReplyInFlight) {
		s.log.Warn("doubt reply ended with error", "conversation_id", conv.ID, "status", msg.Status, "error", err)
	}
	return msg, err
}

func replyStatusOf(err error) string {
	switch {
	case err == nil:
		return "empty"
	case errors.Is(err, apperr.ErrStreamAborted):
		return string(stream.StatusAborted)
	default:
		return string(stream.StatusFailed)
	}
}

func (s *doubtService) opener(history []stream.ChatMessage) stream.Opener {
	return stream.OpenerFunc(func(ctx context.Context, question, notes string) (io.ReadCloser, error) {
		return s.chat.StreamChat(ctx, s.buildMessages(history, question, notes))
	})
}

// buildMessages renders the system prompt (with notes when given), the most
// recent settled turns, and the new question.
func (s *doubtService) buildMessages(history []stream.ChatMessage, question, notes string) []gateway.Message {
	system := strings.TrimSpace(s.prompts.Doubt.System)
	if n := strings.TrimSpace(notes); n != "" {
		system += "\n\nStudy notes:\n" + n
	}
	msgs := []gateway.Message{{Role: gateway.RoleSystem, Content: system}}

	turns := make([]gateway.Message, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" || m.Status == stream.StatusStreaming || m.Status == stream.StatusFailed {
			continue
		}
		role := gateway.RoleUser
		if m.Role == stream.RoleAssistant {
			role = gateway.RoleAssistant
		}
		turns = append(turns, gateway.Message{Role: role, Content: m.Content})
	}
	if len(turns) > maxHistory {
		turns = turns[len(turns)-maxHistory:]
	}
	msgs = append(msgs, turns...)
	return append(msgs, gateway.Message{Role: gateway.RoleUser, Content: strings.TrimSpace(question)})
}

func (s *doubtService) Cancel(ctx context.Context, id string) (bool, error) {
	owner, err := ownerKey(ctx)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	lc := s.live[liveKey(owner, id)]
	s.mu.Unlock()
	if lc == nil {
		if _, err := s.store.Get(ctx, owner, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return lc.conv.Cancel(), nil
}

func (s *doubtService) Delete(ctx context.Context, id string) error {
	owner, err := ownerKey(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	lc := s.live[liveKey(owner, id)]
	delete(s.live, liveKey(owner, id))
	s.mu.Unlock()
	if lc != nil {
		// Wait out an in-flight save, then stop the reply from writing
		// the record back.
		lc.markDeleted()
		lc.conv.Cancel()
	}
	return s.store.Delete(ctx, owner, id)
}

const exportExtensions = blackfriday.EXTENSION_NO_INTRA_EMPHASIS |
	blackfriday.EXTENSION_TABLES |
	blackfriday.EXTENSION_FENCED_CODE |
	blackfriday.EXTENSION_AUTOLINK |
	blackfriday.EXTENSION_STRIKETHROUGH |
	blackfriday.EXTENSION_SPACE_HEADERS

// ExportHTML renders the transcript as a standalone HTML page. Raw HTML in
// messages is dropped.
func (s *doubtService) ExportHTML(ctx context.Context, id string) ([]byte, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	title := rec.Title
	if title == "" {
		title = "Doubt solver conversation"
	}
	md := TranscriptMarkdown(title, rec.Messages)
	renderer := blackfriday.HtmlRenderer(
		blackfriday.HTML_USE_XHTML|blackfriday.HTML_SKIP_HTML|blackfriday.HTML_SAFELINK|blackfriday.HTML_COMPLETE_PAGE,
		title,
		"",
	)
	return blackfriday.Markdown(md, renderer, exportExtensions), nil
}

// TranscriptMarkdown formats messages as a markdown document.
func TranscriptMarkdown(title string, msgs []stream.ChatMessage) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, m := range msgs {
		who := "You"
		if m.Role == stream.RoleAssistant {
			who = "Tutor"
		}
		fmt.Fprintf(&b, "### %s\n\n", who)
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteString("\n\n")
		if len(m.Sources) > 0 {
			fmt.Fprintf(&b, "*Sources: %s*\n\n", strings.Join(m.Sources, ", "))
		}
		switch m.Status {
		case stream.StatusAborted:
			b.WriteString("*(reply stopped)*\n\n")
		case stream.StatusFailed:
			b.WriteString("*(reply failed)*\n\n")
		}
	}
	return b.Bytes()
}
