package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/studydesk-backend/internal/data/convstore"
	"github.com/yungbote/studydesk-backend/internal/data/repos"
	"github.com/yungbote/studydesk-backend/internal/data/repos/testutil"
	"github.com/yungbote/studydesk-backend/internal/generation"
	httpH "github.com/yungbote/studydesk-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studydesk-backend/internal/http/middleware"
	"github.com/yungbote/studydesk-backend/internal/http/response"
	"github.com/yungbote/studydesk-backend/internal/observability"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/gateway"
	"github.com/yungbote/studydesk-backend/internal/services"
	"github.com/yungbote/studydesk-backend/internal/stream"
)

type stubGenerator struct {
	res *generation.Result
	err error
}

func (g *stubGenerator) Generate(_ context.Context, req generation.Request) (*generation.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return g.res, g.err
}

type stubChat struct {
	body string
	err  error
}

func (c *stubChat) StreamChat(context.Context, []gateway.Message) (io.ReadCloser, error) {
	if c.err != nil {
		return nil, c.err
	}
	return io.NopCloser(strings.NewReader(c.body)), nil
}

func sse(fragments ...string) string {
	var b strings.Builder
	for _, f := range fragments {
		b.WriteString(`data: {"choices":[{"delta":{"content":"` + f + `"}}]}` + "\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

type harness struct {
	router *gin.Engine
	token  string
	gen    *stubGenerator
	chat   *stubChat
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	set := repos.NewSet(testutil.DB(t), log)
	m := observability.New()
	auth := services.NewAuthService(log, "test-secret")
	tok, err := auth.IssueToken(uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	h := &harness{token: tok, gen: &stubGenerator{}, chat: &stubChat{}}
	doubt := services.NewDoubtService(log, convstore.NewMemoryStore(), h.chat, nil, 0, m)
	h.router = NewRouter(RouterConfig{
		Log:               log,
		Metrics:           m,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, auth),
		GenerationHandler: httpH.NewGenerationHandler(log, services.NewGenerationService(log, h.gen, set, m)),
		DoubtHandler:      httpH.NewDoubtHandler(log, doubt),
		DocumentHandler:   httpH.NewDocumentHandler(log, services.NewDocumentService(log, set.Documents, nil, m)),
		FlashcardHandler:  httpH.NewFlashcardHandler(services.NewFlashcardService(log, set.Flashcards)),
		QuizHandler:       httpH.NewQuizHandler(services.NewQuizService(log, set.Quizzes)),
		TaskHandler:       httpH.NewTaskHandler(services.NewTaskService(log, set.Tasks)),
		DashboardHandler:  httpH.NewDashboardHandler(services.NewDashboardService(log, set)),
		HealthHandler:     httpH.NewHealthHandler(nil),
	})
	return h
}

func (h *harness) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Authorization", "Bearer "+h.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(nethttp.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != nethttp.StatusUnauthorized {
		t.Fatalf("status: want=%d got=%d", nethttp.StatusUnauthorized, rec.Code)
	}

	req = httptest.NewRequest(nethttp.MethodGet, "/healthcheck", nil)
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("healthcheck: want=%d got=%d", nethttp.StatusOK, rec.Code)
	}
}

func TestGenerateContent(t *testing.T) {
	h := newHarness(t)
	h.gen.res = &generation.Result{
		Type: generation.TypeFlashcards,
		Flashcards: &generation.FlashcardSet{Flashcards: []generation.FlashcardItem{
			{Question: "Q1", Answer: "A1", Subject: "Biology"},
		}},
	}
	rec := h.do(t, nethttp.MethodPost, "/api/generate-content", gin.H{"content": "cells", "type": "flashcards"})
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	set := decode[generation.FlashcardSet](t, rec)
	if len(set.Flashcards) != 1 || set.Flashcards[0].Answer != "A1" {
		t.Fatalf("payload: %+v", set)
	}

	cases := []struct {
		err    error
		status int
	}{
		{apperr.ErrRateLimited, nethttp.StatusTooManyRequests},
		{apperr.ErrQuotaExceeded, nethttp.StatusPaymentRequired},
		{apperr.ErrGenerationFailed, nethttp.StatusInternalServerError},
		{apperr.ErrNoStructuredResult, nethttp.StatusInternalServerError},
	}
	for _, tc := range cases {
		h.gen.err = tc.err
		rec := h.do(t, nethttp.MethodPost, "/api/generate-content", gin.H{"content": "cells", "type": "quiz"})
		if rec.Code != tc.status {
			t.Fatalf("%v: status want=%d got=%d", tc.err, tc.status, rec.Code)
		}
		env := decode[response.ErrorEnvelope](t, rec)
		if env.Error.Message == "" {
			t.Fatalf("%v: empty error message", tc.err)
		}
	}

	h.gen.err = nil
	rec = h.do(t, nethttp.MethodPost, "/api/generate-content", gin.H{"content": " ", "type": "quiz"})
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("blank content: want=400 got=%d", rec.Code)
	}
}

func TestAskDoubtRelayRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.chat.body = sse("Osmo", "sis ", "é")

	rec := h.do(t, nethttp.MethodPost, "/api/ask-doubt", gin.H{"question": "What is osmosis?", "context": "notes"})
	if rec.Code != nethttp.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}
	if !strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n") {
		t.Fatalf("missing terminal sentinel: %q", rec.Body.String())
	}

	var got strings.Builder
	res, err := stream.Ingest(context.Background(), rec.Body, stream.SinkFunc(func(f string) { got.WriteString(f) }))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Done || got.String() != "Osmosis é" {
		t.Fatalf("relay: done=%v content=%q", res.Done, got.String())
	}
}

func TestAskDoubtUpstreamErrorIsJSON(t *testing.T) {
	h := newHarness(t)
	h.chat.err = apperr.ErrRateLimited
	rec := h.do(t, nethttp.MethodPost, "/api/ask-doubt", gin.H{"question": "Why?"})
	if rec.Code != nethttp.StatusTooManyRequests {
		t.Fatalf("status: want=429 got=%d", rec.Code)
	}
	if env := decode[response.ErrorEnvelope](t, rec); env.Error.Code != "rate_limited" {
		t.Fatalf("code: %+v", env)
	}
}

func TestConversationFlow(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, nethttp.MethodPost, "/api/conversations", gin.H{"title": "Cells"})
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("create: want=201 got=%d", rec.Code)
	}
	created := decode[struct {
		Conversation convstore.Record `json:"conversation"`
	}](t, rec)
	id := created.Conversation.ID

	h.chat.body = sse("**Mito**", " chondria")
	rec = h.do(t, nethttp.MethodPost, "/api/conversations/"+id+"/messages", gin.H{"question": "Powerhouse?"})
	body := rec.Body.String()
	for _, want := range []string{"event: user\n", "event: delta\n", "event: done\n"} {
		if !strings.Contains(body, want) {
			t.Fatalf("stream missing %q:\n%s", want, body)
		}
	}

	rec = h.do(t, nethttp.MethodGet, "/api/conversations/"+id, nil)
	got := decode[struct {
		Conversation convstore.Record `json:"conversation"`
	}](t, rec)
	if len(got.Conversation.Messages) != 2 || got.Conversation.Messages[1].Content != "**Mito** chondria" {
		t.Fatalf("messages: %+v", got.Conversation.Messages)
	}

	rec = h.do(t, nethttp.MethodGet, "/api/conversations/"+id+"/export", nil)
	if rec.Code != nethttp.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("export: status=%d type=%q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "<strong>Mito</strong> chondria") {
		t.Fatalf("export body:\n%s", rec.Body.String())
	}

	rec = h.do(t, nethttp.MethodPost, "/api/conversations/"+id+"/cancel", nil)
	if c := decode[map[string]bool](t, rec); c["cancelled"] {
		t.Fatalf("idle cancel reported true")
	}
	if rec := h.do(t, nethttp.MethodDelete, "/api/conversations/"+id, nil); rec.Code != nethttp.StatusNoContent {
		t.Fatalf("delete: want=204 got=%d", rec.Code)
	}
	if rec := h.do(t, nethttp.MethodGet, "/api/conversations/"+id, nil); rec.Code != nethttp.StatusNotFound {
		t.Fatalf("after delete: want=404 got=%d", rec.Code)
	}
}

func TestTasksAndDashboard(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, nethttp.MethodPost, "/api/tasks", gin.H{"title": "Read ch. 3"})
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("add: want=201 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := h.do(t, nethttp.MethodPost, "/api/tasks", gin.H{"title": "  "}); rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("blank title: want=400 got=%d", rec.Code)
	}
	rec = h.do(t, nethttp.MethodPost, "/api/quick-tasks/study-session", nil)
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("quick add: want=201 got=%d", rec.Code)
	}
	task := decode[struct {
		Task struct {
			ID string `json:"id"`
		} `json:"task"`
	}](t, rec).Task
	if rec := h.do(t, nethttp.MethodPost, "/api/tasks/"+task.ID+"/toggle", nil); rec.Code != nethttp.StatusOK {
		t.Fatalf("toggle: want=200 got=%d", rec.Code)
	}

	board := decode[struct {
		Pending   []json.RawMessage `json:"pending"`
		Completed []json.RawMessage `json:"completed"`
	}](t, h.do(t, nethttp.MethodGet, "/api/tasks", nil))
	if len(board.Pending) != 1 || len(board.Completed) != 1 {
		t.Fatalf("board: pending=%d completed=%d", len(board.Pending), len(board.Completed))
	}

	stats := decode[services.DashboardStats](t, h.do(t, nethttp.MethodGet, "/api/dashboard", nil))
	if stats.TasksDone != 1 || stats.TasksPending != 1 || stats.Progress != 50 {
		t.Fatalf("stats: %+v", stats)
	}
}

func TestDocumentUploadAndGenerate(t *testing.T) {
	h := newHarness(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", "cells.txt")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write([]byte("Cells are the unit of life."))
	_ = mw.Close()

	req := httptest.NewRequest(nethttp.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+h.token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("upload: want=201 got=%d body=%s", rec.Code, rec.Body.String())
	}
	up := decode[struct {
		Documents []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"documents"`
	}](t, rec)
	if len(up.Documents) != 1 || up.Documents[0].Status != "complete" {
		t.Fatalf("documents: %+v", up.Documents)
	}

	h.gen.res = &generation.Result{
		Type: generation.TypeQuiz,
		Quiz: &generation.QuizSet{Title: "Cells", Questions: []generation.QuizItem{
			{Question: "Unit of life?", Options: []string{"Cell", "Atom", "Organ", "Tissue"}, CorrectAnswer: "Cell"},
		}},
	}
	rec = h.do(t, nethttp.MethodPost, "/api/generations", gin.H{"document_ids": []string{up.Documents[0].ID}, "type": "quiz"})
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("generate: want=201 got=%d body=%s", rec.Code, rec.Body.String())
	}
	out := decode[services.GenerateOutput](t, rec)
	if out.SourceName != "cells.txt" || out.Quiz == nil {
		t.Fatalf("output: %+v", out)
	}

	rec = h.do(t, nethttp.MethodPost, "/api/quizzes/"+out.Quiz.ID.String()+"/attempts", gin.H{"answers": []int{0}})
	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("submit: want=201 got=%d body=%s", rec.Code, rec.Body.String())
	}
	res := decode[services.SubmitResult](t, rec)
	if res.Attempt.Score != 100 {
		t.Fatalf("score: want=100 got=%d", res.Attempt.Score)
	}
}
