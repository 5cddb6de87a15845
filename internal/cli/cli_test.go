package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/studydesk-backend/internal/domain/study"
	"github.com/yungbote/studydesk-backend/internal/generation"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/gateway"
)

type fakeCaller struct {
	raw  string
	last gateway.ToolRequest
}

func (f *fakeCaller) CallTool(_ context.Context, req gateway.ToolRequest) (json.RawMessage, error) {
	f.last = req
	return json.RawMessage(f.raw), nil
}

func run(t *testing.T, o *options, args ...string) (string, string, error) {
	t.Helper()
	if o.newCaller == nil {
		o.newCaller = newGatewayCaller
	}
	cmd := newRootCommand(o)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestAskStreamsAnswer(t *testing.T) {
	var got struct {
		Question string `json:"question"`
		Context  string `json:"context"`
	}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ask-doubt" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Water \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"moves\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	notes := filepath.Join(t.TempDir(), "bio.md")
	if err := os.WriteFile(notes, []byte("# Osmosis\n\nWater crosses membranes."), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	out, errOut, err := run(t, &options{}, "--server", srv.URL, "--token", "tok", "ask", "what", "is", "osmosis", "--notes", notes)
	if err != nil {
		t.Fatalf("ask: %v (stderr=%s)", err, errOut)
	}
	if !strings.Contains(out, "tutor → Water moves") {
		t.Fatalf("stdout: %q", out)
	}
	if got.Question != "what is osmosis" || !strings.Contains(got.Context, "Water crosses membranes.") {
		t.Fatalf("request: %+v", got)
	}
	if auth != "Bearer tok" {
		t.Fatalf("authorization: want=%q got=%q", "Bearer tok", auth)
	}
	if !strings.Contains(errOut, "sources:") {
		t.Fatalf("stderr: %q", errOut)
	}
}

func TestAskUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"Rate limit exceeded. Please try again later."}`)
	}))
	defer srv.Close()

	_, _, err := run(t, &options{}, "--server", srv.URL, "ask", "hello")
	if !errors.Is(err, apperr.ErrRateLimited) {
		t.Fatalf("want=%v got=%v", apperr.ErrRateLimited, err)
	}
}

func TestGenerateFromFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "cells.txt")
	b := filepath.Join(dir, "atoms.md")
	if err := os.WriteFile(a, []byte("Cells divide by mitosis."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(b, []byte("Atoms have protons."), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	caller := &fakeCaller{raw: `{"flashcards":[{"question":"How do cells divide?","answer":"Mitosis","subject":"Biology"},{"question":"","answer":"x"}]}`}
	o := &options{newCaller: func(gatewayConfig) (generation.ToolCaller, error) { return caller, nil }}

	out, errOut, err := run(t, o, "generate", a, b)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "1. How do cells divide?") || !strings.Contains(out, "[Biology]") {
		t.Fatalf("stdout: %q", out)
	}
	if !strings.Contains(errOut, "question") {
		t.Fatalf("issues not reported: %q", errOut)
	}
	if !strings.Contains(caller.last.User, "--- cells.txt ---") || !strings.Contains(caller.last.User, "Atoms have protons.") {
		t.Fatalf("source not assembled: %q", caller.last.User)
	}

	caller.raw = `{"title":"Atoms","questions":[{"question":"Charge of a proton?","options":["+","-"],"correct_answer":"+"}]}`
	out, _, err = run(t, o, "generate", "--type", "quiz", "--json", b)
	if err != nil {
		t.Fatalf("generate quiz: %v", err)
	}
	var res generation.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v (%q)", err, out)
	}
	if res.Quiz == nil || res.Quiz.Title != "Atoms" || len(res.Quiz.Questions) != 1 {
		t.Fatalf("quiz: %+v", res.Quiz)
	}

	if _, _, err := run(t, o, "generate", "--type", "essay", a); !errors.Is(err, apperr.ErrInvalidGenerationType) {
		t.Fatalf("bad type: want=%v got=%v", apperr.ErrInvalidGenerationType, err)
	}
}

func TestGenerateRequiresCredential(t *testing.T) {
	if _, err := newGatewayCaller(gatewayConfig{}); !errors.Is(err, apperr.ErrMissingCredential) {
		t.Fatalf("want=%v got=%v", apperr.ErrMissingCredential, err)
	}
}

func TestTasksCommands(t *testing.T) {
	first := &study.Task{ID: uuid.New(), Title: "Revise chapter 3", Icon: study.TaskIconRevise}
	var toggled, added string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/tasks":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"pending":   []*study.Task{first},
				"completed": []*study.Task{{ID: uuid.New(), Title: "Quiz yourself", Completed: true}},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/tasks":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			added = body["title"]
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"task": study.Task{Title: body["title"]}})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/toggle"):
			toggled = strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/toggle")
			if toggled != first.ID.String() {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":{"message":"task not found","code":"not_found"}}`)
				return
			}
			done := *first
			done.Completed = true
			_ = json.NewEncoder(w).Encode(map[string]any{"task": done})
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"message":"not found","code":"not_found"}}`)
		}
	}))
	defer srv.Close()

	out, _, err := run(t, &options{}, "--server", srv.URL, "tasks")
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if !strings.Contains(out, "1. Revise chapter 3") || !strings.Contains(out, "✓ Quiz yourself") {
		t.Fatalf("board: %q", out)
	}

	if _, _, err := run(t, &options{}, "--server", srv.URL, "tasks", "add", "read", "notes"); err != nil || added != "read notes" {
		t.Fatalf("add: err=%v title=%q", err, added)
	}

	out, _, err = run(t, &options{}, "--server", srv.URL, "tasks", "done", "1")
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if toggled != first.ID.String() || !strings.Contains(out, "completed") {
		t.Fatalf("toggle: id=%q out=%q", toggled, out)
	}

	if _, _, err := run(t, &options{}, "--server", srv.URL, "tasks", "done", "7"); err == nil {
		t.Fatalf("out of range: want error")
	}
	_, _, err = run(t, &options{}, "--server", srv.URL, "tasks", "done", uuid.NewString()+"x")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unknown id: %v", err)
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	owner := uuid.NewString()
	out, _, err := run(t, &options{}, "token", "--owner", owner)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Fatalf("not a jwt: %q", out)
	}
}
