package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

func TestClientOpenStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("auth header: got=%q", r.Header.Get("Authorization"))
		}
		var body askBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Question != "why?" || body.Context != "notes" {
			t.Errorf("body: got=%+v", body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sampleStream)
	}))
	defer srv.Close()

	c, err := NewClient(ClientOptions{URL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	body, err := c.Open(context.Background(), "why?", "notes")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer body.Close()
	res, err := Ingest(context.Background(), body, nil)
	if err != nil || res.Content != sampleContent {
		t.Fatalf("ingest: want=%q got=%q err=%v", sampleContent, res.Content, err)
	}
}

func TestClientOpenNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"upstream exploded"}`)
	}))
	defer srv.Close()

	c, _ := NewClient(ClientOptions{URL: srv.URL})
	_, err := c.Open(context.Background(), "q", "")
	if !errors.Is(err, apperr.ErrRequestFailed) {
		t.Fatalf("err: want ErrRequestFailed got=%v", err)
	}
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) || ue.Message != "upstream exploded" || ue.Status != 500 {
		t.Fatalf("upstream error: got=%+v", ue)
	}
}

func TestClientOpenEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _ := NewClient(ClientOptions{URL: srv.URL})
	if _, err := c.Open(context.Background(), "q", ""); !errors.Is(err, apperr.ErrNoStream) {
		t.Fatalf("err: want ErrNoStream got=%v", err)
	}
}

func TestErrorMessageShapes(t *testing.T) {
	cases := map[string]string{
		`{"error":"plain"}`:                        "plain",
		`{"error":{"message":"nested","code":"x"}}`: "nested",
		`not json`:                                 "",
		`{}`:                                       "",
	}
	for in, want := range cases {
		if got := ErrorMessage([]byte(in)); got != want {
			t.Fatalf("%s: want=%q got=%q", in, want, got)
		}
	}
}
