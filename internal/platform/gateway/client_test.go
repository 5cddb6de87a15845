package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/stream"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

var echoTool = NewFunctionTool("generate_flashcards", "Generate flashcards", jsonschema.Definition{
	Type:       jsonschema.Object,
	Properties: map[string]jsonschema.Definition{"flashcards": {Type: jsonschema.Array}},
	Required:   []string{"flashcards"},
})

func newTestClient(t *testing.T, rt roundTripperFunc, retries int) *Client {
	t.Helper()
	c, err := New(Options{
		URL:        "http://gateway.test/v1/chat/completions",
		APIKey:     "test-key",
		MaxRetries: retries,
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresCredential(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, apperr.ErrMissingCredential) {
		t.Fatalf("err: want ErrMissingCredential got=%v", err)
	}
}

func TestCallToolForcesToolChoice(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("auth: want=Bearer test-key got=%s", got)
		}
		raw, _ := io.ReadAll(req.Body)
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != DefaultModel {
			t.Fatalf("model: want=%s got=%v", DefaultModel, body["model"])
		}
		tc := body["tool_choice"].(map[string]any)
		if tc["function"].(map[string]any)["name"] != "generate_flashcards" {
			t.Fatalf("tool_choice: got=%v", tc)
		}
		if n := len(body["tools"].([]any)); n != 1 {
			t.Fatalf("tools: want=1 got=%d", n)
		}
		return jsonResponse(200, `{"choices":[{"message":{"role":"assistant","tool_calls":[{"id":"c1","type":"function","function":{"name":"generate_flashcards","arguments":"{\"flashcards\":[]}"}}]}}]}`), nil
	}, 0)

	args, err := c.CallTool(context.Background(), ToolRequest{System: "sys", User: "u", Tool: echoTool})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if string(args) != `{"flashcards":[]}` {
		t.Fatalf("args: got=%s", args)
	}
}

func TestCallToolMissingToolCall(t *testing.T) {
	c := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"choices":[{"message":{"role":"assistant","content":"Here are some flashcards: ..."}}]}`), nil
	}, 0)
	if _, err := c.CallTool(context.Background(), ToolRequest{Tool: echoTool}); !errors.Is(err, apperr.ErrNoStructuredResult) {
		t.Fatalf("err: want ErrNoStructuredResult got=%v", err)
	}
}

func TestCallToolInvalidArguments(t *testing.T) {
	c := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"choices":[{"message":{"tool_calls":[{"function":{"name":"generate_flashcards","arguments":"{\"flashcards\":["}}]}}]}`), nil
	}, 0)
	if _, err := c.CallTool(context.Background(), ToolRequest{Tool: echoTool}); !errors.Is(err, apperr.ErrNoStructuredResult) {
		t.Fatalf("err: want ErrNoStructuredResult got=%v", err)
	}
}

func TestCallToolStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
		calls  int32
	}{
		{429, apperr.ErrRateLimited, 1},
		{402, apperr.ErrQuotaExceeded, 1},
		{400, apperr.ErrGenerationFailed, 1},
		{503, apperr.ErrGenerationFailed, 3},
	}
	for _, tc := range cases {
		var calls int32
		c := newTestClient(t, func(*http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return jsonResponse(tc.status, `{"error":{"message":"nope"}}`), nil
		}, 2)
		_, err := c.CallTool(context.Background(), ToolRequest{Tool: echoTool})
		if !errors.Is(err, tc.want) {
			t.Fatalf("status=%d: want=%v got=%v", tc.status, tc.want, err)
		}
		var ue *apperr.UpstreamError
		if !errors.As(err, &ue) || ue.Status != tc.status || ue.Message != "nope" {
			t.Fatalf("status=%d: upstream error=%+v", tc.status, ue)
		}
		if got := atomic.LoadInt32(&calls); got != tc.calls {
			t.Fatalf("status=%d: calls want=%d got=%d", tc.status, tc.calls, got)
		}
	}
}

func TestCallToolRetryAfterNotReusedAcrossTransportError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(*http.Request) (*http.Response, error) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			resp := jsonResponse(503, `{"error":{"message":"busy"}}`)
			resp.Header.Set("Retry-After", "30")
			return resp, nil
		case 2:
			return nil, errors.New("connection reset")
		default:
			return jsonResponse(200, `{"choices":[{"message":{"role":"assistant","tool_calls":[{"id":"c1","type":"function","function":{"name":"generate_flashcards","arguments":"{\"flashcards\":[]}"}}]}}]}`), nil
		}
	}, 2)
	var seen []string
	c.backoff = func(resp *http.Response, attempt int) time.Duration {
		ra := "<nil>"
		if resp != nil {
			ra = resp.Header.Get("Retry-After")
		}
		seen = append(seen, ra)
		return 0
	}

	if _, err := c.CallTool(context.Background(), ToolRequest{Tool: echoTool}); err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if strings.Join(seen, ",") != "30,<nil>" {
		t.Fatalf("backoff inputs: want=30,<nil> got=%v", seen)
	}
}

func TestCallToolTimeout(t *testing.T) {
	c, err := New(Options{
		APIKey:  "k",
		Timeout: 20 * time.Millisecond,
		HTTPClient: &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.CallTool(context.Background(), ToolRequest{Tool: echoTool})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err: want DeadlineExceeded got=%v", err)
	}
}

func TestStreamChat(t *testing.T) {
	sse := "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n\n"
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		if !bytes.Contains(raw, []byte(`"stream":true`)) {
			t.Fatalf("request must set stream=true: %s", raw)
		}
		return &http.Response{
			StatusCode:    200,
			Header:        http.Header{"Content-Type": []string{"text/event-stream"}},
			Body:          io.NopCloser(strings.NewReader(sse)),
			ContentLength: -1,
		}, nil
	}, 0)

	body, err := c.StreamChat(context.Background(), []Message{{Role: RoleUser, Content: "hello"}})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	defer body.Close()
	res, err := stream.Ingest(context.Background(), body, nil)
	if err != nil || res.Content != "hi" {
		t.Fatalf("ingest: want=hi got=%q err=%v", res.Content, err)
	}
}

func TestStreamChatRejected(t *testing.T) {
	c := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(429, `{"error":"slow down"}`), nil
	}, 0)
	_, err := c.StreamChat(context.Background(), nil)
	if !errors.Is(err, apperr.ErrRequestFailed) || !errors.Is(err, apperr.ErrRateLimited) {
		t.Fatalf("err: want ErrRequestFailed+ErrRateLimited got=%v", err)
	}
}
