package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
)

type ClientOptions struct {
	// URL is the full streaming chat endpoint.
	URL    string
	APIKey string

	HTTPClient *http.Client
}

// Client opens answer streams against a streaming chat endpoint that
// accepts {question, context} and replies with delta events.
type Client struct {
	url    string
	apiKey string
	hc     *http.Client
}

func NewClient(opts ClientOptions) (*Client, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, errors.New("stream endpoint url required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{url: url, apiKey: strings.TrimSpace(opts.APIKey), hc: hc}, nil
}

type askBody struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// Open posts the question and returns the response body. Non-2xx responses
// fail with ErrRequestFailed and an absent body with ErrNoStream.
func (c *Client) Open(ctx context.Context, question, notesContext string) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(askBody{Question: question, Context: notesContext}); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrRequestFailed, err)
	}
	return CheckResponse(resp)
}

// CheckResponse validates a streaming response and hands back its body.
func CheckResponse(resp *http.Response) (io.ReadCloser, error) {
	if resp == nil {
		return nil, apperr.ErrNoStream
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var raw []byte
		if resp.Body != nil {
			raw, _ = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			_ = resp.Body.Close()
		}
		return nil, apperr.NewUpstreamError(resp.StatusCode, ErrorMessage(raw), strings.TrimSpace(string(raw)), true)
	}
	if resp.Body == nil || resp.Body == http.NoBody || resp.ContentLength == 0 {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, apperr.ErrNoStream
	}
	return resp.Body, nil
}

// ErrorMessage extracts a message from either {"error":"..."} or
// {"error":{"message":"..."}} bodies.
func ErrorMessage(raw []byte) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Error, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Error, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}
