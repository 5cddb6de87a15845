package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/studydesk-backend/internal/observability"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/pkg/httpx"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
	"github.com/yungbote/studydesk-backend/internal/stream"
)

const (
	DefaultURL   = "https://ai.gateway.lovable.dev/v1/chat/completions"
	DefaultModel = "google/gemini-2.5-flash"
)

type Options struct {
	// URL is the chat completions endpoint.
	URL    string
	APIKey string
	Model  string

	Timeout       time.Duration
	StreamTimeout time.Duration
	MaxRetries    int

	HTTPClient *http.Client
	Logger     *logger.Logger
	Metrics    *observability.Metrics
}

// Client talks to an OpenAI-compatible chat completions gateway.
type Client struct {
	url    string
	apiKey string
	model  string

	timeout       time.Duration
	streamTimeout time.Duration
	maxRetries    int
	// backoff picks the wait before the next attempt; resp is nil when the
	// previous attempt failed in transport.
	backoff func(resp *http.Response, attempt int) time.Duration

	httpClient *http.Client
	tracer     trace.Tracer
	log        *logger.Logger
	metrics    *observability.Metrics
}

func New(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, apperr.ErrMissingCredential
	}
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		url = DefaultURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		url:           url,
		apiKey:        apiKey,
		model:         model,
		timeout:       timeout,
		streamTimeout: opts.StreamTimeout,
		maxRetries:    maxRetries,
		backoff:       defaultBackoff,
		httpClient:    hc,
		tracer:        otel.Tracer("studydesk/gateway"),
		log:           log.With("client", "gateway"),
		metrics:       opts.Metrics,
	}, nil
}

func (c *Client) Model() string { return c.model }

func defaultBackoff(resp *http.Response, attempt int) time.Duration {
	return httpx.RetryDelay(resp, attempt, 250*time.Millisecond, 5*time.Second)
}

// CallTool forces a single tool call and returns its raw JSON arguments.
// A response without a tool call fails with ErrNoStructuredResult.
func (c *Client) CallTool(ctx context.Context, req ToolRequest) (json.RawMessage, error) {
	if req.Tool.Function == nil || strings.TrimSpace(req.Tool.Function.Name) == "" {
		return nil, errors.New("tool function required")
	}
	name := req.Tool.Function.Name

	ctx, span := c.tracer.Start(ctx, "gateway.call_tool", trace.WithAttributes(
		attribute.String("gateway.model", c.model),
		attribute.String("gateway.tool", name),
	))
	defer span.End()

	body := chatCompletionsRequest{
		Model: c.model,
		Messages: []Message{
			{Role: RoleSystem, Content: strings.TrimSpace(req.System)},
			{Role: RoleUser, Content: req.User},
		},
		Tools:      []Tool{req.Tool},
		ToolChoice: &toolChoice{Type: ToolTypeFunction, Function: toolChoiceFunction{Name: name}},
	}

	var resp chatCompletionsResponse
	if err := c.doJSON(ctx, "call_tool", body, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call_tool")
		return nil, err
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		span.SetStatus(codes.Error, "no tool call")
		return nil, apperr.ErrNoStructuredResult
	}
	call := resp.Choices[0].Message.ToolCalls[0]
	if call.Function.Name != "" && call.Function.Name != name {
		return nil, fmt.Errorf("%w: unexpected tool %q", apperr.ErrNoStructuredResult, call.Function.Name)
	}
	args := strings.TrimSpace(call.Function.Arguments)
	if args == "" || !json.Valid([]byte(args)) {
		return nil, fmt.Errorf("%w: tool arguments are not valid json", apperr.ErrNoStructuredResult)
	}
	return json.RawMessage(args), nil
}

// StreamChat opens a streamed completion. The caller owns the returned body.
func (c *Client) StreamChat(ctx context.Context, messages []Message) (io.ReadCloser, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.stream_chat", trace.WithAttributes(
		attribute.String("gateway.model", c.model),
		attribute.Int("gateway.messages", len(messages)),
	))
	defer span.End()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(chatCompletionsRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	}); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "application/json", "text/event-stream")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveLLMRequest(c.model, "stream_chat", 0, time.Since(start))
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrRequestFailed, err)
	}
	c.metrics.ObserveLLMRequest(c.model, "stream_chat", resp.StatusCode, time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		herr := parseHTTPError(resp.StatusCode, raw, true)
		c.log.Warn("gateway stream rejected", "status", resp.StatusCode, "error", herr.Error())
		span.SetStatus(codes.Error, "stream rejected")
		return nil, herr
	}
	return stream.CheckResponse(resp)
}

// StreamTimeout is the configured upper bound for one streamed reply.
func (c *Client) StreamTimeout() time.Duration { return c.streamTimeout }

func (c *Client) setHeaders(req *http.Request, contentType string, accept string) {
	if strings.TrimSpace(contentType) != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if strings.TrimSpace(accept) != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func (c *Client) doJSON(ctx context.Context, op string, body any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		lastErr  error
		lastResp *http.Response
	)
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx2.Err() != nil {
			return ctx2.Err()
		}

		req, err := http.NewRequestWithContext(ctx2, http.MethodPost, c.url, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return err
		}
		c.setHeaders(req, "application/json", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.metrics.ObserveLLMRequest(c.model, op, 0, time.Since(start))
			if ctx2.Err() != nil {
				return ctx2.Err()
			}
			lastResp = nil
			lastErr = fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			_ = resp.Body.Close()
			lastResp = resp
			c.metrics.ObserveLLMRequest(c.model, op, resp.StatusCode, time.Since(start))
			if readErr != nil {
				return readErr
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = parseHTTPError(resp.StatusCode, raw, false)
				c.log.Warn("gateway call failed", "status", resp.StatusCode, "attempt", attempt)
				if !httpx.IsRetryableHTTPStatus(resp.StatusCode) {
					return lastErr
				}
			} else {
				if err := json.Unmarshal(raw, out); err != nil {
					return fmt.Errorf("%w: decode response: %v", apperr.ErrGenerationFailed, err)
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			if err := httpx.Sleep(ctx2, c.backoff(lastResp, attempt)); err != nil {
				return err
			}
		}
	}

	if lastErr == nil {
		lastErr = apperr.ErrGenerationFailed
	}
	return lastErr
}
