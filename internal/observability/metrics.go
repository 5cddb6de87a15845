package observability

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Metrics is the process-wide registry. A nil *Metrics is valid and records
// nothing, so callers never need to check whether metrics are enabled.
type Metrics struct {
	apiRequests      *family
	apiLatency       *histogram
	apiInflight      *family
	apiReqError      *family
	llmRequests      *family
	llmLatency       *histogram
	streamReplies    *family
	streamDeltas     *family
	streamMalformed  *family
	activeReplies    *family
	generations      *family
	generationIssues *family
	uploads          *family
}

func New() *Metrics {
	return &Metrics{
		apiRequests: newCounter("sd_api_requests_total", "Total API requests by method/route/status.", "method", "route", "status"),
		apiLatency: newHistogram(
			"sd_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			"method", "route",
		),
		apiInflight: newGauge("sd_api_inflight_requests", "In-flight API requests."),
		apiReqError: newCounter("sd_api_requests_error_total", "API requests answered with a 5xx status."),
		llmRequests: newCounter("sd_llm_requests_total", "Gateway calls by model/operation/status.", "model", "operation", "status"),
		llmLatency: newHistogram(
			"sd_llm_request_duration_seconds",
			"Gateway call latency by model/operation.",
			[]float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
			"model", "operation",
		),
		streamReplies:    newCounter("sd_stream_replies_total", "Streamed assistant replies by final status.", "status"),
		streamDeltas:     newCounter("sd_stream_deltas_total", "Content deltas appended to streamed replies."),
		streamMalformed:  newCounter("sd_stream_malformed_lines_total", "Buffer rewinds caused by unparseable stream lines."),
		activeReplies:    newGauge("sd_stream_active_replies", "Replies currently streaming."),
		generations:      newCounter("sd_generations_total", "Structured generations by type/outcome.", "type", "outcome"),
		generationIssues: newCounter("sd_generation_issues_total", "Data-quality issues in generated content.", "type", "problem"),
		uploads:          newCounter("sd_document_uploads_total", "Notes uploads by kind/status.", "kind", "status"),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqError,
		m.llmRequests, m.llmLatency,
		m.streamReplies, m.streamDeltas, m.streamMalformed, m.activeReplies,
		m.generations, m.generationIssues, m.uploads,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.add(1, method, route, strconv.Itoa(status))
	m.apiLatency.observe(dur.Seconds(), method, route)
	if status >= 500 && status <= 599 {
		m.apiReqError.add(1)
	}
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.add(1)
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.add(-1)
}

// ObserveLLMRequest records one gateway call. status is the HTTP status, or 0
// when the request never got a response.
func (m *Metrics) ObserveLLMRequest(model, operation string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "unknown"
	}
	m.llmRequests.add(1, model, operation, strconv.Itoa(status))
	if dur > 0 {
		m.llmLatency.observe(dur.Seconds(), model, operation)
	}
}

func (m *Metrics) ReplyStarted() {
	if m == nil {
		return
	}
	m.activeReplies.add(1)
}

// ReplyFinished records the end of a streamed reply.
func (m *Metrics) ReplyFinished(status string, deltas, malformed int) {
	if m == nil {
		return
	}
	m.activeReplies.add(-1)
	if status == "" {
		status = "unknown"
	}
	m.streamReplies.add(1, status)
	if deltas > 0 {
		m.streamDeltas.add(float64(deltas))
	}
	if malformed > 0 {
		m.streamMalformed.add(float64(malformed))
	}
}

func (m *Metrics) ObserveGeneration(genType, outcome string) {
	if m == nil {
		return
	}
	m.generations.add(1, genType, outcome)
}

func (m *Metrics) IncGenerationIssue(genType, problem string) {
	if m == nil {
		return
	}
	m.generationIssues.add(1, genType, problem)
}

func (m *Metrics) ObserveUpload(kind, status string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.uploads.add(1, kind, status)
}

// GenerationCount reads sd_generations_total for one series.
func (m *Metrics) GenerationCount(genType, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.generations.value(genType, outcome)
}

func (m *Metrics) ReplyCount(status string) float64 {
	if m == nil {
		return 0
	}
	return m.streamReplies.value(status)
}

func (m *Metrics) UploadCount(kind, status string) float64 {
	if m == nil {
		return 0
	}
	return m.uploads.value(kind, status)
}

// ActiveReplies is the number of replies currently streaming.
func (m *Metrics) ActiveReplies() float64 {
	if m == nil {
		return 0
	}
	return m.activeReplies.value()
}

func (m *Metrics) APIRequestCount(method, route string, status int) float64 {
	if m == nil {
		return 0
	}
	return m.apiRequests.value(method, route, strconv.Itoa(status))
}
