package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studydesk-backend/internal/http/response"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/apierr"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
	"github.com/yungbote/studydesk-backend/internal/services"
	"github.com/yungbote/studydesk-backend/internal/stream"
)

type DoubtHandler struct {
	log   *logger.Logger
	doubt services.DoubtService
}

func NewDoubtHandler(log *logger.Logger, doubt services.DoubtService) *DoubtHandler {
	return &DoubtHandler{log: log.With("handler", "DoubtHandler"), doubt: doubt}
}

type askDoubtRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type deltaChunk struct {
	Choices []deltaChoice `json:"choices"`
}

type deltaChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
}

func encodeDelta(fragment string) string {
	var ch deltaChoice
	ch.Delta.Content = fragment
	b, _ := json.Marshal(deltaChunk{Choices: []deltaChoice{ch}})
	return string(b)
}

// POST /api/ask-doubt
//
// Relays the answer in the chat-completions delta format, ending with
// [DONE]. A failure after streaming began is sent as an error event.
func (h *DoubtHandler) AskDoubt(c *gin.Context) {
	var req askDoubtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("question is required"))
		return
	}

	w := newSSEWriter(c)
	_, err := h.doubt.AskOnce(c.Request.Context(), req.Question, req.Context, func(fragment string) {
		if werr := w.Data(encodeDelta(fragment)); werr != nil {
			h.log.Debug("relay write failed", "error", werr)
		}
	})
	h.finishStream(c, w, err, func() { _ = w.Data("[DONE]") })
}

// finishStream answers err as JSON when nothing was streamed yet, as an
// error event otherwise, and calls done on success.
func (h *DoubtHandler) finishStream(c *gin.Context, w *sseWriter, err error, done func()) {
	if err == nil {
		done()
		return
	}
	if !w.Started() {
		response.RespondErr(c, err)
		return
	}
	ae := apierr.FromError(err)
	_ = w.Event("error", response.APIError{Message: ae.Error(), Code: ae.Code})
}

type createConversationRequest struct {
	Title   string `json:"title"`
	Context string `json:"context"`
}

// POST /api/conversations
func (h *DoubtHandler) Create(c *gin.Context) {
	var req createConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	rec, err := h.doubt.Create(c.Request.Context(), req.Title, req.Context)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"conversation": rec})
}

// GET /api/conversations
func (h *DoubtHandler) List(c *gin.Context) {
	list, err := h.doubt.List(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"conversations": list})
}

// GET /api/conversations/:id
func (h *DoubtHandler) Get(c *gin.Context) {
	rec, err := h.doubt.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"conversation": rec})
}

type askRequest struct {
	Question string  `json:"question"`
	Context  *string `json:"context"`
}

// POST /api/conversations/:id/messages
//
// Streams "user", "delta" and "done" events; "done" carries the frozen
// assistant message (absent when no content arrived).
func (h *DoubtHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	w := newSSEWriter(c)
	msg, err := h.doubt.Ask(c.Request.Context(), c.Param("id"), services.AskInput{Question: req.Question, Notes: req.Context}, services.AskHooks{
		OnUser: func(m stream.ChatMessage) { _ = w.Event("user", m) },
		OnDelta: func(fragment string, m stream.ChatMessage) {
			_ = w.Event("delta", gin.H{"content": fragment, "message": m})
		},
	})
	if msg.ID != "" && errors.Is(err, apperr.ErrStreamAborted) {
		// The reply was stopped on purpose; report it as finished.
		err = nil
	}
	h.finishStream(c, w, err, func() {
		payload := gin.H{}
		if msg.ID != "" {
			payload["message"] = msg
		}
		_ = w.Event("done", payload)
	})
}

// POST /api/conversations/:id/cancel
func (h *DoubtHandler) Cancel(c *gin.Context) {
	cancelled, err := h.doubt.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"cancelled": cancelled})
}

// GET /api/conversations/:id/export
func (h *DoubtHandler) Export(c *gin.Context) {
	id := c.Param("id")
	page, err := h.doubt.ExportHTML(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="conversation-%s.html"`, id))
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// DELETE /api/conversations/:id
func (h *DoubtHandler) Delete(c *gin.Context) {
	if err := h.doubt.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
