package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studydesk-backend/internal/generation"
	"github.com/yungbote/studydesk-backend/internal/http/response"
	"github.com/yungbote/studydesk-backend/internal/platform/apierr"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
	"github.com/yungbote/studydesk-backend/internal/services"
)

type GenerationHandler struct {
	log *logger.Logger
	gen services.GenerationService
}

func NewGenerationHandler(log *logger.Logger, gen services.GenerationService) *GenerationHandler {
	return &GenerationHandler{log: log.With("handler", "GenerationHandler"), gen: gen}
}

// POST /api/generate-content
//
// Returns the bare payload ({flashcards} or {title, questions}). Errors use
// 429, 402, 400 for bad input, and 500 for everything else.
func (h *GenerationHandler) GenerateContent(c *gin.Context) {
	var req generation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.gen.Generate(c.Request.Context(), req)
	if err != nil {
		ae := apierr.FromError(err)
		switch ae.Status {
		case http.StatusTooManyRequests, http.StatusPaymentRequired, http.StatusBadRequest:
		default:
			ae = apierr.New(http.StatusInternalServerError, ae.Code, ae.Err)
		}
		response.RespondErr(c, ae)
		return
	}
	if res.Type == generation.TypeQuiz {
		response.RespondOK(c, res.Quiz)
		return
	}
	response.RespondOK(c, res.Flashcards)
}

// POST /api/generations
func (h *GenerationHandler) Create(c *gin.Context) {
	var in services.GenerateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.gen.GenerateAndPersist(c.Request.Context(), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, out)
}
