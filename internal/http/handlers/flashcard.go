package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studydesk-backend/internal/http/response"
	"github.com/yungbote/studydesk-backend/internal/services"
)

type FlashcardHandler struct {
	cards services.FlashcardService
}

func NewFlashcardHandler(cards services.FlashcardService) *FlashcardHandler {
	return &FlashcardHandler{cards: cards}
}

// GET /api/flashcards?deck=&bookmarked=
func (h *FlashcardHandler) List(c *gin.Context) {
	bookmarked, _ := strconv.ParseBool(c.Query("bookmarked"))
	cards, err := h.cards.List(c.Request.Context(), c.Query("deck"), bookmarked)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"flashcards": cards})
}

// GET /api/flashcards/decks
func (h *FlashcardHandler) Decks(c *gin.Context) {
	decks, err := h.cards.Decks(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"decks": decks})
}

// PATCH /api/flashcards/:id/difficulty
func (h *FlashcardHandler) Rate(c *gin.Context) {
	var req struct {
		Difficulty string `json:"difficulty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	fc, err := h.cards.Rate(c.Request.Context(), c.Param("id"), req.Difficulty)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"flashcard": fc})
}

// POST /api/flashcards/:id/bookmark
func (h *FlashcardHandler) ToggleBookmark(c *gin.Context) {
	fc, err := h.cards.ToggleBookmark(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"flashcard": fc})
}

// DELETE /api/flashcards/:id
func (h *FlashcardHandler) Delete(c *gin.Context) {
	if err := h.cards.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/study-sessions
func (h *FlashcardHandler) CompleteSession(c *gin.Context) {
	var req struct {
		Ratings []services.CardRating `json:"ratings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sum, err := h.cards.CompleteSession(c.Request.Context(), req.Ratings)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": sum})
}
