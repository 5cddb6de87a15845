package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/yungbote/studydesk-backend/internal/data/repos"
	"github.com/yungbote/studydesk-backend/internal/domain/study"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

// AllCardsDeck is the synthetic deck holding every card.
const AllCardsDeck = "All Cards"

type Deck struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type CardRating struct {
	CardID     string `json:"card_id"`
	Difficulty string `json:"difficulty"`
}

// SessionSummary tallies one study session.
type SessionSummary struct {
	Total  int `json:"total"`
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
	Forgot int `json:"forgot"`
	// Score weights easy=3, medium=2, hard=1, forgot=0 against a perfect 3
	// per card, as a rounded percentage.
	Score int `json:"score"`
}

type FlashcardService interface {
	List(ctx context.Context, deck string, bookmarkedOnly bool) ([]*study.Flashcard, error)
	Decks(ctx context.Context) ([]Deck, error)
	Rate(ctx context.Context, cardID, difficulty string) (*study.Flashcard, error)
	ToggleBookmark(ctx context.Context, cardID string) (*study.Flashcard, error)
	Delete(ctx context.Context, cardID string) error
	// CompleteSession stores every rating and returns the session tally.
	CompleteSession(ctx context.Context, ratings []CardRating) (*SessionSummary, error)
}

type flashcardService struct {
	log   *logger.Logger
	cards repos.FlashcardRepo
}

func NewFlashcardService(log *logger.Logger, cards repos.FlashcardRepo) FlashcardService {
	return &flashcardService{log: log.With("service", "FlashcardService"), cards: cards}
}

func (s *flashcardService) List(ctx context.Context, deck string, bookmarkedOnly bool) ([]*study.Flashcard, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	f := repos.FlashcardFilter{BookmarkedOnly: bookmarkedOnly}
	if d := strings.TrimSpace(deck); d != "" && d != AllCardsDeck {
		f.Subject = d
	}
	return s.cards.ListByOwner(dbc(ctx), ownerID, f)
}

func (s *flashcardService) Decks(ctx context.Context) ([]Deck, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.cards.SubjectCounts(dbc(ctx), ownerID)
	if err != nil {
		return nil, err
	}
	var total int64
	decks := make([]Deck, 0, len(counts)+1)
	decks = append(decks, Deck{Name: AllCardsDeck})
	for _, c := range counts {
		total += c.Count
		if strings.TrimSpace(c.Subject) == "" {
			continue
		}
		decks = append(decks, Deck{Name: c.Subject, Count: c.Count})
	}
	decks[0].Count = total
	return decks, nil
}

func (s *flashcardService) Rate(ctx context.Context, cardID, difficulty string) (*study.Flashcard, error) {
	difficulty = strings.ToLower(strings.TrimSpace(difficulty))
	if !study.ValidDifficulty(difficulty) {
		return nil, fmt.Errorf("%w: difficulty must be easy, medium, hard or forgot", apperr.ErrInvalidArgument)
	}
	return s.update(ctx, cardID, func(fc *study.Flashcard) map[string]interface{} {
		fc.Difficulty = difficulty
		return map[string]interface{}{"difficulty": difficulty}
	})
}

func (s *flashcardService) ToggleBookmark(ctx context.Context, cardID string) (*study.Flashcard, error) {
	return s.update(ctx, cardID, func(fc *study.Flashcard) map[string]interface{} {
		fc.Bookmarked = !fc.Bookmarked
		return map[string]interface{}{"bookmarked": fc.Bookmarked}
	})
}

func (s *flashcardService) update(ctx context.Context, cardID string, apply func(*study.Flashcard) map[string]interface{}) (*study.Flashcard, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(cardID, "flashcard")
	if err != nil {
		return nil, err
	}
	fc, err := s.cards.GetByID(dbc(ctx), ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.cards.UpdateFields(dbc(ctx), ownerID, id, apply(fc)); err != nil {
		return nil, err
	}
	return fc, nil
}

func (s *flashcardService) Delete(ctx context.Context, cardID string) error {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(cardID, "flashcard")
	if err != nil {
		return err
	}
	return s.cards.Delete(dbc(ctx), ownerID, id)
}

func (s *flashcardService) CompleteSession(ctx context.Context, ratings []CardRating) (*SessionSummary, error) {
	if len(ratings) == 0 {
		return nil, fmt.Errorf("%w: no ratings", apperr.ErrInvalidArgument)
	}
	difficulties := make([]string, 0, len(ratings))
	for _, r := range ratings {
		fc, err := s.Rate(ctx, r.CardID, r.Difficulty)
		if err != nil {
			return nil, err
		}
		difficulties = append(difficulties, fc.Difficulty)
	}
	sum := SummarizeSession(difficulties)
	return &sum, nil
}

// SummarizeSession counts ratings and computes the session score.
func SummarizeSession(difficulties []string) SessionSummary {
	out := SessionSummary{Total: len(difficulties)}
	for _, d := range difficulties {
		switch d {
		case study.DifficultyEasy:
			out.Easy++
		case study.DifficultyMedium:
			out.Medium++
		case study.DifficultyHard:
			out.Hard++
		case study.DifficultyForgot:
			out.Forgot++
		}
	}
	if out.Total > 0 {
		weighted := float64(out.Easy*3 + out.Medium*2 + out.Hard)
		out.Score = int(math.Round(weighted / float64(out.Total*3) * 100))
	}
	return out
}
