package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/studydesk-backend/internal/data/repos"
	"github.com/yungbote/studydesk-backend/internal/domain/study"
	"github.com/yungbote/studydesk-backend/internal/generation"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

// Unanswered marks a question the student skipped.
const Unanswered = -1

type QuestionResult struct {
	QuestionID   uuid.UUID `json:"question_id"`
	Selected     int       `json:"selected"`
	Correct      bool      `json:"correct"`
	CorrectIndex int       `json:"correct_index"`
	Ambiguous    bool      `json:"ambiguous,omitempty"`
	Explanation  string    `json:"explanation,omitempty"`
}

type SubmitResult struct {
	Attempt *study.QuizAttempt `json:"attempt"`
	Results []QuestionResult   `json:"results"`
}

type QuizService interface {
	List(ctx context.Context) ([]repos.QuizSummary, error)
	Get(ctx context.Context, quizID string) (*study.Quiz, error)
	// Submit grades one answer index per question, in question order, and
	// records the attempt.
	Submit(ctx context.Context, quizID string, answers []int) (*SubmitResult, error)
	Attempts(ctx context.Context, quizID string) ([]*study.QuizAttempt, error)
	Delete(ctx context.Context, quizID string) error
}

type quizService struct {
	log     *logger.Logger
	quizzes repos.QuizRepo
}

func NewQuizService(log *logger.Logger, quizzes repos.QuizRepo) QuizService {
	return &quizService{log: log.With("service", "QuizService"), quizzes: quizzes}
}

func (s *quizService) List(ctx context.Context) ([]repos.QuizSummary, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	return s.quizzes.ListByOwner(dbc(ctx), ownerID)
}

func (s *quizService) Get(ctx context.Context, quizID string) (*study.Quiz, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(quizID, "quiz")
	if err != nil {
		return nil, err
	}
	return s.quizzes.GetByID(dbc(ctx), ownerID, id)
}

func (s *quizService) Submit(ctx context.Context, quizID string, answers []int) (*SubmitResult, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	quiz, err := s.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(answers) != len(quiz.Questions) {
		return nil, fmt.Errorf("%w: want %d answers, got %d", apperr.ErrInvalidArgument, len(quiz.Questions), len(answers))
	}

	results := make([]QuestionResult, 0, len(answers))
	correct := 0
	for i, q := range quiz.Questions {
		g := generation.Grade(q.Options, q.CorrectAnswer, answers[i])
		if g.Correct {
			correct++
		}
		if g.Ambiguous {
			s.log.Warn("ambiguous quiz question graded", "quiz_id", quiz.ID, "question_id", q.ID)
		}
		results = append(results, QuestionResult{
			QuestionID:   q.ID,
			Selected:     answers[i],
			Correct:      g.Correct,
			CorrectIndex: g.CorrectIndex,
			Ambiguous:    g.Ambiguous,
			Explanation:  q.Explanation,
		})
	}

	attempt := &study.QuizAttempt{
		OwnerID: ownerID,
		QuizID:  quiz.ID,
		Answers: append([]int(nil), answers...),
		Correct: correct,
		Total:   len(answers),
		Score:   generation.Score(correct, len(answers)),
	}
	if err := s.quizzes.CreateAttempt(dbc(ctx), attempt); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}
	return &SubmitResult{Attempt: attempt, Results: results}, nil
}

func (s *quizService) Attempts(ctx context.Context, quizID string) ([]*study.QuizAttempt, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(quizID, "quiz")
	if err != nil {
		return nil, err
	}
	return s.quizzes.ListAttempts(dbc(ctx), ownerID, id)
}

// Delete removes a quiz with its questions and attempts. It is also how a
// quiz left without questions by a failed generation is cleaned up.
func (s *quizService) Delete(ctx context.Context, quizID string) error {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(quizID, "quiz")
	if err != nil {
		return err
	}
	return s.quizzes.Delete(dbc(ctx), ownerID, id)
}
