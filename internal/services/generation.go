package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/studydesk-backend/internal/data/repos"
	"github.com/yungbote/studydesk-backend/internal/domain/study"
	"github.com/yungbote/studydesk-backend/internal/generation"
	"github.com/yungbote/studydesk-backend/internal/observability"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

// PastedSourceName labels generations made from pasted text.
const PastedSourceName = "Pasted notes"

type GenerateInput struct {
	DocumentIDs []string `json:"document_ids"`
	Content     string   `json:"content"`
	SourceName  string   `json:"source_name"`
	Type        string   `json:"type"`
}

// GenerateOutput carries the rows created by one generation.
type GenerateOutput struct {
	Type       generation.Type    `json:"type"`
	SourceName string             `json:"source_name"`
	Flashcards []*study.Flashcard `json:"flashcards,omitempty"`
	Quiz       *study.Quiz        `json:"quiz,omitempty"`
	Issues     []generation.Issue `json:"issues,omitempty"`
}

type GenerationService interface {
	// Generate runs one structured generation without persisting it.
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
	// GenerateAndPersist resolves the source material, generates, and stores
	// the result for the authenticated owner.
	GenerateAndPersist(ctx context.Context, in GenerateInput) (*GenerateOutput, error)
}

// Generator is satisfied by *generation.Generator.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*generation.Result, error)
}

type generationService struct {
	log        *logger.Logger
	gen        Generator
	flashcards repos.FlashcardRepo
	quizzes    repos.QuizRepo
	documents  repos.DocumentRepo
	metrics    *observability.Metrics
}

func NewGenerationService(log *logger.Logger, gen Generator, set repos.Set, metrics *observability.Metrics) GenerationService {
	return &generationService{
		log:        log.With("service", "GenerationService"),
		gen:        gen,
		flashcards: set.Flashcards,
		quizzes:    set.Quizzes,
		documents:  set.Documents,
		metrics:    metrics,
	}
}

func (s *generationService) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	res, err := s.gen.Generate(ctx, req)
	s.observe(string(req.Type), res, err)
	return res, err
}

func (s *generationService) GenerateAndPersist(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	t, err := generation.ParseType(in.Type)
	if err != nil {
		return nil, err
	}
	docs, err := s.resolveSource(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	content := generation.AssembleSource(docs)
	sourceName := strings.TrimSpace(in.SourceName)
	if sourceName == "" {
		sourceName = generation.SourceLabel(docs)
	}

	res, err := s.gen.Generate(ctx, generation.Request{Content: content, Type: t})
	s.observe(string(t), res, err)
	if err != nil {
		return nil, err
	}

	out := &GenerateOutput{Type: t, SourceName: sourceName, Issues: res.Issues}
	switch t {
	case generation.TypeQuiz:
		quiz, err := s.persistQuiz(ctx, ownerID, sourceName, res.Quiz)
		if err != nil {
			return nil, err
		}
		out.Quiz = quiz
	default:
		cards, err := s.persistFlashcards(ctx, ownerID, sourceName, res.Flashcards)
		if err != nil {
			return nil, err
		}
		out.Flashcards = cards
	}
	return out, nil
}

func (s *generationService) resolveSource(ctx context.Context, ownerID uuid.UUID, in GenerateInput) ([]generation.SourceDocument, error) {
	if len(in.DocumentIDs) == 0 {
		name := strings.TrimSpace(in.SourceName)
		if name == "" {
			name = PastedSourceName
		}
		return []generation.SourceDocument{{Name: name, Text: in.Content}}, nil
	}
	ids := make([]uuid.UUID, 0, len(in.DocumentIDs))
	for _, raw := range in.DocumentIDs {
		id, err := parseID(raw, "document")
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	rows, err := s.documents.GetByIDs(dbc(ctx), ownerID, ids)
	if err != nil {
		return nil, err
	}
	docs := make([]generation.SourceDocument, 0, len(rows))
	for _, d := range rows {
		docs = append(docs, generation.SourceDocument{Name: d.FileName, Text: d.Text})
	}
	return docs, nil
}

// persistFlashcards stores every card in one batch with the same source and
// owner and no review state.
func (s *generationService) persistFlashcards(ctx context.Context, ownerID uuid.UUID, sourceName string, set *generation.FlashcardSet) ([]*study.Flashcard, error) {
	if set == nil || len(set.Flashcards) == 0 {
		return []*study.Flashcard{}, nil
	}
	rows := make([]*study.Flashcard, 0, len(set.Flashcards))
	for _, fc := range set.Flashcards {
		rows = append(rows, &study.Flashcard{
			OwnerID:    ownerID,
			Question:   fc.Question,
			Answer:     fc.Answer,
			Subject:    fc.Subject,
			SourceName: sourceName,
			Difficulty: study.DifficultyUnset,
			Bookmarked: false,
		})
	}
	created, err := s.flashcards.Create(dbc(ctx), rows)
	if err != nil {
		return nil, fmt.Errorf("save flashcards: %w", err)
	}
	return created, nil
}

// persistQuiz creates the quiz row first and only then its questions, which
// need the quiz id. A failure after the quiz row exists is reported as a
// PartialPersistError naming the orphan.
func (s *generationService) persistQuiz(ctx context.Context, ownerID uuid.UUID, sourceName string, set *generation.QuizSet) (*study.Quiz, error) {
	if set == nil {
		return nil, apperr.ErrNoStructuredResult
	}
	quiz := &study.Quiz{
		OwnerID:    ownerID,
		Title:      set.Title,
		SourceName: sourceName,
	}
	if err := s.quizzes.Create(dbc(ctx), quiz); err != nil {
		return nil, fmt.Errorf("save quiz: %w", err)
	}

	questions := make([]*study.QuizQuestion, 0, len(set.Questions))
	for i, q := range set.Questions {
		questions = append(questions, &study.QuizQuestion{
			QuizID:        quiz.ID,
			Position:      i,
			Question:      q.Question,
			Options:       append([]string(nil), q.Options...),
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	if len(questions) > 0 {
		created, err := s.quizzes.CreateQuestions(dbc(ctx), questions)
		if err != nil {
			s.log.Error("quiz questions not saved", "quiz_id", quiz.ID, "error", err)
			return nil, &apperr.PartialPersistError{QuizID: quiz.ID.String(), Err: err}
		}
		questions = created
	}
	quiz.Questions = make([]study.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		quiz.Questions = append(quiz.Questions, *q)
	}
	return quiz, nil
}

func (s *generationService) observe(genType string, res *generation.Result, err error) {
	if err != nil {
		s.metrics.ObserveGeneration(genType, outcomeOf(err))
		return
	}
	s.metrics.ObserveGeneration(genType, "ok")
	if res == nil {
		return
	}
	for _, is := range res.Issues {
		s.metrics.IncGenerationIssue(genType, is.Field)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, apperr.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, apperr.ErrGenerationTimeout):
		return "timeout"
	case errors.Is(err, apperr.ErrNoStructuredResult):
		return "no_structured_result"
	case errors.Is(err, apperr.ErrNoSourceContent):
		return "no_source_content"
	default:
		return "failed"
	}
}
