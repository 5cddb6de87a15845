package services

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/studydesk-backend/internal/data/repos"
	"github.com/yungbote/studydesk-backend/internal/domain/study"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type DashboardStats struct {
	Flashcards int64 `json:"flashcards"`
	// ToReview counts cards never rated or rated hard or forgot.
	ToReview     int64            `json:"to_review"`
	ByDifficulty map[string]int64 `json:"by_difficulty"`
	Quizzes      int64            `json:"quizzes"`
	QuizAttempts int64            `json:"quiz_attempts"`
	AverageScore int              `json:"average_score"`
	TasksDone    int64            `json:"tasks_done"`
	TasksPending int64            `json:"tasks_pending"`
	// Progress is the share of tasks completed, as a rounded percentage.
	Progress int `json:"progress"`
}

type DashboardService interface {
	Stats(ctx context.Context) (*DashboardStats, error)
}

type dashboardService struct {
	log  *logger.Logger
	repo repos.Set
}

func NewDashboardService(log *logger.Logger, set repos.Set) DashboardService {
	return &dashboardService{log: log.With("service", "DashboardService"), repo: set}
}

func (s *dashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	out := &DashboardStats{ByDifficulty: map[string]int64{}}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.repo.Flashcards.DifficultyCounts(dbc(gctx), ownerID)
		if err != nil {
			return err
		}
		for _, c := range counts {
			out.Flashcards += c.Count
			key := c.Difficulty
			if key == study.DifficultyUnset {
				key = "unrated"
			}
			out.ByDifficulty[key] += c.Count
			switch c.Difficulty {
			case study.DifficultyUnset, study.DifficultyHard, study.DifficultyForgot:
				out.ToReview += c.Count
			}
		}
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.Quizzes.CountByOwner(dbc(gctx), ownerID)
		if err != nil {
			return err
		}
		out.Quizzes = n
		return nil
	})
	g.Go(func() error {
		avg, n, err := s.repo.Quizzes.AverageScore(dbc(gctx), ownerID)
		if err != nil {
			return err
		}
		out.AverageScore = int(math.Round(avg))
		out.QuizAttempts = n
		return nil
	})
	g.Go(func() error {
		done, pending, err := s.repo.Tasks.CountByStatus(dbc(gctx), ownerID)
		if err != nil {
			return err
		}
		out.TasksDone, out.TasksPending = done, pending
		if total := done + pending; total > 0 {
			out.Progress = int(math.Round(float64(done) / float64(total) * 100))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.log.Warn("dashboard stats failed", "error", err)
		return nil, err
	}
	return out, nil
}
