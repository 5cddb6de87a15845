package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/studydesk-backend/internal/data/repos"
	"github.com/yungbote/studydesk-backend/internal/domain/study"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type QuickTask struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
}

// QuickTasks are the one-tap presets offered next to the task input.
var QuickTasks = []QuickTask{
	{Key: "review-flashcards", Title: "Review Flashcards", Icon: study.TaskIconFlashcards},
	{Key: "take-quiz", Title: "Take Quiz", Icon: study.TaskIconQuiz},
	{Key: "revise-hard-cards", Title: "Revise Hard Cards", Icon: study.TaskIconRevise},
	{Key: "study-session", Title: "Study Session", Icon: study.TaskIconStudy},
}

// TaskBoard is the task list split by completion, each newest first.
type TaskBoard struct {
	Pending   []*study.Task `json:"pending"`
	Completed []*study.Task `json:"completed"`
}

type TaskService interface {
	Board(ctx context.Context) (*TaskBoard, error)
	Add(ctx context.Context, title, icon string) (*study.Task, error)
	QuickAdd(ctx context.Context, key string) (*study.Task, error)
	Toggle(ctx context.Context, taskID string) (*study.Task, error)
	Delete(ctx context.Context, taskID string) error
	ClearCompleted(ctx context.Context) (int64, error)
}

type taskService struct {
	log   *logger.Logger
	tasks repos.TaskRepo
	now   func() time.Time
}

func NewTaskService(log *logger.Logger, tasks repos.TaskRepo) TaskService {
	return &taskService{log: log.With("service", "TaskService"), tasks: tasks, now: time.Now}
}

func (s *taskService) Board(ctx context.Context) (*TaskBoard, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.tasks.ListByOwner(dbc(ctx), ownerID)
	if err != nil {
		return nil, err
	}
	board := &TaskBoard{Pending: []*study.Task{}, Completed: []*study.Task{}}
	for _, t := range all {
		if t.Completed {
			board.Completed = append(board.Completed, t)
		} else {
			board.Pending = append(board.Pending, t)
		}
	}
	return board, nil
}

// Add creates a pending task. The title is trimmed and must not be empty;
// an empty icon means custom.
func (s *taskService) Add(ctx context.Context, title, icon string) (*study.Task, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", apperr.ErrInvalidArgument)
	}
	icon = strings.ToLower(strings.TrimSpace(icon))
	if icon == "" {
		icon = study.TaskIconCustom
	}
	if !study.ValidTaskIcon(icon) {
		return nil, fmt.Errorf("%w: unknown task icon %q", apperr.ErrInvalidArgument, icon)
	}
	t := &study.Task{OwnerID: ownerID, Title: title, Icon: icon}
	if err := s.tasks.Create(dbc(ctx), t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *taskService) QuickAdd(ctx context.Context, key string) (*study.Task, error) {
	key = strings.TrimSpace(key)
	for _, q := range QuickTasks {
		if q.Key == key {
			return s.Add(ctx, q.Title, q.Icon)
		}
	}
	return nil, fmt.Errorf("%w: unknown quick task %q", apperr.ErrInvalidArgument, key)
}

func (s *taskService) Toggle(ctx context.Context, taskID string) (*study.Task, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(taskID, "task")
	if err != nil {
		return nil, err
	}
	t, err := s.tasks.GetByID(dbc(ctx), ownerID, id)
	if err != nil {
		return nil, err
	}
	t.Completed = !t.Completed
	updates := map[string]interface{}{"completed": t.Completed}
	if t.Completed {
		at := s.now().UTC()
		t.CompletedAt = &at
		updates["completed_at"] = at
	} else {
		t.CompletedAt = nil
		updates["completed_at"] = nil
	}
	if err := s.tasks.UpdateFields(dbc(ctx), ownerID, id, updates); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *taskService) Delete(ctx context.Context, taskID string) error {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(taskID, "task")
	if err != nil {
		return err
	}
	return s.tasks.Delete(dbc(ctx), ownerID, id)
}

func (s *taskService) ClearCompleted(ctx context.Context) (int64, error) {
	ownerID, err := requireOwner(ctx)
	if err != nil {
		return 0, err
	}
	return s.tasks.DeleteCompleted(dbc(ctx), ownerID)
}
