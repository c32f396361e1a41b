package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"counsellor/internal/domain"
	"counsellor/internal/events"
	"counsellor/internal/repo"
)

// MyTasks lists the user's tasks, newest first, never nil.
func (e Engine) MyTasks(ctx context.Context, userID string) ([]domain.UserTask, error) {
	tasks, err := e.Repo.ListTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.UserTask{}
	}
	return tasks, nil
}

// GenerateTasks creates the rule-based checklist for the user's current
// readiness. Titles already present (case-insensitive) are skipped, so
// repeated calls only fill gaps. Returns the number created.
func (e Engine) GenerateTasks(ctx context.Context, userID string) (int, error) {
	profile, err := e.Repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return 0, err
	}
	if err != nil || !profile.OnboardingComplete {
		return 0, errors.New("complete onboarding first to generate tasks")
	}

	titles := []string{
		"Finalize shortlist: pick at least 6 universities (2 dream, 2 target, 2 safe)",
		"Create tuition + living cost plan for selected countries",
	}
	if statusNeedsTask(profile.IELTSStatus) {
		titles = append(titles, "Book IELTS/TOEFL exam date and create prep schedule")
	}
	if statusNeedsTask(profile.GREStatus) {
		titles = append(titles, "Decide if GRE/GMAT is required for target universities")
	}
	if statusNeedsTask(profile.SOPStatus) {
		titles = append(titles, "Start SOP draft (collect projects, internships, achievements)")
	}

	created := 0
	for _, title := range titles {
		exists, err := e.Repo.TaskTitleExists(ctx, userID, title)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		if err := e.insertAITask(ctx, userID, title); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func statusNeedsTask(s *string) bool {
	return s == nil || strings.Contains(strings.ToLower(*s), "not")
}

// MarkTaskDone completes a task owned by the user. A task belonging to
// another user reads as not found rather than leaking its existence.
func (e Engine) MarkTaskDone(ctx context.Context, userID, taskID string) (domain.UserTask, error) {
	task, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.UserTask{}, err
	}
	if task.UserID != userID {
		return domain.UserTask{}, repo.ErrNotFound
	}
	completedAt := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateTaskStatus(ctx, taskID, "done", &completedAt); err != nil {
		return domain.UserTask{}, err
	}
	task.Status = "done"
	task.CompletedAt = &completedAt
	e.appendEvent(ctx, "task.done", userID, "task", taskID, nil)
	return task, nil
}

// createTaskFromAction backs the create_task model action: case-insensitive
// dedup, no mutation on duplicate.
func (e Engine) createTaskFromAction(ctx context.Context, userID, title string) (map[string]any, error) {
	exists, err := e.Repo.TaskTitleExists(ctx, userID, title)
	if err != nil {
		return nil, err
	}
	if exists {
		return map[string]any{"created": false, "message": "Task already exists"}, nil
	}
	if err := e.insertAITask(ctx, userID, title); err != nil {
		return nil, err
	}
	return map[string]any{"created": true, "taskTitle": title}, nil
}

func (e Engine) insertAITask(ctx context.Context, userID, title string) error {
	task := domain.UserTask{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Status:    "pending",
		Source:    "ai",
		CreatedAt: e.now().UTC().Format(time.RFC3339Nano),
	}
	if err := e.Repo.InsertTask(ctx, task); err != nil {
		return err
	}
	e.appendEvent(ctx, "task.created", userID, "task", task.ID, events.EventPayload{"title": title})
	return nil
}
