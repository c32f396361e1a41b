package repo

import (
	"context"
	"database/sql"

	"counsellor/internal/domain"
)

const taskColumns = `id,user_id,title,status,source,created_at,completed_at`

func (r Repo) ListTasks(ctx context.Context, userID string) ([]domain.UserTask, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM user_tasks WHERE user_id=? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.UserTask
	for rows.Next() {
		var t domain.UserTask
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Status, &t.Source, &t.CreatedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.UserTask, error) {
	var t domain.UserTask
	err := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM user_tasks WHERE id=?`, id).
		Scan(&t.ID, &t.UserID, &t.Title, &t.Status, &t.Source, &t.CreatedAt, &t.CompletedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) InsertTask(ctx context.Context, t domain.UserTask) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO user_tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.UserID, t.Title, t.Status, t.Source, t.CreatedAt, t.CompletedAt)
	return err
}

func (r Repo) UpdateTaskStatus(ctx context.Context, id, status string, completedAt *string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE user_tasks SET status=?, completed_at=? WHERE id=?`, status, completedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TaskTitleExists checks for a case-insensitive title match for the user.
func (r Repo) TaskTitleExists(ctx context.Context, userID, title string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM user_tasks WHERE user_id=? AND lower(title)=lower(?) LIMIT 1`, userID, title).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
