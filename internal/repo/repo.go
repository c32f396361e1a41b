package repo

import (
	"context"
	"database/sql"
	"errors"

	"counsellor/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// --- users ---

func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(id,name,email,password_hash,created_at) VALUES (?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	return err
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT id,name,email,password_hash,created_at FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT id,name,email,password_hash,created_at FROM users WHERE email=?`, email))
}

func (r Repo) EmailExists(ctx context.Context, email string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=? LIMIT 1`, email).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// --- stage ---

func (r Repo) GetStage(ctx context.Context, userID string) (int, error) {
	var stage int
	err := r.DB.QueryRowContext(ctx, `SELECT stage FROM user_stage WHERE user_id=?`, userID).Scan(&stage)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return stage, err
}

func (r Repo) UpsertStage(ctx context.Context, userID string, stage int, now string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO user_stage(user_id,stage,updated_at) VALUES (?,?,?)
ON CONFLICT(user_id) DO UPDATE SET stage=excluded.stage, updated_at=excluded.updated_at`, userID, stage, now)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
