package repo

import (
	"context"

	"counsellor/internal/domain"
)

func (r Repo) InsertTurn(ctx context.Context, t domain.ConversationTurn) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO ai_messages(id,user_id,role,content,created_at) VALUES (?,?,?,?,?)`,
		t.ID, t.UserID, t.Role, t.Content, t.CreatedAt)
	return err
}

// ListTurns returns a user's conversation history ordered oldest first.
func (r Repo) ListTurns(ctx context.Context, userID string) ([]domain.ConversationTurn, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,user_id,role,content,created_at FROM ai_messages WHERE user_id=? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ConversationTurn
	for rows.Next() {
		var t domain.ConversationTurn
		if err := rows.Scan(&t.ID, &t.UserID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
