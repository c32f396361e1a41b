package repo

import (
	"context"
	"database/sql"
	"strings"

	"counsellor/internal/domain"
)

const universityColumns = `id,name,country,COALESCE(degree,'') AS degree,COALESCE(field,'') AS field,yearly_cost_usd,min_gpa,COALESCE(difficulty,'') AS difficulty,created_at`

func scanUniversity(rows *sql.Rows) (domain.University, error) {
	var u domain.University
	err := rows.Scan(&u.ID, &u.Name, &u.Country, &u.Degree, &u.Field, &u.YearlyCostUSD, &u.MinGPA, &u.Difficulty, &u.CreatedAt)
	return u, err
}

func (r Repo) GetUniversity(ctx context.Context, id string) (domain.University, error) {
	var u domain.University
	err := r.DB.QueryRowContext(ctx, `SELECT `+universityColumns+` FROM universities WHERE id=?`, id).
		Scan(&u.ID, &u.Name, &u.Country, &u.Degree, &u.Field, &u.YearlyCostUSD, &u.MinGPA, &u.Difficulty, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) ListUniversities(ctx context.Context, countries []string) ([]domain.University, error) {
	query := `SELECT ` + universityColumns + ` FROM universities`
	var args []any
	if len(countries) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(countries)), ",")
		query += ` WHERE country IN (` + placeholders + `)`
		for _, c := range countries {
			args = append(args, c)
		}
	}
	query += ` ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.University
	for rows.Next() {
		u, err := scanUniversity(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) UpsertUniversity(ctx context.Context, u domain.University) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO universities(id,name,country,degree,field,yearly_cost_usd,min_gpa,difficulty,created_at) VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, country=excluded.country, degree=excluded.degree,
  field=excluded.field, yearly_cost_usd=excluded.yearly_cost_usd, min_gpa=excluded.min_gpa, difficulty=excluded.difficulty`,
		u.ID, u.Name, u.Country, nullable(u.Degree), nullable(u.Field), u.YearlyCostUSD, u.MinGPA, nullable(u.Difficulty), u.CreatedAt)
	return err
}

// --- shortlist ---

const shortlistColumns = `uu.id, uu.user_id, uu.university_id, u.name, u.country, uu.status, uu.locked_at, uu.created_at`

func (r Repo) ListShortlist(ctx context.Context, userID string) ([]domain.ShortlistEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+shortlistColumns+` FROM user_universities uu
JOIN universities u ON u.id = uu.university_id WHERE uu.user_id=? ORDER BY uu.created_at DESC, uu.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ShortlistEntry
	for rows.Next() {
		var e domain.ShortlistEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.UniversityID, &e.Name, &e.Country, &e.Status, &e.LockedAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) GetShortlistEntry(ctx context.Context, userID, universityID string) (domain.ShortlistEntry, error) {
	var e domain.ShortlistEntry
	err := r.DB.QueryRowContext(ctx, `SELECT `+shortlistColumns+` FROM user_universities uu
JOIN universities u ON u.id = uu.university_id WHERE uu.user_id=? AND uu.university_id=?`, userID, universityID).
		Scan(&e.ID, &e.UserID, &e.UniversityID, &e.Name, &e.Country, &e.Status, &e.LockedAt, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	return e, err
}

// MostRecentShortlisted returns the newest entry still in status "shortlisted".
func (r Repo) MostRecentShortlisted(ctx context.Context, userID string) (domain.ShortlistEntry, error) {
	var e domain.ShortlistEntry
	err := r.DB.QueryRowContext(ctx, `SELECT `+shortlistColumns+` FROM user_universities uu
JOIN universities u ON u.id = uu.university_id
WHERE uu.user_id=? AND lower(uu.status)='shortlisted'
ORDER BY uu.created_at DESC, uu.id DESC LIMIT 1`, userID).
		Scan(&e.ID, &e.UserID, &e.UniversityID, &e.Name, &e.Country, &e.Status, &e.LockedAt, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	return e, err
}

func (r Repo) InsertShortlistEntry(ctx context.Context, e domain.ShortlistEntry) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO user_universities(id,user_id,university_id,status,locked_at,created_at) VALUES (?,?,?,?,?,?)`,
		e.ID, e.UserID, e.UniversityID, e.Status, e.LockedAt, e.CreatedAt)
	return err
}

// SetShortlistStatus mutates status in place; lockedAt nil clears the lock timestamp.
func (r Repo) SetShortlistStatus(ctx context.Context, entryID, status string, lockedAt *string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE user_universities SET status=?, locked_at=? WHERE id=?`, status, lockedAt, entryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) HasLocked(ctx context.Context, userID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM user_universities WHERE user_id=? AND lower(status)='locked' LIMIT 1`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r Repo) HasShortlist(ctx context.Context, userID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM user_universities WHERE user_id=? LIMIT 1`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
