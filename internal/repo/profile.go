package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"counsellor/internal/domain"
)

func scanProfile(row *sql.Row) (domain.Profile, error) {
	var p domain.Profile
	var countries sql.NullString
	var completed int
	err := row.Scan(
		&p.UserID, &p.EducationLevel, &p.Major, &p.GradYear, &p.GPA,
		&p.IntendedDegree, &p.FieldOfStudy, &p.IntakeYear, &countries,
		&p.BudgetPerYear, &p.FundingPlan, &p.IELTSStatus, &p.GREStatus,
		&p.SOPStatus, &completed, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.OnboardingComplete = completed != 0
	if countries.Valid && countries.String != "" {
		_ = json.Unmarshal([]byte(countries.String), &p.PreferredCountries)
	}
	return p, nil
}

const profileColumns = `user_id,education_level,major,grad_year,gpa,intended_degree,field_of_study,intake_year,preferred_countries,budget_per_year,funding_plan,ielts_status,gre_status,sop_status,onboarding_completed,updated_at`

func (r Repo) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	return scanProfile(r.DB.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM user_profile WHERE user_id=?`, userID))
}

func (r Repo) UpsertProfile(ctx context.Context, p domain.Profile) error {
	countries, err := marshalCountries(p.PreferredCountries)
	if err != nil {
		return err
	}
	completed := 0
	if p.OnboardingComplete {
		completed = 1
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO user_profile(`+profileColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(user_id) DO UPDATE SET
  education_level=excluded.education_level, major=excluded.major,
  grad_year=excluded.grad_year, gpa=excluded.gpa,
  intended_degree=excluded.intended_degree, field_of_study=excluded.field_of_study,
  intake_year=excluded.intake_year, preferred_countries=excluded.preferred_countries,
  budget_per_year=excluded.budget_per_year, funding_plan=excluded.funding_plan,
  ielts_status=excluded.ielts_status, gre_status=excluded.gre_status,
  sop_status=excluded.sop_status, onboarding_completed=excluded.onboarding_completed,
  updated_at=excluded.updated_at`,
		p.UserID, p.EducationLevel, p.Major, p.GradYear, p.GPA,
		p.IntendedDegree, p.FieldOfStudy, p.IntakeYear, countries,
		p.BudgetPerYear, p.FundingPlan, p.IELTSStatus, p.GREStatus,
		p.SOPStatus, completed, p.UpdatedAt)
	return err
}

func marshalCountries(in []string) (any, error) {
	if len(in) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
