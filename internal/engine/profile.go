package engine

import (
	"context"
	"errors"
	"time"

	"counsellor/internal/domain"
	"counsellor/internal/events"
	"counsellor/internal/repo"
)

// ProfileUpdate carries onboarding answers. Nil fields are "no answer
// given", and a full update overwrites the stored row field for field,
// so callers send the complete current answer set each time.
type ProfileUpdate struct {
	EducationLevel     *string  `json:"educationLevel,omitempty"`
	Major              *string  `json:"major,omitempty"`
	GradYear           *int     `json:"gradYear,omitempty"`
	GPA                *float64 `json:"gpa,omitempty"`
	IntendedDegree     *string  `json:"intendedDegree,omitempty"`
	FieldOfStudy       *string  `json:"fieldOfStudy,omitempty"`
	IntakeYear         *int     `json:"intakeYear,omitempty"`
	PreferredCountries []string `json:"preferredCountries,omitempty"`
	BudgetPerYear      *int     `json:"budgetPerYear,omitempty"`
	FundingPlan        *string  `json:"fundingPlan,omitempty"`
	IELTSStatus        *string  `json:"ieltsStatus,omitempty"`
	GREStatus          *string  `json:"greStatus,omitempty"`
	SOPStatus          *string  `json:"sopStatus,omitempty"`
}

// GetOrCreateProfile returns the stored profile, creating an empty row
// on first touch so later updates are plain upserts.
func (e Engine) GetOrCreateProfile(ctx context.Context, userID string) (domain.Profile, error) {
	p, err := e.Repo.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return p, err
	}
	p = domain.Profile{UserID: userID, UpdatedAt: e.now().UTC().Format(time.RFC3339)}
	if err := e.Repo.UpsertProfile(ctx, p); err != nil {
		return p, err
	}
	if _, err := e.RecalculateStage(ctx, userID); err != nil {
		return p, err
	}
	return p, nil
}

// UpdateProfile overwrites the answer fields and recomputes the stage.
// The onboarding-complete flag is untouched here; completion is its own
// explicit call.
func (e Engine) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (domain.Profile, error) {
	p, err := e.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return p, err
	}
	p.EducationLevel = upd.EducationLevel
	p.Major = upd.Major
	p.GradYear = upd.GradYear
	p.GPA = upd.GPA
	p.IntendedDegree = upd.IntendedDegree
	p.FieldOfStudy = upd.FieldOfStudy
	p.IntakeYear = upd.IntakeYear
	p.PreferredCountries = upd.PreferredCountries
	p.BudgetPerYear = upd.BudgetPerYear
	p.FundingPlan = upd.FundingPlan
	p.IELTSStatus = upd.IELTSStatus
	p.GREStatus = upd.GREStatus
	p.SOPStatus = upd.SOPStatus
	p.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpsertProfile(ctx, p); err != nil {
		return p, err
	}
	if _, err := e.RecalculateStage(ctx, userID); err != nil {
		return p, err
	}
	e.appendEvent(ctx, "profile.updated", userID, "profile", userID, nil)
	return p, nil
}

// CompleteOnboarding flips the gate that unlocks discovery and actions.
func (e Engine) CompleteOnboarding(ctx context.Context, userID string) (domain.Profile, error) {
	p, err := e.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return p, err
	}
	p.OnboardingComplete = true
	p.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpsertProfile(ctx, p); err != nil {
		return p, err
	}
	if _, err := e.RecalculateStage(ctx, userID); err != nil {
		return p, err
	}
	e.appendEvent(ctx, "profile.onboarding_completed", userID, "profile", userID, events.EventPayload{"onboardingCompleted": true})
	return p, nil
}
