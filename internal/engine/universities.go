package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"counsellor/internal/domain"
	"counsellor/internal/events"
	"counsellor/internal/repo"
)

// Budget stretch allowed above the stated yearly budget during discovery.
const budgetStretchUSD = 15000

var (
	ErrOnboardingIncomplete = errors.New("complete onboarding first")
	ErrNotShortlisted       = errors.New("shortlist the university before locking")
	ErrNothingToLock        = errors.New("no shortlisted university found to lock; shortlist first")
)

// ShortlistResult is the outcome of a shortlist mutation.
type ShortlistResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r ShortlistResult) resultMap() map[string]any {
	return map[string]any{"status": r.Status, "message": r.Message}
}

// Discover scores the catalog against the user's profile with simple
// rules: country and stretched-budget filters, then bucket, acceptance
// chance, and risk per university, sorted DREAM before TARGET before SAFE.
func (e Engine) Discover(ctx context.Context, userID string) ([]domain.ScoredUniversity, error) {
	profile, err := e.Repo.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOnboardingIncomplete
		}
		return nil, err
	}
	if !profile.OnboardingComplete {
		return nil, ErrOnboardingIncomplete
	}

	unis, err := e.Repo.ListUniversities(ctx, profile.PreferredCountries)
	if err != nil {
		return nil, err
	}

	gpa := 0.0
	if profile.GPA != nil {
		gpa = *profile.GPA
	}

	out := []domain.ScoredUniversity{}
	for _, u := range unis {
		if profile.BudgetPerYear != nil && u.YearlyCostUSD > *profile.BudgetPerYear+budgetStretchUSD {
			continue
		}
		bucket := scoreBucket(u, gpa)
		out = append(out, domain.ScoredUniversity{
			ID:               u.ID,
			Name:             u.Name,
			Country:          u.Country,
			YearlyCostUSD:    u.YearlyCostUSD,
			Difficulty:       u.Difficulty,
			Bucket:           bucket,
			AcceptanceChance: scoreAcceptance(u, gpa),
			Risk:             scoreRisk(profile, u, gpa),
			Reason:           bucketReason(bucket),
		})
	}

	rank := map[string]int{"DREAM": 1, "TARGET": 2, "SAFE": 3}
	sort.SliceStable(out, func(i, j int) bool {
		return rank[out[i].Bucket] < rank[out[j].Bucket]
	})
	return out, nil
}

func scoreBucket(u domain.University, gpa float64) string {
	switch strings.ToLower(u.Difficulty) {
	case "high":
		if gpa >= 3.4 {
			return "DREAM"
		}
		return "TARGET"
	case "medium":
		return "TARGET"
	default:
		return "SAFE"
	}
}

func scoreAcceptance(u domain.University, gpa float64) string {
	if u.MinGPA == nil {
		return "MEDIUM"
	}
	switch {
	case gpa >= *u.MinGPA+0.3:
		return "HIGH"
	case gpa >= *u.MinGPA:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func scoreRisk(p domain.Profile, u domain.University, gpa float64) string {
	risk := 0
	if p.BudgetPerYear != nil && u.YearlyCostUSD > *p.BudgetPerYear {
		risk++
	}
	if u.MinGPA != nil && gpa < *u.MinGPA {
		risk += 2
	}
	if notReady(p.IELTSStatus) {
		risk++
	}
	if notReady(p.GREStatus) {
		risk++
	}
	if notReady(p.SOPStatus) {
		risk++
	}
	switch {
	case risk >= 4:
		return "HIGH"
	case risk >= 2:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func bucketReason(bucket string) string {
	switch bucket {
	case "DREAM":
		return "Strong university fit but competitive; needs strong SOP & exam readiness."
	case "TARGET":
		return "Balanced option based on budget/profile with manageable risk."
	default:
		return "Safe pick; high acceptance chances and easier profile match."
	}
}

func notReady(s *string) bool {
	if s == nil {
		return true
	}
	x := strings.ToLower(*s)
	return strings.Contains(x, "not") || strings.Contains(x, "pending")
}

// MyShortlist lists the user's entries, never nil.
func (e Engine) MyShortlist(ctx context.Context, userID string) ([]domain.ShortlistEntry, error) {
	list, err := e.Repo.ListShortlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.ShortlistEntry{}
	}
	return list, nil
}

// Shortlist adds a university to the user's list. Idempotent: an existing
// entry reports its current status instead of erroring or duplicating.
func (e Engine) Shortlist(ctx context.Context, userID, universityID string) (ShortlistResult, error) {
	profile, err := e.Repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return ShortlistResult{}, err
	}
	if err != nil || !profile.OnboardingComplete {
		return ShortlistResult{}, errors.New("complete onboarding before shortlisting")
	}

	if _, err := e.Repo.GetUniversity(ctx, universityID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ShortlistResult{}, errors.New("university not found")
		}
		return ShortlistResult{}, err
	}

	existing, err := e.Repo.GetShortlistEntry(ctx, userID, universityID)
	if err == nil {
		return ShortlistResult{Status: existing.Status, Message: "Already in your list."}, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return ShortlistResult{}, err
	}

	entry := domain.ShortlistEntry{
		ID:           uuid.New().String(),
		UserID:       userID,
		UniversityID: universityID,
		Status:       "shortlisted",
		CreatedAt:    e.now().UTC().Format(time.RFC3339Nano),
	}
	if err := e.Repo.InsertShortlistEntry(ctx, entry); err != nil {
		return ShortlistResult{}, err
	}
	if _, err := e.RecalculateStage(ctx, userID); err != nil {
		return ShortlistResult{}, err
	}
	e.appendEvent(ctx, "shortlist.added", userID, "shortlist", entry.ID, events.EventPayload{"universityId": universityID})
	return ShortlistResult{Status: "shortlisted", Message: "University shortlisted."}, nil
}

// Lock marks an existing entry as locked and stamps the lock time.
func (e Engine) Lock(ctx context.Context, userID, universityID string) (ShortlistResult, error) {
	entry, err := e.Repo.GetShortlistEntry(ctx, userID, universityID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ShortlistResult{}, ErrNotShortlisted
		}
		return ShortlistResult{}, err
	}
	return e.lockEntry(ctx, userID, entry, "University locked. Application guidance unlocked.")
}

// Unlock reverts a locked entry to shortlisted and clears the lock time.
func (e Engine) Unlock(ctx context.Context, userID, universityID string) (ShortlistResult, error) {
	entry, err := e.Repo.GetShortlistEntry(ctx, userID, universityID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ShortlistResult{}, errors.New("university not found in your list")
		}
		return ShortlistResult{}, err
	}
	if err := e.Repo.SetShortlistStatus(ctx, entry.ID, "shortlisted", nil); err != nil {
		return ShortlistResult{}, err
	}
	if _, err := e.RecalculateStage(ctx, userID); err != nil {
		return ShortlistResult{}, err
	}
	e.appendEvent(ctx, "shortlist.unlocked", userID, "shortlist", entry.ID, nil)
	return ShortlistResult{Status: "shortlisted", Message: "University unlocked. Warning: focus may reduce and application stage may lock again."}, nil
}

// LockRecentShortlisted locks the newest entry still in status shortlisted.
func (e Engine) LockRecentShortlisted(ctx context.Context, userID string) (ShortlistResult, error) {
	entry, err := e.Repo.MostRecentShortlisted(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ShortlistResult{}, ErrNothingToLock
		}
		return ShortlistResult{}, err
	}
	return e.lockEntry(ctx, userID, entry, "Locked your most recently shortlisted university.")
}

func (e Engine) lockEntry(ctx context.Context, userID string, entry domain.ShortlistEntry, message string) (ShortlistResult, error) {
	lockedAt := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.SetShortlistStatus(ctx, entry.ID, "locked", &lockedAt); err != nil {
		return ShortlistResult{}, err
	}
	if _, err := e.RecalculateStage(ctx, userID); err != nil {
		return ShortlistResult{}, err
	}
	e.appendEvent(ctx, "shortlist.locked", userID, "shortlist", entry.ID, events.EventPayload{"universityId": entry.UniversityID})
	return ShortlistResult{Status: "locked", Message: message}, nil
}
