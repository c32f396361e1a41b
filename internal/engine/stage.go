package engine

import (
	"context"
	"errors"
	"time"

	"counsellor/internal/repo"
)

// RecalculateStage derives the stage from stored state and persists it.
// The ladder is strictly ordered: a lock without onboarding still reads
// as stage 1 because each rung requires the one below it.
func (e Engine) RecalculateStage(ctx context.Context, userID string) (int, error) {
	stage := 1

	profile, err := e.Repo.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return 0, err
	}
	if err == nil && profile.OnboardingComplete {
		stage = 2
	}

	if stage >= 2 {
		has, err := e.Repo.HasShortlist(ctx, userID)
		if err != nil {
			return 0, err
		}
		if has {
			stage = 3
		}
	}

	if stage >= 3 {
		locked, err := e.Repo.HasLocked(ctx, userID)
		if err != nil {
			return 0, err
		}
		if locked {
			stage = 4
		}
	}

	if err := e.Repo.UpsertStage(ctx, userID, stage, e.now().UTC().Format(time.RFC3339)); err != nil {
		return 0, err
	}
	return stage, nil
}
