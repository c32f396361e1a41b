package engine

import (
	"context"
	"time"

	"counsellor/internal/domain"
)

func f(v float64) *float64 { return &v }

// seedCatalog is a small starter catalog. IDs are fixed so reseeding is
// an idempotent upsert, not a duplicate insert.
var seedCatalog = []domain.University{
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a01", Name: "Carnegie Mellon University", Country: "USA", Degree: "MS", Field: "Computer Science", YearlyCostUSD: 58000, MinGPA: f(3.6), Difficulty: "high"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a02", Name: "University of Toronto", Country: "Canada", Degree: "MS", Field: "Computer Science", YearlyCostUSD: 45000, MinGPA: f(3.4), Difficulty: "high"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a03", Name: "Technical University of Munich", Country: "Germany", Degree: "MS", Field: "Computer Science", YearlyCostUSD: 6000, MinGPA: f(3.3), Difficulty: "high"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a04", Name: "University of Melbourne", Country: "Australia", Degree: "MS", Field: "Computer Science", YearlyCostUSD: 42000, MinGPA: f(3.2), Difficulty: "medium"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a05", Name: "University of Waterloo", Country: "Canada", Degree: "MS", Field: "Computer Science", YearlyCostUSD: 38000, MinGPA: f(3.3), Difficulty: "medium"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a06", Name: "Arizona State University", Country: "USA", Degree: "MS", Field: "Computer Science", YearlyCostUSD: 32000, MinGPA: f(3.0), Difficulty: "medium"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a07", Name: "RWTH Aachen University", Country: "Germany", Degree: "MS", Field: "Mechanical Engineering", YearlyCostUSD: 5000, MinGPA: f(3.1), Difficulty: "medium"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a08", Name: "Deakin University", Country: "Australia", Degree: "MS", Field: "Information Technology", YearlyCostUSD: 28000, MinGPA: f(2.8), Difficulty: "low"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a09", Name: "University of Windsor", Country: "Canada", Degree: "MS", Field: "Computer Science", YearlyCostUSD: 24000, MinGPA: f(2.8), Difficulty: "low"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a10", Name: "University of Texas at Arlington", Country: "USA", Degree: "MS", Field: "Computer Science", YearlyCostUSD: 26000, MinGPA: f(2.9), Difficulty: "low"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a11", Name: "University of Essex", Country: "UK", Degree: "MS", Field: "Data Science", YearlyCostUSD: 27000, MinGPA: f(2.9), Difficulty: "low"},
	{ID: "0c8ff54a-9a5c-4c27-9e40-0d24cf2f2a12", Name: "Imperial College London", Country: "UK", Degree: "MS", Field: "Computing", YearlyCostUSD: 52000, MinGPA: f(3.6), Difficulty: "high"},
}

// SeedUniversities upserts the starter catalog and returns the count.
func (e Engine) SeedUniversities(ctx context.Context) (int, error) {
	now := e.now().UTC().Format(time.RFC3339)
	for _, u := range seedCatalog {
		u.CreatedAt = now
		if err := e.Repo.UpsertUniversity(ctx, u); err != nil {
			return 0, err
		}
	}
	return len(seedCatalog), nil
}
