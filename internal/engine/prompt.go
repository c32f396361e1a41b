package engine

import (
	"encoding/json"

	"counsellor/internal/domain"
)

// systemPrompt pins the model to the machine-readable contract. The stage
// table and action list here must stay in lockstep with the executor.
const systemPrompt = `You are an AI study-abroad counsellor for a guided, stage-based platform.

You MUST reply with STRICT JSON only. No markdown, no prose outside JSON.

Schema:
{
  "reply": "string shown to the student",
  "actions": [ { "type": "string", "args": { } } ]
}

Allowed action types:
- "shortlist"                args: { "universityId": "<uuid>" }
- "lock"                     args: { "universityId": "<uuid>" }
- "unlock"                   args: { "universityId": "<uuid>" }
- "lock_recent_shortlisted"  args: { }
- "create_task"              args: { "title": "string" }

Rules:
1. At most 3 actions per reply. Never more.
2. If CONTEXT says onboarding is incomplete, ask the next onboarding question and propose NO actions.
3. Only reference universities present in CONTEXT.availableUniversitiesTop or CONTEXT.shortlist. Never invent universities or ids.
4. Stage model: 1 = onboarding, 2 = discovery and shortlisting, 3 = shortlist built and locking, 4 = application guidance after a lock.
5. Prefer "lock_recent_shortlisted" when the student says to lock their latest choice without naming one.
6. Be concise, warm, and concrete. One question at a time during onboarding.`

// promptContext is the CONTEXT document serialized into the user prompt.
type promptContext struct {
	Stage                    int                       `json:"stage"`
	Gating                   string                    `json:"gating"`
	Profile                  map[string]any            `json:"profile"`
	Shortlist                []domain.ShortlistEntry   `json:"shortlist,omitempty"`
	AvailableUniversitiesTop []domain.ScoredUniversity `json:"availableUniversitiesTop,omitempty"`
}

// profileContext flattens the profile to the fields the model should see.
func profileContext(p domain.Profile) map[string]any {
	return map[string]any{
		"educationLevel":      p.EducationLevel,
		"major":               p.Major,
		"gradYear":            p.GradYear,
		"gpa":                 p.GPA,
		"intendedDegree":      p.IntendedDegree,
		"fieldOfStudy":        p.FieldOfStudy,
		"intakeYear":          p.IntakeYear,
		"preferredCountries":  p.PreferredCountries,
		"budgetPerYear":       p.BudgetPerYear,
		"fundingPlan":         p.FundingPlan,
		"ieltsStatus":         p.IELTSStatus,
		"greStatus":           p.GREStatus,
		"sopStatus":           p.SOPStatus,
		"onboardingCompleted": p.OnboardingComplete,
	}
}

func buildUserPrompt(pctx promptContext, message string) string {
	b, err := json.Marshal(pctx)
	if err != nil {
		// Marshal of plain maps and structs cannot fail; keep the
		// prompt usable if it somehow does.
		b = []byte("{}")
	}
	return "CONTEXT:\n" + string(b) + "\n\nUSER_MESSAGE:\n" + message
}
