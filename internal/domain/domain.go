package domain

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

// Profile holds the onboarding answers a counselling session is built on.
// Pointer fields stay nil until onboarding fills them in.
type Profile struct {
	UserID             string   `json:"userId"`
	EducationLevel     *string  `json:"educationLevel"`
	Major              *string  `json:"major"`
	GradYear           *int     `json:"gradYear"`
	GPA                *float64 `json:"gpa"`
	IntendedDegree     *string  `json:"intendedDegree"`
	FieldOfStudy       *string  `json:"fieldOfStudy"`
	IntakeYear         *int     `json:"intakeYear"`
	PreferredCountries []string `json:"preferredCountries"`
	BudgetPerYear      *int     `json:"budgetPerYear"`
	FundingPlan        *string  `json:"fundingPlan"`
	IELTSStatus        *string  `json:"ieltsStatus"`
	GREStatus          *string  `json:"greStatus"`
	SOPStatus          *string  `json:"sopStatus"`
	OnboardingComplete bool     `json:"onboardingCompleted"`
	UpdatedAt          string   `json:"updatedAt" format:"date-time"`
}

type University struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Country       string   `json:"country"`
	Degree        string   `json:"degree"`
	Field         string   `json:"field"`
	YearlyCostUSD int      `json:"yearlyCostUsd"`
	MinGPA        *float64 `json:"minGpa,omitempty"`
	Difficulty    string   `json:"difficulty" enum:"low,medium,high"`
	CreatedAt     string   `json:"createdAt" format:"date-time"`
}

// ShortlistEntry associates a user with a university.
// Status is "shortlisted" or "locked"; LockedAt is set only while locked.
type ShortlistEntry struct {
	ID           string  `json:"id"`
	UserID       string  `json:"userId"`
	UniversityID string  `json:"universityId"`
	Name         string  `json:"name"`
	Country      string  `json:"country"`
	Status       string  `json:"status" enum:"shortlisted,locked"`
	LockedAt     *string `json:"lockedAt,omitempty" format:"date-time"`
	CreatedAt    string  `json:"createdAt" format:"date-time"`
}

type UserTask struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	Title       string  `json:"title"`
	Status      string  `json:"status" enum:"pending,done"`
	Source      string  `json:"source" enum:"ai,manual"`
	CreatedAt   string  `json:"createdAt" format:"date-time"`
	CompletedAt *string `json:"completedAt,omitempty" format:"date-time"`
}

// ConversationTurn is one append-only message in a user's chat history.
type ConversationTurn struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Role      string `json:"role" enum:"user,assistant"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt" format:"date-time"`
}

// ScoredUniversity is a discovery candidate enriched with rule-based scoring.
type ScoredUniversity struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Country          string `json:"country"`
	YearlyCostUSD    int    `json:"yearlyCostUsd"`
	Difficulty       string `json:"difficulty"`
	Bucket           string `json:"bucket" enum:"DREAM,TARGET,SAFE"`
	AcceptanceChance string `json:"acceptanceChance" enum:"HIGH,MEDIUM,LOW"`
	Risk             string `json:"risk" enum:"HIGH,MEDIUM,LOW"`
	Reason           string `json:"reason"`
}

// StageSnapshot is the fresh account view returned after each chat call.
type StageSnapshot struct {
	Stage     int              `json:"stage"`
	Profile   Profile          `json:"profile"`
	Shortlist []ShortlistEntry `json:"shortlist"`
	Tasks     []UserTask       `json:"tasks"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	UserID     string `json:"user_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
