package engine

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"counsellor/internal/ai"
	"counsellor/internal/config"
	"counsellor/internal/domain"
	"counsellor/internal/events"
	"counsellor/internal/repo"
)

const (
	// Hard cap on executed actions per chat call; the 4th and beyond are
	// dropped silently, not reported as results.
	maxActionsPerChat = 3
	// Discovery candidates embedded in the model context.
	discoveryContextLimit = 25

	fallbackReply    = "I'm warming up. Please click retry — your data is safe."
	onboardingSuffix = "\n\n(Please complete onboarding first.)"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Model  ai.Generator
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, model ai.Generator) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Model:  model,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// ChatResult is the outcome of one orchestration call.
type ChatResult struct {
	Reply    string               `json:"reply"`
	Actions  []ActionResult       `json:"actions"`
	Snapshot domain.StageSnapshot `json:"snapshot"`
}

// Chat runs one full orchestration: persist the user turn, build model
// context, route to a provider, decode the contract, gate and execute
// actions, persist the assistant turn, and return a fresh snapshot.
// Model-pipeline failures never escape; they degrade to the fallback
// contract. Errors returned here are storage failures only.
func (e Engine) Chat(ctx context.Context, userID, message string) (ChatResult, error) {
	if err := e.appendTurn(ctx, userID, "user", message); err != nil {
		return ChatResult{}, err
	}

	stage, err := e.RecalculateStage(ctx, userID)
	if err != nil {
		return ChatResult{}, err
	}
	profile, err := e.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return ChatResult{}, err
	}
	onboardingComplete := profile.OnboardingComplete

	pctx := promptContext{Stage: stage, Profile: profileContext(profile)}
	if onboardingComplete {
		pctx.Gating = "Onboarding complete. Recommend universities and take actions if helpful."
		shortlist, err := e.Repo.ListShortlist(ctx, userID)
		if err != nil {
			return ChatResult{}, err
		}
		pctx.Shortlist = shortlist
		scored, err := e.Discover(ctx, userID)
		if err != nil {
			return ChatResult{}, err
		}
		if len(scored) > discoveryContextLimit {
			scored = scored[:discoveryContextLimit]
		}
		pctx.AvailableUniversitiesTop = scored
	} else {
		pctx.Gating = "Onboarding incomplete. DO NOT recommend universities. Ask onboarding questions only."
	}

	contract := e.resolveContract(ctx, systemPrompt, buildUserPrompt(pctx, message))

	reply := contract.Reply
	actions := contract.Actions
	// Gate before the cap: an incomplete-onboarding user never triggers
	// side effects, whatever the model proposed.
	if !onboardingComplete && len(actions) > 0 {
		actions = nil
		reply += onboardingSuffix
	}

	executed := e.executeActions(ctx, userID, actions)

	if err := e.appendTurn(ctx, userID, "assistant", reply); err != nil {
		return ChatResult{}, err
	}

	snapshot, err := e.Snapshot(ctx, userID)
	if err != nil {
		return ChatResult{}, err
	}
	return ChatResult{Reply: reply, Actions: executed, Snapshot: snapshot}, nil
}

// resolveContract is the degrade-to-fallback combinator: any failure in
// route → normalize → parse yields the fixed safe contract.
func (e Engine) resolveContract(ctx context.Context, systemPrompt, userPrompt string) ai.Contract {
	fallback := ai.Contract{Reply: fallbackReply, Actions: []ai.Action{}}

	raw, err := e.Model.GenerateRaw(ctx, systemPrompt, userPrompt)
	if err != nil {
		log.Printf("engine: model route failed: %v", err)
		return fallback
	}
	if len(raw) == 0 {
		log.Printf("engine: model returned empty response")
		return fallback
	}
	text, err := ai.ExtractText(raw)
	if err != nil {
		log.Printf("engine: normalize response failed: %v", err)
		return fallback
	}
	contract, err := ai.ParseContract(text)
	if err != nil {
		log.Printf("engine: parse contract failed: %v", err)
		return fallback
	}
	return contract
}

// Snapshot rebuilds the stage view from the collaborators. Always fresh,
// never cached: actions in the same call may have changed state.
func (e Engine) Snapshot(ctx context.Context, userID string) (domain.StageSnapshot, error) {
	stage, err := e.RecalculateStage(ctx, userID)
	if err != nil {
		return domain.StageSnapshot{}, err
	}
	profile, err := e.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return domain.StageSnapshot{}, err
	}
	shortlist, err := e.Repo.ListShortlist(ctx, userID)
	if err != nil {
		return domain.StageSnapshot{}, err
	}
	tasks, err := e.Repo.ListTasks(ctx, userID)
	if err != nil {
		return domain.StageSnapshot{}, err
	}
	if shortlist == nil {
		shortlist = []domain.ShortlistEntry{}
	}
	if tasks == nil {
		tasks = []domain.UserTask{}
	}
	return domain.StageSnapshot{Stage: stage, Profile: profile, Shortlist: shortlist, Tasks: tasks}, nil
}

// History returns the user's conversation turns ordered by creation time.
func (e Engine) History(ctx context.Context, userID string) ([]domain.ConversationTurn, error) {
	turns, err := e.Repo.ListTurns(ctx, userID)
	if err != nil {
		return nil, err
	}
	if turns == nil {
		turns = []domain.ConversationTurn{}
	}
	return turns, nil
}

// Warmup fires a minimal routed call and swallows any failure.
func (e Engine) Warmup(ctx context.Context) {
	if _, err := e.Model.GenerateRaw(ctx, "You are a health check. Reply with OK in JSON.", "ping"); err != nil {
		log.Printf("engine: warmup failed: %v", err)
	}
}

func (e Engine) appendTurn(ctx context.Context, userID, role, content string) error {
	turn := domain.ConversationTurn{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: e.now().UTC().Format(time.RFC3339Nano),
	}
	if err := e.Repo.InsertTurn(ctx, turn); err != nil {
		return err
	}
	e.appendEvent(ctx, "chat."+role, userID, "message", turn.ID, events.EventPayload{"role": role})
	return nil
}

// appendEvent writes an audit row best-effort; the audit log never fails
// a user-facing call.
func (e Engine) appendEvent(ctx context.Context, evtType, userID, entityKind, entityID string, payload events.EventPayload) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("engine: audit begin failed: %v", err)
		return
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, evtType, userID, entityKind, entityID, payload); err != nil {
		log.Printf("engine: audit append failed: %v", err)
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("engine: audit commit failed: %v", err)
	}
}
