package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"counsellor/internal/ai"
	"counsellor/internal/config"
	"counsellor/internal/db"
	"counsellor/internal/domain"
	"counsellor/internal/engine"
	"counsellor/internal/migrate"
)

const (
	testUser = "11111111-1111-1111-1111-111111111111"
	uniA     = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	uniB     = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
)

// scriptedModel returns a canned raw response or error.
type scriptedModel struct {
	raw   map[string]any
	err   error
	calls int
}

func (m *scriptedModel) GenerateRaw(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.raw, nil
}

// contractRaw wraps contract JSON in an OpenAI-shaped response body.
func contractRaw(contract string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": contract}},
		},
	}
}

type testEnv struct {
	Engine engine.Engine
	Model  *scriptedModel
	Ctx    context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	model := &scriptedModel{raw: contractRaw(`{"reply":"hi","actions":[]}`)}
	eng := engine.New(conn, config.Default(), model)
	// strictly increasing clock so created_at ordering is deterministic
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	eng.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	ctx := context.Background()
	if err := eng.Repo.InsertUser(ctx, domain.User{
		ID: testUser, Name: "Asha", Email: "asha@example.com",
		PasswordHash: "x", CreatedAt: base.Format(time.RFC3339),
	}); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return &testEnv{Engine: eng, Model: model, Ctx: ctx}
}

func (env *testEnv) seedUniversity(t *testing.T, id, name, country string, cost int, minGPA float64, difficulty string) {
	t.Helper()
	err := env.Engine.Repo.UpsertUniversity(env.Ctx, domain.University{
		ID: id, Name: name, Country: country, YearlyCostUSD: cost,
		MinGPA: &minGPA, Difficulty: difficulty, CreatedAt: "2025-06-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("seed university: %v", err)
	}
}

func (env *testEnv) onboard(t *testing.T, gpa float64, budget int, countries ...string) {
	t.Helper()
	if _, err := env.Engine.UpdateProfile(env.Ctx, testUser, engine.ProfileUpdate{
		GPA:                &gpa,
		BudgetPerYear:      &budget,
		PreferredCountries: countries,
	}); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if _, err := env.Engine.CompleteOnboarding(env.Ctx, testUser); err != nil {
		t.Fatalf("complete onboarding: %v", err)
	}
}

func TestChatCapsActionsAtThree(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, 3.5, 50000)
	actions := make([]string, 0, 5)
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		actions = append(actions, `{"type":"create_task","args":{"title":"`+title+`"}}`)
	}
	env.Model.raw = contractRaw(`{"reply":"busy","actions":[` + strings.Join(actions, ",") + `]}`)

	res, err := env.Engine.Chat(env.Ctx, testUser, "make tasks")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(res.Actions) != 3 {
		t.Fatalf("expected 3 executed actions, got %d", len(res.Actions))
	}
	for i, want := range []string{"a", "b", "c"} {
		if res.Actions[i].Result["taskTitle"] != want {
			t.Fatalf("action %d: %+v", i, res.Actions[i])
		}
	}
	tasks, err := env.Engine.MyTasks(env.Ctx, testUser)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks persisted, got %d", len(tasks))
	}
}

func TestChatGatesActionsBeforeOnboarding(t *testing.T) {
	env := newTestEnv(t)
	env.Model.raw = contractRaw(`{"reply":"Let me help.","actions":[{"type":"create_task","args":{"title":"sneaky"}}]}`)

	res, err := env.Engine.Chat(env.Ctx, testUser, "hello")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(res.Actions) != 0 {
		t.Fatalf("expected no executed actions, got %+v", res.Actions)
	}
	if !strings.HasSuffix(res.Reply, "(Please complete onboarding first.)") {
		t.Fatalf("missing gating suffix: %q", res.Reply)
	}
	if res.Snapshot.Stage != 1 {
		t.Fatalf("stage %d", res.Snapshot.Stage)
	}
	tasks, _ := env.Engine.MyTasks(env.Ctx, testUser)
	if len(tasks) != 0 {
		t.Fatalf("gated action still ran: %+v", tasks)
	}
	// the persisted assistant turn carries the suffixed reply
	turns, err := env.Engine.History(env.Ctx, testUser)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[1].Role != "assistant" || turns[1].Content != res.Reply {
		t.Fatalf("assistant turn %+v", turns[1])
	}
}

func TestChatActionFailureIsIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, 3.5, 50000)
	env.Model.raw = contractRaw(`{"reply":"ok","actions":[
		{"type":"create_task","args":{"title":"first"}},
		{"type":"shortlist","args":{"universityId":"not-a-uuid"}},
		{"type":"create_task","args":{"title":"third"}}
	]}`)

	res, err := env.Engine.Chat(env.Ctx, testUser, "do things")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(res.Actions) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res.Actions))
	}
	if res.Actions[0].Error != "" || res.Actions[2].Error != "" {
		t.Fatalf("siblings should succeed: %+v", res.Actions)
	}
	if res.Actions[1].Error == "" || !strings.Contains(res.Actions[1].Error, "universityId") {
		t.Fatalf("middle action should fail with arg error: %+v", res.Actions[1])
	}
}

func TestChatUnknownActionIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, 3.5, 50000)
	env.Model.raw = contractRaw(`{"reply":"ok","actions":[{"type":"summon_dragon","args":{}}]}`)

	res, err := env.Engine.Chat(env.Ctx, testUser, "do magic")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(res.Actions) != 1 {
		t.Fatalf("results %+v", res.Actions)
	}
	if res.Actions[0].Error != "" {
		t.Fatalf("unknown type is not an error: %+v", res.Actions[0])
	}
	if res.Actions[0].Result["ignored"] != true {
		t.Fatalf("expected ignored result: %+v", res.Actions[0].Result)
	}
}

func TestChatFallsBackWhenAllProvidersFail(t *testing.T) {
	env := newTestEnv(t)
	env.Model.err = errors.New("every provider down")

	res, err := env.Engine.Chat(env.Ctx, testUser, "are you there?")
	if err != nil {
		t.Fatalf("chat must not surface pipeline errors: %v", err)
	}
	if res.Reply != "I'm warming up. Please click retry — your data is safe." {
		t.Fatalf("reply %q", res.Reply)
	}
	if len(res.Actions) != 0 {
		t.Fatalf("actions %+v", res.Actions)
	}
	turns, err := env.Engine.History(env.Ctx, testUser)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("both turns must persist on failure, got %d", len(turns))
	}
	if turns[1].Content != res.Reply {
		t.Fatalf("fallback reply not committed: %q", turns[1].Content)
	}
}

func TestChatFallsBackOnMalformedContract(t *testing.T) {
	env := newTestEnv(t)
	env.Model.raw = contractRaw("this is not json")

	res, err := env.Engine.Chat(env.Ctx, testUser, "hi")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(res.Reply, "warming up") {
		t.Fatalf("reply %q", res.Reply)
	}
}

func TestChatLockRecentShortlistedEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.seedUniversity(t, uniA, "Uni A", "Canada", 30000, 3.0, "medium")
	env.seedUniversity(t, uniB, "Uni B", "Canada", 30000, 3.0, "medium")
	env.onboard(t, 3.5, 50000, "Canada")
	if _, err := env.Engine.Shortlist(env.Ctx, testUser, uniA); err != nil {
		t.Fatalf("shortlist A: %v", err)
	}
	if _, err := env.Engine.Shortlist(env.Ctx, testUser, uniB); err != nil {
		t.Fatalf("shortlist B: %v", err)
	}
	env.Model.raw = contractRaw(`{"reply":"Done, locked it.","actions":[{"type":"lock_recent_shortlisted","args":{}}]}`)

	res, err := env.Engine.Chat(env.Ctx, testUser, "lock my latest shortlisted school")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(res.Actions) != 1 {
		t.Fatalf("actions %+v", res.Actions)
	}
	got := res.Actions[0].Result
	if got["status"] != "locked" || got["message"] != "Locked your most recently shortlisted university." {
		t.Fatalf("result %+v", got)
	}
	if res.Snapshot.Stage != 4 {
		t.Fatalf("stage after lock %d", res.Snapshot.Stage)
	}
	// B was shortlisted after A, so B holds the lock
	entry, err := env.Engine.Repo.GetShortlistEntry(env.Ctx, testUser, uniB)
	if err != nil || entry.Status != "locked" {
		t.Fatalf("entry B %+v err %v", entry, err)
	}
	entry, err = env.Engine.Repo.GetShortlistEntry(env.Ctx, testUser, uniA)
	if err != nil || entry.Status != "shortlisted" {
		t.Fatalf("entry A %+v err %v", entry, err)
	}
}

func TestShortlistIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedUniversity(t, uniA, "Uni A", "Canada", 30000, 3.0, "medium")
	env.onboard(t, 3.5, 50000, "Canada")

	first, err := env.Engine.Shortlist(env.Ctx, testUser, uniA)
	if err != nil {
		t.Fatalf("shortlist: %v", err)
	}
	if first.Status != "shortlisted" {
		t.Fatalf("first %+v", first)
	}
	second, err := env.Engine.Shortlist(env.Ctx, testUser, uniA)
	if err != nil {
		t.Fatalf("repeat shortlist: %v", err)
	}
	if second.Status != "shortlisted" || second.Message != "Already in your list." {
		t.Fatalf("second %+v", second)
	}
	list, _ := env.Engine.MyShortlist(env.Ctx, testUser)
	if len(list) != 1 {
		t.Fatalf("duplicate entry created: %+v", list)
	}
}

func TestCreateTaskActionDedup(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, 3.5, 50000)
	env.Model.raw = contractRaw(`{"reply":"ok","actions":[{"type":"create_task","args":{"title":"Write SOP"}}]}`)
	if _, err := env.Engine.Chat(env.Ctx, testUser, "add task"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	env.Model.raw = contractRaw(`{"reply":"ok","actions":[{"type":"create_task","args":{"title":"write sop"}}]}`)
	res, err := env.Engine.Chat(env.Ctx, testUser, "add it again")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Actions[0].Result["created"] != false {
		t.Fatalf("expected created=false: %+v", res.Actions[0].Result)
	}
	tasks, _ := env.Engine.MyTasks(env.Ctx, testUser)
	if len(tasks) != 1 {
		t.Fatalf("dedup failed: %+v", tasks)
	}
}

func TestStageLadder(t *testing.T) {
	env := newTestEnv(t)
	env.seedUniversity(t, uniA, "Uni A", "Canada", 30000, 3.0, "medium")

	stage, err := env.Engine.RecalculateStage(env.Ctx, testUser)
	if err != nil || stage != 1 {
		t.Fatalf("initial stage %d err %v", stage, err)
	}
	env.onboard(t, 3.5, 50000, "Canada")
	if stage, _ = env.Engine.RecalculateStage(env.Ctx, testUser); stage != 2 {
		t.Fatalf("after onboarding %d", stage)
	}
	if _, err := env.Engine.Shortlist(env.Ctx, testUser, uniA); err != nil {
		t.Fatalf("shortlist: %v", err)
	}
	if stage, _ = env.Engine.RecalculateStage(env.Ctx, testUser); stage != 3 {
		t.Fatalf("after shortlist %d", stage)
	}
	if _, err := env.Engine.Lock(env.Ctx, testUser, uniA); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if stage, _ = env.Engine.RecalculateStage(env.Ctx, testUser); stage != 4 {
		t.Fatalf("after lock %d", stage)
	}
	if _, err := env.Engine.Unlock(env.Ctx, testUser, uniA); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if stage, _ = env.Engine.RecalculateStage(env.Ctx, testUser); stage != 3 {
		t.Fatalf("after unlock %d", stage)
	}
}

func TestLockRequiresShortlist(t *testing.T) {
	env := newTestEnv(t)
	env.seedUniversity(t, uniA, "Uni A", "Canada", 30000, 3.0, "medium")
	env.onboard(t, 3.5, 50000)

	if _, err := env.Engine.Lock(env.Ctx, testUser, uniA); !errors.Is(err, engine.ErrNotShortlisted) {
		t.Fatalf("expected ErrNotShortlisted, got %v", err)
	}
	if _, err := env.Engine.LockRecentShortlisted(env.Ctx, testUser); !errors.Is(err, engine.ErrNothingToLock) {
		t.Fatalf("expected ErrNothingToLock, got %v", err)
	}
}

func TestDiscoverScoring(t *testing.T) {
	env := newTestEnv(t)
	env.seedUniversity(t, uniA, "Dream U", "Canada", 45000, 3.4, "high")
	env.seedUniversity(t, uniB, "Safe U", "Canada", 20000, 2.8, "low")
	env.seedUniversity(t, "cccccccc-cccc-4ccc-8ccc-cccccccccccc", "Too Pricey U", "Canada", 90000, 3.0, "medium")
	env.seedUniversity(t, "dddddddd-dddd-4ddd-8ddd-dddddddddddd", "Elsewhere U", "USA", 20000, 3.0, "low")
	env.onboard(t, 3.5, 40000, "Canada")

	scored, err := env.Engine.Discover(env.Ctx, testUser)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	// country filter drops USA; budget+15000 stretch drops the 90k option
	if len(scored) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", scored)
	}
	if scored[0].Bucket != "DREAM" || scored[0].Name != "Dream U" {
		t.Fatalf("DREAM first: %+v", scored[0])
	}
	if scored[0].AcceptanceChance != "MEDIUM" {
		// gpa 3.5 vs min 3.4: above min but below min+0.3
		t.Fatalf("acceptance %+v", scored[0])
	}
	if scored[1].Bucket != "SAFE" {
		t.Fatalf("SAFE second: %+v", scored[1])
	}
	if scored[1].AcceptanceChance != "HIGH" {
		t.Fatalf("safe acceptance %+v", scored[1])
	}
}

func TestDiscoverRequiresOnboarding(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Discover(env.Ctx, testUser); !errors.Is(err, engine.ErrOnboardingIncomplete) {
		t.Fatalf("expected ErrOnboardingIncomplete, got %v", err)
	}
}

func TestGenerateTasksSkipsExistingTitles(t *testing.T) {
	env := newTestEnv(t)
	notBooked := "not booked"
	gpa, budget := 3.5, 50000
	if _, err := env.Engine.UpdateProfile(env.Ctx, testUser, engine.ProfileUpdate{
		GPA: &gpa, BudgetPerYear: &budget,
		IELTSStatus: &notBooked,
	}); err != nil {
		t.Fatalf("profile: %v", err)
	}
	if _, err := env.Engine.CompleteOnboarding(env.Ctx, testUser); err != nil {
		t.Fatalf("onboard: %v", err)
	}

	created, err := env.Engine.GenerateTasks(env.Ctx, testUser)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if created == 0 {
		t.Fatalf("expected tasks created")
	}
	again, err := env.Engine.GenerateTasks(env.Ctx, testUser)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected idempotent regenerate, created %d", again)
	}
}

func TestMarkTaskDoneOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, 3.5, 50000)
	env.Model.raw = contractRaw(`{"reply":"ok","actions":[{"type":"create_task","args":{"title":"Pay deposit"}}]}`)
	if _, err := env.Engine.Chat(env.Ctx, testUser, "task please"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	tasks, _ := env.Engine.MyTasks(env.Ctx, testUser)
	if len(tasks) != 1 {
		t.Fatalf("tasks %+v", tasks)
	}

	other := "22222222-2222-2222-2222-222222222222"
	if err := env.Engine.Repo.InsertUser(env.Ctx, domain.User{
		ID: other, Name: "Ravi", Email: "ravi@example.com", PasswordHash: "x", CreatedAt: "2025-06-01T00:00:00Z",
	}); err != nil {
		t.Fatalf("insert other: %v", err)
	}
	if _, err := env.Engine.MarkTaskDone(env.Ctx, other, tasks[0].ID); err == nil {
		t.Fatalf("cross-user completion must fail")
	}
	done, err := env.Engine.MarkTaskDone(env.Ctx, testUser, tasks[0].ID)
	if err != nil {
		t.Fatalf("done: %v", err)
	}
	if done.Status != "done" || done.CompletedAt == nil {
		t.Fatalf("done %+v", done)
	}
}

func TestHistoryOrderAndSnapshotFreshness(t *testing.T) {
	env := newTestEnv(t)
	env.seedUniversity(t, uniA, "Uni A", "Canada", 30000, 3.0, "medium")
	env.onboard(t, 3.5, 50000, "Canada")
	env.Model.raw = contractRaw(`{"reply":"added","actions":[{"type":"shortlist","args":{"universityId":"` + uniA + `"}}]}`)

	res, err := env.Engine.Chat(env.Ctx, testUser, "shortlist Uni A")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	// snapshot reflects the action that ran inside the same call
	if res.Snapshot.Stage != 3 || len(res.Snapshot.Shortlist) != 1 {
		b, _ := json.Marshal(res.Snapshot)
		t.Fatalf("stale snapshot: %s", b)
	}
	turns, err := env.Engine.History(env.Ctx, testUser)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 2 || turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Fatalf("turns %+v", turns)
	}
}

var _ ai.Generator = (*scriptedModel)(nil)
