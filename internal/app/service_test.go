package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizrush-service/internal/attack"
	"quizrush-service/internal/board"
	"quizrush-service/internal/content"
	"quizrush-service/internal/domain"
	"quizrush-service/internal/guard"
	"quizrush-service/internal/infra/memory"
	"quizrush-service/internal/scoring"
	"quizrush-service/internal/session"
	"quizrush-service/internal/store"
)

type fixtureGenerator struct{}

func (fixtureGenerator) Generate(_ context.Context, topic string, _ domain.Difficulty, _ string) ([]domain.Question, string, error) {
	return []domain.Question{
		{
			Text:    "First question on " + topic,
			Options: []string{"alpha", "beta", "gamma", "delta"},
			Answer:  "beta",
		},
		{
			Text:    "Second question on " + topic,
			Options: []string{"one", "two", "three", "four"},
			Answer:  "three",
		},
	}, "fixture quiz", nil
}

type harness struct {
	svc   *SessionService
	kv    *memory.KV
	clock *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	now := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	kv := memory.NewKVWithClock(clock)
	contentSvc := content.New(
		content.NewMemoryStorage(),
		fixtureGenerator{},
		memory.NewQuizCache(time.Minute),
		content.WithClock(clock),
	)
	svc := NewSessionService(
		contentSvc,
		kv,
		guard.New(kv, guard.WithClock(clock)),
		board.New(kv, board.WithClock(clock)),
		attack.New(kv, attack.WithClock(clock)),
		scoring.DefaultRules(),
		WithSeedSource(func() int64 { return 1 }),
	)
	return &harness{svc: svc, kv: kv, clock: &now}
}

func (h *harness) seedProfile(t *testing.T, profile domain.PlayerProfile) {
	t.Helper()
	if err := h.kv.Put(context.Background(), store.ProfileKey(profile.PlayerID), profile, 0); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func (h *harness) tick(t *testing.T, playerID string, n int) session.View {
	t.Helper()
	var view session.View
	for i := 0; i < n; i++ {
		var err error
		view, _, err = h.svc.Tick(context.Background(), playerID)
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	return view
}

var alice = domain.Identity{PlayerID: "alice", DisplayName: "Alice", AvatarRef: "fox"}

func TestFullRunCommitsScore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedProfile(t, domain.PlayerProfile{
		PlayerID:    "alice",
		DisplayName: "Alice",
		Perks:       map[domain.PerkKind]int{domain.PerkFiftyFifty: 1},
	})

	view, err := h.svc.StartSession(ctx, alice, "astronomy", domain.DifficultyIntermediate, "science")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.TimeRemaining != 15 {
		t.Fatalf("TimeRemaining = %d, want 15", view.TimeRemaining)
	}

	// Q1: answer with 12s left. round(12 * 15 * 1.2) = 216.
	h.tick(t, "alice", 3)
	view, err = h.svc.SubmitAnswer(ctx, "alice", "beta")
	if err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	if view.Score != 216 {
		t.Fatalf("score after q1 = %d, want 216", view.Score)
	}

	view, err = h.svc.Advance(ctx, "alice")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if view.QuestionIndex != 1 || view.TimeRemaining != 15 {
		t.Fatalf("q2 view = index %d, time %d", view.QuestionIndex, view.TimeRemaining)
	}

	// Q2: fifty-fifty, then answer with 8s left.
	// round(8 * 15 * 1.2) + 60 = 204, total 420.
	view, err = h.svc.UsePerk(ctx, "alice", domain.PerkFiftyFifty, "", "")
	if err != nil {
		t.Fatalf("fifty-fifty: %v", err)
	}
	if len(view.Options) != 2 {
		t.Fatalf("visible options = %d, want 2", len(view.Options))
	}
	h.tick(t, "alice", 7)
	view, err = h.svc.SubmitAnswer(ctx, "alice", "three")
	if err != nil {
		t.Fatalf("submit q2: %v", err)
	}
	if view.Score != 420 {
		t.Fatalf("final score = %d, want 420", view.Score)
	}

	view, err = h.svc.Advance(ctx, "alice")
	if err != nil {
		t.Fatalf("final advance: %v", err)
	}
	if view.Phase != "complete" {
		t.Fatalf("phase = %q, want complete", view.Phase)
	}

	// Session gone from the registry.
	if _, err := h.svc.CurrentState(ctx, "alice"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("post-completion state err = %v", err)
	}

	// Board got exactly one entry, profile got the counters.
	boardDoc, err := h.svc.QuizBoard(ctx, view.QuizID)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(boardDoc.Entries) != 1 || boardDoc.Entries[0].Score != 420 || boardDoc.Completions != 1 {
		t.Fatalf("board = %+v", boardDoc)
	}
	profile, err := h.svc.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.LifetimeScore != 420 || profile.QuizzesSolved != 1 {
		t.Fatalf("profile counters = %d / %d", profile.LifetimeScore, profile.QuizzesSolved)
	}
	if profile.PerkCount(domain.PerkFiftyFifty) != 0 {
		t.Fatalf("fifty-fifty not spent, count = %d", profile.PerkCount(domain.PerkFiftyFifty))
	}
}

func TestStartCreatesProfileAndRejectsSecondSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, alice, "astronomy", domain.DifficultyNovice, "science"); err != nil {
		t.Fatalf("start: %v", err)
	}

	profile, err := h.svc.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("profile not created: %v", err)
	}
	if profile.DisplayName != "Alice" || profile.AvatarRef != "fox" {
		t.Fatalf("profile identity = %+v", profile)
	}

	_, err = h.svc.StartSession(ctx, alice, "history", domain.DifficultyNovice, "arts")
	if !errors.Is(err, domain.ErrSessionInProgress) {
		t.Fatalf("second start err = %v, want ErrSessionInProgress", err)
	}
}

func TestStartRejectsUnknownDifficulty(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.StartSession(context.Background(), alice, "astronomy", "impossible", "science")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v", err)
	}
}

func TestCompletedQuizCannotBeReentered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	runThrough(t, h, "wrong-on-purpose")

	_, err := h.svc.StartSession(ctx, alice, "astronomy", domain.DifficultyIntermediate, "science")
	if !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("restart err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestExitRecordsQuitCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.StartSession(ctx, alice, "astronomy", domain.DifficultyIntermediate, "science"); err != nil {
		t.Fatalf("start: %v", err)
	}
	view, err := h.svc.ExitSession(ctx, "alice")
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if view.Phase != "exited" {
		t.Fatalf("phase = %q", view.Phase)
	}

	// Both the attempt and quit cooldowns now apply; the attempt one wins.
	_, err = h.svc.StartSession(ctx, alice, "astronomy", domain.DifficultyIntermediate, "science")
	var cdErr *domain.CooldownError
	if !errors.As(err, &cdErr) || !errors.Is(err, domain.ErrOnCooldown) {
		t.Fatalf("restart err = %v, want attempt cooldown", err)
	}

	// A day later only the quiz is fresh again.
	*h.clock = h.clock.Add(24*time.Hour + time.Second)
	if _, err := h.svc.StartSession(ctx, alice, "astronomy", domain.DifficultyIntermediate, "science"); err != nil {
		t.Fatalf("restart after cooldown: %v", err)
	}
}

func TestBuyPerk(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedProfile(t, domain.PlayerProfile{PlayerID: "alice", LifetimeScore: 600})

	profile, err := h.svc.BuyPerk(ctx, "alice", domain.PerkFiftyFifty)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if profile.LifetimeScore != 100 || profile.PerkCount(domain.PerkFiftyFifty) != 1 {
		t.Fatalf("after buy: score %d, count %d", profile.LifetimeScore, profile.PerkCount(domain.PerkFiftyFifty))
	}

	_, err = h.svc.BuyPerk(ctx, "alice", domain.PerkBooster)
	if !errors.Is(err, domain.ErrInsufficientScore) {
		t.Fatalf("broke buy err = %v", err)
	}
	_, err = h.svc.BuyPerk(ctx, "alice", domain.PerkKind("mystery"))
	if !errors.Is(err, domain.ErrUnknownPerk) {
		t.Fatalf("unknown perk err = %v", err)
	}
}

func TestTimeAttackQueuesAndLands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedProfile(t, domain.PlayerProfile{
		PlayerID:    "alice",
		DisplayName: "Alice",
		Perks:       map[domain.PerkKind]int{domain.PerkTimeAttack: 1},
	})

	if _, err := h.svc.StartSession(ctx, alice, "astronomy", domain.DifficultyIntermediate, "science"); err != nil {
		t.Fatalf("start: %v", err)
	}
	view, err := h.svc.UsePerk(ctx, "alice", domain.PerkTimeAttack, "bob", "Bob")
	if err != nil {
		t.Fatalf("queue attack: %v", err)
	}
	if view.Perks[domain.PerkTimeAttack] != 0 {
		t.Fatalf("snapshot not decremented: %d", view.Perks[domain.PerkTimeAttack])
	}

	// Self-targeting is rejected without spending anything.
	_, err = h.svc.UsePerk(ctx, "alice", domain.PerkTimeAttack, "alice", "Alice")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("self-target err = %v", err)
	}

	bob := domain.Identity{PlayerID: "bob", DisplayName: "Bob"}
	view, err = h.svc.StartSession(ctx, bob, "history", domain.DifficultyIntermediate, "arts")
	if err != nil {
		t.Fatalf("bob start: %v", err)
	}
	if view.UnderAttack == nil || view.UnderAttack.AttackerName != "Alice" {
		t.Fatalf("attack notice = %+v", view.UnderAttack)
	}
	if view.TimeRemaining != 10 {
		t.Fatalf("shortened clock = %d, want 10", view.TimeRemaining)
	}
}

func TestOverallLeaderboardOrdering(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedProfile(t, domain.PlayerProfile{PlayerID: "a", DisplayName: "A", QuizzesSolved: 2, LifetimeScore: 100})
	h.seedProfile(t, domain.PlayerProfile{PlayerID: "b", DisplayName: "B", QuizzesSolved: 5, LifetimeScore: 50})
	h.seedProfile(t, domain.PlayerProfile{PlayerID: "c", DisplayName: "C", QuizzesSolved: 2, LifetimeScore: 900})

	entries, err := h.svc.OverallLeaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("overall: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d", len(entries))
	}
	if entries[0].PlayerID != "b" || entries[1].PlayerID != "c" {
		t.Fatalf("order = %s, %s", entries[0].PlayerID, entries[1].PlayerID)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Fatalf("ranks = %d, %d", entries[0].Rank, entries[1].Rank)
	}
}

func TestOperationsWithoutSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.SubmitAnswer(ctx, "ghost", "beta"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("submit err = %v", err)
	}
	if _, _, err := h.svc.Tick(ctx, "ghost"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("tick err = %v", err)
	}
	if _, err := h.svc.ExitSession(ctx, "ghost"); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("exit err = %v", err)
	}
}

// runThrough finishes the fixture quiz answering every question with choice.
func runThrough(t *testing.T, h *harness, choice string) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.svc.StartSession(ctx, alice, "astronomy", domain.DifficultyIntermediate, "science"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for {
		if _, err := h.svc.SubmitAnswer(ctx, "alice", choice); err != nil {
			t.Fatalf("submit: %v", err)
		}
		view, err := h.svc.Advance(ctx, "alice")
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if view.Phase == "complete" {
			return
		}
	}
}
