package board

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"quizrush-service/internal/domain"
	"quizrush-service/internal/infra/memory"
	"quizrush-service/internal/store"
)

var testQuiz = domain.QuizDefinition{
	ID:         "quiz-1",
	Topic:      "space",
	Difficulty: domain.DifficultyIntermediate,
}

func player(id string) domain.Identity {
	return domain.Identity{PlayerID: id, DisplayName: "Player " + id, AvatarRef: "/a/" + id}
}

func seedProfile(t *testing.T, kv store.KV, id string) {
	t.Helper()
	profile := domain.PlayerProfile{PlayerID: id, Perks: map[domain.PerkKind]int{}}
	if err := kv.Put(context.Background(), store.ProfileKey(id), profile, 0); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func TestCommitWritesAllFour(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKV()
	seedProfile(t, kv, "p1")
	c := New(kv)

	board, err := c.Commit(ctx, testQuiz, player("p1"), 420)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if len(board.Entries) != 1 || board.Entries[0].Score != 420 || board.Entries[0].Rank != 1 {
		t.Fatalf("unexpected board: %+v", board.Entries)
	}
	if board.Completions != 1 {
		t.Fatalf("expected 1 completion, got %d", board.Completions)
	}

	var completion domain.CompletionRecord
	found, _ := kv.Get(ctx, store.CompletionKey("p1", "space", domain.DifficultyIntermediate), &completion)
	if !found || completion.Score != 420 {
		t.Fatalf("expected completion record, found=%v %+v", found, completion)
	}

	var profile domain.PlayerProfile
	if _, err := kv.Get(ctx, store.ProfileKey("p1"), &profile); err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.LifetimeScore != 420 || profile.QuizzesSolved != 1 {
		t.Fatalf("expected lifetime totals updated, got %+v", profile)
	}
}

func TestCommitIsIdempotentPerPlayer(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKV()
	seedProfile(t, kv, "p1")
	c := New(kv)

	if _, err := c.Commit(ctx, testQuiz, player("p1"), 100); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	_, err := c.Commit(ctx, testQuiz, player("p1"), 999)
	if !errors.Is(err, domain.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	// The rejected commit must leave everything untouched.
	var board domain.Board
	if _, err := kv.Get(ctx, store.BoardKey("quiz-1"), &board); err != nil {
		t.Fatalf("get board: %v", err)
	}
	if len(board.Entries) != 1 || board.Entries[0].Score != 100 || board.Completions != 1 {
		t.Fatalf("second commit mutated the board: %+v", board)
	}

	var profile domain.PlayerProfile
	_, _ = kv.Get(ctx, store.ProfileKey("p1"), &profile)
	if profile.LifetimeScore != 100 || profile.QuizzesSolved != 1 {
		t.Fatalf("second commit mutated the profile: %+v", profile)
	}
}

func TestBoardBoundOrderingAndRanks(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKV()
	c := New(kv)

	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("p%02d", i)
		seedProfile(t, kv, id)
		if _, err := c.Commit(ctx, testQuiz, player(id), 100*i); err != nil {
			t.Fatalf("commit %s: %v", id, err)
		}
	}

	var board domain.Board
	if _, err := kv.Get(ctx, store.BoardKey("quiz-1"), &board); err != nil {
		t.Fatalf("get board: %v", err)
	}

	if len(board.Entries) != MaxEntries {
		t.Fatalf("expected %d entries, got %d", MaxEntries, len(board.Entries))
	}
	seen := map[string]bool{}
	for i, e := range board.Entries {
		if e.Rank != i+1 {
			t.Fatalf("expected contiguous ranks, got %+v", board.Entries)
		}
		if i > 0 && board.Entries[i-1].Score < e.Score {
			t.Fatalf("expected descending order, got %+v", board.Entries)
		}
		if seen[e.PlayerID] {
			t.Fatalf("duplicate player %s", e.PlayerID)
		}
		seen[e.PlayerID] = true
	}
	if board.Entries[0].Score != 1400 {
		t.Fatalf("expected top score 1400, got %d", board.Entries[0].Score)
	}
	if board.Completions != 15 {
		t.Fatalf("expected 15 completions, got %d", board.Completions)
	}
}

func TestMergeEntryReplacesExisting(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		{PlayerID: "a", Score: 300, Rank: 1},
		{PlayerID: "b", Score: 200, Rank: 2},
	}
	merged := mergeEntry(entries, domain.LeaderboardEntry{PlayerID: "b", Score: 400})
	if len(merged) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(merged))
	}
	if merged[0].PlayerID != "b" || merged[0].Rank != 1 || merged[1].Rank != 2 {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
}

// conflictKV fails AtomicUpdate with ErrConflict a fixed number of times
// before delegating.
type conflictKV struct {
	store.KV
	remaining int
	attempts  int
}

func (c *conflictKV) AtomicUpdate(ctx context.Context, keys []string, fn func(tx store.Tx) error) error {
	c.attempts++
	if c.remaining > 0 {
		c.remaining--
		return store.ErrConflict
	}
	return c.KV.AtomicUpdate(ctx, keys, fn)
}

func TestCommitRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewKV()
	seedProfile(t, inner, "p1")
	kv := &conflictKV{KV: inner, remaining: 2}
	c := New(kv, WithMaxAttempts(3))

	board, err := c.Commit(ctx, testQuiz, player("p1"), 50)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if kv.attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", kv.attempts)
	}
	if len(board.Entries) != 1 {
		t.Fatalf("expected committed entry, got %+v", board.Entries)
	}
}

func TestCommitExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewKV()
	seedProfile(t, inner, "p1")
	kv := &conflictKV{KV: inner, remaining: 10}
	c := New(kv, WithMaxAttempts(3))

	_, err := c.Commit(ctx, testQuiz, player("p1"), 50)
	if !errors.Is(err, domain.ErrCouldNotSaveScore) {
		t.Fatalf("expected ErrCouldNotSaveScore, got %v", err)
	}
	if kv.attempts != 3 {
		t.Fatalf("expected bounded attempts, got %d", kv.attempts)
	}
}

func TestCommitRequiresProfile(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKV()
	c := New(kv, WithClock(func() time.Time { return time.Unix(0, 0) }))

	_, err := c.Commit(ctx, testQuiz, player("ghost"), 10)
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	// Fatal abort leaves no partial state.
	var board domain.Board
	if found, _ := kv.Get(ctx, store.BoardKey("quiz-1"), &board); found {
		t.Fatal("aborted commit must not write the board")
	}
}
