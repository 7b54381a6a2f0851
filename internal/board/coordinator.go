// Package board commits finished sessions: the permanent completion marker,
// the quiz's top-10 merge, and the player's lifetime totals, all in one
// store transaction.
package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"quizrush-service/internal/domain"
	"quizrush-service/internal/metrics"
	"quizrush-service/internal/store"
)

const (
	// MaxEntries caps each quiz's leaderboard.
	MaxEntries = 10

	defaultMaxAttempts = 3
)

type Coordinator struct {
	kv          store.KV
	maxAttempts int
	clock       func() time.Time
	metrics     *metrics.Set
}

type Option func(*Coordinator)

func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) { c.clock = clock }
}

func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) { c.maxAttempts = n }
}

func WithMetrics(set *metrics.Set) Option {
	return func(c *Coordinator) { c.metrics = set }
}

func New(kv store.KV, opts ...Option) *Coordinator {
	c := &Coordinator{
		kv:          kv,
		maxAttempts: defaultMaxAttempts,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Commit persists a completed session. All four writes land atomically or
// not at all; conflicts retry the whole transaction from the completion
// check. The guard makes a duplicate normally unreachable, but two sessions
// of the same player racing here still resolve to exactly one completion.
func (c *Coordinator) Commit(ctx context.Context, quiz domain.QuizDefinition, player domain.Identity, finalScore int) (domain.Board, error) {
	defer func(start time.Time) {
		c.metrics.ObserveCommit(time.Since(start).Seconds())
	}(time.Now())

	keys := []string{
		store.CompletionKey(player.PlayerID, quiz.Topic, quiz.Difficulty),
		store.BoardKey(quiz.ID),
		store.ProfileKey(player.PlayerID),
	}

	var committed domain.Board
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			c.metrics.CommitRetry()
		}
		err := c.kv.AtomicUpdate(ctx, keys, func(tx store.Tx) error {
			board, err := c.apply(tx, quiz, player, finalScore)
			if err != nil {
				return err
			}
			committed = board
			return nil
		})
		if err == nil {
			return committed, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return domain.Board{}, err
		}
		lastErr = err
	}

	c.metrics.CommitFailed()
	return domain.Board{}, fmt.Errorf("%w: %v", domain.ErrCouldNotSaveScore, lastErr)
}

func (c *Coordinator) apply(tx store.Tx, quiz domain.QuizDefinition, player domain.Identity, finalScore int) (domain.Board, error) {
	now := c.clock()

	completionKey := store.CompletionKey(player.PlayerID, quiz.Topic, quiz.Difficulty)
	var existing domain.CompletionRecord
	found, err := tx.Get(completionKey, &existing)
	if err != nil {
		return domain.Board{}, err
	}
	if found {
		return domain.Board{}, domain.ErrAlreadyCompleted
	}
	tx.Set(completionKey, domain.CompletionRecord{
		PlayerID:    player.PlayerID,
		Topic:       quiz.Topic,
		Difficulty:  quiz.Difficulty,
		Score:       finalScore,
		CompletedAt: now,
	}, 0)

	board := domain.Board{QuizID: quiz.ID}
	if _, err := tx.Get(store.BoardKey(quiz.ID), &board); err != nil {
		return domain.Board{}, err
	}
	board.Entries = mergeEntry(board.Entries, domain.LeaderboardEntry{
		PlayerID:    player.PlayerID,
		DisplayName: player.DisplayName,
		AvatarRef:   player.AvatarRef,
		Score:       finalScore,
	})
	board.Completions++
	board.UpdatedAt = now
	tx.Set(store.BoardKey(quiz.ID), board, 0)

	var profile domain.PlayerProfile
	found, err = tx.Get(store.ProfileKey(player.PlayerID), &profile)
	if err != nil {
		return domain.Board{}, err
	}
	if !found {
		return domain.Board{}, domain.ErrProfileNotFound
	}
	profile.LifetimeScore += finalScore
	profile.QuizzesSolved++
	tx.Set(store.ProfileKey(player.PlayerID), profile, 0)

	return board, nil
}

// mergeEntry drops any previous entry for the player, inserts the new one,
// and re-derives order, cap and ranks. Sorting is stable so equal scores
// keep their relative order.
func mergeEntry(entries []domain.LeaderboardEntry, entry domain.LeaderboardEntry) []domain.LeaderboardEntry {
	merged := make([]domain.LeaderboardEntry, 0, len(entries)+1)
	for _, e := range entries {
		if e.PlayerID != entry.PlayerID {
			merged = append(merged, e)
		}
	}
	merged = append(merged, entry)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > MaxEntries {
		merged = merged[:MaxEntries]
	}
	for i := range merged {
		merged[i].Rank = i + 1
	}
	return merged
}
