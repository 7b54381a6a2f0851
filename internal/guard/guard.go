// Package guard gates session starts: replay (permanent completion records),
// the 24h reattempt cooldown, and the shorter restart-after-quit cooldown.
package guard

import (
	"context"
	"fmt"
	"time"

	"quizrush-service/internal/domain"
	"quizrush-service/internal/store"
)

const (
	DefaultAttemptCooldown = 24 * time.Hour
	DefaultQuitCooldown    = 20 * time.Minute
)

type Guard struct {
	kv              store.KV
	attemptCooldown time.Duration
	quitCooldown    time.Duration
	clock           func() time.Time
}

type Option func(*Guard)

// WithClock injects a deterministic clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(g *Guard) { g.clock = clock }
}

// WithCooldowns overrides the attempt and quit windows.
func WithCooldowns(attempt, quit time.Duration) Option {
	return func(g *Guard) {
		g.attemptCooldown = attempt
		g.quitCooldown = quit
	}
}

func New(kv store.KV, opts ...Option) *Guard {
	g := &Guard{
		kv:              kv,
		attemptCooldown: DefaultAttemptCooldown,
		quitCooldown:    DefaultQuitCooldown,
		clock:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit runs the pre-start checks in order and, if all pass, writes a fresh
// AttemptRecord. Rejections are business rules, not faults: the caller shows
// the message and does not retry.
func (g *Guard) Admit(ctx context.Context, playerID string, quiz domain.QuizDefinition) error {
	var completion domain.CompletionRecord
	found, err := g.kv.Get(ctx, store.CompletionKey(playerID, quiz.Topic, quiz.Difficulty), &completion)
	if err != nil {
		return fmt.Errorf("check completion: %w", err)
	}
	if found {
		return domain.ErrAlreadyCompleted
	}

	now := g.clock()

	var attempt domain.AttemptRecord
	found, err = g.kv.Get(ctx, store.AttemptKey(playerID, quiz.ID), &attempt)
	if err != nil {
		return fmt.Errorf("check attempt: %w", err)
	}
	if found {
		if remaining := g.attemptCooldown - now.Sub(attempt.StartedAt); remaining > 0 {
			return &domain.CooldownError{Err: domain.ErrOnCooldown, QuizID: quiz.ID, Remaining: remaining}
		}
	}

	var quit domain.QuitRecord
	found, err = g.kv.Get(ctx, store.QuitKey(playerID, quiz.ID), &quit)
	if err != nil {
		return fmt.Errorf("check quit: %w", err)
	}
	if found {
		if remaining := g.quitCooldown - now.Sub(quit.QuitAt); remaining > 0 {
			return &domain.CooldownError{Err: domain.ErrRecentlyQuit, QuizID: quiz.ID, Remaining: remaining}
		}
	}

	record := domain.AttemptRecord{PlayerID: playerID, QuizID: quiz.ID, StartedAt: now}
	if err := g.kv.Put(ctx, store.AttemptKey(playerID, quiz.ID), record, g.attemptCooldown); err != nil {
		return fmt.Errorf("write attempt: %w", err)
	}
	return nil
}

// RecordQuit writes the QuitRecord behind the shorter cooldown. Only called
// on explicit voluntary exit; a dropped connection never lands here.
func (g *Guard) RecordQuit(ctx context.Context, playerID, quizID string) error {
	record := domain.QuitRecord{PlayerID: playerID, QuizID: quizID, QuitAt: g.clock()}
	if err := g.kv.Put(ctx, store.QuitKey(playerID, quizID), record, g.quitCooldown); err != nil {
		return fmt.Errorf("write quit: %w", err)
	}
	return nil
}
