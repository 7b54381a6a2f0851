// Package attack is the asynchronous side channel: a player spends a
// time-attack perk to queue a ticket against an opponent, and the opponent's
// next session start pops at most one.
package attack

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quizrush-service/internal/domain"
	"quizrush-service/internal/metrics"
	"quizrush-service/internal/store"
)

type Coordinator struct {
	kv      store.KV
	clock   func() time.Time
	newID   func() string
	metrics *metrics.Set
}

type Option func(*Coordinator)

func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithIDSource overrides ticket ID generation for deterministic tests.
func WithIDSource(newID func() string) Option {
	return func(c *Coordinator) { c.newID = newID }
}

func WithMetrics(set *metrics.Set) Option {
	return func(c *Coordinator) { c.metrics = set }
}

func New(kv store.KV, opts ...Option) *Coordinator {
	c := &Coordinator{
		kv:    kv,
		clock: time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Queue spends one of the attacker's time-attack perks and enqueues a ticket
// for the target, in a single transaction. The target need not be online;
// concurrent attackers all enqueue and each ticket is applied to a different
// future session.
func (c *Coordinator) Queue(ctx context.Context, attacker domain.Identity, targetID, targetName string) (domain.AttackTicket, error) {
	ticket := domain.AttackTicket{
		ID:           c.newID(),
		AttackerID:   attacker.PlayerID,
		AttackerName: attacker.DisplayName,
		TargetID:     targetID,
		TargetName:   targetName,
		CreatedAt:    c.clock(),
	}

	profileKey := store.ProfileKey(attacker.PlayerID)
	err := c.kv.AtomicUpdate(ctx, []string{profileKey}, func(tx store.Tx) error {
		var profile domain.PlayerProfile
		found, err := tx.Get(profileKey, &profile)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrProfileNotFound
		}
		if profile.PerkCount(domain.PerkTimeAttack) <= 0 {
			return domain.ErrInsufficientPerk
		}
		profile.Perks[domain.PerkTimeAttack]--
		tx.Set(profileKey, profile, 0)
		tx.Append(store.AttackQueueKey(targetID), ticket)
		return nil
	})
	if err != nil {
		return domain.AttackTicket{}, err
	}

	c.metrics.AttackQueued()
	return ticket, nil
}

// ConsumeNext pops the oldest pending ticket for the target, if any. The pop
// is atomic, so two sessions racing at start never both apply the same
// ticket; the loser sees the next one (or none). Consumed tickets are
// archived and never reused.
func (c *Coordinator) ConsumeNext(ctx context.Context, targetID string) (domain.AttackTicket, bool, error) {
	var ticket domain.AttackTicket
	found, err := c.kv.PopList(ctx, store.AttackQueueKey(targetID), &ticket)
	if err != nil {
		return domain.AttackTicket{}, false, fmt.Errorf("pop attack ticket: %w", err)
	}
	if !found {
		return domain.AttackTicket{}, false, nil
	}

	ticket.Consumed = true
	if err := c.kv.Put(ctx, store.AttackConsumedKey(ticket.ID), ticket, 0); err != nil {
		return domain.AttackTicket{}, false, fmt.Errorf("archive attack ticket: %w", err)
	}

	c.metrics.AttackConsumed()
	return ticket, true, nil
}
