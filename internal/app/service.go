// Package app wires the engine's use cases together behind a single facade.
// Sessions are held in memory only; every durable effect goes through the
// guard, the attack coordinator, or the board coordinator.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"quizrush-service/internal/attack"
	"quizrush-service/internal/board"
	"quizrush-service/internal/domain"
	"quizrush-service/internal/guard"
	"quizrush-service/internal/metrics"
	"quizrush-service/internal/scoring"
	"quizrush-service/internal/session"
	"quizrush-service/internal/store"
)

// ContentService resolves quiz definitions (generate-or-reuse plus lookup).
type ContentService interface {
	Ensure(ctx context.Context, topic string, difficulty domain.Difficulty, category string) (domain.QuizDefinition, error)
	ByID(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

type SessionService struct {
	content ContentService
	kv      store.KV
	guard   *guard.Guard
	board   *board.Coordinator
	attacks *attack.Coordinator
	rules   scoring.Rules
	metrics *metrics.Set
	seed    func() int64

	mu       sync.RWMutex
	sessions map[string]*session.Session // one active session per player
}

type Option func(*SessionService)

// WithSeedSource fixes the per-session random seed for deterministic tests.
func WithSeedSource(seed func() int64) Option {
	return func(s *SessionService) { s.seed = seed }
}

func WithMetrics(set *metrics.Set) Option {
	return func(s *SessionService) { s.metrics = set }
}

func NewSessionService(content ContentService, kv store.KV, g *guard.Guard, b *board.Coordinator, a *attack.Coordinator, rules scoring.Rules, opts ...Option) *SessionService {
	s := &SessionService{
		content:  content,
		kv:       kv,
		guard:    g,
		board:    b,
		attacks:  a,
		rules:    rules,
		seed:     func() int64 { return time.Now().UnixNano() },
		sessions: make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession resolves the quiz, runs the guard, consumes at most one
// pending attack ticket, and builds the in-memory session.
func (s *SessionService) StartSession(ctx context.Context, player domain.Identity, topic string, difficulty domain.Difficulty, category string) (session.View, error) {
	if !difficulty.Valid() {
		return session.View{}, fmt.Errorf("%w: difficulty %q", domain.ErrInvalidTransition, difficulty)
	}

	s.mu.RLock()
	_, active := s.sessions[player.PlayerID]
	s.mu.RUnlock()
	if active {
		return session.View{}, domain.ErrSessionInProgress
	}

	quiz, err := s.content.Ensure(ctx, topic, difficulty, category)
	if err != nil {
		return session.View{}, err
	}

	if err := s.guard.Admit(ctx, player.PlayerID, quiz); err != nil {
		return session.View{}, err
	}

	profile, err := s.getOrCreateProfile(ctx, player)
	if err != nil {
		return session.View{}, err
	}

	opts := []session.Option{session.WithRand(rand.New(rand.NewSource(s.seed())))}
	// The ticket is consumed here regardless of how the session ends.
	if ticket, found, err := s.attacks.ConsumeNext(ctx, player.PlayerID); err != nil {
		return session.View{}, err
	} else if found {
		opts = append(opts, session.WithAttack(ticket))
	}

	sess := session.New(quiz, player, profile, s.rules, opts...)

	s.mu.Lock()
	if _, raced := s.sessions[player.PlayerID]; raced {
		s.mu.Unlock()
		return session.View{}, domain.ErrSessionInProgress
	}
	s.sessions[player.PlayerID] = sess
	s.mu.Unlock()

	s.metrics.SessionStarted()
	return sess.CurrentState(), nil
}

// Tick advances the server-side countdown by one second.
func (s *SessionService) Tick(_ context.Context, playerID string) (session.View, bool, error) {
	sess, err := s.active(playerID)
	if err != nil {
		return session.View{}, false, err
	}
	view, timedOut := sess.Tick()
	return view, timedOut, nil
}

// SubmitAnswer resolves the current question with the player's choice.
func (s *SessionService) SubmitAnswer(_ context.Context, playerID, choice string) (session.View, error) {
	sess, err := s.active(playerID)
	if err != nil {
		return session.View{}, err
	}
	return sess.Submit(choice)
}

// Advance moves to the next question or, after the last one, runs the
// leaderboard commit. A commit failure still completes the session locally;
// the error tells the caller the record is not durable.
func (s *SessionService) Advance(ctx context.Context, playerID string) (session.View, error) {
	sess, err := s.active(playerID)
	if err != nil {
		return session.View{}, err
	}

	view, done, err := sess.Advance()
	if err != nil || !done {
		return view, err
	}

	_, commitErr := s.board.Commit(ctx, sess.Quiz(), sess.Player(), sess.Score())

	view, err = sess.Complete()
	if err != nil {
		return view, err
	}
	s.drop(playerID)
	s.metrics.SessionCompleted()
	return view, commitErr
}

// UsePerk dispatches one of the closed perk set. Time-attack is routed to
// the attack coordinator and never touches the caller's own session state
// beyond the inventory snapshot.
func (s *SessionService) UsePerk(ctx context.Context, playerID string, kind domain.PerkKind, targetID, targetName string) (session.View, error) {
	sess, err := s.active(playerID)
	if err != nil {
		return session.View{}, err
	}

	if !kind.Valid() {
		return sess.CurrentState(), domain.ErrUnknownPerk
	}

	if kind == domain.PerkTimeAttack {
		if targetID == "" || targetID == playerID {
			return sess.CurrentState(), fmt.Errorf("%w: invalid attack target", domain.ErrInvalidTransition)
		}
		if _, err := s.attacks.Queue(ctx, sess.Player(), targetID, targetName); err != nil {
			return sess.CurrentState(), err
		}
		s.metrics.PerkUsed(string(kind))
		return sess.NotePerkSpent(kind), nil
	}

	view, err := sess.UsePerk(ctx, kvSpender{kv: s.kv}, kind)
	if err != nil {
		return view, err
	}
	s.metrics.PerkUsed(string(kind))
	return view, nil
}

// ExitSession abandons the session and starts the quit cooldown.
func (s *SessionService) ExitSession(ctx context.Context, playerID string) (session.View, error) {
	sess, err := s.active(playerID)
	if err != nil {
		return session.View{}, err
	}

	view, err := sess.Exit()
	if err != nil {
		return view, err
	}
	s.drop(playerID)
	s.metrics.SessionExited()

	if err := s.guard.RecordQuit(ctx, playerID, sess.Quiz().ID); err != nil {
		return view, err
	}
	return view, nil
}

// CurrentState returns the read-only projection of the active session.
func (s *SessionService) CurrentState(_ context.Context, playerID string) (session.View, error) {
	sess, err := s.active(playerID)
	if err != nil {
		return session.View{}, err
	}
	return sess.CurrentState(), nil
}

// Abandon drops the in-memory session without a quit record, used when a
// connection is lost. The attempt cooldown already written stands; the
// shorter quit window is reserved for explicit exits.
func (s *SessionService) Abandon(playerID string) {
	s.drop(playerID)
}

func (s *SessionService) active(playerID string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[playerID]
	if !ok {
		return nil, domain.ErrNoActiveSession
	}
	return sess, nil
}

func (s *SessionService) drop(playerID string) {
	s.mu.Lock()
	delete(s.sessions, playerID)
	s.mu.Unlock()
}

func (s *SessionService) getOrCreateProfile(ctx context.Context, player domain.Identity) (domain.PlayerProfile, error) {
	key := store.ProfileKey(player.PlayerID)
	var profile domain.PlayerProfile
	err := s.kv.AtomicUpdate(ctx, []string{key}, func(tx store.Tx) error {
		found, err := tx.Get(key, &profile)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
		profile = domain.PlayerProfile{
			PlayerID:    player.PlayerID,
			DisplayName: player.DisplayName,
			AvatarRef:   player.AvatarRef,
			Perks:       map[domain.PerkKind]int{},
		}
		tx.Set(key, profile, 0)
		return nil
	})
	if err != nil {
		return domain.PlayerProfile{}, err
	}
	return profile, nil
}

// kvSpender is the store-side half of the perk engine: an optimistic
// transaction that decrements one inventory slot.
type kvSpender struct {
	kv store.KV
}

func (s kvSpender) Spend(ctx context.Context, playerID string, kind domain.PerkKind) error {
	key := store.ProfileKey(playerID)
	return s.kv.AtomicUpdate(ctx, []string{key}, func(tx store.Tx) error {
		var profile domain.PlayerProfile
		found, err := tx.Get(key, &profile)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrProfileNotFound
		}
		if profile.PerkCount(kind) <= 0 {
			return domain.ErrInsufficientPerk
		}
		profile.Perks[kind]--
		tx.Set(key, profile, 0)
		return nil
	})
}

// BuyPerk purchases one perk, paying from lifetime score, as a single
// transaction against the profile.
func (s *SessionService) BuyPerk(ctx context.Context, playerID string, kind domain.PerkKind) (domain.PlayerProfile, error) {
	cost, ok := domain.PerkCost[kind]
	if !ok {
		return domain.PlayerProfile{}, domain.ErrUnknownPerk
	}

	key := store.ProfileKey(playerID)
	var profile domain.PlayerProfile
	err := s.kv.AtomicUpdate(ctx, []string{key}, func(tx store.Tx) error {
		found, err := tx.Get(key, &profile)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrProfileNotFound
		}
		if profile.LifetimeScore < cost {
			return domain.ErrInsufficientScore
		}
		profile.LifetimeScore -= cost
		if profile.Perks == nil {
			profile.Perks = map[domain.PerkKind]int{}
		}
		profile.Perks[kind]++
		tx.Set(key, profile, 0)
		return nil
	})
	if err != nil {
		return domain.PlayerProfile{}, err
	}
	return profile, nil
}

// QuizBoard returns a quiz's leaderboard; a quiz nobody finished yet has an
// empty board.
func (s *SessionService) QuizBoard(ctx context.Context, quizID string) (domain.Board, error) {
	board := domain.Board{QuizID: quizID}
	if _, err := s.kv.Get(ctx, store.BoardKey(quizID), &board); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

// OverallLeaderboard derives the cross-quiz standings from player profiles.
// This is a batch projection outside the hot path and makes no consistency
// promise across profiles.
func (s *SessionService) OverallLeaderboard(ctx context.Context, limit int) ([]domain.OverallEntry, error) {
	var entries []domain.OverallEntry
	err := s.kv.Scan(ctx, store.ProfilePrefix, func(_ string, data []byte) error {
		var profile domain.PlayerProfile
		if err := json.Unmarshal(data, &profile); err != nil {
			return err
		}
		entries = append(entries, domain.OverallEntry{
			PlayerID:      profile.PlayerID,
			DisplayName:   profile.DisplayName,
			AvatarRef:     profile.AvatarRef,
			QuizzesSolved: profile.QuizzesSolved,
			LifetimeScore: profile.LifetimeScore,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].QuizzesSolved != entries[j].QuizzesSolved {
			return entries[i].QuizzesSolved > entries[j].QuizzesSolved
		}
		return entries[i].LifetimeScore > entries[j].LifetimeScore
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Profile returns the player's profile document.
func (s *SessionService) Profile(ctx context.Context, playerID string) (domain.PlayerProfile, error) {
	var profile domain.PlayerProfile
	found, err := s.kv.Get(ctx, store.ProfileKey(playerID), &profile)
	if err != nil {
		return domain.PlayerProfile{}, err
	}
	if !found {
		return domain.PlayerProfile{}, domain.ErrProfileNotFound
	}
	return profile, nil
}
