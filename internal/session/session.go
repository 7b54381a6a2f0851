// Package session drives one player through one quiz under a countdown. All
// session state lives in memory and is thrown away on a crash; nothing is
// persisted until the final commit, so a lost session can never corrupt
// permanent records.
package session

import (
	"math/rand"
	"sync"
	"time"

	"quizrush-service/internal/domain"
	"quizrush-service/internal/scoring"
)

// Phase is the state machine position.
type Phase int

const (
	// PhaseAwaitingQuestion: the countdown is running and an answer is accepted.
	PhaseAwaitingQuestion Phase = iota
	// PhaseAnswered: the current question is resolved; waiting for Advance.
	PhaseAnswered
	// PhaseFinalizing: all questions resolved; the commit is in flight.
	PhaseFinalizing
	// PhaseComplete: terminal, committed (or commit failure surfaced).
	PhaseComplete
	// PhaseExited: terminal, voluntary quit; no score committed.
	PhaseExited
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingQuestion:
		return "awaiting-question"
	case PhaseAnswered:
		return "answered"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseComplete:
		return "complete"
	case PhaseExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Session is the per-player state machine. Methods are safe for concurrent
// use; the transition to PhaseAnswered is the mutual-exclusion gate between
// a timeout tick and a late submit, whichever arrives first wins.
type Session struct {
	mu sync.Mutex

	quiz   domain.QuizDefinition
	player domain.Identity
	rules  scoring.Rules
	rnd    *rand.Rand

	phase          Phase
	questionIdx    int
	budget         int // seconds per question, possibly reduced by an attack
	timeLeft       int
	score          int
	streak         int
	wrongRun       int
	perks          map[domain.PerkKind]int
	boosterArmed   bool
	boosterOffered bool // arm-once-per-session latch
	visibleOptions []string
	lastResult     *AnswerResult
	attack         *domain.AttackTicket
}

// AnswerResult describes how the current question resolved.
type AnswerResult struct {
	QuestionIndex int     `json:"questionIndex"`
	Choice        *string `json:"choice"` // nil on timeout or skip
	CorrectAnswer string  `json:"correctAnswer"`
	Correct       bool    `json:"correct"`
	Skipped       bool    `json:"skipped"`
	TimedOut      bool    `json:"timedOut"`
	Points        int     `json:"points"`
	Streak        int     `json:"streak"`
	TotalScore    int     `json:"totalScore"`
}

// Option configures a new session.
type Option func(*Session)

// WithRand injects the seeded random source used for option elimination.
func WithRand(rnd *rand.Rand) Option {
	return func(s *Session) { s.rnd = rnd }
}

// WithAttack applies a consumed attack ticket, shaving seconds off every
// question's budget. The ticket is already terminal by the time it gets here.
func WithAttack(ticket domain.AttackTicket) Option {
	return func(s *Session) { s.attack = &ticket }
}

// New builds a session in PhaseAwaitingQuestion on the first question. The
// perk inventory is snapshotted from the profile; spends go through the
// store and the snapshot is kept in step locally.
func New(quiz domain.QuizDefinition, player domain.Identity, profile domain.PlayerProfile, rules scoring.Rules, opts ...Option) *Session {
	s := &Session{
		quiz:   quiz,
		player: player,
		rules:  rules,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		phase:  PhaseAwaitingQuestion,
		perks:  make(map[domain.PerkKind]int, len(profile.Perks)),
	}
	for kind, count := range profile.Perks {
		s.perks[kind] = count
	}
	for _, opt := range opts {
		opt(s)
	}

	s.budget = rules.QuestionSeconds
	if s.attack != nil {
		s.budget -= rules.AttackPenaltySeconds
		if s.budget < 1 {
			s.budget = 1
		}
	}
	s.timeLeft = s.budget
	s.visibleOptions = currentOptions(quiz, 0)
	return s
}

// Player returns the identity driving this session.
func (s *Session) Player() domain.Identity { return s.player }

// Quiz returns the quiz under play.
func (s *Session) Quiz() domain.QuizDefinition { return s.quiz }

// Tick decrements the countdown by one second. Reaching zero while awaiting
// an answer resolves the question as a timeout, identical to a wrong answer.
// Ticks in any other phase are no-ops.
func (s *Session) Tick() (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAwaitingQuestion {
		return s.viewLocked(), false
	}
	s.timeLeft--
	if s.timeLeft > 0 {
		return s.viewLocked(), false
	}
	s.timeLeft = 0
	s.resolveLocked(nil, false)
	return s.viewLocked(), true
}

// Submit resolves the current question with the player's choice. A submit
// racing a timeout loses cleanly: once the phase left AwaitingQuestion the
// call is rejected and nothing changes.
func (s *Session) Submit(choice string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAwaitingQuestion {
		return s.viewLocked(), domain.ErrInvalidTransition
	}
	s.resolveLocked(&choice, false)
	return s.viewLocked(), nil
}

// Advance moves past a resolved question. It reports done=true when the quiz
// is exhausted and the session entered PhaseFinalizing; the caller then runs
// the leaderboard commit and calls Complete.
func (s *Session) Advance() (View, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAnswered {
		return s.viewLocked(), false, domain.ErrInvalidTransition
	}

	if s.questionIdx+1 < len(s.quiz.Questions) {
		s.questionIdx++
		s.timeLeft = s.budget
		s.lastResult = nil
		s.visibleOptions = currentOptions(s.quiz, s.questionIdx)
		s.phase = PhaseAwaitingQuestion
		return s.viewLocked(), false, nil
	}

	s.phase = PhaseFinalizing
	return s.viewLocked(), true, nil
}

// Complete marks the session terminal after the commit attempt. Valid only
// from PhaseFinalizing.
func (s *Session) Complete() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFinalizing {
		return s.viewLocked(), domain.ErrInvalidTransition
	}
	s.phase = PhaseComplete
	return s.viewLocked(), nil
}

// Exit abandons the session from any non-terminal phase. The caller records
// the quit cooldown; no score is committed.
func (s *Session) Exit() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseComplete || s.phase == PhaseExited {
		return s.viewLocked(), domain.ErrInvalidTransition
	}
	s.phase = PhaseExited
	return s.viewLocked(), nil
}

// Score returns the running total.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// resolveLocked scores the answer (nil means timeout) and transitions to
// PhaseAnswered. skip bypasses scoring entirely: no delta, streak untouched.
func (s *Session) resolveLocked(choice *string, skip bool) {
	question := s.quiz.Questions[s.questionIdx]
	result := AnswerResult{
		QuestionIndex: s.questionIdx,
		Choice:        choice,
		CorrectAnswer: question.Answer,
		Skipped:       skip,
		TimedOut:      choice == nil && !skip,
	}

	if !skip {
		correct := choice != nil && *choice == question.Answer
		outcome := s.rules.Score(scoring.Input{
			Correct:      correct,
			TimeLeft:     s.timeLeft,
			Difficulty:   s.quiz.Difficulty,
			Streak:       s.streak,
			WrongRun:     s.wrongRun,
			BoosterArmed: s.boosterArmed,
		})
		s.score += outcome.Points
		s.streak = outcome.Streak
		s.wrongRun = outcome.WrongRun
		if outcome.BoosterSpent {
			s.boosterArmed = false
		}
		result.Correct = correct
		result.Points = outcome.Points
	}

	result.Streak = s.streak
	result.TotalScore = s.score
	s.lastResult = &result
	s.phase = PhaseAnswered
}

func currentOptions(quiz domain.QuizDefinition, idx int) []string {
	options := make([]string, len(quiz.Questions[idx].Options))
	copy(options, quiz.Questions[idx].Options)
	return options
}
