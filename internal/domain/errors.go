package domain

import (
	"errors"
	"fmt"
	"time"
)

// Rejections: recoverable, user-facing, leave persistent state untouched.
var (
	// ErrAlreadyCompleted is returned when the player has a permanent
	// completion record for this topic+difficulty.
	ErrAlreadyCompleted = errors.New("quiz already completed")
	// ErrOnCooldown is returned while the 24h reattempt window is open.
	ErrOnCooldown = errors.New("quiz on cooldown")
	// ErrRecentlyQuit is returned while the restart-after-quit window is open.
	ErrRecentlyQuit = errors.New("quiz recently quit")
	// ErrInsufficientPerk is returned when the perk inventory count is zero.
	ErrInsufficientPerk = errors.New("no perks of that kind left")
	// ErrInsufficientScore is returned when a purchase costs more than the
	// player's lifetime score.
	ErrInsufficientScore = errors.New("not enough points for purchase")
	// ErrInvalidTransition is returned for out-of-phase session operations,
	// e.g. answering an already answered question.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrUnknownPerk is returned for perk kinds outside the closed enum.
	ErrUnknownPerk = errors.New("unknown perk kind")
)

// Fatal: the session aborts, no partial leaderboard mutation occurs.
var (
	// ErrQuizNotFound indicates the quiz content vanished mid-session.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrProfileNotFound indicates the player record vanished mid-session.
	ErrProfileNotFound = errors.New("player profile not found")
	// ErrGenerationFailed indicates no QuizDefinition could be produced.
	ErrGenerationFailed = errors.New("quiz generation failed")
	// ErrNoActiveSession is returned when a session operation arrives for a
	// player with no in-flight session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionInProgress is returned when a player tries to start a second
	// concurrent session.
	ErrSessionInProgress = errors.New("session already in progress")
)

// ErrCouldNotSaveScore is surfaced after the commit coordinator exhausts its
// transaction retries. The session outcome is still shown locally; the
// record is simply not durable.
var ErrCouldNotSaveScore = errors.New("could not save score")

// CooldownError wraps ErrOnCooldown or ErrRecentlyQuit with the remaining
// wait so callers can show it. errors.Is against the sentinel still works.
type CooldownError struct {
	Err       error
	QuizID    string
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v: %s remaining", e.Err, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return e.Err }
