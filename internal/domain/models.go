package domain

import "time"

// Identity is the player identity supplied by the auth layer. The engine
// never authenticates; it only carries these fields through.
type Identity struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
}

// Question models an MCQ question with exactly one correct answer among its options.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

// QuizDefinition is the immutable content half of a quiz. The mutable half
// (leaderboard, completion counter) lives in Board and is only ever touched
// inside a store transaction.
type QuizDefinition struct {
	ID          string     `json:"id"`
	Topic       string     `json:"topic"`
	Difficulty  Difficulty `json:"difficulty"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// LeaderboardEntry is one row of a quiz's top-10 board.
type LeaderboardEntry struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
}

// Board is the mutable per-quiz scoreboard document. Invariants: at most one
// entry per player, sorted descending by score, length <= 10, ranks 1..len.
type Board struct {
	QuizID      string             `json:"quizId"`
	Entries     []LeaderboardEntry `json:"entries"`
	Completions int                `json:"completions"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// PlayerProfile is the per-player document holding lifetime totals and the
// perk inventory. Score/count fields are mutated only by the leaderboard
// commit; the perk fields only by the perk engine.
type PlayerProfile struct {
	PlayerID      string           `json:"playerId"`
	DisplayName   string           `json:"displayName"`
	AvatarRef     string           `json:"avatarRef"`
	LifetimeScore int              `json:"lifetimeScore"`
	QuizzesSolved int              `json:"quizzesSolved"`
	Perks         map[PerkKind]int `json:"perks"`
	BoosterArmed  bool             `json:"boosterArmed"`
}

// PerkCount returns the inventory count for kind, treating a nil map as empty.
func (p *PlayerProfile) PerkCount(kind PerkKind) int {
	if p.Perks == nil {
		return 0
	}
	return p.Perks[kind]
}

// CompletionRecord marks a (player, topic, difficulty) pair as exhausted.
// Written exactly once, never deleted; its existence is the replay gate.
type CompletionRecord struct {
	PlayerID    string     `json:"playerId"`
	Topic       string     `json:"topic"`
	Difficulty  Difficulty `json:"difficulty"`
	Score       int        `json:"score"`
	CompletedAt time.Time  `json:"completedAt"`
}

// AttemptRecord enforces the 24h reattempt cooldown per (player, quiz),
// written at session start even if the session is later abandoned.
type AttemptRecord struct {
	PlayerID  string    `json:"playerId"`
	QuizID    string    `json:"quizId"`
	StartedAt time.Time `json:"startedAt"`
}

// QuitRecord enforces the shorter restart-after-quit cooldown. Written only
// on explicit voluntary exit, never on disconnect.
type QuitRecord struct {
	PlayerID string    `json:"playerId"`
	QuizID   string    `json:"quizId"`
	QuitAt   time.Time `json:"quitAt"`
}

// AttackTicket is a queued one-shot effect against another player's next
// session. It transitions unconsumed -> consumed exactly once.
type AttackTicket struct {
	ID           string    `json:"id"`
	AttackerID   string    `json:"attackerId"`
	AttackerName string    `json:"attackerName"`
	TargetID     string    `json:"targetId"`
	TargetName   string    `json:"targetName"`
	CreatedAt    time.Time `json:"createdAt"`
	Consumed     bool      `json:"consumed"`
}

// OverallEntry is one row of the cross-quiz leaderboard projection, ranked by
// quizzes solved with lifetime score as the tie-breaker.
type OverallEntry struct {
	PlayerID      string `json:"playerId"`
	DisplayName   string `json:"displayName"`
	AvatarRef     string `json:"avatarRef"`
	QuizzesSolved int    `json:"quizzesSolved"`
	LifetimeScore int    `json:"lifetimeScore"`
	Rank          int    `json:"rank"`
}
