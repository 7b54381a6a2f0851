package store

import "quizrush-service/internal/domain"

// Key layout. One document per key; attack queues are lists.
const (
	ProfilePrefix = "profile:"
)

func ProfileKey(playerID string) string {
	return ProfilePrefix + playerID
}

func BoardKey(quizID string) string {
	return "board:" + quizID
}

func CompletionKey(playerID, topic string, difficulty domain.Difficulty) string {
	return "completed:" + playerID + ":" + topic + ":" + string(difficulty)
}

func AttemptKey(playerID, quizID string) string {
	return "attempt:" + playerID + ":" + quizID
}

func QuitKey(playerID, quizID string) string {
	return "quit:" + playerID + ":" + quizID
}

// AttackQueueKey is the per-target list of pending attack tickets.
func AttackQueueKey(targetID string) string {
	return "attacks:pending:" + targetID
}

// AttackConsumedKey archives a ticket once it has been applied.
func AttackConsumedKey(ticketID string) string {
	return "attacks:consumed:" + ticketID
}
