package content

import (
	"context"
	"fmt"
	"sync"

	"quizrush-service/internal/domain"
)

// StaticGenerator emits deterministic placeholder questions; used when no
// model API key is configured (demo mode) and in tests.
type StaticGenerator struct{}

func (StaticGenerator) Generate(_ context.Context, topic string, difficulty domain.Difficulty, _ string) ([]domain.Question, string, error) {
	count := difficulty.QuestionCount()
	questions := make([]domain.Question, 0, count)
	for i := 0; i < count; i++ {
		answer := fmt.Sprintf("%s fact %d", topic, i+1)
		questions = append(questions, domain.Question{
			Text:    fmt.Sprintf("Placeholder question %d about %s?", i+1, topic),
			Options: []string{answer, "not this", "nor this", "definitely not"},
			Answer:  answer,
		})
	}
	return questions, fmt.Sprintf("A %s quiz about %s.", difficulty, topic), nil
}

// MemoryStorage keeps quiz definitions in-process; used by tests and demo
// mode. The mutex matters even behind the singleflight fill: singleflight
// only serializes generation of the same pair, different pairs land here
// concurrently.
type MemoryStorage struct {
	mu     sync.RWMutex
	byID   map[string]domain.QuizDefinition
	byPair map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byID:   make(map[string]domain.QuizDefinition),
		byPair: make(map[string]string),
	}
}

func (m *MemoryStorage) ByID(_ context.Context, quizID string) (domain.QuizDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if quiz, ok := m.byID[quizID]; ok {
		return quiz, nil
	}
	return domain.QuizDefinition{}, domain.ErrQuizNotFound
}

func (m *MemoryStorage) ByTopicDifficulty(_ context.Context, topic string, difficulty domain.Difficulty) (domain.QuizDefinition, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byPair[pairKey(topic, difficulty)]; ok {
		return m.byID[id], true, nil
	}
	return domain.QuizDefinition{}, false, nil
}

func (m *MemoryStorage) Save(_ context.Context, quiz domain.QuizDefinition) (domain.QuizDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(quiz.Topic, quiz.Difficulty)
	if id, ok := m.byPair[key]; ok {
		return m.byID[id], nil
	}
	m.byID[quiz.ID] = quiz
	m.byPair[key] = quiz.ID
	return quiz, nil
}

func pairKey(topic string, difficulty domain.Difficulty) string {
	return topic + "|" + string(difficulty)
}
