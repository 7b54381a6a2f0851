package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quizrush-service/internal/domain"
)

// QuizCache caches immutable quiz definitions with a jittered TTL to spread
// expirations.
type QuizCache struct {
	ttl   time.Duration
	clock func() time.Time
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.QuizDefinition
	expiresAt time.Time
}

func NewQuizCache(ttl time.Duration) *QuizCache {
	return &QuizCache{
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedQuiz),
	}
}

func (c *QuizCache) Get(_ context.Context, quizID string) (domain.QuizDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.QuizDefinition{}, false
	}
	return entry.quiz, true
}

func (c *QuizCache) Put(_ context.Context, quiz domain.QuizDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[quiz.ID] = cachedQuiz{
		quiz:      quiz,
		expiresAt: c.clock().Add(c.ttlWithJitter()),
	}
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
