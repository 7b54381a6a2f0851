package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizrush-service/internal/domain"
)

// QuizCache caches full quiz definitions as JSON documents with a jittered
// TTL. Misses fall through to durable storage; failures here are best-effort
// and never fail a session.
type QuizCache struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.Mutex // guards rnd, which is not goroutine-safe
	rnd    *rand.Rand
}

func NewQuizCache(client *redis.Client, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) Get(ctx context.Context, quizID string) (domain.QuizDefinition, bool) {
	data, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		return domain.QuizDefinition{}, false
	}
	var quiz domain.QuizDefinition
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.QuizDefinition{}, false
	}
	return quiz, true
}

func (c *QuizCache) Put(ctx context.Context, quiz domain.QuizDefinition) {
	data, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.key(quiz.ID), data, c.ttlWithJitter()).Err()
}

func (c *QuizCache) key(quizID string) string {
	return "quizdef:" + quizID
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
