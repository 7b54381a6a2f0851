// Package content owns quiz definitions: first request for a topic+difficulty
// pair generates one, every later request reuses it. Definitions are
// immutable once saved.
package content

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"quizrush-service/internal/domain"
)

// Storage is the durable home of quiz definitions (postgres in production).
type Storage interface {
	ByID(ctx context.Context, quizID string) (domain.QuizDefinition, error)
	ByTopicDifficulty(ctx context.Context, topic string, difficulty domain.Difficulty) (domain.QuizDefinition, bool, error)
	// Save persists the quiz; under a generation race the first writer's row
	// wins and is returned.
	Save(ctx context.Context, quiz domain.QuizDefinition) (domain.QuizDefinition, error)
}

// Generator produces the question set for a new quiz.
type Generator interface {
	Generate(ctx context.Context, topic string, difficulty domain.Difficulty, category string) ([]domain.Question, string, error)
}

// Cache is a read-through cache over Storage.ByID.
type Cache interface {
	Get(ctx context.Context, quizID string) (domain.QuizDefinition, bool)
	Put(ctx context.Context, quiz domain.QuizDefinition)
}

type Service struct {
	storage Storage
	gen     Generator
	cache   Cache
	sf      singleflight.Group
	newID   func() string
	clock   func() time.Time
}

type Option func(*Service)

func WithIDSource(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func New(storage Storage, gen Generator, cache Cache, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		gen:     gen,
		cache:   cache,
		newID:   uuid.NewString,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure returns the quiz for (topic, difficulty), generating and persisting
// one only if the pair has never been seen. Concurrent callers for the same
// pair share a single generation.
func (s *Service) Ensure(ctx context.Context, topic string, difficulty domain.Difficulty, category string) (domain.QuizDefinition, error) {
	key := topic + "|" + string(difficulty)
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		existing, found, err := s.storage.ByTopicDifficulty(ctx, topic, difficulty)
		if err != nil {
			return domain.QuizDefinition{}, err
		}
		if found {
			return existing, nil
		}

		questions, description, err := s.gen.Generate(ctx, topic, difficulty, category)
		if err != nil {
			return domain.QuizDefinition{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		}
		quiz := domain.QuizDefinition{
			ID:          s.newID(),
			Topic:       topic,
			Difficulty:  difficulty,
			Category:    category,
			Description: description,
			Questions:   questions,
			CreatedAt:   s.clock(),
		}
		if err := validate(quiz); err != nil {
			return domain.QuizDefinition{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		}

		saved, err := s.storage.Save(ctx, quiz)
		if err != nil {
			return domain.QuizDefinition{}, err
		}
		if s.cache != nil {
			s.cache.Put(ctx, saved)
		}
		return saved, nil
	})
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	return result.(domain.QuizDefinition), nil
}

// ByID loads a quiz through the cache.
func (s *Service) ByID(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	if s.cache != nil {
		if quiz, ok := s.cache.Get(ctx, quizID); ok {
			return quiz, nil
		}
	}
	quiz, err := s.storage.ByID(ctx, quizID)
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	if s.cache != nil {
		s.cache.Put(ctx, quiz)
	}
	return quiz, nil
}

func validate(quiz domain.QuizDefinition) error {
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("no questions generated")
	}
	for i, q := range quiz.Questions {
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d has %d options", i, len(q.Options))
		}
		found := false
		for _, opt := range q.Options {
			if opt == q.Answer {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("question %d answer missing from options", i)
		}
	}
	return nil
}
