// Package postgres stores immutable QuizDefinition documents as JSONB rows.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizrush-service/internal/domain"
)

type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) ByID(ctx context.Context, quizID string) (domain.QuizDefinition, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizDefinition{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("load quiz: %w", err)
	}
	return unmarshalQuiz(raw)
}

// ByTopicDifficulty implements the query-by-field lookup that gates
// regeneration: once a quiz exists for the pair it is reused forever.
func (s *QuizStore) ByTopicDifficulty(ctx context.Context, topic string, difficulty domain.Difficulty) (domain.QuizDefinition, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM quizzes WHERE topic=$1 AND difficulty=$2`, topic, string(difficulty)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizDefinition{}, false, nil
	}
	if err != nil {
		return domain.QuizDefinition{}, false, fmt.Errorf("lookup quiz: %w", err)
	}
	quiz, err := unmarshalQuiz(raw)
	return quiz, err == nil, err
}

// Save inserts the quiz, keeping the first writer's row when two sessions
// generate the same topic+difficulty concurrently. The canonical row is
// returned either way.
func (s *QuizStore) Save(ctx context.Context, quiz domain.QuizDefinition) (domain.QuizDefinition, error) {
	data, err := json.Marshal(quiz)
	if err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("marshal quiz: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, topic, difficulty, category, data)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (topic, difficulty) DO NOTHING`,
		quiz.ID, quiz.Topic, string(quiz.Difficulty), quiz.Category, data)
	if err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("save quiz: %w", err)
	}

	canonical, found, err := s.ByTopicDifficulty(ctx, quiz.Topic, quiz.Difficulty)
	if err != nil {
		return domain.QuizDefinition{}, err
	}
	if !found {
		return domain.QuizDefinition{}, domain.ErrQuizNotFound
	}
	return canonical, nil
}

func unmarshalQuiz(raw []byte) (domain.QuizDefinition, error) {
	var quiz domain.QuizDefinition
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.QuizDefinition{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}
