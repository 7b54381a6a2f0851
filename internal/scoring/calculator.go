// Package scoring holds the pure points formula. It keeps no state; the
// session state machine feeds it the counters it needs and stores what comes
// back.
package scoring

import (
	"math"

	"quizrush-service/internal/domain"
)

// Rules are the tunable scoring constants. They are configuration, not
// contract: deployments may run a different reward curve.
type Rules struct {
	PointsPerSecond     int                           `yaml:"pointsPerSecond"`
	StreakBonus         int                           `yaml:"streakBonus"`
	WrongPenalty        int                           `yaml:"wrongPenalty"`
	WrongRunPenalty     int                           `yaml:"wrongRunPenalty"`
	WrongRunLength      int                           `yaml:"wrongRunLength"`
	QuestionSeconds     int                           `yaml:"questionSeconds"`
	AttackPenaltySeconds int                          `yaml:"attackPenaltySeconds"`
	Multipliers         map[domain.Difficulty]float64 `yaml:"multipliers"`
}

// DefaultRules is the reward curve the service ships with.
func DefaultRules() Rules {
	return Rules{
		PointsPerSecond:      15,
		StreakBonus:          60,
		WrongPenalty:         25,
		WrongRunPenalty:      100,
		WrongRunLength:       3,
		QuestionSeconds:      15,
		AttackPenaltySeconds: 5,
		Multipliers: map[domain.Difficulty]float64{
			domain.DifficultyDumbDumb:     0.2,
			domain.DifficultyNovice:       0.4,
			domain.DifficultyBeginner:     1.0,
			domain.DifficultyIntermediate: 1.2,
			domain.DifficultyAdvanced:     1.5,
			domain.DifficultyExpert:       2.0,
		},
	}
}

// Multiplier returns the per-tier scalar, defaulting to 1 for unknown tiers.
func (r Rules) Multiplier(d domain.Difficulty) float64 {
	if m, ok := r.Multipliers[d]; ok {
		return m
	}
	return 1
}

// Input is everything the formula needs for one answer.
type Input struct {
	Correct      bool
	TimeLeft     int // whole seconds remaining at submission
	Difficulty   domain.Difficulty
	Streak       int // consecutive correct answers before this one
	WrongRun     int // consecutive wrong answers before this one
	BoosterArmed bool
}

// Outcome carries the points delta plus the updated counters.
type Outcome struct {
	Points       int
	Streak       int
	WrongRun     int
	BoosterSpent bool
}

// Score applies the formula for a single answer.
//
// Correct: round(timeLeft * pointsPerSecond * multiplier), plus
// streakBonus*(streak-1) once the streak exceeds one; an armed booster
// doubles that question's total and is spent. Wrong or timed out: streak
// resets, wrongPenalty is charged, and every wrongRunLength-th consecutive
// miss additionally charges wrongRunPenalty and resets the run counter.
func (r Rules) Score(in Input) Outcome {
	if !in.Correct {
		out := Outcome{Streak: 0, WrongRun: in.WrongRun + 1, Points: -r.WrongPenalty}
		if r.WrongRunLength > 0 && out.WrongRun >= r.WrongRunLength {
			out.Points -= r.WrongRunPenalty
			out.WrongRun = 0
		}
		return out
	}

	streak := in.Streak + 1
	points := int(math.Round(float64(in.TimeLeft) * float64(r.PointsPerSecond) * r.Multiplier(in.Difficulty)))
	if streak > 1 {
		points += r.StreakBonus * (streak - 1)
	}

	out := Outcome{Points: points, Streak: streak, WrongRun: 0}
	if in.BoosterArmed {
		out.Points *= 2
		out.BoosterSpent = true
	}
	return out
}
