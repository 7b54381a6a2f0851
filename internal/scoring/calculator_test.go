package scoring

import (
	"testing"

	"quizrush-service/internal/domain"
)

func TestScoreDeterminism(t *testing.T) {
	rules := DefaultRules()
	out := rules.Score(Input{
		Correct:    true,
		TimeLeft:   10,
		Difficulty: domain.DifficultyIntermediate, // 1.2
		Streak:     0,
	})
	if out.Points != 180 {
		t.Fatalf("expected round(10*15*1.2)=180, got %d", out.Points)
	}
	if out.Streak != 1 {
		t.Fatalf("expected streak 1, got %d", out.Streak)
	}
}

func TestStreakBonusProgression(t *testing.T) {
	rules := DefaultRules()
	base := 180 // 10s at intermediate

	wantExtra := []int{0, 60, 120}
	streak := 0
	for i, extra := range wantExtra {
		out := rules.Score(Input{
			Correct:    true,
			TimeLeft:   10,
			Difficulty: domain.DifficultyIntermediate,
			Streak:     streak,
		})
		if out.Points != base+extra {
			t.Fatalf("answer %d: expected %d, got %d", i+1, base+extra, out.Points)
		}
		streak = out.Streak
	}
}

func TestStreakResetsOnMiss(t *testing.T) {
	rules := DefaultRules()
	out := rules.Score(Input{Correct: false, Streak: 7, Difficulty: domain.DifficultyExpert})
	if out.Streak != 0 {
		t.Fatalf("expected streak reset, got %d", out.Streak)
	}
	if out.Points != -rules.WrongPenalty {
		t.Fatalf("expected -%d, got %d", rules.WrongPenalty, out.Points)
	}
}

func TestThirdConsecutiveMissChargesExtra(t *testing.T) {
	rules := DefaultRules()

	wrongRun := 0
	var points []int
	for i := 0; i < 4; i++ {
		out := rules.Score(Input{Correct: false, WrongRun: wrongRun})
		points = append(points, out.Points)
		wrongRun = out.WrongRun
	}

	// Misses 1 and 2 charge the base penalty, miss 3 adds the run penalty
	// and resets the counter, so miss 4 is back to base.
	if points[0] != -25 || points[1] != -25 {
		t.Fatalf("expected base penalties, got %v", points)
	}
	if points[2] != -125 {
		t.Fatalf("expected -125 on third miss, got %d", points[2])
	}
	if points[3] != -25 {
		t.Fatalf("expected run counter reset after third miss, got %d", points[3])
	}
}

func TestBoosterDoublesOnce(t *testing.T) {
	rules := DefaultRules()
	out := rules.Score(Input{
		Correct:      true,
		TimeLeft:     8,
		Difficulty:   domain.DifficultyIntermediate,
		Streak:       1,
		BoosterArmed: true,
	})
	// round(8*15*1.2)=144 plus streak bonus 60, doubled.
	if out.Points != 2*(144+60) {
		t.Fatalf("expected 408, got %d", out.Points)
	}
	if !out.BoosterSpent {
		t.Fatal("expected booster to be spent")
	}

	// A wrong answer never spends the booster.
	out = rules.Score(Input{Correct: false, BoosterArmed: true})
	if out.BoosterSpent {
		t.Fatal("booster must survive a wrong answer")
	}
}

func TestMultipliersMonotonic(t *testing.T) {
	rules := DefaultRules()
	prev := 0.0
	for _, d := range domain.Difficulties {
		m := rules.Multiplier(d)
		if m <= prev {
			t.Fatalf("multiplier for %s (%v) not above previous tier (%v)", d, m, prev)
		}
		prev = m
	}
}

func TestUnknownDifficultyDefaultsToOne(t *testing.T) {
	rules := DefaultRules()
	if m := rules.Multiplier(domain.Difficulty("mystery")); m != 1 {
		t.Fatalf("expected fallback multiplier 1, got %v", m)
	}
}
