package session

import "quizrush-service/internal/domain"

// View is the read-only projection handed to callers. It never exposes the
// correct answer for an unresolved question.
type View struct {
	QuizID         string                  `json:"quizId"`
	Topic          string                  `json:"topic"`
	Difficulty     domain.Difficulty       `json:"difficulty"`
	Phase          string                  `json:"phase"`
	QuestionIndex  int                     `json:"questionIndex"`
	TotalQuestions int                     `json:"totalQuestions"`
	Question       string                  `json:"question"`
	Options        []string                `json:"options"`
	TimeRemaining  int                     `json:"timeRemaining"`
	Score          int                     `json:"score"`
	Streak         int                     `json:"streak"`
	BoosterArmed   bool                    `json:"boosterArmed"`
	Perks          map[domain.PerkKind]int `json:"perks"`
	LastResult     *AnswerResult           `json:"lastResult,omitempty"`
	UnderAttack    *AttackNotice           `json:"underAttack,omitempty"`
}

// AttackNotice tells the target whose ticket shortened their clock.
type AttackNotice struct {
	AttackerName   string `json:"attackerName"`
	SecondsRemoved int    `json:"secondsRemoved"`
}

// CurrentState returns the projection without mutating anything.
func (s *Session) CurrentState() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	view := View{
		QuizID:         s.quiz.ID,
		Topic:          s.quiz.Topic,
		Difficulty:     s.quiz.Difficulty,
		Phase:          s.phase.String(),
		QuestionIndex:  s.questionIdx,
		TotalQuestions: len(s.quiz.Questions),
		TimeRemaining:  s.timeLeft,
		Score:          s.score,
		Streak:         s.streak,
		BoosterArmed:   s.boosterArmed,
		Perks:          make(map[domain.PerkKind]int, len(s.perks)),
		LastResult:     s.lastResult,
	}
	for kind, count := range s.perks {
		view.Perks[kind] = count
	}
	if s.questionIdx < len(s.quiz.Questions) {
		view.Question = s.quiz.Questions[s.questionIdx].Text
		view.Options = append([]string(nil), s.visibleOptions...)
	}
	if s.attack != nil {
		view.UnderAttack = &AttackNotice{
			AttackerName:   s.attack.AttackerName,
			SecondsRemoved: s.rules.AttackPenaltySeconds,
		}
	}
	return view
}
