package session

import (
	"context"

	"quizrush-service/internal/domain"
)

// Spender atomically decrements a perk's inventory count in the profile
// store, failing with domain.ErrInsufficientPerk when none are left.
type Spender interface {
	Spend(ctx context.Context, playerID string, kind domain.PerkKind) error
}

// UsePerk runs one in-session perk: inventory check, atomic spend, then the
// effect. Time-attack is not handled here; it never touches the caller's own
// session and goes through the attack coordinator instead.
func (s *Session) UsePerk(ctx context.Context, spender Spender, kind domain.PerkKind) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.perks[kind] <= 0 {
		return s.viewLocked(), domain.ErrInsufficientPerk
	}

	// Validate the session-local preconditions before spending so a rejected
	// use never burns the perk.
	switch kind {
	case domain.PerkFiftyFifty:
		if s.phase != PhaseAwaitingQuestion {
			return s.viewLocked(), domain.ErrInvalidTransition
		}
		if len(s.visibleOptions) <= 2 {
			return s.viewLocked(), domain.ErrInvalidTransition
		}
	case domain.PerkSkip:
		if s.phase != PhaseAwaitingQuestion {
			return s.viewLocked(), domain.ErrInvalidTransition
		}
	case domain.PerkBooster:
		if s.phase == PhaseFinalizing || s.phase == PhaseComplete || s.phase == PhaseExited {
			return s.viewLocked(), domain.ErrInvalidTransition
		}
		if s.boosterOffered {
			return s.viewLocked(), domain.ErrInvalidTransition
		}
	default:
		return s.viewLocked(), domain.ErrUnknownPerk
	}

	if err := spender.Spend(ctx, s.player.PlayerID, kind); err != nil {
		return s.viewLocked(), err
	}
	s.perks[kind]--

	switch kind {
	case domain.PerkFiftyFifty:
		s.applyFiftyFiftyLocked()
	case domain.PerkSkip:
		s.resolveLocked(nil, true)
	case domain.PerkBooster:
		s.boosterArmed = true
		s.boosterOffered = true
	}
	return s.viewLocked(), nil
}

// NotePerkSpent keeps the local snapshot in step for perks spent outside the
// session, i.e. a time-attack queued against an opponent.
func (s *Session) NotePerkSpent(kind domain.PerkKind) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.perks[kind] > 0 {
		s.perks[kind]--
	}
	return s.viewLocked()
}

// applyFiftyFiftyLocked keeps the correct answer and one randomly chosen
// incorrect option, preserving presentation order. The correct answer is
// never a candidate for elimination.
func (s *Session) applyFiftyFiftyLocked() {
	correct := s.quiz.Questions[s.questionIdx].Answer

	var incorrect []string
	for _, opt := range s.visibleOptions {
		if opt != correct {
			incorrect = append(incorrect, opt)
		}
	}
	kept := incorrect[s.rnd.Intn(len(incorrect))]

	reduced := make([]string, 0, 2)
	for _, opt := range s.visibleOptions {
		if opt == correct || opt == kept {
			reduced = append(reduced, opt)
		}
	}
	s.visibleOptions = reduced
}
