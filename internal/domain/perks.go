package domain

// PerkKind is a closed enum of consumable perks. Adding a kind here requires
// a handler in the session perk engine; string-keyed dynamic dispatch is
// deliberately avoided.
type PerkKind string

const (
	// PerkFiftyFifty eliminates incorrect options, leaving the correct
	// answer and exactly one wrong one.
	PerkFiftyFifty PerkKind = "fifty-fifty"
	// PerkSkip skips the current question with no score delta.
	PerkSkip PerkKind = "skip-question"
	// PerkBooster doubles the next correct answer's points, once.
	PerkBooster PerkKind = "score-booster"
	// PerkTimeAttack shortens a named opponent's per-question budget in
	// their next session.
	PerkTimeAttack PerkKind = "time-attack"
)

// PerkKinds lists every kind the engine knows.
var PerkKinds = []PerkKind{PerkFiftyFifty, PerkSkip, PerkBooster, PerkTimeAttack}

// Valid reports whether k is a known perk kind.
func (k PerkKind) Valid() bool {
	for _, known := range PerkKinds {
		if k == known {
			return true
		}
	}
	return false
}

// PerkCost is the store price of each perk, paid from lifetime score.
var PerkCost = map[PerkKind]int{
	PerkFiftyFifty: 500,
	PerkSkip:       750,
	PerkBooster:    1500,
	PerkTimeAttack: 1000,
}
