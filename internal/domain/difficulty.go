package domain

// Difficulty is the fixed, ordered difficulty tier of a quiz.
type Difficulty string

const (
	DifficultyDumbDumb     Difficulty = "dumb-dumb"
	DifficultyNovice       Difficulty = "novice"
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// Difficulties lists all tiers in ascending order.
var Difficulties = []Difficulty{
	DifficultyDumbDumb,
	DifficultyNovice,
	DifficultyBeginner,
	DifficultyIntermediate,
	DifficultyAdvanced,
	DifficultyExpert,
}

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	for _, known := range Difficulties {
		if d == known {
			return true
		}
	}
	return false
}

// QuestionCount is how many questions the content service generates per tier.
func (d Difficulty) QuestionCount() int {
	switch d {
	case DifficultyDumbDumb:
		return 5
	case DifficultyNovice:
		return 7
	case DifficultyBeginner:
		return 10
	case DifficultyIntermediate:
		return 12
	case DifficultyAdvanced, DifficultyExpert:
		return 15
	default:
		return 10
	}
}
