package assess

// MasteryBand labels a mastery level.
type MasteryBand string

const (
	Mastered   MasteryBand = "Mastered"
	Proficient MasteryBand = "Proficient"
	Developing MasteryBand = "Developing"
	Emerging   MasteryBand = "Emerging"
	Beginning  MasteryBand = "Beginning"
)

// ScoredAttempt is one quiz or practice result with its difficulty.
type ScoredAttempt struct {
	Score      float64 `json:"score"` // 0-100
	Difficulty string  `json:"difficulty"`
}

// Mastery is the banded result of mastery scoring.
type Mastery struct {
	Score          float64     `json:"score"`
	Band           MasteryBand `json:"band"`
	Recommendation string      `json:"recommendation"`
}

// difficultyWeight weights attempts so harder questions count more.
func difficultyWeight(difficulty string) float64 {
	switch difficulty {
	case "easy":
		return 0.5
	case "hard":
		return 1.5
	default:
		return 1.0
	}
}

// ComputeMastery returns the difficulty-weighted average score banded
// into a mastery level with a study recommendation.
func ComputeMastery(attempts []ScoredAttempt) Mastery {
	if len(attempts) == 0 {
		return Mastery{
			Band:           Beginning,
			Recommendation: "Try a few practice questions to establish a baseline.",
		}
	}

	var weightedSum, totalWeight float64
	for _, a := range attempts {
		w := difficultyWeight(a.Difficulty)
		weightedSum += a.Score * w
		totalWeight += w
	}
	score := weightedSum / totalWeight

	band, rec := bandFor(score)
	return Mastery{Score: score, Band: band, Recommendation: rec}
}

func bandFor(score float64) (MasteryBand, string) {
	switch {
	case score >= 90:
		return Mastered, "Excellent command. Move on to a harder topic or help others."
	case score >= 75:
		return Proficient, "Solid understanding. Try harder questions to reach mastery."
	case score >= 60:
		return Developing, "Making progress. Keep practicing at the current difficulty."
	case score >= 40:
		return Emerging, "The basics are forming. Review worked examples before more practice."
	default:
		return Beginning, "Start with a step-by-step explanation and easy practice questions."
	}
}
