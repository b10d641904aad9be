package assess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRubricFor(t *testing.T) {
	for _, kind := range []QuestionKind{MultipleChoice, TrueFalse, ShortAnswer, ProblemSolving, Essay} {
		r, ok := RubricFor(kind)
		assert.True(t, ok, "missing rubric for %s", kind)
		assert.Equal(t, kind, r.Kind)

		var total float64
		for _, c := range r.Criteria {
			total += c.Weight
		}
		assert.InDelta(t, 1.0, total, 0.001, "weights for %s must sum to 1", kind)
	}

	_, ok := RubricFor("riddle")
	assert.False(t, ok)
}

func TestGradeMultipleChoice(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		correct string
		letter  string
		want    bool
	}{
		{"exact match", "Paris", "Paris", "b", true},
		{"case and spacing", "  paris ", "Paris", "b", true},
		{"option letter", "B", "Paris", "b", true},
		{"trailing punctuation", "Paris.", "Paris", "b", true},
		{"wrong answer", "London", "Paris", "b", false},
		{"empty answer", "", "Paris", "b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GradeMultipleChoice(tt.answer, tt.correct, tt.letter)
			assert.Equal(t, tt.want, result.Correct)
			if tt.want {
				assert.Equal(t, 100.0, result.Score)
			} else {
				assert.Equal(t, 0.0, result.Score)
			}
		})
	}
}

func TestGradeTrueFalse(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		correct bool
		want    bool
	}{
		{"true match", "true", true, true},
		{"shorthand t", "T", true, true},
		{"yes as true", "yes", true, true},
		{"false match", "False", false, true},
		{"shorthand f", "f", false, true},
		{"wrong", "true", false, false},
		{"unparseable", "maybe", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GradeTrueFalse(tt.answer, tt.correct)
			assert.Equal(t, tt.want, result.Correct)
		})
	}
}

func TestGradeProblemSolving(t *testing.T) {
	tests := []struct {
		name string
		work ProblemWork
		want float64
	}{
		{"full marks", ProblemWork{AnswerCorrect: true, StepsShown: true, WorkExplained: true}, 100},
		{"answer only", ProblemWork{AnswerCorrect: true}, 50},
		{"good method, wrong answer", ProblemWork{StepsShown: true, WorkExplained: true}, 50},
		{"steps only", ProblemWork{StepsShown: true}, 30},
		{"nothing", ProblemWork{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GradeProblemSolving(tt.work)
			assert.Equal(t, tt.want, result.Score)
		})
	}
}

func TestComputeMastery_Bands(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		band  MasteryBand
	}{
		{"mastered", 95, Mastered},
		{"mastered boundary", 90, Mastered},
		{"proficient", 80, Proficient},
		{"developing", 65, Developing},
		{"emerging", 45, Emerging},
		{"beginning", 20, Beginning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ComputeMastery([]ScoredAttempt{{Score: tt.score, Difficulty: "medium"}})
			assert.Equal(t, tt.band, m.Band)
			assert.NotEmpty(t, m.Recommendation)
		})
	}
}

func TestComputeMastery_DifficultyWeighting(t *testing.T) {
	// A hard 90 outweighs an easy 60: (90*1.5 + 60*0.5) / 2 = 82.5.
	m := ComputeMastery([]ScoredAttempt{
		{Score: 90, Difficulty: "hard"},
		{Score: 60, Difficulty: "easy"},
	})
	assert.InDelta(t, 82.5, m.Score, 0.001)
	assert.Equal(t, Proficient, m.Band)
}

func TestComputeMastery_Empty(t *testing.T) {
	m := ComputeMastery(nil)
	assert.Equal(t, Beginning, m.Band)
	assert.Equal(t, 0.0, m.Score)
	assert.NotEmpty(t, m.Recommendation)
}
