// Package assess provides grading rubrics and mastery scoring.
package assess

// QuestionKind identifies a question format.
type QuestionKind string

const (
	MultipleChoice QuestionKind = "multiple_choice"
	TrueFalse      QuestionKind = "true_false"
	ShortAnswer    QuestionKind = "short_answer"
	ProblemSolving QuestionKind = "problem_solving"
	Essay          QuestionKind = "essay"
)

// Criterion is one scored dimension of a rubric.
type Criterion struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description"`
}

// Rubric describes how a question kind is graded.
type Rubric struct {
	Kind     QuestionKind `json:"kind"`
	Criteria []Criterion  `json:"criteria"`
}

// rubrics holds the grading rubric per question kind.
var rubrics = map[QuestionKind]Rubric{
	MultipleChoice: {
		Kind: MultipleChoice,
		Criteria: []Criterion{
			{Name: "correctness", Weight: 1.0, Description: "Selected the correct option"},
		},
	},
	TrueFalse: {
		Kind: TrueFalse,
		Criteria: []Criterion{
			{Name: "correctness", Weight: 1.0, Description: "Chose the correct truth value"},
		},
	},
	ShortAnswer: {
		Kind: ShortAnswer,
		Criteria: []Criterion{
			{Name: "accuracy", Weight: 0.7, Description: "Answer states the key fact correctly"},
			{Name: "completeness", Weight: 0.3, Description: "Answer covers the expected points"},
		},
	},
	ProblemSolving: {
		Kind: ProblemSolving,
		Criteria: []Criterion{
			{Name: "answer", Weight: 0.5, Description: "Final answer is correct"},
			{Name: "method", Weight: 0.3, Description: "Solution steps are shown"},
			{Name: "explanation", Weight: 0.2, Description: "Work is explained"},
		},
	},
	Essay: {
		Kind: Essay,
		Criteria: []Criterion{
			{Name: "thesis", Weight: 0.3, Description: "Clear thesis or main idea"},
			{Name: "evidence", Weight: 0.4, Description: "Supporting evidence and examples"},
			{Name: "organization", Weight: 0.3, Description: "Logical structure and flow"},
		},
	},
}

// RubricFor returns the rubric for a question kind.
func RubricFor(kind QuestionKind) (Rubric, bool) {
	r, ok := rubrics[kind]
	return r, ok
}
