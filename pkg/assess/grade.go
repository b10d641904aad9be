package assess

import "strings"

// GradeResult is the outcome of grading a single answer.
type GradeResult struct {
	Score    float64 `json:"score"` // 0-100
	Correct  bool    `json:"correct"`
	Feedback string  `json:"feedback,omitempty"`
}

// normalize lowercases and trims an answer for comparison, folding
// surrounding punctuation often typed by students.
func normalize(answer string) string {
	s := strings.ToLower(strings.TrimSpace(answer))
	s = strings.Trim(s, ".!?)(")
	return strings.Join(strings.Fields(s), " ")
}

// GradeMultipleChoice grades by exact match against the correct
// option, after normalization. A bare option letter also matches.
func GradeMultipleChoice(answer, correct string, optionLetter string) GradeResult {
	normAnswer := normalize(answer)
	match := normAnswer == normalize(correct) ||
		(optionLetter != "" && normAnswer == normalize(optionLetter))

	if match {
		return GradeResult{Score: 100, Correct: true, Feedback: "Correct!"}
	}
	return GradeResult{Score: 0, Correct: false}
}

// GradeTrueFalse grades a true/false answer, accepting t/f shorthand.
func GradeTrueFalse(answer string, correct bool) GradeResult {
	var given bool
	switch normalize(answer) {
	case "true", "t", "yes":
		given = true
	case "false", "f", "no":
		given = false
	default:
		return GradeResult{Score: 0, Correct: false,
			Feedback: "Answer with true or false."}
	}

	if given == correct {
		return GradeResult{Score: 100, Correct: true, Feedback: "Correct!"}
	}
	return GradeResult{Score: 0, Correct: false}
}

// ProblemWork describes what a student's problem-solving response
// demonstrated.
type ProblemWork struct {
	AnswerCorrect bool
	StepsShown    bool
	WorkExplained bool
}

// GradeProblemSolving applies the problem-solving rubric split:
// 50% final answer, 30% method steps, 20% explanation.
func GradeProblemSolving(work ProblemWork) GradeResult {
	score := 0.0
	if work.AnswerCorrect {
		score += 50
	}
	if work.StepsShown {
		score += 30
	}
	if work.WorkExplained {
		score += 20
	}

	return GradeResult{
		Score:   score,
		Correct: work.AnswerCorrect,
	}
}
