package generation

// GradeResult is the outcome of grading one selection.
type GradeResult struct {
	Correct bool `json:"correct"`
	// CorrectIndex is the first option equal to the correct answer, or -1.
	CorrectIndex int `json:"correct_index"`
	// Ambiguous is set when the correct answer text occurs more than once.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// Grade compares the selected option with the correct answer by value.
// An out-of-range selection is incorrect.
func Grade(options []string, correctAnswer string, selected int) GradeResult {
	res := GradeResult{CorrectIndex: -1}
	matches := 0
	for i, o := range options {
		if o != correctAnswer {
			continue
		}
		if res.CorrectIndex < 0 {
			res.CorrectIndex = i
		}
		matches++
	}
	res.Ambiguous = matches > 1
	if selected >= 0 && selected < len(options) {
		res.Correct = options[selected] == correctAnswer
	}
	return res
}

// Score is the rounded percentage of correct answers.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int((float64(correct)/float64(total))*100 + 0.5)
}
