package grading

// Q is a minimal view of a question needed for grading.
// Keep this in sync with exam.Question.
type Q struct {
	ID        string
	AnswerKey string
}

// Response is one selected option for one question.
type Response struct {
	QuestionID string
	Selected   string
}

// Result is the outcome of grading a single question.
type Result struct {
	QuestionID string `json:"questionId"`
	Answered   bool   `json:"answered"`
	Correct    bool   `json:"correct"`
}

// answerKey maps question id -> correct option.
type answerKey map[string]string

func keyOf(questions []Q) answerKey {
	k := make(answerKey, len(questions))
	for _, q := range questions {
		k[q.ID] = q.AnswerKey
	}
	return k
}

// Score returns one point per response whose selected option equals the
// answer key of its question. Responses naming an unknown question are
// ignored. Repeated responses for the same question are each counted;
// callers that need one answer per question must reject repeats first.
func Score(questions []Q, responses []Response) int {
	key := keyOf(questions)
	score := 0
	for _, r := range responses {
		if want, ok := key[r.QuestionID]; ok && want == r.Selected {
			score++
		}
	}
	return score
}

// Breakdown reports per-question correctness in question order.
// Only the first response for a question is considered.
func Breakdown(questions []Q, responses []Response) []Result {
	first := make(map[string]string, len(responses))
	for _, r := range responses {
		if _, seen := first[r.QuestionID]; !seen {
			first[r.QuestionID] = r.Selected
		}
	}
	out := make([]Result, 0, len(questions))
	for _, q := range questions {
		sel, ok := first[q.ID]
		out = append(out, Result{
			QuestionID: q.ID,
			Answered:   ok,
			Correct:    ok && sel == q.AnswerKey,
		})
	}
	return out
}
