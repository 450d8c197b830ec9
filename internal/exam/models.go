package exam

import (
	"time"

	"github.com/mind-engage/examportal/internal/grading"
)

type Question struct {
	ID            string   `json:"id"`
	QuestionText  string   `json:"questionText" validate:"required"`
	Options       []string `json:"options" validate:"len=4,dive,required"`
	CorrectAnswer string   `json:"correctAnswer,omitempty" validate:"required"`
}

type Test struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Date        string     `json:"date"`      // YYYY-MM-DD
	StartTime   string     `json:"startTime"` // HH:MM
	EndTime     string     `json:"endTime"`   // HH:MM, same date
	TotalMarks  int        `json:"totalMarks"`
	CreatedBy   string     `json:"createdBy"`
	CreatorName string     `json:"creatorName,omitempty"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewTest is the author-supplied part of a Test.
type NewTest struct {
	Name       string     `json:"name" validate:"required"`
	Date       string     `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string     `json:"startTime" validate:"required,datetime=15:04"`
	EndTime    string     `json:"endTime" validate:"required,datetime=15:04"`
	TotalMarks int        `json:"totalMarks" validate:"gt=0"`
	Questions  []Question `json:"questions" validate:"required,min=1,dive"`
}

// ForStudent returns a copy with the answer keys removed.
func (t Test) ForStudent() Test {
	qs := make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.Options = append([]string(nil), q.Options...)
		q.CorrectAnswer = ""
		qs[i] = q
	}
	t.Questions = qs
	return t
}

func (t Test) gradingQuestions() []grading.Q {
	out := make([]grading.Q, len(t.Questions))
	for i, q := range t.Questions {
		out[i] = grading.Q{ID: q.ID, AnswerKey: q.CorrectAnswer}
	}
	return out
}

type Answer struct {
	QuestionID     string `json:"questionId" validate:"required"`
	SelectedOption string `json:"selectedOption"`
}

func responsesOf(answers []Answer) []grading.Response {
	out := make([]grading.Response, len(answers))
	for i, a := range answers {
		out[i] = grading.Response{QuestionID: a.QuestionID, Selected: a.SelectedOption}
	}
	return out
}

type Submission struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	TestID      string    `json:"testId"`
	Answers     []Answer  `json:"answers"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// SubmissionResult is returned by Service.Submit.
type SubmissionResult struct {
	Message        string           `json:"message"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"totalQuestions"`
	Submission     Submission       `json:"submission"`
	Review         []grading.Result `json:"review,omitempty"`
}

// TestRef is the part of a Test shown next to a student's own submission.
type TestRef struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	TotalMarks int    `json:"totalMarks"`
}

// StudentSubmission is a submission with its test resolved. Test is nil
// when the test has been deleted since.
type StudentSubmission struct {
	Submission
	Test *TestRef `json:"test"`
}

// Student is a roster entry.
type Student struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	PRN   string `json:"prn,omitempty"`
}

type SubmittedStudent struct {
	Student      Student   `json:"student"`
	SubmissionID string    `json:"submissionId"`
	Score        int       `json:"score"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

type Results struct {
	TestID       string             `json:"testId"`
	TestName     string             `json:"testName"`
	TotalMarks   int                `json:"totalMarks"`
	Submitted    []SubmittedStudent `json:"submittedStudents"`
	NotSubmitted []Student          `json:"notSubmittedStudents"`
}
