package model

// AnswerOption is a single selectable answer within a question.
type AnswerOption struct {
	ID   int    `json:"id" validate:"min=1"`
	Text string `json:"text" validate:"required"`
}

// Question represents a single exam question. Whether it is
// multi-select is never stored — it is always derived from the size of
// the correct-answer set.
type Question struct {
	ID               int            `json:"id" validate:"min=1"`
	Text             string         `json:"question" validate:"required"`
	Answers          []AnswerOption `json:"answers" validate:"min=1,dive"`
	CorrectAnswerIDs []int          `json:"correct_answer_ids" validate:"min=1,dive,min=1"`
}

// IsMulti reports whether the question expects multiple selections.
func (q *Question) IsMulti() bool {
	return len(q.CorrectAnswerIDs) > 1
}

// HasAnswer reports whether id belongs to this question's answer options.
func (q *Question) HasAnswer(id int) bool {
	for _, a := range q.Answers {
		if a.ID == id {
			return true
		}
	}
	return false
}

// ExamDefinition is an immutable exam: an ordered question sequence
// with a stable identifier. Question order defines navigation order.
type ExamDefinition struct {
	ExamID    int        `json:"exam_id" validate:"min=1"`
	Questions []Question `json:"questions" validate:"dive"`
}

// QuestionAt returns the question at index, or nil when out of range.
func (e *ExamDefinition) QuestionAt(index int) *Question {
	if index < 0 || index >= len(e.Questions) {
		return nil
	}
	return &e.Questions[index]
}

// QuestionIndex returns the position of questionID in the full
// sequence, or -1 when the exam has no such question.
func (e *ExamDefinition) QuestionIndex(questionID int) int {
	for i := range e.Questions {
		if e.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

// CatalogDocument is the versionless wire shape of exams.json.
type CatalogDocument struct {
	Exams []ExamDefinition `json:"exams" validate:"required,dive"`
}

// ExamSummary is an exam as displayed in the exam list.
type ExamSummary struct {
	ExamID        int  `json:"exam_id"`
	QuestionCount int  `json:"question_count"`
	Finalized     bool `json:"finalized"`
}
