package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assessment kinds.
const (
	AssessmentKindQuiz     = "quiz"
	AssessmentKindExam     = "exam"
	AssessmentKindActivity = "activity"
)

// Question types supported by the grader.
const (
	QuestionMCQ            = "mcq"
	QuestionCheckboxes     = "checkboxes"
	QuestionTrueFalse      = "true_false"
	QuestionIdentification = "identification"
	QuestionShort          = "short"
	QuestionParagraph      = "paragraph"
)

// Question is embedded in an assessment's question list.
type Question struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options,omitempty"`
	CorrectAnswers []string `json:"correct_answers,omitempty"`
	Points         float64  `json:"points"`
	CaseSensitive  bool     `json:"case_sensitive,omitempty"`
}

// RequiresManualGrading reports whether the question type cannot be auto-graded.
func (q Question) RequiresManualGrading() bool {
	return q.Type == QuestionShort || q.Type == QuestionParagraph
}

// Assessment is a quiz, exam or activity attached to a class.
type Assessment struct {
	ID               uint                            `gorm:"primaryKey" json:"id"`
	ClassID          uint                            `gorm:"index;not null" json:"class_id"`
	CreatedBy        uint                            `gorm:"index;not null" json:"created_by"`
	Title            string                          `gorm:"size:255;not null" json:"title"`
	Description      string                          `gorm:"type:text" json:"description"`
	Kind             string                          `gorm:"size:16;not null" json:"kind"`
	Questions        datatypes.JSONSlice[Question]   `json:"questions"`
	TimeLimitMinutes int                             `gorm:"not null;default:0" json:"time_limit_minutes"`
	DueDate          *time.Time                      `json:"due_date"`
	Published        bool                            `gorm:"not null;default:false;index" json:"published"`
	ShuffleQuestions bool                            `gorm:"not null;default:false" json:"shuffle_questions"`
	AttachmentURL    string                          `gorm:"size:512" json:"attachment_url"`
	LiveSession      datatypes.JSONType[LiveSession] `json:"live_session"`
	CreatedAt        time.Time                       `json:"created_at"`
	UpdatedAt        time.Time                       `json:"updated_at"`
	Class            Class                           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsPastDue returns true when the assessment deadline has already passed.
func (a Assessment) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}

// MaxPoints sums the points of every question.
func (a Assessment) MaxPoints() float64 {
	var total float64
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}

// FindQuestion returns the question with the given id.
func (a Assessment) FindQuestion(id string) (Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
