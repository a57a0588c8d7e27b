package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// SubmissionStatusInProgress indicates the student started but has not submitted.
	SubmissionStatusInProgress = "in_progress"
	// SubmissionStatusNeedsGrading indicates manual questions still await a teacher.
	SubmissionStatusNeedsGrading = "needs_grading"
	// SubmissionStatusGraded indicates the submission has a final score.
	SubmissionStatusGraded = "graded"
)

// Answers maps a question id to the values the student picked or typed.
type Answers map[string][]string

// QuestionOutcome records how a single question was scored.
type QuestionOutcome struct {
	QuestionID string  `json:"question_id"`
	Correct    bool    `json:"correct"`
	Earned     float64 `json:"earned"`
	Points     float64 `json:"points"`
	Manual     bool    `json:"manual"`
	Pending    bool    `json:"pending"`
}

// Submission stores a student's attempt at an assessment.
type Submission struct {
	ID           uint                                   `gorm:"primaryKey" json:"id"`
	AssessmentID uint                                   `gorm:"uniqueIndex:idx_submission_attempt;not null" json:"assessment_id"`
	StudentID    uint                                   `gorm:"uniqueIndex:idx_submission_attempt;index;not null" json:"student_id"`
	Status       string                                 `gorm:"size:32;index;not null" json:"status"`
	Answers      datatypes.JSONType[Answers]            `json:"answers"`
	Outcomes     datatypes.JSONSlice[QuestionOutcome]   `json:"outcomes"`
	ManualPoints datatypes.JSONType[map[string]float64] `json:"manual_points"`
	Score        float64                                `gorm:"not null;default:0" json:"score"`
	MaxScore     float64                                `gorm:"not null;default:0" json:"max_score"`
	Feedback     string                                 `gorm:"type:text" json:"feedback"`
	Late         bool                                   `gorm:"not null;default:false" json:"late"`
	StartedAt    time.Time                              `gorm:"not null" json:"started_at"`
	SubmittedAt  *time.Time                             `json:"submitted_at"`
	GradedAt     *time.Time                             `json:"graded_at"`
	GradedBy     *uint                                  `json:"graded_by"`
	CreatedAt    time.Time                              `json:"created_at"`
	UpdatedAt    time.Time                              `json:"updated_at"`
	Assessment   Assessment                             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student      User                                   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsSubmitted reports whether the student already handed the attempt in.
func (s Submission) IsSubmitted() bool {
	return s.Status != SubmissionStatusInProgress
}

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// Percentage returns the score as a percentage of the maximum.
func (s Submission) Percentage() float64 {
	if s.MaxScore <= 0 {
		return 0
	}
	return s.Score / s.MaxScore * 100
}
