package dto

import (
	"time"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// SaveAnswersRequest autosaves answers; keys are question ids.
type SaveAnswersRequest struct {
	Answers map[string][]string `json:"answers" validate:"required,max=500,dive,max=20,dive,max=10000"`
}

// SubmitRequest optionally carries the final answers to merge before grading.
type SubmitRequest struct {
	Answers map[string][]string `json:"answers" validate:"omitempty,max=500,dive,max=20,dive,max=10000"`
}

// GradeManualRequest awards points for short and paragraph questions.
type GradeManualRequest struct {
	Points   map[string]float64 `json:"points" validate:"required,dive,gte=0"`
	Feedback string             `json:"feedback" validate:"omitempty,max=5000"`
}

// RegradeResponse reports how many submissions were re-scored.
type RegradeResponse struct {
	AssessmentID uint `json:"assessment_id"`
	Regraded     int  `json:"regraded"`
}

// SubmissionResponse is the serialized submission.
type SubmissionResponse struct {
	ID              uint                     `json:"id"`
	AssessmentID    uint                     `json:"assessment_id"`
	AssessmentTitle string                   `json:"assessment_title,omitempty"`
	StudentID       uint                     `json:"student_id"`
	StudentName     string                   `json:"student_name,omitempty"`
	Status          string                   `json:"status"`
	Answers         models.Answers           `json:"answers"`
	Outcomes        []models.QuestionOutcome `json:"outcomes,omitempty"`
	Score           float64                  `json:"score"`
	MaxScore        float64                  `json:"max_score"`
	Percentage      float64                  `json:"percentage"`
	Feedback        string                   `json:"feedback,omitempty"`
	Late            bool                     `json:"late"`
	StartedAt       time.Time                `json:"started_at"`
	ExpiresAt       *time.Time               `json:"expires_at,omitempty"`
	SubmittedAt     *time.Time               `json:"submitted_at"`
	GradedAt        *time.Time               `json:"graded_at"`
}

// NewSubmissionResponse converts a model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	answers := model.Answers.Data()
	if answers == nil {
		answers = models.Answers{}
	}

	response := SubmissionResponse{
		ID:              model.ID,
		AssessmentID:    model.AssessmentID,
		AssessmentTitle: model.Assessment.Title,
		StudentID:       model.StudentID,
		StudentName:     model.Student.Name,
		Status:          model.Status,
		Answers:         answers,
		Score:           model.Score,
		MaxScore:        model.MaxScore,
		Percentage:      model.Percentage(),
		Feedback:        model.Feedback,
		Late:            model.Late,
		StartedAt:       model.StartedAt,
		SubmittedAt:     model.SubmittedAt,
		GradedAt:        model.GradedAt,
	}
	if model.IsSubmitted() {
		response.Outcomes = model.Outcomes
	}
	return response
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
