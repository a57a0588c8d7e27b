package dto

import (
	"time"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// QuestionInput is a question as authored by a teacher. Missing ids are generated.
type QuestionInput struct {
	ID             string   `json:"id" validate:"omitempty,max=64"`
	Type           string   `json:"type" validate:"required,oneof=mcq checkboxes true_false identification short paragraph"`
	Prompt         string   `json:"prompt" validate:"required,max=5000"`
	Options        []string `json:"options" validate:"omitempty,max=20,dive,max=1000"`
	CorrectAnswers []string `json:"correct_answers" validate:"omitempty,max=20,dive,max=1000"`
	Points         float64  `json:"points" validate:"omitempty,gt=0,lte=1000"`
	CaseSensitive  bool     `json:"case_sensitive"`
}

// AssessmentCreateRequest describes a new quiz, exam or activity.
type AssessmentCreateRequest struct {
	ClassID          uint            `json:"class_id" validate:"required"`
	Title            string          `json:"title" validate:"required,min=2,max=255"`
	Description      string          `json:"description" validate:"omitempty,max=10000"`
	Kind             string          `json:"kind" validate:"required,oneof=quiz exam activity"`
	Questions        []QuestionInput `json:"questions" validate:"omitempty,max=200,dive"`
	TimeLimitMinutes int             `json:"time_limit_minutes" validate:"min=0,max=600"`
	DueDate          *time.Time      `json:"due_date"`
	ShuffleQuestions bool            `json:"shuffle_questions"`
	AttachmentURL    string          `json:"attachment_url" validate:"omitempty,url,max=512"`
}

// AssessmentUpdateRequest patches an assessment. A non-nil Questions replaces the whole list.
type AssessmentUpdateRequest struct {
	Title            *string          `json:"title" validate:"omitempty,min=2,max=255"`
	Description      *string          `json:"description" validate:"omitempty,max=10000"`
	Kind             *string          `json:"kind" validate:"omitempty,oneof=quiz exam activity"`
	Questions        *[]QuestionInput `json:"questions" validate:"omitempty,max=200,dive"`
	TimeLimitMinutes *int             `json:"time_limit_minutes" validate:"omitempty,min=0,max=600"`
	DueDate          *time.Time       `json:"due_date"`
	ClearDueDate     bool             `json:"clear_due_date"`
	ShuffleQuestions *bool            `json:"shuffle_questions"`
	AttachmentURL    *string          `json:"attachment_url" validate:"omitempty,max=512"`
}

// AssessmentQuery filters assessment listings.
type AssessmentQuery struct {
	ClassID uint   `query:"class_id"`
	Kind    string `query:"kind" validate:"omitempty,oneof=quiz exam activity"`
	Search  string `query:"search" validate:"omitempty,max=100"`
}

// AssessmentResponse is the serialized assessment. Students receive questions without answer keys.
type AssessmentResponse struct {
	ID               uint              `json:"id"`
	ClassID          uint              `json:"class_id"`
	CreatedBy        uint              `json:"created_by"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Kind             string            `json:"kind"`
	Questions        []models.Question `json:"questions"`
	QuestionCount    int               `json:"question_count"`
	MaxPoints        float64           `json:"max_points"`
	TimeLimitMinutes int               `json:"time_limit_minutes"`
	DueDate          *time.Time        `json:"due_date"`
	Published        bool              `json:"published"`
	ShuffleQuestions bool              `json:"shuffle_questions"`
	AttachmentURL    string            `json:"attachment_url,omitempty"`
	LiveActive       bool              `json:"live_active"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// NewAssessmentResponse converts a model into a DTO using the given question list.
func NewAssessmentResponse(model models.Assessment, questions []models.Question) AssessmentResponse {
	if questions == nil {
		questions = []models.Question{}
	}
	return AssessmentResponse{
		ID:               model.ID,
		ClassID:          model.ClassID,
		CreatedBy:        model.CreatedBy,
		Title:            model.Title,
		Description:      model.Description,
		Kind:             model.Kind,
		Questions:        questions,
		QuestionCount:    len(model.Questions),
		MaxPoints:        model.MaxPoints(),
		TimeLimitMinutes: model.TimeLimitMinutes,
		DueDate:          model.DueDate,
		Published:        model.Published,
		ShuffleQuestions: model.ShuffleQuestions,
		AttachmentURL:    model.AttachmentURL,
		LiveActive:       model.LiveSession.Data().Active,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}
