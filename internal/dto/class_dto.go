package dto

import (
	"time"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// ClassCreateRequest describes a new class.
type ClassCreateRequest struct {
	Name                string `json:"name" validate:"required,min=2,max=255"`
	Section             string `json:"section" validate:"omitempty,max=64"`
	Description         string `json:"description" validate:"omitempty,max=2000"`
	AllowStudentUploads bool   `json:"allow_student_uploads"`
}

// ClassUpdateRequest patches a class.
type ClassUpdateRequest struct {
	Name                *string `json:"name" validate:"omitempty,min=2,max=255"`
	Section             *string `json:"section" validate:"omitempty,max=64"`
	Description         *string `json:"description" validate:"omitempty,max=2000"`
	AllowStudentUploads *bool   `json:"allow_student_uploads"`
}

// JoinClassRequest carries the code a student received from the teacher.
type JoinClassRequest struct {
	Code string `json:"code" validate:"required,len=6,alphanum"`
}

// ClassResponse is the serialized class. JoinCode is only filled for staff.
type ClassResponse struct {
	ID                  uint      `json:"id"`
	Name                string    `json:"name"`
	Section             string    `json:"section"`
	Description         string    `json:"description"`
	TeacherID           uint      `json:"teacher_id"`
	JoinCode            string    `json:"join_code,omitempty"`
	AllowStudentUploads bool      `json:"allow_student_uploads"`
	MemberCount         int64     `json:"member_count"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewClassResponse converts a model into a DTO, exposing the join code when asked.
func NewClassResponse(model models.Class, withCode bool, members int64) ClassResponse {
	response := ClassResponse{
		ID:                  model.ID,
		Name:                model.Name,
		Section:             model.Section,
		Description:         model.Description,
		TeacherID:           model.TeacherID,
		AllowStudentUploads: model.AllowStudentUploads,
		MemberCount:         members,
		CreatedAt:           model.CreatedAt,
	}
	if withCode {
		response.JoinCode = model.JoinCode
	}
	return response
}

// ClassMemberResponse lists a student enrolled in a class.
type ClassMemberResponse struct {
	StudentID uint      `json:"student_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	JoinedAt  time.Time `json:"joined_at"`
}

// NewClassMemberResponseSlice converts memberships into DTOs.
func NewClassMemberResponseSlice(members []models.ClassMember) []ClassMemberResponse {
	responses := make([]ClassMemberResponse, 0, len(members))
	for _, member := range members {
		responses = append(responses, ClassMemberResponse{
			StudentID: member.StudentID,
			Name:      member.Student.Name,
			Email:     member.Student.Email,
			JoinedAt:  member.JoinedAt,
		})
	}
	return responses
}
