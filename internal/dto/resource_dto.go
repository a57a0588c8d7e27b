package dto

import (
	"time"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// ResourceUploadRequest holds the form fields sent with a resource file.
type ResourceUploadRequest struct {
	Title       string `form:"title" validate:"required,min=1,max=255"`
	Description string `form:"description" validate:"omitempty,max=2000"`
}

// ResourceResponse is the serialized class resource.
type ResourceResponse struct {
	ID          uint      `json:"id"`
	ClassID     uint      `json:"class_id"`
	UploaderID  uint      `json:"uploader_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileName    string    `json:"file_name"`
	URL         string    `json:"url"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewResourceResponse converts a model into a DTO.
func NewResourceResponse(model models.Resource) ResourceResponse {
	return ResourceResponse{
		ID:          model.ID,
		ClassID:     model.ClassID,
		UploaderID:  model.UploaderID,
		Title:       model.Title,
		Description: model.Description,
		FileName:    model.FileName,
		URL:         model.URL,
		MimeType:    model.MimeType,
		SizeBytes:   model.SizeBytes,
		CreatedAt:   model.CreatedAt,
	}
}

// NewResourceResponseSlice converts a slice of models into DTOs.
func NewResourceResponseSlice(resources []models.Resource) []ResourceResponse {
	responses := make([]ResourceResponse, 0, len(resources))
	for _, resource := range resources {
		responses = append(responses, NewResourceResponse(resource))
	}
	return responses
}
