package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
)

// ErrResourceNotFound indicates the resource does not exist.
var ErrResourceNotFound = errors.New("resource not found")

// ResourceService stores files shared with a class.
type ResourceService interface {
	Upload(ctx context.Context, actor Actor, classID uint, payload dto.ResourceUploadRequest, file *multipart.FileHeader) (dto.ResourceResponse, error)
	List(ctx context.Context, actor Actor, classID uint) ([]dto.ResourceResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type resourceService struct {
	resources repository.ResourceRepository
	access    classAccess
	intake    fileIntake
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	publisher Publisher
	logger    zerolog.Logger
}

// NewResourceService builds the resource service. A nil storage rejects uploads with ErrStorageUnavailable.
func NewResourceService(resources repository.ResourceRepository, classes repository.ClassRepository, users repository.UserRepository, storage FileStorage, maxUploadBytes int64, validate *validator.Validate, publisher Publisher, logger zerolog.Logger) ResourceService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultUploadMaxBytes
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &resourceService{
		resources: resources,
		access:    classAccess{classes: classes, users: users},
		intake: fileIntake{
			storage: storage,
			maxSize: maxUploadBytes,
			tracer:  otel.Tracer("github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service/resource"),
		},
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		publisher: publisher,
		logger:    logger.With().Str("component", "resource_service").Logger(),
	}
}

func (s *resourceService) Upload(ctx context.Context, actor Actor, classID uint, payload dto.ResourceUploadRequest, file *multipart.FileHeader) (dto.ResourceResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ResourceResponse{}, err
	}

	class, err := s.access.load(ctx, classID)
	if err != nil {
		return dto.ResourceResponse{}, err
	}
	if err := s.canUpload(ctx, actor, class); err != nil {
		return dto.ResourceResponse{}, err
	}

	stored, err := s.intake.store(ctx, fmt.Sprintf("classes/%d", classID), file)
	if err != nil {
		s.logger.Warn().Err(err).Uint("class_id", classID).Uint("uploader_id", actor.ID).Msg("resource upload rejected")
		return dto.ResourceResponse{}, err
	}

	resource := models.Resource{
		ClassID:     classID,
		UploaderID:  actor.ID,
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		FileName:    stored.Name,
		URL:         stored.URL,
		StorageKey:  stored.Key,
		MimeType:    stored.MimeType,
		SizeBytes:   stored.SizeBytes,
	}
	if err := s.resources.Create(ctx, &resource); err != nil {
		s.removeStored(ctx, stored.Key)
		return dto.ResourceResponse{}, err
	}

	if err := s.publisher.Publish(ctx, ClassChannel(classID), EventResourceAdded, map[string]interface{}{
		"resource_id": resource.ID,
		"title":       resource.Title,
		"mime_type":   resource.MimeType,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("resource_id", resource.ID).Msg("failed to publish resource event")
	}

	s.logger.Info().
		Uint("resource_id", resource.ID).
		Uint("class_id", classID).
		Str("mime", resource.MimeType).
		Int64("size", resource.SizeBytes).
		Msg("resource stored")
	return dto.NewResourceResponse(resource), nil
}

func (s *resourceService) List(ctx context.Context, actor Actor, classID uint) ([]dto.ResourceResponse, error) {
	if _, err := s.access.requireView(ctx, actor, classID); err != nil {
		return nil, err
	}
	resources, err := s.resources.ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	return dto.NewResourceResponseSlice(resources), nil
}

func (s *resourceService) Delete(ctx context.Context, actor Actor, id uint) error {
	resource, err := s.resources.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResourceNotFound
		}
		return err
	}

	if resource.UploaderID != actor.ID {
		if _, err := s.access.requireManage(ctx, actor, resource.ClassID); err != nil {
			return err
		}
	}

	if err := s.resources.Delete(ctx, id); err != nil {
		return err
	}
	s.removeStored(ctx, resource.StorageKey)
	s.logger.Info().Uint("resource_id", id).Uint("actor_id", actor.ID).Msg("resource deleted")
	return nil
}

// canUpload allows class managers, and members when the class accepts student uploads.
func (s *resourceService) canUpload(ctx context.Context, actor Actor, class models.Class) error {
	if s.access.canManage(actor, class) {
		return nil
	}
	if !actor.IsStudent() || !class.AllowStudentUploads {
		return ErrForbidden
	}
	member, err := s.access.classes.IsMember(ctx, class.ID, actor.ID)
	if err != nil {
		return err
	}
	if !member {
		return ErrForbidden
	}
	return nil
}

func (s *resourceService) removeStored(ctx context.Context, key string) {
	if key == "" || s.intake.storage == nil {
		return
	}
	if err := s.intake.storage.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("storage_key", key).Msg("failed to delete stored file")
	}
}
