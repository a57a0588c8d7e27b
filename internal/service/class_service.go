package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
)

const joinCodeAttempts = 5

var (
	// ErrJoinCodeNotFound indicates no class uses the code.
	ErrJoinCodeNotFound = errors.New("no class matches the join code")
	// ErrNotClassMember indicates the student is not enrolled.
	ErrNotClassMember = errors.New("student is not a member of the class")
)

// ClassService manages classes and their enrolment.
type ClassService interface {
	Create(ctx context.Context, actor Actor, payload dto.ClassCreateRequest) (dto.ClassResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.ClassUpdateRequest) (dto.ClassResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Get(ctx context.Context, actor Actor, id uint) (dto.ClassResponse, error)
	List(ctx context.Context, actor Actor) ([]dto.ClassResponse, error)
	RegenerateCode(ctx context.Context, actor Actor, id uint) (dto.ClassResponse, error)
	Join(ctx context.Context, actor Actor, payload dto.JoinClassRequest) (dto.ClassResponse, error)
	Leave(ctx context.Context, actor Actor, id uint) error
	Members(ctx context.Context, actor Actor, id uint) ([]dto.ClassMemberResponse, error)
	RemoveMember(ctx context.Context, actor Actor, id, studentID uint) error
}

type classService struct {
	classes    repository.ClassRepository
	access     classAccess
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	publisher  Publisher
	dashboards DashboardInvalidator
	rankings   LeaderboardRebuilder
	logger     zerolog.Logger
	newCode    func() string
}

// NewClassService builds the class service. publisher, dashboards and rankings may be nil.
func NewClassService(classes repository.ClassRepository, users repository.UserRepository, validate *validator.Validate, publisher Publisher, dashboards DashboardInvalidator, rankings LeaderboardRebuilder, logger zerolog.Logger) ClassService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if dashboards == nil {
		dashboards = noopInvalidator{}
	}
	if rankings == nil {
		rankings = noopRebuilder{}
	}
	return &classService{
		classes:    classes,
		access:     classAccess{classes: classes, users: users},
		validator:  validate,
		sanitizer:  bluemonday.StrictPolicy(),
		publisher:  publisher,
		dashboards: dashboards,
		rankings:   rankings,
		logger:     logger.With().Str("component", "class_service").Logger(),
		newCode:    randomJoinCode,
	}
}

func (s *classService) Create(ctx context.Context, actor Actor, payload dto.ClassCreateRequest) (dto.ClassResponse, error) {
	if !actor.IsTeacher() {
		return dto.ClassResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassResponse{}, err
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return dto.ClassResponse{}, err
	}

	class := models.Class{
		Name:                s.clean(payload.Name),
		Section:             s.clean(payload.Section),
		Description:         s.clean(payload.Description),
		TeacherID:           actor.ID,
		JoinCode:            code,
		AllowStudentUploads: payload.AllowStudentUploads,
	}
	if err := s.classes.Create(ctx, &class); err != nil {
		return dto.ClassResponse{}, err
	}

	s.dashboards.Invalidate(ctx, actor.ID)
	s.logger.Info().Uint("class_id", class.ID).Uint("teacher_id", actor.ID).Msg("class created")
	return dto.NewClassResponse(class, true, 0), nil
}

func (s *classService) Update(ctx context.Context, actor Actor, id uint, payload dto.ClassUpdateRequest) (dto.ClassResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassResponse{}, err
	}

	class, err := s.access.requireManage(ctx, actor, id)
	if err != nil {
		return dto.ClassResponse{}, err
	}

	if payload.Name != nil {
		class.Name = s.clean(*payload.Name)
	}
	if payload.Section != nil {
		class.Section = s.clean(*payload.Section)
	}
	if payload.Description != nil {
		class.Description = s.clean(*payload.Description)
	}
	if payload.AllowStudentUploads != nil {
		class.AllowStudentUploads = *payload.AllowStudentUploads
	}

	if err := s.classes.Update(ctx, &class); err != nil {
		return dto.ClassResponse{}, err
	}
	return s.respond(ctx, class, true)
}

func (s *classService) Delete(ctx context.Context, actor Actor, id uint) error {
	class, err := s.access.requireManage(ctx, actor, id)
	if err != nil {
		return err
	}

	members, err := s.classes.ListMembers(ctx, id)
	if err != nil {
		return err
	}

	if err := s.classes.Delete(ctx, id); err != nil {
		return err
	}

	affected := []uint{class.TeacherID}
	for _, member := range members {
		affected = append(affected, member.StudentID)
	}
	s.dashboards.Invalidate(ctx, affected...)
	s.logger.Info().Uint("class_id", id).Uint("actor_id", actor.ID).Msg("class deleted")
	return nil
}

func (s *classService) Get(ctx context.Context, actor Actor, id uint) (dto.ClassResponse, error) {
	class, err := s.access.requireView(ctx, actor, id)
	if err != nil {
		return dto.ClassResponse{}, err
	}
	return s.respond(ctx, class, s.access.canManage(actor, class))
}

func (s *classService) List(ctx context.Context, actor Actor) ([]dto.ClassResponse, error) {
	classes, err := s.access.visibleClasses(ctx, actor)
	if err != nil {
		return nil, err
	}

	counts, err := s.classes.CountMembers(ctx, classIDs(classes))
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ClassResponse, 0, len(classes))
	for _, class := range classes {
		responses = append(responses, dto.NewClassResponse(class, s.access.canManage(actor, class), counts[class.ID]))
	}
	return responses, nil
}

func (s *classService) RegenerateCode(ctx context.Context, actor Actor, id uint) (dto.ClassResponse, error) {
	class, err := s.access.requireManage(ctx, actor, id)
	if err != nil {
		return dto.ClassResponse{}, err
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return dto.ClassResponse{}, err
	}
	class.JoinCode = code

	if err := s.classes.Update(ctx, &class); err != nil {
		return dto.ClassResponse{}, err
	}
	return s.respond(ctx, class, true)
}

func (s *classService) Join(ctx context.Context, actor Actor, payload dto.JoinClassRequest) (dto.ClassResponse, error) {
	if !actor.IsStudent() {
		return dto.ClassResponse{}, ErrForbidden
	}

	payload.Code = strings.ToUpper(strings.TrimSpace(payload.Code))
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassResponse{}, err
	}

	class, err := s.classes.GetByJoinCode(ctx, payload.Code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassResponse{}, ErrJoinCodeNotFound
		}
		return dto.ClassResponse{}, err
	}

	created, err := s.classes.AddMember(ctx, class.ID, actor.ID)
	if err != nil {
		return dto.ClassResponse{}, err
	}

	if created {
		s.dashboards.Invalidate(ctx, actor.ID, class.TeacherID)
		s.rebuildRanking(ctx, class.ID)
		if err := s.publisher.Publish(ctx, ClassChannel(class.ID), EventClassMemberJoined, map[string]uint{"student_id": actor.ID}); err != nil {
			s.logger.Warn().Err(err).Uint("class_id", class.ID).Msg("failed to publish join event")
		}
		s.logger.Info().Uint("class_id", class.ID).Uint("student_id", actor.ID).Msg("student joined class")
	}

	return s.respond(ctx, class, false)
}

func (s *classService) Leave(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsStudent() {
		return ErrForbidden
	}
	class, err := s.access.load(ctx, id)
	if err != nil {
		return err
	}
	return s.removeMember(ctx, class, actor.ID)
}

func (s *classService) Members(ctx context.Context, actor Actor, id uint) ([]dto.ClassMemberResponse, error) {
	if _, err := s.access.requireManage(ctx, actor, id); err != nil {
		return nil, err
	}
	members, err := s.classes.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewClassMemberResponseSlice(members), nil
}

func (s *classService) RemoveMember(ctx context.Context, actor Actor, id, studentID uint) error {
	class, err := s.access.requireManage(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.removeMember(ctx, class, studentID)
}

func (s *classService) removeMember(ctx context.Context, class models.Class, studentID uint) error {
	if err := s.classes.RemoveMember(ctx, class.ID, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotClassMember
		}
		return err
	}

	s.dashboards.Invalidate(ctx, studentID, class.TeacherID)
	s.rebuildRanking(ctx, class.ID)
	if err := s.publisher.Publish(ctx, ClassChannel(class.ID), EventClassMemberLeft, map[string]uint{"student_id": studentID}); err != nil {
		s.logger.Warn().Err(err).Uint("class_id", class.ID).Msg("failed to publish leave event")
	}
	return nil
}

func (s *classService) rebuildRanking(ctx context.Context, classID uint) {
	if err := s.rankings.Rebuild(ctx, classID); err != nil {
		s.logger.Warn().Err(err).Uint("class_id", classID).Msg("failed to rebuild leaderboard")
	}
}

func (s *classService) respond(ctx context.Context, class models.Class, withCode bool) (dto.ClassResponse, error) {
	counts, err := s.classes.CountMembers(ctx, []uint{class.ID})
	if err != nil {
		return dto.ClassResponse{}, err
	}
	return dto.NewClassResponse(class, withCode, counts[class.ID]), nil
}

func (s *classService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code := s.newCode()
		_, err := s.classes.GetByJoinCode(ctx, code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not allocate a unique join code after %d attempts", joinCodeAttempts)
}

func (s *classService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func randomJoinCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:6])
}
