package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math/rand"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/grading"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
)

var (
	// ErrAssessmentNotFound indicates the assessment does not exist or is hidden from the actor.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrAssessmentEmpty indicates a quiz or exam was published without questions.
	ErrAssessmentEmpty = errors.New("quizzes and exams need at least one question before publishing")
	// ErrDuplicateQuestionID indicates two questions share an id.
	ErrDuplicateQuestionID = errors.New("question ids must be unique")
)

// AssessmentService manages quizzes, exams and activities.
type AssessmentService interface {
	Create(ctx context.Context, actor Actor, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.AssessmentUpdateRequest) (dto.AssessmentResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	SetPublished(ctx context.Context, actor Actor, id uint, published bool) (dto.AssessmentResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.AssessmentResponse, error)
	List(ctx context.Context, actor Actor, query dto.AssessmentQuery) ([]dto.AssessmentResponse, error)
	AttachFile(ctx context.Context, actor Actor, id uint, file *multipart.FileHeader) (dto.AssessmentResponse, error)
}

type assessmentService struct {
	assessments repository.AssessmentRepository
	classes     repository.ClassRepository
	access      classAccess
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	intake      fileIntake
	publisher   Publisher
	dashboards  DashboardInvalidator
	rankings    LeaderboardRebuilder
	logger      zerolog.Logger
}

// AssessmentServiceConfig carries optional collaborators of the assessment service.
type AssessmentServiceConfig struct {
	Storage        FileStorage
	MaxUploadBytes int64
	Publisher      Publisher
	Dashboards     DashboardInvalidator
	Leaderboards   LeaderboardRebuilder
}

// NewAssessmentService builds the assessment service.
func NewAssessmentService(assessments repository.AssessmentRepository, classes repository.ClassRepository, users repository.UserRepository, validate *validator.Validate, cfg AssessmentServiceConfig, logger zerolog.Logger) AssessmentService {
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	if cfg.Dashboards == nil {
		cfg.Dashboards = noopInvalidator{}
	}
	if cfg.Leaderboards == nil {
		cfg.Leaderboards = noopRebuilder{}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultUploadMaxBytes
	}
	return &assessmentService{
		assessments: assessments,
		classes:     classes,
		access:      classAccess{classes: classes, users: users},
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		intake: fileIntake{
			storage: cfg.Storage,
			maxSize: cfg.MaxUploadBytes,
			tracer:  otel.Tracer("github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service/assessment"),
		},
		publisher:  cfg.Publisher,
		dashboards: cfg.Dashboards,
		rankings:   cfg.Leaderboards,
		logger:     logger.With().Str("component", "assessment_service").Logger(),
	}
}

func (s *assessmentService) Create(ctx context.Context, actor Actor, payload dto.AssessmentCreateRequest) (dto.AssessmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssessmentResponse{}, err
	}
	if _, err := s.access.requireManage(ctx, actor, payload.ClassID); err != nil {
		return dto.AssessmentResponse{}, err
	}

	questions, err := s.buildQuestions(payload.Questions)
	if err != nil {
		return dto.AssessmentResponse{}, err
	}

	assessment := models.Assessment{
		ClassID:          payload.ClassID,
		CreatedBy:        actor.ID,
		Title:            s.clean(payload.Title),
		Description:      s.clean(payload.Description),
		Kind:             payload.Kind,
		Questions:        datatypes.NewJSONSlice(questions),
		TimeLimitMinutes: payload.TimeLimitMinutes,
		DueDate:          payload.DueDate,
		ShuffleQuestions: payload.ShuffleQuestions,
		AttachmentURL:    strings.TrimSpace(payload.AttachmentURL),
		LiveSession:      datatypes.NewJSONType(models.LiveSession{}),
	}
	if err := s.assessments.Create(ctx, &assessment); err != nil {
		return dto.AssessmentResponse{}, err
	}

	s.logger.Info().Uint("assessment_id", assessment.ID).Uint("class_id", assessment.ClassID).Int("questions", len(questions)).Msg("assessment created")
	return dto.NewAssessmentResponse(assessment, assessment.Questions), nil
}

func (s *assessmentService) Update(ctx context.Context, actor Actor, id uint, payload dto.AssessmentUpdateRequest) (dto.AssessmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssessmentResponse{}, err
	}

	assessment, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return dto.AssessmentResponse{}, err
	}

	if payload.Title != nil {
		assessment.Title = s.clean(*payload.Title)
	}
	if payload.Description != nil {
		assessment.Description = s.clean(*payload.Description)
	}
	if payload.Kind != nil {
		assessment.Kind = *payload.Kind
	}
	if payload.Questions != nil {
		questions, err := s.buildQuestions(*payload.Questions)
		if err != nil {
			return dto.AssessmentResponse{}, err
		}
		assessment.Questions = datatypes.NewJSONSlice(questions)
	}
	if payload.TimeLimitMinutes != nil {
		assessment.TimeLimitMinutes = *payload.TimeLimitMinutes
	}
	if payload.ClearDueDate {
		assessment.DueDate = nil
	} else if payload.DueDate != nil {
		assessment.DueDate = payload.DueDate
	}
	if payload.ShuffleQuestions != nil {
		assessment.ShuffleQuestions = *payload.ShuffleQuestions
	}
	if payload.AttachmentURL != nil {
		assessment.AttachmentURL = strings.TrimSpace(*payload.AttachmentURL)
	}

	if assessment.Published && len(assessment.Questions) == 0 && assessment.Kind != models.AssessmentKindActivity {
		return dto.AssessmentResponse{}, ErrAssessmentEmpty
	}

	if err := s.assessments.Update(ctx, &assessment); err != nil {
		return dto.AssessmentResponse{}, err
	}
	if assessment.Published {
		s.invalidateClass(ctx, assessment.ClassID)
	}
	return dto.NewAssessmentResponse(assessment, assessment.Questions), nil
}

func (s *assessmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	assessment, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.assessments.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateClass(ctx, assessment.ClassID)
	if err := s.rankings.Rebuild(ctx, assessment.ClassID); err != nil {
		s.logger.Warn().Err(err).Uint("class_id", assessment.ClassID).Msg("failed to rebuild leaderboard")
	}
	s.logger.Info().Uint("assessment_id", id).Uint("actor_id", actor.ID).Msg("assessment deleted")
	return nil
}

func (s *assessmentService) SetPublished(ctx context.Context, actor Actor, id uint, published bool) (dto.AssessmentResponse, error) {
	assessment, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return dto.AssessmentResponse{}, err
	}
	if published && len(assessment.Questions) == 0 && assessment.Kind != models.AssessmentKindActivity {
		return dto.AssessmentResponse{}, ErrAssessmentEmpty
	}

	changed := assessment.Published != published
	assessment.Published = published
	if changed {
		if err := s.assessments.Update(ctx, &assessment); err != nil {
			return dto.AssessmentResponse{}, err
		}
		s.invalidateClass(ctx, assessment.ClassID)
	}

	if changed && published {
		event := map[string]interface{}{
			"assessment_id": assessment.ID,
			"title":         assessment.Title,
			"kind":          assessment.Kind,
			"due_date":      assessment.DueDate,
		}
		if err := s.publisher.Publish(ctx, ClassChannel(assessment.ClassID), EventAssessmentPublished, event); err != nil {
			s.logger.Warn().Err(err).Uint("assessment_id", assessment.ID).Msg("failed to publish assessment event")
		}
	}

	return dto.NewAssessmentResponse(assessment, assessment.Questions), nil
}

func (s *assessmentService) Get(ctx context.Context, actor Actor, id uint) (dto.AssessmentResponse, error) {
	assessment, class, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return dto.AssessmentResponse{}, err
	}
	return s.present(actor, class, assessment), nil
}

func (s *assessmentService) List(ctx context.Context, actor Actor, query dto.AssessmentQuery) ([]dto.AssessmentResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	classes, err := s.access.visibleClasses(ctx, actor)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Class, len(classes))
	for _, class := range classes {
		byID[class.ID] = class
	}

	filter := repository.AssessmentFilter{
		ClassIDs: classIDs(classes),
		Kind:     query.Kind,
		Search:   query.Search,
	}
	if query.ClassID != 0 {
		if _, ok := byID[query.ClassID]; !ok {
			return nil, ErrForbidden
		}
		filter.ClassIDs = []uint{query.ClassID}
	}

	assessments, err := s.assessments.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssessmentResponse, 0, len(assessments))
	for _, assessment := range assessments {
		class := byID[assessment.ClassID]
		if !s.access.canManage(actor, class) && !assessment.Published {
			continue
		}
		responses = append(responses, s.present(actor, class, assessment))
	}
	return responses, nil
}

func (s *assessmentService) AttachFile(ctx context.Context, actor Actor, id uint, file *multipart.FileHeader) (dto.AssessmentResponse, error) {
	assessment, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return dto.AssessmentResponse{}, err
	}

	stored, err := s.intake.store(ctx, fmt.Sprintf("assessments/%d", assessment.ID), file)
	if err != nil {
		return dto.AssessmentResponse{}, err
	}

	assessment.AttachmentURL = stored.URL
	if err := s.assessments.Update(ctx, &assessment); err != nil {
		return dto.AssessmentResponse{}, err
	}

	s.logger.Info().Uint("assessment_id", assessment.ID).Str("mime", stored.MimeType).Int64("size", stored.SizeBytes).Msg("assessment attachment stored")
	return dto.NewAssessmentResponse(assessment, assessment.Questions), nil
}

// present hides unpublished details and answer keys from readers who do not manage the class.
func (s *assessmentService) present(actor Actor, class models.Class, assessment models.Assessment) dto.AssessmentResponse {
	if s.access.canManage(actor, class) {
		return dto.NewAssessmentResponse(assessment, assessment.Questions)
	}
	questions := grading.StripAnswers(assessment.Questions)
	if assessment.ShuffleQuestions && actor.IsStudent() {
		questions = shuffleFor(questions, assessment.ID, actor.ID)
	}
	return dto.NewAssessmentResponse(assessment, questions)
}

func (s *assessmentService) loadManaged(ctx context.Context, actor Actor, id uint) (models.Assessment, error) {
	assessment, err := loadAssessment(ctx, s.assessments, id)
	if err != nil {
		return models.Assessment{}, err
	}
	if _, err := s.access.requireManage(ctx, actor, assessment.ClassID); err != nil {
		return models.Assessment{}, err
	}
	return assessment, nil
}

func (s *assessmentService) loadVisible(ctx context.Context, actor Actor, id uint) (models.Assessment, models.Class, error) {
	assessment, err := loadAssessment(ctx, s.assessments, id)
	if err != nil {
		return models.Assessment{}, models.Class{}, err
	}
	class, err := s.access.requireView(ctx, actor, assessment.ClassID)
	if err != nil {
		return models.Assessment{}, models.Class{}, err
	}
	if !assessment.Published && !s.access.canManage(actor, class) {
		return models.Assessment{}, models.Class{}, ErrAssessmentNotFound
	}
	return assessment, class, nil
}

func (s *assessmentService) invalidateClass(ctx context.Context, classID uint) {
	members, err := s.classes.ListMembers(ctx, classID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("class_id", classID).Msg("failed to load members for dashboard invalidation")
		return
	}
	ids := make([]uint, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.StudentID)
	}
	s.dashboards.Invalidate(ctx, ids...)
}

func (s *assessmentService) buildQuestions(inputs []dto.QuestionInput) ([]models.Question, error) {
	questions := make([]models.Question, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))

	for _, input := range inputs {
		question := models.Question{
			ID:             strings.TrimSpace(input.ID),
			Type:           input.Type,
			Prompt:         s.clean(input.Prompt),
			Options:        s.plainList(input.Options),
			CorrectAnswers: s.plainList(input.CorrectAnswers),
			Points:         input.Points,
			CaseSensitive:  input.CaseSensitive,
		}
		if question.ID == "" {
			question.ID = uuid.NewString()
		}
		if question.Points <= 0 {
			question.Points = 1
		}
		if _, dup := seen[question.ID]; dup {
			return nil, ErrDuplicateQuestionID
		}
		seen[question.ID] = struct{}{}

		if err := grading.ValidateQuestion(question); err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, nil
}

func (s *assessmentService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

// plainList strips markup from option text but keeps literal characters so
// typed answers still compare equal.
func (s *assessmentService) plainList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		plain := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
		if plain == "" {
			continue
		}
		cleaned = append(cleaned, plain)
	}
	return cleaned
}

func loadAssessment(ctx context.Context, assessments repository.AssessmentRepository, id uint) (models.Assessment, error) {
	assessment, err := assessments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assessment{}, ErrAssessmentNotFound
		}
		return models.Assessment{}, err
	}
	return assessment, nil
}

// shuffleFor returns a per-student question order that stays stable across requests.
func shuffleFor(questions []models.Question, assessmentID, studentID uint) []models.Question {
	shuffled := make([]models.Question, len(questions))
	copy(shuffled, questions)
	rng := rand.New(rand.NewSource(int64(assessmentID)<<32 | int64(studentID)))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}
