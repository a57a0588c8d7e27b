package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
)

// DefaultLiveAwayAfter marks silent participants away when no threshold is configured.
const DefaultLiveAwayAfter = 30 * time.Second

var (
	// ErrLiveNotActive indicates no live session is running for the assessment.
	ErrLiveNotActive = errors.New("live session is not active")
	// ErrQuestionOutOfRange indicates Advance targeted a missing question.
	ErrQuestionOutOfRange = errors.New("question index out of range")
	// ErrNotJoined indicates the student reported before joining.
	ErrNotJoined = errors.New("student has not joined the live session")
	// ErrAssessmentUnpublished indicates a live session was started for a hidden assessment.
	ErrAssessmentUnpublished = errors.New("assessment must be published first")
)

// LiveSessionService runs teacher-paced sessions over an assessment.
type LiveSessionService interface {
	Start(ctx context.Context, actor Actor, assessmentID uint) (dto.LiveStateResponse, error)
	Advance(ctx context.Context, actor Actor, assessmentID uint, payload dto.LiveAdvanceRequest) (dto.LiveStateResponse, error)
	End(ctx context.Context, actor Actor, assessmentID uint) (dto.LiveStateResponse, error)
	Join(ctx context.Context, actor Actor, assessmentID uint) (dto.LiveStateResponse, error)
	Report(ctx context.Context, actor Actor, assessmentID uint, payload dto.LiveReportRequest) (dto.LiveStateResponse, error)
	State(ctx context.Context, actor Actor, assessmentID uint) (dto.LiveStateResponse, error)
}

type liveSessionService struct {
	assessments repository.AssessmentRepository
	users       repository.UserRepository
	access      classAccess
	validator   *validator.Validate
	publisher   Publisher
	awayAfter   time.Duration
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewLiveSessionService builds the live session service.
func NewLiveSessionService(assessments repository.AssessmentRepository, classes repository.ClassRepository, users repository.UserRepository, validate *validator.Validate, publisher Publisher, awayAfter time.Duration, logger zerolog.Logger) LiveSessionService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if awayAfter <= 0 {
		awayAfter = DefaultLiveAwayAfter
	}
	return &liveSessionService{
		assessments: assessments,
		users:       users,
		access:      classAccess{classes: classes, users: users},
		validator:   validate,
		publisher:   publisher,
		awayAfter:   awayAfter,
		tracer:      otel.Tracer("github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service/live"),
		logger:      logger.With().Str("component", "live_session_service").Logger(),
		now:         time.Now,
	}
}

func (s *liveSessionService) Start(ctx context.Context, actor Actor, assessmentID uint) (dto.LiveStateResponse, error) {
	if err := s.requireManage(ctx, actor, assessmentID); err != nil {
		return dto.LiveStateResponse{}, err
	}

	now := s.now()
	assessment, err := s.mutate(ctx, "live.start", assessmentID, func(assessment *models.Assessment, session *models.LiveSession) error {
		if !assessment.Published {
			return ErrAssessmentUnpublished
		}
		*session = models.LiveSession{
			Active:       true,
			StartedAt:    &now,
			Joined:       []uint{},
			Participants: map[string]models.LiveParticipant{},
		}
		return nil
	})
	if err != nil {
		return dto.LiveStateResponse{}, err
	}

	payload := map[string]interface{}{"assessment_id": assessmentID, "title": assessment.Title}
	s.publish(ctx, AssessmentChannel(assessmentID), EventLiveStarted, payload)
	s.publish(ctx, ClassChannel(assessment.ClassID), EventLiveStarted, payload)

	s.logger.Info().Uint("assessment_id", assessmentID).Uint("teacher_id", actor.ID).Msg("live session started")
	return s.state(ctx, assessment)
}

func (s *liveSessionService) Advance(ctx context.Context, actor Actor, assessmentID uint, payload dto.LiveAdvanceRequest) (dto.LiveStateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LiveStateResponse{}, err
	}
	if err := s.requireManage(ctx, actor, assessmentID); err != nil {
		return dto.LiveStateResponse{}, err
	}

	assessment, err := s.mutate(ctx, "live.advance", assessmentID, func(assessment *models.Assessment, session *models.LiveSession) error {
		if !session.Active {
			return ErrLiveNotActive
		}
		if payload.Index < 0 || payload.Index >= len(assessment.Questions) {
			return ErrQuestionOutOfRange
		}
		session.CurrentQuestion = payload.Index
		return nil
	})
	if err != nil {
		return dto.LiveStateResponse{}, err
	}

	s.publish(ctx, AssessmentChannel(assessmentID), EventLiveQuestionAdvanced, map[string]int{"index": payload.Index})
	return s.state(ctx, assessment)
}

func (s *liveSessionService) End(ctx context.Context, actor Actor, assessmentID uint) (dto.LiveStateResponse, error) {
	if err := s.requireManage(ctx, actor, assessmentID); err != nil {
		return dto.LiveStateResponse{}, err
	}

	now := s.now()
	assessment, err := s.mutate(ctx, "live.end", assessmentID, func(_ *models.Assessment, session *models.LiveSession) error {
		if !session.Active {
			return ErrLiveNotActive
		}
		session.Active = false
		session.EndedAt = &now
		return nil
	})
	if err != nil {
		return dto.LiveStateResponse{}, err
	}

	s.publish(ctx, AssessmentChannel(assessmentID), EventLiveEnded, map[string]uint{"assessment_id": assessmentID})
	s.logger.Info().Uint("assessment_id", assessmentID).Int("participants", len(assessment.LiveSession.Data().Joined)).Msg("live session ended")
	return s.state(ctx, assessment)
}

func (s *liveSessionService) Join(ctx context.Context, actor Actor, assessmentID uint) (dto.LiveStateResponse, error) {
	if err := s.requireStudent(ctx, actor, assessmentID); err != nil {
		return dto.LiveStateResponse{}, err
	}

	now := s.now()
	var participant models.LiveParticipant
	assessment, err := s.mutate(ctx, "live.join", assessmentID, func(_ *models.Assessment, session *models.LiveSession) error {
		if !session.Active {
			return ErrLiveNotActive
		}
		current, ok := session.Participant(actor.ID)
		if !ok {
			current = models.LiveParticipant{JoinedAt: now}
		}
		if !session.HasJoined(actor.ID) {
			session.Joined = append(session.Joined, actor.ID)
		}
		if current.Status != models.LiveStatusSubmitted {
			current.Status = models.LiveStatusActive
		}
		current.LastSeen = now
		session.SetParticipant(actor.ID, current)
		participant = current
		return nil
	})
	if err != nil {
		return dto.LiveStateResponse{}, err
	}

	s.publishParticipant(ctx, assessmentID, actor.ID, participant)
	return s.state(ctx, assessment)
}

func (s *liveSessionService) Report(ctx context.Context, actor Actor, assessmentID uint, payload dto.LiveReportRequest) (dto.LiveStateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LiveStateResponse{}, err
	}
	if err := s.requireStudent(ctx, actor, assessmentID); err != nil {
		return dto.LiveStateResponse{}, err
	}

	now := s.now()
	var participant models.LiveParticipant
	assessment, err := s.mutate(ctx, "live.report", assessmentID, func(_ *models.Assessment, session *models.LiveSession) error {
		if !session.Active {
			return ErrLiveNotActive
		}
		current, ok := session.Participant(actor.ID)
		if !ok || !session.HasJoined(actor.ID) {
			return ErrNotJoined
		}

		if payload.TabSwitch {
			current.TabSwitches++
		}
		if current.Status != models.LiveStatusSubmitted {
			if payload.Status == models.LiveStatusAway && current.Status != models.LiveStatusAway {
				current.AwayCount++
			}
			current.Status = payload.Status
		}
		current.LastSeen = now
		session.SetParticipant(actor.ID, current)
		participant = current
		return nil
	})
	if err != nil {
		return dto.LiveStateResponse{}, err
	}

	s.publishParticipant(ctx, assessmentID, actor.ID, participant)
	return s.state(ctx, assessment)
}

func (s *liveSessionService) State(ctx context.Context, actor Actor, assessmentID uint) (dto.LiveStateResponse, error) {
	assessment, err := loadAssessment(ctx, s.assessments, assessmentID)
	if err != nil {
		return dto.LiveStateResponse{}, err
	}
	class, err := s.access.requireView(ctx, actor, assessment.ClassID)
	if err != nil {
		return dto.LiveStateResponse{}, err
	}
	if !assessment.Published && !s.access.canManage(actor, class) {
		return dto.LiveStateResponse{}, ErrAssessmentNotFound
	}
	return s.state(ctx, assessment)
}

// mutate applies fn under the row lock and maps a missing row to ErrAssessmentNotFound.
func (s *liveSessionService) mutate(ctx context.Context, op string, assessmentID uint, fn func(*models.Assessment, *models.LiveSession) error) (models.Assessment, error) {
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("assessment.id", int64(assessmentID))))
	defer span.End()

	assessment, err := s.assessments.UpdateLiveSession(ctx, assessmentID, fn)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assessment{}, ErrAssessmentNotFound
		}
		span.RecordError(err)
		return models.Assessment{}, err
	}
	return assessment, nil
}

func (s *liveSessionService) requireManage(ctx context.Context, actor Actor, assessmentID uint) error {
	assessment, err := loadAssessment(ctx, s.assessments, assessmentID)
	if err != nil {
		return err
	}
	_, err = s.access.requireManage(ctx, actor, assessment.ClassID)
	return err
}

func (s *liveSessionService) requireStudent(ctx context.Context, actor Actor, assessmentID uint) error {
	if !actor.IsStudent() {
		return ErrForbidden
	}
	assessment, err := loadAssessment(ctx, s.assessments, assessmentID)
	if err != nil {
		return err
	}
	if !assessment.Published {
		return ErrAssessmentNotFound
	}
	member, err := s.access.classes.IsMember(ctx, assessment.ClassID, actor.ID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotClassMember
	}
	return nil
}

func (s *liveSessionService) state(ctx context.Context, assessment models.Assessment) (dto.LiveStateResponse, error) {
	session := assessment.LiveSession.Data()
	now := s.now()

	names := map[uint]string{}
	if len(session.Joined) > 0 {
		users, err := s.users.GetByIDs(ctx, session.Joined)
		if err != nil {
			return dto.LiveStateResponse{}, err
		}
		for _, user := range users {
			names[user.ID] = user.Name
		}
	}

	participants := make([]dto.LiveParticipantResponse, 0, len(session.Joined))
	for _, studentID := range session.Joined {
		participant, ok := session.Participant(studentID)
		if !ok {
			continue
		}
		status := participant.Status
		if status == models.LiveStatusActive && now.Sub(participant.LastSeen) > s.awayAfter {
			status = models.LiveStatusAway
		}
		participants = append(participants, dto.LiveParticipantResponse{
			StudentID:   studentID,
			Name:        names[studentID],
			Status:      status,
			TabSwitches: participant.TabSwitches,
			AwayCount:   participant.AwayCount,
			JoinedAt:    participant.JoinedAt,
			LastSeen:    participant.LastSeen,
		})
	}
	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})

	return dto.LiveStateResponse{
		AssessmentID:    assessment.ID,
		Active:          session.Active,
		StartedAt:       session.StartedAt,
		EndedAt:         session.EndedAt,
		CurrentQuestion: session.CurrentQuestion,
		QuestionCount:   len(assessment.Questions),
		Participants:    participants,
	}, nil
}

func (s *liveSessionService) publishParticipant(ctx context.Context, assessmentID, studentID uint, participant models.LiveParticipant) {
	s.publish(ctx, AssessmentChannel(assessmentID), EventLiveUpdated, map[string]interface{}{
		"student_id":   studentID,
		"status":       participant.Status,
		"tab_switches": participant.TabSwitches,
		"away_count":   participant.AwayCount,
	})
}

func (s *liveSessionService) publish(ctx context.Context, channel, event string, data interface{}) {
	if err := s.publisher.Publish(ctx, channel, event, data); err != nil {
		s.logger.Warn().Err(err).Str("channel", channel).Str("event", event).Msg("failed to publish live event")
	}
}
