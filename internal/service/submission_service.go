package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/grading"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/observability"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
)

// SubmissionGrace is added to a time limit before an attempt counts as expired.
const SubmissionGrace = 30 * time.Second

// Triggers recorded on the grading metric.
const (
	gradeTriggerSubmit  = "submit"
	gradeTriggerExpired = "expired"
	gradeTriggerManual  = "manual"
	gradeTriggerRegrade = "regrade"
)

var (
	// ErrSubmissionNotFound indicates no attempt exists for the actor.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrAlreadySubmitted indicates the attempt was handed in already.
	ErrAlreadySubmitted = errors.New("assessment already submitted")
	// ErrTimeLimitExceeded indicates the time limit elapsed and the attempt was closed.
	ErrTimeLimitExceeded = errors.New("time limit exceeded")
	// ErrAssessmentClosed indicates the due date passed before the attempt started.
	ErrAssessmentClosed = errors.New("assessment is past due")
	// ErrNotSubmitted indicates grading was requested for an attempt still in progress.
	ErrNotSubmitted = errors.New("submission has not been submitted")
)

var errLiveUnchanged = errors.New("live session unchanged")

// SubmissionService runs student attempts and their grading.
type SubmissionService interface {
	Start(ctx context.Context, actor Actor, assessmentID uint) (dto.SubmissionResponse, error)
	SaveAnswers(ctx context.Context, actor Actor, assessmentID uint, payload dto.SaveAnswersRequest) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, actor Actor, assessmentID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error)
	Mine(ctx context.Context, actor Actor, assessmentID uint) (dto.SubmissionResponse, error)
	ListMine(ctx context.Context, actor Actor) ([]dto.SubmissionResponse, error)
	ListByAssessment(ctx context.Context, actor Actor, assessmentID uint) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
	GradeManual(ctx context.Context, actor Actor, id uint, payload dto.GradeManualRequest) (dto.SubmissionResponse, error)
	Regrade(ctx context.Context, actor Actor, assessmentID uint) (dto.RegradeResponse, error)
}

type submissionService struct {
	submissions  repository.SubmissionRepository
	assessments  repository.AssessmentRepository
	classes      repository.ClassRepository
	access       classAccess
	leaderboards LeaderboardService
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	publisher    Publisher
	dashboards   DashboardInvalidator
	tracer       trace.Tracer
	logger       zerolog.Logger
	now          func() time.Time
}

// NewSubmissionService builds the submission service. leaderboards, publisher and dashboards may be nil.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	assessments repository.AssessmentRepository,
	classes repository.ClassRepository,
	users repository.UserRepository,
	leaderboards LeaderboardService,
	validate *validator.Validate,
	publisher Publisher,
	dashboards DashboardInvalidator,
	logger zerolog.Logger,
) SubmissionService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if dashboards == nil {
		dashboards = noopInvalidator{}
	}
	return &submissionService{
		submissions:  submissions,
		assessments:  assessments,
		classes:      classes,
		access:       classAccess{classes: classes, users: users},
		leaderboards: leaderboards,
		validator:    validate,
		sanitizer:    bluemonday.UGCPolicy(),
		publisher:    publisher,
		dashboards:   dashboards,
		tracer:       otel.Tracer("github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service/submission"),
		logger:       logger.With().Str("component", "submission_service").Logger(),
		now:          time.Now,
	}
}

func (s *submissionService) Start(ctx context.Context, actor Actor, assessmentID uint) (dto.SubmissionResponse, error) {
	assessment, err := s.studentAssessment(ctx, actor, assessmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	existing, err := s.submissions.GetByAssessmentAndStudent(ctx, assessmentID, actor.ID)
	if err == nil {
		existing, err = s.expireIfDue(ctx, assessment, existing)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		if existing.IsSubmitted() {
			return dto.SubmissionResponse{}, ErrAlreadySubmitted
		}
		return s.respond(assessment, existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SubmissionResponse{}, err
	}

	now := s.now()
	if assessment.IsPastDue(now) {
		return dto.SubmissionResponse{}, ErrAssessmentClosed
	}

	submission := models.Submission{
		AssessmentID: assessmentID,
		StudentID:    actor.ID,
		Status:       models.SubmissionStatusInProgress,
		Answers:      datatypes.NewJSONType(models.Answers{}),
		ManualPoints: datatypes.NewJSONType(map[string]float64{}),
		MaxScore:     assessment.MaxPoints(),
		StartedAt:    now,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		// A concurrent Start for the same student may have won the unique index.
		if concurrent, lookupErr := s.submissions.GetByAssessmentAndStudent(ctx, assessmentID, actor.ID); lookupErr == nil {
			return s.respond(assessment, concurrent), nil
		}
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("assessment_id", assessmentID).Uint("student_id", actor.ID).Msg("attempt started")
	return s.respond(assessment, submission), nil
}

func (s *submissionService) SaveAnswers(ctx context.Context, actor Actor, assessmentID uint, payload dto.SaveAnswersRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assessment, submission, err := s.openAttempt(ctx, actor, assessmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if s.expired(assessment, submission) {
		if _, err := s.finalize(ctx, assessment, submission, gradeTriggerExpired); err != nil {
			return dto.SubmissionResponse{}, err
		}
		return dto.SubmissionResponse{}, ErrTimeLimitExceeded
	}

	submission.Answers = datatypes.NewJSONType(mergeAnswers(assessment, submission.Answers.Data(), payload.Answers))
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}
	return s.respond(assessment, submission), nil
}

func (s *submissionService) Submit(ctx context.Context, actor Actor, assessmentID uint, payload dto.SubmitRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assessment, submission, err := s.openAttempt(ctx, actor, assessmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	trigger := gradeTriggerSubmit
	if s.expired(assessment, submission) {
		// Answers sent after the deadline are ignored; the autosaved ones are graded.
		trigger = gradeTriggerExpired
	} else if len(payload.Answers) > 0 {
		submission.Answers = datatypes.NewJSONType(mergeAnswers(assessment, submission.Answers.Data(), payload.Answers))
	}

	finalized, err := s.finalize(ctx, assessment, submission, trigger)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return s.respond(assessment, finalized), nil
}

func (s *submissionService) Mine(ctx context.Context, actor Actor, assessmentID uint) (dto.SubmissionResponse, error) {
	if !actor.IsStudent() {
		return dto.SubmissionResponse{}, ErrForbidden
	}
	submission, err := s.submissions.GetByAssessmentAndStudent(ctx, assessmentID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	submission, err = s.expireIfDue(ctx, submission.Assessment, submission)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return s.respond(submission.Assessment, submission), nil
}

func (s *submissionService) ListMine(ctx context.Context, actor Actor) ([]dto.SubmissionResponse, error) {
	if !actor.IsStudent() {
		return nil, ErrForbidden
	}
	studentID := actor.ID
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return nil, err
	}
	return s.respondAll(ctx, submissions)
}

func (s *submissionService) ListByAssessment(ctx context.Context, actor Actor, assessmentID uint) ([]dto.SubmissionResponse, error) {
	assessment, err := loadAssessment(ctx, s.assessments, assessmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.requireManage(ctx, actor, assessment.ClassID); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssessmentID: &assessmentID})
	if err != nil {
		return nil, err
	}
	return s.respondAll(ctx, submissions)
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := s.canRead(ctx, actor, submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err = s.expireIfDue(ctx, submission.Assessment, submission)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return s.respond(submission.Assessment, submission), nil
}

func (s *submissionService) GradeManual(ctx context.Context, actor Actor, id uint, payload dto.GradeManualRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	assessment := submission.Assessment
	class, err := s.access.requireManage(ctx, actor, assessment.ClassID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !submission.IsSubmitted() {
		return dto.SubmissionResponse{}, ErrNotSubmitted
	}

	ctx, span := s.tracer.Start(ctx, "submission.grade_manual", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submission.ID)),
		attribute.Int("grading.awards", len(payload.Points)),
	))
	defer span.End()

	awards := submission.ManualPoints.Data()
	if awards == nil {
		awards = map[string]float64{}
	}
	for questionID, points := range payload.Points {
		awards[questionID] = points
	}

	result := grading.Grade(assessment.Questions, submission.Answers.Data())
	// Pending items the teacher left out are settled at zero.
	for _, outcome := range result.Outcomes {
		if _, ok := awards[outcome.QuestionID]; !ok && outcome.Pending {
			awards[outcome.QuestionID] = 0
		}
	}
	result = grading.ApplyManual(result, assessment.Questions, awards)

	now := s.now()
	graderID := actor.ID
	submission.ManualPoints = datatypes.NewJSONType(awards)
	submission.Outcomes = datatypes.NewJSONSlice(result.Outcomes)
	submission.Score = result.Earned
	submission.MaxScore = result.Max
	submission.Status = models.SubmissionStatusGraded
	submission.GradedAt = &now
	submission.GradedBy = &graderID
	if strings.TrimSpace(payload.Feedback) != "" {
		submission.Feedback = strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	observability.Grading().WithLabelValues(submission.Status, gradeTriggerManual).Inc()
	s.afterGrading(ctx, class, submission, true)
	s.logger.Info().Uint("submission_id", submission.ID).Uint("grader_id", actor.ID).Float64("score", submission.Score).Msg("submission graded manually")
	return s.respond(assessment, submission), nil
}

func (s *submissionService) Regrade(ctx context.Context, actor Actor, assessmentID uint) (dto.RegradeResponse, error) {
	assessment, err := loadAssessment(ctx, s.assessments, assessmentID)
	if err != nil {
		return dto.RegradeResponse{}, err
	}
	class, err := s.access.requireManage(ctx, actor, assessment.ClassID)
	if err != nil {
		return dto.RegradeResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "submission.regrade", trace.WithAttributes(
		attribute.Int64("assessment.id", int64(assessmentID)),
	))
	defer span.End()

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		AssessmentID: &assessmentID,
		Statuses:     []string{models.SubmissionStatusNeedsGrading, models.SubmissionStatusGraded},
	})
	if err != nil {
		return dto.RegradeResponse{}, err
	}

	now := s.now()
	affected := []uint{class.TeacherID}
	for i := range submissions {
		submission := submissions[i]
		result := grading.Grade(assessment.Questions, submission.Answers.Data())
		result = grading.ApplyManual(result, assessment.Questions, submission.ManualPoints.Data())

		submission.Outcomes = datatypes.NewJSONSlice(result.Outcomes)
		submission.Score = result.Earned
		submission.MaxScore = result.Max
		if result.NeedsManual {
			submission.Status = models.SubmissionStatusNeedsGrading
			submission.GradedAt = nil
		} else {
			submission.Status = models.SubmissionStatusGraded
			submission.GradedAt = &now
		}

		if err := s.submissions.Update(ctx, &submission); err != nil {
			span.RecordError(err)
			return dto.RegradeResponse{}, err
		}
		observability.Grading().WithLabelValues(submission.Status, gradeTriggerRegrade).Inc()
		affected = append(affected, submission.StudentID)

		if submission.IsGraded() {
			s.publishGraded(ctx, submission)
		}
	}

	if s.leaderboards != nil {
		if err := s.leaderboards.Rebuild(ctx, class.ID); err != nil {
			s.logger.Warn().Err(err).Uint("class_id", class.ID).Msg("failed to rebuild leaderboard")
		}
	}
	s.dashboards.Invalidate(ctx, affected...)

	span.SetAttributes(attribute.Int("grading.regraded", len(submissions)))
	s.logger.Info().Uint("assessment_id", assessmentID).Int("regraded", len(submissions)).Msg("assessment regraded")
	return dto.RegradeResponse{AssessmentID: assessmentID, Regraded: len(submissions)}, nil
}

// finalize grades an in-progress attempt and hands it in.
func (s *submissionService) finalize(ctx context.Context, assessment models.Assessment, submission models.Submission, trigger string) (models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "submission.finalize", trace.WithAttributes(
		attribute.Int64("assessment.id", int64(assessment.ID)),
		attribute.Int64("submission.id", int64(submission.ID)),
		attribute.String("grading.trigger", trigger),
	))
	defer span.End()

	result := grading.Grade(assessment.Questions, submission.Answers.Data())

	now := s.now()
	submittedAt := now
	if trigger == gradeTriggerExpired {
		// Lazily expired attempts count as handed in when the time ran out.
		if deadline, ok := attemptDeadline(assessment, submission); ok && deadline.Before(now) {
			submittedAt = deadline
		}
	}
	submission.Outcomes = datatypes.NewJSONSlice(result.Outcomes)
	submission.Score = result.Earned
	submission.MaxScore = result.Max
	submission.SubmittedAt = &submittedAt
	submission.Late = assessment.IsPastDue(submittedAt)
	if result.NeedsManual {
		submission.Status = models.SubmissionStatusNeedsGrading
	} else {
		submission.Status = models.SubmissionStatusGraded
		submission.GradedAt = &now
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		return models.Submission{}, err
	}
	observability.Grading().WithLabelValues(submission.Status, trigger).Inc()
	span.SetAttributes(attribute.String("submission.status", submission.Status))

	class, err := s.access.load(ctx, assessment.ClassID)
	if err != nil {
		return models.Submission{}, err
	}

	if err := s.publisher.Publish(ctx, UserChannel(class.TeacherID), EventSubmissionSubmitted, map[string]interface{}{
		"submission_id": submission.ID,
		"assessment_id": assessment.ID,
		"student_id":    submission.StudentID,
		"status":        submission.Status,
		"late":          submission.Late,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to publish submission event")
	}

	s.afterGrading(ctx, class, submission, submission.IsGraded())
	s.markLiveSubmitted(ctx, assessment, submission.StudentID)

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Str("status", submission.Status).
		Str("trigger", trigger).
		Float64("score", submission.Score).
		Bool("late", submission.Late).
		Msg("submission finalized")
	return submission, nil
}

func (s *submissionService) afterGrading(ctx context.Context, class models.Class, submission models.Submission, graded bool) {
	if graded {
		if s.leaderboards != nil {
			if err := s.leaderboards.Refresh(ctx, class.ID, submission.StudentID); err != nil {
				s.logger.Warn().Err(err).Uint("class_id", class.ID).Msg("failed to refresh leaderboard")
			}
		}
		s.publishGraded(ctx, submission)
	}
	s.dashboards.Invalidate(ctx, submission.StudentID, class.TeacherID)
}

func (s *submissionService) publishGraded(ctx context.Context, submission models.Submission) {
	if err := s.publisher.Publish(ctx, UserChannel(submission.StudentID), EventSubmissionGraded, map[string]interface{}{
		"submission_id": submission.ID,
		"assessment_id": submission.AssessmentID,
		"score":         submission.Score,
		"max_score":     submission.MaxScore,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to publish graded event")
	}
}

func (s *submissionService) markLiveSubmitted(ctx context.Context, assessment models.Assessment, studentID uint) {
	if !assessment.LiveSession.Data().Active {
		return
	}
	now := s.now()
	_, err := s.assessments.UpdateLiveSession(ctx, assessment.ID, func(_ *models.Assessment, session *models.LiveSession) error {
		participant, ok := session.Participant(studentID)
		if !session.Active || !ok {
			return errLiveUnchanged
		}
		participant.Status = models.LiveStatusSubmitted
		participant.LastSeen = now
		session.SetParticipant(studentID, participant)
		return nil
	})
	if err != nil {
		if !errors.Is(err, errLiveUnchanged) {
			s.logger.Warn().Err(err).Uint("assessment_id", assessment.ID).Msg("failed to mark live participant submitted")
		}
		return
	}
	if err := s.publisher.Publish(ctx, AssessmentChannel(assessment.ID), EventLiveUpdated, map[string]interface{}{
		"student_id": studentID,
		"status":     models.LiveStatusSubmitted,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("assessment_id", assessment.ID).Msg("failed to publish live update")
	}
}

// studentAssessment loads a published assessment of a class the student attends.
func (s *submissionService) studentAssessment(ctx context.Context, actor Actor, assessmentID uint) (models.Assessment, error) {
	if !actor.IsStudent() {
		return models.Assessment{}, ErrForbidden
	}
	assessment, err := loadAssessment(ctx, s.assessments, assessmentID)
	if err != nil {
		return models.Assessment{}, err
	}
	if !assessment.Published {
		return models.Assessment{}, ErrAssessmentNotFound
	}
	member, err := s.classes.IsMember(ctx, assessment.ClassID, actor.ID)
	if err != nil {
		return models.Assessment{}, err
	}
	if !member {
		return models.Assessment{}, ErrNotClassMember
	}
	return assessment, nil
}

// openAttempt loads the student's in-progress attempt.
func (s *submissionService) openAttempt(ctx context.Context, actor Actor, assessmentID uint) (models.Assessment, models.Submission, error) {
	assessment, err := s.studentAssessment(ctx, actor, assessmentID)
	if err != nil {
		return models.Assessment{}, models.Submission{}, err
	}
	submission, err := s.submissions.GetByAssessmentAndStudent(ctx, assessmentID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assessment{}, models.Submission{}, ErrSubmissionNotFound
		}
		return models.Assessment{}, models.Submission{}, err
	}
	if submission.IsSubmitted() {
		return models.Assessment{}, models.Submission{}, ErrAlreadySubmitted
	}
	return assessment, submission, nil
}

func (s *submissionService) load(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

// canRead allows the student, a linked parent and the class managers.
func (s *submissionService) canRead(ctx context.Context, actor Actor, submission models.Submission) error {
	if actor.IsStudent() {
		if submission.StudentID == actor.ID {
			return nil
		}
		return ErrSubmissionNotFound
	}
	if actor.IsParent() {
		if submission.Student.ParentID != nil && *submission.Student.ParentID == actor.ID {
			return nil
		}
		return ErrForbidden
	}
	_, err := s.access.requireManage(ctx, actor, submission.Assessment.ClassID)
	return err
}

func (s *submissionService) expired(assessment models.Assessment, submission models.Submission) bool {
	deadline, ok := attemptDeadline(assessment, submission)
	return ok && s.now().After(deadline.Add(SubmissionGrace))
}

// expireIfDue closes an in-progress attempt whose time limit has run out.
func (s *submissionService) expireIfDue(ctx context.Context, assessment models.Assessment, submission models.Submission) (models.Submission, error) {
	if submission.IsSubmitted() || !s.expired(assessment, submission) {
		return submission, nil
	}
	return s.finalize(ctx, assessment, submission, gradeTriggerExpired)
}

func (s *submissionService) respondAll(ctx context.Context, submissions []models.Submission) ([]dto.SubmissionResponse, error) {
	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		current, err := s.expireIfDue(ctx, submission.Assessment, submission)
		if err != nil {
			return nil, err
		}
		current.Assessment = submission.Assessment
		current.Student = submission.Student
		responses = append(responses, s.respond(submission.Assessment, current))
	}
	return responses, nil
}

func (s *submissionService) respond(assessment models.Assessment, submission models.Submission) dto.SubmissionResponse {
	if submission.Assessment.ID == 0 {
		submission.Assessment = assessment
	}
	response := dto.NewSubmissionResponse(submission)
	if !submission.IsSubmitted() {
		if deadline, ok := attemptDeadline(assessment, submission); ok {
			response.ExpiresAt = &deadline
		}
	}
	return response
}

func attemptDeadline(assessment models.Assessment, submission models.Submission) (time.Time, bool) {
	if assessment.TimeLimitMinutes <= 0 {
		return time.Time{}, false
	}
	return submission.StartedAt.Add(time.Duration(assessment.TimeLimitMinutes) * time.Minute), true
}

// mergeAnswers overlays incoming answers on the saved ones, ignoring unknown question ids.
func mergeAnswers(assessment models.Assessment, saved models.Answers, incoming map[string][]string) models.Answers {
	merged := make(models.Answers, len(saved)+len(incoming))
	for id, values := range saved {
		merged[id] = values
	}
	for id, values := range incoming {
		if _, ok := assessment.FindQuestion(id); !ok {
			continue
		}
		merged[id] = values
	}
	return merged
}
