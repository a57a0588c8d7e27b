package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/cache"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/dto"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/observability"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
)

const (
	dashboardCacheNamespace = "dashboard"
	coordinatorDashboardKey = "dashboard:coordinator"
	upcomingLimit           = 10
	recentResultsLimit      = 5
	needsGradingLimit       = 20
	recentSubmissionsLimit  = 10
)

// DashboardRepositories groups the read models the dashboards aggregate.
type DashboardRepositories struct {
	Users       repository.UserRepository
	Classes     repository.ClassRepository
	Assessments repository.AssessmentRepository
	Submissions repository.SubmissionRepository
	Decks       repository.DeckRepository
}

// DashboardService builds the role specific landing summaries.
type DashboardService interface {
	DashboardInvalidator
	ForActor(ctx context.Context, actor Actor) (interface{}, error)
	Student(ctx context.Context, actor Actor, studentID uint) (dto.StudentDashboardResponse, error)
	Teacher(ctx context.Context, actor Actor) (dto.TeacherDashboardResponse, error)
	Coordinator(ctx context.Context, actor Actor) (dto.CoordinatorDashboardResponse, error)
	Parent(ctx context.Context, actor Actor) (dto.ParentDashboardResponse, error)
}

type dashboardService struct {
	repos  DashboardRepositories
	cache  cache.Store
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewDashboardService builds the dashboard aggregator. A nil store disables caching.
func NewDashboardService(repos DashboardRepositories, store cache.Store, ttl time.Duration, logger zerolog.Logger) DashboardService {
	return &dashboardService{
		repos:  repos,
		cache:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "dashboard_service").Logger(),
		now:    time.Now,
	}
}

func studentDashboardKey(id uint) string { return fmt.Sprintf("dashboard:student:%d", id) }

func teacherDashboardKey(id uint) string { return fmt.Sprintf("dashboard:teacher:%d", id) }

func (s *dashboardService) ForActor(ctx context.Context, actor Actor) (interface{}, error) {
	switch {
	case actor.IsStudent():
		return s.Student(ctx, actor, actor.ID)
	case actor.IsTeacher():
		return s.Teacher(ctx, actor)
	case actor.IsCoordinator():
		return s.Coordinator(ctx, actor)
	case actor.IsParent():
		return s.Parent(ctx, actor)
	default:
		return nil, ErrForbidden
	}
}

func (s *dashboardService) Student(ctx context.Context, actor Actor, studentID uint) (dto.StudentDashboardResponse, error) {
	student, err := s.repos.Users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentDashboardResponse{}, ErrUserNotFound
		}
		return dto.StudentDashboardResponse{}, err
	}
	if student.Role != models.RoleStudent {
		return dto.StudentDashboardResponse{}, ErrUserNotFound
	}

	allowed := actor.IsCoordinator() ||
		(actor.IsStudent() && actor.ID == studentID) ||
		(actor.IsParent() && student.ParentID != nil && *student.ParentID == actor.ID)
	if !allowed {
		return dto.StudentDashboardResponse{}, ErrForbidden
	}

	return cached(ctx, s, studentDashboardKey(studentID), func() (dto.StudentDashboardResponse, error) {
		return s.buildStudent(ctx, student)
	})
}

func (s *dashboardService) Teacher(ctx context.Context, actor Actor) (dto.TeacherDashboardResponse, error) {
	if !actor.IsTeacher() {
		return dto.TeacherDashboardResponse{}, ErrForbidden
	}
	return cached(ctx, s, teacherDashboardKey(actor.ID), func() (dto.TeacherDashboardResponse, error) {
		return s.buildTeacher(ctx, actor.ID)
	})
}

func (s *dashboardService) Coordinator(ctx context.Context, actor Actor) (dto.CoordinatorDashboardResponse, error) {
	if !actor.IsCoordinator() {
		return dto.CoordinatorDashboardResponse{}, ErrForbidden
	}
	return cached(ctx, s, coordinatorDashboardKey, func() (dto.CoordinatorDashboardResponse, error) {
		return s.buildCoordinator(ctx)
	})
}

func (s *dashboardService) Parent(ctx context.Context, actor Actor) (dto.ParentDashboardResponse, error) {
	if !actor.IsParent() {
		return dto.ParentDashboardResponse{}, ErrForbidden
	}

	children, err := s.repos.Users.ListChildren(ctx, actor.ID)
	if err != nil {
		return dto.ParentDashboardResponse{}, err
	}

	response := dto.ParentDashboardResponse{Children: make([]dto.StudentDashboardResponse, 0, len(children))}
	for _, child := range children {
		dashboard, err := s.Student(ctx, actor, child.ID)
		if err != nil {
			return dto.ParentDashboardResponse{}, err
		}
		response.Children = append(response.Children, dashboard)
	}
	return response, nil
}

// Invalidate drops the cached dashboards of the given users and the coordinator summary.
func (s *dashboardService) Invalidate(ctx context.Context, userIDs ...uint) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(userIDs)*2+1)
	for _, id := range userIDs {
		keys = append(keys, studentDashboardKey(id), teacherDashboardKey(id))
	}
	keys = append(keys, coordinatorDashboardKey)
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Int("keys", len(keys)).Msg("failed to invalidate dashboards")
	}
}

// cached serves key from the store or builds and stores it.
func cached[T any](ctx context.Context, s *dashboardService, key string, build func() (T, error)) (T, error) {
	if s.cache != nil {
		var hit T
		err := s.cache.Get(ctx, key, &hit)
		switch {
		case err == nil:
			observability.CacheLookups().WithLabelValues(dashboardCacheNamespace, "hit").Inc()
			return hit, nil
		case errors.Is(err, cache.ErrMiss):
			observability.CacheLookups().WithLabelValues(dashboardCacheNamespace, "miss").Inc()
		default:
			observability.CacheLookups().WithLabelValues(dashboardCacheNamespace, "error").Inc()
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read dashboard cache")
		}
	}

	value, err := build()
	if err != nil {
		return value, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to store dashboard cache")
		}
	}
	return value, nil
}

func (s *dashboardService) buildStudent(ctx context.Context, student models.User) (dto.StudentDashboardResponse, error) {
	now := s.now()

	classes, err := s.repos.Classes.ListByStudent(ctx, student.ID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	classResponses, err := s.classResponses(ctx, classes)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	classNames := make(map[uint]string, len(classes))
	for _, class := range classes {
		classNames[class.ID] = class.Name
	}

	assessments, err := s.repos.Assessments.List(ctx, repository.AssessmentFilter{
		ClassIDs:      classIDs(classes),
		PublishedOnly: true,
		DueAfter:      &now,
	})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	studentID := student.ID
	submissions, err := s.repos.Submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID})
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	byAssessment := make(map[uint]models.Submission, len(submissions))
	for _, submission := range submissions {
		byAssessment[submission.AssessmentID] = submission
	}

	upcoming := make([]dto.UpcomingAssessment, 0)
	for _, assessment := range assessments {
		submission, started := byAssessment[assessment.ID]
		if started && submission.IsSubmitted() {
			continue
		}
		upcoming = append(upcoming, dto.UpcomingAssessment{
			AssessmentID: assessment.ID,
			ClassID:      assessment.ClassID,
			ClassName:    classNames[assessment.ClassID],
			Title:        assessment.Title,
			Kind:         assessment.Kind,
			DueDate:      assessment.DueDate,
			Started:      started,
		})
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		a, b := upcoming[i].DueDate, upcoming[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	if len(upcoming) > upcomingLimit {
		upcoming = upcoming[:upcomingLimit]
	}

	graded := make([]models.Submission, 0)
	for _, submission := range submissions {
		if submission.IsGraded() {
			graded = append(graded, submission)
		}
	}
	sort.SliceStable(graded, func(i, j int) bool {
		return gradedAt(graded[i]).After(gradedAt(graded[j]))
	})

	var total float64
	for _, submission := range graded {
		total += submission.Percentage()
	}
	average := 0.0
	if len(graded) > 0 {
		average = total / float64(len(graded))
	}

	recent := make([]dto.RecentResult, 0, recentResultsLimit)
	for _, submission := range graded {
		if len(recent) == recentResultsLimit {
			break
		}
		recent = append(recent, dto.RecentResult{
			SubmissionID: submission.ID,
			AssessmentID: submission.AssessmentID,
			Title:        submission.Assessment.Title,
			Score:        submission.Score,
			MaxScore:     submission.MaxScore,
			Percentage:   submission.Percentage(),
			GradedAt:     submission.GradedAt,
		})
	}

	due, err := s.repos.Decks.CountDueCards(ctx, student.ID, now)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	return dto.StudentDashboardResponse{
		StudentID:         student.ID,
		Name:              student.Name,
		Classes:           classResponses,
		Upcoming:          upcoming,
		RecentResults:     recent,
		AveragePercentage: average,
		CardsDue:          due,
		GeneratedAt:       now,
	}, nil
}

func (s *dashboardService) buildTeacher(ctx context.Context, teacherID uint) (dto.TeacherDashboardResponse, error) {
	classes, err := s.repos.Classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}
	classResponses, err := s.classResponses(ctx, classes)
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	ids := classIDs(classes)
	pending, err := s.repos.Submissions.List(ctx, repository.SubmissionFilter{
		ClassIDs: ids,
		Statuses: []string{models.SubmissionStatusNeedsGrading},
		Limit:    needsGradingLimit,
	})
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}
	recent, err := s.repos.Submissions.List(ctx, repository.SubmissionFilter{
		ClassIDs: ids,
		Statuses: []string{models.SubmissionStatusNeedsGrading, models.SubmissionStatusGraded},
		Limit:    recentSubmissionsLimit,
	})
	if err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	return dto.TeacherDashboardResponse{
		Classes:           classResponses,
		NeedsGrading:      summarise(pending),
		RecentSubmissions: summarise(recent),
		GeneratedAt:       s.now(),
	}, nil
}

func (s *dashboardService) buildCoordinator(ctx context.Context) (dto.CoordinatorDashboardResponse, error) {
	counts, err := s.repos.Users.CountByRole(ctx)
	if err != nil {
		return dto.CoordinatorDashboardResponse{}, err
	}
	classes, err := s.repos.Classes.ListAll(ctx)
	if err != nil {
		return dto.CoordinatorDashboardResponse{}, err
	}
	assessments, err := s.repos.Assessments.Count(ctx)
	if err != nil {
		return dto.CoordinatorDashboardResponse{}, err
	}
	averages, err := s.repos.Submissions.ClassAverages(ctx)
	if err != nil {
		return dto.CoordinatorDashboardResponse{}, err
	}

	names := make(map[uint]string, len(classes))
	for _, class := range classes {
		names[class.ID] = class.Name
	}
	entries := make([]dto.ClassAverageEntry, 0, len(averages))
	for _, row := range averages {
		entries = append(entries, dto.ClassAverageEntry{
			ClassID:   row.ClassID,
			ClassName: names[row.ClassID],
			Average:   row.Average,
			Graded:    row.Graded,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ClassID < entries[j].ClassID })

	for _, role := range []string{models.RoleStudent, models.RoleTeacher, models.RoleCoordinator, models.RoleParent} {
		if _, ok := counts[role]; !ok {
			counts[role] = 0
		}
	}

	return dto.CoordinatorDashboardResponse{
		UsersByRole:   counts,
		Classes:       len(classes),
		Assessments:   assessments,
		ClassAverages: entries,
		GeneratedAt:   s.now(),
	}, nil
}

func (s *dashboardService) classResponses(ctx context.Context, classes []models.Class) ([]dto.ClassResponse, error) {
	counts, err := s.repos.Classes.CountMembers(ctx, classIDs(classes))
	if err != nil {
		return nil, err
	}
	responses := make([]dto.ClassResponse, 0, len(classes))
	for _, class := range classes {
		responses = append(responses, dto.NewClassResponse(class, false, counts[class.ID]))
	}
	return responses, nil
}

func summarise(submissions []models.Submission) []dto.SubmissionSummary {
	summaries := make([]dto.SubmissionSummary, 0, len(submissions))
	for _, submission := range submissions {
		summaries = append(summaries, dto.SubmissionSummary{
			SubmissionID:    submission.ID,
			AssessmentID:    submission.AssessmentID,
			AssessmentTitle: submission.Assessment.Title,
			StudentID:       submission.StudentID,
			StudentName:     submission.Student.Name,
			Status:          submission.Status,
			Score:           submission.Score,
			MaxScore:        submission.MaxScore,
			SubmittedAt:     submission.SubmittedAt,
		})
	}
	return summaries
}

func gradedAt(submission models.Submission) time.Time {
	if submission.GradedAt != nil {
		return *submission.GradedAt
	}
	return submission.UpdatedAt
}
