package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssessmentID *uint
	StudentID    *uint
	ClassIDs     []uint
	Statuses     []string
	Limit        int
}

// StudentPoints aggregates graded scores for one student.
type StudentPoints struct {
	StudentID uint
	Points    float64
	Graded    int64
}

// ClassAverage aggregates graded percentages for one class.
type ClassAverage struct {
	ClassID uint
	Average float64
	Graded  int64
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAssessmentAndStudent(ctx context.Context, assessmentID, studentID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	ClassPoints(ctx context.Context, classID uint) ([]StudentPoints, error)
	StudentClassPoints(ctx context.Context, classID, studentID uint) (float64, error)
	ClassAverages(ctx context.Context) ([]ClassAverage, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assessment").
		Preload("Student")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssessmentID != nil {
		query = query.Where("submissions.assessment_id = ?", *filter.AssessmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("submissions.student_id = ?", *filter.StudentID)
	}

	if filter.ClassIDs != nil {
		if len(filter.ClassIDs) == 0 {
			return []models.Submission{}, nil
		}
		query = query.
			Joins("JOIN assessments ON assessments.id = submissions.assessment_id").
			Where("assessments.class_id IN ?", filter.ClassIDs)
	}

	if len(filter.Statuses) > 0 {
		query = query.Where("submissions.status IN ?", filter.Statuses)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var submissions []models.Submission
	if err := query.Order("submissions.updated_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssessmentAndStudent(ctx context.Context, assessmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assessment_id = ?", assessmentID).
		Where("student_id = ?", studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(submission).Error
}

func (r *submissionRepository) ClassPoints(ctx context.Context, classID uint) ([]StudentPoints, error) {
	var rows []StudentPoints
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("submissions.student_id AS student_id, SUM(submissions.score) AS points, COUNT(*) AS graded").
		Joins("JOIN assessments ON assessments.id = submissions.assessment_id").
		Where("assessments.class_id = ? AND submissions.status = ?", classID, models.SubmissionStatusGraded).
		Group("submissions.student_id").
		Order("points DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *submissionRepository) StudentClassPoints(ctx context.Context, classID, studentID uint) (float64, error) {
	var points float64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("COALESCE(SUM(submissions.score), 0)").
		Joins("JOIN assessments ON assessments.id = submissions.assessment_id").
		Where("assessments.class_id = ? AND submissions.student_id = ? AND submissions.status = ?", classID, studentID, models.SubmissionStatusGraded).
		Scan(&points).Error
	if err != nil {
		return 0, err
	}
	return points, nil
}

func (r *submissionRepository) ClassAverages(ctx context.Context) ([]ClassAverage, error) {
	var rows []ClassAverage
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("assessments.class_id AS class_id, AVG(CASE WHEN submissions.max_score > 0 THEN submissions.score * 100.0 / submissions.max_score ELSE 0 END) AS average, COUNT(*) AS graded").
		Joins("JOIN assessments ON assessments.id = submissions.assessment_id").
		Where("submissions.status = ?", models.SubmissionStatusGraded).
		Group("assessments.class_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
