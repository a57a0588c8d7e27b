package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
)

// ClassRepository defines persistence operations for classes and rosters.
type ClassRepository interface {
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (models.Class, error)
	GetByJoinCode(ctx context.Context, code string) (models.Class, error)
	ListAll(ctx context.Context) ([]models.Class, error)
	ListByTeacher(ctx context.Context, teacherID uint) ([]models.Class, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.Class, error)
	AddMember(ctx context.Context, classID, studentID uint) (bool, error)
	RemoveMember(ctx context.Context, classID, studentID uint) error
	IsMember(ctx context.Context, classID, studentID uint) (bool, error)
	ListMembers(ctx context.Context, classID uint) ([]models.ClassMember, error)
	CountMembers(ctx context.Context, classIDs []uint) (map[uint]int64, error)
}

type classRepository struct {
	db *gorm.DB
}

// NewClassRepository instantiates a GORM-backed repository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) Create(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *classRepository) Update(ctx context.Context, class *models.Class) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(class).Error
}

func (r *classRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("class_id = ?", id).Delete(&models.ClassMember{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Class{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *classRepository) GetByID(ctx context.Context, id uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return models.Class{}, err
	}
	return class, nil
}

func (r *classRepository) GetByJoinCode(ctx context.Context, code string) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).Where("join_code = ?", code).First(&class).Error; err != nil {
		return models.Class{}, err
	}
	return class, nil
}

func (r *classRepository) ListAll(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *classRepository) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Class, error) {
	var classes []models.Class
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("name ASC").
		Find(&classes).Error
	if err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *classRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Class, error) {
	var classes []models.Class
	err := r.db.WithContext(ctx).
		Joins("JOIN class_members ON class_members.class_id = classes.id").
		Where("class_members.student_id = ?", studentID).
		Order("classes.name ASC").
		Find(&classes).Error
	if err != nil {
		return nil, err
	}
	return classes, nil
}

// AddMember enrols the student and reports whether a new row was created.
func (r *classRepository) AddMember(ctx context.Context, classID, studentID uint) (bool, error) {
	member := models.ClassMember{ClassID: classID, StudentID: studentID, JoinedAt: time.Now().UTC()}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *classRepository) RemoveMember(ctx context.Context, classID, studentID uint) error {
	result := r.db.WithContext(ctx).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Delete(&models.ClassMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *classRepository) IsMember(ctx context.Context, classID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ClassMember{}).
		Where("class_id = ? AND student_id = ?", classID, studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *classRepository) ListMembers(ctx context.Context, classID uint) ([]models.ClassMember, error) {
	var members []models.ClassMember
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("class_id = ?", classID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *classRepository) CountMembers(ctx context.Context, classIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(classIDs))
	if len(classIDs) == 0 {
		return counts, nil
	}

	type row struct {
		ClassID uint
		Total   int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.ClassMember{}).
		Select("class_id, COUNT(*) AS total").
		Where("class_id IN ?", classIDs).
		Group("class_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, item := range rows {
		counts[item.ClassID] = item.Total
	}
	return counts, nil
}
