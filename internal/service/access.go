package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/models"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
)

var (
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrClassNotFound indicates the class does not exist.
	ErrClassNotFound = errors.New("class not found")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uint
	Role string
}

// IsCoordinator reports whether the actor administers the whole platform.
func (a Actor) IsCoordinator() bool { return a.Role == models.RoleCoordinator }

// IsTeacher reports whether the actor is a teacher.
func (a Actor) IsTeacher() bool { return a.Role == models.RoleTeacher }

// IsStudent reports whether the actor is a student.
func (a Actor) IsStudent() bool { return a.Role == models.RoleStudent }

// IsParent reports whether the actor is a parent.
func (a Actor) IsParent() bool { return a.Role == models.RoleParent }

// IsStaff reports whether the actor is a teacher or coordinator.
func (a Actor) IsStaff() bool { return a.IsTeacher() || a.IsCoordinator() }

// classAccess centralises who may see or manage a class.
type classAccess struct {
	classes repository.ClassRepository
	users   repository.UserRepository
}

func (a classAccess) load(ctx context.Context, classID uint) (models.Class, error) {
	class, err := a.classes.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Class{}, ErrClassNotFound
		}
		return models.Class{}, err
	}
	return class, nil
}

// canManage reports whether the actor owns the class or coordinates the platform.
func (a classAccess) canManage(actor Actor, class models.Class) bool {
	return actor.IsCoordinator() || (actor.IsTeacher() && class.TeacherID == actor.ID)
}

// canView reports whether the actor may read class content.
func (a classAccess) canView(ctx context.Context, actor Actor, class models.Class) (bool, error) {
	if a.canManage(actor, class) {
		return true, nil
	}

	switch {
	case actor.IsStudent():
		return a.classes.IsMember(ctx, class.ID, actor.ID)
	case actor.IsParent():
		children, err := a.users.ListChildren(ctx, actor.ID)
		if err != nil {
			return false, err
		}
		for _, child := range children {
			member, err := a.classes.IsMember(ctx, class.ID, child.ID)
			if err != nil {
				return false, err
			}
			if member {
				return true, nil
			}
		}
	}
	return false, nil
}

// requireView loads a class and fails with ErrForbidden when the actor cannot read it.
func (a classAccess) requireView(ctx context.Context, actor Actor, classID uint) (models.Class, error) {
	class, err := a.load(ctx, classID)
	if err != nil {
		return models.Class{}, err
	}
	allowed, err := a.canView(ctx, actor, class)
	if err != nil {
		return models.Class{}, err
	}
	if !allowed {
		return models.Class{}, ErrForbidden
	}
	return class, nil
}

// requireManage loads a class and fails with ErrForbidden unless the actor manages it.
func (a classAccess) requireManage(ctx context.Context, actor Actor, classID uint) (models.Class, error) {
	class, err := a.load(ctx, classID)
	if err != nil {
		return models.Class{}, err
	}
	if !a.canManage(actor, class) {
		return models.Class{}, ErrForbidden
	}
	return class, nil
}

// visibleClasses lists the classes the actor teaches, attends or, for
// parents, the classes any linked child attends.
func (a classAccess) visibleClasses(ctx context.Context, actor Actor) ([]models.Class, error) {
	switch {
	case actor.IsCoordinator():
		return a.classes.ListAll(ctx)
	case actor.IsTeacher():
		return a.classes.ListByTeacher(ctx, actor.ID)
	case actor.IsStudent():
		return a.classes.ListByStudent(ctx, actor.ID)
	case actor.IsParent():
		children, err := a.users.ListChildren(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		seen := map[uint]struct{}{}
		result := make([]models.Class, 0)
		for _, child := range children {
			classes, err := a.classes.ListByStudent(ctx, child.ID)
			if err != nil {
				return nil, err
			}
			for _, class := range classes {
				if _, ok := seen[class.ID]; ok {
					continue
				}
				seen[class.ID] = struct{}{}
				result = append(result, class)
			}
		}
		return result, nil
	default:
		return []models.Class{}, nil
	}
}

func classIDs(classes []models.Class) []uint {
	ids := make([]uint, 0, len(classes))
	for _, class := range classes {
		ids = append(ids, class.ID)
	}
	return ids
}
