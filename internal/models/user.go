package models

import "time"

// Role names recognised by the platform.
const (
	RoleStudent     = "student"
	RoleTeacher     = "teacher"
	RoleCoordinator = "coordinator"
	RoleParent      = "parent"
)

// User represents any account on the platform regardless of role.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:32;index;not null" json:"role"`
	ParentID     *uint     `gorm:"index" json:"parent_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsStaff reports whether the user manages classes rather than attends them.
func (u User) IsStaff() bool {
	return u.Role == RoleTeacher || u.Role == RoleCoordinator
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTeacher, RoleCoordinator, RoleParent:
		return true
	default:
		return false
	}
}
