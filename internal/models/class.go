package models

import "time"

// Class groups students under a teacher.
type Class struct {
	ID                  uint          `gorm:"primaryKey" json:"id"`
	Name                string        `gorm:"size:255;not null" json:"name"`
	Section             string        `gorm:"size:64" json:"section"`
	Description         string        `gorm:"type:text" json:"description"`
	TeacherID           uint          `gorm:"index;not null" json:"teacher_id"`
	JoinCode            string        `gorm:"size:16;uniqueIndex;not null" json:"join_code"`
	AllowStudentUploads bool          `gorm:"not null;default:false" json:"allow_student_uploads"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
	Teacher             User          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Members             []ClassMember `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ClassMember links a student to a class.
type ClassMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"uniqueIndex:idx_class_member;not null" json:"class_id"`
	StudentID uint      `gorm:"uniqueIndex:idx_class_member;not null" json:"student_id"`
	JoinedAt  time.Time `gorm:"not null" json:"joined_at"`
	Student   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}
