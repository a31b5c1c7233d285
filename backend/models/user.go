package models

import "gorm.io/gorm"

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type User struct {
	gorm.Model
	Username     string `gorm:"unique;not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	FullName     string
	Role         string `gorm:"default:student"` // admin, teacher, student
}

// Course is the owning container for assessable works. Enrollment, schedules
// and the rest of course administration live outside this engine.
type Course struct {
	gorm.Model
	Title     string `gorm:"not null"`
	TeacherID uint
}
