package models

import (
	"time"

	"gorm.io/gorm"
)

// Submission is the single entry a student hands in for a work. Content is
// create-once; grade and feedback belong to the grading teacher and may be
// overwritten on re-grade.
type Submission struct {
	gorm.Model
	WorkID      uint `gorm:"not null;uniqueIndex:uq_work_student"`
	StudentID   uint `gorm:"not null;uniqueIndex:uq_work_student"`
	Content     string
	SubmittedAt time.Time `gorm:"not null"`
	Grade       *float64  // 1.0 to 7.0, nil until graded
	Feedback    string
	GradedAt    *time.Time
}

func (s Submission) IsGraded() bool {
	return s.Grade != nil
}
