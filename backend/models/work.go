package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	WorkKindTask = "task"
	WorkKindExam = "exam"
)

const (
	QuestionEssay          = "essay"
	QuestionMultipleChoice = "multiple_choice"
)

// Work is an assessable piece of academic work: a task with a due date or an
// exam with a scheduled date and an ordered question set.
type Work struct {
	gorm.Model
	Title       string    `gorm:"not null"`
	Description string
	Kind        string    `gorm:"not null"` // task, exam
	DueAt       time.Time `gorm:"not null"` // due date for tasks, scheduled date for exams
	CourseID    uint      `gorm:"not null"`
	PDFPath     string    // exams only; the file itself lives in external storage
	Concepts    []WorkConcept
	Questions   []Question
}

type Question struct {
	gorm.Model
	WorkID        uint   `gorm:"index;not null"`
	Text          string `gorm:"not null"`
	Kind          string `gorm:"not null"` // essay, multiple_choice
	Points        int    `gorm:"not null;default:1"`
	SequenceOrder int    `gorm:"not null"`
	Options       []QuestionOption
}

type QuestionOption struct {
	gorm.Model
	QuestionID    uint   `gorm:"index;not null"`
	Text          string `gorm:"not null"`
	IsCorrect     bool   `gorm:"not null;default:false"`
	SequenceOrder int    `gorm:"not null"`
}

func ValidQuestionKind(k string) bool {
	return k == QuestionEssay || k == QuestionMultipleChoice
}
