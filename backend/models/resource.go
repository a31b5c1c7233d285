package models

import "gorm.io/gorm"

const (
	ResourceVideo               = "video"
	ResourcePDF                 = "pdf"
	ResourceInteractiveExercise = "interactive_exercise"
	ResourceArticle             = "article"
)

const (
	DifficultyBasic        = "basic"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Resource is a remedial learning resource that can be recommended to a
// student. Inactive resources stay visible in already-created recommendations
// but are excluded from new generation.
type Resource struct {
	gorm.Model
	Title           string `gorm:"not null"`
	Type            string `gorm:"not null"` // video, pdf, interactive_exercise, article
	URL             string
	FilePath        string
	Description     string
	DurationMinutes *int
	Difficulty      string // basic, intermediate, advanced
	Author          string
	Active          bool `gorm:"default:true"`
	Concepts        []ResourceConcept
}

func ValidResourceType(t string) bool {
	switch t {
	case ResourceVideo, ResourcePDF, ResourceInteractiveExercise, ResourceArticle:
		return true
	}
	return false
}

func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyBasic, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

const (
	InteractionViewed    = "viewed"
	InteractionCompleted = "completed"
	InteractionRated     = "rated"
)

// ResourceInteraction tracks how students engage with recommended resources.
type ResourceInteraction struct {
	gorm.Model
	StudentID      uint   `gorm:"index;not null"`
	ResourceID     uint   `gorm:"index;not null"`
	Kind           string `gorm:"not null"` // viewed, completed, rated
	Rating         *int   // 1-5, only for rated
	SecondsWatched *int   // only for videos
}

func ValidInteractionKind(k string) bool {
	switch k {
	case InteractionViewed, InteractionCompleted, InteractionRated:
		return true
	}
	return false
}
