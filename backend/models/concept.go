package models

import "gorm.io/gorm"

// Concept is a named pedagogical topic used to tag both assessable works and
// learning resources. Examples: "Álgebra Básica", "Comprensión Lectora".
type Concept struct {
	gorm.Model
	Name        string `gorm:"unique;not null"`
	Description string
	Category    string // free-text grouping, e.g. "Matemáticas", "Lenguaje"
	Level       string // free-text, e.g. "7mo Básico"
}

// WorkConcept links a work to a concept it assesses.
type WorkConcept struct {
	gorm.Model
	WorkID    uint    `gorm:"not null;uniqueIndex:uq_work_concept"`
	ConceptID uint    `gorm:"not null;uniqueIndex:uq_work_concept"`
	Weight    float64 `gorm:"default:1.0"` // how relevant the concept is for the work, 0.0-1.0
}

// ResourceConcept links a resource to a concept it covers.
type ResourceConcept struct {
	gorm.Model
	ResourceID uint    `gorm:"not null;uniqueIndex:uq_resource_concept"`
	ConceptID  uint    `gorm:"not null;uniqueIndex:uq_resource_concept"`
	Relevance  float64 `gorm:"default:1.0"` // how well the resource covers the concept, 0.0-1.0
}
