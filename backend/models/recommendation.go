package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RecommendationUnseen    = "unseen"
	RecommendationSeen      = "seen"
	RecommendationDismissed = "dismissed"
)

// Recommendation points a student at a resource after a low grade on a work
// tagged with a concept the resource covers. Created only by the engine,
// never by direct user action. State moves unseen -> seen -> dismissed and
// never backward; dismissed rows are kept so the dedup key stays effective.
type Recommendation struct {
	gorm.Model
	StudentID  uint   `gorm:"not null;uniqueIndex:uq_recommendation"`
	ResourceID uint   `gorm:"not null;uniqueIndex:uq_recommendation"`
	WorkID     *uint  `gorm:"uniqueIndex:uq_recommendation"` // nil once the originating work is deleted
	State      string `gorm:"not null;default:unseen"`       // unseen, seen, dismissed
	SeenAt     *time.Time
	Resource   Resource
	Work       *Work
}
