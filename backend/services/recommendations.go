package services

import (
	"errors"
	"time"

	"project/backend/apperrors"
	"project/backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RecommendationService owns the trigger rule that turns a low grade into
// unseen recommendations, and the student-facing lifecycle on top of them.
type RecommendationService struct {
	DB        *gorm.DB
	Log       *zap.SugaredLogger
	Threshold float64 // passing boundary on the 1.0-7.0 scale
}

func NewRecommendationService(db *gorm.DB, log *zap.SugaredLogger, threshold float64) *RecommendationService {
	return &RecommendationService{DB: db, Log: log, Threshold: threshold}
}

// GenerateForGrade runs the trigger rule inside the caller's transaction.
// For a grade below the threshold it fans out over the work's tagged
// concepts, fetches active resources covering them and creates an unseen
// recommendation per resource not already recommended to this student from
// this work. Empty outcomes are no-ops, not errors.
func (s *RecommendationService) GenerateForGrade(tx *gorm.DB, studentID, workID uint, grade float64) (int, error) {
	if grade >= s.Threshold {
		return 0, nil
	}

	var conceptIDs []uint
	if err := tx.Model(&models.WorkConcept{}).
		Where("work_id = ?", workID).
		Pluck("concept_id", &conceptIDs).Error; err != nil {
		return 0, err
	}
	if len(conceptIDs) == 0 {
		s.Log.Infow("work has no tagged concepts, skipping recommendations",
			"work_id", workID, "student_id", studentID)
		return 0, nil
	}

	var resourceIDs []uint
	if err := tx.Model(&models.ResourceConcept{}).
		Where("concept_id IN ?", conceptIDs).
		Distinct().
		Pluck("resource_id", &resourceIDs).Error; err != nil {
		return 0, err
	}
	if len(resourceIDs) == 0 {
		s.Log.Infow("no resources cover the work's concepts",
			"work_id", workID, "student_id", studentID)
		return 0, nil
	}

	// Deterministic candidate order: easiest first, then shortest, then id.
	var resources []models.Resource
	if err := tx.
		Where("id IN ? AND active = ?", resourceIDs, true).
		Order("CASE difficulty WHEN 'basic' THEN 0 WHEN 'intermediate' THEN 1 ELSE 2 END").
		Order("COALESCE(duration_minutes, 100000)").
		Order("id").
		Find(&resources).Error; err != nil {
		return 0, err
	}

	// Dedup on (student, resource, work). Dismissed rows count: a dismissed
	// resource is not re-recommended on re-grade.
	var recommended []uint
	if err := tx.Model(&models.Recommendation{}).
		Where("student_id = ? AND work_id = ?", studentID, workID).
		Pluck("resource_id", &recommended).Error; err != nil {
		return 0, err
	}
	already := make(map[uint]bool, len(recommended))
	for _, id := range recommended {
		already[id] = true
	}

	created := 0
	for _, resource := range resources {
		if already[resource.ID] {
			continue
		}
		rec := models.Recommendation{
			StudentID:  studentID,
			ResourceID: resource.ID,
			WorkID:     &workID,
			State:      models.RecommendationUnseen,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return created, err
		}
		created++
	}

	if created > 0 {
		s.Log.Infow("recommendations generated",
			"student_id", studentID, "work_id", workID, "grade", grade, "count", created)
	}
	return created, nil
}

// ListForStudent returns the student's recommendations newest first,
// always excluding dismissed ones.
func (s *RecommendationService) ListForStudent(studentID uint, onlyUnseen bool) ([]models.Recommendation, error) {
	query := s.DB.Preload("Resource").Preload("Work").
		Where("student_id = ? AND state <> ?", studentID, models.RecommendationDismissed)
	if onlyUnseen {
		query = query.Where("state = ?", models.RecommendationUnseen)
	}

	var recs []models.Recommendation
	if err := query.Order("created_at DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// MarkSeen transitions a recommendation to seen. Idempotent: re-marking a
// seen recommendation keeps the original seen-at timestamp.
func (s *RecommendationService) MarkSeen(id, studentID uint) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := s.DB.Preload("Resource").Preload("Work").
		Where("id = ? AND student_id = ?", id, studentID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	if rec.State == models.RecommendationDismissed {
		return nil, apperrors.ErrNotFound
	}

	if rec.State == models.RecommendationUnseen {
		now := time.Now().UTC()
		rec.State = models.RecommendationSeen
		rec.SeenAt = &now
		if err := s.DB.Save(&rec).Error; err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

// Dismiss is the terminal transition. A second dismiss succeeds because the
// end state is identical; the row is kept for auditability.
func (s *RecommendationService) Dismiss(id, studentID uint) error {
	var rec models.Recommendation
	err := s.DB.Where("id = ? AND student_id = ?", id, studentID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return err
	}

	if rec.State != models.RecommendationDismissed {
		rec.State = models.RecommendationDismissed
		if err := s.DB.Save(&rec).Error; err != nil {
			return err
		}
	}
	return nil
}
