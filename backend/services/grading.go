package services

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"project/backend/apperrors"
	"project/backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	GradeMin = 1.0
	GradeMax = 7.0
)

// GradingService treats "apply grade" plus "generate recommendations" as one
// unit of work per submission. Concurrent grade calls on the same submission
// serialize on a per-submission mutex so generation never runs twice
// concurrently for one grading event.
type GradingService struct {
	DB   *gorm.DB
	Log  *zap.SugaredLogger
	Recs *RecommendationService

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewGradingService(db *gorm.DB, log *zap.SugaredLogger, recs *RecommendationService) *GradingService {
	return &GradingService{DB: db, Log: log, Recs: recs, locks: make(map[uint]*sync.Mutex)}
}

type GradeResult struct {
	Submission             models.Submission
	RecommendationsCreated int

	// GenerationErr carries a failed generation step. The grade write is
	// durable regardless; callers surface this for retry.
	GenerationErr error
}

// Submit records the one submission a student gets per work. Content is
// create-once; there is no resubmission path.
func (s *GradingService) Submit(workID, studentID uint, content string) (*models.Submission, error) {
	var work models.Work
	if err := s.DB.First(&work, workID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	var existing models.Submission
	err := s.DB.Where("work_id = ? AND student_id = ?", workID, studentID).First(&existing).Error
	if err == nil {
		return nil, apperrors.ErrDuplicateSubmission
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := models.Submission{
		WorkID:      workID,
		StudentID:   studentID,
		Content:     content,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.DB.Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// Grade validates and applies a grade, then synchronously runs the
// recommendation trigger rule. The raw input must lie in [1.0, 7.0]; anything
// outside is rejected before any write, never nudged into range. Generation
// failure never rolls back the grade: it is logged and surfaced on the result
// instead. Re-grading re-runs the rule; dedup on (student, resource, work)
// prevents duplicate recommendations.
func (s *GradingService) Grade(submissionID uint, grade float64, feedback string) (*GradeResult, error) {
	if math.IsNaN(grade) || math.IsInf(grade, 0) || grade < GradeMin || grade > GradeMax {
		return nil, apperrors.ErrInvalidGrade
	}

	lock := s.submissionLock(submissionID)
	lock.Lock()
	defer lock.Unlock()

	var result GradeResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := tx.First(&sub, submissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return err
		}

		now := time.Now().UTC()
		sub.Grade = &grade
		sub.Feedback = feedback
		sub.GradedAt = &now
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}

		created, genErr := s.Recs.GenerateForGrade(tx, sub.StudentID, sub.WorkID, grade)
		if genErr != nil {
			// Grading correctness wins over recommendation freshness: keep
			// the grade, log for reconciliation, surface to the caller.
			s.Log.Errorw("recommendation generation failed after grade write",
				"submission_id", sub.ID, "student_id", sub.StudentID,
				"work_id", sub.WorkID, "error", genErr)
			result.GenerationErr = fmt.Errorf("%w: %v", apperrors.ErrDependencyFailure, genErr)
		}

		result.Submission = sub
		result.RecommendationsCreated = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *GradingService) submissionLock(id uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}
