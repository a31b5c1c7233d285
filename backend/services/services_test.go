package services

import (
	"fmt"
	"math"
	"testing"

	"project/backend/apperrors"
	"project/backend/database"
	"project/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newServices(t *testing.T) (*gorm.DB, *RecommendationService, *GradingService) {
	db := newTestDB(t)
	log := zap.NewNop().Sugar()
	recs := NewRecommendationService(db, log, 4.0)
	grading := NewGradingService(db, log, recs)
	return db, recs, grading
}

// seedRemediation builds the canonical trigger scenario: a work tagged with
// one concept, one active resource covering that concept, one active resource
// covering an unrelated concept, and one inactive resource covering the
// tagged concept.
func seedRemediation(t *testing.T, db *gorm.DB) (work models.Work, covering, unrelated, inactive models.Resource) {
	t.Helper()

	tagged := models.Concept{Name: "fractions " + t.Name()}
	other := models.Concept{Name: "geometry " + t.Name()}
	require.NoError(t, db.Create(&tagged).Error)
	require.NoError(t, db.Create(&other).Error)

	course := models.Course{Title: "Math", TeacherID: 1}
	require.NoError(t, db.Create(&course).Error)
	work = models.Work{Title: "Quiz 1", Kind: models.WorkKindTask, CourseID: course.ID}
	require.NoError(t, db.Create(&work).Error)
	require.NoError(t, db.Create(&models.WorkConcept{WorkID: work.ID, ConceptID: tagged.ID}).Error)

	covering = models.Resource{Title: "Fractions video", Type: models.ResourceVideo, URL: "http://v", Active: true}
	unrelated = models.Resource{Title: "Geometry video", Type: models.ResourceVideo, URL: "http://g", Active: true}
	inactive = models.Resource{Title: "Retired PDF", Type: models.ResourcePDF, URL: "http://p", Active: false}
	require.NoError(t, db.Create(&covering).Error)
	require.NoError(t, db.Create(&unrelated).Error)
	require.NoError(t, db.Create(&inactive).Error)

	require.NoError(t, db.Create(&models.ResourceConcept{ResourceID: covering.ID, ConceptID: tagged.ID}).Error)
	require.NoError(t, db.Create(&models.ResourceConcept{ResourceID: unrelated.ID, ConceptID: other.ID}).Error)
	require.NoError(t, db.Create(&models.ResourceConcept{ResourceID: inactive.ID, ConceptID: tagged.ID}).Error)
	return work, covering, unrelated, inactive
}

func TestGenerateForGradeBelowThreshold(t *testing.T) {
	db, recs, _ := newServices(t)
	work, covering, _, _ := seedRemediation(t, db)

	created, err := recs.GenerateForGrade(db, 42, work.ID, 3.0)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var rows []models.Recommendation
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(42), rows[0].StudentID)
	assert.Equal(t, covering.ID, rows[0].ResourceID)
	require.NotNil(t, rows[0].WorkID)
	assert.Equal(t, work.ID, *rows[0].WorkID)
	assert.Equal(t, models.RecommendationUnseen, rows[0].State)
	assert.Nil(t, rows[0].SeenAt)
}

func TestGenerateForGradePassingIsNoop(t *testing.T) {
	db, recs, _ := newServices(t)
	work, _, _, _ := seedRemediation(t, db)

	created, err := recs.GenerateForGrade(db, 42, work.ID, 4.0)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	var count int64
	db.Model(&models.Recommendation{}).Count(&count)
	assert.Zero(t, count)
}

func TestGenerateForGradeDedupOnRegrade(t *testing.T) {
	db, recs, _ := newServices(t)
	work, _, _, _ := seedRemediation(t, db)

	created, err := recs.GenerateForGrade(db, 42, work.ID, 3.0)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, err = recs.GenerateForGrade(db, 42, work.ID, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	var count int64
	db.Model(&models.Recommendation{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGenerateForGradeUntaggedWork(t *testing.T) {
	db, recs, _ := newServices(t)

	course := models.Course{Title: "Math", TeacherID: 1}
	require.NoError(t, db.Create(&course).Error)
	work := models.Work{Title: "Untagged", Kind: models.WorkKindTask, CourseID: course.ID}
	require.NoError(t, db.Create(&work).Error)

	created, err := recs.GenerateForGrade(db, 42, work.ID, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestGenerateForGradeOrdersEasiestFirst(t *testing.T) {
	db, recs, _ := newServices(t)

	concept := models.Concept{Name: "limits"}
	require.NoError(t, db.Create(&concept).Error)
	course := models.Course{Title: "Calc", TeacherID: 1}
	require.NoError(t, db.Create(&course).Error)
	work := models.Work{Title: "Midterm", Kind: models.WorkKindExam, CourseID: course.ID}
	require.NoError(t, db.Create(&work).Error)
	require.NoError(t, db.Create(&models.WorkConcept{WorkID: work.ID, ConceptID: concept.ID}).Error)

	short := 10
	advanced := models.Resource{Title: "Deep dive", Type: models.ResourceVideo, URL: "http://a", Difficulty: models.DifficultyAdvanced, Active: true}
	basic := models.Resource{Title: "Intro", Type: models.ResourceVideo, URL: "http://b", Difficulty: models.DifficultyBasic, DurationMinutes: &short, Active: true}
	require.NoError(t, db.Create(&advanced).Error)
	require.NoError(t, db.Create(&basic).Error)
	require.NoError(t, db.Create(&models.ResourceConcept{ResourceID: advanced.ID, ConceptID: concept.ID}).Error)
	require.NoError(t, db.Create(&models.ResourceConcept{ResourceID: basic.ID, ConceptID: concept.ID}).Error)

	created, err := recs.GenerateForGrade(db, 7, work.ID, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	var rows []models.Recommendation
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, basic.ID, rows[0].ResourceID)
	assert.Equal(t, advanced.ID, rows[1].ResourceID)
}

func TestSubmitOncePerWork(t *testing.T) {
	db, _, grading := newServices(t)
	work, _, _, _ := seedRemediation(t, db)

	sub, err := grading.Submit(work.ID, 42, "my answer")
	require.NoError(t, err)
	assert.False(t, sub.IsGraded())

	_, err = grading.Submit(work.ID, 42, "second try")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateSubmission)

	_, err = grading.Submit(work.ID, 43, "other student")
	assert.NoError(t, err)
}

func TestSubmitUnknownWork(t *testing.T) {
	_, _, grading := newServices(t)
	_, err := grading.Submit(999, 42, "void")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGradeRejectsOutOfRange(t *testing.T) {
	db, _, grading := newServices(t)
	work, _, _, _ := seedRemediation(t, db)
	sub, err := grading.Submit(work.ID, 42, "answer")
	require.NoError(t, err)

	// Values just outside the scale fail too: nothing is rounded into range.
	for _, grade := range []float64{0.9, 7.1, 0.0, -3.0, 7.04, 0.96, math.NaN(), math.Inf(1)} {
		_, err := grading.Grade(sub.ID, grade, "nope")
		assert.ErrorIs(t, err, apperrors.ErrInvalidGrade)
	}

	// A rejected grade leaves the submission untouched.
	var reloaded models.Submission
	require.NoError(t, db.First(&reloaded, sub.ID).Error)
	assert.Nil(t, reloaded.Grade)
	assert.Nil(t, reloaded.GradedAt)

	var count int64
	db.Model(&models.Recommendation{}).Count(&count)
	assert.Zero(t, count)
}

func TestGradeStoredAsGiven(t *testing.T) {
	db, _, grading := newServices(t)
	work, _, _, _ := seedRemediation(t, db)
	sub, err := grading.Submit(work.ID, 42, "answer")
	require.NoError(t, err)

	result, err := grading.Grade(sub.ID, 5.65, "close enough")
	require.NoError(t, err)
	require.NotNil(t, result.Submission.Grade)
	assert.InDelta(t, 5.65, *result.Submission.Grade, 1e-9)
	assert.NotNil(t, result.Submission.GradedAt)

	// The scale boundaries themselves are valid grades.
	sub2, err := grading.Submit(work.ID, 43, "answer")
	require.NoError(t, err)
	result2, err := grading.Grade(sub2.ID, 7.0, "top")
	require.NoError(t, err)
	assert.InDelta(t, 7.0, *result2.Submission.Grade, 1e-9)

	sub3, err := grading.Submit(work.ID, 44, "answer")
	require.NoError(t, err)
	result3, err := grading.Grade(sub3.ID, 1.0, "bottom")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, *result3.Submission.Grade, 1e-9)
}

func TestGradeJustBelowThresholdTriggers(t *testing.T) {
	db, _, grading := newServices(t)
	work, covering, _, _ := seedRemediation(t, db)
	sub, err := grading.Submit(work.ID, 42, "answer")
	require.NoError(t, err)

	// 3.95 sits below the 4.0 boundary and must fire the rule as given.
	result, err := grading.Grade(sub.ID, 3.95, "almost")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RecommendationsCreated)

	var rows []models.Recommendation
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, covering.ID, rows[0].ResourceID)
}

func TestGradeBelowThresholdGeneratesOnce(t *testing.T) {
	db, _, grading := newServices(t)
	work, covering, _, _ := seedRemediation(t, db)
	sub, err := grading.Submit(work.ID, 42, "answer")
	require.NoError(t, err)

	result, err := grading.Grade(sub.ID, 3.9, "needs work")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RecommendationsCreated)
	assert.NoError(t, result.GenerationErr)

	// Re-grading below the threshold does not duplicate.
	result, err = grading.Grade(sub.ID, 2.0, "worse")
	require.NoError(t, err)
	assert.Equal(t, 0, result.RecommendationsCreated)

	var rows []models.Recommendation
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, covering.ID, rows[0].ResourceID)
}

func TestGradeAtThresholdNoGeneration(t *testing.T) {
	db, _, grading := newServices(t)
	work, _, _, _ := seedRemediation(t, db)
	sub, err := grading.Submit(work.ID, 42, "answer")
	require.NoError(t, err)

	result, err := grading.Grade(sub.ID, 4.0, "passed")
	require.NoError(t, err)
	assert.Equal(t, 0, result.RecommendationsCreated)

	var count int64
	db.Model(&models.Recommendation{}).Count(&count)
	assert.Zero(t, count)
}

func TestListForStudentExcludesDismissed(t *testing.T) {
	db, recs, grading := newServices(t)
	work, _, _, _ := seedRemediation(t, db)
	sub, err := grading.Submit(work.ID, 42, "answer")
	require.NoError(t, err)
	_, err = grading.Grade(sub.ID, 2.0, "")
	require.NoError(t, err)

	listed, err := recs.ListForStudent(42, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, recs.Dismiss(listed[0].ID, 42))

	listed, err = recs.ListForStudent(42, false)
	require.NoError(t, err)
	assert.Empty(t, listed)

	// The dismissed row still blocks regeneration.
	result, err := grading.Grade(sub.ID, 1.5, "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.RecommendationsCreated)
}

func TestDeactivatedResourceKeepsExistingRecommendations(t *testing.T) {
	db, recs, grading := newServices(t)
	work, covering, _, _ := seedRemediation(t, db)
	sub, err := grading.Submit(work.ID, 42, "answer")
	require.NoError(t, err)
	_, err = grading.Grade(sub.ID, 2.0, "")
	require.NoError(t, err)

	require.NoError(t, db.Model(&covering).Update("active", false).Error)

	// Deactivation only blocks future generation; the student keeps what was
	// already recommended.
	listed, err := recs.ListForStudent(42, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, covering.ID, listed[0].ResourceID)
	assert.Equal(t, covering.ID, listed[0].Resource.ID)

	created, err := recs.GenerateForGrade(db, 77, work.ID, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestMarkSeenIdempotent(t *testing.T) {
	db, recs, grading := newServices(t)
	work, _, _, _ := seedRemediation(t, db)
	sub, err := grading.Submit(work.ID, 42, "answer")
	require.NoError(t, err)
	_, err = grading.Grade(sub.ID, 2.0, "")
	require.NoError(t, err)

	listed, err := recs.ListForStudent(42, true)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	seen, err := recs.MarkSeen(listed[0].ID, 42)
	require.NoError(t, err)
	assert.Equal(t, models.RecommendationSeen, seen.State)
	require.NotNil(t, seen.SeenAt)
	firstSeenAt := *seen.SeenAt

	again, err := recs.MarkSeen(listed[0].ID, 42)
	require.NoError(t, err)
	require.NotNil(t, again.SeenAt)
	assert.Equal(t, firstSeenAt, *again.SeenAt)

	// Seen rows drop out of the unseen filter but stay listed.
	unseen, err := recs.ListForStudent(42, true)
	require.NoError(t, err)
	assert.Empty(t, unseen)
	all, err := recs.ListForStudent(42, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMarkSeenWrongStudent(t *testing.T) {
	db, recs, grading := newServices(t)
	work, _, _, _ := seedRemediation(t, db)
	sub, err := grading.Submit(work.ID, 42, "answer")
	require.NoError(t, err)
	_, err = grading.Grade(sub.ID, 2.0, "")
	require.NoError(t, err)

	listed, err := recs.ListForStudent(42, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = recs.MarkSeen(listed[0].ID, 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDismissIsTerminal(t *testing.T) {
	db, recs, grading := newServices(t)
	work, _, _, _ := seedRemediation(t, db)
	sub, err := grading.Submit(work.ID, 42, "answer")
	require.NoError(t, err)
	_, err = grading.Grade(sub.ID, 2.0, "")
	require.NoError(t, err)

	listed, err := recs.ListForStudent(42, false)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	recID := listed[0].ID

	require.NoError(t, recs.Dismiss(recID, 42))
	// Double dismiss converges on the same state.
	require.NoError(t, recs.Dismiss(recID, 42))

	_, err = recs.MarkSeen(recID, 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
