package controllers

import (
	"errors"

	"project/backend/apperrors"
	"project/backend/config"
	"project/backend/models"
	"project/backend/services"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SubmissionsController struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Grading *services.GradingService
}

func NewSubmissionsController(db *gorm.DB, cfg *config.Config, grading *services.GradingService) *SubmissionsController {
	return &SubmissionsController{DB: db, Cfg: cfg, Grading: grading}
}

// Submit records the calling student's single submission for a work.
func (sc *SubmissionsController) Submit(c *fiber.Ctx) error {
	workID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	type submitInput struct {
		Content string `json:"contenido"`
	}
	var input submitInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	sub, err := sc.Grading.Submit(workID, currentUserID(c), input.Content)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(submissionJSON(*sub))
}

// ListForWork returns every submission of a work with student identity, for
// the owning teacher or an admin.
func (sc *SubmissionsController) ListForWork(c *fiber.Ctx) error {
	workID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var work models.Work
	if err := sc.DB.First(&work, workID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	user, err := requestUser(c, sc.DB)
	if err != nil {
		return utils.HandleError(c, err)
	}
	owns, err := ownsCourse(sc.DB, user, work.CourseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if !owns {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the course teacher can list submissions",
		})
	}

	var subs []models.Submission
	if err := sc.DB.Where("work_id = ?", workID).Order("submitted_at").Find(&subs).Error; err != nil {
		return utils.HandleError(c, err)
	}

	result := make([]fiber.Map, 0, len(subs))
	for _, sub := range subs {
		m := submissionJSON(sub)
		var student models.User
		if err := sc.DB.First(&student, sub.StudentID).Error; err == nil {
			m["student"] = fiber.Map{
				"id":              student.ID,
				"username":        student.Username,
				"email":           student.Email,
				"nombre_completo": student.FullName,
			}
		}
		result = append(result, m)
	}
	return c.JSON(result)
}

// GetMine returns the calling student's submission for a work, if any.
func (sc *SubmissionsController) GetMine(c *fiber.Ctx) error {
	workID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var sub models.Submission
	err = sc.DB.Where("work_id = ? AND student_id = ?", workID, currentUserID(c)).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}
	return c.JSON(submissionJSON(sub))
}

// Get returns one submission to its owner, the course teacher or an admin.
func (sc *SubmissionsController) Get(c *fiber.Ctx) error {
	submissionID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var sub models.Submission
	if err := sc.DB.First(&sub, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	user, err := requestUser(c, sc.DB)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if user.ID != sub.StudentID {
		var work models.Work
		if err := sc.DB.First(&work, sub.WorkID).Error; err != nil {
			return utils.HandleError(c, err)
		}
		owns, err := ownsCourse(sc.DB, user, work.CourseID)
		if err != nil {
			return utils.HandleError(c, err)
		}
		if !owns {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Not allowed to read this submission",
			})
		}
	}
	return c.JSON(submissionJSON(sub))
}

// Grade applies a grade and reports whether the remediation rule fired.
func (sc *SubmissionsController) Grade(c *fiber.Ctx) error {
	submissionID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var sub models.Submission
	if err := sc.DB.First(&sub, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	user, err := requestUser(c, sc.DB)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var work models.Work
	if err := sc.DB.First(&work, sub.WorkID).Error; err != nil {
		return utils.HandleError(c, err)
	}
	owns, err := ownsCourse(sc.DB, user, work.CourseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if !owns {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the course teacher can grade this submission",
		})
	}

	type gradeInput struct {
		Grade    *float64 `json:"grade"`
		Feedback string   `json:"feedback"`
	}
	var input gradeInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.Grade == nil {
		return utils.ErrorJSON(c, fiber.StatusBadRequest, errors.New("grade is required"))
	}

	result, err := sc.Grading.Grade(submissionID, *input.Grade, input.Feedback)
	if err != nil {
		return utils.HandleError(c, err)
	}

	response := submissionJSON(result.Submission)
	response["recommendations_generated"] = result.RecommendationsCreated > 0
	response["recommendations_count"] = result.RecommendationsCreated
	if result.GenerationErr != nil {
		response["recommendations_error"] = result.GenerationErr.Error()
	}
	return c.JSON(response)
}
