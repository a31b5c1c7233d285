package controllers

import (
	"project/backend/config"
	"project/backend/services"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RecommendationsController struct {
	DB   *gorm.DB
	Cfg  *config.Config
	Recs *services.RecommendationService
}

func NewRecommendationsController(db *gorm.DB, cfg *config.Config, recs *services.RecommendationService) *RecommendationsController {
	return &RecommendationsController{DB: db, Cfg: cfg, Recs: recs}
}

// ListMine returns the calling student's recommendations, newest first.
// ?solo_no_vistas=true narrows to the unseen ones.
func (rc *RecommendationsController) ListMine(c *fiber.Ctx) error {
	onlyUnseen := c.Query("solo_no_vistas") == "true"

	recs, err := rc.Recs.ListForStudent(currentUserID(c), onlyUnseen)
	if err != nil {
		return utils.HandleError(c, err)
	}

	result := make([]fiber.Map, 0, len(recs))
	for _, rec := range recs {
		result = append(result, recommendationJSON(rec))
	}
	return c.JSON(result)
}

func (rc *RecommendationsController) MarkSeen(c *fiber.Ctx) error {
	recID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	rec, err := rc.Recs.MarkSeen(recID, currentUserID(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(recommendationJSON(*rec))
}

func (rc *RecommendationsController) Dismiss(c *fiber.Ctx) error {
	recID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := rc.Recs.Dismiss(recID, currentUserID(c)); err != nil {
		return utils.HandleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListForStudent lets teachers and admins inspect a student's recommendation
// feed.
func (rc *RecommendationsController) ListForStudent(c *fiber.Ctx) error {
	studentID, err := paramID(c, "studentId")
	if err != nil {
		return err
	}

	onlyUnseen := c.Query("solo_no_vistas") == "true"
	recs, err := rc.Recs.ListForStudent(studentID, onlyUnseen)
	if err != nil {
		return utils.HandleError(c, err)
	}

	result := make([]fiber.Map, 0, len(recs))
	for _, rec := range recs {
		result = append(result, recommendationJSON(rec))
	}
	return c.JSON(result)
}
