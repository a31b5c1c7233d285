package controllers

import (
	"errors"
	"strings"

	"project/backend/apperrors"
	"project/backend/config"
	"project/backend/models"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ConceptsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewConceptsController(db *gorm.DB, cfg *config.Config) *ConceptsController {
	return &ConceptsController{DB: db, Cfg: cfg}
}

type conceptInput struct {
	Name        *string `json:"nombre"`
	Description *string `json:"descripcion"`
	Category    *string `json:"categoria"`
	Level       *string `json:"nivel"`
}

func (cc *ConceptsController) Create(c *fiber.Ctx) error {
	var input conceptInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return utils.ErrorJSON(c, fiber.StatusBadRequest, errors.New("nombre is required"))
	}
	name := strings.TrimSpace(*input.Name)

	// Names collide case-insensitively.
	var count int64
	if err := cc.DB.Model(&models.Concept{}).
		Where("LOWER(name) = LOWER(?)", name).
		Count(&count).Error; err != nil {
		return utils.HandleError(c, err)
	}
	if count > 0 {
		return utils.HandleError(c, apperrors.ErrDuplicateName)
	}

	concept := models.Concept{Name: name}
	if input.Description != nil {
		concept.Description = *input.Description
	}
	if input.Category != nil {
		concept.Category = *input.Category
	}
	if input.Level != nil {
		concept.Level = *input.Level
	}

	if err := cc.DB.Create(&concept).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conceptJSON(concept))
}

func (cc *ConceptsController) Update(c *fiber.Ctx) error {
	conceptID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var concept models.Concept
	if err := cc.DB.First(&concept, conceptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	var input conceptInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return utils.ErrorJSON(c, fiber.StatusBadRequest, errors.New("nombre cannot be empty"))
		}
		var count int64
		if err := cc.DB.Model(&models.Concept{}).
			Where("LOWER(name) = LOWER(?) AND id <> ?", name, concept.ID).
			Count(&count).Error; err != nil {
			return utils.HandleError(c, err)
		}
		if count > 0 {
			return utils.HandleError(c, apperrors.ErrDuplicateName)
		}
		concept.Name = name
	}
	if input.Description != nil {
		concept.Description = *input.Description
	}
	if input.Category != nil {
		concept.Category = *input.Category
	}
	if input.Level != nil {
		concept.Level = *input.Level
	}

	if err := cc.DB.Save(&concept).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(conceptJSON(concept))
}

// Delete removes a concept. A concept referenced by any resource or work is
// protected unless ?cascade=true, which unlinks the associations first and
// never touches the resources or works themselves.
func (cc *ConceptsController) Delete(c *fiber.Ctx) error {
	conceptID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var concept models.Concept
	if err := cc.DB.First(&concept, conceptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	cascade := c.Query("cascade") == "true"

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		var workRefs, resourceRefs int64
		if err := tx.Model(&models.WorkConcept{}).Where("concept_id = ?", conceptID).Count(&workRefs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ResourceConcept{}).Where("concept_id = ?", conceptID).Count(&resourceRefs).Error; err != nil {
			return err
		}
		if workRefs+resourceRefs > 0 {
			if !cascade {
				return apperrors.ErrConceptInUse
			}
			if err := tx.Where("concept_id = ?", conceptID).Delete(&models.WorkConcept{}).Error; err != nil {
				return err
			}
			if err := tx.Where("concept_id = ?", conceptID).Delete(&models.ResourceConcept{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&concept).Error
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// List returns all concepts in creation order. With ?group_by=categoria the
// result is grouped per category for presentation.
func (cc *ConceptsController) List(c *fiber.Ctx) error {
	var concepts []models.Concept
	if err := cc.DB.Order("id").Find(&concepts).Error; err != nil {
		return utils.HandleError(c, err)
	}

	if c.Query("group_by") == "categoria" {
		grouped := make(map[string][]fiber.Map)
		for _, concept := range concepts {
			category := concept.Category
			if category == "" {
				category = "general"
			}
			grouped[category] = append(grouped[category], conceptJSON(concept))
		}
		return c.JSON(grouped)
	}

	result := make([]fiber.Map, 0, len(concepts))
	for _, concept := range concepts {
		result = append(result, conceptJSON(concept))
	}
	return c.JSON(result)
}
