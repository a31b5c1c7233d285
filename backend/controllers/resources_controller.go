package controllers

import (
	"errors"

	"project/backend/apperrors"
	"project/backend/config"
	"project/backend/models"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ResourcesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewResourcesController(db *gorm.DB, cfg *config.Config) *ResourcesController {
	return &ResourcesController{DB: db, Cfg: cfg}
}

type resourceInput struct {
	Title           *string `json:"titulo"`
	Type            *string `json:"tipo"`
	URL             *string `json:"url"`
	FilePath        *string `json:"ruta_archivo"`
	Description     *string `json:"descripcion"`
	DurationMinutes *int    `json:"duracion_minutos"`
	Difficulty      *string `json:"nivel_dificultad"`
	Author          *string `json:"autor"`
	ConceptIDs      []uint  `json:"concepto_ids"`
}

func (rc *ResourcesController) validate(input resourceInput) error {
	if input.Type != nil && !models.ValidResourceType(*input.Type) {
		return apperrors.ErrInvalidEnum
	}
	if input.Difficulty != nil && *input.Difficulty != "" && !models.ValidDifficulty(*input.Difficulty) {
		return apperrors.ErrInvalidEnum
	}
	if input.DurationMinutes != nil && *input.DurationMinutes < 0 {
		return apperrors.ErrValidation
	}
	return nil
}

// Create stores the resource and its concept tags atomically: a tagging
// failure leaves no resource behind.
func (rc *ResourcesController) Create(c *fiber.Ctx) error {
	var input resourceInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	if input.Title == nil || *input.Title == "" {
		return utils.ErrorJSON(c, fiber.StatusBadRequest, errors.New("titulo is required"))
	}
	if input.Type == nil {
		return utils.HandleError(c, apperrors.ErrInvalidEnum)
	}
	if err := rc.validate(input); err != nil {
		return utils.HandleError(c, err)
	}
	hasLocation := (input.URL != nil && *input.URL != "") || (input.FilePath != nil && *input.FilePath != "")
	if !hasLocation {
		return utils.ErrorJSON(c, fiber.StatusBadRequest, errors.New("url or ruta_archivo is required"))
	}

	resource := models.Resource{
		Title:  *input.Title,
		Type:   *input.Type,
		Active: true,
	}
	if input.URL != nil {
		resource.URL = *input.URL
	}
	if input.FilePath != nil {
		resource.FilePath = *input.FilePath
	}
	if input.Description != nil {
		resource.Description = *input.Description
	}
	if input.Difficulty != nil {
		resource.Difficulty = *input.Difficulty
	}
	if input.Author != nil {
		resource.Author = *input.Author
	}
	resource.DurationMinutes = input.DurationMinutes

	err := rc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&resource).Error; err != nil {
			return err
		}
		for _, conceptID := range input.ConceptIDs {
			var concept models.Concept
			if err := tx.First(&concept, conceptID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.ErrNotFound
				}
				return err
			}
			link := models.ResourceConcept{ResourceID: resource.ID, ConceptID: conceptID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resourceJSON(resource))
}

func (rc *ResourcesController) Update(c *fiber.Ctx) error {
	resourceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var resource models.Resource
	if err := rc.DB.First(&resource, resourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	var input resourceInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := rc.validate(input); err != nil {
		return utils.HandleError(c, err)
	}

	if input.Title != nil {
		resource.Title = *input.Title
	}
	if input.Type != nil {
		resource.Type = *input.Type
	}
	if input.URL != nil {
		resource.URL = *input.URL
	}
	if input.FilePath != nil {
		resource.FilePath = *input.FilePath
	}
	if input.Description != nil {
		resource.Description = *input.Description
	}
	if input.DurationMinutes != nil {
		resource.DurationMinutes = input.DurationMinutes
	}
	if input.Difficulty != nil {
		resource.Difficulty = *input.Difficulty
	}
	if input.Author != nil {
		resource.Author = *input.Author
	}

	if err := rc.DB.Save(&resource).Error; err != nil {
		return utils.HandleError(c, err)
	}

	// Replacing the tag set is also all-or-nothing.
	if input.ConceptIDs != nil {
		err := rc.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("resource_id = ?", resource.ID).Delete(&models.ResourceConcept{}).Error; err != nil {
				return err
			}
			for _, conceptID := range input.ConceptIDs {
				var concept models.Concept
				if err := tx.First(&concept, conceptID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return apperrors.ErrNotFound
					}
					return err
				}
				link := models.ResourceConcept{ResourceID: resource.ID, ConceptID: conceptID}
				if err := tx.Create(&link).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return utils.HandleError(c, err)
		}
	}
	return c.JSON(resourceJSON(resource))
}

// Delete removes a resource that no recommendation references. Recommended
// resources must stay visible to their students; deactivate those instead.
func (rc *ResourcesController) Delete(c *fiber.Ctx) error {
	resourceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var resource models.Resource
	if err := rc.DB.First(&resource, resourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	err = rc.DB.Transaction(func(tx *gorm.DB) error {
		var recRefs int64
		if err := tx.Model(&models.Recommendation{}).Where("resource_id = ?", resourceID).Count(&recRefs).Error; err != nil {
			return err
		}
		if recRefs > 0 {
			return apperrors.ErrResourceInUse
		}
		if err := tx.Where("resource_id = ?", resourceID).Delete(&models.ResourceConcept{}).Error; err != nil {
			return err
		}
		return tx.Delete(&resource).Error
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleActive flips the active flag. Inactive resources are excluded from
// new recommendation generation only; existing recommendations keep them.
func (rc *ResourcesController) ToggleActive(c *fiber.Ctx) error {
	resourceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var resource models.Resource
	if err := rc.DB.First(&resource, resourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	resource.Active = !resource.Active
	if err := rc.DB.Model(&resource).Update("active", resource.Active).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(resourceJSON(resource))
}

func (rc *ResourcesController) List(c *fiber.Ctx) error {
	query := rc.DB.Preload("Concepts").Order("id")
	if c.Query("include_inactive") != "true" {
		query = query.Where("active = ?", true)
	}

	var resources []models.Resource
	if err := query.Find(&resources).Error; err != nil {
		return utils.HandleError(c, err)
	}

	result := make([]fiber.Map, 0, len(resources))
	for _, resource := range resources {
		m := resourceJSON(resource)
		conceptIDs := make([]uint, 0, len(resource.Concepts))
		for _, link := range resource.Concepts {
			conceptIDs = append(conceptIDs, link.ConceptID)
		}
		m["concepto_ids"] = conceptIDs
		result = append(result, m)
	}
	return c.JSON(result)
}

// RecordInteraction stores how the calling student engaged with a resource.
func (rc *ResourcesController) RecordInteraction(c *fiber.Ctx) error {
	resourceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var resource models.Resource
	if err := rc.DB.First(&resource, resourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	type interactionInput struct {
		Kind           string `json:"tipo_interaccion"`
		Rating         *int   `json:"calificacion"`
		SecondsWatched *int   `json:"tiempo_visto_segundos"`
	}
	var input interactionInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if !models.ValidInteractionKind(input.Kind) {
		return utils.HandleError(c, apperrors.ErrInvalidEnum)
	}
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return utils.HandleError(c, apperrors.ErrValidation)
	}

	interaction := models.ResourceInteraction{
		StudentID:      currentUserID(c),
		ResourceID:     resourceID,
		Kind:           input.Kind,
		Rating:         input.Rating,
		SecondsWatched: input.SecondsWatched,
	}
	if err := rc.DB.Create(&interaction).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":               interaction.ID,
		"recurso_id":       interaction.ResourceID,
		"tipo_interaccion": interaction.Kind,
	})
}

func (rc *ResourcesController) ListInteractions(c *fiber.Ctx) error {
	resourceID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var interactions []models.ResourceInteraction
	if err := rc.DB.Where("resource_id = ?", resourceID).
		Order("created_at DESC").
		Find(&interactions).Error; err != nil {
		return utils.HandleError(c, err)
	}

	result := make([]fiber.Map, 0, len(interactions))
	for _, interaction := range interactions {
		result = append(result, fiber.Map{
			"id":                    interaction.ID,
			"estudiante_id":         interaction.StudentID,
			"recurso_id":            interaction.ResourceID,
			"tipo_interaccion":      interaction.Kind,
			"calificacion":          interaction.Rating,
			"tiempo_visto_segundos": interaction.SecondsWatched,
			"fecha_interaccion":     isoTime(interaction.CreatedAt),
		})
	}
	return c.JSON(result)
}
