package controllers

import (
	"errors"
	"time"

	"project/backend/apperrors"
	"project/backend/config"
	"project/backend/models"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type WorksController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewWorksController(db *gorm.DB, cfg *config.Config) *WorksController {
	return &WorksController{DB: db, Cfg: cfg}
}

func (wc *WorksController) CreateCourse(c *fiber.Ctx) error {
	type courseInput struct {
		Title string `json:"titulo"`
	}
	var input courseInput
	if err := c.BodyParser(&input); err != nil || input.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "titulo is required",
		})
	}

	course := models.Course{Title: input.Title, TeacherID: currentUserID(c)}
	if err := wc.DB.Create(&course).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         course.ID,
		"titulo":     course.Title,
		"teacher_id": course.TeacherID,
	})
}

type questionInput struct {
	Text    string `json:"texto"`
	Kind    string `json:"tipo"`
	Points  int    `json:"puntos"`
	Options []struct {
		Text      string `json:"texto"`
		IsCorrect bool   `json:"es_correcta"`
	} `json:"opciones"`
}

func validateQuestion(input questionInput) error {
	if input.Text == "" || !models.ValidQuestionKind(input.Kind) || input.Points < 1 {
		return apperrors.ErrInvalidQuestion
	}
	if input.Kind == models.QuestionMultipleChoice {
		if len(input.Options) < 2 {
			return apperrors.ErrInvalidQuestion
		}
		correct := false
		for _, option := range input.Options {
			if option.IsCorrect {
				correct = true
				break
			}
		}
		if !correct {
			return apperrors.ErrInvalidQuestion
		}
	}
	return nil
}

func (wc *WorksController) CreateTask(c *fiber.Ctx) error {
	type taskInput struct {
		Title       string `json:"titulo"`
		Description string `json:"descripcion"`
		DueDate     string `json:"fecha_limite"`
		CourseID    uint   `json:"course_id"`
		ConceptIDs  []uint `json:"concepto_ids"`
	}
	var input taskInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	return wc.createWork(c, models.WorkKindTask, input.Title, input.Description,
		input.DueDate, input.CourseID, "", input.ConceptIDs, nil)
}

func (wc *WorksController) CreateExam(c *fiber.Ctx) error {
	type examInput struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		ScheduledAt string          `json:"scheduled_at"`
		CourseID    uint            `json:"course_id"`
		PDFPath     string          `json:"pdf_path"`
		Questions   []questionInput `json:"questions_json"`
	}
	var input examInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	return wc.createWork(c, models.WorkKindExam, input.Title, input.Description,
		input.ScheduledAt, input.CourseID, input.PDFPath, nil, input.Questions)
}

func (wc *WorksController) createWork(c *fiber.Ctx, kind, title, description, when string,
	courseID uint, pdfPath string, conceptIDs []uint, questions []questionInput) error {

	if title == "" {
		return utils.ErrorJSON(c, fiber.StatusBadRequest, errors.New("title is required"))
	}
	dueAt, err := time.Parse(time.RFC3339, when)
	if err != nil {
		return utils.HandleError(c, apperrors.ErrInvalidDate)
	}

	user, err := requestUser(c, wc.DB)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var course models.Course
	if err := wc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}
	if user.Role != models.RoleAdmin && course.TeacherID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the course teacher can create works here",
		})
	}

	for _, question := range questions {
		if err := validateQuestion(question); err != nil {
			return utils.HandleError(c, err)
		}
	}

	work := models.Work{
		Title:       title,
		Description: description,
		Kind:        kind,
		DueAt:       dueAt.UTC(),
		CourseID:    courseID,
		PDFPath:     pdfPath,
	}

	err = wc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&work).Error; err != nil {
			return err
		}
		for _, conceptID := range conceptIDs {
			var concept models.Concept
			if err := tx.First(&concept, conceptID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.ErrNotFound
				}
				return err
			}
			link := models.WorkConcept{WorkID: work.ID, ConceptID: conceptID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		for i, question := range questions {
			if err := createQuestion(tx, work.ID, question, i+1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(workJSON(work))
}

func createQuestion(tx *gorm.DB, workID uint, input questionInput, order int) error {
	question := models.Question{
		WorkID:        workID,
		Text:          input.Text,
		Kind:          input.Kind,
		Points:        input.Points,
		SequenceOrder: order,
	}
	if err := tx.Create(&question).Error; err != nil {
		return err
	}
	if input.Kind != models.QuestionMultipleChoice {
		return nil
	}
	for i, option := range input.Options {
		record := models.QuestionOption{
			QuestionID:    question.ID,
			Text:          option.Text,
			IsCorrect:     option.IsCorrect,
			SequenceOrder: i + 1,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

func (wc *WorksController) Get(c *fiber.Ctx) error {
	workID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var work models.Work
	if err := wc.DB.Preload("Concepts").
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		First(&work, workID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	m := workJSON(work)
	conceptIDs := make([]uint, 0, len(work.Concepts))
	for _, link := range work.Concepts {
		conceptIDs = append(conceptIDs, link.ConceptID)
	}
	m["concepto_ids"] = conceptIDs
	if work.Kind == models.WorkKindExam {
		questions := make([]fiber.Map, 0, len(work.Questions))
		for _, question := range work.Questions {
			questions = append(questions, questionJSON(question))
		}
		m["questions"] = questions
	}
	return c.JSON(m)
}

func (wc *WorksController) ListByCourse(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var works []models.Work
	if err := wc.DB.Where("course_id = ?", courseID).Order("due_at").Find(&works).Error; err != nil {
		return utils.HandleError(c, err)
	}

	result := make([]fiber.Map, 0, len(works))
	for _, work := range works {
		result = append(result, workJSON(work))
	}
	return c.JSON(result)
}

// AssociateConcepts tags a work after creation. Idempotent: re-adding an
// existing tag is a no-op.
func (wc *WorksController) AssociateConcepts(c *fiber.Ctx) error {
	workID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var work models.Work
	if err := wc.DB.First(&work, workID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	user, err := requestUser(c, wc.DB)
	if err != nil {
		return utils.HandleError(c, err)
	}
	owns, err := ownsCourse(wc.DB, user, work.CourseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if !owns {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the course teacher can tag this work",
		})
	}

	type tagInput struct {
		ConceptIDs []uint `json:"concepto_ids"`
	}
	var input tagInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	err = wc.DB.Transaction(func(tx *gorm.DB) error {
		for _, conceptID := range input.ConceptIDs {
			var concept models.Concept
			if err := tx.First(&concept, conceptID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.ErrNotFound
				}
				return err
			}
			var existing models.WorkConcept
			err := tx.Where("work_id = ? AND concept_id = ?", workID, conceptID).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			link := models.WorkConcept{WorkID: workID, ConceptID: conceptID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.HandleError(c, err)
	}

	var links []models.WorkConcept
	if err := wc.DB.Where("work_id = ?", workID).Order("concept_id").Find(&links).Error; err != nil {
		return utils.HandleError(c, err)
	}
	result := make([]fiber.Map, 0, len(links))
	for _, link := range links {
		result = append(result, fiber.Map{
			"tarea_id":    link.WorkID,
			"concepto_id": link.ConceptID,
			"peso":        link.Weight,
		})
	}
	return c.JSON(result)
}

// Delete removes a work. Its recommendations persist sourceless: the
// originating-work reference is nullified, never the recommendation itself.
func (wc *WorksController) Delete(c *fiber.Ctx) error {
	workID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var work models.Work
	if err := wc.DB.Preload("Questions").First(&work, workID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	user, err := requestUser(c, wc.DB)
	if err != nil {
		return utils.HandleError(c, err)
	}
	owns, err := ownsCourse(wc.DB, user, work.CourseID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if !owns {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the course teacher can delete this work",
		})
	}

	err = wc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recommendation{}).
			Where("work_id = ?", workID).
			Update("work_id", nil).Error; err != nil {
			return err
		}
		for _, question := range work.Questions {
			if err := tx.Where("question_id = ?", question.ID).Delete(&models.QuestionOption{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("work_id = ?", workID).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("work_id = ?", workID).Delete(&models.WorkConcept{}).Error; err != nil {
			return err
		}
		if err := tx.Where("work_id = ?", workID).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&work).Error
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddQuestion appends a question to an exam with the next order index.
func (wc *WorksController) AddQuestion(c *fiber.Ctx) error {
	work, status := wc.examForTeacher(c)
	if work == nil {
		return status
	}

	var input questionInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validateQuestion(input); err != nil {
		return utils.HandleError(c, err)
	}

	var created models.Question
	err := wc.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Question{}).Where("work_id = ?", work.ID).Count(&count).Error; err != nil {
			return err
		}
		if err := createQuestion(tx, work.ID, input, int(count)+1); err != nil {
			return err
		}
		return tx.Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
			Where("work_id = ?", work.ID).
			Order("sequence_order DESC").
			First(&created).Error
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(questionJSON(created))
}

// UpdateQuestion replaces a question's content and option set, holding the
// same invariants as creation.
func (wc *WorksController) UpdateQuestion(c *fiber.Ctx) error {
	work, status := wc.examForTeacher(c)
	if work == nil {
		return status
	}
	questionID, err := paramID(c, "questionId")
	if err != nil {
		return err
	}

	var question models.Question
	if err := wc.DB.Where("id = ? AND work_id = ?", questionID, work.ID).First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	var input questionInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if err := validateQuestion(input); err != nil {
		return utils.HandleError(c, err)
	}

	err = wc.DB.Transaction(func(tx *gorm.DB) error {
		question.Text = input.Text
		question.Kind = input.Kind
		question.Points = input.Points
		if err := tx.Save(&question).Error; err != nil {
			return err
		}
		if err := tx.Where("question_id = ?", question.ID).Delete(&models.QuestionOption{}).Error; err != nil {
			return err
		}
		if input.Kind != models.QuestionMultipleChoice {
			return nil
		}
		for i, option := range input.Options {
			record := models.QuestionOption{
				QuestionID:    question.ID,
				Text:          option.Text,
				IsCorrect:     option.IsCorrect,
				SequenceOrder: i + 1,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return utils.HandleError(c, err)
	}

	if err := wc.DB.Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("sequence_order") }).
		First(&question, question.ID).Error; err != nil {
		return utils.HandleError(c, err)
	}
	return c.JSON(questionJSON(question))
}

// DeleteQuestion removes a question and renumbers the rest contiguously.
func (wc *WorksController) DeleteQuestion(c *fiber.Ctx) error {
	work, status := wc.examForTeacher(c)
	if work == nil {
		return status
	}
	questionID, err := paramID(c, "questionId")
	if err != nil {
		return err
	}

	var question models.Question
	if err := wc.DB.Where("id = ? AND work_id = ?", questionID, work.ID).First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.HandleError(c, apperrors.ErrNotFound)
		}
		return utils.HandleError(c, err)
	}

	err = wc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", question.ID).Delete(&models.QuestionOption{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&question).Error; err != nil {
			return err
		}
		var remaining []models.Question
		if err := tx.Where("work_id = ?", work.ID).Order("sequence_order").Find(&remaining).Error; err != nil {
			return err
		}
		for i := range remaining {
			if remaining[i].SequenceOrder != i+1 {
				if err := tx.Model(&remaining[i]).Update("sequence_order", i+1).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return utils.HandleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// examForTeacher loads the exam in :id and checks course ownership. On
// failure the error response has already been written.
func (wc *WorksController) examForTeacher(c *fiber.Ctx) (*models.Work, error) {
	workID, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}

	var work models.Work
	if err := wc.DB.First(&work, workID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.HandleError(c, apperrors.ErrNotFound)
		}
		return nil, utils.HandleError(c, err)
	}
	if work.Kind != models.WorkKindExam {
		return nil, utils.HandleError(c, apperrors.ErrInvalidQuestion)
	}

	user, err := requestUser(c, wc.DB)
	if err != nil {
		return nil, utils.HandleError(c, err)
	}
	owns, err := ownsCourse(wc.DB, user, work.CourseID)
	if err != nil {
		return nil, utils.HandleError(c, err)
	}
	if !owns {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the course teacher can edit exam questions",
		})
	}
	return &work, nil
}
