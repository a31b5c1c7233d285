package controllers

import (
	"strconv"
	"time"

	"project/backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

func requestUser(c *fiber.Ctx, db *gorm.DB) (models.User, error) {
	var user models.User
	err := db.First(&user, currentUserID(c)).Error
	return user, err
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id < 1 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

// ownsCourse reports whether the user may act on works of the course: the
// owning teacher or an admin.
func ownsCourse(db *gorm.DB, user models.User, courseID uint) (bool, error) {
	if user.Role == models.RoleAdmin {
		return true, nil
	}
	var course models.Course
	if err := db.First(&course, courseID).Error; err != nil {
		return false, err
	}
	return course.TeacherID == user.ID, nil
}

// The wire contract below is what the web client already relies on: Spanish
// field names, ISO-8601 timestamps without fractional seconds.

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func isoTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return isoTime(*t)
}

func conceptJSON(concept models.Concept) fiber.Map {
	return fiber.Map{
		"id":          concept.ID,
		"nombre":      concept.Name,
		"descripcion": concept.Description,
		"categoria":   concept.Category,
		"nivel":       concept.Level,
	}
}

func resourceJSON(resource models.Resource) fiber.Map {
	return fiber.Map{
		"id":               resource.ID,
		"titulo":           resource.Title,
		"tipo":             resource.Type,
		"url":              resource.URL,
		"ruta_archivo":     resource.FilePath,
		"descripcion":      resource.Description,
		"duracion_minutos": resource.DurationMinutes,
		"nivel_dificultad": resource.Difficulty,
		"autor":            resource.Author,
		"activo":           resource.Active,
	}
}

func workJSON(work models.Work) fiber.Map {
	m := fiber.Map{
		"id":          work.ID,
		"titulo":      work.Title,
		"descripcion": work.Description,
		"kind":        work.Kind,
		"course_id":   work.CourseID,
	}
	if work.Kind == models.WorkKindExam {
		m["scheduled_at"] = isoTime(work.DueAt)
		if work.PDFPath != "" {
			m["ruta_pdf"] = work.PDFPath
		}
	} else {
		m["fecha_limite"] = isoTime(work.DueAt)
	}
	return m
}

func questionJSON(q models.Question) fiber.Map {
	opciones := make([]fiber.Map, 0, len(q.Options))
	for _, o := range q.Options {
		opciones = append(opciones, fiber.Map{
			"id":          o.ID,
			"texto":       o.Text,
			"es_correcta": o.IsCorrect,
			"orden":       o.SequenceOrder,
		})
	}
	return fiber.Map{
		"id":       q.ID,
		"texto":    q.Text,
		"tipo":     q.Kind,
		"puntos":   q.Points,
		"orden":    q.SequenceOrder,
		"opciones": opciones,
	}
}

func submissionJSON(sub models.Submission) fiber.Map {
	return fiber.Map{
		"id":            sub.ID,
		"task_id":       sub.WorkID,
		"student_id":    sub.StudentID,
		"content":       sub.Content,
		"submitted_at":  isoTime(sub.SubmittedAt),
		"grade":         sub.Grade,
		"feedback":      sub.Feedback,
		"graded_at":     isoTimePtr(sub.GradedAt),
	}
}

func recommendationJSON(rec models.Recommendation) fiber.Map {
	m := fiber.Map{
		"id":                  rec.ID,
		"vista":               rec.State != models.RecommendationUnseen,
		"fecha_vista":         isoTimePtr(rec.SeenAt),
		"fecha_recomendacion": isoTime(rec.CreatedAt),
		"recurso":             resourceJSON(rec.Resource),
	}
	if rec.Work != nil {
		m["tarea"] = fiber.Map{
			"id":          rec.Work.ID,
			"titulo":      rec.Work.Title,
			"descripcion": rec.Work.Description,
		}
	} else {
		m["tarea"] = nil
	}
	return m
}
