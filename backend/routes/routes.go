package routes

import (
	"project/backend/config"
	"project/backend/controllers"
	"project/backend/middleware"
	"project/backend/models"
	"project/backend/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, logger *zap.SugaredLogger, cfg *config.Config) {
	// Services
	recService := services.NewRecommendationService(db, logger, cfg.RemediationThreshold)
	gradingService := services.NewGradingService(db, logger, recService)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminOnly := middleware.RequireRole(db, models.RoleAdmin)
	staffOnly := middleware.RequireRole(db, models.RoleAdmin, models.RoleTeacher)
	studentOnly := middleware.RequireRole(db, models.RoleStudent)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Concept routes
	conceptsController := controllers.NewConceptsController(db, cfg)
	concepts := app.Group("/api/conceptos", authMiddleware)
	concepts.Get("/", conceptsController.List)
	concepts.Post("/", adminOnly, conceptsController.Create)
	concepts.Put("/:id", adminOnly, conceptsController.Update)
	concepts.Delete("/:id", adminOnly, conceptsController.Delete)

	// Resource catalog routes
	resourcesController := controllers.NewResourcesController(db, cfg)
	resources := app.Group("/api/recursos", authMiddleware)
	resources.Get("/", resourcesController.List)
	resources.Post("/", adminOnly, resourcesController.Create)
	resources.Put("/:id", adminOnly, resourcesController.Update)
	resources.Delete("/:id", adminOnly, resourcesController.Delete)
	resources.Patch("/:id/activo", adminOnly, resourcesController.ToggleActive)
	resources.Post("/:id/interacciones", studentOnly, resourcesController.RecordInteraction)
	resources.Get("/:id/interacciones", staffOnly, resourcesController.ListInteractions)

	// Course and work routes
	worksController := controllers.NewWorksController(db, cfg)
	submissionsController := controllers.NewSubmissionsController(db, cfg, gradingService)
	app.Post("/api/courses", authMiddleware, staffOnly, worksController.CreateCourse)
	app.Get("/api/courses/:id/works", authMiddleware, worksController.ListByCourse)

	tasks := app.Group("/api/tasks", authMiddleware)
	tasks.Post("/", staffOnly, worksController.CreateTask)
	tasks.Get("/:id", worksController.Get)
	tasks.Delete("/:id", staffOnly, worksController.Delete)
	tasks.Post("/:id/conceptos", staffOnly, worksController.AssociateConcepts)
	tasks.Post("/:id/submissions", studentOnly, submissionsController.Submit)
	tasks.Get("/:id/submissions", staffOnly, submissionsController.ListForWork)
	tasks.Get("/:id/submissions/mine", studentOnly, submissionsController.GetMine)

	exams := app.Group("/api/exams", authMiddleware, staffOnly)
	exams.Post("/", worksController.CreateExam)
	exams.Post("/:id/questions", worksController.AddQuestion)
	exams.Put("/:id/questions/:questionId", worksController.UpdateQuestion)
	exams.Delete("/:id/questions/:questionId", worksController.DeleteQuestion)

	// Submission routes
	submissions := app.Group("/api/submissions", authMiddleware)
	submissions.Get("/:id", submissionsController.Get)
	submissions.Put("/:id/grade", staffOnly, submissionsController.Grade)

	// Recommendation routes
	recommendationsController := controllers.NewRecommendationsController(db, cfg, recService)
	recommendations := app.Group("/api/recomendaciones", authMiddleware)
	recommendations.Get("/", studentOnly, recommendationsController.ListMine)
	recommendations.Patch("/:id/view", studentOnly, recommendationsController.MarkSeen)
	recommendations.Delete("/:id", studentOnly, recommendationsController.Dismiss)
	recommendations.Get("/estudiante/:studentId", staffOnly, recommendationsController.ListForStudent)
}
