package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/acadex/acadex-api/database"
	"github.com/acadex/acadex-api/handlers"
	analytics_handlers "github.com/acadex/acadex-api/handlers/analytics"
	auth_handlers "github.com/acadex/acadex-api/handlers/auth"
	department_handlers "github.com/acadex/acadex-api/handlers/department"
	grade_handlers "github.com/acadex/acadex-api/handlers/grade"
	subject_handlers "github.com/acadex/acadex-api/handlers/subject"
	user_handlers "github.com/acadex/acadex-api/handlers/user"
	"github.com/acadex/acadex-api/services"
	"github.com/acadex/acadex-api/utils"
	"github.com/acadex/acadex-api/utils/auth"
	"github.com/acadex/acadex-api/utils/cache"
	"github.com/acadex/acadex-api/utils/middleware"
)

func SetupRoutes(app *fiber.App, store database.Storage) {
	// Get JWT secret from environment
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "acadex-api"
	}

	// Initialize JWT manager with config
	jwtConfig := auth.JWTConfig{
		Secret:        jwtSecret,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Initialize Redis cache for brute force protection and analytics
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection and analytics caching will be disabled.", err)
	}

	// Initialize brute force protection
	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	// Initialize auth middleware with DB for blacklist checking
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Initialize services
	auditService := services.NewAuditService(db)
	gradeService := services.NewGradeService(db, auditService)
	aggregationService := services.NewAggregationService(db)
	analyticsService := services.NewAnalyticsService(db, redisCache, aggregationService)

	// Initialize handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	userHandler := user_handlers.NewUserHandler(db, auditService)
	departmentHandler := department_handlers.NewDepartmentHandler(db, auditService)
	subjectHandler := subject_handlers.NewSubjectHandler(db, auditService)
	gradeHandler := grade_handlers.NewGradeHandler(db, gradeService, aggregationService, analyticsService)
	analyticsHandler := analytics_handlers.NewAnalyticsHandler(db, analyticsService)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.HandleCheckHealth, store))

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Put("/", authHandler.UpdateProfile)

	// User management routes
	users := api.Group("/users", authMiddleware.Required())
	users.Get("/", authMiddleware.RequireStaff(), userHandler.ListUsers)                // Staff: scoped listing
	users.Post("/", authMiddleware.RequireAdmin(), userHandler.CreateUser)              // Admin only
	users.Post("/bulk", authMiddleware.RequireAdmin(), userHandler.BulkCreateUsers)     // Admin only
	users.Get("/:id", userHandler.GetUser)                                              // Policy-gated in handler
	users.Put("/:id", authMiddleware.RequireAdmin(), userHandler.UpdateUser)            // Admin only
	users.Delete("/:id", authMiddleware.RequireAdmin(), userHandler.DeleteUser)         // Admin only

	// Department routes
	departments := api.Group("/departments", authMiddleware.Required())
	departments.Get("/", departmentHandler.ListDepartments)
	departments.Get("/:id", departmentHandler.GetDepartment)
	departments.Post("/", authMiddleware.RequireAdmin(), departmentHandler.CreateDepartment)
	departments.Put("/:id", authMiddleware.RequireAdmin(), departmentHandler.UpdateDepartment)
	departments.Put("/:id/hod", authMiddleware.RequireAdmin(), departmentHandler.AssignHOD)
	departments.Delete("/:id", authMiddleware.RequireAdmin(), departmentHandler.DeleteDepartment)

	// Subject routes (create/update/delete are admin-or-owning-HOD, enforced
	// in the handler)
	subjects := api.Group("/subjects", authMiddleware.Required())
	subjects.Get("/", subjectHandler.ListSubjects)
	subjects.Get("/:id", subjectHandler.GetSubject)
	subjects.Post("/", authMiddleware.RequireRole("admin", "hod"), subjectHandler.CreateSubject)
	subjects.Post("/bulk", authMiddleware.RequireRole("admin", "hod"), subjectHandler.BulkCreateSubjects)
	subjects.Put("/:id", authMiddleware.RequireRole("admin", "hod"), subjectHandler.UpdateSubject)
	subjects.Delete("/:id", authMiddleware.RequireRole("admin", "hod"), subjectHandler.DeleteSubject)
	subjects.Post("/:id/grades/publish", authMiddleware.RequireStaff(), gradeHandler.PublishSubjectGrades)

	// Grade routes. The "my" routes must be mounted before ":id".
	grades := api.Group("/grades", authMiddleware.Required())
	grades.Get("/my", gradeHandler.MyGrades)
	grades.Get("/my/cgpa", gradeHandler.MyCGPA)
	grades.Get("/", gradeHandler.ListGrades)
	grades.Post("/", authMiddleware.RequireStaff(), gradeHandler.UpsertGrade)
	grades.Post("/bulk", authMiddleware.RequireStaff(), gradeHandler.BulkUpsertGrades)
	grades.Get("/:id", gradeHandler.GetGrade)
	grades.Post("/:id/publish", authMiddleware.RequireStaff(), gradeHandler.PublishGrade)
	grades.Delete("/:id", authMiddleware.RequireStaff(), gradeHandler.DeleteGrade)

	// Student results for staff
	api.Get("/students/:id/cgpa", authMiddleware.Required(), authMiddleware.RequireStaff(), gradeHandler.StudentCGPA)

	// Analytics routes
	analytics := api.Group("/analytics", authMiddleware.Required())
	analytics.Get("/dashboard", analyticsHandler.Dashboard)
	analytics.Get("/trends", authMiddleware.RequireStaff(), analyticsHandler.Trends)
	analytics.Get("/subjects/:id", authMiddleware.RequireStaff(), analyticsHandler.SubjectPerformance)
	analytics.Get("/departments/:id", authMiddleware.RequireStaff(), analyticsHandler.DepartmentPerformance)
}
