package analytics

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/acadex/acadex-api/services"
	"github.com/acadex/acadex-api/utils/middleware"
	"github.com/acadex/acadex-api/utils/response"
)

// AnalyticsHandler handles reporting requests
type AnalyticsHandler struct {
	db        *gorm.DB
	analytics *services.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(db *gorm.DB, analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		db:        db,
		analytics: analytics,
	}
}

// Dashboard handles GET /api/v1/analytics/dashboard. The payload shape
// depends on the actor's role.
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	stats, err := h.analytics.Dashboard(c.Context(), actor)
	if err != nil {
		return response.AppError(c, err)
	}

	return response.Success(c, stats)
}

// SubjectPerformance handles GET /api/v1/analytics/subjects/:id
func (h *AnalyticsHandler) SubjectPerformance(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid subject ID")
	}

	filters := gradeFilters(c)
	result, err := h.analytics.SubjectPerformance(c.Context(), actor, uint(id), filters)
	if err != nil {
		return response.AppError(c, err)
	}

	return response.Success(c, result)
}

// DepartmentPerformance handles GET /api/v1/analytics/departments/:id
func (h *AnalyticsHandler) DepartmentPerformance(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid department ID")
	}

	filters := gradeFilters(c)
	result, err := h.analytics.DepartmentPerformance(c.Context(), actor, uint(id), filters)
	if err != nil {
		return response.AppError(c, err)
	}

	return response.Success(c, result)
}

// Trends handles GET /api/v1/analytics/trends?months=6
func (h *AnalyticsHandler) Trends(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	months, _ := strconv.Atoi(c.Query("months", "6"))
	buckets, err := h.analytics.TrendReport(c.Context(), actor, months)
	if err != nil {
		return response.AppError(c, err)
	}

	return response.Success(c, buckets)
}

func gradeFilters(c *fiber.Ctx) services.GradeFilters {
	semester, _ := strconv.Atoi(c.Query("semester", "0"))
	return services.GradeFilters{
		Semester:     semester,
		AcademicYear: c.Query("academic_year", ""),
	}
}
