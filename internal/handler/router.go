package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/campusflow/ums-api/internal/middleware"
	"github.com/campusflow/ums-api/internal/models"
	"github.com/campusflow/ums-api/internal/service"
	"github.com/campusflow/ums-api/pkg/config"
	"github.com/campusflow/ums-api/pkg/logger"
	corsmiddleware "github.com/campusflow/ums-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusflow/ums-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth        *AuthHandler
	Departments *DepartmentHandler
	Courses     *CourseHandler
	Lecturers   *LecturerHandler
	Students    *StudentHandler
	Sessions    *ClassSessionHandler
	Enrollments *EnrollmentHandler
	Reports     *ReportHandler
	Metrics     *MetricsHandler
}

// NewRouter assembles the gin engine with middleware and all routes.
func NewRouter(cfg *config.Config, logr *zap.Logger, authSvc *service.AuthService, metricsSvc *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", h.Auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)

	departments := authed.Group("/departments")
	{
		departments.GET("", h.Departments.List)
		departments.GET("/:id", h.Departments.Get)
		departments.POST("", staff, h.Departments.Create)
		departments.PUT("/:id", staff, h.Departments.Update)
		departments.DELETE("/:id", staff, h.Departments.Delete)
	}

	courses := authed.Group("/courses")
	{
		courses.GET("", h.Courses.List)
		courses.GET("/:id", h.Courses.Get)
		courses.POST("", staff, h.Courses.Create)
		courses.PUT("/:id", staff, h.Courses.Update)
		courses.DELETE("/:id", staff, h.Courses.Delete)
	}

	lecturers := authed.Group("/lecturers")
	{
		lecturers.GET("", h.Lecturers.List)
		lecturers.GET("/:id", h.Lecturers.Get)
		lecturers.POST("", staff, h.Lecturers.Create)
		lecturers.PUT("/:id", staff, h.Lecturers.Update)
		lecturers.DELETE("/:id", staff, h.Lecturers.Delete)
		lecturers.POST("/:id/courses/:courseId", staff, h.Lecturers.AssignCourse)
		lecturers.DELETE("/:id/courses/:courseId", staff, h.Lecturers.UnassignCourse)
	}

	students := authed.Group("/students")
	{
		students.GET("", h.Students.List)
		students.GET("/:id", h.Students.Get)
		students.GET("/:id/schedule", h.Students.Schedule)
		students.POST("", staff, h.Students.Create)
		students.PUT("/:id", staff, h.Students.Update)
		students.DELETE("/:id", staff, h.Students.Delete)
	}

	sessions := authed.Group("/sessions")
	{
		sessions.GET("", h.Sessions.List)
		sessions.GET("/:id", h.Sessions.Get)
		sessions.GET("/:id/seats", h.Sessions.Seats)
		sessions.POST("", staff, h.Sessions.Create)
		sessions.PUT("/:id", staff, h.Sessions.Update)
		sessions.DELETE("/:id", staff, h.Sessions.Delete)
	}

	enrollments := authed.Group("/enrollments")
	{
		enrollments.POST("", h.Enrollments.Enroll)
		enrollments.DELETE("/:studentId/:sessionId", h.Enrollments.Withdraw)
	}

	reports := authed.Group("/reports")
	{
		reports.POST("/students/:id", h.Reports.Generate)
		reports.POST("/students/:id/async", h.Reports.Enqueue)
		reports.GET("/jobs/:jobId", h.Reports.JobStatus)
		reports.POST("/bulk", staff, h.Reports.GenerateBulk)
		reports.GET("/files/:name", h.Reports.Download)
	}

	return r
}
