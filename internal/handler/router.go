package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/classrecord/classrecord-api/internal/middleware"
	"github.com/classrecord/classrecord-api/internal/models"
	"github.com/classrecord/classrecord-api/internal/service"
	"github.com/classrecord/classrecord-api/pkg/config"
	"github.com/classrecord/classrecord-api/pkg/logger"
	corsmiddleware "github.com/classrecord/classrecord-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classrecord/classrecord-api/pkg/middleware/requestid"
)

// Handlers bundles everything the router needs.
type Handlers struct {
	Auth       *AuthHandler
	Class      *ClassHandler
	Roster     *RosterHandler
	Attendance *AttendanceHandler
	Admin      *AdminHandler

	AuthService    *service.AuthService
	MetricsService *service.MetricsService
}

// NewRouter builds the gin engine with all middleware and routes wired.
func NewRouter(cfg *config.Config, logr *zap.Logger, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(h.MetricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(h.MetricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)

		authed := auth.Group("", middleware.JWT(h.AuthService))
		authed.POST("/logout", h.Auth.Logout)
		authed.POST("/change-password", h.Auth.ChangePassword)
	}

	protected := api.Group("", middleware.JWT(h.AuthService))

	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)

	classes := protected.Group("/classes")
	{
		classes.GET("", h.Class.List)
		classes.POST("", staff, h.Class.Create)
		classes.GET("/:id", staff, h.Class.Get)
		classes.PUT("/:id", staff, h.Class.Update)
		classes.DELETE("/:id", staff, h.Class.Delete)

		classes.POST("/:id/lessons", staff, h.Class.AddLesson)
		classes.DELETE("/:id/lessons/:key", staff, h.Class.RemoveLesson)
		classes.GET("/:id/weights", staff, h.Class.Weights)
		classes.GET("/:id/export", staff, h.Class.Export)

		classes.GET("/:id/students", staff, h.Roster.List)
		classes.POST("/:id/students", staff, h.Roster.Enlist)
		classes.PUT("/:id/students/score", staff, h.Roster.PutScore)
		classes.DELETE("/:id/students/:lrn", staff, h.Roster.Remove)
		classes.POST("/:id/recalculate", staff, h.Roster.Recalculate)
	}

	protected.GET("/enrollments/by-lrn/:lrn",
		middleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), middleware.SelfRole),
		h.Roster.EnrollmentsByLRN)

	attendance := protected.Group("/attendance")
	{
		attendance.GET("/issues/:classId", staff, h.Attendance.Issues)
		attendance.GET("/issues/:classId/export", staff, h.Attendance.ExportIssues)
		attendance.GET("/summary/:classId/:dateKey", staff, h.Attendance.Summary)
		attendance.GET("/history/:classId/:lrn",
			middleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), middleware.SelfRole),
			h.Attendance.History)
		attendance.GET("/:classId/:dateKey", staff, h.Attendance.Day)
		attendance.PUT("/:classId/:dateKey", staff, h.Attendance.Mark)
	}

	admin := protected.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/teachers", h.Admin.CreateTeacher)
		admin.GET("/teachers", h.Admin.ListTeachers)
		admin.PATCH("/teachers/:username/reset-password", h.Admin.ResetTeacherPassword)
		admin.PATCH("/teachers/:username/disable", h.Admin.DisableTeacher)
		admin.PATCH("/teachers/:username/enable", h.Admin.EnableTeacher)

		admin.GET("/students", h.Admin.ListStudents)
		admin.PATCH("/students/:lrn/reset-password", h.Admin.ResetStudentPassword)
		admin.PATCH("/students/:lrn/disable", h.Admin.DisableStudent)
		admin.PATCH("/students/:lrn/enable", h.Admin.EnableStudent)
		admin.DELETE("/students/:lrn", h.Admin.DeleteStudent)
	}

	return r
}
