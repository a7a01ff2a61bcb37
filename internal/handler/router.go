package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/liyun-dev/campus-sis-api/internal/middleware"
	"github.com/liyun-dev/campus-sis-api/internal/models"
	"github.com/liyun-dev/campus-sis-api/internal/repository"
	"github.com/liyun-dev/campus-sis-api/internal/service"
)

// Router bundles every handler and mounts the API surface.
type Router struct {
	auth        *AuthHandler
	users       *UserHandler
	students    *StudentHandler
	departments *DepartmentHandler
	majors      *MajorHandler
	courses     *CourseHandler
	enrollments *EnrollmentHandler
	transcripts *TranscriptHandler
	dashboard   *DashboardHandler
	exports     *ExportHandler
	metrics     *MetricsHandler

	authService *service.AuthService
	metricsSvc  *service.MetricsService
	auditRepo   *repository.UserRepository
}

// NewRouter wires handlers from the service layer.
func NewRouter(
	authSvc *service.AuthService,
	users *service.UserService,
	students *service.StudentService,
	departments *service.DepartmentService,
	majors *service.MajorService,
	courses *service.CourseService,
	enrollments *service.EnrollmentService,
	transcripts *service.TranscriptService,
	dashboard *service.DashboardService,
	exports *service.ExportService,
	metrics *service.MetricsService,
	auditRepo *repository.UserRepository,
) *Router {
	return &Router{
		auth:        NewAuthHandler(authSvc, users),
		users:       NewUserHandler(users),
		students:    NewStudentHandler(students),
		departments: NewDepartmentHandler(departments),
		majors:      NewMajorHandler(majors),
		courses:     NewCourseHandler(courses),
		enrollments: NewEnrollmentHandler(enrollments),
		transcripts: NewTranscriptHandler(transcripts, students),
		dashboard:   NewDashboardHandler(dashboard),
		exports:     NewExportHandler(exports),
		metrics:     NewMetricsHandler(metrics),
		authService: authSvc,
		metricsSvc:  metrics,
		auditRepo:   auditRepo,
	}
}

// SetupRoutes mounts every route group on the engine.
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.GET("/health", r.metrics.Health)
	engine.GET("/ready", r.metrics.Health)
	engine.GET("/metrics", r.metrics.Prometheus)

	jwt := middleware.JWT(r.authService)
	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleStudent)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	v1 := engine.Group("/api/v1")
	v1.Use(middleware.Metrics(r.metricsSvc))
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.auth.Login)
			auth.POST("/register", r.auth.Register)
			auth.POST("/refresh", r.auth.Refresh)
			auth.POST("/logout", jwt, r.auth.Logout)
			auth.PUT("/password", jwt, r.auth.ChangePassword)
			auth.GET("/me", jwt, r.auth.Me)
		}

		users := v1.Group("/users", jwt, admin)
		{
			users.GET("", r.users.List)
			users.POST("", r.users.Create)
			users.GET("/:id", r.users.Get)
			users.PUT("/:id", r.users.Update)
			users.DELETE("/:id", r.users.Delete)
		}

		students := v1.Group("/students", jwt)
		{
			students.GET("", staff, r.students.List)
			students.GET("/me", studentOnly, r.students.Me)
			students.GET("/me/transcript", studentOnly, r.transcripts.MySummary)
			students.GET("/me/transcript/history", studentOnly, r.transcripts.MyHistory)
			students.GET("/orphans", admin, r.students.Orphans)
			students.POST("/orphans/:userId/provision", admin, r.students.QuickProvision)
			students.GET("/:id", staff, r.students.Get)
			students.PUT("/:id", admin, r.students.Update)
			students.DELETE("/:id", admin, r.students.Delete)
			students.GET("/:id/transcript", staff, r.transcripts.Summary)
			students.GET("/:id/transcript/history", staff, r.transcripts.History)
		}

		departments := v1.Group("/departments", jwt)
		{
			departments.GET("", anyRole, r.departments.List)
			departments.GET("/:id", anyRole, r.departments.Get)
			departments.POST("", admin, r.departments.Create)
			departments.PUT("/:id", admin, r.departments.Update)
			departments.DELETE("/:id", admin, r.departments.Delete)
		}

		majors := v1.Group("/majors", jwt)
		{
			majors.GET("", anyRole, r.majors.List)
			majors.GET("/:id", anyRole, r.majors.Get)
			majors.POST("", admin, r.majors.Create)
			majors.PUT("/:id", admin, r.majors.Update)
			majors.DELETE("/:id", admin, r.majors.Delete)
		}

		courses := v1.Group("/courses", jwt)
		{
			courses.GET("", anyRole, r.courses.List)
			courses.GET("/:id", anyRole, r.courses.Get)
			courses.POST("", admin, r.courses.Create)
			courses.PUT("/:id", admin, r.courses.Update)
			courses.DELETE("/:id", admin, r.courses.Delete)
		}

		enrollments := v1.Group("/enrollments", jwt)
		{
			enrollments.GET("", staff, r.enrollments.List)
			enrollments.POST("", admin, r.enrollments.Enroll)
			enrollments.POST("/self", studentOnly, r.enrollments.SelfEnroll)
			enrollments.GET("/:id", staff, r.enrollments.Get)
			enrollments.PUT("/:id/grade", staff, r.enrollments.SetGrade)
			enrollments.DELETE("/:id", admin, r.enrollments.Delete)
		}

		dashboard := v1.Group("/dashboard", jwt, admin)
		{
			dashboard.GET("", r.dashboard.Summary)
			dashboard.GET("/metrics", r.metrics.Snapshot)
		}

		exports := v1.Group("/exports")
		{
			exportAudit := middleware.Audit(r.auditRepo, models.AuditActionExportRequest, "exports")
			// Download authenticates via the signed token, not the JWT, so
			// links can be handed to a browser.
			exports.GET("/download", r.exports.Download)
			exports.POST("/roster", jwt, staff, exportAudit, r.exports.RequestRoster)
			exports.POST("/transcripts/:id", jwt, staff, exportAudit, r.exports.RequestTranscript)
			exports.GET("/:id", jwt, staff, r.exports.Status)
		}
	}
}
