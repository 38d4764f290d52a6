package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Awais68/school-lms-backend/internal/authz"
	"github.com/Awais68/school-lms-backend/internal/config"
	"github.com/Awais68/school-lms-backend/internal/controllers"
	"github.com/Awais68/school-lms-backend/internal/middleware"
	"github.com/Awais68/school-lms-backend/internal/models"
	"github.com/Awais68/school-lms-backend/internal/ws"
)

// Register wires every endpoint onto the engine. Role middleware keeps
// the obvious cases out at the door; record-level access decisions
// live in the authorization gate called by the handlers.
func Register(r *gin.Engine, db *mongo.Database, cfg *config.Config, gate *authz.Gate, hub *ws.Hub) {
	r.Use(cors.New(corsConfig(cfg)))

	authCtrl := controllers.NewAuthController(db, cfg)
	studentCtrl := controllers.NewStudentController(db, gate)
	teacherCtrl := controllers.NewTeacherController(db)
	courseCtrl := controllers.NewCourseController(db, gate)
	attendanceCtrl := controllers.NewAttendanceController(db, gate, hub)
	gradeCtrl := controllers.NewGradeController(db, gate, hub)
	assignmentCtrl := controllers.NewAssignmentController(db, gate)
	quizCtrl := controllers.NewQuizController(db, gate)
	feeCtrl := controllers.NewFeeController(db, gate, hub)
	transportCtrl := controllers.NewTransportController(db, hub)
	inventoryCtrl := controllers.NewInventoryController(db, hub)
	libraryCtrl := controllers.NewLibraryController(db, gate, hub)
	expenseCtrl := controllers.NewExpenseController(db)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	// Public
	r.POST("/auth/login", authCtrl.Login)

	authMW := middleware.AuthRequired(cfg.JWTSecret)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleTeacher)

	api := r.Group("", authMW)
	{
		api.GET("/auth/me", authCtrl.Me)
		api.POST("/auth/register", adminOnly, authCtrl.Register)

		students := api.Group("/students")
		{
			students.POST("", adminOnly, studentCtrl.Create)
			students.GET("", staff, studentCtrl.List)
			students.GET("/:id", studentCtrl.Get)
			students.PUT("/:id", adminOnly, studentCtrl.Update)
			students.DELETE("/:id", adminOnly, studentCtrl.Deactivate)
		}

		teachers := api.Group("/teachers", adminOnly)
		{
			teachers.POST("", teacherCtrl.Create)
			teachers.GET("", teacherCtrl.List)
			teachers.GET("/:id", teacherCtrl.Get)
			teachers.PUT("/:id", teacherCtrl.Update)
			teachers.DELETE("/:id", teacherCtrl.Deactivate)
		}

		courses := api.Group("/courses")
		{
			courses.POST("", adminOnly, courseCtrl.Create)
			courses.GET("", staff, courseCtrl.List)
			courses.GET("/:id", staff, courseCtrl.Get)
			courses.PUT("/:id", adminOnly, courseCtrl.Update)
			courses.DELETE("/:id", adminOnly, courseCtrl.Delete)
			courses.POST("/:id/enroll", staff, courseCtrl.Enroll)
			courses.DELETE("/:id/enroll/:studentId", staff, courseCtrl.Unenroll)
			courses.GET("/:id/assignments", assignmentCtrl.ListByCourse)
			courses.GET("/:id/quizzes", quizCtrl.ListByCourse)
		}

		attendance := api.Group("/attendance")
		{
			attendance.POST("/mark", staff, attendanceCtrl.Mark)
			attendance.POST("/biometric-sync", adminOnly, attendanceCtrl.BiometricSync)
			attendance.GET("/student/:studentId", attendanceCtrl.StudentAttendance)
			attendance.GET("/class/:classId", staff, attendanceCtrl.ClassAttendance)
			attendance.GET("/class/:classId/export", staff, attendanceCtrl.ExportClass)
			attendance.GET("/course/:courseId", staff, attendanceCtrl.CourseDay)
			attendance.PUT("/:id", staff, attendanceCtrl.Update)
			attendance.DELETE("/:id", adminOnly, attendanceCtrl.Delete)
		}

		grades := api.Group("/grades")
		{
			grades.POST("", staff, gradeCtrl.Create)
			grades.PUT("/:id", staff, gradeCtrl.Update)
			grades.DELETE("/:id", staff, gradeCtrl.Delete)
			grades.GET("/student/:studentId", gradeCtrl.ListByStudent)
			grades.GET("/student/:studentId/summary", gradeCtrl.StudentSummary)
			grades.GET("/course/:courseId", staff, gradeCtrl.CourseGrades)
		}

		assignments := api.Group("/assignments")
		{
			assignments.POST("", staff, assignmentCtrl.Create)
			assignments.GET("/:id", assignmentCtrl.Get)
			assignments.PUT("/:id", staff, assignmentCtrl.Update)
			assignments.DELETE("/:id", staff, assignmentCtrl.Delete)
		}

		quizzes := api.Group("/quizzes")
		{
			quizzes.POST("", staff, quizCtrl.Create)
			quizzes.PUT("/:id", staff, quizCtrl.Update)
			quizzes.DELETE("/:id", staff, quizCtrl.Delete)
		}

		fees := api.Group("/fees")
		{
			fees.POST("", adminOnly, feeCtrl.Create)
			fees.GET("", adminOnly, feeCtrl.List)
			fees.GET("/student/:studentId", feeCtrl.ListByStudent)
			fees.POST("/:id/pay", adminOnly, feeCtrl.Pay)
		}

		transport := api.Group("/transport", adminOnly)
		{
			transport.POST("", transportCtrl.Create)
			transport.GET("", transportCtrl.List)
			transport.GET("/:id", transportCtrl.Get)
			transport.PUT("/:id", transportCtrl.Update)
			transport.DELETE("/:id", transportCtrl.Delete)
			transport.POST("/:id/assign", transportCtrl.Assign)
			transport.DELETE("/:id/assign/:studentId", transportCtrl.Unassign)
		}

		inventory := api.Group("/inventory", adminOnly)
		{
			inventory.POST("", inventoryCtrl.Create)
			inventory.GET("", inventoryCtrl.List)
			inventory.GET("/:id", inventoryCtrl.Get)
			inventory.PUT("/:id", inventoryCtrl.Update)
			inventory.DELETE("/:id", inventoryCtrl.Delete)
			inventory.PATCH("/:id/stock", inventoryCtrl.UpdateStock)
		}

		library := api.Group("/library")
		{
			library.GET("/books", libraryCtrl.ListBooks)
			library.POST("/books", adminOnly, libraryCtrl.CreateBook)
			library.PUT("/books/:id", adminOnly, libraryCtrl.UpdateBook)
			library.DELETE("/books/:id", adminOnly, libraryCtrl.DeleteBook)
			library.GET("/issues", libraryCtrl.ListIssues)
			library.POST("/issues", adminOnly, libraryCtrl.Issue)
			library.POST("/issues/:id/return", adminOnly, libraryCtrl.Return)
		}

		expenses := api.Group("/expenses", adminOnly)
		{
			expenses.POST("", expenseCtrl.Create)
			expenses.GET("", expenseCtrl.List)
			expenses.GET("/summary", expenseCtrl.Summary)
		}

		// Maintenance sweeps, hit by an external scheduler. Kept on
		// their own static prefix so the param routes above stay free
		// of wildcard siblings.
		tasks := api.Group("/tasks", adminOnly)
		{
			tasks.POST("/fees/mark-overdue", feeCtrl.MarkOverdue)
			tasks.POST("/library/mark-overdue", libraryCtrl.MarkOverdueLoans)
		}

		api.GET("/ws", ws.Serve(hub))
	}
}

func corsConfig(cfg *config.Config) cors.Config {
	origins := []string{"*"}
	if cfg.AllowedOrigins != "" && cfg.AllowedOrigins != "*" {
		origins = strings.Split(cfg.AllowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}
