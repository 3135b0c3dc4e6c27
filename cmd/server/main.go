package main

import (
	"campuslink/internal/db"
	"campuslink/internal/handlers"
	"campuslink/internal/middleware"
	"campuslink/internal/services"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	// Initialize Database
	db.Init()

	// 初始化异步热度服务
	services.GetHotnessService()

	// Initialize Gin
	r := gin.Default()

	// Handlers
	authHandler := handlers.NewAuthHandler()
	collegeHandler := handlers.NewCollegeHandler()
	questionHandler := handlers.NewQuestionHandler()
	answerHandler := handlers.NewAnswerHandler()
	notificationHandler := handlers.NewNotificationHandler()
	reportHandler := handlers.NewReportHandler()

	api := r.Group("/api")

	// Public Routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.GET("/colleges", collegeHandler.List)
	api.GET("/colleges/search", collegeHandler.Search)
	api.GET("/colleges/:id", collegeHandler.Get)

	// Protected Routes
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/auth/me", authHandler.Me)
		authorized.PUT("/auth/profile", authHandler.UpdateProfile)
		authorized.POST("/auth/logout", authHandler.Logout)

		authorized.GET("/colleges/my/info", collegeHandler.MyCollege)

		authorized.GET("/questions", questionHandler.List)
		authorized.POST("/questions", questionHandler.Create)
		authorized.GET("/questions/my", questionHandler.Mine)
		authorized.GET("/questions/:id", questionHandler.Detail)
		authorized.PUT("/questions/:id", questionHandler.Update)
		authorized.DELETE("/questions/:id", questionHandler.Delete)
		authorized.POST("/questions/:id/resolve", questionHandler.Resolve)

		authorized.GET("/answers/my", answerHandler.Mine)
		authorized.POST("/answers/question/:questionId", answerHandler.Create)
		authorized.GET("/answers/question/:questionId", answerHandler.ListForQuestion)
		authorized.PUT("/answers/:id", answerHandler.Update)
		authorized.DELETE("/answers/:id", answerHandler.Delete)
		authorized.POST("/answers/:id/helpful", answerHandler.MarkHelpful)
		authorized.DELETE("/answers/:id/helpful", answerHandler.RemoveHelpful)
		authorized.POST("/answers/:id/best", answerHandler.SetBest)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.DELETE("/notifications/:id", notificationHandler.Delete)

		authorized.POST("/report/:type/:id", reportHandler.Report)
	}

	// Admin Routes
	admin := api.Group("/")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.POST("/colleges", collegeHandler.Create)
		admin.PUT("/colleges/:id", collegeHandler.Update)
		admin.DELETE("/colleges/:id", collegeHandler.Delete)
		admin.GET("/colleges/admin/stats", collegeHandler.Stats)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("CampusLink server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
