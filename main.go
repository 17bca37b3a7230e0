package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"volley_queue/internal/auth"
	"volley_queue/internal/handlers"
	"volley_queue/internal/models"
	"volley_queue/internal/rotation"
	"volley_queue/internal/storage"
	"volley_queue/internal/tasks"
	"volley_queue/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @Title						Волейбольная очередь на запись
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Подключение к .env")
		err := godotenv.Load()
		if err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	storage.ConnectDatabase()

	if err := storage.DB.AutoMigrate(&models.User{}, &models.QueueMember{}, &models.TurnState{}, &models.RosterEntry{}); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}

	storage.InitRedis()

	if err := rotation.EnsureSeeded(time.Now()); err != nil {
		log.Println("Ошибка посева ротации:", err)
	}

	tasks.InitScheduler()

	go ws.HubInstance.Run()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", handlers.Login)
		authGroup.POST("/register", handlers.Register)
		authGroup.POST("/refresh", handlers.RefreshToken)
	}

	fila := r.Group("/api/fila", auth.AuthMiddleware())
	{
		fila.GET("/state", handlers.GetFilaStateHandler)
		fila.POST("/advance", handlers.AdvanceFilaHandler)
		fila.POST("/heartbeat", handlers.HeartbeatHandler)
	}
	r.GET("/api/fila/ws", ws.FilaWebSocketHandler)

	roster := r.Group("/api/roster", auth.AuthMiddleware())
	{
		roster.POST("/mark", handlers.MarkNameHandler)
		roster.DELETE("/entries/:id", handlers.DeleteEntryHandler)
	}

	admin := r.Group("/api/admin", auth.AuthMiddleware(), auth.AdminMiddleware())
	{
		admin.POST("/fila/reset", handlers.ResetFilaHandler)
		admin.POST("/roster/clear", handlers.ClearRosterHandler)
		admin.GET("/teams", handlers.GetBalancedTeamsHandler)
	}

	if err := r.Run(":8080"); err != nil {
		log.Fatal("Ошибка запуска сервера...", err.Error())
	}
}
