package main

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mikepea/journal/pkg/journal/admin"
	"github.com/mikepea/journal/pkg/journal/auth"
	"github.com/mikepea/journal/pkg/journal/config"
	"github.com/mikepea/journal/pkg/journal/database"
	"github.com/mikepea/journal/pkg/journal/entries"
	"github.com/mikepea/journal/pkg/journal/importexport"
	"github.com/mikepea/journal/pkg/journal/logging"
	"github.com/mikepea/journal/pkg/journal/models"
	"github.com/mikepea/journal/pkg/journal/tags"
)

// @title Journal API
// @version 1.0
// @description A learning journal: dated entries with time spent, resources and shared tags.

// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Production(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	auth.Configure(cfg.JWTSecret, cfg.TokenTTL)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, using the development secret")
	}

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN, logging.GormLevel(cfg.LogLevel))
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}

	// Run auto-migrations
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Database migrations completed", zap.String("driver", cfg.DBDriver))

	// Create default admin user if no admin exists
	if err := ensureAdminExists(db, cfg, logger); err != nil {
		logger.Fatal("Failed to ensure admin user exists", zap.Error(err))
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logging.Middleware(logger), gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "journal",
			})
		})

		// Auth routes (public register/login, protected me/logout)
		authHandler := auth.NewHandler(db, logger)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Entries routes (public reads, protected writes)
		entriesHandler := entries.NewHandler(db, logger)
		entriesHandler.RegisterRoutes(api)

		// Tags routes (public reads, protected writes)
		tagsHandler := tags.NewHandler(db, logger)
		tagsHandler.RegisterRoutes(api)

		// Import/Export routes (protected)
		importExportHandler := importexport.NewHandler(db, logger)
		importExportHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Admin routes (admin flag required)
		adminHandler := admin.NewHandler(db, logger)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	logger.Info("Starting journal server", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// ensureAdminExists creates the seed admin account if no admin exists in
// the database.
func ensureAdminExists(db *gorm.DB, cfg *config.Config, logger *zap.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil // Admin already exists
	}

	user, err := auth.CreateUser(db, auth.NewUser{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Admin:    true,
	})
	if errors.Is(err, auth.ErrUserExists) {
		// A regular account already holds the seed username or email
		logger.Warn("Default admin user not created",
			zap.String("username", cfg.Admin.Username),
			zap.String("email", cfg.Admin.Email),
			zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info("Created default admin user",
		zap.String("username", user.Username),
		zap.String("email", user.Email))
	return nil
}
