package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/config"
	"github.com/homefix/homefix-api/controllers"
	"github.com/homefix/homefix-api/middleware"
	"github.com/homefix/homefix-api/models"
	"github.com/homefix/homefix-api/services"
	"github.com/homefix/homefix-api/store"
	"go.uber.org/zap"
)

// application holds the wired services behind the HTTP routes
type application struct {
	cfg    *config.Config
	logger *zap.Logger
	store  store.Store

	// localUploads is nil when attachments live in S3
	localUploads *services.LocalStorage

	auth        *services.AuthService
	users       *services.UserService
	technicians *services.TechnicianService
	requests    *services.RequestService
}

// newApplication picks the attachment backend and builds the services
func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger, st store.Store) (*application, error) {
	app := &application{cfg: cfg, logger: logger, store: st}

	var storage services.ObjectStorage
	if cfg.UsesS3() {
		s3Storage, err := services.NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Attachments stored in S3", zap.String("bucket", cfg.AWSS3Bucket), zap.String("region", cfg.AWSRegion))
		storage = s3Storage
	} else {
		local, err := services.NewLocalStorage(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		logger.Info("Attachments stored on disk", zap.String("dir", local.Dir()))
		app.localUploads = local
		storage = local
	}

	app.auth = services.NewAuthService(st, services.TokenConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Expiry:   cfg.JWTExpiry,
	}, logger)
	app.users = services.NewUserService(st, logger)
	app.technicians = services.NewTechnicianService(st, logger)
	app.requests = services.NewRequestService(st, services.NewImageService(storage), logger)
	return app, nil
}

// bootstrapAdmin creates the configured admin account if it does not exist yet
func (app *application) bootstrapAdmin(ctx context.Context) error {
	if app.cfg.AdminEmail == "" {
		return nil
	}
	admin, err := app.auth.EnsureAdmin(ctx, app.cfg.AdminEmail, app.cfg.AdminPassword)
	if err != nil {
		return err
	}
	app.logger.Info("Admin account ready", zap.String("user_id", admin.ID))
	return nil
}

// setupRouter registers every route under /api/v1
func setupRouter(app *application) (*gin.Engine, error) {
	requireAuth, err := middleware.EnsureValidToken(app.cfg)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	// An empty list trusts no proxy, so ClientIP is the peer address
	if err := router.SetTrustedProxies(app.cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(app.logger))
	router.Use(cors.New(corsConfig(app.cfg.CORSAllowedOrigins)))
	router.Use(middleware.RateLimit(app.cfg.RateLimitPerMinute, app.logger))

	authController := controllers.NewAuthController(app.auth)
	profileController := controllers.NewProfileController(app.users)
	technicianController := controllers.NewTechnicianController(app.technicians)
	requestController := controllers.NewRequestController(app.requests)
	adminController := controllers.NewAdminController(app.requests, app.users)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus(app.store))

		v1.POST("/register", authController.Register)
		v1.POST("/login", authController.Login)

		if app.localUploads != nil {
			v1.GET("/uploads/:filename", controllers.NewUploadController(app.localUploads).GetUploadedImage)
		}

		protected := v1.Group("", requireAuth)
		{
			protected.GET("/profile", profileController.GetProfile)
			protected.PUT("/profile", profileController.UpdateProfile)

			protected.GET("/technicians", technicianController.ListTechnicians)
			protected.GET("/technicians/recommendations", technicianController.Recommendations)
			protected.GET("/technicians/:id", technicianController.GetTechnician)
			protected.DELETE("/technicians/:id", middleware.RequireRole(models.RoleAdmin), technicianController.DeleteTechnician)

			protected.POST("/requests", requestController.CreateRequest)
			protected.GET("/requests", requestController.ListRequests)
			protected.GET("/requests/me", middleware.RequireRole(models.RoleClient), requestController.ListRequests)
			protected.GET("/requests/:id", requestController.GetRequest)
			protected.PATCH("/requests/:id", requestController.UpdateStatus)
			protected.POST("/requests/:id/messages", requestController.SendMessage)
			protected.GET("/requests/:id/messages", requestController.ListMessages)

			protected.GET("/technician/requests", middleware.RequireRole(models.RoleTechnician), requestController.ListRequests)
		}

		admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/requests", requestController.ListRequests)
			admin.DELETE("/requests/:id", adminController.DeleteRequest)
			admin.PUT("/requests/:id/technician", adminController.AssignTechnician)
			admin.GET("/users", adminController.ListUsers)
			admin.DELETE("/users/:id", adminController.DeleteUser)
			admin.GET("/stats", adminController.Stats)
		}
	}

	return router, nil
}

// corsConfig allows the configured web origins. "*" or an empty list opens
// the API to any origin without credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
