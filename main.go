package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/homefix/homefix-api/config"
	"github.com/homefix/homefix-api/store"
	"github.com/homefix/homefix-api/utils"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.InitializeLogger(false, "info").Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := utils.InitializeLogger(cfg.IsProduction(), cfg.LogLevel)
	utils.SetLogger(logger)
	defer logger.Sync() //nolint:errcheck

	logger.Info("Starting HomeFix API server...", zap.String("env", cfg.GoEnv), zap.String("driver", cfg.DatabaseDriver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open the store", zap.Error(err))
	}
	defer closeStore()

	app, err := newApplication(ctx, cfg, logger, st)
	if err != nil {
		logger.Fatal("Failed to set up the application", zap.Error(err))
	}
	if err := app.bootstrapAdmin(ctx); err != nil {
		logger.Fatal("Failed to bootstrap the admin account", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := setupRouter(app)
	if err != nil {
		logger.Fatal("Failed to set up routes", zap.Error(err))
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server is running", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

// openStore connects the configured backend and prepares its schema
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		return store.NewMemoryStore(), func() {}, nil

	case config.DriverMongo:
		client, err := config.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				utils.GetLogger().Warn("Failed to disconnect from MongoDB", zap.Error(err))
			}
		}
		mongoStore := store.NewMongoStore(client.Database(cfg.MongoDatabase))
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		utils.GetLogger().Info("MongoDB indexes ensured", zap.String("database", cfg.MongoDatabase))
		return mongoStore, closeFn, nil

	default:
		if err := config.ConnectDatabase(cfg); err != nil {
			return nil, nil, err
		}
		gormStore := store.NewGormStore(config.GetDB())
		if err := gormStore.Migrate(); err != nil {
			return nil, nil, err
		}
		utils.GetLogger().Info("Database migration completed successfully")

		closeFn := func() {
			if sqlDB, err := gormStore.DB().DB(); err == nil {
				sqlDB.Close()
			}
		}
		return gormStore, closeFn, nil
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "HomeFix API is running",
	})
}

// databaseStatus checks store connectivity and, for SQL backends, lists the tables
func databaseStatus(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_CONNECTION_ERROR",
					"message": "Database connection failed",
				},
			})
			return
		}

		response := gin.H{
			"success": true,
			"message": "Database connected",
			"driver":  st.Name(),
		}

		if gormStore, ok := st.(*store.GormStore); ok {
			tables, err := gormStore.DB().WithContext(ctx).Migrator().GetTables()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "DATABASE_QUERY_ERROR",
						"message": "Failed to query tables",
					},
				})
				return
			}
			response["tables"] = tables
		}

		c.JSON(http.StatusOK, response)
	}
}
