package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OscarR093/reportesMtto/internal/config"
	"github.com/OscarR093/reportesMtto/internal/middleware"
	"github.com/OscarR093/reportesMtto/internal/mtto/handler"
	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/OscarR093/reportesMtto/internal/mtto/service"
	"github.com/OscarR093/reportesMtto/internal/mtto/sse"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "ejecutar auto-migrate antes de arrancar")
	return cmd
}

func runServe(migrate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting reportes-mtto service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return err
	}
	if migrate {
		if err := repository.AutoMigrate(db); err != nil {
			return err
		}
	}

	rdb := initRedis(cfg.Redis)
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zapLogger.Warn("Redis unavailable, using in-memory state store", zap.Error(err))
			rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	hub := sse.NewHub(zapLogger)
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, cfg, hub, zapLogger)
	handlers := handler.NewHandlers(services, cfg)

	// el catálogo se carga al arrancar para detectar datos corruptos temprano
	if _, err := services.Equipment.GetHierarchy(); err != nil {
		zapLogger.Error("Equipment hierarchy unavailable", zap.String("path", cfg.Equipment.DataPath), zap.Error(err))
	}

	if cfg.App.SuperAdminEmail == "" {
		zapLogger.Warn("SUPER_ADMIN_EMAIL not set; new accounts need manual approval via create-admin")
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS(cfg.Server.FrontendURL))
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/sse"})))

	registerRoutes(router, handlers, cfg, db, rdb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // SSE mantiene conexiones largas
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
	return nil
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config, db *gorm.DB, rdb *redis.Client) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok"}
		status := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "down"
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = "down"
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// evidencia guardada en disco cuando no hay MinIO
	r.Static("/uploads", cfg.App.UploadDir)

	// el SPA se sirve aparte; aquí sólo API
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found: " + c.Request.URL.Path})
	})

	handler.RegisterRoutes(r, h, cfg.JWT.Secret)
}
