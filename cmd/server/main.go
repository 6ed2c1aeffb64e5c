package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rohan-singh987/zimedash/internal/authz"
	"github.com/rohan-singh987/zimedash/internal/config"
	"github.com/rohan-singh987/zimedash/internal/entity"
	"github.com/rohan-singh987/zimedash/internal/handler"
	"github.com/rohan-singh987/zimedash/internal/middleware"
	"github.com/rohan-singh987/zimedash/internal/repository"
	"github.com/rohan-singh987/zimedash/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting zimedash service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Project{},
		&entity.ProjectMember{},
		&entity.Task{},
		&entity.TaskComment{},
		&entity.TaskDependency{},
	); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, token refresh and stats cache degraded", zap.Error(err))
	}

	// 权限矩阵
	matrix := authz.DefaultMatrix()

	// 仓库、服务、处理器
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, rdb, matrix, cfg)
	handlers := handler.NewHandlers(services)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 注册路由
	registerRoutes(router, handlers, matrix, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
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
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Info),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, matrix *authz.Matrix, cfg *config.Config) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": Version})
	})

	api := r.Group("/api/v1")

	// 认证接口（无需登录）
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	// 需要登录的接口
	authorized := api.Group("")
	authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		authorized.POST("/auth/logout", h.Auth.Logout)
		authorized.GET("/auth/me", h.Auth.Me)

		// 项目
		projects := authorized.Group("/projects")
		{
			projects.GET("", middleware.RequirePermission(matrix, authz.ResourceProjects, authz.ActionRead), h.Project.List)
			projects.POST("", middleware.RequirePermission(matrix, authz.ResourceProjects, authz.ActionCreate), h.Project.Create)
			projects.GET("/:id", middleware.RequirePermission(matrix, authz.ResourceProjects, authz.ActionRead), h.Project.Get)
			projects.PUT("/:id", middleware.RequirePermission(matrix, authz.ResourceProjects, authz.ActionUpdate), h.Project.Update)
			projects.DELETE("/:id", middleware.RequirePermission(matrix, authz.ResourceProjects, authz.ActionDelete), h.Project.Delete)

			projects.POST("/:id/members", middleware.RequirePermission(matrix, authz.ResourceProjects, authz.ActionUpdate), h.Project.AddMember)
			projects.DELETE("/:id/members/:userId", middleware.RequirePermission(matrix, authz.ResourceProjects, authz.ActionUpdate), h.Project.RemoveMember)
			projects.POST("/:id/recount", middleware.RequireRole(entity.RoleAdmin), h.Project.Recount)

			// 项目下的任务
			projects.GET("/:id/tasks", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionRead), h.Task.ListByProject)
			projects.POST("/:id/tasks", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionCreate), h.Task.Create)
			projects.GET("/:id/tasks/export", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionRead), h.Project.ExportTasks)
		}

		// 任务
		tasks := authorized.Group("/tasks")
		{
			tasks.GET("/my", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionRead), h.Task.My)
			tasks.GET("/:id", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionRead), h.Task.Get)
			tasks.PUT("/:id", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionUpdate), h.Task.Update)
			tasks.DELETE("/:id", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionDelete), h.Task.Delete)

			tasks.POST("/:id/comments", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionUpdate), h.Task.AddComment)
			tasks.GET("/:id/comments", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionRead), h.Task.ListComments)
			tasks.POST("/:id/dependencies", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionUpdate), h.Task.AddDependency)
			tasks.DELETE("/:id/dependencies/:depId", middleware.RequirePermission(matrix, authz.ResourceTasks, authz.ActionUpdate), h.Task.RemoveDependency)
		}

		// 用户
		users := authorized.Group("/users")
		{
			users.GET("", middleware.RequirePermission(matrix, authz.ResourceUsers, authz.ActionRead), h.User.List)
			users.GET("/:id", middleware.RequirePermission(matrix, authz.ResourceUsers, authz.ActionRead), h.User.Get)
			users.GET("/:id/stats", middleware.RequirePermission(matrix, authz.ResourceUsers, authz.ActionRead), h.User.Stats)
			users.PUT("/:id", middleware.RequirePermission(matrix, authz.ResourceUsers, authz.ActionUpdate), h.User.Update)
			users.PUT("/:id/role", middleware.RequireRole(entity.RoleAdmin), h.User.ChangeRole)
			users.DELETE("/:id", middleware.RequireRole(entity.RoleAdmin), h.User.Delete)
		}
	}
}
