package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	configs "github.com/staybook/auth-service/config"
	"github.com/staybook/auth-service/internal/handler"
	"github.com/staybook/auth-service/internal/middleware"
	"github.com/staybook/auth-service/internal/repository"
	"github.com/staybook/auth-service/internal/router"
	"github.com/staybook/auth-service/internal/service"
	"github.com/staybook/auth-service/pkg/circuit"
	"github.com/staybook/auth-service/pkg/database"
	"github.com/staybook/auth-service/pkg/logger"
	"github.com/staybook/auth-service/pkg/redis"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(logger.Config{
		Environment: config.App.Environment,
		LogsPath:    config.App.LogsPath,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
	)

	dbConfig := database.DefaultConfig()
	dbConfig.Host = config.Database.Host
	dbConfig.Port = config.Database.Port
	dbConfig.User = config.Database.User
	dbConfig.Password = config.Database.Password
	dbConfig.Database = config.Database.Name
	dbConfig.SSLMode = config.Database.SSLMode

	db, err := database.NewPostgresDB(dbConfig)
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	if err := database.EnsureIndexes(db); err != nil {
		logger.GetLogger().Warn("Failed to ensure indexes", zap.Error(err))
	}

	if err := database.Seed(db); err != nil {
		// Seed data may already exist.
		logger.GetLogger().Error("Failed to seed database", zap.Error(err))
	} else {
		logger.GetLogger().Info("Database seeded successfully")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewActionTokenRepository(db)
	auditRepo := repository.NewLoginAuditRepository(db)

	redisClient := redis.NewClient(redis.Config{
		Host:         config.Redis.Host,
		Port:         config.Redis.Port,
		Password:     config.Redis.Password,
		DB:           config.Redis.Database,
		Enabled:      config.Redis.Enabled,
		PoolSize:     config.Redis.PoolSize,
		MinIdleConns: config.Redis.MinIdleConns,
	}, logger.GetLogger())
	defer redisClient.Close()

	logger.GetLogger().Info("Redis client initialized",
		zap.Bool("enabled", redisClient.IsEnabled()),
	)

	// Services
	jwtService := service.NewJWTService(config.JWT.Secret, config.JWT.AccessTTL, config.JWT.RefreshTTL)
	blacklist := service.NewTokenBlacklist(redisClient)

	smtpBreaker := circuit.NewBreaker("smtp", circuit.DefaultConfig(), logger.GetLogger())
	mailer, err := service.NewMailer(service.MailerConfig{
		Host:     config.SMTP.Host,
		Port:     config.SMTP.Port,
		Username: config.SMTP.Username,
		Password: config.SMTP.Password,
		From:     config.SMTP.From,
		BaseURL:  config.App.BaseURL,
	}, smtpBreaker)
	if err != nil {
		logger.GetLogger().Fatal("Failed to initialize mailer", zap.Error(err))
	}

	userService := service.NewUserService(
		userRepo,
		tokenRepo,
		auditRepo,
		jwtService,
		blacklist,
		mailer,
		service.LockoutPolicy{
			MaxFailedLogins: config.Lockout.MaxFailedLogins,
			LockoutDuration: config.Lockout.Duration,
		},
		service.TokenPolicy{
			VerificationTTL: config.Verification.TokenTTL,
			ResetTTL:        config.Verification.ResetTokenTTL,
		},
	)

	// Background cleanup of expired tokens and old audit rows
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	cleanupWorker := service.NewCleanupWorker(userRepo, tokenRepo, auditRepo,
		config.Cleanup.Interval, config.Cleanup.AuditRetention)
	go cleanupWorker.Run(cleanupCtx)

	// Handlers
	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	adminHandler := handler.NewAdminHandler(userService)
	healthHandler := handler.NewHealthHandler(db, redisClient)
	sessionHandler := handler.NewSessionHandler(blacklist, redisClient)

	jwtMiddleware := middleware.NewJWTMiddleware(jwtService, userRepo, blacklist)

	r := router.NewRouter(
		authHandler,
		userHandler,
		adminHandler,
		healthHandler,
		sessionHandler,
		jwtMiddleware,
		config,
	).SetupRoutes()

	// gRPC health endpoint for infra probes
	var grpcServer *grpc.Server
	if config.GRPC.Enabled {
		lis, err := net.Listen("tcp", ":"+config.GRPC.Port)
		if err != nil {
			logger.GetLogger().Fatal("Failed to listen for gRPC health server",
				zap.String("port", config.GRPC.Port),
				zap.Error(err))
		}

		grpcServer = grpc.NewServer()
		healthServer := health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

		go func() {
			logger.GetLogger().Info("gRPC health server starting",
				zap.String("port", config.GRPC.Port))
			if err := grpcServer.Serve(lis); err != nil {
				logger.GetLogger().Error("gRPC health server stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := r.Run(":" + config.App.Port); err != nil {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")

	stopCleanup()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
}
