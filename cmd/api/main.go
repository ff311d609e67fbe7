package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/fotoshare/auth-service/internal/auth"
	"github.com/fotoshare/auth-service/internal/config"
	"github.com/fotoshare/auth-service/internal/database"
	"github.com/fotoshare/auth-service/internal/email"
	httpServer "github.com/fotoshare/auth-service/internal/http"
	"github.com/fotoshare/auth-service/internal/logging"
	"github.com/fotoshare/auth-service/internal/user"
)

// @title           Fotoshare Auth Service
// @version         1.0
// @description     Account lifecycle and token service: registration, login, refresh rotation, email confirmation, password reset.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting auth service",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	codec, err := auth.NewCodec(cfg.Auth.TokenSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}

	hasher := auth.NewHasher(cfg.Auth.HashTime, cfg.Auth.HashMemory, cfg.Auth.HashThreads)

	accountRepo := user.NewRepository(db)
	consumer := auth.NewRedisTokenConsumer(redisClient)

	mailer := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FrontendURL,
	)

	authService := auth.NewService(
		accountRepo,
		mailer,
		consumer,
		codec,
		hasher,
		logger,
		auth.TokenTTLs{
			Access:  cfg.Auth.AccessTokenTTL,
			Refresh: cfg.Auth.RefreshTokenTTL,
			Verify:  cfg.Auth.VerifyTokenTTL,
			Reset:   cfg.Auth.ResetTokenTTL,
		},
	)

	authHandler := auth.NewHandler(authService, logger)
	authMiddleware := auth.NewMiddleware(codec)

	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB opens the Postgres connection and wraps it with Bun
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis connects the Redis client used for single-use token markers
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
