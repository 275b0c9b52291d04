package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusconnect/backend/internal/config"
	"github.com/campusconnect/backend/internal/handlers"
	appMiddleware "github.com/campusconnect/backend/internal/middleware"
	"github.com/campusconnect/backend/internal/services"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	ctx := context.Background()

	// Firebase Auth (server-side verification of ID tokens)
	var verifier appMiddleware.TokenVerifier
	var identity services.IdentityProvider
	authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsJSON: cfg.FirebaseCredentialsJSON,
	})
	if err != nil {
		logger.Warn("firebase auth unavailable, profile routes will return 503", zap.Error(err))
	} else {
		verifier = authClient
		identity = services.NewFirebaseIdentity(authClient)
	}

	var (
		profileStore services.ProfileStore
		resetStore   services.ResetCodeStore
	)
	if cfg.MongoURI != "" {
		mongoClient, err := services.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			logger.Fatal("mongo connect failed", zap.Error(err))
		}
		defer mongoClient.Disconnect(context.Background())

		db := mongoClient.Database(cfg.MongoDB)
		profileStore = services.NewMongoProfileStore(db)
		resetStore = services.NewMongoResetCodeStore(ctx, db)
		logger.Info("using mongo storage", zap.String("db", cfg.MongoDB))
	} else {
		fileStore, err := services.NewFileProfileStore(cfg.DataDir)
		if err != nil {
			logger.Fatal("open profile snapshot failed", zap.String("data_dir", cfg.DataDir), zap.Error(err))
		}
		profileStore = fileStore
		resetStore = services.NewMemoryResetCodeStore()
		logger.Info("using file storage", zap.String("data_dir", cfg.DataDir))
	}

	var cache services.ProfileCache = services.NoopProfileCache{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, profile cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			cache = services.NewRedisProfileCache(rdb, cfg.ProfileCacheTTL)
		}
	}

	mailer := services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.ReportFromEmail, "")
	catalog := services.DefaultAvatarCatalog(cfg.AvatarBaseURL)
	avatars := services.NewAvatarService(catalog, profileStore)

	app := &application{
		logger:            logger,
		verifier:          verifier,
		serviceRoleSecret: cfg.ServiceRoleSecret,
		profiles:          handlers.NewProfileHandler(services.NewProfileResolver(profileStore, avatars, cache, identity, logger), logger),
		avatars:           handlers.NewAvatarHandler(catalog),
		reports: handlers.NewReportHandler(
			services.NewReportService(mailer, cfg.ReportToEmail, logger),
			services.NewRecaptchaVerifier(cfg.RecaptchaSecret),
			logger,
		),
		bootstrap: handlers.NewBootstrapHandler(services.NewBootstrapService(profileStore, logger), logger),
	}
	if identity != nil {
		app.resets = handlers.NewPasswordResetHandler(
			services.NewPasswordResetService(resetStore, identity, mailer, cfg.ResetCodeTTL, logger),
			logger,
		)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.ServerAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		zcfg := zap.NewProductionConfig()
		if lvl, parseErr := zap.ParseAtomicLevel(level); parseErr == nil {
			zcfg.Level = lvl
		}
		logger, err = zcfg.Build()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
