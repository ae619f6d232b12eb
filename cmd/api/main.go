package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/auth"
	"github.com/petermazzocco/go-catalog-api/internal/blob"
	"github.com/petermazzocco/go-catalog-api/internal/config"
	"github.com/petermazzocco/go-catalog-api/internal/handlers"
	"github.com/petermazzocco/go-catalog-api/internal/logger"
	"github.com/petermazzocco/go-catalog-api/internal/mail"
	"github.com/petermazzocco/go-catalog-api/internal/server"
	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/internal/store/mongostore"
	"github.com/petermazzocco/go-catalog-api/internal/store/sqlstore"
	"github.com/petermazzocco/go-catalog-api/internal/upload"
)

func main() {
	// Config loading logs through the global logger before Init replaces it.
	zap.ReplaceGlobals(zap.Must(zap.NewDevelopment()))

	cfg, err := config.Load()
	if err != nil {
		zap.S().Fatalf("Error loading config: %v", err)
	}

	log, err := logger.Init(cfg.Logger)
	if err != nil {
		zap.S().Fatalf("Error initializing logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()

	blobs, err := openBlobs(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("Failed to set up blob storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}

	authSvc := auth.NewService(db, cfg.JWTSecret)
	api := handlers.New(handlers.Deps{
		Products:   db,
		Images:     db,
		Enquiries:  db,
		Auth:       authSvc,
		Uploads:    upload.New(blobs, cfg.Storage.MaxBytes),
		Blobs:      blobs,
		Notifier:   mail.New(cfg.Mail),
		PathPrefix: cfg.Storage.PathPrefix,
		Debug:      cfg.Debug,
	})
	router := server.NewRouter(api, authSvc, server.Options{
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ProtectWrites:      cfg.ProtectWrites,
		AccessLog:          true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting API server", zap.String("addr", srv.Addr),
			zap.String("db", cfg.Database.Driver), zap.String("blobs", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres", "sqlite":
		return sqlstore.Open(cfg.Driver, cfg.URL)
	default:
		return mongostore.Connect(ctx, cfg.URL, cfg.Name)
	}
}

func openBlobs(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	if cfg.Backend == "s3" {
		return blob.NewS3(ctx, blob.S3Options{
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	}
	return blob.NewDisk(cfg.UploadDir), nil
}
