package common

import (
	"context"
	"log"
	"strings"

	"greenmoment-go/internal/artifact"
	"greenmoment-go/internal/database"
	"greenmoment-go/internal/forecast"
	"greenmoment-go/internal/ingest"
	"greenmoment-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Ingestor  *ingest.Ingestor
	Engine    *forecast.Engine
	Writer    *artifact.Writer
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the full generator pipeline: database, feed
// clients, forecast engine, and artifact writer.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Loading forecast models", zap.String("dir", cfg.Generator.ModelsDir))
	engine, err := forecast.NewEngine(cfg.Generator.ModelsDir, cfg.Generator.Timezone)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	return &Services{
		DbService: dbService,
		Ingestor:  ingest.NewIngestor(cfg.Generator),
		Engine:    engine,
		Writer:    artifact.NewWriter(cfg.Generator.ArtifactPath),
	}, nil
}

// InitializeDatabaseOnly initializes just the database service.
// Useful for read-only operations like the status command, and for the
// closer which never touches the feeds or models.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
