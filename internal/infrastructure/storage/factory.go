package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/infrastructure/config"
)

// ObjectStorage is implemented by every storage backend
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
	PublicURL(key string) string
}

var (
	_ ObjectStorage = (*S3ObjectStorage)(nil)
	_ ObjectStorage = (*MemoryObjectStorage)(nil)
)

// New creates the backend selected by cfg.Provider. memoryBaseURL is the
// public prefix used by the in-memory backend.
func New(cfg *config.StorageConfig, memoryBaseURL string, logger *zap.Logger) (ObjectStorage, error) {
	switch cfg.Provider {
	case "", "memory":
		logger.Warn("Using in-memory object storage; uploads are lost on restart")
		return NewMemoryObjectStorage(memoryBaseURL), nil
	case "s3":
		return NewS3ObjectStorage(cfg, WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}
