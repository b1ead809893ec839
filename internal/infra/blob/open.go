// Package blob selects a blob store backend from configuration.
package blob

import (
	"context"
	"fmt"

	"deskcore/internal/blob/core"
	"deskcore/internal/config"
	"deskcore/internal/infra/blob/fs"
	"deskcore/internal/infra/blob/memory"
	"deskcore/internal/infra/blob/s3"
)

// Open constructs the blob store named by the configuration.
func Open(ctx context.Context, cfg config.Blob) (core.Store, error) {
	switch core.Driver(cfg.Driver) {
	case "", core.DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case core.DriverMemory:
		return memory.New(), nil
	case core.DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
