package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage is a flat object store addressed by slash separated names.
// Missing objects are reported with an error matching fs.ErrNotExist.
type Storage interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
	// WriteFile replaces the object as a whole; readers never observe a partial write.
	WriteFile(ctx context.Context, name string, data []byte) error
	// AppendFile appends data and reports whether the object was created by this call.
	AppendFile(ctx context.Context, name string, data []byte) (bool, error)
	List(ctx context.Context, dir string) ([]string, error)
	Remove(ctx context.Context, name string) error
	Sub(dir string) (Storage, error)
	Close() error
}

func NewStorage(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.Persistence.Storage.Driver {
	case config.StorageDriverFilesystem:
		root := cfg.Persistence.Storage.Filesystem.Directory
		err := os.MkdirAll(root, 0755)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		return newFilesystem(root)
	case config.StorageDriverS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Persistence.Storage.S3.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = true
			if cfg.Persistence.Storage.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Persistence.Storage.S3.Endpoint)
			}
		})
		return newS3(cfg.Persistence.Storage.S3.Bucket, "", client), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Persistence.Storage.Driver)
	}
}
