package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"RoomFM/config"
	"RoomFM/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio connects to the object store and ensures the bucket exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("Created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("MinIO client initialized", logger.String("bucket", cfg.MinioBucket))
	return nil
}

// GetMinioClient returns the shared client, or nil if InitMinio failed.
func GetMinioClient() *minio.Client {
	return minioClient
}

// Upload stores an object and returns its name.
func Upload(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("minio client not initialized")
	}

	_, err := minioClient.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return objectName, nil
}

// PresignedURL returns a time-limited download link for an object.
func PresignedURL(ctx context.Context, bucket, objectName string, expiry time.Duration) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("minio client not initialized")
	}

	u, err := minioClient.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectName, err)
	}
	return u.String(), nil
}
