package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khaledhikmat/df-go/service/config"
	"github.com/khaledhikmat/df-go/service/source"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioService struct {
	client     *minio.Client
	bucketName string
}

// NewMinioClient only builds the client, it does not talk to the server
func NewMinioClient(params config.MinioParameters) (*minio.Client, error) {
	return minio.New(params.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(params.AccessKey, params.SecretKey, ""),
		Secure: params.UseSSL,
		Region: params.Region,
	})
}

// NewMinio makes sure the bucket exists
func NewMinio(ctx context.Context, client *minio.Client, params config.MinioParameters) (IService, error) {
	exists, err := client.BucketExists(ctx, params.BucketName)
	if err != nil {
		return nil, err
	}

	if !exists {
		if err := client.MakeBucket(ctx, params.BucketName, minio.MakeBucketOptions{Region: params.Region}); err != nil {
			return nil, err
		}
	}

	return &minioService{
		client:     client,
		bucketName: params.BucketName,
	}, nil
}

// StoreFile uploads the file and returns an s3://bucket/key reference
func (svc *minioService) StoreFile(ctx context.Context, localPath string) (string, error) {
	key := fmt.Sprintf("%s/%s%s", time.Now().UTC().Format("2006/01/02"), uuid.NewString(), strings.ToLower(filepath.Ext(localPath)))

	_, err := svc.client.FPutObject(ctx, svc.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return "", err
	}

	return source.ObjectRef(svc.bucketName, key), nil
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
