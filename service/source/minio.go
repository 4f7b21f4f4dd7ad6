package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"golang.org/x/xerrors"
)

type minioService struct {
	client *minio.Client
}

// NewMinio verifies s3://bucket/key references against a minio (or S3) endpoint
func NewMinio(client *minio.Client) IService {
	return &minioService{
		client: client,
	}
}

func (svc *minioService) Exists(ctx context.Context, ref string) (bool, error) {
	bucket, key, err := ParseObjectRef(ref)
	if err != nil {
		return false, err
	}

	_, err = svc.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return false, nil
	default:
		return false, err
	}
}

// ParseObjectRef splits s3://bucket/key into its parts
func ParseObjectRef(ref string) (string, string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", err
	}

	if strings.ToLower(u.Scheme) != "s3" {
		return "", "", xerrors.Errorf("not an object reference: %q", ref)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", xerrors.Errorf("object reference needs a bucket and a key: %q", ref)
	}

	return u.Host, key, nil
}

// ObjectRef is the inverse of ParseObjectRef
func ObjectRef(bucket, key string) string {
	return "s3://" + bucket + "/" + strings.TrimPrefix(key, "/")
}
