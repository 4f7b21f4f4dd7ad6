package storage

import "context"

// IService persists an uploaded video and returns a reference the inference
// service can analyze
type IService interface {
	StoreFile(ctx context.Context, localPath string) (string, error)
}
