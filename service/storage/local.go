package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/khaledhikmat/df-go/service/config"
	"golang.org/x/xerrors"
)

type localService struct {
	CfgSvc config.IService
}

func NewLocal(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

// StoreFile copies the file into the uploads folder under a unique name and
// returns a file:// reference to the copy
func (svc *localService) StoreFile(_ context.Context, localPath string) (string, error) {
	folder, err := filepath.Abs(svc.CfgSvc.GetUploadsFolder())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", xerrors.Errorf("creating uploads folder: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	target := filepath.Join(folder, fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(localPath)))
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return "", xerrors.Errorf("copying %s: %w", localPath, err)
	}

	if err := dst.Close(); err != nil {
		return "", err
	}

	return "file://" + filepath.ToSlash(target), nil
}
