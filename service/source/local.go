package source

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"golang.org/x/xerrors"
)

type localService struct {
}

func NewLocal() IService {
	return &localService{}
}

func (svc *localService) Exists(_ context.Context, ref string) (bool, error) {
	path, ok := LocalPath(ref)
	if !ok {
		return false, xerrors.Errorf("not a local reference: %q", ref)
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return !info.IsDir(), nil
}
