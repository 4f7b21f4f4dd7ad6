package source

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

type httpService struct {
	Client *http.Client
}

func NewHTTP(client *http.Client) IService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &httpService{
		Client: client,
	}
}

func (svc *httpService) Exists(ctx context.Context, ref string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, ref, nil)
	if err != nil {
		return false, err
	}

	resp, err := svc.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, nil
	default:
		return false, xerrors.Errorf("unexpected status %d for %s", resp.StatusCode, ref)
	}
}
