package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/xerrors"
)

type httpService struct {
	URL    string
	Client *http.Client
}

func NewHTTP(url string, client *http.Client) IService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &httpService{
		URL:    url,
		Client: client,
	}
}

func (svc *httpService) Post(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return xerrors.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.Client.Do(req)
	if err != nil {
		return xerrors.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return xerrors.Errorf("webhook %s returned status %d", svc.URL, resp.StatusCode)
	}
	return nil
}
