package webhook

import (
	"context"
	"log/slog"
	"sync"

	"github.com/khaledhikmat/df-go/service/lgr"
)

// FakeService records payloads instead of sending them
type FakeService struct {
	mu       sync.Mutex
	payloads []map[string]interface{}
}

func NewFake() *FakeService {
	return &FakeService{}
}

func (svc *FakeService) Post(_ context.Context, payload map[string]interface{}) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.payloads = append(svc.payloads, payload)
	lgr.Logger.Debug(
		"fake webhook post",
		slog.Any("payload", payload),
	)
	return nil
}

func (svc *FakeService) Payloads() []map[string]interface{} {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	out := make([]map[string]interface{}, len(svc.payloads))
	copy(out, svc.payloads)
	return out
}
