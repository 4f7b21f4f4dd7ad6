package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/khaledhikmat/df-go/service/lgr"
	"golang.org/x/xerrors"
)

type channelService struct {
	CanxCtx context.Context
	// Regardless of how many times we subscribe/unsubscribe, we will always
	// have only one channel to send the references to the manager
	RefsChannel chan []string

	// Publish holds the read lock across its send so Finalize cannot close
	// the channel underneath it
	mu         sync.RWMutex
	subscribed bool
	finalized  bool
}

// NewChannel returns an in-process queue. Publish blocks while the channel
// buffer is full, until the context is cancelled.
func NewChannel(canxCtx context.Context, capacity int) IService {
	return &channelService{
		CanxCtx:     canxCtx,
		RefsChannel: make(chan []string, capacity),
	}
}

func (svc *channelService) Publish(refs []string) error {
	if len(refs) == 0 {
		return nil
	}

	svc.mu.RLock()
	defer svc.mu.RUnlock()

	if !svc.subscribed || svc.finalized {
		return ErrNoSubscriber
	}

	select {
	case <-svc.CanxCtx.Done():
		return svc.CanxCtx.Err()
	case svc.RefsChannel <- refs:
		return nil
	}
}

func (svc *channelService) Subscribe() (<-chan []string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.finalized {
		return nil, xerrors.New("queue channel service is finalized")
	}

	if svc.subscribed {
		lgr.Logger.Error(
			"queue channel service. Already subscribed. Unsubscribe first",
		)
		return nil, xerrors.New("queue channel service. Already subscribed. Unsubscribe first")
	}

	svc.subscribed = true
	return svc.RefsChannel, nil
}

func (svc *channelService) Unsubscribe() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if !svc.subscribed {
		return xerrors.New("Not subscribed yet. Subscribe first")
	}

	svc.subscribed = false
	return nil
}

// Finalize closes the channel. Nothing may be published afterwards.
func (svc *channelService) Finalize() {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.finalized {
		return
	}

	svc.finalized = true
	svc.subscribed = false
	close(svc.RefsChannel)
	lgr.Logger.Debug("queue channel service finalized", slog.Int("pending", len(svc.RefsChannel)))
}
