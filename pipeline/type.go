package pipeline

import (
	"context"
	"time"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/service/config"
	"github.com/khaledhikmat/df-go/service/data"
	"github.com/khaledhikmat/df-go/service/inference"
	"github.com/khaledhikmat/df-go/service/queue"
	"github.com/khaledhikmat/df-go/service/storage"
	"github.com/khaledhikmat/df-go/service/webhook"
)

const (
	waitBeforeCancel = 100 * time.Millisecond
	webhookTimeout   = 10 * time.Second
)

type ServicesFactory struct {
	CfgSvc       config.IService
	DataSvc      data.IService
	QueueSvc     queue.IService
	StorageSvc   storage.IService
	InferenceSvc inference.IService
	WebhookSvc   webhook.IService
}

type VideoData struct {
	Ref      string
	QueuedAt time.Time
}

type ResultData struct {
	Record model.AnalysisRecord
}

// Signature of analyzer function
type Analyzer func(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}, resultStream chan ResultData) chan VideoData

// Signature of notifier function
type Notifier func(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) chan ResultData

// emit hands a value to a stream owned by someone else. It gives up after
// waitBeforeCancel so exiting workers never hang on a reader that is gone.
func emit(stream chan interface{}, v interface{}) {
	if stream == nil {
		return
	}

	timer := time.NewTimer(waitBeforeCancel)
	defer timer.Stop()

	select {
	case stream <- v:
	case <-timer.C:
	}
}
