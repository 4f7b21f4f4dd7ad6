package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/service/lgr"
)

// SimpleAnalyzer starts a pool of workers competing on the returned channel.
// Every analyzed video is offered to resultStream without blocking. Each
// worker reports its stats when it exits.
func SimpleAnalyzer(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}, resultStream chan ResultData) chan VideoData {
	in := make(chan VideoData, 100)

	proc := func(video VideoData, worker int) (model.AnalysisRecord, error) {
		lgr.Logger.Debug(
			"analyzer processing video",
			slog.String("videoRef", video.Ref),
			slog.Int("worker", worker),
			slog.Duration("queued", time.Since(video.QueuedAt)),
		)

		rec, err := Process(canx, svcs, video.Ref)
		if err != nil {
			emit(errorStream, model.GenError("analyzer",
				err,
				map[string]interface{}{
					"videoRef": video.Ref,
					"worker":   worker,
				},
				"error persisting analysis"))
		}

		if resultStream != nil {
			select {
			case resultStream <- ResultData{Record: rec}:
			default:
				lgr.Logger.Warn(
					"result stream is full. Dropping result",
					slog.String("id", rec.ID),
				)
			}
		}

		return rec, err
	}

	workers := svcs.CfgSvc.GetAnalyzerMaxWorkers()
	if workers <= 0 {
		workers = 1
	}

	lgr.Logger.Info(
		"simple analyzer initialized...",
		slog.Int("workers", workers),
	)

	// Launch worker processes that compete on emptying/processing videos
	for i := 0; i < workers; i++ {
		go func(worker int) {
			videos := 0
			fakes := 0
			errors := 0
			beginTime := time.Now()

			var totalProcTime time.Duration

			defer func() {
				var avgProcTime float64
				if videos > 0 {
					avgProcTime = totalProcTime.Seconds() / float64(videos)
				}

				emit(statsStream, model.AnalyzerStats{
					Name:        "simpleAnalyzer",
					Worker:      worker,
					Videos:      videos,
					Fakes:       fakes,
					Errors:      errors,
					Uptime:      int64(time.Since(beginTime).Seconds()),
					AvgProcTime: avgProcTime,
					Timestamp:   time.Now().Unix(),
				})
			}()

			for {
				select {
				case <-canx.Done():
					lgr.Logger.Info(
						"simple analyzer worker context cancelled",
						slog.Int("worker", worker),
					)
					return

				case video, ok := <-in:
					if !ok {
						return
					}

					start := time.Now()
					rec, err := proc(video, worker)
					totalProcTime += time.Since(start)
					videos++
					if err != nil {
						errors++
					}
					if rec.Result.Prediction == model.PredictionFake {
						fakes++
					}
				}
			}
		}(i)
	}

	return in
}
