package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/pipeline"
	"github.com/khaledhikmat/df-go/service/lgr"
)

// The manager subscribes to the queue and feeds queued videos to the analyzer.
// It owns the error and stats streams of the pipeline.
func Manager(canxCtx context.Context, svcs pipeline.ServicesFactory, _ []string) error {
	return runManager(canxCtx, svcs, pipeline.SimpleAnalyzer, pipeline.SimpleNotifier)
}

func runManager(canxCtx context.Context, svcs pipeline.ServicesFactory, analyzer pipeline.Analyzer, notifier pipeline.Notifier) error {
	refsStream, err := svcs.QueueSvc.Subscribe()
	if err != nil {
		return err
	}

	// Streams are never closed. Workers may still be reporting while the
	// manager drains them during shutdown.
	errorStream := make(chan interface{}, 100)
	statsStream := make(chan interface{}, 100)

	resultStream := notifier(canxCtx, svcs, errorStream, statsStream)
	videoStream := analyzer(canxCtx, svcs, errorStream, statsStream, resultStream)

	var managerStartTime = time.Now().Unix()
	managerStats := model.ManagerStats{}

	flushStats := func() {
		managerStats.Uptime = time.Now().Unix() - managerStartTime
		if managerStats.Uptime > 0 {
			uptimeInMinutes := float64(managerStats.Uptime) / 60.0
			managerStats.AvgVideosPerMin = float64(managerStats.TotalQueuedVideos) / uptimeInMinutes
		} else {
			managerStats.AvgVideosPerMin = 0.0 // Avoid division by zero
		}
		managerStats.Timestamp = time.Now().Unix()

		procStats(svcs.DataSvc, managerStats)
		procStats(svcs.DataSvc, svcs.InferenceSvc.Stats())
	}

	// A ticker keeps the flush period steady under stats and error traffic
	ticker := time.NewTicker(time.Duration(svcs.CfgSvc.GetManagerPeriodicTimeout()) * time.Second)
	defer ticker.Stop()

	// Wait for cancellation, ticks or queued videos
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"manager context cancelled",
			)
			goto resume

		case refs, ok := <-refsStream:
			if !ok {
				lgr.Logger.Info(
					"manager queue closed",
				)
				goto resume
			}

			managerStats.TotalQueuedRequests++
			for _, ref := range refs {
				select {
				case videoStream <- pipeline.VideoData{Ref: ref, QueuedAt: time.Now()}:
					managerStats.TotalQueuedVideos++
				case <-canxCtx.Done():
					managerStats.TotalDroppedVideos++
				}
			}

		case <-ticker.C:
			flushStats()

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Wait in a non-blocking way for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are existing
resume:
	if err := svcs.QueueSvc.Unsubscribe(); err != nil {
		lgr.Logger.Debug(
			"manager unsubscribe",
			slog.Any("error", err),
		)
	}

	lgr.Logger.Info(
		"manager is waiting for all go routines to exit",
	)

	// The only way to exit is to wait for the shutdown duration
	timer := time.NewTimer(time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			flushStats()
			lgr.Logger.Info(
				"manager shutdown waiting period expired. Exiting now",
				slog.Duration("period", time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second),
			)

			return nil

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}
