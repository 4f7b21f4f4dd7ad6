package mode

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/khaledhikmat/df-go/api"
	"github.com/khaledhikmat/df-go/pipeline"
	"github.com/khaledhikmat/df-go/service/lgr"
)

// Serve exposes the analysis API until the context is cancelled
func Serve(canxCtx context.Context, svcs pipeline.ServicesFactory, _ []string) error {
	srv := &http.Server{
		Addr:         svcs.CfgSvc.GetServerAddress(),
		Handler:      api.NewRouter(svcs),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		lgr.Logger.Info(
			"server listening",
			slog.String("address", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	ticker := time.NewTicker(time.Duration(svcs.CfgSvc.GetManagerPeriodicTimeout()) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"server context cancelled",
			)
			goto resume

		case err, ok := <-serveErr:
			if ok {
				return err
			}
			return nil

		case <-ticker.C:
			procStats(svcs.DataSvc, svcs.InferenceSvc.Stats())
		}
	}

resume:
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second)
	defer cancel()

	procStats(svcs.DataSvc, svcs.InferenceSvc.Stats())
	if err := srv.Shutdown(ctx); err != nil {
		lgr.Logger.Error(
			"server shutdown",
			slog.Any("error", err),
		)
		return err
	}

	return nil
}
