package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/pipeline"
	"github.com/khaledhikmat/df-go/service/data"
	"github.com/khaledhikmat/df-go/service/lgr"
)

// Processor runs one mode until it finishes or the context is cancelled.
// `args` are the command line arguments that follow the mode name.
type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error

func procStats(datasvc data.IService, stats interface{}) {
	switch stats := stats.(type) {
	case model.InferenceStats:
		procInferenceStats(datasvc, stats)
	case model.AnalyzerStats:
		procAnalyzerStats(datasvc, stats)
	case model.ManagerStats:
		procManagerStats(datasvc, stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procInferenceStats(datasvc data.IService, stats model.InferenceStats) {
	err := datasvc.NewInferenceStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store inference stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procAnalyzerStats(datasvc data.IService, stats model.AnalyzerStats) {
	err := datasvc.NewAnalyzerStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store analyzer stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procManagerStats(datasvc data.IService, stats model.ManagerStats) {
	err := datasvc.NewManagerStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store manager stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
