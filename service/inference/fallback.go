package inference

import (
	"log/slog"
	"time"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/service/lgr"
	"golang.org/x/xerrors"
)

var (
	ErrEmptyReference = xerrors.New("empty video reference")
	ErrVideoNotFound  = xerrors.New("video not found")
)

// Fallback is the one place where a fault turns into a demo answer. Every
// service variant routes its failures here instead of returning them.
func Fallback(name string, gen *Generator, clock Clock, start time.Time, videoRef string, reason error) model.AnalysisResult {
	result := gen.Result(start, clock.Now())
	reason = lgr.WithStack(reason)

	lgr.Logger.Warn(
		"inference fell back to a demo result",
		slog.String("service", name),
		slog.String("videoRef", videoRef),
		slog.Any("reason", reason),
		slog.String("prediction", string(result.Prediction)),
	)

	return result
}
