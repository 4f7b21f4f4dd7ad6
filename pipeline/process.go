package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/service/lgr"
)

// Process analyzes one reference and persists the record. Inference never
// fails, so the only error is a persistence failure. The record is returned
// in both cases.
func Process(ctx context.Context, svcs ServicesFactory, ref string) (model.AnalysisRecord, error) {
	result := svcs.InferenceSvc.Analyze(ctx, ref)

	rec := model.AnalysisRecord{
		ID:        uuid.NewString(),
		VideoRef:  ref,
		Backend:   svcs.InferenceSvc.Name(),
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}

	lgr.Logger.Debug(
		"video analyzed",
		slog.String("id", rec.ID),
		slog.String("videoRef", ref),
		slog.String("prediction", string(result.Prediction)),
		slog.Float64("confidence", result.Confidence),
	)

	if svcs.DataSvc == nil {
		return rec, nil
	}

	if err := svcs.DataSvc.NewAnalysis(rec); err != nil {
		return rec, xerrors.Errorf("persist analysis %s: %w", rec.ID, lgr.WithStack(err))
	}

	return rec, nil
}
