package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/service/lgr"
)

// SimpleNotifier posts a webhook for every FAKE result whose confidence
// reaches the configured alert confidence
func SimpleNotifier(canx context.Context, svcs ServicesFactory, errorStream chan interface{}, _ chan interface{}) chan ResultData {
	in := make(chan ResultData, 100)

	go func() {
		for {
			select {
			case <-canx.Done():
				lgr.Logger.Info(
					"notifier context cancelled",
				)
				return

			case result := <-in:
				rec := result.Record
				if !shouldNotify(rec, svcs.CfgSvc.GetAlertConfidence()) {
					continue
				}

				payload := alertPayload(rec)
				lgr.Logger.Info(
					"fake video detected",
					slog.String("videoRef", rec.VideoRef),
					slog.Float64("confidence", rec.Result.Confidence),
				)

				if svcs.WebhookSvc == nil {
					continue
				}

				ctx, cancel := context.WithTimeout(canx, webhookTimeout)
				err := svcs.WebhookSvc.Post(ctx, payload)
				cancel()
				if err != nil {
					emit(errorStream, model.GenError("notifier",
						err,
						map[string]interface{}{
							"analysisId": rec.ID,
						},
						"error posting webhook"))
				}
			}
		}
	}()

	return in
}

func shouldNotify(rec model.AnalysisRecord, alertConfidence float64) bool {
	return rec.Result.Prediction == model.PredictionFake &&
		rec.Result.Confidence >= alertConfidence
}

func alertPayload(rec model.AnalysisRecord) map[string]interface{} {
	return map[string]interface{}{
		"analysisId":     rec.ID,
		"source":         rec.VideoRef,
		"backend":        rec.Backend,
		"prediction":     string(rec.Result.Prediction),
		"confidence":     rec.Result.Confidence,
		"framesAnalyzed": rec.Result.FramesAnalyzed,
		"processingTime": rec.Result.ProcessingTime,
		"timestamp":      rec.CreatedAt.Format(time.RFC3339),
	}
}
