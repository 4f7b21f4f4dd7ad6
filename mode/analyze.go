package mode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/pipeline"
	"github.com/khaledhikmat/df-go/service/lgr"
)

// Results go to stdout. The progress bar goes to stderr so results can be piped.
var (
	resultWriter   io.Writer = color.Output
	progressWriter io.Writer = os.Stderr
)

// Analyze runs a one-shot analysis of every reference in `args` and prints a
// result card for each one
func Analyze(canxCtx context.Context, svcs pipeline.ServicesFactory, args []string) error {
	if len(args) == 0 {
		return xerrors.New("analyze needs at least one video reference")
	}

	var bar *progressbar.ProgressBar
	if len(args) > 1 {
		bar = progressbar.NewOptions(len(args),
			progressbar.OptionSetDescription("Analyzing"),
			progressbar.OptionSetWriter(progressWriter),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	failures := 0
	for _, ref := range args {
		if canxCtx.Err() != nil {
			break
		}

		rec, err := pipeline.Process(canxCtx, svcs, ref)
		if err != nil {
			failures++
			procError(svcs.DataSvc, model.GenError("analyze",
				err,
				map[string]interface{}{
					"videoRef": ref,
				},
				"error persisting analysis"))
		}

		if bar != nil {
			_ = bar.Add(1)
		}

		printResult(resultWriter, rec)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	procStats(svcs.DataSvc, svcs.InferenceSvc.Stats())

	if failures > 0 {
		lgr.Logger.Warn(
			"some analyses were not persisted",
			slog.Int("failures", failures),
		)
		return xerrors.Errorf("%d of %d analyses could not be persisted", failures, len(args))
	}

	return canxCtx.Err()
}

// printResult renders the result card: green for REAL, red for FAKE
func printResult(w io.Writer, rec model.AnalysisRecord) {
	verdict := color.New(color.FgGreen, color.Bold)
	if rec.Result.Prediction == model.PredictionFake {
		verdict = color.New(color.FgRed, color.Bold)
	}

	verdict.Fprintf(w, "%-4s", rec.Result.Prediction)
	fmt.Fprintf(w, "  %5.1f%%  %2d frames  %5.2fs  %s\n",
		rec.Result.Confidence*100,
		rec.Result.FramesAnalyzed,
		rec.Result.ProcessingTime,
		rec.VideoRef,
	)
}
