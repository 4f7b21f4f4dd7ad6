package dnn

import (
	"context"
	"image"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/service/config"
	"github.com/khaledhikmat/df-go/service/inference"
	"github.com/khaledhikmat/df-go/service/lgr"
	"github.com/khaledhikmat/df-go/service/source"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

const Name = "dnn"

var (
	ErrModelNotLoaded = xerrors.New("model not loaded")
	ErrNotLocal       = xerrors.New("only local video references can be decoded")
	ErrNoFrames       = xerrors.New("no frames extracted")
)

var tracer = otel.Tracer("github.com/khaledhikmat/df-go/service/inference/dnn")

type dnnService struct {
	Params   config.ModelParameters
	Gen      *inference.Generator
	Clock    inference.Clock
	counters *inference.Counters

	// WARNING: net is not thread-safe!!!
	// Every use of it must hold mu. Stats only reads loaded so it never
	// waits for a running analysis.
	mu     sync.Mutex
	net    *gocv.Net
	loaded atomic.Bool
}

// New returns the model-backed service. Faults fall back to demo results
// drawn with `mockParams`.
func New(params config.ModelParameters, mockParams config.MockParameters, rnd inference.Randomizer, clock inference.Clock) inference.IService {
	if clock == nil {
		clock = inference.SystemClock{}
	}
	return &dnnService{
		Params:   params,
		Gen:      inference.NewGenerator(mockParams, rnd),
		Clock:    clock,
		counters: inference.NewCounters(),
	}
}

func (svc *dnnService) Name() string {
	return Name
}

// Initialize loads the ONNX model once. A missing or unreadable model is
// logged and leaves the service unloaded: every analysis then falls back.
func (svc *dnnService) Initialize(_ context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.loaded.Load() {
		return nil
	}

	lgr.Logger.Info("dnn inference service loading model...",
		slog.String("model", svc.Params.ModelPath),
		slog.String("openCV", gocv.Version()),
	)

	if _, err := os.Stat(svc.Params.ModelPath); err != nil {
		lgr.Logger.Warn("dnn model not available, running in demo mode",
			slog.String("model", svc.Params.ModelPath),
			slog.Any("error", err),
		)
		return nil
	}

	net := gocv.ReadNet(svc.Params.ModelPath, "")
	if net.Empty() {
		lgr.Logger.Warn("dnn model could not be read, running in demo mode",
			slog.String("model", svc.Params.ModelPath),
		)
		return nil
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		lgr.Logger.Warn("error setting dnn backend, running in demo mode", slog.Any("error", err))
		return nil
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		lgr.Logger.Warn("error setting dnn target, running in demo mode", slog.Any("error", err))
		return nil
	}

	svc.net = &net
	svc.loaded.Store(true)
	lgr.Logger.Info("dnn model loaded", slog.String("model", svc.Params.ModelPath))
	return nil
}

// Teardown waits for a running analysis to release the net before closing it
func (svc *dnnService) Teardown() {
	svc.loaded.Store(false)

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.net != nil {
		svc.net.Close()
		svc.net = nil
	}
}

func (svc *dnnService) Stats() model.InferenceStats {
	return svc.counters.Snapshot(Name, svc.loaded.Load())
}

func (svc *dnnService) Analyze(ctx context.Context, videoRef string) model.AnalysisResult {
	start := svc.Clock.Now()

	ctx, span := tracer.Start(ctx, "inference.dnn.analyze",
		trace.WithAttributes(attribute.String("video.ref", videoRef)))
	defer span.End()

	scores, err := svc.score(ctx, videoRef)
	if err != nil {
		result := inference.Fallback(Name, svc.Gen, svc.Clock, start, videoRef, err)
		svc.counters.Record(svc.Clock.Now().Sub(start), true)
		span.SetAttributes(attribute.Bool("fallback", true))
		return result
	}

	prediction, confidence := decide(mean(scores), svc.Params.FakeThreshold)
	end := svc.Clock.Now()
	result := model.AnalysisResult{
		Prediction:     prediction,
		Confidence:     confidence,
		ProcessingTime: math.Max(0, end.Sub(start).Seconds()),
		FramesAnalyzed: len(scores),
	}

	svc.counters.Record(end.Sub(start), false)
	span.SetAttributes(
		attribute.String("prediction", string(prediction)),
		attribute.Float64("confidence", confidence),
		attribute.Int("frames", len(scores)),
		attribute.Bool("fallback", false),
	)

	return result
}

// score returns the per-frame fake probability of evenly sampled frames
func (svc *dnnService) score(ctx context.Context, videoRef string) ([]float64, error) {
	path, ok := source.LocalPath(videoRef)
	if !ok {
		return nil, ErrNotLocal
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if !svc.loaded.Load() || svc.net == nil {
		return nil, ErrModelNotLoaded
	}

	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, xerrors.Errorf("opening video %s: %w", path, err)
	}
	defer capture.Close()

	if !capture.IsOpened() {
		return nil, xerrors.Errorf("video %s could not be opened", path)
	}

	want := svc.Params.FramesToSample
	step := sampleStep(int(capture.Get(gocv.VideoCaptureFrameCount)), want)

	img := gocv.NewMat()
	defer img.Close() // Crucial to close the image to avoid memory leaks

	begin := time.Now()
	scores := []float64{}
	for idx := 0; len(scores) < want; idx++ {
		if ctx.Err() != nil {
			break
		}

		if ok := capture.Read(&img); !ok {
			break
		}

		if img.Empty() || idx%step != 0 {
			continue
		}

		s, err := svc.forward(img)
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}

	if len(scores) == 0 {
		return nil, ErrNoFrames
	}

	lgr.Logger.Debug("dnn frames scored",
		slog.String("video", path),
		slog.Int("frames", len(scores)),
		slog.Duration("elapsed", time.Since(begin)),
	)

	return scores, nil
}

func (svc *dnnService) forward(img gocv.Mat) (float64, error) {
	size := svc.Params.InputSize
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	svc.net.SetInput(blob, "")

	output := svc.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return 0, xerrors.Errorf("reading model output: %w", err)
	}

	return fakeScore(data)
}

// sampleStep spreads `want` samples over `total` frames. An unknown frame
// count samples consecutive frames.
func sampleStep(total, want int) int {
	if total <= 0 || want <= 0 || total <= want {
		return 1
	}
	return total / want
}

// fakeScore reads the fake probability from a sigmoid ([fake]) or a
// softmax ([real, fake]) output
func fakeScore(data []float32) (float64, error) {
	var s float64
	switch {
	case len(data) == 1:
		s = float64(data[0])
	case len(data) >= 2:
		s = float64(data[1])
	default:
		return 0, xerrors.New("empty model output")
	}

	if math.IsNaN(s) || s < 0 || s > 1 {
		return 0, xerrors.Errorf("model output %v is not a probability", s)
	}
	return s, nil
}

func decide(fakeProbability, threshold float64) (model.Prediction, float64) {
	if fakeProbability > threshold {
		return model.PredictionFake, fakeProbability
	}
	return model.PredictionReal, 1 - fakeProbability
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
