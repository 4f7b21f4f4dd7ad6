package inference

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/service/config"
	"github.com/khaledhikmat/df-go/service/lgr"
	"github.com/khaledhikmat/df-go/service/source"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"
)

const MockName = "mock"

var tracer = otel.Tracer("github.com/khaledhikmat/df-go/service/inference")

type mockService struct {
	Params   config.MockParameters
	SrcSvc   source.IService
	Gen      *Generator
	Clock    Clock
	counters *Counters

	mu     sync.Mutex
	loaded bool
}

// NewMock returns the demo-mode service. `srcSvc` may be nil, in which case
// references are never verified.
func NewMock(params config.MockParameters, srcSvc source.IService, rnd Randomizer, clock Clock) IService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &mockService{
		Params:   params,
		SrcSvc:   srcSvc,
		Gen:      NewGenerator(params, rnd),
		Clock:    clock,
		counters: NewCounters(),
	}
}

func (svc *mockService) Name() string {
	return MockName
}

// Initialize simulates model loading. There is nothing to load.
func (svc *mockService) Initialize(_ context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if !svc.loaded {
		lgr.Logger.Info("mock inference service initialized (demo mode)")
	}
	svc.loaded = true
	return nil
}

func (svc *mockService) Teardown() {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.loaded = false
}

func (svc *mockService) Stats() model.InferenceStats {
	svc.mu.Lock()
	loaded := svc.loaded
	svc.mu.Unlock()

	return svc.counters.Snapshot(MockName, loaded)
}

func (svc *mockService) Analyze(ctx context.Context, videoRef string) model.AnalysisResult {
	start := svc.Clock.Now()

	ctx, span := tracer.Start(ctx, "inference.mock.analyze",
		trace.WithAttributes(attribute.String("video.ref", videoRef)))
	defer span.End()

	if err := svc.verify(ctx, videoRef); err != nil {
		result := Fallback(MockName, svc.Gen, svc.Clock, start, videoRef, err)
		svc.record(span, start, result, true)
		return result
	}

	svc.wait(ctx, svc.Gen.Delay())

	result := svc.Gen.Result(start, svc.Clock.Now())
	svc.record(span, start, result, false)

	lgr.Logger.Debug(
		"mock inference complete",
		slog.String("videoRef", videoRef),
		slog.String("prediction", string(result.Prediction)),
		slog.Float64("confidence", result.Confidence),
		slog.Int("frames", result.FramesAnalyzed),
	)

	return result
}

func (svc *mockService) verify(ctx context.Context, videoRef string) error {
	if strings.TrimSpace(videoRef) == "" {
		return ErrEmptyReference
	}

	if !svc.Params.VerifySource || svc.SrcSvc == nil {
		return nil
	}

	ok, err := svc.SrcSvc.Exists(ctx, videoRef)
	if err != nil {
		return xerrors.Errorf("verifying %s: %w", videoRef, err)
	}
	if !ok {
		return ErrVideoNotFound
	}

	return nil
}

// wait suspends for `d`. A cancelled context cuts the wait short but the
// caller still gets a result.
func (svc *mockService) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (svc *mockService) record(span trace.Span, start time.Time, result model.AnalysisResult, fallback bool) {
	svc.counters.Record(svc.Clock.Now().Sub(start), fallback)
	span.SetAttributes(
		attribute.String("prediction", string(result.Prediction)),
		attribute.Float64("confidence", result.Confidence),
		attribute.Int("frames", result.FramesAnalyzed),
		attribute.Bool("fallback", fallback),
	)
}
