package inference

import (
	"context"
	"math/rand"
	"time"

	"github.com/khaledhikmat/df-go/model"
)

// IService classifies a video reference as REAL or FAKE.
// Analyze is total: every fault is masked by a demo result, so callers never
// see an error.
type IService interface {
	Name() string
	Initialize(ctx context.Context) error
	Analyze(ctx context.Context, videoRef string) model.AnalysisResult
	Teardown()
	Stats() model.InferenceStats
}

// Randomizer returns values in [0, 1)
type Randomizer interface {
	Float64() float64
}

// Clock makes elapsed time measurable in tests
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// GlobalRand uses the process-wide math/rand source
func GlobalRand() Randomizer {
	return globalRand{}
}

// SeededRand is reproducible across runs. The returned value must not be
// shared outside a Generator, which serializes access to it.
func SeededRand(seed int64) Randomizer {
	return rand.New(rand.NewSource(seed))
}
