package inference

import (
	"math"
	"sync"
	"time"

	"github.com/khaledhikmat/df-go/service/config"
	"github.com/khaledhikmat/df-go/model"
)

// Generator draws content-independent demo results
type Generator struct {
	params config.MockParameters
	mu     sync.Mutex
	rnd    Randomizer
}

func NewGenerator(params config.MockParameters, rnd Randomizer) *Generator {
	if rnd == nil {
		rnd = GlobalRand()
	}
	return &Generator{
		params: params,
		rnd:    rnd,
	}
}

// Delay draws the simulated processing time. No entropy is consumed when the
// delay range is empty.
func (g *Generator) Delay() time.Duration {
	if g.params.DelayMax <= g.params.DelayMin {
		return g.params.DelayMin
	}

	g.mu.Lock()
	f := g.rnd.Float64()
	g.mu.Unlock()

	span := float64(g.params.DelayMax - g.params.DelayMin)
	return g.params.DelayMin + time.Duration(f*span)
}

// Draw picks prediction, confidence and frame count, in that order
func (g *Generator) Draw() (model.Prediction, float64, int) {
	g.mu.Lock()
	fPrediction := g.rnd.Float64()
	fConfidence := g.rnd.Float64()
	fFrames := g.rnd.Float64()
	g.mu.Unlock()

	prediction := model.PredictionFake
	if fPrediction < g.params.RealBias {
		prediction = model.PredictionReal
	}

	confidence := g.params.ConfidenceMin + fConfidence*(g.params.ConfidenceMax-g.params.ConfidenceMin)
	confidence = math.Min(g.params.ConfidenceMax, math.Max(g.params.ConfidenceMin, confidence))

	frames := g.params.FramesMin + int(math.Floor(fFrames*float64(g.params.FramesMax-g.params.FramesMin+1)))
	if frames > g.params.FramesMax {
		frames = g.params.FramesMax
	}
	if frames < g.params.FramesMin {
		frames = g.params.FramesMin
	}

	return prediction, confidence, frames
}

// Result draws a demo result whose processing time is the time elapsed
// between `start` and `end`
func (g *Generator) Result(start, end time.Time) model.AnalysisResult {
	prediction, confidence, frames := g.Draw()
	return model.AnalysisResult{
		Prediction:     prediction,
		Confidence:     confidence,
		ProcessingTime: elapsed(start, end),
		FramesAnalyzed: frames,
	}
}

func elapsed(start, end time.Time) float64 {
	d := end.Sub(start).Seconds()
	if d < 0 {
		return 0
	}
	return d
}
