package model

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/mdobak/go-xerrors"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

// GenError tags `err` with the processor that hit it. The inner error gets
// a stack trace of the call site unless it already has one.
func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	stack := string(debug.Stack())
	if err != nil {
		if len(xerrors.StackTrace(err)) == 0 {
			err = xerrors.WithStackTrace(err, 1)
		}
		stack = xerrors.StackTrace(err).String()
	}

	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: stack,
		Misc:       misc,
	}
}

type Prediction string

const (
	PredictionReal Prediction = "REAL"
	PredictionFake Prediction = "FAKE"
)

// AnalysisResult is what an inference service hands back for one video.
// It is never mutated after construction.
type AnalysisResult struct {
	Prediction     Prediction `json:"prediction"`
	Confidence     float64    `json:"confidence"`
	ProcessingTime float64    `json:"processingTime"` // seconds
	FramesAnalyzed int        `json:"framesAnalyzed"`
}

// AnalysisRecord is the persisted envelope around a result
type AnalysisRecord struct {
	ID        string         `json:"id"`
	VideoRef  string         `json:"videoRef"`
	Backend   string         `json:"backend"`
	Result    AnalysisResult `json:"result"`
	CreatedAt time.Time      `json:"createdAt"`
}

type InferenceStats struct {
	Name        string  `json:"name"`
	Loaded      bool    `json:"loaded"`
	Analyses    int64   `json:"analyses"`
	Fallbacks   int64   `json:"fallbacks"`
	AvgProcTime float64 `json:"avgProcTime"`
	Uptime      int64   `json:"uptime"`
	Timestamp   int64   `json:"timestamp"`
}

type AnalyzerStats struct {
	Name        string  `json:"name"`
	Worker      int     `json:"worker"`
	Videos      int     `json:"videos"`
	Fakes       int     `json:"fakes"`
	Errors      int     `json:"errors"`
	Uptime      int64   `json:"uptime"`
	AvgProcTime float64 `json:"avgProcTime"`
	Timestamp   int64   `json:"timestamp"`
}

type ManagerStats struct {
	TotalQueuedRequests int64   `json:"queuedRequests"`
	TotalQueuedVideos   int64   `json:"queuedVideos"`
	TotalDroppedVideos  int64   `json:"droppedVideos"`
	Uptime              int64   `json:"uptime"`
	AvgVideosPerMin     float64 `json:"avgVideosPerMin"`
	Timestamp           int64   `json:"timestamp"`
}
