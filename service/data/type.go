package data

import (
	"github.com/khaledhikmat/df-go/model"
	"golang.org/x/xerrors"
)

var ErrNotFound = xerrors.New("not found")

type IService interface {
	NewAnalysis(rec model.AnalysisRecord) error
	RetrieveAnalyses(limit int) ([]model.AnalysisRecord, error)
	RetrieveAnalysisByID(id string) (model.AnalysisRecord, error)

	NewError(err interface{}) error
	NewInferenceStats(stats model.InferenceStats) error
	NewAnalyzerStats(stats model.AnalyzerStats) error
	NewManagerStats(stats model.ManagerStats) error

	Close()
}

type errorEntity struct {
	Timestamp  int64                  `json:"timestamp"`
	Processor  string                 `json:"processor"`
	Inner      string                 `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

// toErrorEntity accepts a model.CustomError, any other error or anything else
func toErrorEntity(err interface{}, now int64) errorEntity {
	entity := errorEntity{
		Timestamp:  now,
		Processor:  "N/A",
		StackTrace: "N/A",
	}

	switch e := err.(type) {
	case model.CustomError:
		entity.Processor = e.Processor
		entity.Message = e.Message
		entity.StackTrace = e.StackTrace
		entity.Misc = e.Misc
		if e.Inner != nil {
			entity.Inner = e.Inner.Error()
		}
	case error:
		entity.Inner = e.Error()
		entity.Message = e.Error()
	default:
		entity.Message = xerrors.Errorf("%v", e).Error()
	}

	return entity
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 500 {
		return 500
	}
	return limit
}
