package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/service/config"
)

const (
	analysesFile       = "analyses"
	errorsFile         = "errors"
	inferenceStatsFile = "inference-stats"
	analyzerStatsFile  = "analyzer-stats"
	managerStatsFile   = "manager-stats"
)

type filesDBService struct {
	CfgSvc config.IService
	// Every entity file is rewritten in full, so writers must be serialized
	mu sync.Mutex
}

func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) NewAnalysis(rec model.AnalysisRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return svc.locked(func() error { return newEntity(rec, analysesFile, svc.CfgSvc) })
}

func (svc *filesDBService) RetrieveAnalyses(limit int) ([]model.AnalysisRecord, error) {
	svc.mu.Lock()
	records, err := retrieveEntites[model.AnalysisRecord](analysesFile, svc.CfgSvc)
	svc.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// Newest first
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	limit = clampLimit(limit)
	if len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

func (svc *filesDBService) RetrieveAnalysisByID(id string) (model.AnalysisRecord, error) {
	svc.mu.Lock()
	records, err := retrieveEntites[model.AnalysisRecord](analysesFile, svc.CfgSvc)
	svc.mu.Unlock()
	if err != nil {
		return model.AnalysisRecord{}, err
	}

	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}

	return model.AnalysisRecord{}, ErrNotFound
}

func (svc *filesDBService) NewError(err interface{}) error {
	entity := toErrorEntity(err, time.Now().Unix())
	return svc.locked(func() error { return newEntity(entity, errorsFile, svc.CfgSvc) })
}

func (svc *filesDBService) NewInferenceStats(stats model.InferenceStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.locked(func() error { return newEntity(stats, inferenceStatsFile, svc.CfgSvc) })
}

func (svc *filesDBService) NewAnalyzerStats(stats model.AnalyzerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.locked(func() error { return newEntity(stats, analyzerStatsFile, svc.CfgSvc) })
}

func (svc *filesDBService) NewManagerStats(stats model.ManagerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.locked(func() error { return newEntity(stats, managerStatsFile, svc.CfgSvc) })
}

func (svc *filesDBService) Close() {
}

func (svc *filesDBService) locked(fn func() error) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return fn()
}

func entityPath(filename string, cfgsvc config.IService) string {
	return filepath.Join(cfgsvc.GetDataFolder(), fmt.Sprintf("%s.json", filename))
}

func newEntity[T any](entity T, filename string, cfgsvc config.IService) error {
	entities, err := retrieveEntites[T](filename, cfgsvc)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	// Marshal the entity data to JSON
	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgsvc.GetDataFolder(), 0755); err != nil {
		return err
	}

	// Write to a temp file and rename so readers never see a partial file
	output := entityPath(filename, cfgsvc)
	tmp := output + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmp, output)
}

func retrieveEntites[T any](filename string, cfgsvc config.IService) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(entityPath(filename, cfgsvc))
	if os.IsNotExist(err) {
		// WARNING: File not found, return empty slice
		return entities, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, err
	}

	return entities, nil
}
