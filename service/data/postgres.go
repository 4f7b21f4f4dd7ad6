package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khaledhikmat/df-go/model"
	"golang.org/x/xerrors"
)

const opTimeout = 5 * time.Second

type postgresService struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and ensures the schema is initialized
func NewPostgres(ctx context.Context, connString string) (IService, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, xerrors.Errorf("failed to reach database: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, xerrors.Errorf("failed to initialize database schema: %w", err)
	}

	return &postgresService{pool: pool}, nil
}

// initSchema creates the tables if they don't exist (Auto-Migration)
func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			video_ref TEXT NOT NULL,
			backend TEXT NOT NULL,
			prediction TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			processing_time DOUBLE PRECISION NOT NULL,
			frames_analyzed INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS analyses_created_at_idx ON analyses (created_at DESC);
		CREATE TABLE IF NOT EXISTS errors (
			id BIGSERIAL PRIMARY KEY,
			processor TEXT NOT NULL,
			body JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS stats (
			id BIGSERIAL PRIMARY KEY,
			kind TEXT NOT NULL,
			body JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	_, err := pool.Exec(ctx, query)
	return err
}

func (svc *postgresService) NewAnalysis(rec model.AnalysisRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := svc.pool.Exec(ctx, `
		INSERT INTO analyses (id, video_ref, backend, prediction, confidence, processing_time, frames_analyzed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.VideoRef, rec.Backend,
		string(rec.Result.Prediction), rec.Result.Confidence, rec.Result.ProcessingTime, rec.Result.FramesAnalyzed,
		rec.CreatedAt)
	return err
}

func (svc *postgresService) RetrieveAnalyses(limit int) ([]model.AnalysisRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := svc.pool.Query(ctx, `
		SELECT id, video_ref, backend, prediction, confidence, processing_time, frames_analyzed, created_at
		FROM analyses
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.AnalysisRecord{}
	for rows.Next() {
		rec, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (svc *postgresService) RetrieveAnalysisByID(id string) (model.AnalysisRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := svc.pool.QueryRow(ctx, `
		SELECT id, video_ref, backend, prediction, confidence, processing_time, frames_analyzed, created_at
		FROM analyses
		WHERE id = $1`, id)

	rec, err := scanAnalysis(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AnalysisRecord{}, ErrNotFound
	}
	return rec, err
}

func scanAnalysis(row pgx.Row) (model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	var prediction string
	err := row.Scan(&rec.ID, &rec.VideoRef, &rec.Backend,
		&prediction, &rec.Result.Confidence, &rec.Result.ProcessingTime, &rec.Result.FramesAnalyzed,
		&rec.CreatedAt)
	if err != nil {
		return model.AnalysisRecord{}, err
	}
	rec.Result.Prediction = model.Prediction(prediction)
	return rec, nil
}

func (svc *postgresService) NewError(err interface{}) error {
	entity := toErrorEntity(err, time.Now().Unix())
	body, mErr := json.Marshal(entity)
	if mErr != nil {
		return mErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, execErr := svc.pool.Exec(ctx, `INSERT INTO errors (processor, body) VALUES ($1, $2)`, entity.Processor, body)
	return execErr
}

func (svc *postgresService) NewInferenceStats(stats model.InferenceStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("inference", stats)
}

func (svc *postgresService) NewAnalyzerStats(stats model.AnalyzerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("analyzer", stats)
}

func (svc *postgresService) NewManagerStats(stats model.ManagerStats) error {
	stats.Timestamp = time.Now().Unix()
	return svc.newStats("manager", stats)
}

func (svc *postgresService) Close() {
	svc.pool.Close()
}

func (svc *postgresService) newStats(kind string, stats interface{}) error {
	body, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err = svc.pool.Exec(ctx, `INSERT INTO stats (kind, body) VALUES ($1, $2)`, kind, body)
	return err
}
