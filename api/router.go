package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/df-go/pipeline"
	"github.com/khaledhikmat/df-go/service/data"
	"github.com/khaledhikmat/df-go/service/lgr"
)

const (
	maxUploadSize   = 512 << 20
	maxUploadMemory = 32 << 20
)

var errBadRequest = xerrors.New("bad request")

type Router struct {
	svcs pipeline.ServicesFactory
}

func NewRouter(svcs pipeline.ServicesFactory) http.Handler {
	r := &Router{svcs: svcs}
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(requestLogger)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", r.wrap(r.handleHealth))

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Post("/videos", r.wrap(r.handleUpload))
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		switch {
		case errors.Is(err, data.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, errBadRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			lgr.Logger.Error(
				"request failed",
				slog.String("path", req.URL.Path),
				slog.Any("error", lgr.WithStack(err)),
			)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

// GET /health
func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"inference": r.svcs.InferenceSvc.Stats(),
	})
}

// POST /v1/analyze
// Body: {"videoUri": "<ref>"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		VideoURI string `json:"videoUri"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return xerrors.Errorf("invalid body (%v): %w", err, errBadRequest)
	}
	if strings.TrimSpace(body.VideoURI) == "" {
		return xerrors.Errorf("videoUri is required: %w", errBadRequest)
	}

	rec, err := pipeline.Process(req.Context(), r.svcs, body.VideoURI)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, rec)
}

// POST /v1/videos
// Multipart form with a `video` file part
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadSize)
	if err := req.ParseMultipartForm(maxUploadMemory); err != nil {
		return xerrors.Errorf("invalid multipart form (%v): %w", err, errBadRequest)
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("video")
	if err != nil {
		return xerrors.Errorf("video file is required: %w", errBadRequest)
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "upload-*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return xerrors.Errorf("buffer upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	ref, err := r.svcs.StorageSvc.StoreFile(req.Context(), tmp.Name())
	if err != nil {
		return xerrors.Errorf("store upload: %w", err)
	}

	rec, err := pipeline.Process(req.Context(), r.svcs, ref)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, rec)
}

// GET /v1/analyses?limit=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	limit := 0
	if s := req.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return xerrors.Errorf("invalid limit %q: %w", s, errBadRequest)
		}
		limit = n
	}

	list, err := r.svcs.DataSvc.RetrieveAnalyses(limit)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	rec, err := r.svcs.DataSvc.RetrieveAnalysisByID(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, req)

		lgr.Logger.Info(
			"http request",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("requestId", middleware.GetReqID(req.Context())),
		)
	})
}
