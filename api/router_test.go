package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/pipeline"
	"github.com/khaledhikmat/df-go/service/config"
	"github.com/khaledhikmat/df-go/service/data"
	"github.com/khaledhikmat/df-go/service/inference"
	"github.com/khaledhikmat/df-go/service/source"
	"github.com/khaledhikmat/df-go/service/storage"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func newTestServer(t *testing.T, verify bool) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	settings := config.DefaultSettings()
	settings.DataFolder = filepath.Join(dir, "data")
	settings.UploadsFolder = filepath.Join(dir, "uploads")
	settings.Mock.DelayMin = 0
	settings.Mock.DelayMax = 0
	settings.Mock.VerifySource = verify
	cfgSvc := config.NewFromSettings(settings)

	svcs := pipeline.ServicesFactory{
		CfgSvc:       cfgSvc,
		DataSvc:      data.NewFilesDB(cfgSvc),
		StorageSvc:   storage.NewLocal(cfgSvc),
		InferenceSvc: inference.NewMock(settings.Mock, source.NewLocal(), fixedRand(0.5), nil),
	}

	srv := httptest.NewServer(NewRouter(svcs))
	t.Cleanup(srv.Close)
	return srv
}

func postAnalyze(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/analyze", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status    string               `json:"status"`
		Inference model.InferenceStats `json:"inference"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Inference.Name != inference.MockName {
		t.Errorf("unexpected health body %+v", body)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, false)

	resp := postAnalyze(t, srv, `{"videoUri": "file://demo.mp4"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var rec model.AnalysisRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID == "" || rec.VideoRef != "file://demo.mp4" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Result.Prediction != model.PredictionReal || rec.Result.FramesAnalyzed != 20 {
		t.Errorf("unexpected result %+v", rec.Result)
	}

	// The record is retrievable
	get, err := http.Get(srv.URL + "/v1/analyses/" + rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Errorf("expected 200 retrieving %s, got %d", rec.ID, get.StatusCode)
	}
}

func TestAnalyzeEndpointBadRequests(t *testing.T) {
	srv := newTestServer(t, false)

	tests := []struct {
		name string
		body string
	}{
		{"empty uri", `{"videoUri": ""}`},
		{"blank uri", `{"videoUri": "   "}`},
		{"missing uri", `{}`},
		{"malformed json", `{"videoUri":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postAnalyze(t, srv, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestAnalyzeEndpointMissingVideoStillAnswers(t *testing.T) {
	srv := newTestServer(t, true)

	resp := postAnalyze(t, srv, `{"videoUri": "file:///does/not/exist.mp4"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var rec model.AnalysisRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.Result.Confidence < 0.75 || rec.Result.Confidence > 0.95 {
		t.Errorf("confidence %v out of range", rec.Result.Confidence)
	}
}

func TestUploadEndpoint(t *testing.T) {
	srv := newTestServer(t, true)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("video", "clip.MP4")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("not really a video")); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Post(srv.URL+"/v1/videos", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var rec model.AnalysisRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(rec.VideoRef, "file://") || !strings.HasSuffix(rec.VideoRef, ".mp4") {
		t.Errorf("unexpected stored reference %q", rec.VideoRef)
	}

	path, ok := source.LocalPath(rec.VideoRef)
	if !ok {
		t.Fatalf("stored reference %q is not local", rec.VideoRef)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("stored file missing: %v", err)
	}
}

func TestUploadEndpointRequiresFile(t *testing.T) {
	srv := newTestServer(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("other", "value"); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp, err := http.Post(srv.URL+"/v1/videos", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListAndGetAnalyses(t *testing.T) {
	srv := newTestServer(t, false)

	for i := 0; i < 3; i++ {
		postAnalyze(t, srv, `{"videoUri": "file://demo.mp4"}`)
	}

	resp, err := http.Get(srv.URL + "/v1/analyses?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var list []model.AnalysisRecord
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 analyses, got %d", len(list))
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown id", "/v1/analyses/nope", http.StatusNotFound},
		{"bad limit", "/v1/analyses?limit=abc", http.StatusBadRequest},
		{"negative limit", "/v1/analyses?limit=-1", http.StatusBadRequest},
		{"no limit", "/v1/analyses", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}
