package mode

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khaledhikmat/df-go/model"
	"github.com/khaledhikmat/df-go/pipeline"
	"github.com/khaledhikmat/df-go/service/config"
	"github.com/khaledhikmat/df-go/service/data"
	"github.com/khaledhikmat/df-go/service/inference"
	"github.com/khaledhikmat/df-go/service/queue"
	"github.com/khaledhikmat/df-go/service/source"
	"github.com/khaledhikmat/df-go/service/webhook"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

type failingData struct {
	data.IService
}

func (failingData) NewAnalysis(model.AnalysisRecord) error {
	return errors.New("disk full")
}

func (failingData) NewError(interface{}) error { return nil }

func (failingData) NewInferenceStats(model.InferenceStats) error { return nil }

type countingData struct {
	data.IService
	managerStats atomic.Int64
}

func (d *countingData) NewManagerStats(model.ManagerStats) error {
	d.managerStats.Add(1)
	return nil
}

// floodingAnalyzer reports stats far more often than the manager flushes
func floodingAnalyzer(canx context.Context, _ pipeline.ServicesFactory, _ chan interface{}, statsStream chan interface{}, _ chan pipeline.ResultData) chan pipeline.VideoData {
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-canx.Done():
				return
			case <-ticker.C:
				select {
				case statsStream <- model.AnalyzerStats{Name: "flood"}:
				case <-canx.Done():
					return
				}
			}
		}
	}()
	return make(chan pipeline.VideoData)
}

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	dir := t.TempDir()
	settings := config.DefaultSettings()
	settings.DataFolder = filepath.Join(dir, "data")
	settings.InputFolder = filepath.Join(dir, "videos")
	settings.UploadsFolder = filepath.Join(dir, "uploads")
	settings.ModeMaxShutdownTime = 0
	settings.WatchPeriodicTimeout = 1
	settings.AnalyzerMaxWorkers = 2
	settings.Mock.DelayMin = 0
	settings.Mock.DelayMax = 0
	return settings
}

func testServices(ctx context.Context, settings config.Settings, f float64) (pipeline.ServicesFactory, *webhook.FakeService) {
	cfgSvc := config.NewFromSettings(settings)
	hook := webhook.NewFake()
	return pipeline.ServicesFactory{
		CfgSvc:       cfgSvc,
		DataSvc:      data.NewFilesDB(cfgSvc),
		QueueSvc:     queue.NewChannel(ctx, 10),
		InferenceSvc: inference.NewMock(settings.Mock, source.NewLocal(), fixedRand(f), nil),
		WebhookSvc:   hook,
	}, hook
}

func waitForAnalyses(t *testing.T, svc data.IService, want int) []model.AnalysisRecord {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		list, err := svc.RetrieveAnalyses(100)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) >= want {
			return list
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d analyses", want)
	return nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.MOV", "c.txt", ".hidden.mp4", "d.webm"} {
		touch(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "folder.mp4"), 0755); err != nil {
		t.Fatal(err)
	}

	exts := []string{".mp4", ".mov", ".webm"}

	refs, err := scanFolder(dir, exts, map[string]bool{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.MOV"),
		filepath.Join(dir, "b.mp4"),
		filepath.Join(dir, "d.webm"),
	}
	if strings.Join(refs, ",") != strings.Join(want, ",") {
		t.Errorf("scanFolder() = %v, want %v", refs, want)
	}

	seen := map[string]bool{want[0]: true}
	refs, err = scanFolder(dir, exts, seen, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0] != want[1] {
		t.Errorf("expected only %s, got %v", want[1], refs)
	}

	if _, err := scanFolder(filepath.Join(dir, "missing"), exts, seen, 0); err == nil {
		t.Error("expected error for missing folder")
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, model.AnalysisRecord{
		VideoRef: "file://demo.mp4",
		Result: model.AnalysisResult{
			Prediction:     model.PredictionFake,
			Confidence:     0.85,
			ProcessingTime: 2.5,
			FramesAnalyzed: 20,
		},
	})

	out := buf.String()
	for _, want := range []string{"FAKE", "85.0%", "20 frames", "2.50s", "file://demo.mp4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestAnalyzeMode(t *testing.T) {
	var buf bytes.Buffer
	resultWriter = &buf
	progressWriter = io.Discard
	t.Cleanup(func() {
		resultWriter = os.Stdout
		progressWriter = os.Stderr
	})

	settings := testSettings(t)
	settings.Mock.VerifySource = false
	svcs, _ := testServices(context.Background(), settings, 0.5)

	if err := Analyze(context.Background(), svcs, []string{"file://one.mp4", "file://two.mp4"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := svcs.DataSvc.RetrieveAnalyses(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 analyses, got %d", len(list))
	}
	if strings.Count(buf.String(), "REAL") != 2 {
		t.Errorf("expected two REAL cards, got %q", buf.String())
	}

	if err := Analyze(context.Background(), svcs, nil); err == nil {
		t.Error("expected error without references")
	}
}

func TestAnalyzeModePersistFailure(t *testing.T) {
	resultWriter = io.Discard
	t.Cleanup(func() { resultWriter = os.Stdout })

	settings := testSettings(t)
	svcs, _ := testServices(context.Background(), settings, 0.5)
	svcs.DataSvc = failingData{}

	if err := Analyze(context.Background(), svcs, []string{"file://one.mp4"}); err == nil {
		t.Error("expected error when analyses cannot be persisted")
	}
}

func TestManager(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := testSettings(t)
	settings.Mock.VerifySource = false
	svcs, hook := testServices(ctx, settings, 0.9)

	done := make(chan error, 1)
	go func() {
		done <- Manager(ctx, svcs, nil)
	}()

	// The manager subscribes asynchronously
	deadline := time.Now().Add(5 * time.Second)
	for {
		err := svcs.QueueSvc.Publish([]string{"file://a.mp4", "file://b.mp4"})
		if err == nil {
			break
		}
		if !errors.Is(err, queue.ErrNoSubscriber) || time.Now().After(deadline) {
			t.Fatalf("publish failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	list := waitForAnalyses(t, svcs.DataSvc, 2)
	for _, rec := range list {
		if rec.Result.Prediction != model.PredictionFake {
			t.Errorf("unexpected prediction %s", rec.Result.Prediction)
		}
	}

	deadline = time.Now().Add(5 * time.Second)
	for len(hook.Payloads()) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(hook.Payloads()) != 2 {
		t.Errorf("expected 2 webhook posts, got %d", len(hook.Payloads()))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected manager error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not exit")
	}
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := testSettings(t)
	svcs, _ := testServices(ctx, settings, 0.5)

	touch(t, filepath.Join(settings.InputFolder, "one.mp4"))
	touch(t, filepath.Join(settings.InputFolder, "two.mov"))
	touch(t, filepath.Join(settings.InputFolder, "notes.txt"))

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, svcs, nil)
	}()

	waitForAnalyses(t, svcs.DataSvc, 2)

	// Files are published once
	time.Sleep(1500 * time.Millisecond)
	list, err := svcs.DataSvc.RetrieveAnalyses(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 analyses, got %d", len(list))
	}
	for _, rec := range list {
		if !filepath.IsAbs(rec.VideoRef) {
			t.Errorf("unexpected reference %q", rec.VideoRef)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected watch error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not exit")
	}
}

func TestServe(t *testing.T) {
	settings := testSettings(t)
	settings.ServerAddress = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	svcs, _ := testServices(ctx, settings, 0.5)

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, svcs, nil)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected serve error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not exit")
	}
}

func TestServeInvalidAddress(t *testing.T) {
	settings := testSettings(t)
	settings.ServerAddress = "127.0.0.1:-1"

	svcs, _ := testServices(context.Background(), settings, 0.5)

	if err := Serve(context.Background(), svcs, nil); err == nil {
		t.Error("expected error for invalid address")
	}
}

func TestManagerFlushesUnderStatsTraffic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings := testSettings(t)
	settings.ManagerPeriodicTimeout = 1
	svcs, _ := testServices(ctx, settings, 0.5)
	counting := &countingData{IService: svcs.DataSvc}
	svcs.DataSvc = counting

	done := make(chan error, 1)
	go func() {
		done <- runManager(ctx, svcs, floodingAnalyzer, pipeline.SimpleNotifier)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for counting.managerStats.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if counting.managerStats.Load() == 0 {
		t.Error("manager stats were never flushed while stats kept arriving")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not exit")
	}
}
