package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/df-go/mode"
	"github.com/khaledhikmat/df-go/pipeline"
	"github.com/khaledhikmat/df-go/service/config"
	"github.com/khaledhikmat/df-go/service/data"
	"github.com/khaledhikmat/df-go/service/inference"
	"github.com/khaledhikmat/df-go/service/inference/dnn"
	"github.com/khaledhikmat/df-go/service/lgr"
	"github.com/khaledhikmat/df-go/service/queue"
	"github.com/khaledhikmat/df-go/service/source"
	"github.com/khaledhikmat/df-go/service/storage"
	"github.com/khaledhikmat/df-go/service/webhook"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second

	defaultConfigPath = "config.yaml"
)

var modeProcessors = map[string]mode.Processor{
	"analyze": mode.Analyze,
	"serve":   mode.Serve,
	"watch":   mode.Watch,
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)
	defer canxFn()

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
			return 1
		}
	}
	lgr.SetupFromEnv()

	modeType := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
		args = args[1:]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		return 2
	}

	// Create the services needed for the mode processor
	svcs, teardown, err := newServices(canxCtx)
	if err != nil {
		lgr.Logger.Error("error creating services", slog.Any("error", err))
		return 1
	}
	defer func() {
		// Publishers must be released before the queue is finalized
		canxFn()
		teardown()
	}()

	// Create mode processor result
	modeProcResult := make(chan error, 1)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs, args)
	}()

	// Wait for cancellation or mode proc
	select {
	case <-canxCtx.Done():
		lgr.Logger.Info(
			"df-go context cancelled",
		)

	case err := <-modeProcResult:
		if err != nil {
			lgr.Logger.Error(
				"df-go mode processor exited",
				slog.String("mode", modeType),
				slog.Any("error", err),
			)
			return 1
		}
		return 0
	}

	lgr.Logger.Info(
		"df-go is waiting for the mode processor to exit",
	)

	// The only way to exit the main function is to wait for the mode
	// processor or the shutdown duration
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	select {
	case <-timer.C:
		lgr.Logger.Info(
			"df-go shutdown waiting period expired. Exiting now",
			slog.Duration("period", waitOnShutdown),
		)

	case err := <-modeProcResult:
		if err != nil {
			lgr.Logger.Info(
				"df-go mode processor exited",
				slog.Any("error", err),
			)
		}
	}

	return 0
}

func newConfig() (config.IService, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return config.NewHardCoded(), nil
		}
		path = defaultConfigPath
	}

	lgr.Logger.Info("loading config", slog.String("path", path))
	return config.NewYaml(path)
}

// newServices wires the services according to the configured backends. The
// returned function releases them.
func newServices(canxCtx context.Context) (pipeline.ServicesFactory, func(), error) {
	cfgSvc, err := newConfig()
	if err != nil {
		return pipeline.ServicesFactory{}, nil, err
	}

	routes := map[string]source.IService{
		"file":  source.NewLocal(),
		"http":  source.NewHTTP(http.DefaultClient),
		"https": source.NewHTTP(http.DefaultClient),
	}

	// storage service
	var storageSvc storage.IService
	switch cfgSvc.GetStorageBackend() {
	case config.StorageBackendMinio:
		client, err := storage.NewMinioClient(cfgSvc.GetMinioParameters())
		if err != nil {
			return pipeline.ServicesFactory{}, nil, xerrors.Errorf("minio client: %w", err)
		}
		storageSvc, err = storage.NewMinio(canxCtx, client, cfgSvc.GetMinioParameters())
		if err != nil {
			return pipeline.ServicesFactory{}, nil, err
		}
		routes["s3"] = source.NewMinio(client)
	default:
		storageSvc = storage.NewLocal(cfgSvc)
	}

	// data service
	var dataSvc data.IService
	switch cfgSvc.GetDataBackend() {
	case config.DataBackendPostgres:
		dataSvc, err = data.NewPostgres(canxCtx, cfgSvc.GetPostgresURL())
		if err != nil {
			return pipeline.ServicesFactory{}, nil, err
		}
	default:
		dataSvc = data.NewFilesDB(cfgSvc)
	}

	// inference service
	var inferenceSvc inference.IService
	switch cfgSvc.GetInferenceBackend() {
	case config.InferenceBackendDNN:
		inferenceSvc = dnn.New(cfgSvc.GetModelParameters(), cfgSvc.GetMockParameters(), inference.GlobalRand(), inference.SystemClock{})
	default:
		inferenceSvc = inference.NewMock(cfgSvc.GetMockParameters(), source.NewRouter(routes), inference.GlobalRand(), inference.SystemClock{})
	}

	if err := inferenceSvc.Initialize(canxCtx); err != nil {
		dataSvc.Close()
		return pipeline.ServicesFactory{}, nil, err
	}

	// webhook service
	var webhookSvc webhook.IService = webhook.NewFake()
	if url := cfgSvc.GetWebhookURL(); url != "" {
		webhookSvc = webhook.NewHTTP(url, nil)
	}

	queueSvc := queue.NewChannel(canxCtx, cfgSvc.GetWatchMaxVideos())

	svcs := pipeline.ServicesFactory{
		CfgSvc:       cfgSvc,
		DataSvc:      dataSvc,
		QueueSvc:     queueSvc,
		StorageSvc:   storageSvc,
		InferenceSvc: inferenceSvc,
		WebhookSvc:   webhookSvc,
	}

	teardown := func() {
		inferenceSvc.Teardown()
		queueSvc.Finalize()
		dataSvc.Close()
	}

	return svcs, teardown, nil
}
