package config

import (
	"time"
)

// Settings is the full configuration surface. Both the hardcoded and the yaml
// services are views over it.
type Settings struct {
	ModeMaxShutdownTime    int             `yaml:"modeMaxShutdownTime"`
	InputFolder            string          `yaml:"inputFolder"`
	DataFolder             string          `yaml:"dataFolder"`
	UploadsFolder          string          `yaml:"uploadsFolder"`
	VideoExtensions        []string        `yaml:"videoExtensions"`
	WatchPeriodicTimeout   int             `yaml:"watchPeriodicTimeout"`
	WatchMaxVideos         int             `yaml:"watchMaxVideos"`
	ManagerPeriodicTimeout int             `yaml:"managerPeriodicTimeout"`
	AnalyzerMaxWorkers     int             `yaml:"analyzerMaxWorkers"`
	AlertConfidence        float64         `yaml:"alertConfidence"`
	WebhookURL             string          `yaml:"webhookUrl"`
	ServerAddress          string          `yaml:"serverAddress"`
	InferenceBackend       string          `yaml:"inferenceBackend"`
	Mock                   MockParameters  `yaml:"mock"`
	Model                  ModelParameters `yaml:"model"`
	DataBackend            string          `yaml:"dataBackend"`
	PostgresURL            string          `yaml:"postgresUrl"`
	StorageBackend         string          `yaml:"storageBackend"`
	Minio                  MinioParameters `yaml:"minio"`
}

// DefaultSettings mirror the demo policy: 70% real, confidence in [0.75, 0.95],
// 15 to 25 frames and a 2 to 5 seconds simulated processing time.
func DefaultSettings() Settings {
	return Settings{
		ModeMaxShutdownTime:    5,
		InputFolder:            "./videos",
		DataFolder:             "./settings",
		UploadsFolder:          "./uploads",
		VideoExtensions:        []string{".mp4", ".mov", ".m4v", ".avi", ".mkv", ".webm"},
		WatchPeriodicTimeout:   10,
		WatchMaxVideos:         10,
		ManagerPeriodicTimeout: 30,
		AnalyzerMaxWorkers:     3,
		AlertConfidence:        0.8,
		WebhookURL:             "",
		ServerAddress:          ":8080",
		InferenceBackend:       InferenceBackendMock,
		Mock: MockParameters{
			RealBias:      0.7,
			ConfidenceMin: 0.75,
			ConfidenceMax: 0.95,
			FramesMin:     15,
			FramesMax:     25,
			DelayMin:      2 * time.Second,
			DelayMax:      5 * time.Second,
			VerifySource:  true,
		},
		Model: ModelParameters{
			ModelPath:      "./model/deepfake.onnx",
			InputSize:      224,
			FramesToSample: 20,
			FakeThreshold:  0.5,
		},
		DataBackend:    DataBackendFiles,
		PostgresURL:    "postgres://localhost:5432/dfgo",
		StorageBackend: StorageBackendLocal,
		Minio: MinioParameters{
			Endpoint:   "localhost:9000",
			BucketName: "videos",
			Region:     "us-east-1",
		},
	}
}

type hardcodedService struct {
	settings Settings
}

func NewHardCoded() IService {
	return &hardcodedService{
		settings: DefaultSettings(),
	}
}

// NewFromSettings is mostly useful for tests that need to tweak one knob
func NewFromSettings(s Settings) IService {
	return &hardcodedService{
		settings: s,
	}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return svc.settings.ModeMaxShutdownTime
}

func (svc *hardcodedService) GetInputFolder() string {
	return svc.settings.InputFolder
}

func (svc *hardcodedService) GetDataFolder() string {
	return svc.settings.DataFolder
}

func (svc *hardcodedService) GetUploadsFolder() string {
	return svc.settings.UploadsFolder
}

func (svc *hardcodedService) GetVideoExtensions() []string {
	return svc.settings.VideoExtensions
}

func (svc *hardcodedService) GetWatchPeriodicTimeout() int {
	return svc.settings.WatchPeriodicTimeout
}

func (svc *hardcodedService) GetWatchMaxVideos() int {
	return svc.settings.WatchMaxVideos
}

func (svc *hardcodedService) GetManagerPeriodicTimeout() int {
	return svc.settings.ManagerPeriodicTimeout
}

func (svc *hardcodedService) GetAnalyzerMaxWorkers() int {
	return svc.settings.AnalyzerMaxWorkers
}

func (svc *hardcodedService) GetAlertConfidence() float64 {
	return svc.settings.AlertConfidence
}

func (svc *hardcodedService) GetWebhookURL() string {
	return svc.settings.WebhookURL
}

func (svc *hardcodedService) GetServerAddress() string {
	return svc.settings.ServerAddress
}

func (svc *hardcodedService) GetInferenceBackend() string {
	return svc.settings.InferenceBackend
}

func (svc *hardcodedService) GetMockParameters() MockParameters {
	return svc.settings.Mock
}

func (svc *hardcodedService) GetModelParameters() ModelParameters {
	return svc.settings.Model
}

func (svc *hardcodedService) GetDataBackend() string {
	return svc.settings.DataBackend
}

func (svc *hardcodedService) GetPostgresURL() string {
	return svc.settings.PostgresURL
}

func (svc *hardcodedService) GetStorageBackend() string {
	return svc.settings.StorageBackend
}

func (svc *hardcodedService) GetMinioParameters() MinioParameters {
	return svc.settings.Minio
}
