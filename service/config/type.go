package config

import (
	"time"

	"golang.org/x/xerrors"
)

// Absolute bounds for demo confidence values. Configured bounds must stay inside.
const (
	MinDemoConfidence = 0.70
	MaxDemoConfidence = 0.99
)

const (
	InferenceBackendMock = "mock"
	InferenceBackendDNN  = "dnn"

	DataBackendFiles    = "files"
	DataBackendPostgres = "postgres"

	StorageBackendLocal = "local"
	StorageBackendMinio = "minio"
)

// MockParameters drive the demo result generator
type MockParameters struct {
	RealBias      float64       `yaml:"realBias"`
	ConfidenceMin float64       `yaml:"confidenceMin"`
	ConfidenceMax float64       `yaml:"confidenceMax"`
	FramesMin     int           `yaml:"framesMin"`
	FramesMax     int           `yaml:"framesMax"`
	DelayMin      time.Duration `yaml:"delayMin"`
	DelayMax      time.Duration `yaml:"delayMax"`
	VerifySource  bool          `yaml:"verifySource"`
}

func (p MockParameters) Validate() error {
	if p.RealBias < 0 || p.RealBias > 1 {
		return xerrors.Errorf("realBias %v is outside [0, 1]", p.RealBias)
	}
	if p.ConfidenceMin > p.ConfidenceMax {
		return xerrors.Errorf("confidenceMin %v is greater than confidenceMax %v", p.ConfidenceMin, p.ConfidenceMax)
	}
	if p.ConfidenceMin < MinDemoConfidence || p.ConfidenceMax > MaxDemoConfidence {
		return xerrors.Errorf("confidence range [%v, %v] is outside [%v, %v]", p.ConfidenceMin, p.ConfidenceMax, MinDemoConfidence, MaxDemoConfidence)
	}
	if p.FramesMin <= 0 || p.FramesMin > p.FramesMax {
		return xerrors.Errorf("invalid frames range [%d, %d]", p.FramesMin, p.FramesMax)
	}
	if p.DelayMin < 0 || p.DelayMin > p.DelayMax {
		return xerrors.Errorf("invalid delay range [%v, %v]", p.DelayMin, p.DelayMax)
	}
	return nil
}

// ModelParameters drive the model-backed (dnn) inference service
type ModelParameters struct {
	ModelPath      string  `yaml:"modelPath"`
	InputSize      int     `yaml:"inputSize"`
	FramesToSample int     `yaml:"framesToSample"`
	FakeThreshold  float64 `yaml:"fakeThreshold"`
}

type MinioParameters struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	BucketName string `yaml:"bucketName"`
	Region     string `yaml:"region"`
	UseSSL     bool   `yaml:"useSSL"`
}

type IService interface {
	GetModeMaxShutdownTime() int
	GetInputFolder() string
	GetDataFolder() string
	GetUploadsFolder() string
	GetVideoExtensions() []string
	GetWatchPeriodicTimeout() int
	GetWatchMaxVideos() int
	GetManagerPeriodicTimeout() int
	GetAnalyzerMaxWorkers() int
	GetAlertConfidence() float64
	GetWebhookURL() string
	GetServerAddress() string
	GetInferenceBackend() string
	GetMockParameters() MockParameters
	GetModelParameters() ModelParameters
	GetDataBackend() string
	GetPostgresURL() string
	GetStorageBackend() string
	GetMinioParameters() MinioParameters
}
