package config

import (
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// NewYaml overlays the yaml file at `path` on top of the default settings.
// Keys that are absent from the file keep their default value.
func NewYaml(path string) (IService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("reading config %s: %w", path, err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, xerrors.Errorf("parsing config %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid config %s: %w", path, err)
	}

	return &hardcodedService{
		settings: settings,
	}, nil
}

func (s Settings) Validate() error {
	switch s.InferenceBackend {
	case InferenceBackendMock, InferenceBackendDNN:
	default:
		return xerrors.Errorf("unknown inference backend %q", s.InferenceBackend)
	}

	switch s.DataBackend {
	case DataBackendFiles, DataBackendPostgres:
	default:
		return xerrors.Errorf("unknown data backend %q", s.DataBackend)
	}

	switch s.StorageBackend {
	case StorageBackendLocal, StorageBackendMinio:
	default:
		return xerrors.Errorf("unknown storage backend %q", s.StorageBackend)
	}

	if s.AnalyzerMaxWorkers <= 0 {
		return xerrors.Errorf("analyzerMaxWorkers must be positive, got %d", s.AnalyzerMaxWorkers)
	}

	if s.WatchPeriodicTimeout <= 0 || s.ManagerPeriodicTimeout <= 0 {
		return xerrors.Errorf("periodic timeouts must be positive, got watch %d and manager %d", s.WatchPeriodicTimeout, s.ManagerPeriodicTimeout)
	}

	return s.Mock.Validate()
}
