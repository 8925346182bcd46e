package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenePath string // TOML scene description
	Output    string // overrides the scene's output path when set

	LogFormat     string
	LogLevel      string
	WorkerCount   int
	ArenaCapacity int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScenePath == "" {
		return nil, errors.New("ScenePath is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, errors.New("WorkerCount cannot be negative")
	}
	if cfg.ArenaCapacity < 0 {
		return nil, errors.New("ArenaCapacity cannot be negative")
	}
	return &cfg, nil
}
