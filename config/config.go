// Package config holds the immutable run configuration. It is parsed once at
// process start and passed by reference to each component constructor; no
// component reads ambient global state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full harness configuration.
type Config struct {
	Model ModelConfig `yaml:"model"`
	Optim OptimConfig `yaml:"optim"`
	Test  TestConfig  `yaml:"test"`
	Data  DataConfig  `yaml:"data"`
}

// ModelConfig selects the adaptation strategy and its reset policy.
type ModelConfig struct {
	// Adaptation is one of "source", "norm" or "tent".
	Adaptation string `yaml:"adaptation"`
	// Evolve keeps adaptation state across rotation angles instead of
	// resetting between them, modeling a continuously drifting distribution.
	Evolve bool `yaml:"evolve"`
	// Episodic resets tent's adapted parameters before every batch.
	Episodic bool `yaml:"episodic"`
	// Checkpoint is the path of the pretrained classifier weights.
	Checkpoint string `yaml:"checkpoint"`
}

// OptimConfig configures the entropy-minimization optimizer.
type OptimConfig struct {
	Method    string  `yaml:"method"` // "Adam" or "SGD"
	Steps     int     `yaml:"steps"`
	LR        float64 `yaml:"lr"`
	Beta      float64 `yaml:"beta"`
	WD        float64 `yaml:"wd"`
	Momentum  float64 `yaml:"momentum"`
	Dampening float64 `yaml:"dampening"`
	Nesterov  bool    `yaml:"nesterov"`
}

// TestConfig configures evaluation.
type TestConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// DataConfig locates the dataset cache.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the configuration used when no file is given: tent-style
// Adam adaptation with a single step per batch.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Adaptation: "source",
			Checkpoint: "./lenet5-mnist.json",
		},
		Optim: OptimConfig{
			Method:   "Adam",
			Steps:    1,
			LR:       1e-3,
			Beta:     0.9,
			Momentum: 0.9,
			Nesterov: true,
		},
		Test: TestConfig{BatchSize: 100},
		Data: DataConfig{Dir: "./data"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifies the configuration is runnable.
func (c *Config) Validate() error {
	switch c.Model.Adaptation {
	case "source", "norm", "tent":
	default:
		return fmt.Errorf("unknown adaptation mode %q", c.Model.Adaptation)
	}
	if c.Optim.Steps <= 0 {
		return fmt.Errorf("optim steps must be positive (got %d)", c.Optim.Steps)
	}
	if c.Test.BatchSize <= 0 {
		return fmt.Errorf("test batch size must be positive (got %d)", c.Test.BatchSize)
	}
	if c.Model.Checkpoint == "" {
		return fmt.Errorf("model checkpoint path must be set")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data dir must be set")
	}
	return nil
}
