// mnistr evaluates test-time adaptation strategies on rotated MNIST.
//
// Usage:
//
//	mnistr --cfg=configs/tent.yaml
//
// The driver loads a fixed LeNet-5 checkpoint, wraps it with the configured
// adaptation strategy and sweeps the rotation angle from 0 to 180 degrees in
// steps of 10, logging the error rate at each angle.
package main

import (
	"errors"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/Nyquixt/TENT/adapt"
	"github.com/Nyquixt/TENT/checkpoint"
	"github.com/Nyquixt/TENT/config"
	"github.com/Nyquixt/TENT/dataset"
	"github.com/Nyquixt/TENT/metrics"
	"github.com/Nyquixt/TENT/utils"
)

var (
	cfgPath    = flag.String("cfg", "", "Path to YAML config (defaults used when empty)")
	adaptation = flag.String("adaptation", "", "Override adaptation mode: source, norm, tent")
	dataDir    = flag.String("data-dir", "", "Override dataset cache directory")
	ckptPath   = flag.String("ckpt", "", "Override checkpoint path")
	timing     = flag.Bool("timing", false, "Print a per-phase timing breakdown after the sweep")
)

func main() {
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	evaluate(cfg, logger)
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}
	if *adaptation != "" {
		cfg.Model.Adaptation = *adaptation
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *ckptPath != "" {
		cfg.Model.Checkpoint = *ckptPath
	}
	return cfg, cfg.Validate()
}

// runDescription is the fixed banner logged at the start of every sweep.
const runDescription = "rotated-MNIST evaluation"

func announceRun(logger *zap.Logger) {
	logger.Info(runDescription)
}

func evaluate(cfg *config.Config, logger *zap.Logger) {
	log := logger.Sugar()
	announceRun(logger)

	var stats utils.TimingStats
	sweepStart := time.Now()

	log.Infof("==> Loading from checkpoint %s", cfg.Model.Checkpoint)
	phase := time.Now()
	base, err := checkpoint.LoadBaseModel(cfg.Model.Checkpoint)
	if err != nil {
		logger.Fatal("checkpoint load failed", zap.Error(err))
	}
	stats.CheckpointLoadTime = time.Since(phase)

	model, err := adapt.Select(base, cfg, logger)
	if err != nil {
		logger.Fatal("adaptation setup failed", zap.Error(err))
	}

	// Evaluate on an evolving rotation of the test images, 0-180 degrees in
	// steps of 10. Unless the state is configured to evolve, adaptation is
	// reset before each angle.
	angles := 0
	for angle := 0; angle <= 180; angle += 10 {
		angles++
		if !cfg.Model.Evolve {
			switch err := model.Reset(); {
			case errors.Is(err, adapt.ErrResetUnsupported):
				logger.Warn("not resetting model")
			case err != nil:
				logger.Fatal("model reset failed", zap.Error(err))
			default:
				logger.Info("resetting model")
			}
		}

		phase = time.Now()
		inputs, labels, err := dataset.LoadRotatedTest(cfg.Data.Dir, float64(angle), 0)
		if err != nil {
			logger.Fatal("dataset load failed", zap.Int("angle", angle), zap.Error(err))
		}
		stats.DataLoadingTime += time.Since(phase)

		phase = time.Now()
		acc, err := metrics.CleanAccuracy(model, inputs, labels, cfg.Test.BatchSize)
		if err != nil {
			logger.Fatal("evaluation failed", zap.Int("angle", angle), zap.Error(err))
		}
		stats.EvaluationTime += time.Since(phase)
		log.Infof("error %% [%d]: %.2f%%", angle, (1-acc)*100)
	}

	stats.TotalTime = time.Since(sweepStart)
	utils.Verbose = *timing
	utils.PrintTimingStats(&stats, angles)
}
