// Package adapt wraps a frozen classifier with one of three test-time
// adaptation strategies: no adaptation ("source"), per-batch normalization
// statistics ("norm"), and entropy minimization over the normalization
// parameters ("tent").
package adapt

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Nyquixt/TENT/config"
	"github.com/Nyquixt/TENT/nn"
	"github.com/Nyquixt/TENT/tensor"
)

// ErrResetUnsupported reports that the active wrapper has no adaptation
// state to reset. Callers are expected to downgrade it to a warning and
// continue with the accumulated state.
var ErrResetUnsupported = errors.New("model reset unsupported")

// Model is the uniform adapt-and-predict contract exposed by every wrapper.
type Model interface {
	// Predict maps a [batch, 1, 28, 28] tensor to [batch, 10] logits,
	// adapting internal state first where the strategy calls for it.
	Predict(x *tensor.Tensor) (*tensor.Tensor, error)
	// Reset restores the adaptation state captured at wrap time.
	Reset() error
}

// Select wraps base with the adaptation strategy named by the configuration.
// The tent strategy constructs its optimizer here; an unknown optimizer
// method surfaces as an error before any adaptation step runs.
func Select(base *nn.LeNet5, cfg *config.Config, logger *zap.Logger) (Model, error) {
	switch cfg.Model.Adaptation {
	case "source":
		logger.Info("test-time adaptation: NONE")
		return NewSource(base), nil
	case "norm":
		logger.Info("test-time adaptation: NORM")
		return NewNorm(base, logger), nil
	case "tent":
		logger.Info("test-time adaptation: TENT")
		return NewTent(base, cfg.Optim, cfg.Model.Episodic, logger)
	default:
		return nil, fmt.Errorf("unknown adaptation mode %q", cfg.Model.Adaptation)
	}
}
